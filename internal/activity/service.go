package activity

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmapos/pharmapos/internal/shared"
)

// ErrValidation indicates bad timeline filters.
var ErrValidation = errors.New("activity: invalid input")

// Entry is one timeline row.
type Entry struct {
	ID        int64          `json:"id"`
	ActorID   int64          `json:"actor_id"`
	ActorName string         `json:"actor_name"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entity_id"`
	Detail    string         `json:"detail"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Filters narrows the timeline.
type Filters struct {
	ActorID int64
	Action  string
	Entity  string
	From    time.Time
	To      time.Time
	Page    int
	PerPage int
}

// Service reads the activity timeline. Writes go through the shared logger;
// this side only queries.
type Service struct {
	pool *pgxpool.Pool
}

// NewService builds Service.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// Timeline returns a window of entries, newest first.
func (s *Service) Timeline(ctx context.Context, filters Filters) ([]Entry, int, error) {
	where := " WHERE 1=1"
	args := []any{}

	add := func(cond string, value any) {
		args = append(args, value)
		where += cond + "$" + strconv.Itoa(len(args))
	}
	if filters.ActorID > 0 {
		add(" AND actor_id = ", filters.ActorID)
	}
	if filters.Action != "" {
		add(" AND action = ", filters.Action)
	}
	if filters.Entity != "" {
		add(" AND entity = ", filters.Entity)
	}
	if !filters.From.IsZero() {
		add(" AND created_at >= ", filters.From)
	}
	if !filters.To.IsZero() {
		add(" AND created_at < ", filters.To.Add(24*time.Hour))
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM activity_logs"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := filters.Page
	if page < 1 {
		page = 1
	}
	perPage := filters.PerPage
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}
	args = append(args, perPage, (page-1)*perPage)

	rows, err := s.pool.Query(ctx, `
		SELECT id, actor_id, actor_name, action, entity, entity_id, detail, meta, created_at
		FROM activity_logs`+where+`
		ORDER BY created_at DESC, id DESC
		LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var entry Entry
		var meta []byte
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.ActorName, &entry.Action,
			&entry.Entity, &entry.EntityID, &entry.Detail, &meta, &entry.CreatedAt); err != nil {
			return nil, 0, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &entry.Meta)
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

// Record forwards to the shared writer so callers holding the timeline
// service can append too.
func (s *Service) Record(ctx context.Context, entry shared.ActivityEntry) error {
	return shared.NewActivityLogger(s.pool).Record(ctx, entry)
}

