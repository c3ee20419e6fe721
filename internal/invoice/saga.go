package invoice

import (
	"context"
	"log/slog"
)

// State tracks where a commit attempt is in its lifecycle. Rollback is
// reachable from any state after the header exists.
type State string

const (
	StateStarted        State = "STARTED"
	StateHeaderCreated  State = "HEADER_CREATED"
	StateProductUpsert  State = "PRODUCT_UPSERTED"
	StateItemStaged     State = "ITEM_STAGED"
	StateItemsPersisted State = "ITEMS_PERSISTED"
	StateCommitted      State = "COMMITTED"
	StateRollingBack    State = "ROLLING_BACK"
	StateRolledBack     State = "ROLLED_BACK"
)

// completedStep pairs a finished mutation with the action that reverses it.
type completedStep struct {
	name string
	undo func(ctx context.Context) error
}

// saga records completed mutations of one commit attempt so they can be
// compensated in reverse order. It is not a transaction: each undo is an
// independent remote call that may itself fail.
type saga struct {
	state  State
	steps  []completedStep
	logger *slog.Logger
}

func newSaga(logger *slog.Logger) *saga {
	return &saga{state: StateStarted, logger: logger}
}

// advance moves the saga to the given state, registering the undo action for
// the mutation that just completed. A nil undo records progress only.
func (s *saga) advance(state State, name string, undo func(ctx context.Context) error) {
	s.state = state
	if undo != nil {
		s.steps = append(s.steps, completedStep{name: name, undo: undo})
	}
}

// rollback consumes the completed steps in reverse. Each undo is attempted
// independently; failures are logged and do not stop the remaining steps.
// Best-effort cleanup is the contract, not guaranteed consistency.
func (s *saga) rollback(ctx context.Context) {
	from := s.state
	s.state = StateRollingBack
	if s.logger != nil {
		s.logger.Warn("invoice commit rolling back",
			slog.String("from_state", string(from)),
			slog.Int("steps", len(s.steps)))
	}
	for i := len(s.steps) - 1; i >= 0; i-- {
		step := s.steps[i]
		if err := step.undo(ctx); err != nil && s.logger != nil {
			s.logger.Error("invoice rollback step failed",
				slog.String("step", step.name),
				slog.Any("error", err))
		}
	}
	s.steps = nil
	s.state = StateRolledBack
}
