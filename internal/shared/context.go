package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ActorFromContext returns the signed-in user's id and display name for audit
// trails, zero values when the request carries no session.
func ActorFromContext(ctx context.Context) (int64, string) {
	sess := SessionFromContext(ctx)
	return sess.UserID(), sess.UserName()
}
