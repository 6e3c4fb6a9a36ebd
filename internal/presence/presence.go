package presence

import "context"

// Store tracks which users currently hold a live connection. Entries are
// ephemeral: loss on restart is acceptable and self-heals on reconnect.
type Store interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
	IsOnline(ctx context.Context, userID string) (bool, error)

	// Socket mapping is last-writer-wins: a second connection for the same
	// user overwrites the first.
	SetSocket(ctx context.Context, userID, socketID string) error
	GetSocket(ctx context.Context, userID string) (string, error)
	ClearSocket(ctx context.Context, userID string) error
}
