package record

import "context"

type Kind string

const (
	KindUsers         Kind = "users"
	KindUserEmails    Kind = "user_emails"
	KindChecks        Kind = "checks"
	KindTokens        Kind = "tokens"
	KindNotifications Kind = "notifications"
)

type Record struct {
	ID   string
	Data []byte
}

// Gateway is a keyed document store. Writes are last-write-wins per (kind, id).
// Get returns domain.ErrNotFound for a missing record; Delete of a missing
// record is not an error. Other failures are *domain.StorageError.
type Gateway interface {
	Get(ctx context.Context, kind Kind, id string) ([]byte, error)
	Put(ctx context.Context, kind Kind, id string, data []byte) error
	Delete(ctx context.Context, kind Kind, id string) error
	ListAll(ctx context.Context, kind Kind) ([]Record, error)
}
