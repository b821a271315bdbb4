package thread

import "context"

// Store persists cached conversation messages.
type Store interface {
	// Put stores a message. Returns true if the message was newly
	// inserted, false if a message with the same id already exists.
	// Existing messages are left untouched.
	Put(ctx context.Context, msg *Message) (bool, error)

	// Get retrieves a message by its cache id.
	Get(ctx context.Context, id string) (*Message, error)

	// ListThread returns a thread's cached messages in creation order,
	// oldest first.
	ListThread(ctx context.Context, threadID int64) ([]*Message, error)

	// DeleteThread removes all cached messages for a thread.
	DeleteThread(ctx context.Context, threadID int64) error

	// Close releases any resources held by the store.
	Close() error
}

// NotFoundError is returned when a message doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "message not found"
	}
	return "message not found: " + e.ID
}
