package mailbus

import "context"

// Database is a store that has to be opened before use.
type Database interface {
	Open() error
	Close() error
	Ping(ctx context.Context) error
}
