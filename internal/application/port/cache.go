package port

import "context"

// Cache is a read-through cache for query results.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	DeletePattern(ctx context.Context, pattern string) error
}
