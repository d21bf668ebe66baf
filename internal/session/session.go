package session

import (
	"context"
	"net/http"
)

// AdminKey is the session key holding the admin unlocked flag.
const AdminKey = "admin_unlocked"

// Manager is an interface that abstracts the session management implementation.
// This allows for easier testing and dependency injection.
type Manager interface {
	LoadAndSave(next http.Handler) http.Handler
	Put(ctx context.Context, key string, val interface{})
	GetBool(ctx context.Context, key string) bool
	Remove(ctx context.Context, key string)
	RenewToken(ctx context.Context) error
}
