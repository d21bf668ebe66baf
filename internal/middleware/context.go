package middleware

import (
	"context"

	"go-archive-app/internal/auth"
)

// contextKey defines a custom type for context keys to avoid collisions.
type contextKey string

const userContextKey = contextKey("user")

// UserInfo is the casbin subject of the current request.
type UserInfo struct {
	Subject string
}

// IsAdmin reports whether the request carries an unlocked admin session.
func (u *UserInfo) IsAdmin() bool {
	return u.Subject == auth.SubjectAdmin
}

// GetUserInfo retrieves the user information from the request context.
func GetUserInfo(ctx context.Context) *UserInfo {
	if userInfo, ok := ctx.Value(userContextKey).(*UserInfo); ok {
		return userInfo
	}
	return &UserInfo{Subject: auth.SubjectVisitor}
}

// SetUserInfo adds the user information to the request context.
func SetUserInfo(ctx context.Context, userInfo *UserInfo) context.Context {
	return context.WithValue(ctx, userContextKey, userInfo)
}
