package auth

import "context"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the authenticated caller attached to a request by Protect.
type Identity struct {
	ID             string
	Role           string
	Name           string
	Email          string
	IsPhotographer bool
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Owns reports whether the caller is ownerID or an admin.
func (i Identity) Owns(ownerID string) bool {
	return i.IsAdmin() || (ownerID != "" && i.ID == ownerID)
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
