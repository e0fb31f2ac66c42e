package credentials

import (
	"context"
	"net/http"
	"time"
)

// Entry is the persisted refresh token record. It carries the same attributes
// a browser cookie would: secure, same-site and an absolute expiry.
type Entry struct {
	Name     string        `json:"name"`
	Value    string        `json:"value"`
	Expires  time.Time     `json:"expires"`
	Secure   bool          `json:"secure"`
	SameSite http.SameSite `json:"same_site"`
}

// Expired reports whether the entry is past its expiry at now
func (e *Entry) Expired(now time.Time) bool {
	return !e.Expires.IsZero() && !now.Before(e.Expires)
}

// RefreshRepo is the scoped, durable storage behind the refresh token.
// Get returns nil (and no error) when the entry is absent or expired.
// Delete must succeed when the entry does not exist.
type RefreshRepo interface {
	Put(ctx context.Context, entry Entry) error
	Get(ctx context.Context, name string) (*Entry, error)
	Delete(ctx context.Context, name string) error
}
