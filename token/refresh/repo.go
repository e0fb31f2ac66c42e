package refresh

import (
	"time"
)

// StoredRefreshToken is the server-side record behind an opaque refresh
// token. Clients only ever see Token.
type StoredRefreshToken struct {
	Token  string
	UserID int
	Iat    time.Time
}

// Repo stores refresh token records keyed by the token string. A user holds
// at most one refresh token at a time.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	GetByUserID(userID int) (*StoredRefreshToken, error)
}
