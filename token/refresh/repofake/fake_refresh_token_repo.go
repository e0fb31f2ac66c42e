package refreshrepofake

import (
	"fmt"
	"sync"

	"github.com/jrsteele09/sahasik/internal/errors"
	"github.com/jrsteele09/sahasik/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

type FakeRefreshTokenRepo struct {
	tokens  map[string]*refresh.StoredRefreshToken
	userIDs map[int]string // user ID to token
	lock    sync.RWMutex
}

func NewFakeRefreshTokenRepo() refresh.Repo {
	return &FakeRefreshTokenRepo{
		tokens:  make(map[string]*refresh.StoredRefreshToken),
		userIDs: make(map[int]string),
	}
}

func (tr *FakeRefreshTokenRepo) Upsert(refreshToken *refresh.StoredRefreshToken) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	tr.tokens[refreshToken.Token] = refreshToken
	tr.userIDs[refreshToken.UserID] = refreshToken.Token
	return nil
}

func (tr *FakeRefreshTokenRepo) Delete(token string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	rt, ok := tr.tokens[token]
	if !ok {
		return fmt.Errorf("%w: refresh token", errors.ErrNotFound)
	}
	if tr.userIDs[rt.UserID] == token {
		delete(tr.userIDs, rt.UserID)
	}
	delete(tr.tokens, token)
	return nil
}

func (tr *FakeRefreshTokenRepo) Get(token string) (*refresh.StoredRefreshToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	rt, ok := tr.tokens[token]
	if !ok {
		return nil, fmt.Errorf("%w: refresh token", errors.ErrNotFound)
	}
	return rt, nil
}

func (tr *FakeRefreshTokenRepo) GetByUserID(userID int) (*refresh.StoredRefreshToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	token, ok := tr.userIDs[userID]
	if !ok {
		return nil, fmt.Errorf("%w: refresh token for user %d", errors.ErrNotFound, userID)
	}
	return tr.tokens[token], nil
}
