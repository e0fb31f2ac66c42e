package fakeuserrepo

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/sahasik/internal/errors"
	"github.com/jrsteele09/sahasik/users"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users     map[int]*users.User
	emailIDs  map[string]int // lower-cased email to user id
	usernames map[string]int // lower-cased username to user id
	nextID    int
	lock      sync.RWMutex
}

func NewFakeUserRepo() users.UserRepo {
	return &FakeUserRepo{
		users:     make(map[int]*users.User),
		emailIDs:  make(map[string]int),
		usernames: make(map[string]int),
		nextID:    1,
	}
}

// Upsert assigns the next id to a new user. Email and username stay unique.
func (ur *FakeUserRepo) Upsert(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	email := strings.ToLower(user.Email)
	username := strings.ToLower(user.Username)
	if id, ok := ur.emailIDs[email]; ok && id != user.ID {
		return fmt.Errorf("%w: email %s already registered", errors.ErrConflict, user.Email)
	}
	if id, ok := ur.usernames[username]; ok && id != user.ID {
		return fmt.Errorf("%w: username %s already taken", errors.ErrConflict, user.Username)
	}

	if user.ID == 0 {
		user.ID = ur.nextID
		if user.DateJoined.IsZero() {
			user.DateJoined = NowTimeFunc()
		}
	}
	if user.ID >= ur.nextID {
		ur.nextID = user.ID + 1
	}

	if previous, ok := ur.users[user.ID]; ok {
		delete(ur.emailIDs, strings.ToLower(previous.Email))
		delete(ur.usernames, strings.ToLower(previous.Username))
	}
	ur.users[user.ID] = user
	ur.emailIDs[email] = user.ID
	ur.usernames[username] = user.ID
	return nil
}

func (ur *FakeUserRepo) Delete(id int) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return fmt.Errorf("%w: user %d", errors.ErrNotFound, id)
	}
	delete(ur.emailIDs, strings.ToLower(user.Email))
	delete(ur.usernames, strings.ToLower(user.Username))
	delete(ur.users, id)
	return nil
}

func (ur *FakeUserRepo) GetByEmail(email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIDs[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("%w: email %s", errors.ErrNotFound, email)
	}
	return ur.users[id], nil
}

func (ur *FakeUserRepo) GetByUsername(username string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.usernames[strings.ToLower(username)]
	if !ok {
		return nil, fmt.Errorf("%w: username %s", errors.ErrNotFound, username)
	}
	return ur.users[id], nil
}

func (ur *FakeUserRepo) GetByID(id int) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", errors.ErrNotFound, id)
	}
	return user, nil
}

func (ur *FakeUserRepo) List(role users.RoleType, offset, limit int) ([]*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	userList := make([]*users.User, 0, len(ur.users))
	for _, v := range ur.users {
		if role != "" && v.Role != role {
			continue
		}
		userList = append(userList, v)
	}

	sort.Slice(userList, func(i, j int) bool {
		return userList[i].ID < userList[j].ID
	})

	if offset >= len(userList) {
		return []*users.User{}, nil
	}
	end := len(userList)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return userList[offset:end], nil
}

func (ur *FakeUserRepo) SetBlocked(id int, blocked bool) error {
	user, err := ur.GetByID(id)
	if err != nil {
		return err
	}
	ur.lock.Lock()
	defer ur.lock.Unlock()
	user.Blocked = blocked
	return nil
}

func (ur *FakeUserRepo) SetLastLogin(id int) error {
	user, err := ur.GetByID(id)
	if err != nil {
		return err
	}
	ur.lock.Lock()
	defer ur.lock.Unlock()
	user.LastLogin = NowTimeFunc()
	return nil
}
