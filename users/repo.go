package users

// UserRepo stores accounts for the development user service. Lookups of a
// missing account return errors.ErrNotFound.
type UserRepo interface {
	Upsert(user *User) error
	Delete(id int) error
	GetByEmail(email string) (*User, error)
	GetByUsername(username string) (*User, error)
	GetByID(id int) (*User, error)
	// List returns accounts ordered by id. An empty role lists every role.
	List(role RoleType, offset, limit int) ([]*User, error)
	SetBlocked(id int, blocked bool) error
	SetLastLogin(id int) error
}
