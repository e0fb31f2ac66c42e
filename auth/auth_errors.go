package auth

import (
	"fmt"

	"github.com/jrsteele09/sahasik/internal/errors"
)

// Login deliberately reports unknown users and wrong passwords the same way
var (
	UserNotFoundErr           = fmt.Errorf("%w: user not found", errors.ErrInvalidCredentials)
	UserPasswordsDontMatchErr = fmt.Errorf("%w: user passwords not matched", errors.ErrInvalidCredentials)
	UserBlockedErr            = errors.ErrUserBlocked
	InvalidAccessTokenErr     = errors.ErrInvalidToken
)
