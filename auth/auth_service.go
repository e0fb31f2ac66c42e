package auth

import (
	"fmt"

	"github.com/jrsteele09/sahasik/internal/config"
	"github.com/jrsteele09/sahasik/internal/errors"
	"github.com/jrsteele09/sahasik/token/jwt"
	"github.com/jrsteele09/sahasik/token/keys"
	"github.com/jrsteele09/sahasik/token/refresh"
	"github.com/jrsteele09/sahasik/users"
	"github.com/rs/zerolog/log"
)

// Repos holds all repository dependencies for the AuthService
type Repos struct {
	Users         users.UserRepo
	RefreshTokens refresh.Repo
}

// AuthService issues and checks the tokens of the development auth service.
type AuthService struct {
	repos     Repos
	signer    keys.Signer
	creator   *jwt.Creator
	inspector *jwt.Inspector
	refresh   *refresh.Manager
	validator *Validator
}

func NewAuthService(repos Repos, signer keys.Signer, cfg config.TokenConfig) (*AuthService, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewAuthService] Users repo is required")
	}
	if repos.RefreshTokens == nil {
		return nil, errors.New("[NewAuthService] RefreshTokens repo is required")
	}
	if signer == nil {
		return nil, errors.New("[NewAuthService] signer is required")
	}

	as := &AuthService{
		repos:     repos,
		signer:    signer,
		creator:   jwt.NewCreator(cfg),
		inspector: jwt.NewInspector(signer, cfg.GetIssuer()),
		refresh:   refresh.NewManager(repos.RefreshTokens, cfg),
		validator: NewValidator(),
	}
	return as, nil
}

// Login checks the credentials and issues a new token pair. The role in the
// request is ignored; the account decides the role.
func (as *AuthService) Login(req LoginRequest) (*LoginResponse, error) {
	if err := as.validator.ValidateLoginRequest(req); err != nil {
		return nil, fmt.Errorf("[AuthService.Login] %w", err)
	}

	user, err := as.findUser(req)
	if err != nil {
		return nil, UserNotFoundErr
	}
	if !users.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, UserPasswordsDontMatchErr
	}
	if user.Blocked {
		return nil, UserBlockedErr
	}

	resp, err := as.issue(user)
	if err != nil {
		return nil, fmt.Errorf("[AuthService.Login] %w", err)
	}
	if err := as.repos.Users.SetLastLogin(user.ID); err != nil {
		log.Warn().Err(err).Int("user", user.ID).Msg("failed to record last login")
	}
	log.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("user logged in")
	return resp, nil
}

// Refresh rotates refreshToken: the presented token is consumed and a new
// pair is returned.
func (as *AuthService) Refresh(refreshToken string) (*LoginResponse, error) {
	if err := as.validator.ValidateRefreshToken(refreshToken); err != nil {
		return nil, fmt.Errorf("[AuthService.Refresh] %w", err)
	}

	userID, next, err := as.refresh.Rotate(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("[AuthService.Refresh] %w", err)
	}
	user, err := as.repos.Users.GetByID(userID)
	if err != nil {
		_ = as.refresh.Delete(next)
		return nil, fmt.Errorf("[AuthService.Refresh] %w: %w", errors.ErrInvalidRefreshToken, err)
	}
	if user.Blocked {
		_ = as.refresh.Delete(next)
		return nil, UserBlockedErr
	}

	accessToken, err := as.creator.CreateAccessToken(user, as.signer)
	if err != nil {
		return nil, fmt.Errorf("[AuthService.Refresh] %w", err)
	}
	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: next,
		ExpiresIn:    int64(as.creator.Expiry().Seconds()),
		User:         *user,
	}, nil
}

// Validate reports the user behind a valid access token
func (as *AuthService) Validate(rawToken string) (*ValidateResponse, error) {
	user, err := as.Authenticate(rawToken)
	if err != nil {
		return nil, err
	}
	return &ValidateResponse{Valid: true, User: *user}, nil
}

// Authenticate verifies rawToken and loads its user. Blocked or deleted users
// are rejected even while their token is still valid.
func (as *AuthService) Authenticate(rawToken string) (*users.User, error) {
	if err := as.validator.ValidateAccessToken(rawToken); err != nil {
		return nil, err
	}
	claims, err := as.inspector.Introspect(rawToken)
	if err != nil {
		return nil, err
	}
	user, err := as.repos.Users.GetByID(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", InvalidAccessTokenErr, err)
	}
	if user.Blocked {
		return nil, UserBlockedErr
	}
	return user, nil
}

// GetJWKS returns the JSON Web Key Set for public key distribution
func (as *AuthService) GetJWKS() keys.JWKS {
	return as.signer.JWKS()
}

func (as *AuthService) findUser(req LoginRequest) (*users.User, error) {
	if req.Email != "" {
		user, err := as.repos.Users.GetByEmail(req.Email)
		if err != nil {
			return nil, err
		}
		if req.Username != "" && user.Username != req.Username {
			return nil, fmt.Errorf("%w: username does not match email", errors.ErrInvalidCredentials)
		}
		return user, nil
	}
	return as.repos.Users.GetByUsername(req.Username)
}

func (as *AuthService) issue(user *users.User) (*LoginResponse, error) {
	accessToken, err := as.creator.CreateAccessToken(user, as.signer)
	if err != nil {
		return nil, err
	}
	refreshToken, err := as.refresh.Create(user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(as.creator.Expiry().Seconds()),
		User:         *user,
	}, nil
}
