package sessions_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/sahasik/auth"
	"github.com/jrsteele09/sahasik/credentials"
	credentialsrepofake "github.com/jrsteele09/sahasik/credentials/repofake"
	"github.com/jrsteele09/sahasik/gateway"
	"github.com/jrsteele09/sahasik/internal/errors"
	"github.com/jrsteele09/sahasik/sessions"
	"github.com/jrsteele09/sahasik/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const adminJSON = `{"id":1,"username":"admin","email":"admin@pesantren.com","full_name":"Administrator","role":"admin"}`

type testFixture struct {
	store      *credentials.Store
	repo       *credentialsrepofake.FakeRefreshRepo
	gateway    *gateway.Gateway
	controller *sessions.Controller
	logins     atomic.Int32
	validates  atomic.Int32
	srv        *httptest.Server
}

// setupTestFixture wires a controller to a mock auth service that issues A1/R1
// for the admin account and accepts only A1.
func setupTestFixture(t *testing.T, refresher gateway.RefresherFunc) *testFixture {
	t.Helper()
	f := &testFixture{repo: credentialsrepofake.NewFakeRefreshRepo()}
	f.store = credentials.NewStore(f.repo)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		f.logins.Add(1)
		var req auth.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, auth.DefaultLoginRole, req.Role)
		if req.Password != "Admin123!@#" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"A1","refresh_token":"R1","expires_in":900,"user":` + adminJSON + `}`))
	})
	mux.HandleFunc("POST /auth/validate", func(w http.ResponseWriter, r *http.Request) {
		f.validates.Add(1)
		if r.Header.Get("Authorization") != "Bearer A1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"valid":true,"user":` + adminJSON + `}`))
	})
	mux.HandleFunc("GET /courses", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer A1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)

	client := auth.NewClient(f.srv.URL, f.srv.Client())
	var r gateway.Refresher = client
	if refresher != nil {
		r = refresher
	}
	f.gateway = gateway.New(f.store, r, gateway.WithBase(f.srv.Client()))
	f.controller = sessions.NewController(f.store, client.Authenticated(f.gateway), f.gateway.Events())
	t.Cleanup(f.controller.Close)
	return f
}

func TestController_LoginScenario(t *testing.T) {
	f := setupTestFixture(t, nil)
	ctx := context.Background()

	require.True(t, f.controller.State().IsLoading)

	user, err := f.controller.Login(ctx, "admin", "admin@pesantren.com", "Admin123!@#")
	require.NoError(t, err)
	require.Equal(t, users.RoleAdmin, user.Role)

	require.Equal(t, "A1", f.store.AccessToken())
	rt, err := f.store.RefreshToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "R1", rt)

	state := f.controller.State()
	require.True(t, state.IsAuthenticated)
	require.False(t, state.IsLoading)
	require.Equal(t, users.RoleAdmin, state.User.Role)

	entry, err := f.repo.Get(ctx, credentials.DefaultRefreshCookieName)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(7*24*time.Hour), entry.Expires, time.Minute)
	require.Equal(t, http.SameSiteStrictMode, entry.SameSite)
	require.True(t, entry.Secure)
}

func TestController_LoginFailure(t *testing.T) {
	f := setupTestFixture(t, nil)

	_, err := f.controller.Login(context.Background(), "admin", "", "wrong")
	require.True(t, errors.Is(err, errors.ErrInvalidCredentials))

	state := f.controller.State()
	require.False(t, state.IsAuthenticated)
	require.False(t, state.IsLoading)
	require.Empty(t, f.store.AccessToken())
}

func TestController_ValidateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("no refresh token", func(t *testing.T) {
		f := setupTestFixture(t, nil)
		var events atomic.Int32
		f.gateway.Events().Subscribe(func(gateway.Event) { events.Add(1) })

		_, err := f.controller.ValidateSession(ctx)
		require.True(t, errors.Is(err, errors.ErrValidationFailed))
		require.Equal(t, int32(0), f.validates.Load())
		require.Equal(t, int32(0), events.Load())
		require.False(t, f.controller.State().IsAuthenticated)
		require.False(t, f.controller.State().IsLoading)
	})

	t.Run("restores after restart", func(t *testing.T) {
		// the access token is gone but R1 survived, so the gateway refreshes
		refresher := gateway.RefresherFunc(func(ctx context.Context, rt string) (*oauth2.Token, error) {
			require.Equal(t, "R1", rt)
			return &oauth2.Token{AccessToken: "A1", RefreshToken: "R2"}, nil
		})
		f := setupTestFixture(t, refresher)
		require.NoError(t, f.store.SetRefreshToken(ctx, "R1", time.Hour))

		user, err := f.controller.ValidateSession(ctx)
		require.NoError(t, err)
		require.Equal(t, "admin", user.Username)
		require.True(t, f.controller.State().IsAuthenticated)

		rt, err := f.store.RefreshToken(ctx)
		require.NoError(t, err)
		require.Equal(t, "R2", rt)
	})

	t.Run("rejected", func(t *testing.T) {
		refresher := gateway.RefresherFunc(func(context.Context, string) (*oauth2.Token, error) {
			return nil, errors.NewStatusError(http.StatusUnauthorized, "invalid refresh token")
		})
		f := setupTestFixture(t, refresher)
		var events atomic.Int32
		f.gateway.Events().Subscribe(func(gateway.Event) { events.Add(1) })
		var states []sessions.State
		unsubscribe := f.controller.OnChange(func(s sessions.State) { states = append(states, s) })
		defer unsubscribe()
		require.NoError(t, f.store.SetRefreshToken(ctx, "R1", time.Hour))

		_, err := f.controller.ValidateSession(ctx)
		require.True(t, errors.Is(err, errors.ErrValidationFailed))
		require.True(t, errors.Is(err, errors.ErrRefreshFailed))
		require.Equal(t, 0, f.repo.Len())
		require.Equal(t, int32(0), events.Load())
		require.Len(t, states, 2)
		require.True(t, states[0].IsLoading)
		require.False(t, states[1].IsLoading)
		require.Nil(t, states[1].User)
	})
}

func TestController_SessionExpiredSignsOut(t *testing.T) {
	refresher := gateway.RefresherFunc(func(context.Context, string) (*oauth2.Token, error) {
		return nil, errors.NewStatusError(http.StatusUnauthorized, "invalid refresh token")
	})
	f := setupTestFixture(t, refresher)
	ctx := context.Background()

	_, err := f.controller.Login(ctx, "admin", "", "Admin123!@#")
	require.NoError(t, err)

	var states []sessions.State
	unsubscribe := f.controller.OnChange(func(s sessions.State) { states = append(states, s) })
	defer unsubscribe()

	// the backend stops accepting A1
	f.store.SetAccessToken("A0")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/courses", nil)
	require.NoError(t, err)
	_, err = f.gateway.Do(req)
	require.True(t, errors.Is(err, errors.ErrSessionExpired))

	require.False(t, f.controller.State().IsAuthenticated)
	require.Len(t, states, 1)
	require.Nil(t, states[0].User)
}

func TestController_Logout(t *testing.T) {
	f := setupTestFixture(t, nil)
	ctx := context.Background()

	_, err := f.controller.Login(ctx, "admin", "", "Admin123!@#")
	require.NoError(t, err)

	require.NoError(t, f.controller.Logout(ctx))
	require.NoError(t, f.controller.Logout(ctx))
	require.Empty(t, f.store.AccessToken())
	require.Equal(t, 0, f.repo.Len())
	require.Nil(t, f.controller.User())
}

func TestController_RequireRole(t *testing.T) {
	f := setupTestFixture(t, nil)

	_, err := f.controller.RequireRole()
	require.True(t, errors.Is(err, errors.ErrNotAuthenticated))

	_, err = f.controller.Login(context.Background(), "admin", "", "Admin123!@#")
	require.NoError(t, err)

	user, err := f.controller.RequireRole(users.RoleAdmin, users.RoleTeacher)
	require.NoError(t, err)
	require.Equal(t, "admin", user.Username)

	_, err = f.controller.RequireRole(users.RoleStudent)
	require.True(t, errors.Is(err, errors.ErrForbidden))
}
