package gateway_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/sahasik/credentials"
	credentialsrepofake "github.com/jrsteele09/sahasik/credentials/repofake"
	"github.com/jrsteele09/sahasik/gateway"
	"github.com/jrsteele09/sahasik/internal/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeRefresher struct {
	mu    sync.Mutex
	calls []string
	token *oauth2.Token
	err   error
	delay time.Duration

	// when set, each exchange signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func (r *fakeRefresher) RefreshToken(_ context.Context, refreshToken string) (*oauth2.Token, error) {
	r.mu.Lock()
	r.calls = append(r.calls, refreshToken)
	r.mu.Unlock()
	if r.entered != nil {
		r.entered <- struct{}{}
		<-r.release
	}
	time.Sleep(r.delay)
	return r.token, r.err
}

func (r *fakeRefresher) hold() {
	r.entered = make(chan struct{}, 1)
	r.release = make(chan struct{})
}

func (r *fakeRefresher) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type testFixture struct {
	store     *credentials.Store
	refresher *fakeRefresher
	gateway   *gateway.Gateway
	events    *eventRecorder
}

type eventRecorder struct {
	mu     sync.Mutex
	events []gateway.Event
}

func (r *eventRecorder) record(ev gateway.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func setupTestFixture(t *testing.T, options ...gateway.Option) *testFixture {
	t.Helper()
	store := credentials.NewStore(credentialsrepofake.NewFakeRefreshRepo())
	refresher := &fakeRefresher{token: &oauth2.Token{AccessToken: "A1", RefreshToken: "R1"}}
	g := gateway.New(store, refresher, options...)
	rec := &eventRecorder{}
	unsubscribe := g.Events().Subscribe(rec.record)
	t.Cleanup(unsubscribe)
	return &testFixture{store: store, refresher: refresher, gateway: g, events: rec}
}

// acceptOnly answers 200 for the given bearer token and 401 for anything else
func acceptOnly(token string, seen *[]string, mu *sync.Mutex) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		mu.Lock()
		*seen = append(*seen, auth)
		mu.Unlock()
		if auth != "Bearer "+token {
			http.Error(w, `{"error":"token expired"}`, http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	}
}

func get(t *testing.T, g *gateway.Gateway, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	return g.Do(req)
}

func TestGateway_AttachesBearer(t *testing.T) {
	f := setupTestFixture(t)
	f.store.SetAccessToken("A0")

	var seen []string
	var mu sync.Mutex
	srv := httptest.NewServer(acceptOnly("A0", &seen, &mu))
	defer srv.Close()

	resp, err := get(t, f.gateway, srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"Bearer A0"}, seen)
	require.Empty(t, f.refresher.Calls())
}

func TestGateway_NoTokenSendsNoHeader(t *testing.T) {
	f := setupTestFixture(t)

	var header string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := get(t, f.gateway, srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Empty(t, header)
}

func TestGateway_RefreshRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.store.SetAccessToken("A0")
	require.NoError(t, f.store.SetRefreshToken(ctx, "R0", time.Hour))

	var seen []string
	var mu sync.Mutex
	srv := httptest.NewServer(acceptOnly("A1", &seen, &mu))
	defer srv.Close()

	resp, err := get(t, f.gateway, srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"ok":true}`, string(body))

	require.Equal(t, []string{"Bearer A0", "Bearer A1"}, seen)
	require.Equal(t, []string{"R0"}, f.refresher.Calls())
	require.Equal(t, "A1", f.store.AccessToken())
	rt, err := f.store.RefreshToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "R1", rt)
	require.Zero(t, f.events.Len())
}

func TestGateway_AtMostOneRetry(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.store.SetAccessToken("A0")
	require.NoError(t, f.store.SetRefreshToken(ctx, "R0", time.Hour))

	var seen []string
	var mu sync.Mutex
	srv := httptest.NewServer(acceptOnly("never", &seen, &mu))
	defer srv.Close()

	resp, err := get(t, f.gateway, srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Len(t, seen, 2)
	require.Len(t, f.refresher.Calls(), 1)
	require.Zero(t, f.events.Len())
}

func TestGateway_MissingRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	f.store.SetAccessToken("A0")

	var seen []string
	var mu sync.Mutex
	srv := httptest.NewServer(acceptOnly("A1", &seen, &mu))
	defer srv.Close()

	resp, err := get(t, f.gateway, srv.URL)
	require.Nil(t, resp)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrSessionExpired))
	require.True(t, errors.Is(err, errors.ErrNoRefreshToken))
	require.True(t, errors.Is(err, errors.ErrUnauthorized))

	var statusErr *errors.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	require.Contains(t, statusErr.Message, "token expired")

	require.Empty(t, f.refresher.Calls())
	require.Empty(t, f.store.AccessToken())
	require.Equal(t, 1, f.events.Len())
	require.Equal(t, gateway.EventSessionExpired, f.events.events[0].Type)
	require.Len(t, seen, 1)
}

func TestGateway_RefreshFailureClearsCredentials(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.refresher.token = nil
	f.refresher.err = errors.NewStatusError(http.StatusUnauthorized, "invalid refresh token")
	f.store.SetAccessToken("A0")
	require.NoError(t, f.store.SetRefreshToken(ctx, "R0", time.Hour))

	var seen []string
	var mu sync.Mutex
	srv := httptest.NewServer(acceptOnly("A1", &seen, &mu))
	defer srv.Close()

	_, err := get(t, f.gateway, srv.URL)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrSessionExpired))
	require.True(t, errors.Is(err, errors.ErrRefreshFailed))

	require.Empty(t, f.store.AccessToken())
	rt, err := f.store.RefreshToken(ctx)
	require.NoError(t, err)
	require.Empty(t, rt)
	require.Equal(t, 1, f.events.Len())

	t.Run("late arrival reuses the failure", func(t *testing.T) {
		_, err := get(t, f.gateway, srv.URL)
		require.True(t, errors.Is(err, errors.ErrSessionExpired))
		require.Len(t, f.refresher.Calls(), 1)
		require.Equal(t, 1, f.events.Len())
	})

	t.Run("new login starts a new episode", func(t *testing.T) {
		f.refresher.err = nil
		f.refresher.token = &oauth2.Token{AccessToken: "A1", RefreshToken: "R1"}
		f.store.SetAccessToken("A-stale")
		require.NoError(t, f.store.SetRefreshToken(ctx, "R2", time.Hour))

		resp, err := get(t, f.gateway, srv.URL)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, []string{"R0", "R2"}, f.refresher.Calls())
	})
}

func TestGateway_NewRefreshTokenAfterFailure(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.refresher.token = nil
	f.refresher.err = errors.NewStatusError(http.StatusUnauthorized, "invalid refresh token")
	require.NoError(t, f.store.SetRefreshToken(ctx, "R0", time.Hour))

	var seen []string
	var mu sync.Mutex
	srv := httptest.NewServer(acceptOnly("A1", &seen, &mu))
	defer srv.Close()

	_, err := get(t, f.gateway, srv.URL)
	require.True(t, errors.Is(err, errors.ErrSessionExpired))
	require.Equal(t, 1, f.events.Len())

	// another process signs in and persists a refresh token; the access
	// token in this process stays empty
	f.refresher.err = nil
	f.refresher.token = &oauth2.Token{AccessToken: "A1", RefreshToken: "R3"}
	require.NoError(t, f.store.SetRefreshToken(ctx, "R2", time.Hour))

	resp, err := get(t, f.gateway, srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"R0", "R2"}, f.refresher.Calls())
	require.Equal(t, 1, f.events.Len())

	rt, err := f.store.RefreshToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "R3", rt)
}

func TestGateway_LogoutDuringRefreshWins(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.refresher.hold()
	f.store.SetAccessToken("A0")
	require.NoError(t, f.store.SetRefreshToken(ctx, "R0", time.Hour))

	var seen []string
	var mu sync.Mutex
	srv := httptest.NewServer(acceptOnly("A1", &seen, &mu))
	defer srv.Close()

	done := make(chan error, 1)
	go func() {
		resp, err := get(t, f.gateway, srv.URL)
		if resp != nil {
			resp.Body.Close()
		}
		done <- err
	}()

	<-f.refresher.entered
	require.NoError(t, f.store.ClearTokens(ctx))
	close(f.refresher.release)

	err := <-done
	require.True(t, errors.Is(err, errors.ErrSessionExpired))
	require.True(t, errors.Is(err, errors.ErrNotAuthenticated))

	require.Empty(t, f.store.AccessToken())
	rt, err := f.store.RefreshToken(ctx)
	require.NoError(t, err)
	require.Empty(t, rt)
	require.Zero(t, f.events.Len())
}

func TestGateway_CancelledCallerStopsWaiting(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.refresher.hold()
	f.store.SetAccessToken("A0")
	require.NoError(t, f.store.SetRefreshToken(ctx, "R0", time.Hour))

	rejected := make(chan struct{}, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer A1" {
			w.WriteHeader(http.StatusUnauthorized)
			rejected <- struct{}{}
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	first := make(chan error, 1)
	go func() {
		resp, err := get(t, f.gateway, srv.URL)
		if resp != nil {
			resp.Body.Close()
		}
		first <- err
	}()
	<-f.refresher.entered

	callerCtx, cancel := context.WithCancel(ctx)
	second := make(chan error, 1)
	go func() {
		req, err := http.NewRequestWithContext(callerCtx, http.MethodGet, srv.URL, nil)
		if err != nil {
			second <- err
			return
		}
		resp, err := f.gateway.Do(req)
		if resp != nil {
			resp.Body.Close()
		}
		second <- err
	}()
	<-rejected
	<-rejected
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-second:
		require.True(t, errors.Is(err, errors.ErrTransport))
		require.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("cancelled caller still waiting on the refresh")
	}

	close(f.refresher.release)
	require.NoError(t, <-first)
	require.Equal(t, []string{"R0"}, f.refresher.Calls())
	require.Equal(t, "A1", f.store.AccessToken())
}

func TestGateway_QuietContextSkipsEvent(t *testing.T) {
	f := setupTestFixture(t)
	f.store.SetAccessToken("A0")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	req, err := http.NewRequestWithContext(gateway.WithoutSessionEvents(context.Background()), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	_, err = f.gateway.Do(req)
	require.True(t, errors.Is(err, errors.ErrSessionExpired))
	require.True(t, errors.Is(err, errors.ErrNoRefreshToken))
	require.Empty(t, f.store.AccessToken())
	require.Zero(t, f.events.Len())
}

func TestGateway_ConcurrentUnauthorized(t *testing.T) {
	const n = 5
	ctx := context.Background()
	f := setupTestFixture(t)
	f.refresher.delay = 20 * time.Millisecond
	f.store.SetAccessToken("A0")
	require.NoError(t, f.store.SetRefreshToken(ctx, "R0", time.Hour))

	var arrived sync.WaitGroup
	arrived.Add(n)
	var mu sync.Mutex
	var retried []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "Bearer A0" {
			// Hold every first attempt until all of them have arrived
			arrived.Done()
			arrived.Wait()
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mu.Lock()
		retried = append(retried, auth)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var wg sync.WaitGroup
	statuses := make([]int, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := get(t, f.gateway, srv.URL)
			errs[i] = err
			if resp != nil {
				statuses[i] = resp.StatusCode
				resp.Body.Close()
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, http.StatusOK, statuses[i])
	}
	require.Equal(t, []string{"R0"}, f.refresher.Calls())
	require.Len(t, retried, n)
	for _, auth := range retried {
		require.Equal(t, "Bearer A1", auth)
	}
	require.Zero(t, f.events.Len())
}

func TestGateway_ConcurrentFailureEmitsOnce(t *testing.T) {
	const n = 5
	f := setupTestFixture(t)
	f.store.SetAccessToken("A0")

	var arrived sync.WaitGroup
	arrived.Add(n)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrived.Done()
		arrived.Wait()
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = get(t, f.gateway, srv.URL)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.True(t, errors.Is(err, errors.ErrSessionExpired))
	}
	require.Empty(t, f.refresher.Calls())
	require.Equal(t, 1, f.events.Len())
}

func TestGateway_TransportErrorNotRetried(t *testing.T) {
	f := setupTestFixture(t, gateway.WithBase(gateway.DoerFunc(func(*http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})))
	f.store.SetAccessToken("A0")

	_, err := get(t, f.gateway, "http://backend.invalid/api/v1/users/me")
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrTransport))
	require.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	require.Empty(t, f.refresher.Calls())
	require.Equal(t, "A0", f.store.AccessToken())
}

func TestGateway_TimeoutIsTransportError(t *testing.T) {
	f := setupTestFixture(t, gateway.WithTimeout(50*time.Millisecond))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := get(t, f.gateway, srv.URL)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrTransport))
	require.Empty(t, f.refresher.Calls())
}

func TestGateway_ReplaysBody(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.store.SetAccessToken("A0")
	require.NoError(t, f.store.SetRefreshToken(ctx, "R0", time.Hour))

	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(data))
		if r.Header.Get("Authorization") != "Bearer A1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	payload := `{"name":"React Fundamentals","code":"RF101"}`
	// A plain reader has no GetBody, so the gateway has to buffer it
	req, err := http.NewRequest(http.MethodPost, srv.URL, io.NopCloser(strings.NewReader(payload)))
	require.NoError(t, err)

	resp, err := f.gateway.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, []string{payload, payload}, bodies)
}

func TestGateway_Client(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.store.SetAccessToken("A0")
	require.NoError(t, f.store.SetRefreshToken(ctx, "R0", time.Hour))

	var seen []string
	var mu sync.Mutex
	srv := httptest.NewServer(acceptOnly("A1", &seen, &mu))
	defer srv.Close()

	resp, err := f.gateway.Client().Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "A1", f.store.AccessToken())
}

func TestGateway_RequestID(t *testing.T) {
	f := setupTestFixture(t)

	var ids []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, r.Header.Get(gateway.HeaderRequestID))
	}))
	defer srv.Close()

	resp, err := get(t, f.gateway, srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set(gateway.HeaderRequestID, "caller-id")
	resp, err = f.gateway.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Len(t, ids, 2)
	require.NotEmpty(t, ids[0])
	require.Equal(t, "caller-id", ids[1])
}
