// Package session is the process-wide authority on "who is logged in".
// It composes the token slot, the TTL'd user cache and the identity client,
// and broadcasts a change signal whenever the answer may have moved.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lockerroom/lockerroom/internal/api"
	"github.com/lockerroom/lockerroom/internal/cache"
	"github.com/lockerroom/lockerroom/internal/domain/user"
	"github.com/lockerroom/lockerroom/internal/notify"
	"github.com/lockerroom/lockerroom/internal/observability"
	"github.com/lockerroom/lockerroom/internal/storage"
)

type State int

const (
	Anonymous State = iota
	Authenticated
	Indeterminate
)

// IdentityClient is the slice of the HTTP client the facade needs. Kept as
// an interface so tests can fake it.
type IdentityClient interface {
	FetchCurrentUser(ctx context.Context, token string) api.FetchResult
	Login(ctx context.Context, email, password string) (api.LoginResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (api.LoginResponse, error)
	ExpireAuthCookies()
}

// Hooks are the view-layer escape hatches the facade triggers but does not
// implement: the forced restart after logout and the redirect-to-login on a
// deactivated account.
type Hooks struct {
	Reload        func(landingURL string)
	RedirectLogin func(reason string)
}

type Options struct {
	Durable storage.Store
	Session storage.Store // session-scoped store; in-memory when nil
	Client  IdentityClient
	Queries *cache.Cache    // fresh cache when nil
	Bus     *notify.Bus     // private bus when nil
	Watcher *notify.Watcher // optional; resynced after our own writes
	Log     *slog.Logger
	Prom    *observability.Prom // optional
	TTL     time.Duration
	Landing string
	Hooks   Hooks
}

type Facade struct {
	durable  storage.Store
	sessions storage.Store
	tokens   *TokenStore
	users    *UserCache
	client   IdentityClient
	queries  *cache.Cache
	bus      *notify.Bus
	watcher  *notify.Watcher
	log      *slog.Logger
	prom     *observability.Prom
	landing  string
	hooks    Hooks
	nowMilli func() int64
}

func New(opts Options) *Facade {
	if opts.Session == nil {
		opts.Session = storage.NewMemory()
	}

	if opts.Landing == "" {
		opts.Landing = "/login"
	}

	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	if opts.Queries == nil {
		opts.Queries = cache.New(0)
	}

	if opts.Bus == nil {
		opts.Bus = notify.NewBus(opts.Log)
	}

	return &Facade{
		durable:  opts.Durable,
		sessions: opts.Session,
		tokens:   NewTokenStore(opts.Durable),
		users:    NewUserCache(opts.Durable, opts.TTL),
		client:   opts.Client,
		queries:  opts.Queries,
		bus:      opts.Bus,
		watcher:  opts.Watcher,
		log:      opts.Log,
		prom:     opts.Prom,
		landing:  opts.Landing,
		hooks:    opts.Hooks,
		nowMilli: func() int64 { return time.Now().UnixMilli() },
	}
}

// State derives the session state without touching the network: optimistic
// Authenticated on a fresh cache, Indeterminate when only a token exists.
func (f *Facade) State() State {
	if _, ok := f.tokens.Get(); !ok {
		return Anonymous
	}

	if _, age, ok := f.users.Read(); ok && f.users.IsFresh(age) {
		return Authenticated
	}

	return Indeterminate
}

// Login authenticates and installs the returned identity. The query cache
// is flushed BEFORE the new token/user are persisted, closing the window
// where another identity's cached data could flash under the new one.
func (f *Facade) Login(ctx context.Context, email, password string) (user.User, bool, error) {
	resp, err := f.client.Login(ctx, email, password)

	if err != nil {
		return user.User{}, false, loginError(err, "Login failed")
	}

	merged := user.MergeProfile(resp.User, resp.Profile)
	f.installIdentity(resp.Token, merged)

	f.log.Info("login", "user", merged.ID, "role", merged.Role)

	return merged, resp.RequiresPasswordReset || merged.RequiresPasswordReset, nil
}

// Register mirrors Login against the signup endpoint, with the same
// flush-before-persist ordering and the same broadcast.
func (f *Facade) Register(ctx context.Context, req api.RegisterRequest) (user.User, bool, error) {
	resp, err := f.client.Register(ctx, req)

	if err != nil {
		return user.User{}, false, loginError(err, "Registration failed")
	}

	merged := user.MergeProfile(resp.User, resp.Profile)
	f.installIdentity(resp.Token, merged)

	f.log.Info("register", "user", merged.ID, "role", merged.Role)

	return merged, resp.RequiresPasswordReset || merged.RequiresPasswordReset, nil
}

// Logout tears the whole local session down and asks the view layer to
// restart itself. Every step clears-if-present, so concurrent or repeated
// logouts are harmless.
func (f *Facade) Logout() {
	f.queries.Flush()

	// broad sweep: the known keys plus anything auth-prefixed written by
	// other parts of the app
	f.durable.Remove(KeyToken)
	f.durable.Remove(KeySchoolID)

	for _, key := range f.durable.Keys() {
		if hasAuthPrefix(key) {
			f.durable.Remove(key)
		}
	}

	f.sessions.Clear()
	f.client.ExpireAuthCookies()

	f.broadcast()

	if f.hooks.Reload != nil {
		f.hooks.Reload(fmt.Sprintf("%s?loggedOut=true&_ts=%d", f.landing, f.nowMilli()))
	}

	f.log.Info("logout complete")
}

// CurrentUser answers "who is logged in", serving a fresh cache without any
// network traffic and falling back to a stale cache when the server cannot
// be reached.
func (f *Facade) CurrentUser(ctx context.Context) (user.User, bool) {
	token, ok := f.tokens.Get()

	if !ok {
		// a cached record without a token is never trusted
		f.users.Clear()
		return user.User{}, false
	}

	cached, age, haveCache := f.users.Read()

	if haveCache && f.users.IsFresh(age) {
		f.countCache("fresh")
		return cached, true
	}

	if haveCache {
		f.countCache("stale")
	} else {
		f.countCache("miss")
	}

	res := f.client.FetchCurrentUser(ctx, token)

	switch res.Kind {
	case api.FetchOK:
		f.users.Write(res.User)
		return res.User, true

	case api.FetchUnauthorized:
		f.teardown()
		return user.User{}, false

	case api.FetchForbiddenDeactivated:
		f.teardown()

		if f.hooks.RedirectLogin != nil {
			f.hooks.RedirectLogin(res.Message)
		}

		return user.User{}, false

	case api.FetchForbidden:
		f.teardown()
		return user.User{}, false

	default: // api.FetchTransient
		if haveCache {
			// better a possibly-stale identity than forcing a logout
			return cached, true
		}

		return user.User{}, false
	}
}

// IsAuthenticated is a cheap synchronous check for UI gating only: token
// presence, nothing more. It is not a security boundary.
func (f *Facade) IsAuthenticated() bool {
	_, ok := f.tokens.Get()

	return ok
}

// HasRole reads the cached record synchronously. UI affordance only; the
// server re-checks authorization on every privileged request.
func (f *Facade) HasRole(role string) bool {
	if !f.IsAuthenticated() {
		return false
	}

	u, _, ok := f.users.Read()

	return ok && u.Role == role
}

func (f *Facade) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if f.HasRole(role) {
			return true
		}
	}

	return false
}

// UpdateUser replaces the cached identity wholesale (optimistic UI patch,
// e.g. right after a profile edit) and broadcasts. A nil user clears the
// cache instead.
func (f *Facade) UpdateUser(u *user.User) {
	if u == nil {
		f.users.Clear()
	} else {
		f.users.Write(*u)
	}

	f.broadcast()
}

// ReadCached exposes the raw cache read for the view binder's first paint.
func (f *Facade) ReadCached() (user.User, time.Duration, bool) {
	return f.users.Read()
}

// IsFresh reports whether an age from ReadCached is inside the TTL.
func (f *Facade) IsFresh(age time.Duration) bool {
	return f.users.IsFresh(age)
}

func (f *Facade) installIdentity(token string, u user.User) {
	f.queries.Flush()

	f.tokens.Set(token)
	f.users.Write(u)

	if u.SchoolID != "" {
		f.durable.Set(KeySchoolID, u.SchoolID)
	}

	f.broadcast()
}

// teardown clears the local session silently (no reload, no broadcast):
// other tabs learn of it through the storage change itself.
func (f *Facade) teardown() {
	f.durable.Remove(KeyToken)
	f.durable.Remove(KeySchoolID)

	for _, key := range f.durable.Keys() {
		if hasAuthPrefix(key) {
			f.durable.Remove(key)
		}
	}

	f.sessions.Clear()

	f.bumpRev()

	if f.watcher != nil {
		f.watcher.Resync()
	}
}

func (f *Facade) broadcast() {
	f.bumpRev()

	if f.watcher != nil {
		// our own write must not echo back as a remote change
		f.watcher.Resync()
	}

	if f.prom != nil {
		f.prom.SessionChanges.Inc()
	}

	f.bus.Publish()
}

// bumpRev stamps the revision key with a fresh nonce. Remote watchers diff
// between polls, so a set-then-remove that reverts the watched keys inside
// one interval still leaves a visible delta behind.
func (f *Facade) bumpRev() {
	f.durable.Set(KeySessionRev, uuid.NewString())
}

func (f *Facade) countCache(result string) {
	if f.prom != nil {
		f.prom.CacheLookups.WithLabelValues(result).Inc()
	}
}

func hasAuthPrefix(key string) bool {
	return len(key) >= len(authKeyPrefix) && key[:len(authKeyPrefix)] == authKeyPrefix
}

// loginError converts a client error into the user-facing taxonomy: the
// server's structured message verbatim, or the generic fallback when the
// body had none (or the failure was network-level).
func loginError(err error, fallback string) error {
	var reqErr *api.RequestError

	if errors.As(err, &reqErr) {
		msg := reqErr.Message

		if msg == "" {
			msg = fallback
		}

		return &AuthError{Kind: KindInvalidCredentials, Message: msg, Err: err}
	}

	return &AuthError{Kind: KindTransient, Message: fallback, Err: err}
}
