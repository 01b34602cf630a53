// Package identity models who is using the app: signed out, a guest, or an
// authenticated user handed back by an identity provider.
package identity

import (
	"context"
	"errors"
	"sync"
)

// ErrNoAccount is returned by providers that have no account to sign in.
var ErrNoAccount = errors.New("identity: no account configured")

// Handle identifies an authenticated user.
type Handle struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Kind is the session state.
type Kind string

// Session kinds.
const (
	SignedOut     Kind = "signedOut"
	Guest         Kind = "guest"
	Authenticated Kind = "authenticated"
)

// Session is the transient identity state. It is never persisted.
type Session struct {
	Kind Kind    `json:"kind"`
	User *Handle `json:"user,omitempty"`
}

// Provider is the identity collaborator.
type Provider interface {
	// SignInInteractive runs the sign-in flow and returns the user.
	SignInInteractive(ctx context.Context) (Handle, error)
	// SignOut forgets the current user.
	SignOut()
	// CurrentUser returns the signed-in user, if any.
	CurrentUser() (Handle, bool)
	// Subscribe calls fn on every user change, nil meaning signed out,
	// until the returned function is called.
	Subscribe(fn func(*Handle)) (unsubscribe func())
}

// Local is a Provider backed by one preconfigured account. With a zero
// account every sign-in fails.
type Local struct {
	account Handle

	mu       sync.Mutex
	current  *Handle
	nextID   int
	watchers map[int]func(*Handle)
}

// NewLocal returns a provider that signs in as account.
func NewLocal(account Handle) *Local {
	return &Local{account: account, watchers: make(map[int]func(*Handle))}
}

// SignInInteractive signs in as the configured account.
func (l *Local) SignInInteractive(ctx context.Context) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}
	if l.account.ID == "" {
		return Handle{}, ErrNoAccount
	}
	h := l.account
	l.set(&h)
	return h, nil
}

// SignOut clears the current user.
func (l *Local) SignOut() {
	l.set(nil)
}

// CurrentUser returns the signed-in user.
func (l *Local) CurrentUser() (Handle, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return Handle{}, false
	}
	return *l.current, true
}

// Subscribe registers fn and immediately reports the current user.
func (l *Local) Subscribe(fn func(*Handle)) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.watchers[id] = fn
	cur := l.current
	l.mu.Unlock()

	fn(cur)
	return func() {
		l.mu.Lock()
		delete(l.watchers, id)
		l.mu.Unlock()
	}
}

func (l *Local) set(h *Handle) {
	l.mu.Lock()
	l.current = h
	fns := make([]func(*Handle), 0, len(l.watchers))
	for _, fn := range l.watchers {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(h)
	}
}

var _ Provider = (*Local)(nil)
