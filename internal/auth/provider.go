package auth

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tubetrack/internal/kv"
	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/shared"
)

// State is the provider's view of the session. UserID is empty for a guest.
type State struct {
	UserID    string
	IsLoading bool
}

// Guest reports whether nobody is signed in.
func (s State) Guest() bool { return s.UserID == "" }

// Provider is the source of sign-in state.
type Provider interface {
	Current() State
	Identity() (models.Identity, bool)
	// Watch calls fn with the current state and on every change until the returned func is called.
	Watch(fn func(State)) func()
}

// SessionProvider is a [Provider] backed by the on-device store.
type SessionProvider struct {
	store  kv.Store
	logger *log.Logger

	mu       sync.Mutex
	identity *models.Identity
	loading  bool
	watchers map[int]func(State)
	next     int
}

// NewSessionProvider creates a provider that reports loading until [SessionProvider.Load].
func NewSessionProvider(store kv.Store, logger *log.Logger) *SessionProvider {
	return &SessionProvider{
		store:    store,
		logger:   logger,
		loading:  true,
		watchers: make(map[int]func(State)),
	}
}

// Load restores a persisted session. An unreadable record is discarded and the user is a guest.
func (p *SessionProvider) Load() error {
	raw, ok, err := p.store.Get(kv.KeyAuthIdentity)
	if err != nil {
		p.set(nil, false)
		return fmt.Errorf("%w: %v", shared.ErrLocalRead, err)
	}

	var id *models.Identity
	if ok {
		var decoded models.Identity
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil || decoded.UserID == "" {
			p.logger.Warn("discarding unreadable session", "err", &shared.LocalReadError{Key: kv.KeyAuthIdentity, Err: err})
			_ = p.store.Remove(kv.KeyAuthIdentity)
		} else {
			id = &decoded
		}
	}
	p.set(id, false)
	return nil
}

// SignIn persists id and announces it.
func (p *SessionProvider) SignIn(id models.Identity) error {
	if strings.TrimSpace(id.UserID) == "" || id.UserID == models.GuestOwner {
		return fmt.Errorf("%w: user id %q", shared.ErrInvalidArgument, id.UserID)
	}
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	if err := p.store.Set(kv.KeyAuthIdentity, string(data)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrLocalWrite, err)
	}
	p.logger.Info("signed in", "user", id.UserID, "email", id.Email)
	p.set(&id, false)
	return nil
}

// SignOut forgets the session. Signing out as a guest is a no-op.
func (p *SessionProvider) SignOut() error {
	if err := p.store.Remove(kv.KeyAuthIdentity); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrLocalWrite, err)
	}
	if prev, ok := p.Identity(); ok {
		p.logger.Info("signed out", "user", prev.UserID)
	}
	p.set(nil, false)
	return nil
}

func (p *SessionProvider) Current() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

func (p *SessionProvider) Identity() (models.Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.identity == nil {
		return models.Identity{}, false
	}
	return *p.identity, true
}

func (p *SessionProvider) Watch(fn func(State)) func() {
	p.mu.Lock()
	id := p.next
	p.next++
	p.watchers[id] = fn
	s := p.stateLocked()
	p.mu.Unlock()

	fn(s)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.watchers, id)
			p.mu.Unlock()
		})
	}
}

func (p *SessionProvider) stateLocked() State {
	s := State{IsLoading: p.loading}
	if p.identity != nil {
		s.UserID = p.identity.UserID
	}
	return s
}

func (p *SessionProvider) set(id *models.Identity, loading bool) {
	p.mu.Lock()
	p.identity = id
	p.loading = loading
	s := p.stateLocked()
	watchers := make([]func(State), 0, len(p.watchers))
	for _, fn := range p.watchers {
		watchers = append(watchers, fn)
	}
	p.mu.Unlock()

	for _, fn := range watchers {
		fn(s)
	}
}
