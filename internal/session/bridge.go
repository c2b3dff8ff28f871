// Package session bridges the auth provider's lifecycle events to the state
// stores. Sign-in and sign-out transitions drive store resets and rehydration
// with strict ordering so a freshly authenticated user never sees the
// previous guest's cart or addresses.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/mercadito-app/mercadito-backend/internal/address"
	"github.com/mercadito-app/mercadito-backend/internal/cart"
	"github.com/mercadito-app/mercadito-backend/pkg/logger"
)

// State names the bridge's position in the auth lifecycle.
type State string

const (
	// StateAnonymous is the initial state before the session fetch starts.
	StateAnonymous State = "anonymous"
	// StateAuthenticating covers the initial session fetch; live events are
	// buffered until it completes.
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateGuest          State = "guest"
)

// EventType is the kind of lifecycle event the auth provider emits.
type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventInitialSession EventType = "INITIAL_SESSION"
)

// Session identifies the authenticated user attached to an event.
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Event is one lifecycle notification, optionally carrying a session.
type Event struct {
	Type    EventType
	Session *Session
}

// Provider is the auth collaborator the bridge consumes.
type Provider interface {
	GetCurrentSession(ctx context.Context) (*Session, error)
	SignOut(ctx context.Context) error
}

// AddressFetcher loads a user's remote address collection into the local
// store after a guest-to-authenticated transition.
type AddressFetcher interface {
	FetchAddresses(ctx context.Context, userID string) ([]address.Address, error)
}

// Navigator performs the hard navigation triggered on sign-out. Hard, not a
// soft route change: every piece of in-memory state must be discarded.
type Navigator interface {
	Navigate(route string)
}

// transitions is the explicit state table. Whether INITIAL_SESSION lands in
// authenticated or guest depends on the event carrying a session; that choice
// is made in apply.
var transitions = map[State]map[EventType]State{
	StateGuest: {
		EventSignedIn:       StateAuthenticated,
		EventSignedOut:      StateGuest,
		EventInitialSession: StateAuthenticated,
	},
	StateAuthenticated: {
		EventSignedIn:       StateAuthenticated,
		EventSignedOut:      StateGuest,
		EventInitialSession: StateAuthenticated,
	},
}

// Bridge observes auth lifecycle events and keeps the address and cart stores
// consistent across session transitions.
type Bridge struct {
	mu      sync.Mutex
	state   State
	session *Session
	pending []Event

	provider  Provider
	addresses *address.Store
	cart      *cart.Store
	fetcher   AddressFetcher
	nav       Navigator
	landing   string
	logg      *logger.Logger
}

// Config wires a bridge instance.
type Config struct {
	Provider     Provider
	AddressStore *address.Store
	CartStore    *cart.Store
	Fetcher      AddressFetcher
	Navigator    Navigator
	LandingRoute string
	Logger       *logger.Logger
}

// NewBridge validates the wiring and returns a bridge in the anonymous state.
func NewBridge(cfg Config) (*Bridge, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("auth provider is required")
	}
	if cfg.AddressStore == nil {
		return nil, fmt.Errorf("address store is required")
	}
	if cfg.CartStore == nil {
		return nil, fmt.Errorf("cart store is required")
	}
	if cfg.Navigator == nil {
		return nil, fmt.Errorf("navigator is required")
	}
	if cfg.LandingRoute == "" {
		cfg.LandingRoute = "/"
	}
	return &Bridge{
		state:     StateAnonymous,
		provider:  cfg.Provider,
		addresses: cfg.AddressStore,
		cart:      cfg.CartStore,
		fetcher:   cfg.Fetcher,
		nav:       cfg.Navigator,
		landing:   cfg.LandingRoute,
		logg:      cfg.Logger,
	}, nil
}

// Start performs the initial session fetch. Until it returns, incoming events
// are buffered; they replay in order afterwards, which closes the race where
// a live event fires before the initial state is known.
func (b *Bridge) Start(ctx context.Context) {
	b.mu.Lock()
	b.state = StateAuthenticating
	b.mu.Unlock()

	sess, err := b.provider.GetCurrentSession(ctx)
	if err != nil {
		if b.logg != nil {
			b.logg.Error(ctx, "initial session fetch failed", err)
		}
		sess = nil
	}

	b.mu.Lock()
	b.session = sess
	if sess != nil {
		b.state = StateAuthenticated
	} else {
		b.state = StateGuest
	}
	buffered := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, ev := range buffered {
		b.HandleEvent(ctx, ev)
	}
}

// HandleEvent routes one lifecycle event through the transition table.
func (b *Bridge) HandleEvent(ctx context.Context, ev Event) {
	b.mu.Lock()
	if b.state == StateAnonymous || b.state == StateAuthenticating {
		b.pending = append(b.pending, ev)
		b.mu.Unlock()
		return
	}
	next, ok := transitions[b.state][ev.Type]
	if !ok {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	b.apply(ctx, ev, next)
}

func (b *Bridge) apply(ctx context.Context, ev Event, next State) {
	switch ev.Type {
	case EventSignedIn:
		b.handleSignedIn(ctx, ev)
	case EventSignedOut:
		b.handleSignedOut(ctx)
	case EventInitialSession:
		b.mu.Lock()
		if ev.Session != nil {
			b.session = ev.Session
			b.state = next
		}
		b.mu.Unlock()
	}
}

// handleSignedIn distinguishes a token refresh for the already-known user
// from a real guest-to-authenticated transition. The transition order is
// load-bearing: clear cart, purge guest storage, reset the address store,
// then fetch the user's own addresses.
func (b *Bridge) handleSignedIn(ctx context.Context, ev Event) {
	if ev.Session == nil {
		return
	}

	b.mu.Lock()
	known := b.session != nil && b.session.UserID == ev.Session.UserID
	b.session = ev.Session
	b.state = StateAuthenticated
	b.mu.Unlock()

	if known {
		return
	}

	b.cart.ClearCart(ctx)
	b.addresses.PurgeGuestStorage(ctx)
	b.addresses.ResetForNewUser(ctx)

	if b.fetcher == nil {
		return
	}
	list, err := b.fetcher.FetchAddresses(ctx, ev.Session.UserID)
	if err != nil {
		if b.logg != nil {
			b.logg.Error(b.logg.WithUserID(ctx, ev.Session.UserID), "address rehydration failed", err)
		}
		return
	}
	b.addresses.SetAddresses(ctx, list)
}

// handleSignedOut fully resets both stores, including the persisted guest
// slot, and triggers exactly one hard navigation to the landing route.
func (b *Bridge) handleSignedOut(ctx context.Context) {
	b.mu.Lock()
	b.session = nil
	b.state = StateGuest
	b.mu.Unlock()

	b.addresses.Reset(ctx)
	b.cart.Reset(ctx)
	b.nav.Navigate(b.landing)
}

// State reports the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// CurrentSession returns a copy of the adopted session, or nil.
func (b *Bridge) CurrentSession() *Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil
	}
	copied := *b.session
	return &copied
}

// Loading reports whether the initial session fetch is still in flight.
func (b *Bridge) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateAnonymous || b.state == StateAuthenticating
}

// IsGuest is always derived, never stored: not loading and no user.
func (b *Bridge) IsGuest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	loading := b.state == StateAnonymous || b.state == StateAuthenticating
	return !loading && b.session == nil
}
