package authgate

import (
	"context"
	"sync"
	"time"
)

const (
	profileFetchTimeout = 5 * time.Second
	profileFetchRetries = 1
)

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

func WithAggregatorLogger(l Logger) AggregatorOption {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithProfileFetchTimeout bounds each profile lookup triggered by a
// session change.
func WithProfileFetchTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.fetchTimeout = d
		}
	}
}

// Aggregator folds identity session state and profile data into a single
// Snapshot. Snapshots are replaced atomically: readers never observe a
// session paired with the previous user's profile.
type Aggregator struct {
	identity     IdentityClient
	profiles     ProfileStore
	logger       Logger
	fetchTimeout time.Duration

	mu       sync.RWMutex
	snapshot Snapshot
	epoch    uint64
	unsub    Unsubscribe
	started  bool

	listenerMu sync.Mutex
	listeners  map[int]func(Snapshot)
	nextID     int
}

func NewAggregator(identity IdentityClient, profiles ProfileStore, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		identity:     identity,
		profiles:     profiles,
		logger:       defLogger{},
		fetchTimeout: profileFetchTimeout,
		snapshot:     LoadingSnapshot(),
		listeners:    map[int]func(Snapshot){},
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Start subscribes to session changes and resolves the initial snapshot.
// Until the first resolution completes, Snapshot() reports loading.
func (a *Aggregator) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = true
	a.mu.Unlock()

	a.unsub = a.identity.OnSessionChange(func(event SessionEvent) {
		a.apply(ctx, event.Session)
	})

	session, err := a.identity.CurrentSession(ctx)
	if err != nil {
		// fail open on the auth side: surface signed-out rather than block
		a.logger.Error("failed to resolve initial session", "error", err)
		a.apply(ctx, nil)
		return nil
	}

	a.apply(ctx, session)
	return nil
}

// Stop detaches from the identity client. The last snapshot stays readable.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	unsub := a.unsub
	a.unsub = nil
	a.started = false
	a.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Snapshot returns the current auth state. Always safe to call.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// Subscribe registers a listener invoked with every published snapshot.
// The listener immediately receives the current snapshot.
func (a *Aggregator) Subscribe(fn func(Snapshot)) Unsubscribe {
	a.listenerMu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.listenerMu.Unlock()

	fn(a.Snapshot())

	var once sync.Once
	return func() {
		once.Do(func() {
			a.listenerMu.Lock()
			delete(a.listeners, id)
			a.listenerMu.Unlock()
		})
	}
}

// Refresh re-reads the profile for the current session, e.g. after
// onboarding completes or a role changes.
func (a *Aggregator) Refresh(ctx context.Context) {
	session, err := a.identity.CurrentSession(ctx)
	if err != nil {
		a.logger.Error("failed to resolve session on refresh", "error", err)
		return
	}
	a.apply(ctx, session)
}

// apply resolves the snapshot for the given session. The epoch guard
// discards profile results that arrive after a newer session change.
func (a *Aggregator) apply(ctx context.Context, session Session) {
	a.mu.Lock()
	a.epoch++
	epoch := a.epoch
	a.mu.Unlock()

	if session == nil {
		a.publish(epoch, Unauthenticated())
		return
	}

	next := Snapshot{
		IsAuthenticated:  true,
		IsEmailConfirmed: session.IsEmailConfirmed(),
		UserID:           session.GetUserID(),
	}

	profile, err := a.fetchProfile(ctx, session.GetUserID())
	if err != nil {
		// fail closed on the profile side: authenticated but with no
		// role and onboarding incomplete until the store recovers
		a.logger.Error("profile fetch failed, degrading snapshot",
			"error", err,
			"user_id", session.GetUserID(),
		)
	} else if profile != nil {
		next.Role = profile.Role
		next.IsOnboardingCompleted = profile.OnboardingCompleted
	}

	a.publish(epoch, next.Normalize())
}

func (a *Aggregator) fetchProfile(ctx context.Context, userID string) (*Profile, error) {
	var lastErr error

	for attempt := 0; attempt <= profileFetchRetries; attempt++ {
		fetchCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
		profile, err := a.profiles.GetProfile(fetchCtx, userID)
		cancel()

		if err == nil {
			return profile, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	return nil, lastErr
}

// publish installs the snapshot if it is still current and notifies
// listeners outside the lock.
func (a *Aggregator) publish(epoch uint64, snap Snapshot) {
	a.mu.Lock()
	if epoch != a.epoch {
		a.mu.Unlock()
		a.logger.Debug("discarding stale snapshot", "epoch", epoch)
		return
	}
	a.snapshot = snap
	a.mu.Unlock()

	a.listenerMu.Lock()
	fns := make([]func(Snapshot), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.listenerMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
