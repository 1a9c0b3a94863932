package authgate

import (
	"net/http"
	"time"

	"github.com/goliatone/go-router"
)

// snapshotWaitTimeout bounds how long a request blocks on the initial
// auth state resolution.
const snapshotWaitTimeout = 3 * time.Second

// RouteGuard applies access decisions to incoming requests. It reads the
// aggregator's snapshot, runs the evaluator against the route's
// requirement, and translates the decision into pass, redirect, or a
// bounded wait.
type RouteGuard struct {
	evaluator   *Evaluator
	state       *Aggregator
	logger      Logger
	waitTimeout time.Duration
}

func NewRouteGuard(evaluator *Evaluator, state *Aggregator) *RouteGuard {
	return &RouteGuard{
		evaluator:   evaluator,
		state:       state,
		logger:      defLogger{},
		waitTimeout: snapshotWaitTimeout,
	}
}

func (g *RouteGuard) WithLogger(l Logger) *RouteGuard {
	if l != nil {
		g.logger = l
	}
	return g
}

func (g *RouteGuard) WithWaitTimeout(d time.Duration) *RouteGuard {
	if d > 0 {
		g.waitTimeout = d
	}
	return g
}

// Protect returns middleware enforcing the given requirement. A loading
// snapshot blocks up to the wait timeout; if state never resolves the
// request is treated as unauthenticated rather than admitted.
func (g *RouteGuard) Protect(req RouteRequirement) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			snap := g.awaitSnapshot()

			decision := g.evaluator.Evaluate(snap, req, c.OriginalURL())
			if decision.Action == ActionWait {
				// wait timed out and state is still unresolved
				snap = Unauthenticated()
				decision = g.evaluator.Evaluate(snap, req, c.OriginalURL())
			}

			switch decision.Action {
			case ActionRedirect:
				g.logger.Info(
					"access denied, redirecting",
					"path", c.OriginalURL(),
					"target", decision.Target,
					"authenticated", snap.IsAuthenticated,
				)
				return c.Redirect(decision.Target, redirectStatus(c))
			default:
				return hf(c)
			}
		}
	}
}

// awaitSnapshot returns the current snapshot, blocking while the
// aggregator is still loading.
func (g *RouteGuard) awaitSnapshot() Snapshot {
	snap := g.state.Snapshot()
	if !snap.IsLoading {
		return snap
	}

	resolved := make(chan Snapshot, 1)
	unsub := g.state.Subscribe(func(s Snapshot) {
		if !s.IsLoading {
			select {
			case resolved <- s:
			default:
			}
		}
	})
	defer unsub()

	select {
	case s := <-resolved:
		return s
	case <-time.After(g.waitTimeout):
		g.logger.Warn("auth state did not resolve before timeout")
		return g.state.Snapshot()
	}
}

func redirectStatus(c router.Context) int {
	if c.Method() == string(router.GET) {
		return http.StatusFound
	}
	return http.StatusSeeOther
}
