// Package nav gates movement between views and carries one-shot state
// between them.
package nav

import (
	"fmt"
	"sync"

	"github.com/clinicbook/clinicbook-go/pkg/logging"
)

// Well-known route names.
const (
	RouteHome         = "home"
	RouteLogin        = "login"
	RouteRegister     = "register"
	RouteDoctors      = "doctors"
	RouteDoctorDetail = "doctor_detail"
	RouteConfirmation = "confirmation"
)

// Route is a navigation target.
type Route struct {
	Name         string
	Path         string
	RequiresAuth bool
}

// LoginStatus reports whether the user is currently authenticated.
// session.Store satisfies this.
type LoginStatus interface {
	IsLoggedIn() bool
}

// Decision is the guard's verdict for one navigation attempt.
type Decision struct {
	Allow      bool
	RedirectTo string // route name, set when !Allow
}

// Guard decides whether the current session may enter a route. It is
// evaluated synchronously before the target view mounts and never mutates
// session state. Navigating to the login view while already logged in is
// allowed; redirecting away from it is view policy, not the guard's.
type Guard struct {
	status LoginStatus
}

func NewGuard(status LoginStatus) *Guard {
	return &Guard{status: status}
}

func (g *Guard) Check(route Route) Decision {
	if route.RequiresAuth && !g.status.IsLoggedIn() {
		return Decision{Allow: false, RedirectTo: RouteLogin}
	}
	return Decision{Allow: true}
}

// Navigator dispatches guarded navigation and hands transient state to the
// next view. State is one-shot: it is consumed by the first TakeState and is
// never persisted or encoded in a URL.
type Navigator struct {
	guard  *Guard
	logger *logging.Logger

	mu      sync.Mutex
	routes  map[string]Route
	current Route
	state   any
}

func NewNavigator(guard *Guard, logger *logging.Logger, routes ...Route) *Navigator {
	if logger == nil {
		logger = logging.Default()
	}
	n := &Navigator{
		guard:  guard,
		logger: logger,
		routes: make(map[string]Route, len(routes)),
	}
	for _, r := range routes {
		n.routes[r.Name] = r
	}
	return n
}

// DefaultRoutes is the application's route table.
func DefaultRoutes() []Route {
	return []Route{
		{Name: RouteHome, Path: "/"},
		{Name: RouteLogin, Path: "/login"},
		{Name: RouteRegister, Path: "/register"},
		{Name: RouteDoctors, Path: "/doctors", RequiresAuth: true},
		{Name: RouteDoctorDetail, Path: "/doctors/{id}", RequiresAuth: true},
		{Name: RouteConfirmation, Path: "/booking/confirmation", RequiresAuth: true},
	}
}

// Go navigates to the named route, carrying state for the target view. When
// the guard denies entry the navigator lands on the redirect target instead
// and the state is dropped, since it was meant for the denied view.
func (n *Navigator) Go(name string, state any) (Route, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	route, ok := n.routes[name]
	if !ok {
		return Route{}, fmt.Errorf("nav: unknown route %q", name)
	}

	decision := n.guard.Check(route)
	if !decision.Allow {
		redirect := n.routes[decision.RedirectTo]
		n.logger.Debug("navigation redirected", "from", name, "to", redirect.Name)
		n.current = redirect
		n.state = nil
		return redirect, nil
	}

	n.current = route
	n.state = state
	return route, nil
}

// Current returns the route the navigator last landed on.
func (n *Navigator) Current() Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// TakeState returns the state carried by the last navigation, exactly once.
// A second call, or a navigation that carried nothing, returns (nil, false);
// views reached without a handoff must handle that defensively.
func (n *Navigator) TakeState() (any, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state == nil {
		return nil, false
	}
	state := n.state
	n.state = nil
	return state, true
}
