package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStatus bool

func (s fixedStatus) IsLoggedIn() bool { return bool(s) }

func TestGuardRedirectsProtectedWhenLoggedOut(t *testing.T) {
	guard := NewGuard(fixedStatus(false))

	d := guard.Check(Route{Name: RouteDoctors, RequiresAuth: true})
	assert.False(t, d.Allow)
	assert.Equal(t, RouteLogin, d.RedirectTo)
}

func TestGuardAllowsProtectedWhenLoggedIn(t *testing.T) {
	guard := NewGuard(fixedStatus(true))

	d := guard.Check(Route{Name: RouteDoctors, RequiresAuth: true})
	assert.True(t, d.Allow)
}

func TestGuardAllowsPublicRoutes(t *testing.T) {
	guard := NewGuard(fixedStatus(false))

	assert.True(t, guard.Check(Route{Name: RouteHome}).Allow)
	assert.True(t, guard.Check(Route{Name: RouteLogin}).Allow)
}

func TestGuardDoesNotRedirectLoginWhenLoggedIn(t *testing.T) {
	guard := NewGuard(fixedStatus(true))

	// That policy belongs to the view, not the guard.
	d := guard.Check(Route{Name: RouteLogin})
	assert.True(t, d.Allow)
}

func TestNavigatorRedirectDropsState(t *testing.T) {
	n := NewNavigator(NewGuard(fixedStatus(false)), nil, DefaultRoutes()...)

	landed, err := n.Go(RouteConfirmation, "payload")
	require.NoError(t, err)
	assert.Equal(t, RouteLogin, landed.Name)

	_, ok := n.TakeState()
	assert.False(t, ok, "state meant for a denied view must not leak")
}

func TestNavigatorStateIsOneShot(t *testing.T) {
	n := NewNavigator(NewGuard(fixedStatus(true)), nil, DefaultRoutes()...)

	landed, err := n.Go(RouteConfirmation, "payload")
	require.NoError(t, err)
	assert.Equal(t, RouteConfirmation, landed.Name)

	state, ok := n.TakeState()
	require.True(t, ok)
	assert.Equal(t, "payload", state)

	_, ok = n.TakeState()
	assert.False(t, ok, "second take must find nothing")
}

func TestNavigatorDirectNavigationHasNoState(t *testing.T) {
	n := NewNavigator(NewGuard(fixedStatus(true)), nil, DefaultRoutes()...)

	_, err := n.Go(RouteConfirmation, nil)
	require.NoError(t, err)

	_, ok := n.TakeState()
	assert.False(t, ok)
}

func TestNavigatorUnknownRoute(t *testing.T) {
	n := NewNavigator(NewGuard(fixedStatus(true)), nil, DefaultRoutes()...)

	_, err := n.Go("nonexistent", nil)
	assert.Error(t, err)
}
