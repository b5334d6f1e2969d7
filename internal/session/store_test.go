package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	store, err := NewStore(NewMemStore(), nil)
	require.NoError(t, err)

	require.NoError(t, store.SetToken("tok_1"))
	assert.Equal(t, "tok_1", store.Token())
	assert.True(t, store.IsLoggedIn())

	require.NoError(t, store.Clear())
	assert.Equal(t, "", store.Token())
	assert.False(t, store.IsLoggedIn())
}

func TestInitialTokenReadOnce(t *testing.T) {
	persist := NewMemStore()
	require.NoError(t, persist.Save("stored_tok"))

	store, err := NewStore(persist, nil)
	require.NoError(t, err)
	assert.True(t, store.IsLoggedIn())
	assert.Equal(t, "stored_tok", store.Token())
}

func TestSetTokenWritesThrough(t *testing.T) {
	persist := NewMemStore()
	store, err := NewStore(persist, nil)
	require.NoError(t, err)

	require.NoError(t, store.SetToken("tok_2"))
	stored, err := persist.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok_2", stored)

	require.NoError(t, store.Clear())
	stored, err = persist.Load()
	require.NoError(t, err)
	assert.Equal(t, "", stored)
}

func TestObserversSeeConsistentStatus(t *testing.T) {
	store, err := NewStore(NewMemStore(), nil)
	require.NoError(t, err)

	var seen []bool
	store.Subscribe(func(loggedIn bool) {
		seen = append(seen, loggedIn)
		// The store is readable from inside an observer.
		assert.Equal(t, loggedIn, store.IsLoggedIn())
	})

	require.NoError(t, store.SetToken("tok"))
	require.NoError(t, store.Clear())
	assert.Equal(t, []bool{true, false}, seen)
}

type failingStore struct{ MemStore }

func (f *failingStore) Save(string) error { return assert.AnError }

func TestPersistFailureLeavesMemoryUnchanged(t *testing.T) {
	store, err := NewStore(&failingStore{}, nil)
	require.NoError(t, err)

	notified := false
	store.Subscribe(func(bool) { notified = true })

	require.Error(t, store.SetToken("tok"))
	assert.False(t, store.IsLoggedIn())
	assert.False(t, notified)
}
