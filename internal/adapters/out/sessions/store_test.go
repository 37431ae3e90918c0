package sessions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockcharts/collageview/internal/domain"
)

type fakeView struct {
	mu        sync.Mutex
	unmounted int
}

func (f *fakeView) State() domain.ViewState { return domain.LoadingState() }

func (f *fakeView) Wait(ctx context.Context) (domain.ViewState, error) {
	return f.State(), nil
}

func (f *fakeView) Unmount() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unmounted++
}

func (f *fakeView) unmountCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unmounted
}

func TestMemoryStore_AddTake(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	view := &fakeView{}

	id, err := store.Add(view)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, store.Count())

	got, err := store.Take(id)
	require.NoError(t, err)
	assert.Same(t, view, got)
	assert.Equal(t, 0, store.Count())

	// Taking hands ownership to the caller; the store must not unmount.
	assert.Equal(t, 0, view.unmountCount())

	_, err = store.Take(id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemoryStore_TakeUnknown(t *testing.T) {
	store := NewMemoryStore(time.Minute)

	_, err := store.Take("does-not-exist")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemoryStore_UniqueIDs(t *testing.T) {
	store := NewMemoryStore(time.Minute)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := store.Add(&fakeView{})
		require.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Equal(t, 50, store.Count())
}

func TestMemoryStore_ExpiredSessionsAreUnmounted(t *testing.T) {
	store := NewMemoryStore(50 * time.Millisecond)
	view := &fakeView{}

	id, err := store.Add(view)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return view.unmountCount() == 1
	}, 5*time.Second, 20*time.Millisecond)

	_, err = store.Take(id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemoryStore_Close(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	a, b := &fakeView{}, &fakeView{}

	_, err := store.Add(a)
	require.NoError(t, err)
	idB, err := store.Add(b)
	require.NoError(t, err)

	_, err = store.Take(idB)
	require.NoError(t, err)

	store.Close()

	assert.Equal(t, 1, a.unmountCount())
	assert.Equal(t, 0, b.unmountCount())
	assert.Equal(t, 0, store.Count())
}
