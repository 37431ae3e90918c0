package viewer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/stockcharts/collageview/internal/boundaries/out/mocks"
	"github.com/stockcharts/collageview/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const waitTimeout = 2 * time.Second

func waitDone(t *testing.T, v *Viewer) {
	t.Helper()
	select {
	case <-v.Done():
	case <-time.After(waitTimeout):
		t.Fatal("fetch goroutine did not exit")
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	mounts   int
	discards int
	settles  []domain.Phase
}

func (o *recordingObserver) ObserveMount() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.mounts++
}

func (o *recordingObserver) ObserveDiscard() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.discards++
}

func (o *recordingObserver) ObserveSettle(phase domain.Phase, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.settles = append(o.settles, phase)
}

func TestViewer_IdleBeforeMount(t *testing.T) {
	fetcher := mocks.NewMockAssetFetcher(t)
	v := New(fetcher)

	state := v.State()
	assert.Equal(t, domain.PhaseIdle, state.Phase())
	assert.False(t, state.Loading)
	assert.False(t, state.HasError)
	assert.Empty(t, state.Content)

	_, err := v.Wait(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotMounted)
}

func TestViewer_LoadingUntilFetchSettles(t *testing.T) {
	fetcher := mocks.NewMockAssetFetcher(t)
	release := make(chan struct{})
	fetcher.EXPECT().Fetch(mock.Anything, domain.CollagePath).
		RunAndReturn(func(ctx context.Context, path string) (string, error) {
			<-release
			return "<html>X</html>", nil
		}).Once()

	v := New(fetcher)
	require.NoError(t, v.Mount(context.Background()))

	state := v.State()
	assert.True(t, state.Loading)
	assert.Equal(t, domain.PhaseLoading, state.Phase())

	close(release)
	state, err := v.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseLoaded, state.Phase())
	assert.Equal(t, "<html>X</html>", state.Content)
	assert.False(t, state.HasError)

	waitDone(t, v)
}

func TestViewer_FetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "http status",
			err:     &domain.HTTPStatusError{StatusCode: 404},
			wantMsg: "Failed to load file: 404",
		},
		{
			name:    "transport",
			err:     &domain.TransportError{Err: errors.New("network down")},
			wantMsg: "network down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := mocks.NewMockAssetFetcher(t)
			fetcher.EXPECT().Fetch(mock.Anything, domain.CollagePath).Return("", tt.err).Once()

			v := New(fetcher)
			require.NoError(t, v.Mount(context.Background()))

			state, err := v.Wait(context.Background())
			require.NoError(t, err)
			assert.False(t, state.Loading)
			assert.True(t, state.HasError)
			assert.Equal(t, tt.wantMsg, state.ErrorMessage)
			assert.Empty(t, state.Content)
			assert.Equal(t, domain.PhaseError, state.Phase())

			waitDone(t, v)
		})
	}
}

func TestViewer_MountTwiceFetchesOnce(t *testing.T) {
	fetcher := mocks.NewMockAssetFetcher(t)
	fetcher.EXPECT().Fetch(mock.Anything, domain.CollagePath).Return("body", nil).Once()

	v := New(fetcher)
	require.NoError(t, v.Mount(context.Background()))
	assert.ErrorIs(t, v.Mount(context.Background()), domain.ErrAlreadyMounted)

	_, err := v.Wait(context.Background())
	require.NoError(t, err)
	waitDone(t, v)
}

func TestViewer_UnmountDiscardsLateResult(t *testing.T) {
	fetcher := mocks.NewMockAssetFetcher(t)
	observer := &recordingObserver{}
	fetcher.EXPECT().Fetch(mock.Anything, domain.CollagePath).
		RunAndReturn(func(ctx context.Context, path string) (string, error) {
			<-ctx.Done()
			return "", &domain.TransportError{Err: ctx.Err()}
		}).Once()

	v := New(fetcher, WithObserver(observer))
	require.NoError(t, v.Mount(context.Background()))

	v.Unmount()
	v.Unmount()
	waitDone(t, v)

	state := v.State()
	assert.True(t, state.Loading, "late result must not be committed")
	assert.False(t, state.HasError)

	_, err := v.Wait(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotMounted)

	observer.mu.Lock()
	defer observer.mu.Unlock()
	assert.Equal(t, 1, observer.mounts)
	assert.Equal(t, 1, observer.discards)
	assert.Empty(t, observer.settles)
}

func TestViewer_MountAfterUnmountIsRejected(t *testing.T) {
	fetcher := mocks.NewMockAssetFetcher(t)
	v := New(fetcher)

	v.Unmount()
	err := v.Mount(context.Background())

	assert.ErrorIs(t, err, domain.ErrUnmounted)
	assert.Equal(t, domain.PhaseIdle, v.State().Phase())
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestViewer_MountIgnoresCallerCancellation(t *testing.T) {
	fetcher := mocks.NewMockAssetFetcher(t)
	fetcher.EXPECT().Fetch(mock.Anything, domain.CollagePath).
		RunAndReturn(func(ctx context.Context, path string) (string, error) {
			if err := ctx.Err(); err != nil {
				return "", &domain.TransportError{Err: err}
			}
			return "ok", nil
		}).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := New(fetcher)
	require.NoError(t, v.Mount(ctx))

	state, err := v.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", state.Content)
	waitDone(t, v)
}

func TestViewer_FetchTimeout(t *testing.T) {
	fetcher := mocks.NewMockAssetFetcher(t)
	fetcher.EXPECT().Fetch(mock.Anything, domain.CollagePath).
		RunAndReturn(func(ctx context.Context, path string) (string, error) {
			<-ctx.Done()
			return "", &domain.TransportError{Err: ctx.Err()}
		}).Once()

	v := New(fetcher, WithFetchTimeout(10*time.Millisecond))
	require.NoError(t, v.Mount(context.Background()))

	state, err := v.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, context.DeadlineExceeded.Error(), state.ErrorMessage)
	waitDone(t, v)
}

func TestViewer_WaitHonorsContext(t *testing.T) {
	fetcher := mocks.NewMockAssetFetcher(t)
	release := make(chan struct{})
	fetcher.EXPECT().Fetch(mock.Anything, domain.CollagePath).
		RunAndReturn(func(ctx context.Context, path string) (string, error) {
			<-release
			return "late", nil
		}).Once()

	v := New(fetcher)
	require.NoError(t, v.Mount(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	state, err := v.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, state.Loading)

	close(release)
	_, err = v.Wait(context.Background())
	require.NoError(t, err)
	waitDone(t, v)
}

func TestViewer_SubscribeReceivesCommits(t *testing.T) {
	fetcher := mocks.NewMockAssetFetcher(t)
	release := make(chan struct{})
	fetcher.EXPECT().Fetch(mock.Anything, domain.CollagePath).
		RunAndReturn(func(ctx context.Context, path string) (string, error) {
			<-release
			return "<html>X</html>", nil
		}).Once()

	v := New(fetcher)
	updates, unsubscribe := v.Subscribe()
	defer unsubscribe()

	first := <-updates
	assert.Equal(t, domain.PhaseIdle, first.Phase())
	assert.False(t, first.Loading)
	assert.False(t, first.Settled())

	require.NoError(t, v.Mount(context.Background()))
	loading := <-updates
	assert.Equal(t, domain.PhaseLoading, loading.Phase())

	close(release)
	loaded := <-updates
	assert.Equal(t, domain.PhaseLoaded, loaded.Phase())
	assert.Equal(t, "<html>X</html>", loaded.Content)

	waitDone(t, v)
}

func TestViewer_UnmountClosesSubscriptions(t *testing.T) {
	fetcher := mocks.NewMockAssetFetcher(t)
	v := New(fetcher)

	updates, unsubscribe := v.Subscribe()
	<-updates

	v.Unmount()
	_, open := <-updates
	assert.False(t, open)

	// Unsubscribing after unmount is a no-op.
	unsubscribe()

	late, _ := v.Subscribe()
	_, open = <-late
	assert.False(t, open)
}

func TestViewer_ObserverSeesSettle(t *testing.T) {
	fetcher := mocks.NewMockAssetFetcher(t)
	observer := &recordingObserver{}
	fetcher.EXPECT().Fetch(mock.Anything, domain.CollagePath).
		Return("", &domain.HTTPStatusError{StatusCode: 500}).Once()

	v := New(fetcher, WithObserver(observer))
	require.NoError(t, v.Mount(context.Background()))
	_, err := v.Wait(context.Background())
	require.NoError(t, err)
	waitDone(t, v)

	observer.mu.Lock()
	defer observer.mu.Unlock()
	assert.Equal(t, []domain.Phase{domain.PhaseError}, observer.settles)
}

func TestNewFactory_BuildsIndependentViewers(t *testing.T) {
	fetcher := mocks.NewMockAssetFetcher(t)
	fetcher.EXPECT().Fetch(mock.Anything, "/other.html").Return("a", nil).Twice()

	factory := NewFactory(fetcher, WithPath("/other.html"))
	first := factory()
	second := factory()

	for _, v := range []*Viewer{first.(*Viewer), second.(*Viewer)} {
		require.NoError(t, v.Mount(context.Background()))
		state, err := v.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "a", state.Content)
		waitDone(t, v)
	}
}
