// Package viewer implements the collage view shell use case.
//
// A Viewer owns the three pieces of view state (content, loading flag, error
// message) for one mount. Mount issues exactly one asynchronous fetch of the
// collage document; the result is committed once, and subscribers are
// notified of every commit. Unmount ends the lifetime and cancels the fetch;
// a result that arrives afterwards is dropped instead of committed.
package viewer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stockcharts/collageview/internal/boundaries/in"
	"github.com/stockcharts/collageview/internal/boundaries/out"
	"github.com/stockcharts/collageview/internal/domain"
	"github.com/stockcharts/collageview/internal/logging"
)

// Viewer implements the in.Viewer interface.
type Viewer struct {
	fetcher      out.AssetFetcher
	observer     out.ViewerObserver
	path         string
	fetchTimeout time.Duration

	mu        sync.Mutex
	state     domain.ViewState
	mounted   bool
	unmounted bool
	cancel    context.CancelFunc
	settled   chan struct{}
	gone      chan struct{}
	finished  chan struct{}
	subs      map[int]chan domain.ViewState
	nextSub   int
}

// Option configures a Viewer.
type Option func(*Viewer)

// WithPath overrides the fetched path.
func WithPath(path string) Option {
	return func(v *Viewer) {
		v.path = path
	}
}

// WithObserver registers a settle observer.
func WithObserver(o out.ViewerObserver) Option {
	return func(v *Viewer) {
		v.observer = o
	}
}

// WithFetchTimeout bounds the fetch. Zero means the fetch lives as long as the viewer.
func WithFetchTimeout(d time.Duration) Option {
	return func(v *Viewer) {
		v.fetchTimeout = d
	}
}

// New creates an idle viewer.
func New(fetcher out.AssetFetcher, opts ...Option) *Viewer {
	v := &Viewer{
		fetcher:  fetcher,
		path:     domain.CollagePath,
		settled:  make(chan struct{}),
		gone:     make(chan struct{}),
		finished: make(chan struct{}),
		subs:     make(map[int]chan domain.ViewState),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// NewFactory returns an in.ViewerFactory producing viewers with the same options.
func NewFactory(fetcher out.AssetFetcher, opts ...Option) in.ViewerFactory {
	return func() in.Viewer {
		return New(fetcher, opts...)
	}
}

// Mount enters the loading state and starts the fetch. The fetch is tied to
// the viewer lifetime, not to ctx; ctx only contributes its logger.
func (v *Viewer) Mount(ctx context.Context) error {
	v.mu.Lock()
	if v.mounted {
		v.mu.Unlock()
		return domain.ErrAlreadyMounted
	}
	if v.unmounted {
		v.mu.Unlock()
		return domain.ErrUnmounted
	}
	v.mounted = true

	lifeCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	v.cancel = cancel
	v.commitLocked(domain.LoadingState())
	v.mu.Unlock()

	ctx = logging.WithFields(lifeCtx, map[string]any{
		logging.FieldLayer:   "usecase",
		logging.FieldUseCase: "MountViewer",
		logging.FieldPath:    v.path,
	})
	logging.FromCtx(ctx).Debug().Msg("viewer mounted, fetching collage")

	if v.observer != nil {
		v.observer.ObserveMount()
	}

	go v.load(ctx)

	return nil
}

func (v *Viewer) load(ctx context.Context) {
	defer close(v.finished)

	log := logging.FromCtx(ctx)
	start := time.Now()

	fetchCtx := ctx
	if v.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, v.fetchTimeout)
		defer cancel()
	}

	body, err := v.fetcher.Fetch(fetchCtx, v.path)

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.unmounted {
		log.Debug().Msg("viewer unmounted before fetch settled, discarding result")
		if v.observer != nil {
			v.observer.ObserveDiscard()
		}
		return
	}

	var next domain.ViewState
	if err != nil {
		msg := domain.FetchErrorMessage(err)
		log.Warn().Err(err).Msg("Error loading HTML file")
		next = v.state.WithError(msg)
	} else {
		log.Debug().Int("bytes", len(body)).Msg("collage loaded")
		next = v.state.WithContent(body)
	}

	v.commitLocked(next)
	close(v.settled)

	if v.observer != nil {
		v.observer.ObserveSettle(next.Phase(), time.Since(start))
	}
}

// commitLocked replaces the state and notifies subscribers. v.mu must be held.
func (v *Viewer) commitLocked(s domain.ViewState) {
	v.state = s
	for _, ch := range v.subs {
		offer(ch, s)
	}
}

// offer delivers s, replacing a pending value a slow subscriber has not read yet.
func offer(ch chan domain.ViewState, s domain.ViewState) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- s
}

// Unmount ends the viewer lifetime. It is safe to call more than once.
func (v *Viewer) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.unmounted {
		return
	}
	v.unmounted = true
	if v.cancel != nil {
		v.cancel()
	}
	close(v.gone)

	for id, ch := range v.subs {
		close(ch)
		delete(v.subs, id)
	}
}

// State returns a snapshot of the current state.
func (v *Viewer) State() domain.ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Subscribe returns a channel that first receives the current state and then
// every committed state. The channel is closed on unsubscribe or unmount.
func (v *Viewer) Subscribe() (<-chan domain.ViewState, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ch := make(chan domain.ViewState, 1)
	if v.unmounted {
		close(ch)
		return ch, func() {}
	}

	id := v.nextSub
	v.nextSub++
	v.subs[id] = ch
	ch <- v.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			if sub, ok := v.subs[id]; ok {
				close(sub)
				delete(v.subs, id)
			}
		})
	}
}

// Wait blocks until the fetch settles, the viewer is unmounted, or ctx is done.
func (v *Viewer) Wait(ctx context.Context) (domain.ViewState, error) {
	v.mu.Lock()
	mounted := v.mounted
	v.mu.Unlock()

	if !mounted {
		return v.State(), domain.ErrNotMounted
	}

	select {
	case <-v.settled:
		return v.State(), nil
	case <-v.gone:
		// settle and unmount may race; a committed state still counts.
		select {
		case <-v.settled:
			return v.State(), nil
		default:
		}
		return v.State(), fmt.Errorf("%w: unmounted before the fetch settled", domain.ErrNotMounted)
	case <-ctx.Done():
		return v.State(), ctx.Err()
	}
}

// Done returns a channel closed once the fetch goroutine has exited.
// It never closes for a viewer that was not mounted.
func (v *Viewer) Done() <-chan struct{} {
	return v.finished
}

var _ in.Viewer = (*Viewer)(nil)
var _ out.MountedView = (*Viewer)(nil)
