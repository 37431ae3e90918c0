package domain

// CollagePath is the public asset path of the externally produced collage document.
const CollagePath = "/stock_charts_collage.html"

// Static copy shown by the view shell.
const (
	FrameTitle       = "Stock Charts Collage"
	LoadingHeadline  = "Loading Stock Charts..."
	ErrorHeadline    = "Error Loading Charts"
	LocalFileHint    = "Note: Loading local files directly may require running a local server or adjusting browser security settings."
	DefaultPageTitle = "Stock Charts"
)

// Phase is the lifecycle position of a viewer instance.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseError   Phase = "error"
	PhaseLoaded  Phase = "loaded"
)

// ViewState is the transient, instance-local state of a viewer.
// It lives only as long as the viewer that owns it.
type ViewState struct {
	Content      string
	Loading      bool
	ErrorMessage string
	HasError     bool
	// Mounted is false only for the idle state before the first mount.
	Mounted bool
}

// LoadingState is the state entered on mount.
func LoadingState() ViewState {
	return ViewState{Loading: true, Mounted: true}
}

// Phase derives the active render branch from the state. Loading wins over
// an error, and an error wins over content. A state that was never mounted
// is idle.
func (s ViewState) Phase() Phase {
	switch {
	case s.Loading:
		return PhaseLoading
	case s.HasError:
		return PhaseError
	case s.Mounted:
		return PhaseLoaded
	default:
		return PhaseIdle
	}
}

// Settled reports whether the fetch has reached success or failure.
func (s ViewState) Settled() bool {
	return s.Mounted && !s.Loading
}

// WithError returns the settled error state for msg.
func (s ViewState) WithError(msg string) ViewState {
	s.Mounted = true
	s.Loading = false
	s.HasError = true
	s.ErrorMessage = msg
	return s
}

// WithContent returns the settled content state for body.
func (s ViewState) WithContent(body string) ViewState {
	s.Mounted = true
	s.Loading = false
	s.HasError = false
	s.ErrorMessage = ""
	s.Content = body
	return s
}
