package out

import (
	"context"

	"github.com/stockcharts/collageview/internal/domain"
)

// MountedView is the part of a viewer the host keeps between requests.
type MountedView interface {
	State() domain.ViewState
	Wait(ctx context.Context) (domain.ViewState, error)
	Unmount()
}

// SessionStore keeps mounted views until they are taken or expire.
// Expired views are unmounted by the store.
type SessionStore interface {
	// Add stores view and returns its session ID.
	Add(view MountedView) (string, error)

	// Take removes and returns the view for id.
	// Returns domain.ErrSessionNotFound if id is unknown or expired.
	Take(id string) (MountedView, error)

	// Count returns the number of live sessions.
	Count() int

	// Close unmounts every stored view.
	Close()
}
