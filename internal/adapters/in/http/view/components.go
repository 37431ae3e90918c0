// Package view renders viewer state as HTML components.
//
// Every component here is pure: the output depends only on its arguments, so
// rendering the same state twice yields the same bytes.
//
//go:generate templ generate
package view

import (
	"context"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"

	"github.com/stockcharts/collageview/internal/domain"
	"github.com/stockcharts/collageview/internal/logging"
)

// FrameStyle sizes the embedded frame to the full viewport without a border.
const FrameStyle = "width: 100%; height: 100vh; border: none"

var markupPolicy = bluemonday.StrictPolicy()

// Render selects exactly one branch for state. An idle viewer shows the
// loading panel, as nothing has been fetched yet.
func Render(state domain.ViewState) templ.Component {
	switch phase := state.Phase(); phase {
	case domain.PhaseIdle, domain.PhaseLoading:
		return loadingPanel(phase)
	case domain.PhaseError:
		return Error(state.ErrorMessage)
	default:
		return Content(state.Content)
	}
}

// Loading renders the centered placeholder shown until the fetch settles.
func Loading() templ.Component {
	return loadingPanel(domain.PhaseLoading)
}

// Error renders the centered error panel with msg and the local-file hint.
func Error(msg string) templ.Component {
	return errorPanel(msg)
}

// Content renders the fetched document inline in a full-bleed frame.
func Content(doc string) templ.Component {
	return contentFrame(doc)
}

// errorText returns msg unchanged; it is escaped on output. Messages that
// carry markup are logged since they usually echo a remote error page.
func errorText(ctx context.Context, msg string) string {
	if markupPolicy.Sanitize(msg) != msg {
		logging.FromCtx(ctx).Debug().
			Str("error_message", msg).
			Msg("error message contains markup, rendering it as text")
	}
	return msg
}
