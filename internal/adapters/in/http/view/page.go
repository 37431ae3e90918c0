package view

import (
	"context"
	"strings"

	"github.com/a-h/templ"
)

// PageData describes the document wrapped around a component.
type PageData struct {
	Title string
	// SessionID, when set, tells the shell script which fragment to request.
	SessionID string
}

// Page wraps body in a full HTML document that loads the default stylesheet
// and the shell script.
func Page(data PageData, body templ.Component) templ.Component {
	return document(data, body)
}

// String renders c into a string.
func String(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Status renders a minimal page for HTTP errors of the host itself.
func Status(code int, msg string) templ.Component {
	return statusDocument(code, msg)
}

// StatusPanel renders the same error as a fragment, for responses the shell
// script injects into an existing page.
func StatusPanel(code int, msg string) templ.Component {
	return statusPanel(code, msg)
}
