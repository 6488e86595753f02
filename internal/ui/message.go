package ui

import (
	"github.com/desertthunder/encore/internal/models"
)

// changedMsg reports that at least one provider published since the last one was handled.
type changedMsg struct{}

// sessionMsg carries the result of a restore or login.
type sessionMsg struct {
	session models.Session
	err     error
}

// libraryMsg reports a finished library fetch; the items themselves are re-read from the aggregator.
type libraryMsg struct {
	err error
}

// tracksMsg carries the tracks of the item opened in the tracks view.
type tracksMsg struct {
	id     string
	tracks []models.Track
	err    error
}

// statusMsg reports the outcome of a fire-and-forget action such as play or logout.
type statusMsg struct {
	text string
	err  error
}
