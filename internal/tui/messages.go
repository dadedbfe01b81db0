package tui

import (
	"github.com/harbor-io/harbor/internal/bridge"
	"github.com/harbor-io/harbor/internal/shell"
)

// viewMsg carries a fresh shell snapshot.
type viewMsg struct {
	view shell.View
}

// bridgeEventMsg carries an event emitted to one of the windows.
type bridgeEventMsg struct {
	event bridge.Event
}

// confirmRequest is a pending close confirmation. answer is buffered.
type confirmRequest struct {
	label   string
	title   string
	message string
	answer  chan bool
}

// confirmMsg asks the model to show a confirmation.
type confirmMsg struct {
	req *confirmRequest
}

// withdrawMsg removes a confirmation nobody waits for anymore.
type withdrawMsg struct {
	req *confirmRequest
}

// ErrorMsg carries an error to display.
type ErrorMsg struct {
	Err error
}

// ClearErrorMsg clears the error display.
type ClearErrorMsg struct{}

// clearNoticeMsg clears the notice line.
type clearNoticeMsg struct{}
