package session

import "errors"

// ErrValidation - required input is missing or malformed. Validation
// failures never reach the generation client.
var ErrValidation = errors.New("validation failed")

// ErrTaskBusy - the stage already has a request in flight and does not
// support relaunch-with-cancellation.
var ErrTaskBusy = errors.New("task already in progress")

// ErrSessionNotFound - the session ID does not name a live session.
var ErrSessionNotFound = errors.New("session not found")
