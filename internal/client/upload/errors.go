package upload

import (
	"errors"
	"fmt"
)

// ErrUploadInProgress is returned by Uploader.Upload while another
// session of the same uploader is still active.
var ErrUploadInProgress = errors.New("an upload is already in progress")

// ErrorKind classifies a failed transfer.
type ErrorKind string

const (
	KindNetwork         ErrorKind = "NetworkError"
	KindServerRejected  ErrorKind = "ServerRejected"
	KindInvalidResponse ErrorKind = "InvalidResponse"
	KindCancelled       ErrorKind = "Cancelled"
)

// Sentinels for errors.Is against a *TransferError of the matching kind.
var (
	ErrNetwork         = errors.New("network error")
	ErrServerRejected  = errors.New("server rejected upload")
	ErrInvalidResponse = errors.New("invalid response")
	ErrCancelled       = errors.New("upload cancelled")
)

// TransferError is the failure cause of a task that reached the network
// stage (or was cancelled before it).
type TransferError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Err        error
}

func (e *TransferError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

func (e *TransferError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrServerRejected:
		return e.Kind == KindServerRejected
	case ErrInvalidResponse:
		return e.Kind == KindInvalidResponse
	case ErrCancelled:
		return e.Kind == KindCancelled
	}
	return false
}

func cancelledError() *TransferError {
	return &TransferError{Kind: KindCancelled, Message: "Upload cancelled"}
}

// Message returns the user-facing text for any error a session can end with.
func Message(err error) string {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
