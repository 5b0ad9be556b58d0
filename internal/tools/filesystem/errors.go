package filesystem

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine/protocol"
)

// OpError is a failed file operation classified for the model.
type OpError struct {
	Path  string
	Kind  protocol.FailureKind
	Cause string
	Err   error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Cause)
}

func (e *OpError) Unwrap() error { return e.Err }

// KindOf returns the failure kind carried by err, or IOFailure.
func KindOf(err error) protocol.FailureKind {
	var op *OpError
	if errors.As(err, &op) {
		return op.Kind
	}
	return protocol.FailIO
}

func readError(path string, err error) *OpError {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &OpError{Path: path, Kind: protocol.FailFileNotFound, Cause: "file not found", Err: err}
	case errors.Is(err, fs.ErrPermission):
		return &OpError{Path: path, Kind: protocol.FailIO, Cause: "permission denied", Err: err}
	default:
		return &OpError{Path: path, Kind: protocol.FailIO, Cause: trimPathErr(err), Err: err}
	}
}

// WriteError classifies an error raised while persisting path.
func WriteError(path string, err error) *OpError {
	if errors.Is(err, fs.ErrPermission) {
		return &OpError{Path: path, Kind: protocol.FailWritePermissionDenied, Cause: "permission denied", Err: err}
	}
	return &OpError{Path: path, Kind: protocol.FailIO, Cause: trimPathErr(err), Err: err}
}

// ReadError classifies an error raised while reading path.
func ReadError(path string, err error) *OpError {
	return readError(path, err)
}

// trimPathErr drops the absolute path os errors repeat.
func trimPathErr(err error) string {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Op + ": " + pe.Err.Error()
	}
	return err.Error()
}
