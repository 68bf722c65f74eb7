package stretch

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineFault is returned when engine reports unrecoverable error.
	ErrEngineFault = errors.New("engine fault")
	// ErrNotStereo is returned when split run gets a source which doesn't
	// have exactly two channels.
	ErrNotStereo = errors.New("source is not stereo")
	// ErrShortRead is returned when source provides less frames than it
	// reported as remaining.
	ErrShortRead = errors.New("short read")
)

// ErrorRun is returned if run failed and sinks couldn't be aborted
// afterwards.
type ErrorRun struct {
	ErrRun   error
	ErrAbort error
}

func (e *ErrorRun) Error() string {
	switch {
	case e.ErrRun != nil && e.ErrAbort != nil:
		return fmt.Sprintf("abort error: %v after run error: %v", e.ErrAbort, e.ErrRun)
	case e.ErrRun != nil:
		return fmt.Sprintf("run error: %v", e.ErrRun)
	case e.ErrAbort != nil:
		return fmt.Sprintf("abort error: %v", e.ErrAbort)
	}
	return ""
}

// Is checks if any of errors match provided sentinel error.
func (e *ErrorRun) Is(err error) bool {
	if e.ErrRun != nil && errors.Is(e.ErrRun, err) {
		return true
	}
	if e.ErrAbort != nil && errors.Is(e.ErrAbort, err) {
		return true
	}
	return false
}
