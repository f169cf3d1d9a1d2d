package cli

import (
	"errors"
	"fmt"

	"github.com/mark3labs/openspec-studio/internal/document"
	"github.com/mark3labs/openspec-studio/internal/graph"
)

var ErrUsage = errors.New("cli usage error")

type usageError struct {
	msg string
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

// friendlyError maps structured document and compile errors into usage
// errors with their location details. Other errors pass through.
func friendlyError(err error) error {
	if err == nil {
		return nil
	}
	var de *document.Error
	if errors.As(err, &de) {
		msg := de.Message
		if de.Line > 0 {
			msg = fmt.Sprintf("%s\nLine: %d", msg, de.Line)
		}
		if de.Location != "" {
			msg = fmt.Sprintf("%s\nLocation: %s", msg, de.Location)
		}
		if de.JSONPointer != "" {
			msg = fmt.Sprintf("%s\nPointer: %s", msg, de.JSONPointer)
		}
		return newUsageError(msg)
	}
	var ce *graph.CompileError
	if errors.As(err, &ce) {
		msg := fmt.Sprintf("compile: %s", ce.Message)
		if ce.Property != "" {
			msg = fmt.Sprintf("%s\nFix property %q on node %s.", msg, ce.Property, ce.NodeID)
		}
		return newUsageError(msg)
	}
	return err
}
