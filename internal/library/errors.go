package library

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks operations on a book or clip that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrArchived marks operations that need an active audio file on a book
	// whose file has been removed.
	ErrArchived = errors.New("book archived")
	// ErrSourceRemoved marks clip bounds edits whose parent audio file no
	// longer exists, so the clip cannot be re-sliced.
	ErrSourceRemoved = errors.New("source file removed")
	// ErrPersistence marks record-store write failures.
	ErrPersistence = errors.New("persistence error")
	// ErrMedia marks audio engine failures: slice, load, play, seek.
	ErrMedia = errors.New("media error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrPersistence
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failure"
	}
	return strings.Join(parts, ": ")
}
