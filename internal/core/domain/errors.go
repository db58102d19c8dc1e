package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrTemporary         = errors.New("temporary failure")
	ErrNoEvidence        = errors.New("no relevant documents found")
	ErrBuild             = errors.New("index build failed")
	ErrIndexMismatch     = errors.New("index and metadata are misaligned")
	ErrHealingFailure    = errors.New("answer healing failed")
	ErrVersionExists     = errors.New("index version already exists")
	ErrVersionIncomplete = errors.New("index version is incomplete")
	ErrManifestCorrupt   = errors.New("version manifest is corrupt")
	ErrJobNotFound       = errors.New("reindex job not found")
	ErrReportNotFound    = errors.New("no monitor report has been written")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
