package redaction

import (
	"errors"
	"fmt"
)

var (
	// ErrPartialRedaction marks an interrupted pass. Running the redaction
	// again resumes where it stopped.
	ErrPartialRedaction = errors.New("partial redaction")
	// ErrSentinel is returned when asked to redact the sentinel account itself.
	ErrSentinel = errors.New("cannot redact the sentinel account")
)

// PartialError carries the report of an interrupted pass.
type PartialError struct {
	Report *Report
	Err    error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("redact account %s: partial (%d messages, %d comments rewritten): %v",
		e.Report.AccountID, e.Report.MessagesRewritten, e.Report.CommentsRewritten, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPartialRedaction) match.
func (e *PartialError) Is(target error) bool { return target == ErrPartialRedaction }
