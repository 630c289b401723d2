package docconv

import (
	"context"
	"errors"
	"fmt"

	"github.com/alnah/go-docconv/internal/engine"
	"github.com/alnah/go-docconv/internal/formats"
	"github.com/alnah/go-docconv/internal/hints"
	"github.com/alnah/go-docconv/internal/options"
	"github.com/alnah/go-docconv/internal/source"
)

// ErrorKind classifies a failed conversion.
type ErrorKind string

// Error kinds reported in results and response envelopes.
const (
	KindSourceNotFound        ErrorKind = "SourceNotFound"
	KindSourceUnreadable      ErrorKind = "SourceUnreadable"
	KindSourceTooLarge        ErrorKind = "SourceTooLarge"
	KindSourceFetchFailed     ErrorKind = "SourceFetchFailed"
	KindFormatUnrecognized    ErrorKind = "FormatUnrecognized"
	KindUnsupportedConversion ErrorKind = "UnsupportedConversion"
	KindInvalidOptionValue    ErrorKind = "InvalidOptionValue"
	KindEngineNotFound        ErrorKind = "EngineNotFound"
	KindConversionTimeout     ErrorKind = "ConversionTimeout"
	KindEngineError           ErrorKind = "ConversionEngineError"
	KindInternal              ErrorKind = "InternalError"
)

// Sentinel errors, one per kind. An *Error matches the sentinel of its kind
// with errors.Is.
var (
	ErrSourceNotFound        = errors.New("source not found")
	ErrSourceUnreadable      = errors.New("source not readable")
	ErrSourceTooLarge        = errors.New("source too large")
	ErrSourceFetchFailed     = errors.New("source fetch failed")
	ErrFormatUnrecognized    = errors.New("format not recognized")
	ErrUnsupportedConversion = errors.New("unsupported conversion")
	ErrInvalidOptionValue    = errors.New("invalid option value")
	ErrEngineNotFound        = errors.New("conversion engine not found")
	ErrConversionTimeout     = errors.New("conversion timed out")
	ErrEngineError           = errors.New("conversion engine error")
	ErrInternal              = errors.New("internal error")
)

var kindSentinels = map[ErrorKind]error{
	KindSourceNotFound:        ErrSourceNotFound,
	KindSourceUnreadable:      ErrSourceUnreadable,
	KindSourceTooLarge:        ErrSourceTooLarge,
	KindSourceFetchFailed:     ErrSourceFetchFailed,
	KindFormatUnrecognized:    ErrFormatUnrecognized,
	KindUnsupportedConversion: ErrUnsupportedConversion,
	KindInvalidOptionValue:    ErrInvalidOptionValue,
	KindEngineNotFound:        ErrEngineNotFound,
	KindConversionTimeout:     ErrConversionTimeout,
	KindEngineError:           ErrEngineError,
	KindInternal:              ErrInternal,
}

// CodeFileNotFoundLocally marks a missing local source in response
// envelopes. FileURL names the file so a peer that holds it can supply it.
const CodeFileNotFoundLocally = "FILE_NOT_FOUND_LOCALLY"

// Error is a typed conversion failure.
type Error struct {
	Kind        ErrorKind
	Message     string
	Diagnostics []string
	Hint        string // actionable advice, may be empty
	FileURL     string // set for missing local sources
	Err         error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Code returns CodeFileNotFoundLocally for missing local sources and ""
// otherwise.
func (e *Error) Code() string {
	if e.Kind == KindSourceNotFound && e.FileURL != "" {
		return CodeFileNotFoundLocally
	}
	return ""
}

// KindOf classifies err. Unknown errors are KindInternal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case err == nil:
		return ""
	case errors.Is(err, source.ErrNotFound), errors.Is(err, source.ErrEmptyRef):
		return KindSourceNotFound
	case errors.Is(err, source.ErrUnreadable):
		return KindSourceUnreadable
	case errors.Is(err, source.ErrTooLarge):
		return KindSourceTooLarge
	case errors.Is(err, source.ErrFetchFailed):
		return KindSourceFetchFailed
	case errors.Is(err, formats.ErrUnrecognized):
		return KindFormatUnrecognized
	case errors.Is(err, formats.ErrUnsupportedConversion), errors.Is(err, engine.ErrUnsupported):
		return KindUnsupportedConversion
	case errors.Is(err, options.ErrInvalidValue):
		return KindInvalidOptionValue
	case errors.Is(err, engine.ErrNotFound):
		return KindEngineNotFound
	case errors.Is(err, engine.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindConversionTimeout
	case errors.Is(err, engine.ErrFailed):
		return KindEngineError
	default:
		return KindInternal
	}
}

// wrapError converts err into an *Error carrying the diagnostics and hints
// that fit its kind. c supplies the limits named in hints.
func (c *Converter) wrapError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	e = &Error{Kind: KindOf(err), Message: err.Error(), Err: err}

	var engErr *engine.Error
	if errors.As(err, &engErr) {
		e.Diagnostics = append(e.Diagnostics, engErr.Diagnostics...)
	}
	var nf *source.NotFoundError
	if errors.As(err, &nf) {
		e.FileURL = nf.FileURL
	}

	switch e.Kind {
	case KindSourceNotFound:
		if e.FileURL != "" {
			e.Hint = hints.Text(hints.ForFileNotFoundLocally())
		}
	case KindUnsupportedConversion:
		e.Hint = hints.Text(hints.ForUnsupportedConversion(names(formats.Writers())))
	case KindSourceTooLarge:
		e.Hint = hints.Text(hints.ForSourceTooLarge(c.cfg.Limits.MaxFileSizeMB))
	case KindEngineNotFound:
		if c.engine.Name() == "builtin" {
			e.Hint = hints.Text(hints.ForBrowserConnect())
		} else {
			e.Hint = hints.Text(hints.ForEngineNotFound(c.cfg.Engine.PandocPath))
		}
	case KindConversionTimeout:
		e.Hint = hints.Text(hints.ForTimeout())
	case KindInternal:
		if errors.Is(err, context.Canceled) {
			e.Message = "cancelled"
		} else {
			e.Message = fmt.Sprintf("internal error: %v", err)
		}
	}
	return e
}
