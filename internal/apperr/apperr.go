// internal/apperr/apperr.go
//
// Error taxonomy shared by the gateway, coordinator, and HTTP surface.
//
// Context
// -------
// Every failure that crosses a package boundary is an *Error carrying a
// Kind.  Callers branch on the Kind, never on message text:
//
//   - NotFound, PageNotFound, ValidationError  → detected early, returned
//     before further steps run.
//   - TransportError, UpstreamError, ParseError → produced by the gateway.
//   - PartialFailure                            → a multi-step write
//     committed some steps but not all.
//   - PlanFailed, CopyFailed                    → AI generation outcomes.
//
// Notes
// -----
// • Op names the originating step ("publish.persist", "gateway.do").
// • Oxford commas, two spaces after periods.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and for HTTP status mapping.
type Kind string

const (
	KindNotFound       Kind = "not_found"
	KindPageNotFound   Kind = "page_not_found"
	KindValidation     Kind = "validation_error"
	KindTransport      Kind = "transport_error"
	KindUpstream       Kind = "upstream_error"
	KindPartialFailure Kind = "partial_failure"
	KindParse          Kind = "parse_error"
	KindPlanFailed     Kind = "plan_failed"
	KindCopyFailed     Kind = "copy_failed"
	KindInternal       Kind = "internal_error"
)

// Error is the structured failure returned across package boundaries.
type Error struct {
	Kind    Kind
	Op      string // originating step
	Message string
	Status  int // upstream HTTP status, 0 when not applicable
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error without a cause.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Message: msg}
}

// Wrap builds an *Error around cause.  A nil cause yields nil.
func Wrap(kind Kind, op string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindInternal for foreign errors.  nil yields "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// OpOf returns the Op of the outermost *Error, or "".
func OpOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// HTTPStatus maps a Kind onto the status the API answers with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound, KindPageNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindTransport:
		return http.StatusGatewayTimeout
	case KindUpstream, KindParse:
		return http.StatusBadGateway
	case KindPartialFailure:
		return http.StatusMultiStatus
	case KindPlanFailed, KindCopyFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
