package newsapi

import (
	"errors"
	"fmt"
)

// Kind classifies why a fetch attempt failed.
type Kind uint8

const (
	// KindTransport covers network and I/O failures, including unusable non-2xx responses.
	KindTransport Kind = iota + 1
	// KindDecode covers bodies that are empty or not valid UTF-8.
	KindDecode
	// KindParse covers malformed JSON and envelope schema mismatches.
	KindParse
	// KindURL covers request URL composition failures.
	KindURL
	// KindRejected covers envelopes whose status is not "ok".
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	case KindParse:
		return "parse"
	case KindURL:
		return "url"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks against an *Error kind.
var (
	ErrTransport = errors.New("newsapi: transport error")
	ErrDecode    = errors.New("newsapi: decode error")
	ErrParse     = errors.New("newsapi: parse error")
	ErrURL       = errors.New("newsapi: url error")
	ErrRejected  = errors.New("newsapi: request rejected")
)

// Provider error codes with a dedicated reason.
const (
	CodeAPIKeyDisabled = "apiKeyDisabled"
)

// Reasons reported for rejected requests.
const (
	ReasonAPIKeyDisabled = "API key disabled"
	ReasonUnknown        = "unknown error"
)

// ReasonForCode maps a provider error code to a human readable reason.
// Codes without a dedicated reason, including the empty code, map to ReasonUnknown.
func ReasonForCode(code string) string {
	switch code {
	case CodeAPIKeyDisabled:
		return ReasonAPIKeyDisabled
	default:
		return ReasonUnknown
	}
}

// Error is the single error type returned by Client.
type Error struct {
	Kind       Kind
	Reason     string // set for KindRejected
	Code       string // provider code, when the envelope carried one
	HTTPStatus int
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindRejected:
		return fmt.Sprintf("newsapi %s: %s", e.Kind, e.Reason)
	case e.Err != nil && e.HTTPStatus != 0:
		return fmt.Sprintf("newsapi %s (status %d): %v", e.Kind, e.HTTPStatus, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("newsapi %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("newsapi %s error", e.Kind)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match the package sentinels by kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == sentinelFor(e.Kind)
}

func sentinelFor(k Kind) error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindDecode:
		return ErrDecode
	case KindParse:
		return ErrParse
	case KindURL:
		return ErrURL
	case KindRejected:
		return ErrRejected
	default:
		return nil
	}
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func rejected(code string) *Error {
	return &Error{Kind: KindRejected, Reason: ReasonForCode(code), Code: code}
}

// KindOf extracts the Kind from err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}
