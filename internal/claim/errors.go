package claim

import (
	"errors"
	"fmt"
)

// Kind classifies a claim workflow failure. Every kind is a distinct,
// user-actionable outcome.
type Kind int

const (
	KindUnknown Kind = iota
	InvalidInput
	NameTaken
	NotFound
	InvalidAddress
	InvalidReference
	FetchFailed
	ProofNotFound
	AlreadyClaimed
	StoreUnavailable
)

var kindNames = map[Kind]string{
	KindUnknown:      "unknown",
	InvalidInput:     "invalid_input",
	NameTaken:        "name_taken",
	NotFound:         "not_found",
	InvalidAddress:   "invalid_address",
	InvalidReference: "invalid_reference",
	FetchFailed:      "fetch_failed",
	ProofNotFound:    "proof_not_found",
	AlreadyClaimed:   "already_claimed",
	StoreUnavailable: "store_unavailable",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by Registry, Verifier and Directory operations.
// Message is safe to show to callers; Err carries the internal cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the Kind from err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func storeError(err error) *Error {
	return &Error{Kind: StoreUnavailable, Message: "storage unavailable", Err: err}
}
