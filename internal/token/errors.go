package token

import "fmt"

// Kind classifies why a token was rejected. Kinds are for logs and metrics
// only; clients always see a generic unauthorized response.
type Kind string

const (
	KindMalformed        Kind = "malformed"
	KindInvalidSignature Kind = "invalid_signature"
	KindExpired          Kind = "expired"
	KindInvalidClaims    Kind = "invalid_claims"
)

// Error is returned by Verifier.Verify.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
	}
	return "token " + string(e.Kind)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches on Kind, so errors.Is(err, ErrExpired) holds for any expired error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrMalformed        = &Error{Kind: KindMalformed}
	ErrInvalidSignature = &Error{Kind: KindInvalidSignature}
	ErrExpired          = &Error{Kind: KindExpired}
	ErrInvalidClaims    = &Error{Kind: KindInvalidClaims}
)

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
