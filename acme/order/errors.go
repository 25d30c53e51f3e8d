package order

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrCertificateNotReady is returned by Certificate when the order has no
	// certificate URL yet. Poll the order until it is "valid" before retrying.
	ErrCertificateNotReady = errors.New("order: no certificate URL to collect the certificate from")
	// ErrEmptyCSR is returned by Finalize when no CSR is given.
	ErrEmptyCSR = errors.New("order: finalize requires a non-empty CSR")
)

// ChainNotFoundError is returned when no certificate chain offered by the
// server was issued by the preferred issuer.
type ChainNotFoundError struct {
	Issuer string
}

func (e *ChainNotFoundError) Error() string {
	return fmt.Sprintf("order: intermediate CA certificate with %q was not found", e.Issuer)
}

// ParseError is returned when a certificate chain is not valid PEM or one of
// its certificates can not be parsed.
type ParseError struct {
	// Index of the failing certificate within the chain, or -1 when the chain
	// as a whole could not be split.
	Index int
	Err   error
}

func (e *ParseError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("order: malformed certificate chain: %v", e.Err)
	}
	return fmt.Sprintf("order: malformed certificate %d in chain: %v", e.Index, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Cause() error {
	return e.Err
}
