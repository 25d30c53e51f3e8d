package resources

import (
	"time"

	"github.com/acmeorder/acmeorder/acme"
	"github.com/pkg/errors"
)

var (
	// ErrMissingField is returned when an Order lacks a field the protocol
	// requires.
	ErrMissingField = errors.New("order is missing a required field")
	// ErrUnknownStatus is returned when an Order's Status is not one of the
	// RFC 8555 order statuses.
	ErrUnknownStatus = errors.New("order has an unknown status")
)

// The Order resource represents a collection of identifiers that an account
// wishes to create a Certificate for.
//
// See https://tools.ietf.org/html/rfc8555#section-7.1.3
//
// To understand the Status changes specified by ACME for the Order resource see
// https://tools.ietf.org/html/rfc8555#section-7.1.6
type Order struct {
	// The server-assigned URL identifying the Order. It is taken from the
	// Location header when the Order is created and is never part of the JSON
	// body.
	URL string `json:"-"`
	// The Status of the Order.
	Status string `json:"status"`
	// The time after which the server will consider the Order invalid.
	Expires time.Time `json:"expires"`
	// The Identifiers the Order wishes to finalize a Certificate for once the
	// Order is ready.
	Identifiers []Identifier `json:"identifiers"`
	// A list of URLs for Authorization resources the server specifies for the
	// Order Identifiers.
	Authorizations []string `json:"authorizations"`
	// A URL used to Finalize the Order with a CSR once the Order has a status of
	// "ready".
	Finalize string `json:"finalize"`
	// A URL used to fetch the Certificate issued by the server for the Order
	// after being Finalized. The Certificate field should be present and
	// not-empty when the Order has a status of "valid".
	Certificate string `json:"certificate,omitempty"`
}

// String returns the Order's URL.
func (o Order) String() string {
	return o.URL
}

// Validate checks that every field RFC 8555 requires of an Order is present
// and that the Status is a known order status. The Certificate URL is
// optional. An empty, non-nil Authorizations slice is accepted.
func (o Order) Validate() error {
	switch {
	case o.URL == "":
		return errors.Wrap(ErrMissingField, "url")
	case o.Status == "":
		return errors.Wrap(ErrMissingField, "status")
	case o.Expires.IsZero():
		return errors.Wrap(ErrMissingField, "expires")
	case o.Finalize == "":
		return errors.Wrap(ErrMissingField, "finalize")
	case o.Authorizations == nil:
		return errors.Wrap(ErrMissingField, "authorizations")
	case len(o.Identifiers) == 0:
		return errors.Wrap(ErrMissingField, "identifiers")
	}
	if !IsOrderStatus(o.Status) {
		return errors.Wrapf(ErrUnknownStatus, "%q", o.Status)
	}
	return nil
}

// Copy returns a deep copy of the Order so that callers can not mutate the
// slices of the original.
func (o Order) Copy() Order {
	c := o
	if o.Identifiers != nil {
		c.Identifiers = append([]Identifier{}, o.Identifiers...)
	}
	if o.Authorizations != nil {
		c.Authorizations = append([]string{}, o.Authorizations...)
	}
	return c
}

// IsOrderStatus returns true if the status is one of the order statuses
// defined by RFC 8555.
func IsOrderStatus(status string) bool {
	switch status {
	case acme.StatusPending, acme.StatusReady, acme.StatusProcessing,
		acme.StatusValid, acme.StatusInvalid:
		return true
	}
	return false
}

// IsFinal returns true once the Order has reached a status it will never
// leave ("valid" or "invalid").
func (o Order) IsFinal() bool {
	return o.Status == acme.StatusValid || o.Status == acme.StatusInvalid
}
