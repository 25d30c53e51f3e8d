// Package order drives a single ACME order from creation to an issued
// certificate. A Resource keeps a local snapshot of the server-side order,
// refreshes it through a shared Client and resolves the issued certificate,
// optionally picking an alternate chain by issuer.
//
// See https://tools.ietf.org/html/rfc8555#section-7.4
package order

import (
	"context"
	"time"

	"github.com/acmeorder/acmeorder/acme/resources"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Client is the transport a Resource uses for every server interaction. It is
// shared between many resources and is never closed by them.
type Client interface {
	// FetchOrder returns the current state of the order at url.
	FetchOrder(ctx context.Context, url string) (*resources.Order, error)
	// FetchAuthorization returns the authorization at url.
	FetchAuthorization(ctx context.Context, url string) (*resources.Authorization, error)
	// SubmitFinalization posts the DER encoded csr to the finalize url and
	// returns the updated order.
	SubmitFinalization(ctx context.Context, url string, csr []byte) (*resources.Order, error)
	// FetchCertificate downloads the PEM chain at url together with the URLs of
	// the alternate chains the server offers for it.
	FetchCertificate(ctx context.Context, url string) (chain string, alternates []string, err error)
}

// Resource is the client side view of one ACME order.
//
// A Resource must be used by a single goroutine at a time. Concurrent Reload
// or Finalize calls are not synchronized and the last response wins.
type Resource struct {
	client   Client
	log      logrus.FieldLogger
	snapshot resources.Order

	// alternateLinks holds the alternate chain URLs returned by the most recent
	// Certificate call. It is not part of the snapshot and is replaced on
	// every call.
	alternateLinks []string
}

// Option configures a Resource.
type Option func(*Resource)

// WithLogger sets the logger used by the Resource.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Resource) {
		r.log = log
	}
}

// New returns a Resource for the given order attributes. The attributes must
// pass resources.Order.Validate.
func New(client Client, attrs resources.Order, opts ...Option) (*Resource, error) {
	if client == nil {
		return nil, errors.New("order: client must not be nil")
	}
	if err := attrs.Validate(); err != nil {
		return nil, err
	}
	r := &Resource{
		client:   client,
		log:      logrus.StandardLogger(),
		snapshot: attrs.Copy(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// URL returns the order URL.
func (r *Resource) URL() string { return r.snapshot.URL }

// Status returns the order status as of the last refresh.
func (r *Resource) Status() string { return r.snapshot.Status }

// Expires returns the order expiry.
func (r *Resource) Expires() time.Time { return r.snapshot.Expires }

// FinalizeURL returns the URL the CSR is submitted to.
func (r *Resource) FinalizeURL() string { return r.snapshot.Finalize }

// CertificateURL returns the certificate URL, or "" until the order is valid.
func (r *Resource) CertificateURL() string { return r.snapshot.Certificate }

// AuthorizationURLs returns a copy of the authorization URLs.
func (r *Resource) AuthorizationURLs() []string {
	return append([]string{}, r.snapshot.Authorizations...)
}

// Identifiers returns a copy of the identifiers the order covers.
func (r *Resource) Identifiers() []resources.Identifier {
	return append([]resources.Identifier{}, r.snapshot.Identifiers...)
}

// Snapshot returns a copy of the current order attributes.
func (r *Resource) Snapshot() resources.Order {
	return r.snapshot.Copy()
}

// ToMap exports the order attributes keyed by name, for logging or
// serialization by the caller.
func (r *Resource) ToMap() map[string]any {
	s := r.Snapshot()
	return map[string]any{
		"url":                s.URL,
		"status":             s.Status,
		"expires":            s.Expires,
		"finalize_url":       s.Finalize,
		"authorization_urls": s.Authorizations,
		"identifiers":        s.Identifiers,
		"certificate_url":    s.Certificate,
	}
}

// Reload fetches the order from the server and replaces the snapshot. On
// error the snapshot is left unchanged.
func (r *Resource) Reload(ctx context.Context) error {
	fresh, err := r.client.FetchOrder(ctx, r.snapshot.URL)
	if err != nil {
		return err
	}
	return r.assign(fresh)
}

// Authorizations fetches every authorization of the order, in order. The
// first failure is returned and no authorizations are.
func (r *Resource) Authorizations(ctx context.Context) ([]*resources.Authorization, error) {
	authzs := make([]*resources.Authorization, 0, len(r.snapshot.Authorizations))
	for _, authzURL := range r.snapshot.Authorizations {
		authz, err := r.client.FetchAuthorization(ctx, authzURL)
		if err != nil {
			return nil, err
		}
		authzs = append(authzs, authz)
	}
	return authzs, nil
}

// Finalize submits the DER encoded csr and replaces the snapshot with the
// server's response. On error the snapshot is left unchanged.
func (r *Resource) Finalize(ctx context.Context, csr []byte) error {
	if len(csr) == 0 {
		return ErrEmptyCSR
	}
	fresh, err := r.client.SubmitFinalization(ctx, r.snapshot.Finalize, csr)
	if err != nil {
		return err
	}
	return r.assign(fresh)
}

// Certificate downloads the issued certificate chain.
//
// With an empty preferredChain the server's default chain is returned as is.
// Otherwise the default chain and then each alternate chain, in the order the
// server listed them, is checked and the first whose intermediate was issued
// by preferredChain is returned. Alternates are fetched one at a time and only
// until a match is found. When nothing matches a *ChainNotFoundError is
// returned; the default chain is never substituted.
func (r *Resource) Certificate(ctx context.Context, preferredChain string) (string, error) {
	certURL := r.snapshot.Certificate
	if certURL == "" {
		return "", ErrCertificateNotReady
	}

	chain, alternates, err := r.client.FetchCertificate(ctx, certURL)
	if err != nil {
		return "", err
	}
	r.alternateLinks = append([]string{}, alternates...)

	if preferredChain == "" {
		return chain, nil
	}

	log := r.log.WithFields(logrus.Fields{
		"url":    r.snapshot.URL,
		"issuer": preferredChain,
	})

	ok, err := issuedBy(chain, preferredChain)
	if err != nil {
		return "", err
	}
	if ok {
		log.Debug("default chain matches preferred issuer")
		return chain, nil
	}

	for _, link := range r.alternateLinks {
		alt, _, err := r.client.FetchCertificate(ctx, link)
		if err != nil {
			return "", err
		}
		ok, err := issuedBy(alt, preferredChain)
		if err != nil {
			return "", err
		}
		if ok {
			log.WithField("chain", link).Debug("alternate chain matches preferred issuer")
			return alt, nil
		}
	}

	return "", &ChainNotFoundError{Issuer: preferredChain}
}

// assign replaces the snapshot with fresh. The order URL never changes.
func (r *Resource) assign(fresh *resources.Order) error {
	if fresh == nil {
		return errors.Errorf("order: empty response for order %q", r.snapshot.URL)
	}
	next := fresh.Copy()
	next.URL = r.snapshot.URL
	if err := next.Validate(); err != nil {
		return errors.Wrapf(err, "order: invalid response for order %q", r.snapshot.URL)
	}
	if next.Status != r.snapshot.Status {
		r.log.WithFields(logrus.Fields{
			"url":    next.URL,
			"from":   r.snapshot.Status,
			"status": next.Status,
		}).Info("order status changed")
	}
	r.snapshot = next
	return nil
}
