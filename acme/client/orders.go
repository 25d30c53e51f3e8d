package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/acmeorder/acmeorder/acme"
	"github.com/acmeorder/acmeorder/acme/resources"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// CreateOrder creates a new Order for the identifiers with the ACME server.
// The returned Order's URL is the server's Location header. Only an order that
// passes Validate is appended to the ActiveAccount's Orders.
//
// See https://tools.ietf.org/html/rfc8555#section-7.4
func (c *Client) CreateOrder(ctx context.Context, identifiers []resources.Identifier) (*resources.Order, error) {
	if c.ActiveAccountID() == "" {
		return nil, errors.New("createOrder: active account is nil or has not been created")
	}
	if len(identifiers) == 0 {
		return nil, errors.New("createOrder: no identifiers specified")
	}

	reqBody, err := json.Marshal(struct {
		Identifiers []resources.Identifier `json:"identifiers"`
	}{
		Identifiers: identifiers,
	})
	if err != nil {
		return nil, err
	}

	newOrderURL, err := c.endpoint(ctx, acme.NEW_ORDER_ENDPOINT)
	if err != nil {
		return nil, errors.Wrap(err, "createOrder")
	}

	resp, err := c.signedPost(ctx, newOrderURL, reqBody, nil)
	if err != nil {
		return nil, errors.Wrap(err, "createOrder")
	}
	if code := resp.Response.StatusCode; code != http.StatusCreated {
		return nil, errors.Errorf("createOrder: server returned status code %d, expected %d",
			code, http.StatusCreated)
	}

	loc := resp.Response.Header.Get("Location")
	if loc == "" {
		return nil, errors.New("createOrder: server returned response with no Location header")
	}

	var o resources.Order
	if err := json.Unmarshal(resp.RespBody, &o); err != nil {
		return nil, errors.Wrap(err, "createOrder: server returned invalid JSON")
	}
	o.URL = loc
	if err := o.Validate(); err != nil {
		return nil, errors.Wrap(err, "createOrder: server returned an unusable order")
	}

	c.ActiveAccount.Orders = append(c.ActiveAccount.Orders, o.URL)
	c.log.WithFields(logrus.Fields{
		"url":         o.URL,
		"identifiers": lo.Map(identifiers, func(id resources.Identifier, _ int) string { return id.Value }),
	}).Info("created order")
	return &o, nil
}

// FetchOrder returns the Order at url.
func (c *Client) FetchOrder(ctx context.Context, url string) (*resources.Order, error) {
	resp, err := c.fetch(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching order %q", url)
	}

	var o resources.Order
	if err := json.Unmarshal(resp.RespBody, &o); err != nil {
		return nil, errors.Wrapf(err, "decoding order %q", url)
	}
	o.URL = url
	return &o, nil
}

// FetchAuthorization returns the Authorization at url.
func (c *Client) FetchAuthorization(ctx context.Context, url string) (*resources.Authorization, error) {
	resp, err := c.fetch(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching authorization %q", url)
	}

	var authz resources.Authorization
	if err := json.Unmarshal(resp.RespBody, &authz); err != nil {
		return nil, errors.Wrapf(err, "decoding authorization %q", url)
	}
	authz.URL = url
	return &authz, nil
}

// SubmitFinalization posts the DER encoded CSR to the order's finalize URL and
// returns the updated Order. The Order's URL is taken from the response's
// Location header when present.
//
// See https://tools.ietf.org/html/rfc8555#section-7.4
func (c *Client) SubmitFinalization(ctx context.Context, url string, csr []byte) (*resources.Order, error) {
	reqBody, err := json.Marshal(struct {
		CSR string `json:"csr"`
	}{
		CSR: base64.RawURLEncoding.EncodeToString(csr),
	})
	if err != nil {
		return nil, err
	}

	resp, err := c.signedPost(ctx, url, reqBody, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "finalizing %q", url)
	}

	var o resources.Order
	if err := json.Unmarshal(resp.RespBody, &o); err != nil {
		return nil, errors.Wrapf(err, "decoding finalized order from %q", url)
	}
	o.URL = resp.Response.Header.Get("Location")
	return &o, nil
}

// FetchCertificate downloads the PEM certificate chain at url. The URLs of
// the alternate chains the server advertises with Link rel="alternate"
// headers are returned in the order the server sent them.
//
// See https://tools.ietf.org/html/rfc8555#section-7.4.2
func (c *Client) FetchCertificate(ctx context.Context, url string) (string, []string, error) {
	resp, err := c.fetch(ctx, url)
	if err != nil {
		return "", nil, errors.Wrapf(err, "fetching certificate %q", url)
	}

	alternates := linksByRel(resp.Response.Header.Values(acme.LINK_HEADER), acme.ALTERNATE_REL, resp.Response.Request.URL)
	return string(resp.RespBody), alternates, nil
}

// OrderByIndex fetches the Order at the given index of the ActiveAccount's
// Orders.
func (c *Client) OrderByIndex(ctx context.Context, index int) (*resources.Order, error) {
	if c.ActiveAccountID() == "" {
		return nil, errors.New("orderByIndex: active account is nil or has not been created")
	}
	orderURL, err := c.ActiveAccount.OrderURL(index)
	if err != nil {
		return nil, err
	}
	return c.FetchOrder(ctx, orderURL)
}
