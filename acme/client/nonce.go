package client

import (
	"context"
	"net/http"

	"github.com/acmeorder/acmeorder/acme"
	acmenet "github.com/acmeorder/acmeorder/net"
	"github.com/pkg/errors"
)

// Nonce satisfies the jose.NonceSource interface. It hands out the nonce
// stored from the last server response, fetching a fresh one from the
// newNonce endpoint when none is stored. A nonce is never handed out twice.
//
// A fetch made here cannot be cancelled. Sign binds the caller's context
// instead, so prefer it over passing the Client to go-jose directly.
func (c *Client) Nonce() (string, error) {
	return c.nonceContext(context.Background())
}

func (c *Client) nonceContext(ctx context.Context) (string, error) {
	for {
		c.mu.Lock()
		n := c.nonce
		c.nonce = ""
		c.mu.Unlock()
		if n != "" {
			return n, nil
		}
		if err := c.RefreshNonce(ctx); err != nil {
			return "", err
		}
	}
}

// ctxNonceSource is the jose.NonceSource used by Sign. Fetches are bound to
// the context of the sign call.
type ctxNonceSource struct {
	c   *Client
	ctx context.Context
}

func (s ctxNonceSource) Nonce() (string, error) {
	return s.c.nonceContext(s.ctx)
}

// RefreshNonce fetches a new nonce from the ACME server's newNonce endpoint
// and stores it to be used by the next Nonce call.
//
// See https://tools.ietf.org/html/rfc8555#section-7.2
func (c *Client) RefreshNonce(ctx context.Context) error {
	nonceURL, err := c.endpoint(ctx, acme.NEW_NONCE_ENDPOINT)
	if err != nil {
		return err
	}

	resp, err := c.net.HeadURL(ctx, nonceURL)
	if err != nil {
		return err
	}
	if code := resp.Response.StatusCode; code != http.StatusOK && code != http.StatusNoContent {
		return errors.Errorf("%q returned HTTP status %d, expected %d",
			acme.NEW_NONCE_ENDPOINT, code, http.StatusOK)
	}

	nonce := resp.Response.Header.Get(acme.REPLAY_NONCE_HEADER)
	if nonce == "" {
		return errors.Errorf("%q returned no %q header value",
			acme.NEW_NONCE_ENDPOINT, acme.REPLAY_NONCE_HEADER)
	}

	c.mu.Lock()
	c.nonce = nonce
	c.mu.Unlock()
	c.log.WithField("nonce", nonce).Debug("updated nonce")
	return nil
}

// saveNonce keeps the Replay-Nonce of any server response for the next
// signing operation.
func (c *Client) saveNonce(resp *acmenet.NetResponse) {
	nonce := resp.Response.Header.Get(acme.REPLAY_NONCE_HEADER)
	if nonce == "" {
		return
	}
	c.mu.Lock()
	c.nonce = nonce
	c.mu.Unlock()
}
