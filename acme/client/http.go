package client

import (
	"context"
	"encoding/json"
	"mime"

	"github.com/acmeorder/acmeorder/acme"
	"github.com/acmeorder/acmeorder/acme/resources"
	acmenet "github.com/acmeorder/acmeorder/net"
	"github.com/pkg/errors"
)

// GetURL sends an unauthenticated GET request to url.
func (c *Client) GetURL(ctx context.Context, url string) (*acmenet.NetResponse, error) {
	resp, err := c.net.GetURL(ctx, url)
	if err != nil {
		return nil, err
	}
	c.saveNonce(resp)
	return resp, nil
}

// PostURL sends the serialized JWS body to url.
func (c *Client) PostURL(ctx context.Context, url string, body []byte) (*acmenet.NetResponse, error) {
	resp, err := c.net.PostURL(ctx, url, body)
	if err != nil {
		return nil, err
	}
	c.saveNonce(resp)
	return resp, nil
}

// PostAsGetURL sends a POST-as-GET request for url signed by the
// ActiveAccount.
//
// See https://tools.ietf.org/html/rfc8555#section-6.3
func (c *Client) PostAsGetURL(ctx context.Context, url string) (*acmenet.NetResponse, error) {
	return c.signedPost(ctx, url, nil, nil)
}

// signedPost signs data according to opts, or with the ActiveAccount when opts
// is nil, posts it to url and fails on any error response. A badNonce rejection is retried once with the fresh
// nonce the server sent along with it.
//
// See https://tools.ietf.org/html/rfc8555#section-6.5
func (c *Client) signedPost(ctx context.Context, url string, data []byte, opts *SigningOptions) (*acmenet.NetResponse, error) {
	var resp *acmenet.NetResponse
	for attempt := 0; attempt < 2; attempt++ {
		signed, err := c.Sign(ctx, url, data, opts)
		if err != nil {
			return nil, err
		}
		resp, err = c.PostURL(ctx, url, signed.SerializedJWS)
		if err != nil {
			return nil, err
		}
		err = checkResponse(resp)
		var prob *resources.Problem
		if errors.As(err, &prob) && prob.HasType("badNonce") && attempt == 0 {
			c.log.WithField("url", url).Debug("retrying request after badNonce")
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}
	return resp, nil
}

// fetch retrieves a resource with POST-as-GET or GET depending on the
// Client's PostAsGet setting and fails on any error response.
func (c *Client) fetch(ctx context.Context, url string) (*acmenet.NetResponse, error) {
	if c.PostAsGet {
		return c.PostAsGetURL(ctx, url)
	}
	resp, err := c.GetURL(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// checkResponse returns nil for a 2xx response. Otherwise it returns the
// server's *resources.Problem when the body is an RFC 7807 problem document,
// or a generic error carrying the status code.
func checkResponse(resp *acmenet.NetResponse) error {
	code := resp.Response.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Response.Header.Get("Content-Type"))
	if mediaType == acme.PROBLEM_CONTENT_TYPE || mediaType == "application/json" {
		var prob resources.Problem
		if err := json.Unmarshal(resp.RespBody, &prob); err == nil && prob.Type != "" {
			if prob.Status == 0 {
				prob.Status = code
			}
			return &prob
		}
	}
	return errors.Errorf("server returned HTTP status %d", code)
}
