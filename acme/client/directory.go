package client

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// Directory returns the cached ACME Directory resource, fetching it from the
// server first if needed.
//
// See https://tools.ietf.org/html/rfc8555#section-7.1.1
func (c *Client) Directory(ctx context.Context) (map[string]any, error) {
	c.mu.Lock()
	dir := c.directory
	c.mu.Unlock()
	if dir != nil {
		return dir, nil
	}

	if err := c.UpdateDirectory(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.directory, nil
}

// UpdateDirectory refreshes the Client's cached directory used when
// referencing the endpoints for nonces, accounts, and orders.
func (c *Client) UpdateDirectory(ctx context.Context) error {
	resp, err := c.net.GetURL(ctx, c.DirectoryURL.String())
	if err != nil {
		return errors.Wrap(err, "fetching directory")
	}
	if err := checkResponse(resp); err != nil {
		return errors.Wrap(err, "fetching directory")
	}

	var dir map[string]any
	if err := json.Unmarshal(resp.RespBody, &dir); err != nil {
		return errors.Wrap(err, "decoding directory")
	}

	c.mu.Lock()
	c.directory = dir
	c.mu.Unlock()
	c.log.WithField("url", c.DirectoryURL.String()).Debug("updated directory")
	return nil
}

// GetEndpointURL returns the URL of the named endpoint from the server's
// directory. The bool is false when the directory can not be fetched or has
// no non-empty string entry for name.
func (c *Client) GetEndpointURL(ctx context.Context, name string) (string, bool) {
	dir, err := c.Directory(ctx)
	if err != nil {
		return "", false
	}
	v, ok := dir[name].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (c *Client) endpoint(ctx context.Context, name string) (string, error) {
	u, ok := c.GetEndpointURL(ctx, name)
	if !ok {
		return "", errors.Errorf("ACME server missing %q endpoint in directory", name)
	}
	return u, nil
}
