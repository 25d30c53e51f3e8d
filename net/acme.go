// Package net provides common HTTP utilities.
package net

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/acmeorder/acmeorder/acme"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	version       = "0.1.0"
	userAgentBase = "acmeorder"
	locale        = "en-us"

	defaultTimeout = 30 * time.Second
)

type ACMENet struct {
	httpClient *http.Client
	log        logrus.FieldLogger
}

// New creates an ACMENet. If customCABundle is not empty it is read as a file
// of PEM encoded CA certificates used as the trust roots for HTTPS requests,
// otherwise the system roots are used.
func New(customCABundle string, log logrus.FieldLogger) (*ACMENet, error) {
	var caBundle *x509.CertPool
	if customCABundle != "" {
		pemBundle, err := os.ReadFile(customCABundle)
		if err != nil {
			return nil, errors.Wrapf(err, "reading CA bundle %q", customCABundle)
		}

		caBundle = x509.NewCertPool()
		if !caBundle.AppendCertsFromPEM(pemBundle) {
			return nil, errors.Errorf("no PEM certificates found in CA bundle %q", customCABundle)
		}
	}

	return NewWithClient(&http.Client{
		Timeout: defaultTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				RootCAs: caBundle,
			},
		},
	}, log), nil
}

// NewWithClient wraps an existing *http.Client.
func NewWithClient(httpClient *http.Client, log logrus.FieldLogger) *ACMENet {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ACMENet{
		httpClient: httpClient,
		log:        log,
	}
}

// NetResponse holds the results from calling Do with an HTTP Request.
type NetResponse struct {
	// The HTTP Response object from making the request.
	Response *http.Response
	// The response body.
	RespBody []byte
}

// Do performs an HTTP request, returning a pointer to a NetResponse instance or
// an error. User-Agent and Accept-Language headers are automatically added to
// the request. The body of the HTTP Response is read into the NetResponse and
// can not be read again.
func (c *ACMENet) Do(req *http.Request) (*NetResponse, error) {
	ua := fmt.Sprintf("%s %s (%s; %s)",
		userAgentBase, version, runtime.GOOS, runtime.GOARCH)
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept-Language", locale)

	log := c.log.WithFields(logrus.Fields{
		"method": req.Method,
		"url":    req.URL.String(),
	})
	log.Debug("sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(req.Method, "error").Inc()
		return nil, errors.Wrapf(err, "%s %q", req.Method, req.URL)
	}
	defer resp.Body.Close()
	requestsTotal.WithLabelValues(req.Method, strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s %q response body", req.Method, req.URL)
	}
	log.WithField("status", resp.StatusCode).Debug("received response")

	return &NetResponse{
		Response: resp,
		RespBody: respBody,
	}, nil
}

// HeadURL sends a HEAD request to the given URL.
func (c *ACMENet) HeadURL(ctx context.Context, url string) (*NetResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Convenience function to construct a POST request to the given URL with the
// given JWS body. Returns an HTTP request or a non-nil error.
func (c *ACMENet) PostRequest(ctx context.Context, url string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", acme.JOSE_CONTENT_TYPE)
	return req, nil
}

// Convenience function to POST the given URL with the given body. This is
// a wrapper combining PostRequest and Do.
func (c *ACMENet) PostURL(ctx context.Context, url string, body []byte) (*NetResponse, error) {
	req, err := c.PostRequest(ctx, url, body)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Convenience function to GET the given URL. This is a wrapper combining
// request construction and Do.
func (c *ACMENet) GetURL(ctx context.Context, url string) (*NetResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}
