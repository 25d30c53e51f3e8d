package getCert

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"testing"
	"time"

	"github.com/acmeorder/acmeorder/acme/order"
	"github.com/acmeorder/acmeorder/acme/resources"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.step.sm/crypto/minica"
)

type chainServer struct {
	chains map[string]string
	links  []string
	err    error
}

func (s *chainServer) FetchOrder(ctx context.Context, url string) (*resources.Order, error) {
	return nil, errors.New("not implemented")
}

func (s *chainServer) FetchAuthorization(ctx context.Context, url string) (*resources.Authorization, error) {
	return nil, errors.New("not implemented")
}

func (s *chainServer) SubmitFinalization(ctx context.Context, url string, csr []byte) (*resources.Order, error) {
	return nil, errors.New("not implemented")
}

func (s *chainServer) FetchCertificate(ctx context.Context, url string) (string, []string, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	if url == "https://acme.test/cert/1" {
		return s.chains[url], s.links, nil
	}
	return s.chains[url], nil, nil
}

func issue(t *testing.T, name string) (string, string) {
	t.Helper()
	ca, err := minica.New(minica.WithName(name))
	require.NoError(t, err)
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	leaf, err := ca.Sign(&x509.Certificate{
		Subject:   pkix.Name{CommonName: "example.com"},
		DNSNames:  []string{"example.com"},
		PublicKey: key.Public(),
		NotBefore: time.Now().Add(-time.Minute),
		NotAfter:  time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	chain := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: leaf.Raw})
	chain = append(chain, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: ca.Intermediate.Raw})...)
	return string(chain), ca.Root.Subject.CommonName
}

func newResource(t *testing.T, client order.Client, status, certURL string) *order.Resource {
	t.Helper()
	r, err := order.New(client, resources.Order{
		URL:            "https://acme.test/order/1",
		Status:         status,
		Expires:        time.Now().Add(time.Hour),
		Identifiers:    resources.DNSIdentifiers("example.com"),
		Authorizations: []string{},
		Finalize:       "https://acme.test/order/1/finalize",
		Certificate:    certURL,
	})
	require.NoError(t, err)
	return r
}

func TestCertificate(t *testing.T) {
	defaultChain, _ := issue(t, "Default Testing")
	altChain, altRoot := issue(t, "Alternate Testing")
	server := &chainServer{
		chains: map[string]string{
			"https://acme.test/cert/1":   defaultChain,
			"https://acme.test/cert/1/1": altChain,
		},
		links: []string{"https://acme.test/cert/1/1"},
	}
	ctx := context.Background()

	t.Run("not ready", func(t *testing.T) {
		r := newResource(t, server, "processing", "")
		_, err := certificate(ctx, r, "")
		require.Error(t, err)
		assert.Equal(t, `order "https://acme.test/order/1" is status "processing" and has no certificate yet`, err.Error())
	})

	t.Run("default", func(t *testing.T) {
		r := newResource(t, server, "valid", "https://acme.test/cert/1")
		chain, err := certificate(ctx, r, "")
		require.NoError(t, err)
		assert.Equal(t, defaultChain, chain)
	})

	t.Run("preferred alternate", func(t *testing.T) {
		r := newResource(t, server, "valid", "https://acme.test/cert/1")
		chain, err := certificate(ctx, r, altRoot)
		require.NoError(t, err)
		assert.Equal(t, altChain, chain)
	})

	t.Run("no matching chain", func(t *testing.T) {
		r := newResource(t, server, "valid", "https://acme.test/cert/1")
		_, err := certificate(ctx, r, "Unknown Root")
		require.Error(t, err)
		assert.Equal(t, `no chain issued by "Unknown Root" is offered for order "https://acme.test/order/1"`, err.Error())
	})

	t.Run("transport failure", func(t *testing.T) {
		boom := errors.New("connection refused")
		r := newResource(t, &chainServer{err: boom}, "valid", "https://acme.test/cert/1")
		_, err := certificate(ctx, r, "")
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "error getting certificate")
	})
}
