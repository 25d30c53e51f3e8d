package order

import (
	"context"
	"crypto/x509/pkix"
	"testing"
	"time"

	"github.com/acmeorder/acmeorder/acme/resources"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type certResponse struct {
	chain      string
	alternates []string
	err        error
}

// mockClient serves canned responses and records the URLs it was asked for.
type mockClient struct {
	order     *resources.Order
	orderErr  error
	authzs    map[string]*resources.Authorization
	authzErr  map[string]error
	finalized *resources.Order
	certs     map[string]certResponse

	calls    []string
	finalURL string
	csr      []byte
}

func (m *mockClient) FetchOrder(ctx context.Context, url string) (*resources.Order, error) {
	m.calls = append(m.calls, url)
	return m.order, m.orderErr
}

func (m *mockClient) FetchAuthorization(ctx context.Context, url string) (*resources.Authorization, error) {
	m.calls = append(m.calls, url)
	if err := m.authzErr[url]; err != nil {
		return nil, err
	}
	return m.authzs[url], nil
}

func (m *mockClient) SubmitFinalization(ctx context.Context, url string, csr []byte) (*resources.Order, error) {
	m.calls = append(m.calls, url)
	m.finalURL = url
	m.csr = csr
	return m.finalized, nil
}

func (m *mockClient) FetchCertificate(ctx context.Context, url string) (string, []string, error) {
	m.calls = append(m.calls, url)
	resp, ok := m.certs[url]
	if !ok {
		return "", nil, errors.Errorf("unexpected certificate url %q", url)
	}
	return resp.chain, resp.alternates, resp.err
}

var testExpires = time.Date(2026, time.November, 1, 12, 0, 0, 0, time.UTC)

func pendingOrder() resources.Order {
	return resources.Order{
		URL:            "https://acme.test/order/1",
		Status:         "pending",
		Expires:        testExpires,
		Identifiers:    resources.DNSIdentifiers("example.com", "www.example.com"),
		Authorizations: []string{"https://acme.test/authz/1", "https://acme.test/authz/2"},
		Finalize:       "https://acme.test/order/1/finalize",
	}
}

func validOrder() resources.Order {
	o := pendingOrder()
	o.Status = "valid"
	o.Certificate = "https://acme.test/cert/1"
	return o
}

func newResource(t *testing.T, client Client, attrs resources.Order) *Resource {
	t.Helper()
	log, _ := test.NewNullLogger()
	r, err := New(client, attrs, WithLogger(log))
	require.NoError(t, err)
	return r
}

func TestNew(t *testing.T) {
	r := newResource(t, &mockClient{}, validOrder())

	assert.Equal(t, map[string]any{
		"url":                "https://acme.test/order/1",
		"status":             "valid",
		"expires":            testExpires,
		"finalize_url":       "https://acme.test/order/1/finalize",
		"authorization_urls": []string{"https://acme.test/authz/1", "https://acme.test/authz/2"},
		"identifiers": []resources.Identifier{
			{Type: "dns", Value: "example.com"},
			{Type: "dns", Value: "www.example.com"},
		},
		"certificate_url": "https://acme.test/cert/1",
	}, r.ToMap())

	assert.Equal(t, "valid", r.Status())
	assert.Equal(t, testExpires, r.Expires())
	assert.Equal(t, "https://acme.test/cert/1", r.CertificateURL())
	assert.Equal(t, "https://acme.test/order/1/finalize", r.FinalizeURL())

	pending := newResource(t, &mockClient{}, pendingOrder())
	assert.Equal(t, "", pending.CertificateURL())
	assert.Equal(t, "", pending.ToMap()["certificate_url"])
}

func TestNewCopiesAttributes(t *testing.T) {
	attrs := pendingOrder()
	r := newResource(t, &mockClient{}, attrs)

	attrs.Authorizations[0] = "changed"
	attrs.Identifiers[0].Value = "changed"
	assert.Equal(t, "https://acme.test/authz/1", r.AuthorizationURLs()[0])
	assert.Equal(t, "example.com", r.Identifiers()[0].Value)

	urls := r.AuthorizationURLs()
	urls[1] = "changed"
	assert.Equal(t, "https://acme.test/authz/2", r.AuthorizationURLs()[1])
}

func TestNewInvalid(t *testing.T) {
	tests := map[string]struct {
		modify func(*resources.Order)
		err    error
	}{
		"no-url":            {modify: func(o *resources.Order) { o.URL = "" }, err: resources.ErrMissingField},
		"no-status":         {modify: func(o *resources.Order) { o.Status = "" }, err: resources.ErrMissingField},
		"no-expires":        {modify: func(o *resources.Order) { o.Expires = time.Time{} }, err: resources.ErrMissingField},
		"no-finalize":       {modify: func(o *resources.Order) { o.Finalize = "" }, err: resources.ErrMissingField},
		"no-identifiers":    {modify: func(o *resources.Order) { o.Identifiers = nil }, err: resources.ErrMissingField},
		"nil-authorization": {modify: func(o *resources.Order) { o.Authorizations = nil }, err: resources.ErrMissingField},
		"unknown-status":    {modify: func(o *resources.Order) { o.Status = "done" }, err: resources.ErrUnknownStatus},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			attrs := pendingOrder()
			tc.modify(&attrs)
			_, err := New(&mockClient{}, attrs)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	_, err := New(nil, pendingOrder())
	assert.Error(t, err)
}

func TestReload(t *testing.T) {
	fresh := validOrder()
	fresh.URL = "https://acme.test/elsewhere"
	fresh.Authorizations = []string{"https://acme.test/authz/1"}
	client := &mockClient{order: &fresh}

	log, hook := test.NewNullLogger()
	r, err := New(client, pendingOrder(), WithLogger(log))
	require.NoError(t, err)

	require.NoError(t, r.Reload(context.Background()))
	assert.Equal(t, []string{"https://acme.test/order/1"}, client.calls)

	want := validOrder()
	want.Authorizations = []string{"https://acme.test/authz/1"}
	if diff := cmp.Diff(want, r.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "pending", entry.Data["from"])
	assert.Equal(t, "valid", entry.Data["status"])
}

func TestReloadClearsCertificate(t *testing.T) {
	fresh := pendingOrder()
	fresh.Status = "processing"
	r := newResource(t, &mockClient{order: &fresh}, validOrder())

	require.NoError(t, r.Reload(context.Background()))
	assert.Equal(t, "processing", r.Status())
	assert.Equal(t, "", r.CertificateURL())
}

func TestReloadFailure(t *testing.T) {
	boom := errors.New("connection refused")
	invalid := pendingOrder()
	invalid.Finalize = ""

	tests := map[string]struct {
		client *mockClient
		check  func(t *testing.T, err error)
	}{
		"transport": {
			client: &mockClient{orderErr: boom},
			check: func(t *testing.T, err error) {
				assert.Equal(t, boom, err)
			},
		},
		"invalid-response": {
			client: &mockClient{order: &invalid},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, resources.ErrMissingField)
			},
		},
		"empty-response": {
			client: &mockClient{},
			check: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			r := newResource(t, tc.client, pendingOrder())
			before := r.Snapshot()
			tc.check(t, r.Reload(context.Background()))
			if diff := cmp.Diff(before, r.Snapshot()); diff != "" {
				t.Errorf("snapshot changed on failure (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAuthorizations(t *testing.T) {
	first := &resources.Authorization{Status: "pending", Identifier: resources.Identifier{Type: "dns", Value: "example.com"}}
	second := &resources.Authorization{Status: "valid", Identifier: resources.Identifier{Type: "dns", Value: "www.example.com"}}
	client := &mockClient{authzs: map[string]*resources.Authorization{
		"https://acme.test/authz/1": first,
		"https://acme.test/authz/2": second,
	}}
	r := newResource(t, client, pendingOrder())

	authzs, err := r.Authorizations(context.Background())
	require.NoError(t, err)
	require.Len(t, authzs, 2)
	assert.Same(t, first, authzs[0])
	assert.Same(t, second, authzs[1])
	assert.Equal(t, []string{"https://acme.test/authz/1", "https://acme.test/authz/2"}, client.calls)

	empty := pendingOrder()
	empty.Authorizations = []string{}
	authzs, err = newResource(t, &mockClient{}, empty).Authorizations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, authzs)
}

func TestAuthorizationsAbort(t *testing.T) {
	boom := errors.New("authorization gone")
	attrs := pendingOrder()
	attrs.Authorizations = append(attrs.Authorizations, "https://acme.test/authz/3")
	client := &mockClient{
		authzs: map[string]*resources.Authorization{
			"https://acme.test/authz/1": {Status: "valid"},
			"https://acme.test/authz/3": {Status: "valid"},
		},
		authzErr: map[string]error{"https://acme.test/authz/2": boom},
	}
	r := newResource(t, client, attrs)

	authzs, err := r.Authorizations(context.Background())
	assert.Equal(t, boom, err)
	assert.Nil(t, authzs)
	assert.Equal(t, []string{"https://acme.test/authz/1", "https://acme.test/authz/2"}, client.calls)
}

func TestFinalize(t *testing.T) {
	processing := pendingOrder()
	processing.Status = "processing"
	client := &mockClient{finalized: &processing}
	r := newResource(t, client, pendingOrder())

	assert.Equal(t, ErrEmptyCSR, r.Finalize(context.Background(), nil))
	assert.Empty(t, client.calls)

	csr := []byte{0x30, 0x82, 0x01}
	require.NoError(t, r.Finalize(context.Background(), csr))
	assert.Equal(t, "https://acme.test/order/1/finalize", client.finalURL)
	assert.Equal(t, csr, client.csr)
	assert.Equal(t, "processing", r.Status())
	assert.Equal(t, "https://acme.test/order/1", r.URL())
}

func TestCertificateNotReady(t *testing.T) {
	client := &mockClient{}
	r := newResource(t, client, pendingOrder())

	_, err := r.Certificate(context.Background(), "")
	assert.Equal(t, ErrCertificateNotReady, err)
	_, err = r.Certificate(context.Background(), "Some Root")
	assert.Equal(t, ErrCertificateNotReady, err)
	assert.Empty(t, client.calls)
}

// chains returns a default chain issued under "Default Root" and three
// alternates issued under "Alt Root 1", "Alt Root 2" and "Alt Root 3".
func chains(t *testing.T) (string, []string) {
	t.Helper()
	def := newTestCA(t, pkix.Name{CommonName: "Default Root", Organization: []string{"Default Org"}}, "Default Intermediate")
	var alts []string
	for _, cn := range []string{"Alt Root 1", "Alt Root 2", "Alt Root 3"} {
		ca := newTestCA(t, pkix.Name{CommonName: cn, Organization: []string{"Alt Org"}}, cn+" Intermediate")
		alts = append(alts, ca.chain(t, "example.com"))
	}
	return def.chain(t, "example.com"), alts
}

func certClient(def string, alts []string) *mockClient {
	links := []string{"https://acme.test/cert/1/1", "https://acme.test/cert/1/2", "https://acme.test/cert/1/3"}
	certs := map[string]certResponse{
		"https://acme.test/cert/1": {chain: def, alternates: links},
	}
	for i, alt := range alts {
		certs[links[i]] = certResponse{chain: alt}
	}
	return &mockClient{certs: certs}
}

func TestCertificate(t *testing.T) {
	def, alts := chains(t)

	tests := map[string]struct {
		preferred string
		want      string
		calls     []string
	}{
		"no-preference": {
			want:  def,
			calls: []string{"https://acme.test/cert/1"},
		},
		"default-matches": {
			preferred: "Default Root",
			want:      def,
			calls:     []string{"https://acme.test/cert/1"},
		},
		"default-matches-organization": {
			preferred: "Default Org",
			want:      def,
			calls:     []string{"https://acme.test/cert/1"},
		},
		"first-alternate": {
			preferred: "Alt Root 1",
			want:      alts[0],
			calls:     []string{"https://acme.test/cert/1", "https://acme.test/cert/1/1"},
		},
		"third-alternate": {
			preferred: "Alt Root 3",
			want:      alts[2],
			calls: []string{
				"https://acme.test/cert/1",
				"https://acme.test/cert/1/1",
				"https://acme.test/cert/1/2",
				"https://acme.test/cert/1/3",
			},
		},
		"first-match-wins": {
			preferred: "Alt Org",
			want:      alts[0],
			calls:     []string{"https://acme.test/cert/1", "https://acme.test/cert/1/1"},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			client := certClient(def, alts)
			r := newResource(t, client, validOrder())

			got, err := r.Certificate(context.Background(), tc.preferred)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.calls, client.calls)
		})
	}
}

func TestCertificateNotFound(t *testing.T) {
	def, alts := chains(t)
	client := certClient(def, alts)
	r := newResource(t, client, validOrder())

	got, err := r.Certificate(context.Background(), "Nobody Root")
	assert.Empty(t, got)
	var cnf *ChainNotFoundError
	require.True(t, errors.As(err, &cnf), "got %v", err)
	assert.Equal(t, "Nobody Root", cnf.Issuer)
	assert.Contains(t, err.Error(), `"Nobody Root"`)
	assert.Len(t, client.calls, 4)

	// An intermediate's own name is not its issuer.
	_, err = r.Certificate(context.Background(), "Default Intermediate")
	assert.True(t, errors.As(err, &cnf))
}

func TestCertificateParseError(t *testing.T) {
	def, alts := chains(t)

	client := certClient("garbage", alts)
	r := newResource(t, client, validOrder())
	_, err := r.Certificate(context.Background(), "Alt Root 1")
	var perr *ParseError
	require.True(t, errors.As(err, &perr), "got %v", err)
	var cnf *ChainNotFoundError
	assert.False(t, errors.As(err, &cnf))
	assert.Equal(t, []string{"https://acme.test/cert/1"}, client.calls)

	// Without a preference the default chain is returned untouched.
	got, err := r.Certificate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "garbage", got)

	broken := []string{alts[0], "-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n", alts[2]}
	client = certClient(def, broken)
	r = newResource(t, client, validOrder())
	_, err = r.Certificate(context.Background(), "Alt Root 3")
	require.True(t, errors.As(err, &perr), "got %v", err)
	assert.Equal(t, 0, perr.Index)
	assert.Len(t, client.calls, 3)
}

func TestCertificateTransportError(t *testing.T) {
	def, alts := chains(t)
	boom := errors.New("timeout")
	client := certClient(def, alts)
	client.certs["https://acme.test/cert/1/2"] = certResponse{err: boom}
	r := newResource(t, client, validOrder())

	_, err := r.Certificate(context.Background(), "Alt Root 3")
	assert.Equal(t, boom, err)
	assert.Len(t, client.calls, 3)
}

func TestCertificateAlternateLinks(t *testing.T) {
	def, alts := chains(t)
	client := certClient(def, alts)
	r := newResource(t, client, validOrder())

	_, err := r.Certificate(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, r.alternateLinks, 3)

	client.certs["https://acme.test/cert/1"] = certResponse{chain: def}
	_, err = r.Certificate(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, r.alternateLinks)
}
