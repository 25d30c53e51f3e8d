// Package acme provides ACME protocol constants. See RFC 8555.
package acme

const (
	// Directory constants
	// See https://tools.ietf.org/html/rfc8555#section-9.7.5

	// The ACME directory key for the newNonce endpoint
	NEW_NONCE_ENDPOINT = "newNonce"
	// The ACME directory key for the newAccount endpoint.
	NEW_ACCOUNT_ENDPOINT = "newAccount"
	// The ACME directory key for the newOrder endpoint.
	NEW_ORDER_ENDPOINT = "newOrder"

	// The HTTP response header used by ACME to communicate a fresh nonce. See
	// https://tools.ietf.org/html/rfc8555#section-9.3
	REPLAY_NONCE_HEADER = "Replay-Nonce"

	// The HTTP response header carrying links to related resources. A
	// certificate response lists alternate chains with rel="alternate". See
	// https://tools.ietf.org/html/rfc8555#section-7.4.2
	LINK_HEADER = "Link"
	// The Link relation used for alternate certificate chains.
	ALTERNATE_REL = "alternate"

	// Content types used by ACME requests and responses.
	// See https://tools.ietf.org/html/rfc8555#section-9.1
	JOSE_CONTENT_TYPE    = "application/jose+json"
	PROBLEM_CONTENT_TYPE = "application/problem+json"
	PEM_CHAIN_TYPE       = "application/pem-certificate-chain"
)

// Order status values.
// See https://tools.ietf.org/html/rfc8555#section-7.1.6
const (
	StatusPending    = "pending"
	StatusReady      = "ready"
	StatusProcessing = "processing"
	StatusValid      = "valid"
	StatusInvalid    = "invalid"
)

// Additional status values used by authorizations and challenges.
const (
	StatusDeactivated = "deactivated"
	StatusExpired     = "expired"
	StatusRevoked     = "revoked"
)
