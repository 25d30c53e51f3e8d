package client

import (
	"context"
	"crypto"

	"github.com/acmeorder/acmeorder/acme/keys"
	jose "github.com/go-jose/go-jose/v4"
	"github.com/pkg/errors"
)

// SigningOptions allows specifying signature related options when calling
// Sign.
type SigningOptions struct {
	// If true, embed the signer's public key as a JWK in the signed JWS instead
	// of using a KeyID header. This is required for the newAccount endpoint.
	// Setting EmbedKey to true is mutually exclusive with a non-empty KeyID.
	EmbedKey bool
	// If not empty, the JWS Key ID header identifying the ACME account. If
	// empty and EmbedKey is false the ActiveAccount's ID is used.
	KeyID string
	// If not nil, the key used to sign the JWS. If nil the ActiveAccount's key
	// is used.
	Signer crypto.Signer
	// NonceSource provides the JWS nonce header. Defaults to the Client's
	// nonces, fetched with the context given to Sign.
	NonceSource jose.NonceSource
}

// validate enforces the mutually exclusive KeyID and EmbedKey options and
// checks a Signer and NonceSource are present. It must only be called after
// the defaults are populated.
func (opts *SigningOptions) validate() error {
	if opts.KeyID != "" && opts.EmbedKey {
		return errors.New("cannot specify both KeyID and EmbedKey")
	}
	if opts.KeyID == "" && !opts.EmbedKey {
		return errors.New("must specify a KeyID or EmbedKey")
	}
	if opts.NonceSource == nil {
		return errors.New("must specify a NonceSource")
	}
	if opts.Signer == nil {
		return errors.New("must specify a signer")
	}
	return nil
}

// SignResult holds the input and output from a Sign operation.
type SignResult struct {
	// The url argument given to Sign.
	InputURL string
	// The data argument given to Sign.
	InputData []byte
	// The JWS produced by signing the given data.
	JWS *jose.JSONWebSignature
	// The JWS in serialized form.
	SerializedJWS []byte
}

// Sign signs data with a protected "url" header according to opts. Unset
// options are filled from the ActiveAccount and nonces come from the Client.
// A nil data produces the empty payload of a POST-as-GET request.
func (c *Client) Sign(ctx context.Context, url string, data []byte, opts *SigningOptions) (*SignResult, error) {
	// A nil payload is dropped from the serialized JWS entirely. POST-as-GET
	// requires "payload": "" to be present.
	if data == nil {
		data = []byte{}
	}

	o := SigningOptions{}
	if opts != nil {
		o = *opts
	}
	if o.Signer == nil {
		if c.ActiveAccount == nil {
			return nil, errors.New("sign: no active account and no signer specified")
		}
		o.Signer = c.ActiveAccount.Signer
	}
	if !o.EmbedKey && o.KeyID == "" {
		o.KeyID = c.ActiveAccountID()
	}
	if o.NonceSource == nil {
		o.NonceSource = ctxNonceSource{c: c, ctx: ctx}
		c.mu.Lock()
		empty := c.nonce == ""
		c.mu.Unlock()
		if empty {
			if err := c.RefreshNonce(ctx); err != nil {
				return nil, errors.Wrap(err, "sign")
			}
		}
	}
	if err := o.validate(); err != nil {
		return nil, errors.Wrap(err, "sign")
	}

	signingKey := keys.SigningKeyForSigner(o.Signer, o.KeyID)
	signer, err := jose.NewSigner(signingKey, &jose.SignerOptions{
		NonceSource: o.NonceSource,
		EmbedJWK:    o.EmbedKey,
		ExtraHeaders: map[jose.HeaderKey]any{
			"url": url,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "sign")
	}

	signed, err := signer.Sign(data)
	if err != nil {
		return nil, errors.Wrap(err, "sign")
	}
	serialized := signed.FullSerialize()

	// Reparse the serialized body to get a fully populated JWS object.
	parsed, err := jose.ParseSigned(serialized, []jose.SignatureAlgorithm{signingKey.Algorithm})
	if err != nil {
		return nil, errors.Wrap(err, "sign")
	}

	return &SignResult{
		InputURL:      url,
		InputData:     data,
		JWS:           parsed,
		SerializedJWS: []byte(serialized),
	}, nil
}
