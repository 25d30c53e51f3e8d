// package keys offers utility functions for working with crypto.Signers, JWS,
// JWKs and PEM serialization.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/pkg/errors"
)

// SigAlgForKey returns the JWS algorithm used to sign with the given signer.
func SigAlgForKey(signer crypto.Signer) jose.SignatureAlgorithm {
	switch signer.(type) {
	case *ecdsa.PrivateKey:
		return jose.ES256
	case *rsa.PrivateKey:
		return jose.RS256
	}
	return "unknown"
}

func JWKForSigner(signer crypto.Signer) jose.JSONWebKey {
	return jose.JSONWebKey{
		Key:       signer.Public(),
		Algorithm: string(SigAlgForKey(signer)),
	}
}

func JWKThumbprint(signer crypto.Signer) string {
	jwk := JWKForSigner(signer)
	thumbBytes, _ := jwk.Thumbprint(crypto.SHA256)
	return base64.RawURLEncoding.EncodeToString(thumbBytes)
}

// SigningKeyForSigner returns a jose.SigningKey for the signer. When keyID is
// not empty it is carried as the JWS "kid" header.
func SigningKeyForSigner(signer crypto.Signer, keyID string) jose.SigningKey {
	if keyID == "" {
		return jose.SigningKey{
			Key:       signer,
			Algorithm: SigAlgForKey(signer),
		}
	}
	jwk := jose.JSONWebKey{
		Key:       signer,
		Algorithm: string(SigAlgForKey(signer)),
		KeyID:     keyID,
	}
	return jose.SigningKey{
		Key:       jwk,
		Algorithm: SigAlgForKey(signer),
	}
}

func MarshalSigner(signer crypto.Signer) ([]byte, string, error) {
	switch k := signer.(type) {
	case *ecdsa.PrivateKey:
		keyBytes, err := x509.MarshalECPrivateKey(k)
		return keyBytes, "ecdsa", err
	case *rsa.PrivateKey:
		return x509.MarshalPKCS1PrivateKey(k), "rsa", nil
	}
	return nil, "", errors.Errorf("signer was unknown type: %T", signer)
}

func UnmarshalSigner(keyBytes []byte, keyType string) (crypto.Signer, error) {
	switch keyType {
	case "ecdsa":
		return x509.ParseECPrivateKey(keyBytes)
	case "rsa":
		return x509.ParsePKCS1PrivateKey(keyBytes)
	}
	return nil, errors.Errorf("unknown key type %q", keyType)
}

func SignerToPEM(signer crypto.Signer) (string, error) {
	keyBytes, keyType, err := MarshalSigner(signer)
	if err != nil {
		return "", err
	}
	keyHeader := "EC PRIVATE KEY"
	if keyType == "rsa" {
		keyHeader = "RSA PRIVATE KEY"
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  keyHeader,
		Bytes: keyBytes,
	})
	return string(pemBytes), nil
}

// NewSigner generates a random "ecdsa" (P-256) or "rsa" (2048 bit) key.
func NewSigner(keyType string) (crypto.Signer, error) {
	switch keyType {
	case "ecdsa":
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case "rsa":
		return rsa.GenerateKey(rand.Reader, 2048)
	}
	return nil, errors.Errorf("unknown key type: %q", keyType)
}
