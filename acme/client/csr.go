package client

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// CSR produces a Certificate Signing Request for the provided commonName and
// SAN names, signed by signer. If no commonName is provided the first of the
// names is used. Duplicate names are dropped. CSR returns the DER encoding
// used to finalize an order and its PEM encoding.
func CSR(commonName string, names []string, signer crypto.Signer) ([]byte, string, error) {
	names = lo.Uniq(lo.Compact(names))
	if len(names) == 0 {
		return nil, "", errors.New("csr: no names specified")
	}
	if signer == nil {
		return nil, "", errors.New("csr: no signer specified")
	}
	if commonName == "" {
		commonName = names[0]
	}

	template := x509.CertificateRequest{
		Subject: pkix.Name{
			CommonName: commonName,
		},
		DNSNames: names,
	}

	der, err := x509.CreateCertificateRequest(rand.Reader, &template, signer)
	if err != nil {
		return nil, "", errors.Wrap(err, "csr")
	}

	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type: "CERTIFICATE REQUEST", Bytes: der,
	})
	return der, string(pemBytes), nil
}
