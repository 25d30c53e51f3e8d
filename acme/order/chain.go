package order

import (
	"crypto/x509/pkix"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.step.sm/crypto/pemutil"
)

const endCertificate = "-----END CERTIFICATE-----"

// SplitChain splits a PEM certificate chain into one PEM text per
// certificate, leaf first. Every unit is re-terminated with the END
// CERTIFICATE marker so it can be parsed on its own. Whitespace between or
// after certificates is dropped. The units are not parsed here.
func SplitChain(chain string) ([]string, error) {
	var units []string
	for _, piece := range strings.Split(chain, endCertificate) {
		piece = strings.TrimLeft(piece, "\r\n")
		if strings.TrimSpace(piece) == "" {
			continue
		}
		units = append(units, piece+endCertificate+"\n")
	}
	if len(units) == 0 {
		return nil, &ParseError{Index: -1, Err: errors.New("no certificates found")}
	}
	return units, nil
}

// IssuerNames parses a single PEM certificate and returns the values of every
// attribute of its issuer distinguished name.
func IssuerNames(unit string) ([]string, error) {
	cert, err := pemutil.ParseCertificate([]byte(unit))
	if err != nil {
		return nil, err
	}
	return lo.Map(cert.Issuer.Names, func(atv pkix.AttributeTypeAndValue, _ int) string {
		return fmt.Sprint(atv.Value)
	}), nil
}

// issuedBy reports whether the intermediate of the chain, the second
// certificate, names the preferred issuer among its issuer DN values. A
// chain holding only a leaf is checked against the leaf itself.
func issuedBy(chain, preferred string) (bool, error) {
	units, err := SplitChain(chain)
	if err != nil {
		return false, err
	}
	index := 0
	if len(units) > 1 {
		index = 1
	}
	names, err := IssuerNames(units[index])
	if err != nil {
		return false, &ParseError{Index: index, Err: err}
	}
	return lo.Contains(names, preferred), nil
}
