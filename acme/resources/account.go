// Package resources provides types for representing ACME protocol resources.
package resources

import (
	"crypto"
	"encoding/json"
	"fmt"
	"os"

	"github.com/acmeorder/acmeorder/acme/keys"
	"github.com/pkg/errors"
)

// Account holds information related to a single ACME Account resource. If the
// account has an empty ID it has not yet been created server-side with the ACME
// server using the client.CreateAccount function.
//
// The ID field holds the server assigned Account ID that is assigned at the
// time of account creation and used as the JWS KeyID for authenticating ACME
// requests with the Account's registered keypair.
//
// The Contact field is either nil or a slice of one or more "mailto:" contact
// addresses.
//
// The Orders field is either nil or a slice of Order resource URLs that the
// Account created with the ACME server.
type Account struct {
	// The server assigned Account ID.
	ID string
	// If not nil, a slice of one or more "mailto:" Contact addresses.
	Contact []string
	// The private key of the Account's keypair.
	Signer crypto.Signer
	// If not nil, a slice of URLs for Order resources the Account created with
	// the ACME server.
	Orders []string
}

// String returns the Account's ID or an empty string if it has not been created
// with the ACME server.
func (a Account) String() string {
	return a.ID
}

// NewAccount creates an ACME account in-memory. *Important:* the
// created Account is *not* registered with the ACME server until
// it is explicitly "created" server-side using a Client instance's
// CreateAccount function.
//
// If the signer argument is nil a new random ECDSA key is generated for the
// Account.
func NewAccount(emails []string, signer crypto.Signer) (*Account, error) {
	var contacts []string
	for _, e := range emails {
		if e == "" {
			continue
		}
		contacts = append(contacts, fmt.Sprintf("mailto:%s", e))
	}

	if signer == nil {
		randKey, err := keys.NewSigner("ecdsa")
		if err != nil {
			return nil, err
		}
		signer = randKey
	}

	return &Account{
		Contact: contacts,
		Signer:  signer,
	}, nil
}

// OrderURL returns the URL of the Account's order at the given index.
func (a *Account) OrderURL(index int) (string, error) {
	if index < 0 || index >= len(a.Orders) {
		return "", errors.Errorf("order index %d out of range, account has %d orders",
			index, len(a.Orders))
	}
	return a.Orders[index], nil
}

// SaveAccount persists the given Account object (which must not be nil) to the
// given file path.
func SaveAccount(path string, account *Account) error {
	if account == nil {
		return errors.New("account must not be nil")
	}
	frozenBytes, err := account.save()
	if err != nil {
		return err
	}
	return os.WriteFile(path, frozenBytes, 0600)
}

// RestoreAccount loads a previously saved Account object from the given file
// path. This file should have been created using SaveAccount in a previous
// session.
func RestoreAccount(path string) (*Account, error) {
	frozenBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading account %q", path)
	}

	acct := &Account{}
	if err := acct.restore(frozenBytes); err != nil {
		return nil, errors.Wrapf(err, "restoring account %q", path)
	}
	return acct, nil
}

type rawAccount struct {
	ID         string
	Contact    []string
	KeyType    string
	PrivateKey []byte
	Orders     []string `json:",omitempty"`
}

func (a *Account) save() ([]byte, error) {
	k, keyType, err := keys.MarshalSigner(a.Signer)
	if err != nil {
		return nil, err
	}

	rawAcct := rawAccount{
		ID:         a.ID,
		Contact:    a.Contact,
		KeyType:    keyType,
		PrivateKey: k,
		Orders:     a.Orders,
	}
	return json.MarshalIndent(rawAcct, "", "  ")
}

func (a *Account) restore(frozenAcct []byte) error {
	var rawAcct rawAccount
	if err := json.Unmarshal(frozenAcct, &rawAcct); err != nil {
		return err
	}

	signer, err := keys.UnmarshalSigner(rawAcct.PrivateKey, rawAcct.KeyType)
	if err != nil {
		return err
	}

	a.ID = rawAcct.ID
	a.Contact = rawAcct.Contact
	a.Signer = signer
	a.Orders = rawAcct.Orders
	return nil
}
