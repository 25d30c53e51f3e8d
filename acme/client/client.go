// Package client provides a low-level ACME v2 client that speaks to the
// server on behalf of order.Resource values.
package client

import (
	"context"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"sync"

	"github.com/acmeorder/acmeorder/acme/order"
	"github.com/acmeorder/acmeorder/acme/resources"
	acmenet "github.com/acmeorder/acmeorder/net"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var _ order.Client = (*Client)(nil)

// Client allows interaction with an ACME server. Each client authenticates
// its requests with the ActiveAccount. Internally the Client uses the
// acmeorder/net package to perform HTTP requests to the ACME server.
//
// The Client's DirectoryURL field is a parsed *url.URL for the ACME server's
// directory. The client configures itself with the correct URLs for ACME
// operations using the directory resource accessed at this URL. See
// https://tools.ietf.org/html/rfc8555#section-7.1.1
//
// A Client is safe to share between many order.Resource values.
type Client struct {
	// A parsed *url.URL pointer for the ACME server's directory URL.
	DirectoryURL *url.URL
	// A pointer to the Account object used for signing JWS for ACME requests.
	ActiveAccount *resources.Account
	// Use POST-as-GET requests instead of GET
	PostAsGet bool

	net *acmenet.ACMENet
	log logrus.FieldLogger

	mu sync.Mutex
	// directory is an in-memory representation of the ACME server's directory
	// object.
	directory map[string]any
	// nonce is the value of the last-seen Replay-Nonce header from the ACME
	// server's HTTP responses. It will be used for the next signing operation.
	nonce string
}

// Config contains configuration options provided to NewClient when creating
// a Client instance.
//
// The DirectoryURL field is mandatory. It should be a fully qualified URL with
// a HTTP/HTTPS protocol prefix ("http://" or "https://").
//
// The CACert field is an optional path to a file of PEM encoded CA
// certificates used as trust roots for HTTPS requests to the ACME server. If
// empty the system roots are used. For a Pebble server it is the
// "test/certs/pebble.minica.pem" file from the Pebble source directory.
//
// When AccountPath is set NewClient restores the account saved there and uses
// it as the ActiveAccount. If nothing can be restored and AutoRegister is
// true a new account is created with ContactEmail and saved to AccountPath.
type Config struct {
	// A fully qualified URL for the ACME server's directory resource.
	DirectoryURL string
	// An optional file path to one or more PEM encoded CA certificates.
	CACert string
	// An optional email address used as the "mailto:" contact when
	// AutoRegister creates an account. Only one address is supported.
	ContactEmail string
	// An optional file path to a previously saved account.
	AccountPath string
	// Create a new account with the ACME server when none was restored.
	AutoRegister bool
	// Fetch orders, authorizations and certificates with POST-as-GET requests.
	POSTAsGET bool
	// An optional *http.Client used instead of one built from CACert.
	HTTPClient *http.Client
	// The logger used by the Client. Defaults to logrus.StandardLogger().
	Log logrus.FieldLogger
}

func (conf *Config) normalize() error {
	conf.DirectoryURL = strings.TrimSpace(conf.DirectoryURL)
	conf.ContactEmail = strings.TrimSpace(conf.ContactEmail)
	conf.AccountPath = strings.TrimSpace(conf.AccountPath)

	if conf.DirectoryURL == "" {
		return errors.New("DirectoryURL must not be empty")
	}

	u, err := url.Parse(conf.DirectoryURL)
	if err != nil {
		return errors.Wrap(err, "DirectoryURL invalid")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("DirectoryURL %q must use http or https", conf.DirectoryURL)
	}

	if conf.ContactEmail != "" {
		addr, err := mail.ParseAddress(conf.ContactEmail)
		if err != nil {
			return errors.Wrap(err, "ContactEmail is invalid")
		}
		conf.ContactEmail = addr.Address
	}

	if conf.Log == nil {
		conf.Log = logrus.StandardLogger()
	}
	return nil
}

// NewClient creates a Client from the given Config. The directory is fetched,
// an account is restored or registered as configured and a first nonce is
// obtained before the Client is returned.
func NewClient(ctx context.Context, conf Config) (*Client, error) {
	if err := conf.normalize(); err != nil {
		return nil, err
	}

	var net *acmenet.ACMENet
	if conf.HTTPClient != nil {
		net = acmenet.NewWithClient(conf.HTTPClient, conf.Log)
	} else {
		var err error
		if net, err = acmenet.New(conf.CACert, conf.Log); err != nil {
			return nil, errors.Wrap(err, "creating ACME net client")
		}
	}

	dirURL, _ := url.Parse(conf.DirectoryURL)
	c := &Client{
		DirectoryURL: dirURL,
		PostAsGet:    conf.POSTAsGET,
		net:          net,
		log:          conf.Log,
	}
	if c.PostAsGet {
		c.log.Info("using POST-as-GET requests")
	}

	if err := c.UpdateDirectory(ctx); err != nil {
		return nil, err
	}

	if err := c.setupAccount(ctx, conf); err != nil {
		return nil, err
	}

	if acctID := c.ActiveAccountID(); acctID != "" {
		c.log.WithField("account", acctID).Info("active account")
	}
	return c, nil
}

func (c *Client) setupAccount(ctx context.Context, conf Config) error {
	if conf.AccountPath != "" {
		log := c.log.WithField("path", conf.AccountPath)
		acct, err := resources.RestoreAccount(conf.AccountPath)
		switch {
		case err != nil && !conf.AutoRegister:
			return errors.Wrapf(err, "restoring account from %q", conf.AccountPath)
		case err != nil:
			log.WithError(err).Info("no account restored")
		default:
			c.ActiveAccount = acct
			log.WithField("account", acct.ID).Info("restored account")
		}
	}

	if !conf.AutoRegister {
		return nil
	}
	if c.ActiveAccountID() != "" {
		c.log.Debug("account loaded, skipping auto-registration")
		return nil
	}

	var contact []string
	if conf.ContactEmail != "" {
		contact = []string{conf.ContactEmail}
	}
	acct, err := resources.NewAccount(contact, nil)
	if err != nil {
		return err
	}
	if err := c.CreateAccount(ctx, acct); err != nil {
		return err
	}
	c.ActiveAccount = acct

	if conf.AccountPath != "" {
		if err := c.SaveAccount(conf.AccountPath); err != nil {
			return err
		}
	}
	return nil
}

// ActiveAccountID returns the ID of the ActiveAccount. If the ActiveAccount is
// nil or has not yet been created with the ACME server an empty string is
// returned.
func (c *Client) ActiveAccountID() string {
	if c.ActiveAccount == nil {
		return ""
	}
	return c.ActiveAccount.ID
}

// SaveAccount writes the ActiveAccount, including its order URLs, to path.
func (c *Client) SaveAccount(path string) error {
	if c.ActiveAccount == nil {
		return errors.New("no active account to save")
	}
	if err := resources.SaveAccount(path, c.ActiveAccount); err != nil {
		return errors.Wrapf(err, "saving account to %q", path)
	}
	c.log.WithField("path", path).Info("saved account")
	return nil
}
