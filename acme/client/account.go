package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/acmeorder/acmeorder/acme"
	"github.com/acmeorder/acmeorder/acme/resources"
	"github.com/pkg/errors"
)

// CreateAccount creates the given Account resource with the ACME server. The
// Account's ID is set from the Location header of the server's response.
//
// CreateAccount always agrees to the server's terms of service.
//
// See https://tools.ietf.org/html/rfc8555#section-7.3
func (c *Client) CreateAccount(ctx context.Context, acct *resources.Account) error {
	if acct == nil {
		return errors.New("createAccount: account must not be nil")
	}
	if acct.ID != "" {
		return errors.Errorf("createAccount: account already exists under ID %q", acct.ID)
	}

	reqBody, err := json.Marshal(struct {
		Contact   []string `json:"contact,omitempty"`
		ToSAgreed bool     `json:"termsOfServiceAgreed"`
	}{
		Contact:   acct.Contact,
		ToSAgreed: true,
	})
	if err != nil {
		return err
	}

	newAcctURL, err := c.endpoint(ctx, acme.NEW_ACCOUNT_ENDPOINT)
	if err != nil {
		return errors.Wrap(err, "createAccount")
	}

	resp, err := c.signedPost(ctx, newAcctURL, reqBody, &SigningOptions{
		EmbedKey: true,
		Signer:   acct.Signer,
	})
	if err != nil {
		return errors.Wrap(err, "createAccount")
	}
	if code := resp.Response.StatusCode; code != http.StatusCreated && code != http.StatusOK {
		return errors.Errorf("createAccount: server returned status code %d, expected %d",
			code, http.StatusCreated)
	}

	loc := resp.Response.Header.Get("Location")
	if loc == "" {
		return errors.New("createAccount: server returned response with no Location header")
	}
	acct.ID = loc
	c.log.WithField("account", acct.ID).Info("created account")
	return nil
}
