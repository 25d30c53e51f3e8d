package resources

import (
	"path/filepath"
	"testing"

	"github.com/acmeorder/acmeorder/acme/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccount(t *testing.T) {
	acct, err := NewAccount([]string{"", "admin@example.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"mailto:admin@example.com"}, acct.Contact)
	assert.NotNil(t, acct.Signer)
	assert.Empty(t, acct.String())
}

func TestSaveRestoreAccount(t *testing.T) {
	for _, keyType := range []string{"ecdsa", "rsa"} {
		t.Run(keyType, func(t *testing.T) {
			signer, err := keys.NewSigner(keyType)
			require.NoError(t, err)
			acct, err := NewAccount([]string{"admin@example.com"}, signer)
			require.NoError(t, err)
			acct.ID = "https://acme.example.com/acct/1"
			acct.Orders = []string{"https://acme.example.com/order/1"}

			path := filepath.Join(t.TempDir(), "account.json")
			require.NoError(t, SaveAccount(path, acct))

			restored, err := RestoreAccount(path)
			require.NoError(t, err)
			assert.Equal(t, acct.ID, restored.ID)
			assert.Equal(t, acct.Contact, restored.Contact)
			assert.Equal(t, acct.Orders, restored.Orders)
			assert.Equal(t, keys.JWKThumbprint(acct.Signer), keys.JWKThumbprint(restored.Signer))

			url, err := restored.OrderURL(0)
			require.NoError(t, err)
			assert.Equal(t, "https://acme.example.com/order/1", url)
			_, err = restored.OrderURL(1)
			assert.Error(t, err)
		})
	}
}

func TestRestoreAccountMissing(t *testing.T) {
	_, err := RestoreAccount(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
	assert.Error(t, SaveAccount(filepath.Join(t.TempDir(), "x.json"), nil))
}
