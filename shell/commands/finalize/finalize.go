package finalize

import (
	"flag"
	"os"

	"github.com/abiosoft/ishell"
	acmeclient "github.com/acmeorder/acmeorder/acme/client"
	"github.com/acmeorder/acmeorder/acme/keys"
	"github.com/acmeorder/acmeorder/acme/resources"
	"github.com/acmeorder/acmeorder/shell/commands"
	"github.com/samber/lo"
)

func init() {
	commands.RegisterCommand(
		&ishell.Cmd{
			Name:    "finalize",
			Aliases: []string{"finalizeOrder"},
			Help:    "Finalize an ACME order with a CSR",
			LongHelp: `Generate a fresh key and a CSR for the order's identifiers and submit it to the order's finalize URL.
Save the generated key with -keyPath.`,
		},
		commands.OrderURLAutocompleter,
		finalizeHandler)
}

type finalizeOptions struct {
	keyType    string
	keyPath    string
	commonName string
	orderIndex int
}

func finalizeHandler(c *ishell.Context, args []string) {
	opts := finalizeOptions{}
	finalizeFlags := flag.NewFlagSet("finalize", flag.ContinueOnError)
	finalizeFlags.StringVar(&opts.keyType, "keyType", "ecdsa", "type of key to generate for the CSR (ecdsa or rsa)")
	finalizeFlags.StringVar(&opts.keyPath, "keyPath", "", "file path to save the PEM private key to")
	finalizeFlags.StringVar(&opts.commonName, "cn", "", "subject common name, defaults to the first identifier")
	finalizeFlags.IntVar(&opts.orderIndex, "order", -1, "index of existing order")

	leftovers, err := commands.ParseFlagSetArgs(args, finalizeFlags)
	if err != nil {
		return
	}

	ctx, cancel := commands.Context()
	defer cancel()

	r, err := commands.FindOrder(ctx, c, leftovers, opts.orderIndex)
	if err != nil {
		commands.Errorf(c, "finalize", "error getting order: %v", err)
		return
	}
	if err := r.Reload(ctx); err != nil {
		commands.Errorf(c, "finalize", "error refreshing order: %v", err)
		return
	}
	if r.Status() != "ready" {
		c.Printf("finalize: order %q is status %q, not \"ready\"\n", r.URL(), r.Status())
	}

	signer, err := keys.NewSigner(opts.keyType)
	if err != nil {
		commands.Errorf(c, "finalize", "%v", err)
		return
	}
	if opts.keyPath != "" {
		keyPEM, err := keys.SignerToPEM(signer)
		if err != nil {
			commands.Errorf(c, "finalize", "error encoding key: %v", err)
			return
		}
		if err := os.WriteFile(opts.keyPath, []byte(keyPEM), 0600); err != nil {
			commands.Errorf(c, "finalize", "error writing key to %q: %v", opts.keyPath, err)
			return
		}
		c.Printf("finalize: private key saved to %q\n", opts.keyPath)
	}

	names := lo.Map(r.Identifiers(), func(ident resources.Identifier, _ int) string {
		return ident.Value
	})
	der, _, err := acmeclient.CSR(opts.commonName, names, signer)
	if err != nil {
		commands.Errorf(c, "finalize", "error creating CSR: %v", err)
		return
	}

	if err := r.Finalize(ctx, der); err != nil {
		commands.Errorf(c, "finalize", "error finalizing order %q: %v", r.URL(), err)
		return
	}
	c.Printf("finalize: order %q is status %q\n", r.URL(), r.Status())
}
