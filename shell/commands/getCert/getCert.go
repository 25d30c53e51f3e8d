package getCert

import (
	"context"
	"flag"
	"os"

	"github.com/abiosoft/ishell"
	"github.com/acmeorder/acmeorder/acme/order"
	"github.com/acmeorder/acmeorder/shell/commands"
	"github.com/pkg/errors"
)

func init() {
	commands.RegisterCommand(
		&ishell.Cmd{
			Name:    "getCert",
			Aliases: []string{"cert", "getCertificate", "certificate"},
			Help:    "Get an order's certificate",
			LongHelp: `Download the certificate chain of a valid order.
With -preferredChain ISSUER the default and alternate chains are searched for one whose intermediate was issued by ISSUER, e.g.
	getCert -order 0 -preferredChain "ISRG Root X1" -path chain.pem`,
		},
		commands.OrderURLAutocompleter,
		getCertHandler)
}

type getCertOptions struct {
	printPEM       bool
	pemPath        string
	orderIndex     int
	preferredChain string
}

func getCertHandler(c *ishell.Context, args []string) {
	opts := getCertOptions{}
	getCertFlags := flag.NewFlagSet("getCert", flag.ContinueOnError)
	getCertFlags.BoolVar(&opts.printPEM, "pem", true, "print PEM certificate chain output")
	getCertFlags.StringVar(&opts.pemPath, "path", "", "file path to save PEM certificate chain output to")
	getCertFlags.IntVar(&opts.orderIndex, "order", -1, "index of existing order")
	getCertFlags.StringVar(&opts.preferredChain, "preferredChain", "", "issuer name of the preferred chain")

	leftovers, err := commands.ParseFlagSetArgs(args, getCertFlags)
	if err != nil {
		return
	}

	if !opts.printPEM && opts.pemPath == "" {
		commands.Errorf(c, "getCert", "one of -pem or -path must be provided")
		return
	}

	ctx, cancel := commands.Context()
	defer cancel()

	r, err := commands.FindOrder(ctx, c, leftovers, opts.orderIndex)
	if err != nil {
		commands.Errorf(c, "getCert", "error getting order: %v", err)
		return
	}
	if err := r.Reload(ctx); err != nil {
		commands.Errorf(c, "getCert", "error refreshing order: %v", err)
		return
	}

	chain, err := certificate(ctx, r, opts.preferredChain)
	if err != nil {
		commands.Errorf(c, "getCert", "%v", err)
		return
	}

	if opts.printPEM {
		c.Printf("%s", chain)
	}

	if opts.pemPath != "" {
		if err := os.WriteFile(opts.pemPath, []byte(chain), 0644); err != nil {
			commands.Errorf(c, "getCert", "error writing pem to %q: %v", opts.pemPath, err)
			return
		}
		c.Printf("getCert: cert chain saved to %q\n", opts.pemPath)
	}
}

// certificate downloads the chain of r. A missing certificate and a preferred
// issuer that no chain offers are reported with the order they concern.
func certificate(ctx context.Context, r *order.Resource, preferredChain string) (string, error) {
	chain, err := r.Certificate(ctx, preferredChain)
	var notFound *order.ChainNotFoundError
	switch {
	case errors.Is(err, order.ErrCertificateNotReady):
		return "", errors.Errorf("order %q is status %q and has no certificate yet", r.URL(), r.Status())
	case errors.As(err, &notFound):
		return "", errors.Errorf("no chain issued by %q is offered for order %q", notFound.Issuer, r.URL())
	case err != nil:
		return "", errors.Wrap(err, "error getting certificate")
	}
	return chain, nil
}
