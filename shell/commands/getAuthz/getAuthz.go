package getAuthz

import (
	"flag"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/acmeorder/acmeorder/acme/resources"
	"github.com/acmeorder/acmeorder/shell/commands"
	"github.com/samber/lo"
)

func init() {
	commands.RegisterCommand(
		&ishell.Cmd{
			Name:     "getAuthz",
			Aliases:  []string{"authz", "getAuthorization"},
			Help:     "Print the authorizations of an ACME order",
			LongHelp: `Fetch every authorization of an order, in order. Use -identifier to only print the authorization for one identifier.`,
		},
		commands.OrderURLAutocompleter,
		getAuthzHandler)
}

type getAuthzOptions struct {
	orderIndex int
	identifier string
}

func getAuthzHandler(c *ishell.Context, args []string) {
	opts := getAuthzOptions{}
	getAuthzFlags := flag.NewFlagSet("getAuthz", flag.ContinueOnError)
	getAuthzFlags.IntVar(&opts.orderIndex, "order", -1, "index of existing order")
	getAuthzFlags.StringVar(&opts.identifier, "identifier", "", "only print the authorization for this identifier")

	leftovers, err := commands.ParseFlagSetArgs(args, getAuthzFlags)
	if err != nil {
		return
	}

	ctx, cancel := commands.Context()
	defer cancel()

	r, err := commands.FindOrder(ctx, c, leftovers, opts.orderIndex)
	if err != nil {
		commands.Errorf(c, "getAuthz", "error getting order: %v", err)
		return
	}

	authzs, err := r.Authorizations(ctx)
	if err != nil {
		commands.Errorf(c, "getAuthz", "error getting authorizations: %v", err)
		return
	}

	if opts.identifier != "" {
		wanted := strings.TrimPrefix(opts.identifier, "*.")
		authzs = lo.Filter(authzs, func(authz *resources.Authorization, _ int) bool {
			return authz.Identifier.Value == wanted
		})
		if len(authzs) == 0 {
			commands.Errorf(c, "getAuthz", "order %q has no authorization for %q", r.URL(), opts.identifier)
			return
		}
	}

	for _, authz := range authzs {
		authzStr, err := commands.PrintJSON(authz)
		if err != nil {
			commands.Errorf(c, "getAuthz", "error serializing authorization: %v", err)
			return
		}
		c.Printf("%s\n", authzStr)
		if ok, err := authz.Valid(); !ok && err != nil {
			commands.Errorf(c, "getAuthz", "%v", err)
		}
	}
}
