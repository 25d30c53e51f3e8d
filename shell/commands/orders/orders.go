package orders

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
			Name:     "orders",
			Help:     "Show ACME orders created by the active account",
			LongHelp: `List the active account's orders with their identifiers and refreshed status. Use -status to only show orders in a given status.`,
		},
		nil,
		ordersHandler)
}

type ordersOptions struct {
	printID          bool
	printIdentifiers bool
	status           string
}

func ordersHandler(c *ishell.Context, args []string) {
	opts := ordersOptions{}
	ordersFlags := flag.NewFlagSet("orders", flag.ContinueOnError)
	ordersFlags.BoolVar(&opts.printID, "showID", true, "Print order URLs")
	ordersFlags.BoolVar(&opts.printIdentifiers, "showIdents", true, "Print order identifiers")
	ordersFlags.StringVar(&opts.status, "status", "", "Print orders only if they are in the given status")

	if _, err := commands.ParseFlagSetArgs(args, ordersFlags); err != nil {
		return
	}

	client := commands.GetClient(c)
	if client.ActiveAccount == nil || len(client.ActiveAccount.Orders) == 0 {
		c.Printf("orders: the active account has no orders\n")
		return
	}

	ctx, cancel := commands.Context()
	defer cancel()
	store := commands.GetOrders(c)

	for i, orderURL := range client.ActiveAccount.Orders {
		r, err := store.Get(ctx, orderURL)
		if err != nil {
			commands.Errorf(c, "orders", "error getting order %q: %v", orderURL, err)
			return
		}
		if err := r.Reload(ctx); err != nil {
			commands.Errorf(c, "orders", "error refreshing order %q: %v", orderURL, err)
			return
		}
		if opts.status != "" && r.Status() != opts.status {
			continue
		}
		c.Printf("%3d)", i)
		if opts.printID {
			c.Printf("\t%#q", r.URL())
		}
		if opts.printIdentifiers {
			domains := lo.Map(r.Identifiers(), func(ident resources.Identifier, _ int) string {
				return ident.Value
			})
			c.Printf("\t%s", strings.Join(domains, ","))
		}
		c.Printf("\t%s\n", r.Status())
	}
}
