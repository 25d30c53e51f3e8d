package newOrder

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
			Name:    "newOrder",
			Aliases: []string{"order", "newOrd"},
			Help:    "Create a new ACME order",
			LongHelp: `Create a new order for one or more DNS identifiers with the active account.
	newOrder -identifiers example.com,www.example.com
Without -identifiers the identifiers are read one per line.`,
		},
		nil,
		newOrderHandler)
}

type newOrderOptions struct {
	identifiers string
	printJSON   bool
}

func readIdentifiers(c *ishell.Context) string {
	c.SetPrompt(commands.BasePrompt + "FQDN > ")
	defer c.SetPrompt(commands.BasePrompt)
	terminator := "."
	c.Printf("Input fully qualified domain name identifiers for your order. "+
		" End by sending '%s'\n", terminator)
	return strings.TrimSuffix(c.ReadMultiLines(terminator), terminator)
}

// splitIdentifiers splits raw on commas and newlines, dropping blanks and
// duplicates.
func splitIdentifiers(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	return lo.Uniq(lo.Compact(lo.Map(fields, func(f string, _ int) string {
		return strings.TrimSpace(f)
	})))
}

func newOrderHandler(c *ishell.Context, args []string) {
	opts := newOrderOptions{}
	newOrderFlags := flag.NewFlagSet("newOrder", flag.ContinueOnError)
	newOrderFlags.StringVar(&opts.identifiers, "identifiers", "", "Comma separated list of DNS identifiers")
	newOrderFlags.BoolVar(&opts.printJSON, "json", true, "Print the created order")

	if _, err := commands.ParseFlagSetArgs(args, newOrderFlags); err != nil {
		return
	}

	raw := opts.identifiers
	if raw == "" {
		raw = readIdentifiers(c)
	}
	names := splitIdentifiers(raw)
	if len(names) == 0 {
		commands.Errorf(c, "newOrder", "no identifiers provided")
		return
	}

	ctx, cancel := commands.Context()
	defer cancel()

	client := commands.GetClient(c)
	created, err := client.CreateOrder(ctx, resources.DNSIdentifiers(names...))
	if err != nil {
		commands.Errorf(c, "newOrder", "error creating new order with ACME server: %v", err)
		return
	}

	r, err := commands.GetOrders(c).Add(*created)
	if err != nil {
		commands.Errorf(c, "newOrder", "server returned an unusable order: %v", err)
		return
	}

	c.Printf("Created order %d: %q\n", len(client.ActiveAccount.Orders)-1, r.URL())
	if opts.printJSON {
		orderStr, err := commands.PrintJSON(r.ToMap())
		if err != nil {
			commands.Errorf(c, "newOrder", "error serializing order: %v", err)
			return
		}
		c.Printf("%s\n", orderStr)
	}
}
