package getOrder

import (
	"flag"

	"github.com/abiosoft/ishell"
	"github.com/acmeorder/acmeorder/shell/commands"
)

func init() {
	commands.RegisterCommand(
		&ishell.Cmd{
			Name:     "getOrder",
			Aliases:  []string{"getOrd"},
			Help:     "Refresh and print an ACME order",
			LongHelp: `Reload an order from the server and print it. Select the order with -order INDEX or by URL.`,
		},
		commands.OrderURLAutocompleter,
		getOrderHandler)
}

type getOrderOptions struct {
	orderIndex int
}

func getOrderHandler(c *ishell.Context, args []string) {
	opts := getOrderOptions{}
	getOrderFlags := flag.NewFlagSet("getOrder", flag.ContinueOnError)
	getOrderFlags.IntVar(&opts.orderIndex, "order", -1, "index of existing order")

	leftovers, err := commands.ParseFlagSetArgs(args, getOrderFlags)
	if err != nil {
		return
	}

	ctx, cancel := commands.Context()
	defer cancel()

	r, err := commands.FindOrder(ctx, c, leftovers, opts.orderIndex)
	if err != nil {
		commands.Errorf(c, "getOrder", "error getting order: %v", err)
		return
	}
	if err := r.Reload(ctx); err != nil {
		commands.Errorf(c, "getOrder", "error refreshing order: %v", err)
		return
	}

	orderStr, err := commands.PrintJSON(r.ToMap())
	if err != nil {
		commands.Errorf(c, "getOrder", "error serializing order: %v", err)
		return
	}
	c.Printf("%s\n", orderStr)
}
