package saveAccount

import (
	"flag"

	"github.com/abiosoft/ishell"
	"github.com/acmeorder/acmeorder/shell/commands"
)

type saveAccountOptions struct {
	jsonPath string
}

func init() {
	commands.RegisterCommand(
		&ishell.Cmd{
			Name:     "saveAccount",
			Aliases:  []string{"save"},
			Help:     "Save the active ACME account and its order URLs",
			LongHelp: `Write the active account, its key and its order URLs to -json. Load it again at startup with -account.`,
		},
		nil,
		saveAccountHandler)
}

func saveAccountHandler(c *ishell.Context, args []string) {
	opts := saveAccountOptions{}
	saveAccountFlags := flag.NewFlagSet("saveAccount", flag.ContinueOnError)
	saveAccountFlags.StringVar(&opts.jsonPath, "json", "", "Filepath to a JSON save file for the account")

	if _, err := commands.ParseFlagSetArgs(args, saveAccountFlags); err != nil {
		return
	}

	if opts.jsonPath == "" {
		commands.Errorf(c, "saveAccount", "no -json path provided")
		return
	}

	if err := commands.GetClient(c).SaveAccount(opts.jsonPath); err != nil {
		commands.Errorf(c, "saveAccount", "%v", err)
		return
	}
	c.Printf("Saved active account data to %q\n", opts.jsonPath)
}
