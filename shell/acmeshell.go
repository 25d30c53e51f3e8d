// Package shell provides an interactive command shell for driving ACME orders
// and the associated commands.
package shell

import (
	"context"

	"github.com/abiosoft/ishell"
	"github.com/abiosoft/readline"
	acmeclient "github.com/acmeorder/acmeorder/acme/client"
	"github.com/acmeorder/acmeorder/shell/commands"
	_ "github.com/acmeorder/acmeorder/shell/commands/finalize"
	_ "github.com/acmeorder/acmeorder/shell/commands/getAuthz"
	_ "github.com/acmeorder/acmeorder/shell/commands/getCert"
	_ "github.com/acmeorder/acmeorder/shell/commands/getOrder"
	_ "github.com/acmeorder/acmeorder/shell/commands/newOrder"
	_ "github.com/acmeorder/acmeorder/shell/commands/orders"
	_ "github.com/acmeorder/acmeorder/shell/commands/poll"
	_ "github.com/acmeorder/acmeorder/shell/commands/saveAccount"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ACMEShellOptions allows specifying options for creating an ACME shell.
type ACMEShellOptions struct {
	acmeclient.Config
	// Save the active account to AccountPath when the shell exits so that
	// orders created in the session can be resumed.
	SaveOnExit bool
}

// ACMEShell is an ishell.Shell instance tailored for ACME orders. Commands
// reach the *acmeclient.Client and the shared *commands.OrderStore through
// the shell's context.
type ACMEShell struct {
	*ishell.Shell
	opts *ACMEShellOptions
}

// NewACMEShell builds the ishell.Shell and the ACME client and registers every
// command. The shell does not start until Run is called.
func NewACMEShell(ctx context.Context, opts *ACMEShellOptions) (*ACMEShell, error) {
	shell := ishell.NewWithConfig(&readline.Config{
		Prompt: commands.BasePrompt,
	})

	client, err := acmeclient.NewClient(ctx, opts.Config)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create ACME client")
	}

	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	shell.Set(commands.ClientKey, client)
	shell.Set(commands.OrdersKey, commands.NewOrderStore(client, log))

	commands.AddCommands(shell, client)

	return &ACMEShell{
		Shell: shell,
		opts:  opts,
	}, nil
}

// Run starts the ACMEShell, dropping into an interactive session that blocks
// on user input until it is time to exit.
func (shell *ACMEShell) Run() {
	shell.Println("Welcome to ACME Shell")
	shell.Shell.Run()
	shell.SaveAccount()
	shell.Println("Goodbye!")
}

// SaveAccount saves the active account to AccountPath when SaveOnExit is set.
func (shell *ACMEShell) SaveAccount() {
	if !shell.opts.SaveOnExit || shell.opts.AccountPath == "" {
		return
	}
	client := commands.GetClient(shell)
	if client.ActiveAccount == nil {
		return
	}
	if err := client.SaveAccount(shell.opts.AccountPath); err != nil {
		logrus.WithError(err).Error("saving account on exit")
	}
}
