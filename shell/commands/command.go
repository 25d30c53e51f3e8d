// Package commands holds types and functions common across all ACMEShell
// commands.
package commands

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"time"

	"github.com/abiosoft/ishell"
	acmeclient "github.com/acmeorder/acmeorder/acme/client"
	"github.com/fatih/color"
)

const (
	// The base prompt used for shell commands
	BasePrompt = "[ ACME ] > "
	// The ishell context key that we store a client instance under.
	ClientKey = "client"
	// The ishell context key that we store the *OrderStore under.
	OrdersKey = "orders"

	// How long a single command may spend talking to the ACME server.
	CommandTimeout = 2 * time.Minute
)

var errorColor = color.New(color.FgRed, color.Bold).SprintFunc()

func OkURL(urlStr string) bool {
	result, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	if result.Scheme != "http" && result.Scheme != "https" {
		return false
	}
	return true
}

// shellContext is a common interface that can be used to retrieve objects from
// a ishell.Shell or an ishell.Context.
type shellContext interface {
	Get(string) interface{}
}

// GetClient reads a *acmeclient.Client from the shellContext or panics.
func GetClient(c shellContext) *acmeclient.Client {
	switch client := c.Get(ClientKey).(type) {
	case *acmeclient.Client:
		return client
	case nil:
		panic(fmt.Sprintf("nil %q value in shellContext", ClientKey))
	}
	panic(fmt.Sprintf("%q value in shellContext was not an *acmeclient.Client", ClientKey))
}

// GetOrders reads the *OrderStore from the shellContext or panics.
func GetOrders(c shellContext) *OrderStore {
	switch store := c.Get(OrdersKey).(type) {
	case *OrderStore:
		return store
	case nil:
		panic(fmt.Sprintf("nil %q value in shellContext", OrdersKey))
	}
	panic(fmt.Sprintf("%q value in shellContext was not an *OrderStore", OrdersKey))
}

// Context returns a context bounded by CommandTimeout.
func Context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), CommandTimeout)
}

// printer is satisfied by *ishell.Context.
type printer interface {
	Printf(format string, val ...interface{})
}

// Errorf prints a command error prefixed with the command name, in red.
func Errorf(c printer, name, format string, vals ...interface{}) {
	c.Printf("%s\n", errorColor(name+": "+fmt.Sprintf(format, vals...)))
}

func PrintJSON(ob interface{}) (string, error) {
	bytes, err := json.MarshalIndent(ob, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// ParseFlagSetArgs parses args with the flag set and returns the leftover
// arguments. flag.ErrHelp is returned after the usage was printed.
func ParseFlagSetArgs(args []string, fs *flag.FlagSet) ([]string, error) {
	err := fs.Parse(args)
	if err != nil && err != flag.ErrHelp {
		fmt.Printf("%s\n", errorColor(fs.Name()+": error parsing input flags: "+err.Error()))
		return nil, err
	} else if err == flag.ErrHelp {
		return nil, err
	}
	return fs.Args(), nil
}

var commands []commandRegistry

type commandRegistry struct {
	Cmd           *ishell.Cmd
	Autocompleter NewCommandAutocompleter
}

type NewCommandAutocompleter func(c *acmeclient.Client) func(args []string) []string

// NewCommandHandler handles a command invocation. args are the raw command
// arguments.
type NewCommandHandler func(c *ishell.Context, args []string)

// RegisterCommand adds cmd to the commands added to every shell by
// AddCommands. The cmd's Func is replaced by one calling handler.
func RegisterCommand(
	cmd *ishell.Cmd,
	completerFunc NewCommandAutocompleter,
	handler NewCommandHandler) {
	cmd.Func = func(c *ishell.Context) {
		handler(c, c.Args)
	}
	commands = append(commands, commandRegistry{
		Cmd:           cmd,
		Autocompleter: completerFunc,
	})
}

// AddCommands adds every registered command to the shell.
func AddCommands(shell *ishell.Shell, client *acmeclient.Client) {
	for _, cmdReg := range commands {
		if cmdReg.Autocompleter != nil {
			cmdReg.Cmd.Completer = cmdReg.Autocompleter(client)
		}
		shell.AddCmd(cmdReg.Cmd)
	}
}

// Registered returns the names of the registered commands.
func Registered() []string {
	names := make([]string, len(commands))
	for i, cmdReg := range commands {
		names[i] = cmdReg.Cmd.Name
	}
	return names
}

// OrderURLAutocompleter completes the order URLs of the active account.
func OrderURLAutocompleter(c *acmeclient.Client) func(args []string) []string {
	return func(args []string) []string {
		if c.ActiveAccount == nil {
			return nil
		}
		return append([]string{}, c.ActiveAccount.Orders...)
	}
}
