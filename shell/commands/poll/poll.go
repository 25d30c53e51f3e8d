package poll

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/acmeorder/acmeorder/acme"
	"github.com/acmeorder/acmeorder/acme/order"
	"github.com/acmeorder/acmeorder/shell/commands"
)

type pollOptions struct {
	maxTries     int
	sleepSeconds int
	status       string
	orderIndex   int
}

func init() {
	commands.RegisterCommand(
		&ishell.Cmd{
			Name:     "poll",
			Help:     "Poll an order until it has the desired status",
			LongHelp: `Reload an order until its status is -status, trying at most -maxTries times and sleeping -sleep seconds between tries. Polling stops early if the order becomes invalid.`,
		},
		commands.OrderURLAutocompleter,
		pollHandler)
}

func pollHandler(c *ishell.Context, args []string) {
	opts := pollOptions{}
	pollFlags := flag.NewFlagSet("poll", flag.ContinueOnError)
	pollFlags.StringVar(&opts.status, "status", "ready", "Poll order until it is the given status")
	pollFlags.IntVar(&opts.maxTries, "maxTries", 5, "Number of times to poll before giving up")
	pollFlags.IntVar(&opts.sleepSeconds, "sleep", 5, "Number of seconds to sleep between poll attempts")
	pollFlags.IntVar(&opts.orderIndex, "order", -1, "index of order to poll")

	leftovers, err := commands.ParseFlagSetArgs(args, pollFlags)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		commands.CommandTimeout+time.Duration(opts.maxTries*opts.sleepSeconds)*time.Second)
	defer cancel()

	r, err := commands.FindOrder(ctx, c, leftovers, opts.orderIndex)
	if err != nil {
		commands.Errorf(c, "poll", "error getting order: %v", err)
		return
	}

	err = pollOrder(ctx, r, opts, func(try int, status string) {
		c.Printf("poll: try %d. %q is status %q\n", try, r.URL(), status)
	})
	if err != nil {
		commands.Errorf(c, "poll", "%v", err)
		return
	}
	c.Printf("poll: polling done. %q is status %q\n", r.URL(), r.Status())
}

// statusPoller is the part of *order.Resource polling needs.
type statusPoller interface {
	Reload(ctx context.Context) error
	Status() string
	URL() string
}

var _ statusPoller = (*order.Resource)(nil)

type pollFailedError struct {
	url    string
	tries  int
	status string
}

func (e pollFailedError) Error() string {
	return fmt.Sprintf("polling failed after %d tries. %q is status %q", e.tries, e.url, e.status)
}

// pollOrder reloads r until it reaches opts.status, becomes invalid or
// maxTries reloads were made. progress is called after each reload that did
// not reach the status.
func pollOrder(ctx context.Context, r statusPoller, opts pollOptions, progress func(try int, status string)) error {
	for try := 0; try < opts.maxTries; try++ {
		if err := r.Reload(ctx); err != nil {
			return err
		}
		status := r.Status()
		if status == opts.status {
			return nil
		}
		if status == acme.StatusInvalid {
			return pollFailedError{url: r.URL(), tries: try + 1, status: status}
		}
		if progress != nil {
			progress(try, status)
		}
		if try == opts.maxTries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(opts.sleepSeconds) * time.Second):
		}
	}
	return pollFailedError{url: r.URL(), tries: opts.maxTries, status: r.Status()}
}
