package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/mitchellh/cli"
	sequencedomain "github.com/smallbiznis/motorbook/internal/sequence/domain"
)

type SequenceCommand struct{}

func (c *SequenceCommand) Synopsis() string {
	return "Inspect and reset sequence counters"
}

func (c *SequenceCommand) Help() string {
	return `Usage: motorbookctl sequence <subcommand> [options]

  Subcommands: list, peek, reset.`
}

func (c *SequenceCommand) Run(args []string) int {
	return cli.RunResultHelp
}

type SequenceListCommand struct {
	*Command

	flagYear int
}

func (c *SequenceListCommand) Synopsis() string {
	return "List the counters of a year"
}

func (c *SequenceListCommand) Help() string {
	return `Usage: motorbookctl sequence list [options]` + flagUsage(c.flags())
}

func (c *SequenceListCommand) flags() *flag.FlagSet {
	f := flag.NewFlagSet("sequence list", flag.ContinueOnError)
	f.IntVar(&c.flagYear, "year", 0, "Counter year. Defaults to the current year in APP_TIMEZONE.")
	return f
}

func (c *SequenceListCommand) Run(args []string) int {
	if !c.parse(c.flags(), args) {
		return 1
	}

	return c.run(func(ctx context.Context, rt Runtime) error {
		year := resolveYear(rt, c.flagYear)
		items, err := rt.Sequences.List(ctx, year)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			c.UI.Info(fmt.Sprintf("No counters for %d", year))
			return nil
		}
		for _, item := range items {
			c.UI.Output(fmt.Sprintf("%-18s %d %d", item.Key, item.Year, item.Counter))
		}
		return nil
	})
}

// keyedCommand holds the flags shared by peek and reset.
type keyedCommand struct {
	*Command

	flagKey  string
	flagYear int
}

func (c *keyedCommand) flags(name string) *flag.FlagSet {
	f := flag.NewFlagSet(name, flag.ContinueOnError)
	f.StringVar(&c.flagKey, "key", "", "(Required) Sequence key: INVOICE, QUOTE or BOOKING_REFERENCE.")
	f.IntVar(&c.flagYear, "year", 0, "Counter year. Defaults to the current year in APP_TIMEZONE.")
	return f
}

func (c *keyedCommand) key(args []string, name string) (sequencedomain.Key, bool) {
	if !c.parse(c.flags(name), args) {
		return "", false
	}
	key, err := sequencedomain.ParseKey(c.flagKey)
	if err != nil {
		c.UI.Error(fmt.Sprintf("invalid key %q, want one of %s", c.flagKey, keyNames()))
		return "", false
	}
	return key, true
}

type SequencePeekCommand struct {
	keyedCommand
}

func NewSequencePeekCommand(base *Command) *SequencePeekCommand {
	return &SequencePeekCommand{keyedCommand{Command: base}}
}

func (c *SequencePeekCommand) Synopsis() string {
	return "Show the last allocated value of a counter"
}

func (c *SequencePeekCommand) Help() string {
	return `Usage: motorbookctl sequence peek -key=INVOICE [options]` + flagUsage(c.flags("sequence peek"))
}

func (c *SequencePeekCommand) Run(args []string) int {
	key, ok := c.key(args, "sequence peek")
	if !ok {
		return 1
	}

	return c.run(func(ctx context.Context, rt Runtime) error {
		year := resolveYear(rt, c.flagYear)
		counter, err := rt.Sequences.PeekCounter(ctx, key, year)
		if err != nil {
			return err
		}
		c.UI.Output(fmt.Sprintf("%s %d %d", key, year, counter))
		return nil
	})
}

type SequenceResetCommand struct {
	keyedCommand

	flagYes bool
}

func NewSequenceResetCommand(base *Command) *SequenceResetCommand {
	return &SequenceResetCommand{keyedCommand: keyedCommand{Command: base}}
}

func (c *SequenceResetCommand) Synopsis() string {
	return "Reset a counter so the next allocation returns 1"
}

func (c *SequenceResetCommand) Help() string {
	return `Usage: motorbookctl sequence reset -key=INVOICE [options]

  Resetting while bookings are being confirmed may hand out duplicate numbers.` +
		flagUsage(c.flags("sequence reset"))
}

func (c *SequenceResetCommand) flags(name string) *flag.FlagSet {
	f := c.keyedCommand.flags(name)
	f.BoolVar(&c.flagYes, "yes", false, "Skip the confirmation prompt.")
	return f
}

func (c *SequenceResetCommand) Run(args []string) int {
	if !c.parse(c.flags("sequence reset"), args) {
		return 1
	}
	key, err := sequencedomain.ParseKey(c.flagKey)
	if err != nil {
		c.UI.Error(fmt.Sprintf("invalid key %q, want one of %s", c.flagKey, keyNames()))
		return 1
	}

	return c.run(func(ctx context.Context, rt Runtime) error {
		year := resolveYear(rt, c.flagYear)
		if !c.flagYes {
			answer, err := c.UI.Ask(fmt.Sprintf("Reset %s for %d? Type 'yes' to continue:", key, year))
			if err != nil {
				return err
			}
			if answer != "yes" {
				c.UI.Info("Aborted")
				return nil
			}
		}
		if err := rt.Sequences.ResetCounter(ctx, key, year); err != nil {
			return err
		}
		c.UI.Info(fmt.Sprintf("Reset %s for %d", key, year))
		return nil
	})
}
