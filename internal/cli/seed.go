package cli

import (
	"context"
	"flag"
	"fmt"
)

type SeedCommand struct {
	*Command

	flagYear int
	flagDemo int
}

func (c *SeedCommand) Synopsis() string {
	return "Create missing counters and optionally issue demo documents"
}

func (c *SeedCommand) Help() string {
	return `Usage: motorbookctl seed [options]

  Creates any missing counter rows for the year. Existing counters keep their
  values. With -demo, issues that many demo quotes and invoices.` +
		flagUsage(c.flags())
}

func (c *SeedCommand) flags() *flag.FlagSet {
	f := flag.NewFlagSet("seed", flag.ContinueOnError)
	f.IntVar(&c.flagYear, "year", 0, "Counter year. Defaults to the current year in APP_TIMEZONE.")
	f.IntVar(&c.flagDemo, "demo", 0, "Number of demo documents to issue.")
	return f
}

func (c *SeedCommand) Run(args []string) int {
	if !c.parse(c.flags(), args) {
		return 1
	}
	if c.flagDemo < 0 {
		c.UI.Error("demo must not be negative")
		return 1
	}

	return c.run(func(ctx context.Context, rt Runtime) error {
		year := resolveYear(rt, c.flagYear)
		if err := rt.Seeder.EnsureSequences(ctx, year); err != nil {
			return err
		}
		c.UI.Info(fmt.Sprintf("Counters ensured for %d", year))

		if c.flagDemo == 0 {
			return nil
		}
		docs, err := rt.Seeder.Demo(ctx, year, c.flagDemo)
		for _, doc := range docs {
			c.UI.Output(fmt.Sprintf("%s %s %s", doc.Number, doc.Type, doc.Status))
		}
		return err
	})
}
