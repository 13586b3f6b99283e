package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	documentdomain "github.com/smallbiznis/motorbook/internal/document/domain"
	"github.com/smallbiznis/motorbook/internal/maintenance"
	sequencedomain "github.com/smallbiznis/motorbook/internal/sequence/domain"
)

type CleanupCommand struct {
	*Command

	flagStatuses string
	flagTypes    string
	flagAll      bool
	flagYear     int
	flagReset    bool
	flagKeys     string
}

func (c *CleanupCommand) Synopsis() string {
	return "Delete documents and optionally reset sequence counters"
}

func (c *CleanupCommand) Help() string {
	return `Usage: motorbookctl cleanup [options]

  Deletes the matching documents, then resets the requested counters for the
  year. Counters are never reset when the delete fails. Run it in a
  maintenance window: bookings confirmed during a reset may reuse numbers.` +
		flagUsage(c.flags())
}

func (c *CleanupCommand) flags() *flag.FlagSet {
	f := flag.NewFlagSet("cleanup", flag.ContinueOnError)
	f.StringVar(&c.flagStatuses, "status", "", "Comma-separated statuses to delete (DRAFT,ISSUED,PAID,CANCELLED).")
	f.StringVar(&c.flagTypes, "type", "", "Comma-separated document types to delete (INVOICE,QUOTE).")
	f.BoolVar(&c.flagAll, "all", false, "Allow deleting without any status or type.")
	f.IntVar(&c.flagYear, "year", 0, "Counter year to reset. Defaults to the current year in APP_TIMEZONE.")
	f.BoolVar(&c.flagReset, "reset", false, "Reset sequence counters after deleting.")
	f.StringVar(&c.flagKeys, "keys", "", "Comma-separated keys to reset. Defaults to every key.")
	return f
}

func (c *CleanupCommand) Run(args []string) int {
	if !c.parse(c.flags(), args) {
		return 1
	}

	req, err := c.request()
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}

	return c.run(func(ctx context.Context, rt Runtime) error {
		result, err := rt.Maintenance.Cleanup(ctx, req)
		if result.Deleted > 0 || err == nil {
			c.UI.Info(fmt.Sprintf("Deleted %d documents", result.Deleted))
		}
		for _, key := range result.Reset {
			c.UI.Info(fmt.Sprintf("Reset %s for %d", key, result.Year))
		}
		if errors.Is(err, maintenance.ErrLocked) {
			return errors.New("another cleanup is running")
		}
		return err
	})
}

func (c *CleanupCommand) request() (maintenance.CleanupRequest, error) {
	req := maintenance.CleanupRequest{
		All:            c.flagAll,
		Year:           c.flagYear,
		ResetSequences: c.flagReset,
	}
	for _, value := range splitFlag(c.flagStatuses) {
		s, err := documentdomain.ParseStatus(value)
		if err != nil {
			return req, fmt.Errorf("invalid status %q", value)
		}
		req.Statuses = append(req.Statuses, s)
	}
	for _, value := range splitFlag(c.flagTypes) {
		t, err := documentdomain.ParseType(value)
		if err != nil {
			return req, fmt.Errorf("invalid type %q", value)
		}
		req.Types = append(req.Types, t)
	}
	for _, value := range splitFlag(c.flagKeys) {
		k, err := sequencedomain.ParseKey(value)
		if err != nil {
			return req, fmt.Errorf("invalid key %q, want one of %s", value, keyNames())
		}
		req.Keys = append(req.Keys, k)
	}
	return req, nil
}

func keyNames() string {
	keys := sequencedomain.Keys()
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}
