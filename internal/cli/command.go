package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/cli"
	"github.com/smallbiznis/motorbook/internal/clock"
	"github.com/smallbiznis/motorbook/internal/config"
	"github.com/smallbiznis/motorbook/internal/document"
	documentdomain "github.com/smallbiznis/motorbook/internal/document/domain"
	"github.com/smallbiznis/motorbook/internal/idgen"
	"github.com/smallbiznis/motorbook/internal/maintenance"
	"github.com/smallbiznis/motorbook/internal/observability"
	obscontext "github.com/smallbiznis/motorbook/internal/observability/context"
	"github.com/smallbiznis/motorbook/internal/seed"
	"github.com/smallbiznis/motorbook/internal/sequence"
	sequencedomain "github.com/smallbiznis/motorbook/internal/sequence/domain"
	"github.com/smallbiznis/motorbook/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultTimeout = 5 * time.Minute
	operatorActor  = "operator"
)

// Runtime is what a command needs from the wired application.
type Runtime struct {
	fx.In

	Log         *zap.Logger
	Cfg         config.Config
	Clock       clock.Clock
	DB          *gorm.DB
	Sequences   sequencedomain.Service
	Documents   documentdomain.Service
	Maintenance *maintenance.Service
	Seeder      *seed.Seeder
}

// bootFunc starts the dependencies and returns a stop function.
type bootFunc func(ctx context.Context) (Runtime, func(context.Context) error, error)

func newRuntime(ctx context.Context) (Runtime, func(context.Context) error, error) {
	var rt Runtime
	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		idgen.Module,
		db.Module,
		clock.Module,
		sequence.Module,
		document.Module,
		maintenance.Module,
		fx.Provide(seed.New),
		fx.Invoke(func(r Runtime) { rt = r }),
	)
	if err := app.Err(); err != nil {
		return Runtime{}, nil, err
	}
	if err := app.Start(ctx); err != nil {
		return Runtime{}, nil, err
	}
	return rt, app.Stop, nil
}

// Command is embedded by every command that touches the database.
type Command struct {
	UI   cli.Ui
	boot bootFunc
}

func (c *Command) run(fn func(ctx context.Context, rt Runtime) error) int {
	ctx, cancel := context.WithTimeout(obscontext.WithActor(context.Background(), operatorActor), defaultTimeout)
	defer cancel()

	rt, stop, err := c.boot(ctx)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error starting: %v", err))
		return 1
	}
	defer func() {
		if err := stop(context.WithoutCancel(ctx)); err != nil {
			c.UI.Warn(fmt.Sprintf("error stopping: %v", err))
		}
	}()

	if err := fn(ctx, rt); err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	return 0
}

func (c *Command) parse(f *flag.FlagSet, args []string) bool {
	if err := f.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return false
	}
	return true
}

func flagUsage(f *flag.FlagSet) string {
	var b strings.Builder
	f.SetOutput(&b)
	f.PrintDefaults()
	if b.Len() == 0 {
		return ""
	}
	return "\n\nOptions:\n\n" + b.String()
}

func splitFlag(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func resolveYear(rt Runtime, year int) int {
	if year != 0 {
		return year
	}
	return clock.YearIn(rt.Clock, rt.Cfg.Location())
}
