package cli

import (
	"bufio"
	"os"

	"github.com/mitchellh/cli"
	"github.com/smallbiznis/motorbook/internal/config"
)

// Main runs the operator CLI with the given arguments and returns the exit code.
func Main(args []string) int {
	name := "motorbookctl"
	if len(args) > 0 {
		name = args[0]
		args = args[1:]
	}

	ui := &cli.BasicUi{
		Reader:      bufio.NewReader(os.Stdin),
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
	}

	c := &cli.CLI{
		Name:     name,
		Args:     args,
		Version:  config.Load().AppVersion,
		Commands: Commands(ui, newRuntime),
	}

	code, err := c.Run()
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	return code
}

// Commands builds the command table. boot is swapped out in tests.
func Commands(ui cli.Ui, boot bootFunc) map[string]cli.CommandFactory {
	base := &Command{UI: ui, boot: boot}
	return map[string]cli.CommandFactory{
		"cleanup": func() (cli.Command, error) {
			return &CleanupCommand{Command: base}, nil
		},
		"migrate": func() (cli.Command, error) {
			return &MigrateCommand{Command: base}, nil
		},
		"seed": func() (cli.Command, error) {
			return &SeedCommand{Command: base}, nil
		},
		"sequence": func() (cli.Command, error) {
			return &SequenceCommand{}, nil
		},
		"sequence list": func() (cli.Command, error) {
			return &SequenceListCommand{Command: base}, nil
		},
		"sequence peek": func() (cli.Command, error) {
			return NewSequencePeekCommand(base), nil
		},
		"sequence reset": func() (cli.Command, error) {
			return NewSequenceResetCommand(base), nil
		},
	}
}
