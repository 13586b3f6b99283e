package main

import (
	"os"

	"github.com/smallbiznis/motorbook/internal/cli"
)

func main() {
	os.Exit(cli.Main(os.Args))
}
