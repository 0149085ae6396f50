package main

import (
	"errors"
	"os"

	"github.com/majorcontext/sctrace/cmd/sctrace/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		var exit *cli.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		os.Exit(1)
	}
}
