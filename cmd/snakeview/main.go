package main

import (
	"os"

	"github.com/Herman-H/Snake-Robot-Display/internal/cli/command"
	"github.com/Herman-H/Snake-Robot-Display/internal/core/domain"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		command.PrintError("%v", err)
		os.Exit(domain.ExitCode(err))
	}
}
