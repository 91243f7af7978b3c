// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/cli"
	colorable "github.com/mattn/go-colorable"

	"github.com/kinderfleet/kinderfleet/command"
	"github.com/kinderfleet/kinderfleet/version"
)

func main() {
	os.Exit(Run(os.Args[1:]))
}

func Run(args []string) int {
	ui := &cli.BasicUi{
		Reader:      os.Stdin,
		Writer:      colorable.NewColorableStdout(),
		ErrorWriter: colorable.NewColorableStderr(),
	}

	c := cli.NewCLI("kinderfleet", version.GetVersion().FullVersionNumber(true))
	c.Args = args
	c.HelpWriter = os.Stdout
	c.Commands = command.Commands(&command.Meta{Ui: ui})

	exitCode, err := c.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error executing CLI: %s\n", err.Error())
		return 1
	}
	return exitCode
}
