// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

// Package command holds the CLI commands of the kinderfleet binary.
package command

import (
	"os"

	"github.com/hashicorp/cli"
	colorable "github.com/mattn/go-colorable"

	"github.com/kinderfleet/kinderfleet/version"
)

// Commands returns the mapping of CLI commands. The meta parameter lets a
// caller provide a pre-configured Meta, mostly for tests.
func Commands(metaPtr *Meta) map[string]cli.CommandFactory {
	if metaPtr == nil {
		metaPtr = new(Meta)
	}

	meta := *metaPtr
	if meta.Ui == nil {
		meta.Ui = &cli.BasicUi{
			Reader:      os.Stdin,
			Writer:      colorable.NewColorableStdout(),
			ErrorWriter: colorable.NewColorableStderr(),
		}
	}

	return map[string]cli.CommandFactory{
		"agent": func() (cli.Command, error) {
			return &AgentCommand{
				Meta: meta,
			}, nil
		},
		"version": func() (cli.Command, error) {
			return &VersionCommand{
				Meta:    meta,
				Version: version.GetVersion(),
			}, nil
		},
	}
}
