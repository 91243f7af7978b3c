// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: BUSL-1.1

package command

import (
	"flag"

	"github.com/hashicorp/cli"
)

// Meta contains the meta-options and functionality that every command
// inherits.
type Meta struct {
	Ui cli.Ui
}

// FlagSet returns a FlagSet named for the command, writing its errors to
// the UI.
func (m *Meta) FlagSet(n string) *flag.FlagSet {
	f := flag.NewFlagSet(n, flag.ContinueOnError)
	f.SetOutput(&uiErrorWriter{ui: m.Ui})
	return f
}

// uiErrorWriter adapts a cli.Ui to io.Writer for flag package errors.
type uiErrorWriter struct {
	ui cli.Ui
}

func (w *uiErrorWriter) Write(data []byte) (int, error) {
	w.ui.Error(string(data))
	return len(data), nil
}
