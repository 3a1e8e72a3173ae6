package cmd

import (
	"fmt"
	"html/template"

	"healthbot/healthbot/utils/jsonutils"

	"github.com/spf13/cobra"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatHTML = "html"
)

func validFormat(f string) error {
	switch f {
	case formatText, formatJSON, formatHTML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want text, json or html)", f)
}

// view is one printable result in each output format. data is what --format
// json prints.
type view struct {
	data any
	text func() string
	html func() (template.HTML, error)
}

func (a *app) print(cmd *cobra.Command, v view) error {
	out := cmd.OutOrStdout()
	switch a.format {
	case formatJSON:
		return jsonutils.Print(out, v.data)
	case formatHTML:
		if v.html == nil {
			return fmt.Errorf("%s has no html output", cmd.CommandPath())
		}
		markup, err := v.html()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, markup)
		return err
	}
	_, err := fmt.Fprintln(out, v.text())
	return err
}
