package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hsiuhsiu/magic-go/pkg/magic"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func checkOutput(format string) error {
	switch format {
	case "", outputText, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

// result is one classified target.
type result struct {
	File   string `json:"file" yaml:"file"`
	Result string `json:"result,omitempty" yaml:"result,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
	Kind   string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

func newResult(name, desc string, err error) result {
	r := result{File: name, Result: desc}
	if err != nil {
		r.Error = err.Error()
		var me *magic.Error
		if errors.As(err, &me) {
			r.Kind = me.Kind.String()
		}
	}
	return r
}

// writeResults prints results in the requested format.
func writeResults(cmd *cobra.Command, format string, brief bool, results []result) error {
	w := cmd.OutOrStdout()
	switch format {
	case outputJSON:
		return writeJSON(w, results)
	case outputYAML:
		return writeYAML(w, results)
	default:
		for _, r := range results {
			writeText(w, brief, r)
		}
		return nil
	}
}

func writeText(w io.Writer, brief bool, r result) {
	line := r.Result
	if r.Error != "" {
		kind := r.Kind
		if kind == "" {
			kind = "error"
		}
		line = fmt.Sprintf("ERROR (%s): %s", kind, r.Error)
	}
	if brief {
		fmt.Fprintln(w, line)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", r.File, line)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// writeValue prints a single structured value, falling back to text for
// the text format.
func writeValue(cmd *cobra.Command, format string, v any, text func(io.Writer)) error {
	w := cmd.OutOrStdout()
	switch format {
	case outputJSON:
		return writeJSON(w, v)
	case outputYAML:
		return writeYAML(w, v)
	default:
		text(w)
		return nil
	}
}
