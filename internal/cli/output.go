package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func validOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("invalid output format %q (valid: text, json, yaml)", format)
}

// row is one line of tabular output.
type row interface {
	cells() []string
}

// render writes rows as an aligned table, JSON or YAML.
func render[T row](w io.Writer, format string, header []string, rows []T) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	}

	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r.cells(), "\t"))
	}
	return tw.Flush()
}

// prefixLines writes each line of data to w prefixed with "[host] ".
func prefixLines(w io.Writer, host string, data string) {
	if data == "" {
		return
	}
	data = strings.ReplaceAll(data, "\r\n", "\n")
	for _, line := range strings.SplitAfter(data, "\n") {
		if line == "" {
			continue
		}
		if !strings.HasSuffix(line, "\n") {
			line += "\n"
		}
		fmt.Fprintf(w, "[%s] %s", host, line)
	}
}
