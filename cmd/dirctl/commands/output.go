package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"gopkg.in/yaml.v3"
)

type format string

const (
	formatTable format = "table"
	formatJSON  format = "json"
	formatYAML  format = "yaml"
)

// tableRenderer is implemented by views that can render as a table.
type tableRenderer interface {
	Headers() []string
	Rows() [][]string
}

type printer struct {
	out    io.Writer
	format format
}

func newPrinter(out io.Writer, f string) (*printer, error) {
	switch format(strings.ToLower(f)) {
	case formatTable:
		return &printer{out: out, format: formatTable}, nil
	case formatJSON:
		return &printer{out: out, format: formatJSON}, nil
	case formatYAML:
		return &printer{out: out, format: formatYAML}, nil
	}
	return nil, fmt.Errorf("unsupported output format %q (want table, json or yaml)", f)
}

// print writes data in the configured format. Tables use table when set,
// otherwise the key/value pairs of fields.
func (p *printer) print(data any, table tableRenderer) error {
	switch p.format {
	case formatJSON:
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case formatYAML:
		enc := yaml.NewEncoder(p.out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	}

	w := tablewriter.NewWriter(p.out)
	w.SetHeader(table.Headers())
	w.SetAutoWrapText(false)
	w.SetAutoFormatHeaders(true)
	w.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	w.SetAlignment(tablewriter.ALIGN_LEFT)
	w.SetCenterSeparator("")
	w.SetColumnSeparator("")
	w.SetRowSeparator("")
	w.SetHeaderLine(false)
	w.SetBorder(false)
	w.SetTablePadding("  ")
	w.SetNoWhiteSpace(true)
	w.AppendBulk(table.Rows())
	w.Render()
	return nil
}

// pairs renders key/value rows as a two-column table.
type pairs [][2]string

func (p pairs) Headers() []string { return []string{"Field", "Value"} }

func (p pairs) Rows() [][]string {
	rows := make([][]string, 0, len(p))
	for _, kv := range p {
		rows = append(rows, []string{kv[0], emptyOr(kv[1], "-")})
	}
	return rows
}

func emptyOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func writeMetrics(w io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
