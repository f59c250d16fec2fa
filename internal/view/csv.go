package view

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"carewatch.dev/carewatch/internal/model"
)

// CSVContentType is the MIME type of exported files.
const CSVContentType = "text/csv;charset=utf-8"

// Column maps one entity field to a named CSV column. Column order is fixed
// by the table, never derived from the data, so every row has the same shape
// even when fields are missing.
type Column[T any] struct {
	Name  string
	Value func(T) string
}

// WriteCSV serializes items as a header row followed by one row per item.
// Every cell is double-quoted with internal quotes doubled; output is
// deterministic for the same input.
func WriteCSV[T any](w io.Writer, cols []Column[T], items []T) error {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	if _, err := io.WriteString(w, strings.Join(names, ",")); err != nil {
		return err
	}
	cells := make([]string, len(cols))
	for _, item := range items {
		for i, c := range cols {
			cells[i] = quoteCell(c.Value(item))
		}
		if _, err := io.WriteString(w, "\n"+strings.Join(cells, ",")); err != nil {
			return err
		}
	}
	return nil
}

func quoteCell(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// AlertColumns is the export column order of the alerts view.
var AlertColumns = []Column[model.Alert]{
	{Name: "id", Value: func(a model.Alert) string { return strconv.FormatInt(a.ID, 10) }},
	{Name: "time", Value: func(a model.Alert) string { return a.TsUTC }},
	{Name: "room", Value: func(a model.Alert) string { return a.Room }},
	{Name: "device", Value: func(a model.Alert) string { return a.DeviceID }},
	{Name: "type", Value: func(a model.Alert) string { return a.Type }},
	{Name: "severity", Value: func(a model.Alert) string { return a.Severity }},
	{Name: "status", Value: func(a model.Alert) string { return a.Status }},
	{Name: "details", Value: func(a model.Alert) string { return a.Details }},
}

// MessageColumns is the export column order of the history view.
var MessageColumns = []Column[model.Message]{
	{Name: "ts_utc", Value: func(m model.Message) string { return m.TsUTC }},
	{Name: "topic", Value: func(m model.Message) string { return m.Topic }},
	{Name: "payload", Value: func(m model.Message) string { return m.Payload }},
}

// CSVFilename builds the download name for a resource export, e.g.
// "alerts_1712345678901.csv".
func CSVFilename(resource string, now time.Time) string {
	return fmt.Sprintf("%s_%d.csv", resource, now.UnixMilli())
}
