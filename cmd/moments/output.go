package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aretw0/moments"
)

func printEntity(w io.Writer, e moments.Entity) {
	when := e.Date
	if e.IsRepeating {
		when = fmt.Sprintf("%s (%s, next %s)", e.Date, e.RepeatFrequency, e.NextOccurrence)
	}
	fmt.Fprintf(w, "  %s  %s  %s\n", e.Title, when, e.DisplayText)
}

func printTable(w io.Writer, list []moments.Entity) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tDATE\tREPEAT\tWHEN")
	for _, e := range list {
		date := e.Date
		if e.IsRepeating {
			date = e.NextOccurrence
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Title, date, e.RepeatFrequency, e.DisplayText)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
