package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/moments/pkg/core"
)

var (
	listJSON    bool
	listSearch  string
	listRepeats []string
	listFrom    string
	listTo      string
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List moments, soonest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := listFilter()
		if err != nil {
			return err
		}

		svc, err := openService()
		if err != nil {
			return err
		}
		defer svc.Close()

		list, err := svc.List(cmd.Context(), core.WithFilter(filter))
		if err != nil {
			return err
		}

		if listJSON {
			return printJSON(cmd.OutOrStdout(), list)
		}
		return printTable(cmd.OutOrStdout(), list)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	addFilterFlags(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
}

// addFilterFlags registers the flags shared by list and watch.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&listSearch, "search", "s", "", "Only moments whose title or description contains this text")
	cmd.Flags().StringSliceVar(&listRepeats, "repeat", nil, "Only moments with these repeat frequencies")
	cmd.Flags().StringVar(&listFrom, "from", "", "Only moments dated on or after this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&listTo, "to", "", "Only moments dated on or before this day (YYYY-MM-DD)")
}

func listFilter() (core.Filter, error) {
	f := core.Filter{Search: listSearch, DateFrom: listFrom, DateTo: listTo}
	for _, r := range listRepeats {
		freq, err := parseRepeat(r)
		if err != nil {
			return core.Filter{}, err
		}
		f.Frequencies = append(f.Frequencies, freq)
	}
	return f, nil
}
