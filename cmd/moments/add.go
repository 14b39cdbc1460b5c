package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/moments"
)

var (
	addDate        string
	addDescription string
	addRepeat      string
)

var addCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a moment",
	Example: `  moments add "Mum's birthday" --date 1961-03-14 --repeat yearly
  moments add "Dentist" --date 2025-02-03 -d "Bring the x-rays"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		freq, err := parseRepeat(addRepeat)
		if err != nil {
			return err
		}

		svc, err := openService()
		if err != nil {
			return err
		}
		defer svc.Close()

		e, err := svc.Create(cmd.Context(), moments.Input{
			Title:           strings.Join(args, " "),
			Description:     addDescription,
			Date:            addDate,
			RepeatFrequency: freq,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Moment added: %s\n", e.ID)
		printEntity(cmd.OutOrStdout(), e)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVar(&addDate, "date", "", "Date of the moment (YYYY-MM-DD)")
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "Optional description")
	addCmd.Flags().StringVarP(&addRepeat, "repeat", "r", "none", "Repeat: none, daily, weekly, monthly or yearly")
	_ = addCmd.MarkFlagRequired("date")
}

func parseRepeat(s string) (moments.RepeatFrequency, error) {
	var f moments.RepeatFrequency
	if err := f.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(s)))); err != nil {
		return "", fmt.Errorf("invalid --repeat: %w", err)
	}
	return f, nil
}
