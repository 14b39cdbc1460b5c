package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/moments"
)

var (
	editTitle       string
	editDate        string
	editDescription string
	editRepeat      string
)

var editCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Change a moment",
	Long:  `Edit replaces the fields given as flags and keeps the others.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openService()
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx := cmd.Context()
		cur, err := svc.Get(ctx, args[0])
		if err != nil {
			return err
		}

		in := moments.Input{
			Title:           cur.Title,
			Description:     cur.Description,
			Date:            cur.Date,
			RepeatFrequency: cur.RepeatFrequency,
		}
		flags := cmd.Flags()
		if flags.Changed("title") {
			in.Title = editTitle
		}
		if flags.Changed("date") {
			in.Date = editDate
		}
		if flags.Changed("description") {
			in.Description = editDescription
		}
		if flags.Changed("repeat") {
			if in.RepeatFrequency, err = parseRepeat(editRepeat); err != nil {
				return err
			}
		}

		e, err := svc.Update(ctx, args[0], in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Moment updated: %s\n", e.ID)
		printEntity(cmd.OutOrStdout(), e)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVarP(&editTitle, "title", "t", "", "New title")
	editCmd.Flags().StringVar(&editDate, "date", "", "New date (YYYY-MM-DD)")
	editCmd.Flags().StringVarP(&editDescription, "description", "d", "", "New description")
	editCmd.Flags().StringVarP(&editRepeat, "repeat", "r", "", "New repeat frequency")
}
