package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"arcsched/internal/model"
	"arcsched/internal/prefs"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage alert rules (event + map pairs)",
}

var rulesAddCmd = &cobra.Command{
	Use:   "add <event> <map>",
	Short: "Add an alert rule",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, ok := model.ParseEventKind(args[0])
		if !ok {
			return fmt.Errorf("%w: %q", prefs.ErrUnknownEvent, args[0])
		}
		l, ok := model.ParseLocation(args[1])
		if !ok {
			return fmt.Errorf("%w: %q", prefs.ErrUnknownLocation, args[1])
		}

		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		rule, err := store.AddRule(cmd.Context(), e, l)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s: %s @ %s\n", rule.ID, rule.Event, rule.Location)
		return nil
	},
}

var rulesRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove an alert rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		if err := store.RemoveRule(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
		return nil
	},
}

var rulesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List alert rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		rules := store.Load(cmd.Context()).Rules
		if len(rules) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no rules")
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tEVENT\tMAP")
		for _, r := range rules {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Event, r.Location)
		}
		return tw.Flush()
	},
}

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Toggle global event and map filters",
}

var filterEventCmd = &cobra.Command{
	Use:   "event <name>",
	Short: "Toggle an event filter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, ok := model.ParseEventKind(args[0])
		if !ok {
			return fmt.Errorf("%w: %q", prefs.ErrUnknownEvent, args[0])
		}
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		events, err := store.ToggleEvent(cmd.Context(), e)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "events: %v\n", events)
		return nil
	},
}

var filterLocationCmd = &cobra.Command{
	Use:     "location <name>",
	Aliases: []string{"map"},
	Short:   "Toggle a map filter",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, ok := model.ParseLocation(args[0])
		if !ok {
			return fmt.Errorf("%w: %q", prefs.ErrUnknownLocation, args[0])
		}
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		locations, err := store.ToggleLocation(cmd.Context(), l)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "maps: %v\n", locations)
		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesAddCmd, rulesRmCmd, rulesLsCmd)
	filterCmd.AddCommand(filterEventCmd, filterLocationCmd)
	rootCmd.AddCommand(rulesCmd, filterCmd)
}
