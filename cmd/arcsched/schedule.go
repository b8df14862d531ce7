package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"arcsched/internal/i18n"
	"arcsched/internal/match"
	"arcsched/internal/model"
	"arcsched/internal/schedule"
	"arcsched/internal/status"
)

var (
	viewTZ   string
	viewLang string
)

// captureNow resolves --tz and captures one instant for the whole command.
func captureNow() (model.Instant, *time.Location, error) {
	loc := cfg.Location()
	if viewTZ != "" {
		l, err := time.LoadLocation(viewTZ)
		if err != nil {
			return model.Instant{}, nil, fmt.Errorf("unknown timezone %q: %w", viewTZ, err)
		}
		loc = l
	}
	return model.Capture(time.Now(), loc), loc, nil
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Print the 24-hour schedule in local time, marking matches with *",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		now, loc, err := captureNow()
		if err != nil {
			return err
		}
		tr := translator(viewLang)
		c := store.Load(cmd.Context()).Criteria()
		grid := match.Grid(schedule.Project(schedule.Default, now.OffsetHours), c)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Timezone: %s (UTC%+d)\n\n", loc, now.OffsetHours)

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		header := []string{" ", "LOCAL", "UTC"}
		for _, l := range model.Locations {
			header = append(header, strings.ToUpper(i18n.LocationLabel(tr, l)))
		}
		fmt.Fprintln(tw, strings.Join(header, "\t"))

		for _, row := range grid {
			marker := " "
			if row.UTCHour == now.UTCHour {
				marker = ">"
			}
			cols := []string{marker, fmt.Sprintf("%02d:00", row.LocalHour), fmt.Sprintf("%02d:00", row.UTCHour)}
			for _, cell := range row.Cells {
				names := make([]string, 0, len(cell.Events))
				for _, ev := range cell.Events {
					name := i18n.EventLabel(tr, ev.Event)
					if ev.Selected {
						name = "*" + name
					}
					names = append(names, name)
				}
				if len(names) == 0 {
					names = append(names, "-")
				}
				cols = append(cols, strings.Join(names, ", "))
			}
			fmt.Fprintln(tw, strings.Join(cols, "\t"))
		}
		return tw.Flush()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what is active now and the next matching event",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		now, _, err := captureNow()
		if err != nil {
			return err
		}
		tr := translator(viewLang)
		c := store.Load(cmd.Context()).Criteria()
		rows := schedule.Project(schedule.Default, now.OffsetHours)

		active := status.ActiveNow(rows, now, c)
		next := status.NextOccurrence(rows, now, c)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", tr.Sprintf("status.current_event"))
		switch active.Status {
		case status.StateEmpty:
			fmt.Fprintf(out, "  %s\n", tr.Sprintf("status.select_criteria"))
		case status.StateNone:
			fmt.Fprintf(out, "  %s\n", tr.Sprintf("status.no_active"))
		default:
			fmt.Fprintf(out, "  %s\n", i18n.HitLabel(tr, active.Hits))
			fmt.Fprintf(out, "  %s\n", tr.Sprintf("status.ends_in", status.FormatRemaining(active.RemainingSeconds)))
		}

		fmt.Fprintf(out, "%s\n", tr.Sprintf("status.next_event"))
		switch next.Reason {
		case status.ReasonNoCriteria:
			fmt.Fprintf(out, "  %s\n", tr.Sprintf("status.select_one_each"))
		case status.ReasonExhausted:
			fmt.Fprintf(out, "  %s\n", tr.Sprintf("status.none_found"))
		default:
			fmt.Fprintf(out, "  %s  (%s)\n", i18n.HitLabel(tr, next.Hits), next.Countdown())
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{scheduleCmd, statusCmd} {
		c.Flags().StringVar(&viewTZ, "tz", "", "IANA timezone for the local column (default: config timezone)")
		c.Flags().StringVar(&viewLang, "lang", "", "Label language (default: config language)")
		rootCmd.AddCommand(c)
	}
}
