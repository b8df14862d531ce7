package main

import (
	"github.com/spf13/cobra"

	"arcsched/internal/capture"
)

var (
	snapshotURL string
	snapshotOut string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture a PNG of the running schedule UI with headless Chromium",
	RunE: func(cmd *cobra.Command, args []string) error {
		url := snapshotURL
		if url == "" {
			url = cfg.Capture.URL
		}
		if url == "" {
			url = "http://" + cfg.Listen + "/"
		}
		out := snapshotOut
		if out == "" {
			out = cfg.Capture.Output
		}
		return capture.CaptureSchedulePNG(cmd.Context(), capture.Options{
			URL:        url,
			OutputPath: out,
			Width:      cfg.Capture.Width,
			Height:     cfg.Capture.Height,
		})
	},
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotURL, "url", "", "Page to capture (default: capture.url or the local server)")
	snapshotCmd.Flags().StringVarP(&snapshotOut, "out", "o", "", "Output PNG path (default: capture.output)")
	rootCmd.AddCommand(snapshotCmd)
}
