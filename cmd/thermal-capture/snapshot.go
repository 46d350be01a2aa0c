package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newSnapshotCmd(root *rootFlags) *cobra.Command {
	var (
		output  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture a single frame to a raw file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.setup(cmd)
			if err != nil {
				return err
			}
			s, err := openSession(cfg, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			frame, err := s.Snapshot(ctx)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, frame, 0o644); err != nil {
				return err
			}

			g, err := s.Geometry()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes (%dx%d %s) to %s\n",
				len(frame), g.Width, g.Height, g.Type, output)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "snapshot.raw", "output file")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "give up if no frame arrives in time")
	return cmd
}
