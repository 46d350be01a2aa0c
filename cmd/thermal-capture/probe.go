package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newProbeCmd(root *rootFlags) *cobra.Command {
	var properties []string
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Open the camera and print its frame geometry",
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

			g, err := s.Geometry()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "camera\t%s\n", cfg.Camera.Path)
			fmt.Fprintf(tw, "width\t%d\n", g.Width)
			fmt.Fprintf(tw, "height\t%d\n", g.Height)
			fmt.Fprintf(tw, "frame type\t%s\n", g.Type)
			fmt.Fprintf(tw, "pixel size\t%d\n", g.PixelSize)
			fmt.Fprintf(tw, "frame size\t%d\n", g.Size)
			for _, name := range properties {
				v, err := s.Property(name)
				if err != nil {
					v = "error: " + err.Error()
				}
				fmt.Fprintf(tw, "%s\t%s\n", name, v)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringSliceVarP(&properties, "property", "p", nil, "camera property to read (repeatable)")
	return cmd
}
