package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/e7canasta/orion-thermal-capture/internal/cadence"
	"github.com/e7canasta/orion-thermal-capture/sink"
)

func newInspectCmd(root *rootFlags) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "inspect <recording>",
		Short: "Summarise a recording from its .run.yaml manifest and .bin data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base := strings.TrimSuffix(strings.TrimSuffix(args[0], ".bin"), ".run.yaml")
			m, err := readManifest(base + ".run.yaml")
			if err != nil {
				return err
			}

			f, err := os.Open(filepath.Join(filepath.Dir(base), m.Files.Data))
			if err != nil {
				return err
			}
			defer f.Close()

			out := cmd.OutOrStdout()
			var elapsed []time.Duration
			var peak uint32
			n, err := sink.ReadRecording(f, int(m.Geometry.FrameSize), m.ControlFrames,
				func(i int, d time.Duration, frame []byte) error {
					elapsed = append(elapsed, d)
					p := framePeak(frame, m.Geometry.PixelSize)
					peak = max(peak, p)
					if verbose {
						fmt.Fprintf(out, "frame %6d  t=%8d ms  peak=%d\n", i, d.Milliseconds(), p)
					}
					return nil
				})
			if err != nil {
				return fmt.Errorf("frame %d: %w", n, err)
			}

			fmt.Fprintf(out, "run %s: %d frames of %dx%d %s, peak %d\n",
				m.RunID, n, m.Geometry.Width, m.Geometry.Height, m.Geometry.FrameType, peak)
			if n != m.Frames {
				fmt.Fprintf(out, "warning: manifest lists %d frames\n", m.Frames)
			}
			if m.ControlFrames {
				st := cadence.Compute(elapsed, 0)
				fmt.Fprintf(out, "cadence: %.2f fps (stddev %.2f), jitter mean %s max %s, stable %v\n",
					st.RateMean, st.RateStdDev, st.JitterMean, st.JitterMax, st.IsStable)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every frame")
	return cmd
}
