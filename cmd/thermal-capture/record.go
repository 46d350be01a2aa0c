package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/e7canasta/orion-thermal-capture/capture"
	"github.com/e7canasta/orion-thermal-capture/envi"
	"github.com/e7canasta/orion-thermal-capture/internal/config"
	"github.com/e7canasta/orion-thermal-capture/sink"
)

func newRecordCmd(root *rootFlags) *cobra.Command {
	var (
		duration time.Duration
		outDir   string
		name     string
		replay   string
		mqtt     string
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record frames to <name>.bin with an ENVI header and run manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.setup(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("duration") {
				cfg.Capture.Duration = duration
			}
			if flags.Changed("out-dir") {
				cfg.Output.Dir = outDir
			}
			if flags.Changed("name") {
				cfg.Output.Name = name
			}
			if flags.Changed("replay") {
				cfg.Camera.Sim.Replay = replay
			}
			if flags.Changed("mqtt") {
				cfg.MQTT.Enabled = true
				cfg.MQTT.Broker = mqtt
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			return runRecord(cmd.Context(), cmd.OutOrStdout(), cfg, logger)
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "recording duration (overrides capture.duration)")
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "output directory (overrides output.dir)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "output base name (overrides output.name)")
	cmd.Flags().StringVar(&replay, "replay", "", "raw recording replayed by the simulated camera")
	cmd.Flags().StringVar(&mqtt, "mqtt", "", "publish frames to this MQTT broker (host:port)")
	return cmd
}

func runRecord(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger) (err error) {
	base := filepath.Join(cfg.Output.Dir, cfg.Output.Name)

	bin, err := sink.CreateFile(base + ".bin")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := bin.Close(); err == nil {
			err = cerr
		}
	}()

	preview := sink.NewPreview()
	sinks := []sinkRegistration{
		{w: bin, controlFrames: cfg.Output.ControlFrames},
		{w: preview},
	}

	var mq *sink.MQTT
	var async *sink.Async
	if cfg.MQTT.Enabled {
		mq, err = sink.DialMQTT(ctx, sink.MQTTConfig{
			Broker:        cfg.MQTT.Broker,
			ClientID:      cfg.MQTT.ClientID,
			Topic:         cfg.MQTT.Topic,
			QoS:           cfg.MQTT.QoS,
			Source:        cfg.Camera.Path,
			ControlFrames: true,
			Logger:        logger,
		})
		if err != nil {
			return err
		}
		defer mq.Close()

		async, err = sink.NewAsync(mq, sink.AsyncOptions{
			Name:     "mqtt",
			Capacity: cfg.MQTT.QueueFrames,
			Paired:   true,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		defer func() {
			if cerr := async.Close(); err == nil {
				err = cerr
			}
		}()
		sinks = append(sinks, sinkRegistration{w: async, controlFrames: true})
	}

	s, err := openSession(cfg, logger, sinks...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			logger.Error("failed to close camera", "error", cerr)
			if err == nil {
				err = cerr
			}
		}
	}()

	geom, err := s.Geometry()
	if err != nil {
		return err
	}

	startedAt := time.Now()
	if err := s.StartRecording(); err != nil {
		return err
	}
	logger.Info("recording",
		"duration", cfg.Capture.Duration,
		"output", base+".bin",
		"mqtt", cfg.MQTT.Enabled)

	g, gctx := errgroup.WithContext(ctx)
	recCtx, recDone := context.WithCancel(gctx)
	var meta *capture.RunMetadata
	var peak atomic.Uint32

	g.Go(func() error {
		defer recDone()
		defer preview.Close()

		waitErr := s.WaitRecording(gctx, cfg.Capture.Duration)
		if waitErr != nil && errors.Is(waitErr, context.Canceled) {
			// interrupted: the session is already closed
			return waitErr
		}
		m, stopErr := s.StopRecording()
		if waitErr != nil {
			return waitErr
		}
		meta = m
		return stopErr
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.Capture.StatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-recCtx.Done():
				return nil
			case <-ticker.C:
				st := s.Stats()
				logger.Info("capture stats",
					"frames", st.Frames,
					"fps", fmt.Sprintf("%.1f", st.FPS),
					"mb", fmt.Sprintf("%.2f", float64(st.Bytes)/1024/1024),
					"frame_timeouts", st.FrameTimeouts,
					"preview_drops", preview.Drops(),
					"peak", peak.Load())
			}
		}
	})

	g.Go(func() error {
		for {
			frame, err := preview.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			peak.Store(framePeak(frame, geom.PixelSize))
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if err := envi.WriteFile(base+".hdr", meta.Fields,
		envi.Field{Key: "file type", Value: "ENVI Standard"},
		envi.Field{Key: "header offset", Value: 0},
	); err != nil {
		return err
	}

	if cfg.Output.Manifest {
		m := newManifest(s, meta, geom, cfg, startedAt, base)
		if err := writeManifest(base+".run.yaml", m); err != nil {
			return err
		}
	}

	bands, _ := meta.Int(capture.KeyBands)
	fmt.Fprintf(out, "recorded %d frames (%dx%d %s) to %s.bin\n", bands, geom.Width, geom.Height, geom.Type, base)
	fmt.Fprintf(out, "  mean rate %.2f fps, jitter %s, stable %v\n",
		meta.Cadence.RateMean, meta.Cadence.JitterMean.Round(time.Microsecond), meta.Cadence.IsStable)
	if async != nil {
		st := async.Stats()
		fmt.Fprintf(out, "  mqtt: %d published, %d dropped\n", mq.Stats().Published, st.Dropped)
	}
	return nil
}

// framePeak returns the largest pixel value of a little-endian frame.
func framePeak(frame []byte, pixelSize int) uint32 {
	var peak uint32
	for off := 0; off+pixelSize <= len(frame); off += pixelSize {
		var v uint32
		switch pixelSize {
		case 1:
			v = uint32(frame[off])
		case 2:
			v = uint32(binary.LittleEndian.Uint16(frame[off:]))
		case 4:
			v = binary.LittleEndian.Uint32(frame[off:])
		default:
			return 0
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}
