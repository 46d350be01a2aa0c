package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/e7canasta/orion-thermal-capture/capture"
	"github.com/e7canasta/orion-thermal-capture/device"
	"github.com/e7canasta/orion-thermal-capture/device/sim"
	"github.com/e7canasta/orion-thermal-capture/internal/config"
)

// Version information
const version = "v0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "thermal-capture: %v\n", err)
		stop()
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "thermal-capture",
		Short:         "Record frames from a thermal line-scan camera",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	root.AddCommand(newRecordCmd(flags))
	root.AddCommand(newSnapshotCmd(flags))
	root.AddCommand(newProbeCmd(flags))
	root.AddCommand(newInspectCmd(flags))
	root.AddCommand(newConfigCmd(flags))
	root.AddCommand(newVersionCmd())
	return root
}

// setup loads the configuration and installs the logger for a command.
func (f *rootFlags) setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, nil, err
	}
	if f.debug {
		cfg.Logging.Level = "debug"
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Logging)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func newCamera(cfg *config.Config, logger *slog.Logger) (*sim.Camera, error) {
	ft, err := device.ParseFrameType(cfg.Camera.Sim.FrameType)
	if err != nil {
		return nil, err
	}
	simCfg := sim.Config{
		Width:         cfg.Camera.Sim.Width,
		Height:        cfg.Camera.Sim.Height,
		FrameType:     ft,
		FrameInterval: cfg.Camera.Sim.FrameInterval,
		Logger:        logger,
	}
	if cfg.Camera.Sim.Replay != "" {
		replay, err := sim.LoadReplay(cfg.Camera.Sim.Replay)
		if err != nil {
			return nil, err
		}
		simCfg.Replay = replay
	}
	return sim.New(simCfg)
}

func sessionOptions(cfg *config.Config, logger *slog.Logger) capture.Options {
	return capture.Options{
		Calibration:        cfg.Camera.Calibration,
		SoftwareCorrection: cfg.Camera.SoftwareCorrection,
		StopTimeout:        cfg.Capture.StopTimeout,
		CloseTimeout:       cfg.Capture.CloseTimeout,
		CaptureRetries:     cfg.Capture.CaptureRetries,
		CaptureRetryDelay:  cfg.Capture.CaptureRetryDelay,
		ErrorPollInterval:  cfg.Capture.ErrorPollInterval,
		FrameTimeout:       cfg.Capture.FrameTimeout,
		Logger:             logger,
	}
}

// openSession creates a session on the configured camera, opens it and
// applies the configured properties. The caller closes the session.
func openSession(cfg *config.Config, logger *slog.Logger, sinks ...sinkRegistration) (*capture.Session, error) {
	cam, err := newCamera(cfg, logger)
	if err != nil {
		return nil, err
	}
	s, err := capture.NewSession(cam, sessionOptions(cfg, logger))
	if err != nil {
		return nil, err
	}
	for _, r := range sinks {
		if err := s.AddSink(r.w, r.controlFrames); err != nil {
			return nil, err
		}
	}
	if err := s.Open(cfg.Camera.Path); err != nil {
		return nil, err
	}
	for _, p := range cfg.Camera.Properties {
		if err := s.SetProperty(p.Name, p.Value); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

type sinkRegistration struct {
	w             io.Writer
	controlFrames bool
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "thermal-capture %s\n", version)
			return err
		},
	}
}
