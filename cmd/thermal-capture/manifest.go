package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/e7canasta/orion-thermal-capture/capture"
	"github.com/e7canasta/orion-thermal-capture/internal/config"
)

// manifest is the <name>.run.yaml record written next to a recording.
type manifest struct {
	SessionID     string           `yaml:"session_id"`
	RunID         string           `yaml:"run_id"`
	Camera        string           `yaml:"camera"`
	StartedAt     time.Time        `yaml:"started_at"`
	Duration      time.Duration    `yaml:"duration"`
	Frames        int              `yaml:"frames"`
	ControlFrames bool             `yaml:"control_frames"`
	Geometry      manifestGeometry `yaml:"geometry"`
	Cadence       manifestCadence  `yaml:"cadence"`
	Files         manifestFiles    `yaml:"files"`
}

type manifestGeometry struct {
	Width     uint32 `yaml:"width"`
	Height    uint32 `yaml:"height"`
	FrameType string `yaml:"frame_type"`
	FrameSize uint32 `yaml:"frame_size"`
	PixelSize int    `yaml:"pixel_size"`
}

type manifestCadence struct {
	RateMean   float64       `yaml:"rate_mean"`
	RateStdDev float64       `yaml:"rate_stddev"`
	JitterMean time.Duration `yaml:"jitter_mean"`
	JitterMax  time.Duration `yaml:"jitter_max"`
	Stable     bool          `yaml:"stable"`
}

type manifestFiles struct {
	Data   string `yaml:"data"`
	Header string `yaml:"header"`
}

func newManifest(s *capture.Session, meta *capture.RunMetadata, geom capture.Geometry, cfg *config.Config, startedAt time.Time, base string) manifest {
	frames, _ := meta.Int(capture.KeyBands)
	return manifest{
		SessionID:     s.ID(),
		RunID:         meta.RunID,
		Camera:        cfg.Camera.Path,
		StartedAt:     startedAt.UTC().Truncate(time.Millisecond),
		Duration:      meta.Cadence.Duration,
		Frames:        frames,
		ControlFrames: cfg.Output.ControlFrames,
		Geometry: manifestGeometry{
			Width:     geom.Width,
			Height:    geom.Height,
			FrameType: geom.Type.String(),
			FrameSize: geom.Size,
			PixelSize: geom.PixelSize,
		},
		Cadence: manifestCadence{
			RateMean:   meta.Cadence.RateMean,
			RateStdDev: meta.Cadence.RateStdDev,
			JitterMean: meta.Cadence.JitterMean,
			JitterMax:  meta.Cadence.JitterMax,
			Stable:     meta.Cadence.IsStable,
		},
		Files: manifestFiles{
			Data:   filepath.Base(base + ".bin"),
			Header: filepath.Base(base + ".hdr"),
		},
	}
}

func writeManifest(path string, m manifest) error {
	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func readManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.Geometry.FrameSize == 0 {
		return nil, fmt.Errorf("manifest %s has no frame size", path)
	}
	return &m, nil
}
