package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/e7canasta/orion-thermal-capture/capture"
)

const (
	defaultPublishTimeout = 2 * time.Second
	defaultConnectTimeout = 5 * time.Second
)

// Publisher is the part of mqtt.Client the MQTT sink uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTConfig configures an MQTT sink.
type MQTTConfig struct {
	// Broker is host:port, dialled over tcp.
	Broker string
	// ClientID defaults to "thermal-capture-<uuid>".
	ClientID string
	Topic    string
	QoS      byte
	// Source labels every envelope, typically the camera name.
	Source string
	// ControlFrames must match the AddSink registration. When set, each
	// envelope carries the frame's elapsed milliseconds.
	ControlFrames bool

	PublishTimeout time.Duration
	ConnectTimeout time.Duration
	Logger         *slog.Logger
}

// Envelope is the msgpack message published for every frame.
type Envelope struct {
	Source    string  `msgpack:"source"`
	Seq       uint64  `msgpack:"seq"`
	ElapsedMS *uint32 `msgpack:"elapsed_ms,omitempty"`
	Data      []byte  `msgpack:"data"`
}

// MQTTStats reports publish activity.
type MQTTStats struct {
	Published uint64
	Errors    uint64
	Bytes     uint64
}

// MQTT publishes frames to a broker. Publishing waits for the broker
// acknowledgement up to PublishTimeout; wrap the sink in Async to keep a slow
// broker from holding up acquisition.
type MQTT struct {
	pub    Publisher
	client mqtt.Client
	cfg    MQTTConfig
	log    *slog.Logger

	mu      sync.Mutex
	pending *uint32
	seq     uint64

	published atomic.Uint64
	errors    atomic.Uint64
	bytes     atomic.Uint64
}

// DialMQTT connects to cfg.Broker and returns a sink that owns the
// connection.
func DialMQTT(ctx context.Context, cfg MQTTConfig) (*MQTT, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("sink: mqtt broker is required")
	}
	cfg = mqttDefaults(cfg)
	log := cfg.Logger

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		log.Info("sink: mqtt connection established", "broker", cfg.Broker, "client_id", cfg.ClientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn("sink: mqtt connection lost, will auto-reconnect", "broker", cfg.Broker, "error", err)
	}

	client := mqtt.NewClient(opts)
	log.Info("sink: connecting to mqtt broker", "broker", cfg.Broker)

	token := client.Connect()
	timer := time.NewTimer(cfg.ConnectTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-timer.C:
		client.Disconnect(0)
		return nil, fmt.Errorf("sink: mqtt connection timeout after %s", cfg.ConnectTimeout)
	case <-ctx.Done():
		client.Disconnect(0)
		return nil, ctx.Err()
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("sink: mqtt connection failed: %w", err)
	}

	s, err := NewMQTT(client, cfg)
	if err != nil {
		client.Disconnect(250)
		return nil, err
	}
	s.client = client
	return s, nil
}

// NewMQTT returns a sink publishing through pub. The caller keeps ownership
// of pub.
func NewMQTT(pub Publisher, cfg MQTTConfig) (*MQTT, error) {
	if pub == nil {
		return nil, fmt.Errorf("sink: mqtt publisher is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("sink: mqtt topic is required")
	}
	cfg = mqttDefaults(cfg)
	return &MQTT{
		pub: pub,
		cfg: cfg,
		log: cfg.Logger.With("topic", cfg.Topic),
	}, nil
}

func mqttDefaults(cfg MQTTConfig) MQTTConfig {
	if cfg.ClientID == "" {
		cfg.ClientID = "thermal-capture-" + uuid.NewString()
	}
	if cfg.PublishTimeout == 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

// Write implements io.Writer. With ControlFrames set, writes alternate
// between a control frame (buffered) and a payload (published).
func (s *MQTT) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.ControlFrames && s.pending == nil {
		elapsed, err := capture.DecodeControlFrame(p)
		if err != nil {
			s.errors.Add(1)
			return 0, err
		}
		ms := uint32(elapsed.Milliseconds())
		s.pending = &ms
		return len(p), nil
	}

	env := Envelope{
		Source:    s.cfg.Source,
		Seq:       s.seq,
		ElapsedMS: s.pending,
		Data:      p,
	}
	s.pending = nil
	s.seq++

	payload, err := msgpack.Marshal(&env)
	if err != nil {
		s.errors.Add(1)
		return 0, fmt.Errorf("sink: failed to encode frame: %w", err)
	}

	token := s.pub.Publish(s.cfg.Topic, s.cfg.QoS, false, payload)
	if !token.WaitTimeout(s.cfg.PublishTimeout) {
		s.errors.Add(1)
		return 0, fmt.Errorf("sink: mqtt publish timeout after %s", s.cfg.PublishTimeout)
	}
	if err := token.Error(); err != nil {
		s.errors.Add(1)
		return 0, fmt.Errorf("sink: mqtt publish failed: %w", err)
	}

	s.published.Add(1)
	s.bytes.Add(uint64(len(payload)))
	s.log.Debug("sink: frame published", "seq", env.Seq, "size", len(payload))
	return len(p), nil
}

// Stats returns publish counters.
func (s *MQTT) Stats() MQTTStats {
	return MQTTStats{
		Published: s.published.Load(),
		Errors:    s.errors.Load(),
		Bytes:     s.bytes.Load(),
	}
}

// Close disconnects when the sink owns its connection.
func (s *MQTT) Close() error {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
		s.log.Info("sink: mqtt disconnected")
	}
	return nil
}

// DecodeEnvelope parses a published frame message.
func DecodeEnvelope(b []byte) (*Envelope, error) {
	var env Envelope
	if err := msgpack.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("sink: failed to decode envelope: %w", err)
	}
	return &env, nil
}
