// Package bridge carries bus traffic over a byte stream as JSON lines:
// matching local messages go out, and inbound lines on allowed topics are
// published locally. It is configured by a message on config/bridge.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"turret-go/bus"
	"turret-go/types"
)

var (
	TopicConfig = bus.Topic{"config", "bridge"}
	TopicState  = bus.Topic{"bridge", "state"}
)

// Start runs the bridge until ctx is cancelled. It waits for a Config on
// config/bridge and (re)starts the link on every new one.
func Start(ctx context.Context, conn *bus.Connection) {
	s := &Service{conn: conn}
	s.run(ctx)
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

type Config struct {
	Transport TransportConfig `json:"transport"`

	// Forward lists local topic patterns sent over the link. Accept lists
	// the patterns inbound lines may publish to.
	Forward []string `json:"forward,omitempty"`
	Accept  []string `json:"accept,omitempty"`
}

type TransportConfig struct {
	// "stdio", "serial", "mqtt" or a name added with RegisterTransport.
	Type   string        `json:"type"`
	Serial *SerialConfig `json:"serial,omitempty"`
	MQTT   *MQTTConfig   `json:"mqtt,omitempty"`
}

type SerialConfig struct {
	Port          string `json:"port"`
	Baud          int    `json:"baud"`
	ReadTimeoutMS int    `json:"read_timeout_ms,omitempty"`
}

func (c Config) forward() []bus.Topic { return patterns(c.Forward, "turret/#") }
func (c Config) accept() []bus.Topic  { return patterns(c.Accept, "config/#") }

func patterns(ss []string, def string) []bus.Topic {
	if len(ss) == 0 {
		ss = []string{def}
	}
	out := make([]bus.Topic, len(ss))
	for i, s := range ss {
		out[i] = bus.Parse(s)
	}
	return out
}

// -----------------------------------------------------------------------------
// Service
// -----------------------------------------------------------------------------

type Service struct {
	conn *bus.Connection

	mu     sync.Mutex
	curRun context.CancelFunc
	wg     sync.WaitGroup
}

func (s *Service) run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(TopicConfig)
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState("idle", "awaiting_config", nil)

	for {
		select {
		case <-ctx.Done():
			s.stopCurrent()
			s.wg.Wait()
			return
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.publishState("error", "config_subscription_closed", nil)
				return
			}
			cfg, err := decodeConfig(msg.Payload)
			if err != nil {
				s.publishState("error", "config_decode_failed", err)
				continue
			}
			s.reconfigure(ctx, cfg)
		}
	}
}

func (s *Service) stopCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.curRun != nil {
		s.curRun()
		s.curRun = nil
	}
}

func (s *Service) reconfigure(parent context.Context, cfg Config) {
	s.stopCurrent()
	s.wg.Wait()

	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	s.curRun = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runLink(ctx, cfg)
	}()
}

// -----------------------------------------------------------------------------
// Link supervision and I/O
// -----------------------------------------------------------------------------

func (s *Service) runLink(ctx context.Context, cfg Config) {
	if cfg.Transport.Type == "mqtt" {
		s.runMQTT(ctx, cfg)
		return
	}
	tr, err := newTransport(cfg.Transport)
	if err != nil {
		s.publishState("error", "transport_init_failed", err)
		return
	}

	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rwc, err := tr.Open(ctx)
		if err != nil {
			delay := backoff()
			s.publishState("degraded", "dial_failed_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		s.publishState("up", "link_established", nil)
		err = s.handleLink(ctx, rwc, cfg)
		_ = rwc.Close()
		if err == nil || ctx.Err() != nil {
			return
		}
		delay := backoff()
		s.publishState("degraded", "link_lost_retrying", fmt.Errorf("%v (retry in %s)", err, delay))
		if !sleep(ctx, delay) {
			return
		}
	}
}

// handleLink owns one open link.
func (s *Service) handleLink(ctx context.Context, rwc io.ReadWriteCloser, cfg Config) error {
	out, stop := s.forward(cfg.forward())
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.readLoop(rwc, cfg.accept())
	}()

	wr := newFramedWriter(rwc)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == nil {
				err = io.EOF
			}
			return err
		case m := <-out:
			if err := wr.WriteMessage(m); err != nil {
				return err
			}
		}
	}
}

// forward merges subscriptions to patterns into one channel. They are
// made per link so retained values are resent after a reconnect.
func (s *Service) forward(patterns []bus.Topic) (<-chan *bus.Message, func()) {
	out := make(chan *bus.Message, 16)
	done := make(chan struct{})
	var subs []*bus.Subscription
	var fan sync.WaitGroup
	for _, p := range patterns {
		sub := s.conn.Subscribe(p)
		subs = append(subs, sub)
		fan.Add(1)
		go func() {
			defer fan.Done()
			for m := range sub.Channel() {
				select {
				case out <- m:
				case <-done:
					return
				}
			}
		}()
	}
	return out, func() {
		close(done)
		for _, sub := range subs {
			s.conn.Unsubscribe(sub)
		}
		fan.Wait()
	}
}

func (s *Service) readLoop(r io.Reader, accept []bus.Topic) error {
	rd := newFramedReader(r)
	for {
		f, err := rd.ReadFrame()
		if err != nil {
			if errors.Is(err, errBadFrame) {
				s.publishState("up", "bad_frame", err)
				continue
			}
			return err
		}
		s.inbound(f.Topic, f.Retained, f.Data, accept)
	}
}

// inbound publishes a remote message locally if its topic is accepted.
func (s *Service) inbound(topic string, retained bool, data []byte, accept []bus.Topic) {
	t := bus.Parse(topic)
	if !allowed(accept, t) {
		s.publishState("up", "topic_rejected", errors.New(topic))
		return
	}
	var payload any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			s.publishState("up", "bad_frame", err)
			return
		}
	}
	s.conn.Publish(s.conn.NewMessage(t, payload, retained))
}

func allowed(patterns []bus.Topic, t bus.Topic) bool {
	for _, p := range patterns {
		if bus.Match(p, t) {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Transport registry
// -----------------------------------------------------------------------------

// Transport is a pluggable link dialler.
type Transport interface {
	Open(ctx context.Context) (io.ReadWriteCloser, error)
	String() string
}

type transportFactory func(TransportConfig) (Transport, error)

var (
	regMu    sync.RWMutex
	registry = map[string]transportFactory{}
)

// RegisterTransport adds a transport by name (eg. "tcp").
func RegisterTransport(name string, f transportFactory) {
	regMu.Lock()
	defer regMu.Unlock()
	registry[name] = f
}

func newTransport(cfg TransportConfig) (Transport, error) {
	regMu.RLock()
	f, ok := registry[cfg.Type]
	regMu.RUnlock()
	if ok {
		return f(cfg)
	}
	switch cfg.Type {
	case "stdio":
		return stdioTransport{}, nil
	case "serial":
		return newSerialTransport(cfg)
	default:
		return nil, fmt.Errorf("unknown transport type: %q", cfg.Type)
	}
}

// -----------------------------------------------------------------------------
// Framing: one JSON object per line
// -----------------------------------------------------------------------------

// Frame is one line on the link.
type Frame struct {
	Topic    string          `json:"topic"`
	Retained bool            `json:"retained,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

const maxFrame = 4096

var errBadFrame = errors.New("bad frame")

type framedReader struct{ sc *bufio.Scanner }
type framedWriter struct{ enc *json.Encoder }

func newFramedReader(r io.Reader) *framedReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 256), maxFrame)
	return &framedReader{sc: sc}
}

func newFramedWriter(w io.Writer) *framedWriter { return &framedWriter{enc: json.NewEncoder(w)} }

func (fr *framedReader) ReadFrame() (Frame, error) {
	for fr.sc.Scan() {
		line := fr.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var f Frame
		if err := json.Unmarshal(line, &f); err != nil || f.Topic == "" {
			return Frame{}, fmt.Errorf("%w: %q", errBadFrame, line)
		}
		return f, nil
	}
	if err := fr.sc.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, io.EOF
}

func (fw *framedWriter) WriteMessage(m *bus.Message) error {
	data, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	return fw.enc.Encode(Frame{Topic: m.Topic.String(), Retained: m.Retained, Data: data})
}

// -----------------------------------------------------------------------------
// Utilities
// -----------------------------------------------------------------------------

func decodeConfig(p any) (Config, error) {
	var cfg Config
	switch v := p.(type) {
	case Config:
		return v, nil
	case []byte:
		if err := json.Unmarshal(v, &cfg); err != nil {
			return cfg, err
		}
	case string:
		if err := json.Unmarshal([]byte(v), &cfg); err != nil {
			return cfg, err
		}
	case map[string]any:
		// already decoded, e.g. arriving over a link
		b, err := json.Marshal(v)
		if err != nil {
			return cfg, err
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config payload type: %T", p)
	}
	return cfg, nil
}

func (s *Service) publishState(level, status string, err error) {
	st := types.BridgeState{Level: level, Status: status, TS: time.Now().UnixMilli()}
	if err != nil {
		st.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(TopicState, st, true))
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	var cur = min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
