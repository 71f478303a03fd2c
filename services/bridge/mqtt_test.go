package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"turret-go/bus"
	"turret-go/types"
)

type published struct {
	topic    string
	retained bool
	payload  []byte
}

// fakeBroker records publishes and lets the test inject inbound messages.
type fakeBroker struct {
	mu     sync.Mutex
	subs   map[string]func(string, bool, []byte)
	pub    chan published
	lost   chan error
	closed bool
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		subs: map[string]func(string, bool, []byte){},
		pub:  make(chan published, 16),
		lost: make(chan error, 1),
	}
}

func (f *fakeBroker) Publish(topic string, retained bool, payload []byte) error {
	f.pub <- published{topic, retained, payload}
	return nil
}

func (f *fakeBroker) Subscribe(topic string, fn func(string, bool, []byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[topic] = fn
	return nil
}

func (f *fakeBroker) Lost() <-chan error { return f.lost }

func (f *fakeBroker) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeBroker) deliver(pattern, topic string, payload string) bool {
	f.mu.Lock()
	fn := f.subs[pattern]
	f.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(topic, false, []byte(payload))
	return true
}

var _ Broker = (*fakeBroker)(nil)

func withFakeDial(t *testing.T) chan *fakeBroker {
	t.Helper()
	dialled := make(chan *fakeBroker, 4)
	old := DialMQTT
	DialMQTT = func(context.Context, MQTTConfig) (Broker, error) {
		fb := newFakeBroker()
		dialled <- fb
		return fb, nil
	}
	t.Cleanup(func() { DialMQTT = old })
	return dialled
}

func TestMQTT_ForwardsWithPrefixAndAcceptsInbound(t *testing.T) {
	dialled := withFakeDial(t)

	b := bus.NewBus(16)
	local := b.NewConnection("local")
	hb := local.Subscribe(bus.T("config", "heartbeat"))
	conn := b.NewConnection("bridge")
	state := conn.Subscribe(TopicState)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Start(ctx, conn)
	assertLevelStatus(t, nextState(t, state, time.Second), "idle", "awaiting_config")

	cfg := Config{Transport: TransportConfig{Type: "mqtt", MQTT: &MQTTConfig{Broker: "tcp://broker:1883", Prefix: "sentry/1"}}}
	conn.Publish(conn.NewMessage(TopicConfig, cfg, false))
	fb := <-dialled
	assertLevelStatus(t, nextState(t, state, time.Second), "up", "link_established")

	local.Publish(local.NewMessage(bus.T("turret", "target"), types.TargetStatus{State: "early_contact", Start: 4}, true))
	select {
	case p := <-fb.pub:
		var ts types.TargetStatus
		if p.topic != "sentry/1/turret/target" || !p.retained || json.Unmarshal(p.payload, &ts) != nil || ts.Start != 4 {
			t.Fatalf("published %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("nothing published")
	}

	deadline := time.Now().Add(time.Second)
	for !fb.deliver("sentry/1/config/#", "sentry/1/config/heartbeat", `{"interval":3}`) {
		if time.Now().After(deadline) {
			t.Fatal("bridge never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	select {
	case m := <-hb.Channel():
		if p, ok := m.Payload.(map[string]any); !ok || p["interval"] != 3.0 {
			t.Fatalf("payload=%#v", m.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("inbound not published")
	}
}

func TestMQTT_ReconnectsAfterLoss(t *testing.T) {
	dialled := withFakeDial(t)

	b := bus.NewBus(16)
	conn := b.NewConnection("bridge")
	state := conn.Subscribe(TopicState)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Start(ctx, conn)
	_ = nextState(t, state, time.Second)

	conn.Publish(conn.NewMessage(TopicConfig, `{"transport":{"type":"mqtt","mqtt":{"broker":"tcp://x:1883"}}}`, false))
	fb := <-dialled
	assertLevelStatus(t, nextState(t, state, time.Second), "up", "link_established")

	fb.lost <- errors.New("eof")
	assertLevelStatus(t, nextState(t, state, time.Second), "degraded", "link_lost_retrying")
	select {
	case <-dialled:
	case <-time.After(2 * time.Second):
		t.Fatal("no redial")
	}
	assertLevelStatus(t, nextState(t, state, time.Second), "up", "link_established")

	fb.mu.Lock()
	closed := fb.closed
	fb.mu.Unlock()
	if !closed {
		t.Fatal("lost broker not closed")
	}
}

func TestMQTTConfig(t *testing.T) {
	if _, err := mqttConfig(TransportConfig{Type: "mqtt"}); err == nil {
		t.Fatal("expected error without broker")
	}
	c, err := mqttConfig(TransportConfig{MQTT: &MQTTConfig{Broker: "tcp://b:1883", Prefix: "p"}})
	if err != nil || c.ClientID != "turret" {
		t.Fatalf("cfg=%+v err=%v", c, err)
	}
	if got := c.remote("turret/scan"); got != "p/turret/scan" {
		t.Fatalf("remote=%q", got)
	}
	if got, ok := c.local("p/config/x"); !ok || got != "config/x" {
		t.Fatalf("local=%q %v", got, ok)
	}
	if _, ok := c.local("q/config/x"); ok {
		t.Fatal("foreign prefix accepted")
	}
}
