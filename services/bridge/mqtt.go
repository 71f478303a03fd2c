package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

type MQTTConfig struct {
	Broker   string `json:"broker"` // e.g. tcp://localhost:1883
	ClientID string `json:"client_id,omitempty"`
	// Prefix is prepended to every topic on the broker side.
	Prefix string `json:"prefix,omitempty"`
}

func (c MQTTConfig) remote(t string) string {
	if c.Prefix == "" {
		return t
	}
	return c.Prefix + "/" + t
}

func (c MQTTConfig) local(t string) (string, bool) {
	if c.Prefix == "" {
		return t, true
	}
	return strings.CutPrefix(t, c.Prefix+"/")
}

// Broker is the part of an MQTT client the bridge uses.
type Broker interface {
	Publish(topic string, retained bool, payload []byte) error
	Subscribe(topic string, fn func(topic string, retained bool, payload []byte)) error
	// Lost yields once if the connection drops.
	Lost() <-chan error
	Close()
}

// DialMQTT connects to the broker. Tests replace it.
var DialMQTT = func(ctx context.Context, c MQTTConfig) (Broker, error) { return dialPaho(ctx, c) }

func mqttConfig(t TransportConfig) (MQTTConfig, error) {
	if t.MQTT == nil || t.MQTT.Broker == "" {
		return MQTTConfig{}, errors.New("mqtt transport requires a broker")
	}
	c := *t.MQTT
	if c.ClientID == "" {
		c.ClientID = "turret"
	}
	return c, nil
}

func (s *Service) runMQTT(ctx context.Context, cfg Config) {
	mc, err := mqttConfig(cfg.Transport)
	if err != nil {
		s.publishState("error", "transport_init_failed", err)
		return
	}

	backoff := backoffSeq(250*time.Millisecond, 5*time.Second)
	for {
		if ctx.Err() != nil {
			return
		}
		br, err := DialMQTT(ctx, mc)
		if err != nil {
			delay := backoff()
			s.publishState("degraded", "dial_failed_retrying", err)
			if !sleep(ctx, delay) {
				return
			}
			continue
		}

		s.publishState("up", "link_established", nil)
		err = s.handleMQTT(ctx, br, mc, cfg)
		br.Close()
		if err == nil || ctx.Err() != nil {
			return
		}
		delay := backoff()
		s.publishState("degraded", "link_lost_retrying", err)
		if !sleep(ctx, delay) {
			return
		}
	}
}

func (s *Service) handleMQTT(ctx context.Context, br Broker, mc MQTTConfig, cfg Config) error {
	out, stop := s.forward(cfg.forward())
	defer stop()

	accept := cfg.accept()
	for _, p := range accept {
		err := br.Subscribe(mc.remote(p.String()), func(topic string, retained bool, payload []byte) {
			if t, ok := mc.local(topic); ok {
				s.inbound(t, retained, payload, accept)
			}
		})
		if err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-br.Lost():
			if err == nil {
				err = errors.New("connection lost")
			}
			return err
		case m := <-out:
			data, err := json.Marshal(m.Payload)
			if err != nil {
				s.publishState("up", "encode_failed", err)
				continue
			}
			if err := br.Publish(mc.remote(m.Topic.String()), m.Retained, data); err != nil {
				return err
			}
		}
	}
}

// -----------------------------------------------------------------------------
// paho client
// -----------------------------------------------------------------------------

type pahoBroker struct {
	client paho.Client
	lost   chan error
}

func dialPaho(ctx context.Context, c MQTTConfig) (Broker, error) {
	b := &pahoBroker{lost: make(chan error, 1)}
	will, _ := json.Marshal(map[string]string{"level": "error", "status": "link_lost"})
	opts := paho.NewClientOptions().
		AddBroker(c.Broker).
		SetClientID(c.ClientID).
		SetAutoReconnect(false).
		SetConnectTimeout(10*time.Second).
		SetBinaryWill(c.remote(TopicState.String()), will, 0, true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			select {
			case b.lost <- err:
			default:
			}
		})

	b.client = paho.NewClient(opts)
	tok := b.client.Connect()
	select {
	case <-tok.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := tok.Error(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *pahoBroker) Publish(topic string, retained bool, payload []byte) error {
	tok := b.client.Publish(topic, 0, retained, payload)
	if !tok.WaitTimeout(5 * time.Second) {
		return errors.New("publish timeout")
	}
	return tok.Error()
}

func (b *pahoBroker) Subscribe(topic string, fn func(string, bool, []byte)) error {
	tok := b.client.Subscribe(topic, 0, func(_ paho.Client, m paho.Message) {
		fn(m.Topic(), m.Retained(), m.Payload())
	})
	if !tok.WaitTimeout(5 * time.Second) {
		return errors.New("subscribe timeout")
	}
	return tok.Error()
}

func (b *pahoBroker) Lost() <-chan error { return b.lost }

func (b *pahoBroker) Close() { b.client.Disconnect(250) }
