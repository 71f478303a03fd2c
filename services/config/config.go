// Package config publishes a device's embedded runtime settings as
// retained messages, one per top-level key, under config/<key>.
package config

import (
	"encoding/json"

	"turret-go/bus"
	"turret-go/errcode"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

type ConfigService struct {
	Name   string
	Device string
}

func NewConfigService(device string) *ConfigService {
	return &ConfigService{Name: serviceName, Device: device}
}

// Publish reads the device config and publishes each key retained. It
// runs to completion before returning so later subscribers see every key.
func (s *ConfigService) Publish(conn *bus.Connection) error {
	const op = "config.publish"
	if s.Device == "" {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "missing device"}
	}

	raw, ok := EmbeddedConfigLookup(s.Device)
	if !ok || len(raw) == 0 {
		return &errcode.E{C: errcode.NotFound, Op: op, Msg: s.Device}
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "embedded config is not a JSON object", Err: err}
	}

	for k, v := range m {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
	println("[config]", s.Device, len(m), "keys")
	return nil
}
