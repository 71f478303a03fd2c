//go:build !rp2040 && !rp2350

package config

import (
	"encoding/json"
	"io"
	"os"

	"turret-go/errcode"
)

// Load overlays a JSON document on Default and validates the result.
func Load(r io.Reader) (Config, error) {
	c := Default()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, &errcode.E{C: errcode.InvalidParams, Op: "config.load", Err: err}
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadFile is Load on a named file. An empty path returns Default.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return Load(f)
}
