package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device name
// Val: raw JSON; each top-level key becomes a retained config/<key> message
// -----------------------------------------------------------------------------

const cfgPico = `{
  "heartbeat": {
      "interval": 30
  }
}`

const cfgSim = `{
  "heartbeat": {
      "interval": 5
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"sim":  []byte(cfgSim),
}
