package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		FreeDS: FreeDSConfig{
			Host:                 "192.168.1.50",
			Port:                 80,
			RebootCooldownMillis: 90000,
		},
		MQTT: MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "FreeDS",
			HADiscoveryTopic: "homeassistant",
		},
	}
}

func TestNormalizeDefaults(t *testing.T) {

	assert := assert.New(t)

	cfg := validConfig()
	assert.NoError(Normalize(&cfg))

	assert.Equal("freeds", cfg.MQTT.BaseTopic)
	assert.Equal("192_168_1_50", cfg.FreeDS.UniqueId)
	assert.Equal("FreeDS 192_168_1_50", cfg.FreeDS.Name)
	assert.Equal(80, cfg.FreeDS.Device().Port)
}

func TestNormalizeKeepsExplicitIdentity(t *testing.T) {

	assert := assert.New(t)

	cfg := validConfig()
	cfg.FreeDS.UniqueId = "Garage"
	cfg.FreeDS.Name = "Garage diverter"
	assert.NoError(Normalize(&cfg))

	assert.Equal("garage", cfg.FreeDS.UniqueId)
	assert.Equal("Garage diverter", cfg.FreeDS.Name)
}

func TestNormalizeRejects(t *testing.T) {

	assert := assert.New(t)

	cases := map[string]func(*Config){
		"base topic":      func(c *Config) { c.MQTT.BaseTopic = "free/ds" },
		"discovery topic": func(c *Config) { c.MQTT.HADiscoveryTopic = "" },
		"missing host":    func(c *Config) { c.FreeDS.Host = "  " },
		"port":            func(c *Config) { c.FreeDS.Port = 70000 },
		"mode":            func(c *Config) { c.FreeDS.Mode = "modbus" },
		"cooldown":        func(c *Config) { c.FreeDS.RebootCooldownMillis = 10 },
		"unique id":       func(c *Config) { c.FreeDS.UniqueId = "not valid!" },
	}

	for name, mutate := range cases {
		cfg := validConfig()
		mutate(&cfg)
		assert.Error(Normalize(&cfg), name)
	}
}

func TestDefaultUniqueId(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("freeds_local", DefaultUniqueId("FreeDS.local"))
	assert.Equal("10_0_0_7", DefaultUniqueId("10.0.0.7"))
}
