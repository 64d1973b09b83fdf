package util

import (
	"github.com/berfenger/freeds2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		FreeDS: config.FreeDSConfig{
			Host:                 "-.-.-.-",
			Port:                 80,
			UniqueId:             "test_freeds",
			Name:                 "FreeDS test_freeds",
			RebootCooldownMillis: 90000,
		},
		MQTT: config.MQTTConfig{
			Host:                      "localhost",
			Port:                      1883,
			BaseTopic:                 "freeds",
			HADiscoveryTopic:          "homeassistant",
			HADiscoveryRefreshMinutes: 30,
		},
		Port: 8080,
	}
}
