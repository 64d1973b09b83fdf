package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/berfenger/freeds2mqtt/pkg/freeds"

	"github.com/gosimple/slug"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	FreeDS   FreeDSConfig `mapstructure:"freeds"`
	MQTT     MQTTConfig   `mapstructure:"mqtt"`
	Port     uint         `mapstructure:"port"`
	HttpLog  bool         `mapstructure:"http_log"`
}

type FreeDSConfig struct {
	Host                 string
	Port                 uint
	Username             string
	Password             string
	UniqueId             string `mapstructure:"unique_id"`
	Name                 string
	Mode                 string
	RebootCooldownMillis uint32 `mapstructure:"reboot_cooldown_millis"`
}

type MQTTConfig struct {
	Host                      string
	Port                      int
	Username                  string
	Password                  string
	BaseTopic                 string `mapstructure:"base_topic"`
	HADiscoveryEnable         bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic          string `mapstructure:"ha_discovery_topic"`
	HADiscoveryRefreshMinutes uint   `mapstructure:"ha_discovery_refresh_minutes"`
}

func (c FreeDSConfig) Device() freeds.Device {
	return freeds.Device{
		Host:     c.Host,
		Port:     int(c.Port),
		Username: c.Username,
		Password: c.Password,
	}
}

func (c FreeDSConfig) RebootCooldown() time.Duration {
	return time.Duration(c.RebootCooldownMillis) * time.Millisecond
}

func (c MQTTConfig) HADiscoveryRefresh() time.Duration {
	return time.Duration(c.HADiscoveryRefreshMinutes) * time.Minute
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// DefaultUniqueId derives an entity id prefix from the device host,
// "192.168.1.50" becomes "192_168_1_50".
func DefaultUniqueId(host string) string {
	return strings.ReplaceAll(slug.Make(host), "-", "_")
}

// Normalize fills derived defaults and checks bounds.
func Normalize(cfg *Config) error {

	// check and fix base topic
	baseTopic, err := CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// device
	cfg.FreeDS.Host = strings.TrimSpace(cfg.FreeDS.Host)
	if cfg.FreeDS.Host == "" {
		return errors.New("config param freeds.host is required")
	}
	if cfg.FreeDS.Port == 0 || cfg.FreeDS.Port > 65535 {
		return errors.New("config param freeds.port should be in 1..65535")
	}
	if _, err := freeds.ParseMode(cfg.FreeDS.Mode); err != nil {
		return fmt.Errorf("config param freeds.mode: %w", err)
	}
	if cfg.FreeDS.RebootCooldownMillis < 1000 {
		return errors.New("config param freeds.reboot_cooldown_millis should be >= 1000")
	}

	if cfg.FreeDS.UniqueId == "" {
		cfg.FreeDS.UniqueId = DefaultUniqueId(cfg.FreeDS.Host)
	} else {
		uniqueId, err := CheckMQTTTopic(cfg.FreeDS.UniqueId)
		if err != nil {
			return errors.New("invalid freeds.unique_id. can only contain letters, numbers and underscores")
		}
		cfg.FreeDS.UniqueId = uniqueId
	}
	if cfg.FreeDS.Name == "" {
		cfg.FreeDS.Name = fmt.Sprintf("FreeDS %s", cfg.FreeDS.UniqueId)
	}

	return nil
}
