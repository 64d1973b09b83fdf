package mqtt

import (
	"fmt"

	"github.com/berfenger/freeds2mqtt/internal/core/domain"
)

type HADiscoveryConfig struct {
	Device               HADiscoveryDevice         `json:"device"`
	StateTopic           string                    `json:"state_topic,omitempty"`
	CommandTopic         string                    `json:"command_topic,omitempty"`
	StateClass           string                    `json:"state_class,omitempty"`
	DeviceClass          string                    `json:"device_class,omitempty"`
	UnitOfMeasurement    string                    `json:"unit_of_measurement,omitempty"`
	AvTopic              string                    `json:"availability_topic,omitempty"`
	Availability         []HADiscoveryAvailability `json:"availability,omitempty"`
	AvailabilityMode     string                    `json:"availability_mode,omitempty"`
	EntityCategory       string                    `json:"entity_category,omitempty"`
	Name                 string                    `json:"name"`
	UniqueId             string                    `json:"unique_id"`
	Platform             string                    `json:"platform"`
	EnabledByDefault     *bool                     `json:"enabled_by_default,omitempty"`
	PayloadOn            string                    `json:"payload_on,omitempty"`
	PayloadOff           string                    `json:"payload_off,omitempty"`
	PayloadPress         string                    `json:"payload_press,omitempty"`
	SuggestedPrecision   *uint                     `json:"suggested_display_precision,omitempty"`
	BrightnessStateTopic string                    `json:"brightness_state_topic,omitempty"`
	BrightnessScale      int                       `json:"brightness_scale,omitempty"`
	Icon                 string                    `json:"icon,omitempty"`
}

type HADiscoveryAvailability struct {
	Topic string `json:"topic"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

const brightnessScale = 255

func (c *MQTTClient) HADiscoverySensorTopic(sensor domain.GenericSensor) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", c.DiscoveryPrefix(), sensor.SensorType, sensor.Device.Id, sensor.Id)
}

func (c *MQTTClient) HADiscoverySwitchTopic(sw domain.GenericSwitch) string {
	return fmt.Sprintf("%s/switch/%s/%s/config", c.DiscoveryPrefix(), sw.Device.Id, sw.Id)
}

func (c *MQTTClient) HADiscoveryLightTopic(light domain.GenericLight) string {
	return fmt.Sprintf("%s/light/%s/%s/config", c.DiscoveryPrefix(), light.Device.Id, light.Id)
}

func (c *MQTTClient) HADiscoveryButtonTopic(button domain.GenericButton) string {
	return fmt.Sprintf("%s/button/%s/%s/config", c.DiscoveryPrefix(), button.Device.Id, button.Id)
}

func GenericSensorToHADiscoveryMessage(client *MQTTClient, sensor domain.GenericSensor) HADiscoveryConfig {
	var topic string
	switch {
	case sensor.Id == domain.SENSOR_ID_BRIDGE_STATE:
		topic = client.BridgeStateTopic()
	case sensor.SensorType == domain.SENSOR_TYPE_BINARY:
		topic = client.BinarySensorStateTopic(sensor.Id)
	default:
		topic = client.SensorStateTopic(sensor.Id)
	}
	disConfig := HADiscoveryConfig{
		Device:            device(sensor.Device),
		StateTopic:        topic,
		StateClass:        sensor.StateClass,
		DeviceClass:       sensor.DeviceClass,
		UnitOfMeasurement: sensor.UnitOfMeasurement,
		EntityCategory:    sensor.EntityCategory,
		Name:              sensor.Name,
		UniqueId:          sensor.UniqueId,
		Icon:              sensor.Icon,
		EnabledByDefault:  sensor.EnabledByDefault,
		Platform:          "mqtt",
	}
	switch {
	case sensor.Id == domain.SENSOR_ID_BRIDGE_STATE:
		disConfig.AvTopic = client.BridgeStateTopic()
		disConfig.PayloadOn = MQTT_PAYLOAD_ONLINE
		disConfig.PayloadOff = MQTT_PAYLOAD_OFFLINE
	case sensor.SensorType == domain.SENSOR_TYPE_BINARY:
		client.withDeviceAvailability(&disConfig)
		disConfig.PayloadOn = MQTT_PAYLOAD_ON
		disConfig.PayloadOff = MQTT_PAYLOAD_OFF
	default:
		client.withDeviceAvailability(&disConfig)
		if sensor.Decimals > 0 {
			decimals := sensor.Decimals
			disConfig.SuggestedPrecision = &decimals
		}
	}
	return disConfig
}

func GenericSwitchToHADiscoveryMessage(client *MQTTClient, _switch domain.GenericSwitch) HADiscoveryConfig {
	disConfig := HADiscoveryConfig{
		Device:         device(_switch.Device),
		StateTopic:     client.SwitchStateTopic(_switch.Id),
		CommandTopic:   client.SwitchCommandTopic(_switch.Id),
		EntityCategory: _switch.EntityCategory,
		Name:           _switch.Name,
		UniqueId:       _switch.UniqueId,
		Icon:           _switch.Icon,
		Platform:       "mqtt",
		PayloadOn:      MQTT_PAYLOAD_ON,
		PayloadOff:     MQTT_PAYLOAD_OFF,
	}
	client.withDeviceAvailability(&disConfig)
	return disConfig
}

func GenericLightToHADiscoveryMessage(client *MQTTClient, light domain.GenericLight) HADiscoveryConfig {
	disConfig := HADiscoveryConfig{
		Device:         device(light.Device),
		StateTopic:     client.LightStateTopic(light.Id),
		CommandTopic:   client.LightCommandTopic(light.Id),
		EntityCategory: light.EntityCategory,
		Name:           light.Name,
		UniqueId:       light.UniqueId,
		Icon:           light.Icon,
		Platform:       "mqtt",
		PayloadOn:      MQTT_PAYLOAD_ON,
		PayloadOff:     MQTT_PAYLOAD_OFF,
	}
	if !light.Brightness.IsZero() {
		disConfig.BrightnessStateTopic = client.LightBrightnessStateTopic(light.Id)
		disConfig.BrightnessScale = brightnessScale
	}
	client.withDeviceAvailability(&disConfig)
	return disConfig
}

func GenericButtonToHADiscoveryMessage(client *MQTTClient, button domain.GenericButton) HADiscoveryConfig {
	disConfig := HADiscoveryConfig{
		Device:         device(button.Device),
		CommandTopic:   client.ButtonCommandTopic(button.Id),
		EntityCategory: button.EntityCategory,
		DeviceClass:    button.DeviceClass,
		Name:           button.Name,
		UniqueId:       button.UniqueId,
		Icon:           button.Icon,
		Platform:       "mqtt",
		PayloadPress:   MQTT_PAYLOAD_PRESS,
	}
	client.withDeviceAvailability(&disConfig)
	return disConfig
}

// FreeDS entities are available only while both the bridge and the device are.
func (c *MQTTClient) withDeviceAvailability(disConfig *HADiscoveryConfig) {
	disConfig.Availability = []HADiscoveryAvailability{
		{Topic: c.BridgeStateTopic()},
		{Topic: c.DeviceStateTopic()},
	}
	disConfig.AvailabilityMode = "all"
}

func device(d domain.Device) HADiscoveryDevice {
	return HADiscoveryDevice{
		Id:           []string{d.Id},
		Manufacturer: d.Manufacturer,
		Version:      d.Version,
		Model:        d.Model,
		Name:         d.Name,
		ViaDevice:    d.ViaDevice,
	}
}
