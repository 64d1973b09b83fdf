package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/berfenger/freeds2mqtt/pkg/freeds"

	"github.com/carlmjohnson/versioninfo"
	"github.com/samber/lo"
)

const (
	SENSOR_ID_BRIDGE_STATE       = "bridge"
	SENSOR_ID_WORKING_MODE       = "workingMode"
	BINARY_SENSOR_ID_ERROR       = "error"
	SWITCH_ID_PWM_ENABLED        = "POn"
	SWITCH_ID_PWM_MANUAL         = "PwmMan"
	LIGHT_ID_BACKLIGHT           = "Oled"
	BUTTON_ID_REBOOT             = "reboot"
	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_ENERGY          = "energy"
	DEVICE_CLASS_FREQUENCY       = "frequency"
	DEVICE_CLASS_POWER           = "power"
	DEVICE_CLASS_TEMPERATURE     = "temperature"
	DEVICE_CLASS_VOLTAGE         = "voltage"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	DEVICE_CLASS_PROBLEM         = "problem"
	DEVICE_CLASS_RESTART         = "restart"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	ENTITY_CLASS_CONFIG          = "config"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"
	FREEDS_MANUFACTURER          = "FreeDS"
)

// FreeDSSensorTable lists the numeric and text sensors read from a snapshot.
// Entries carry no device, see FreeDSSensors.
var FreeDSSensorTable = []GenericSensor{
	powerSensor("wsolar", "Solar Power", freeds.CategoryInverter, "mdi:solar-power"),
	powerSensor("wgrid", "Grid Power", freeds.CategoryMeter, "mdi:transmission-tower"),
	powerSensor("loadCalcWatts", "Surplus Load", freeds.CategoryWeb, "mdi:water-boiler"),
	{
		Id:                "pwmfrec",
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "PWM frequency",
		UnitOfMeasurement: "Hz",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_FREQUENCY,
		Source:            FieldRef{freeds.CategoryWeb, "pwmfrec"},
	},
	{
		Id:                "pwm",
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "PWM",
		UnitOfMeasurement: "%",
		StateClass:        STATE_CLASS_MEASUREMENT,
		Icon:              "mdi:sine-wave",
		Source:            FieldRef{freeds.CategoryWeb, "pwm"},
	},
	temperatureSensor("tempTermo", "Heater Temperature"),
	temperatureSensor("tempTriac", "TRIAC Temperature"),
	temperatureSensor("tempCustom", "Custom Temperature"),
	energySensor("KwToday", "Surplus Energy (Today)"),
	energySensor("KwYesterday", "Surplus Energy (Yesterday)"),
	energySensor("KwTotal", "Surplus Energy (Total)"),
	energySensor("KwExportToday", "Exported Energy (Today)"),
	energySensor("KwExportYesterday", "Exported Energy (Yesterday)"),
	energySensor("KwExportTotal", "Exported Energy (Total)"),
	{
		Id:                "mvoltage",
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Voltage",
		UnitOfMeasurement: "V",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_VOLTAGE,
		Decimals:          1,
		Source:            FieldRef{freeds.CategoryMeter, "mvoltage"},
	},
	{
		Id:             SENSOR_ID_WORKING_MODE,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Working Mode",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		Icon:           "mdi:meter-electric",
		Source:         FieldRef{freeds.CategoryWeb, "workingMode"},
	},
}

var FreeDSBinarySensorTable = []GenericSensor{
	{
		Id:             BINARY_SENSOR_ID_ERROR,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Error",
		DeviceClass:    DEVICE_CLASS_PROBLEM,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		Source:         FieldRef{freeds.CategoryWeb, "error"},
	},
	relaySensor(1),
	relaySensor(2),
	relaySensor(3),
	relaySensor(4),
}

var FreeDSSwitchTable = []GenericSwitch{
	{
		Id:       SWITCH_ID_PWM_ENABLED,
		Name:     "PWM Enabled",
		Icon:     "mdi:flash",
		Source:   FieldRef{freeds.CategoryWeb, "POn"},
		ButtonId: freeds.ButtonPWMEnabled,
	},
	{
		Id:       SWITCH_ID_PWM_MANUAL,
		Name:     "PWM Manual Mode",
		Icon:     "mdi:hand-back-right",
		Source:   FieldRef{freeds.CategoryWeb, "PwmMan"},
		ButtonId: freeds.ButtonPWMManual,
	},
}

var FreeDSLightTable = []GenericLight{
	{
		Id:             LIGHT_ID_BACKLIGHT,
		Name:           "Backlight",
		Icon:           "mdi:monitor",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		Source:         FieldRef{freeds.CategoryWeb, "Oled"},
		Brightness:     FieldRef{freeds.CategoryWeb, "screenBrightness"},
		ButtonId:       freeds.ButtonBacklight,
	},
}

var FreeDSButtonTable = []GenericButton{
	{
		Id:             BUTTON_ID_REBOOT,
		Name:           "Reboot",
		Icon:           "mdi:restart",
		EntityCategory: ENTITY_CLASS_CONFIG,
		DeviceClass:    DEVICE_CLASS_RESTART,
	},
}

// ToggleEntity is a switch or light backed by a device toggle button.
type ToggleEntity struct {
	Id       string
	Source   FieldRef
	ButtonId int
}

var toggleEntities = lo.KeyBy(append(
	lo.Map(FreeDSSwitchTable, func(s GenericSwitch, _ int) ToggleEntity {
		return ToggleEntity{Id: s.Id, Source: s.Source, ButtonId: s.ButtonId}
	}),
	lo.Map(FreeDSLightTable, func(l GenericLight, _ int) ToggleEntity {
		return ToggleEntity{Id: l.Id, Source: l.Source, ButtonId: l.ButtonId}
	})...,
), func(e ToggleEntity) string {
	return e.Id
})

func FindToggleEntity(id string) (ToggleEntity, bool) {
	e, ok := toggleEntities[id]
	return e, ok
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("freeds2mqtt_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "freeds2mqtt",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("freeds2mqtt %s", md5HashShort(baseTopic)),
	}
}

// FreeDSDevice describes the diverter, the model comes from the device title
// when the firmware reports one.
func FreeDSDevice(uniqueId, name string, info freeds.DeviceInfo) Device {
	model := info.Title
	if model == "" {
		model = FREEDS_MANUFACTURER
	}
	return Device{
		Id:           uniqueId,
		Name:         name,
		Version:      info.Version,
		Manufacturer: FREEDS_MANUFACTURER,
		Model:        model,
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func FreeDSSensors(device Device) []GenericSensor {
	return lo.Map(FreeDSSensorTable, func(s GenericSensor, i int) GenericSensor {
		s.Device = deviceRef(device, i)
		s.UniqueId = entityUniqueId(device.Id, s.Id)
		return s
	})
}

func FreeDSBinarySensors(device Device) []GenericSensor {
	return lo.Map(FreeDSBinarySensorTable, func(s GenericSensor, _ int) GenericSensor {
		s.Device = IdDevice(device)
		s.UniqueId = entityUniqueId(device.Id, s.Id)
		return s
	})
}

func FreeDSSwitches(device Device) []GenericSwitch {
	return lo.Map(FreeDSSwitchTable, func(s GenericSwitch, _ int) GenericSwitch {
		s.Device = IdDevice(device)
		s.UniqueId = entityUniqueId(device.Id, s.Id)
		return s
	})
}

func FreeDSLights(device Device) []GenericLight {
	return lo.Map(FreeDSLightTable, func(l GenericLight, _ int) GenericLight {
		l.Device = IdDevice(device)
		l.UniqueId = entityUniqueId(device.Id, l.Id)
		return l
	})
}

func FreeDSButtons(device Device) []GenericButton {
	return lo.Map(FreeDSButtonTable, func(b GenericButton, _ int) GenericButton {
		b.Device = IdDevice(device)
		b.UniqueId = entityUniqueId(device.Id, b.Id)
		return b
	})
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {
	return []GenericSensor{
		{
			Device:         bridgeDevice,
			Id:             SENSOR_ID_BRIDGE_STATE,
			SensorType:     SENSOR_TYPE_BINARY,
			Name:           "Connection state",
			DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
		},
	}
}

// the first entity carries the full device, the rest only reference it
func deviceRef(device Device, i int) Device {
	if i == 0 {
		return device
	}
	return IdDevice(device)
}

func powerSensor(field, name, category, icon string) GenericSensor {
	return GenericSensor{
		Id:                field,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              name,
		UnitOfMeasurement: "W",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		Icon:              icon,
		Source:            FieldRef{category, field},
	}
}

func temperatureSensor(field, name string) GenericSensor {
	return GenericSensor{
		Id:                field,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              name,
		UnitOfMeasurement: "°C",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_TEMPERATURE,
		Decimals:          1,
		Source:            FieldRef{freeds.CategoryTemperature, field},
	}
}

func energySensor(field, name string) GenericSensor {
	return GenericSensor{
		Id:                field,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              name,
		UnitOfMeasurement: "kWh",
		StateClass:        STATE_CLASS_TOTAL_INCREASING,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		Decimals:          2,
		Source:            FieldRef{freeds.CategoryEnergy, field},
	}
}

func relaySensor(n int) GenericSensor {
	field := fmt.Sprintf("R%02d", n)
	return GenericSensor{
		Id:         field,
		SensorType: SENSOR_TYPE_BINARY,
		Name:       fmt.Sprintf("Relay %d", n),
		Icon:       "mdi:electric-switch",
		Source:     FieldRef{freeds.CategoryRelays, field},
	}
}

func entityUniqueId(deviceId, id string) string {
	return fmt.Sprintf("%s_%s", deviceId, id)
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
