package actorutil

import (
	"testing"

	"github.com/berfenger/freeds2mqtt/internal/core/domain"
	"github.com/berfenger/freeds2mqtt/internal/mqtt"

	"github.com/stretchr/testify/assert"
)

func TestParsedMQTTCommandToCommand(t *testing.T) {

	assert := assert.New(t)

	req, err := ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{
		DeviceId: domain.SWITCH_ID_PWM_ENABLED,
		Command:  mqtt.COMMAND_SWITCH,
		Payload:  "ON",
	})
	assert.NoError(err)
	assert.Equal(domain.SetEntityStateRequest{EntityId: domain.SWITCH_ID_PWM_ENABLED, On: true}, req)

	req, err = ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{
		DeviceId: domain.LIGHT_ID_BACKLIGHT,
		Command:  mqtt.COMMAND_LIGHT,
		Payload:  "off",
	})
	assert.NoError(err)
	assert.Equal(domain.SetEntityStateRequest{EntityId: domain.LIGHT_ID_BACKLIGHT, On: false}, req)

	req, err = ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{
		DeviceId: domain.BUTTON_ID_REBOOT,
		Command:  mqtt.COMMAND_BUTTON,
		Payload:  "PRESS",
	})
	assert.NoError(err)
	assert.Equal(domain.PressButtonRequest{EntityId: domain.BUTTON_ID_REBOOT}, req)
}

func TestParsedMQTTCommandToCommandRejects(t *testing.T) {

	assert := assert.New(t)

	_, err := ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{
		DeviceId: domain.SWITCH_ID_PWM_MANUAL,
		Command:  mqtt.COMMAND_SWITCH,
		Payload:  "maybe",
	})
	assert.Error(err)

	_, err = ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{
		DeviceId: "wsolar",
		Command:  mqtt.COMMAND_SWITCH,
		Payload:  "on",
	})
	assert.Error(err)

	_, err = ParsedMQTTCommandToCommand(mqtt.ParsedMQTTCommand{
		DeviceId: "factory_reset",
		Command:  mqtt.COMMAND_BUTTON,
		Payload:  "PRESS",
	})
	assert.Error(err)
}
