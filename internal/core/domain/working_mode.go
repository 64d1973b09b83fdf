package domain

import "fmt"

// workingModes maps Web.workingMode to the meter or inverter the diverter
// reads its power figures from.
var workingModes = map[int]string{
	1:  "DDS238",
	2:  "DDSU666",
	3:  "SDM Meter",
	4:  "MustSolar",
	21: "Solax v2",
	22: "Solax v2 local",
	23: "Solax v1",
	24: "Wibeee",
	25: "Shelly EM",
	26: "Fronius",
	27: "FreeDS slave",
	28: "Goodwe",
	41: "MQTT broker",
	42: "ICC solar",
	61: "SMA BOY",
	62: "VICTRON",
	63: "Fronius ModBus",
	64: "Huawei ModBus",
	65: "SMA island",
	66: "Schneider",
	67: "Wibeee ModBus",
	68: "Ingeteam",
	80: "SolarEdge",
}

func WorkingModeName(code int) string {
	if name, ok := workingModes[code]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", code)
}
