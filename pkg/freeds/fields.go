package freeds

import (
	"github.com/samber/lo"
)

const (
	CategoryWeb         = "Web"
	CategoryRelays      = "Relays"
	CategoryInverter    = "Inverter"
	CategoryMeter       = "Meter"
	CategoryEnergy      = "Energy"
	CategoryTemperature = "Temperature"
)

type categoryFields struct {
	category string
	fields   []string
}

// fieldTable maps the flat field names of the /events payload to their
// category. It is a wire contract with the firmware that only speaks the
// event stream, keep it in sync with that firmware.
var fieldTable = []categoryFields{
	{CategoryWeb, []string{"error", "POn", "PwmMan", "Oled", "screenBrightness", "workingMode", "pwm", "pwmfrec", "loadCalcWatts"}},
	{CategoryRelays, []string{"R01", "R02", "R03", "R04"}},
	{CategoryInverter, []string{"wsolar", "wtoday", "pv1c", "pv1v", "pw1", "pv2c", "pv2v", "pw2"}},
	{CategoryMeter, []string{"wgrid", "mvoltage", "mcurrent", "mfrequency", "mpowerFactor"}},
	{CategoryEnergy, []string{"KwToday", "KwYesterday", "KwTotal", "KwExportToday", "KwExportYesterday", "KwExportTotal"}},
	{CategoryTemperature, []string{"tempTermo", "tempTriac", "tempCustom"}},
}

var fieldCategory = lo.Associate(
	lo.FlatMap(fieldTable, func(c categoryFields, _ int) []lo.Tuple2[string, string] {
		return lo.Map(c.fields, func(f string, _ int) lo.Tuple2[string, string] { return lo.T2(f, c.category) })
	}),
	func(t lo.Tuple2[string, string]) (string, string) { return t.A, t.B },
)

// FieldCategory returns the category a flat event field belongs to.
func FieldCategory(field string) (string, bool) {
	category, ok := fieldCategory[field]
	return category, ok
}

// Reshape turns a flat event record into a category keyed snapshot. Every
// known field is present, nil when the record did not carry it, unknown
// fields are dropped.
func Reshape(flat map[string]any) Snapshot {
	snapshot := make(Snapshot, len(fieldTable))
	for _, c := range fieldTable {
		fields := make(map[string]any, len(c.fields))
		for _, f := range c.fields {
			fields[f] = flat[f]
		}
		snapshot[c.category] = fields
	}
	return snapshot
}
