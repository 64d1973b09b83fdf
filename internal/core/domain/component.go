package domain

type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

// FieldRef points at a value inside a device snapshot.
type FieldRef struct {
	Category string
	Field    string
}

func (f FieldRef) IsZero() bool {
	return f.Field == ""
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, total_increasing (for acc energy)
	DeviceClass       string // voltage, power, energy, temperature...
	EntityCategory    string // diagnostic, config, nil
	EnabledByDefault  *bool
	Icon              string
	Source            FieldRef
	Decimals          uint
}

type GenericSwitch struct {
	Device         Device
	Id             string
	Name           string
	UniqueId       string
	Icon           string
	EntityCategory string
	Source         FieldRef
	ButtonId       int
}

type GenericLight struct {
	Device         Device
	Id             string
	Name           string
	UniqueId       string
	Icon           string
	EntityCategory string
	Source         FieldRef
	Brightness     FieldRef
	ButtonId       int
}

type GenericButton struct {
	Device         Device
	Id             string
	Name           string
	UniqueId       string
	Icon           string
	EntityCategory string
	DeviceClass    string
}
