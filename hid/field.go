package hid

// DeviceType is inferred from the descriptor's top-level Generic-Desktop
// collection usage and persists until another top-level usage overrides it.
type DeviceType int

const (
	DeviceUnknown DeviceType = iota
	DeviceMouse
	DeviceKeyboard
	DeviceJoystick
)

func (t DeviceType) String() string {
	switch t {
	case DeviceMouse:
		return "mouse"
	case DeviceKeyboard:
		return "keyboard"
	case DeviceJoystick:
		return "joystick"
	default:
		return "unknown"
	}
}

// FieldKind classifies one non-const HID input item by (device type, usage
// page, usage, report size).
type FieldKind int

const (
	FieldMouseAxisX FieldKind = iota
	FieldMouseAxisY
	FieldMouseWheel
	FieldMouseButton
	FieldKeyMod
	FieldKey
	FieldJoyButton
	FieldJoyAxis
	FieldJoyHat
)

// Prev is the field's last-seen value: Scalar for ordinary fields, Vector
// for array fields (ArrayCount > 1) — see design note §9's Prev variant.
type Prev struct {
	Scalar uint32
	Vector []uint32
}

// Field is one entry of a parsed device's field table.
type Field struct {
	Kind     FieldKind
	ReportID byte

	BitPos     int
	BitLen     int
	ArrayCount int // the Input item's report_count; only Key fields decode elements past index 0

	OrdinalWithinKind int

	LogicalMin int32
	LogicalMax int32
	Usage      uint16 // the field's single HID usage (meaningful for KeyMod)

	Prev Prev
}

// Device is a parsed HID report descriptor: an inferred device type plus a
// flat field table in descriptor order.
type Device struct {
	ID     int
	Type   DeviceType
	Fields []Field
}
