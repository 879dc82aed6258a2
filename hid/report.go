package hid

// ParseReport decodes one incoming report into a sequence of Events, pushed
// synchronously to sink in field-declaration order. Fields whose ReportID
// does not match are skipped. A malformed or truncated report reads missing
// bytes as zero (spec.md §7's best-effort failure mode) rather than erroring.
// A nil dev (the result of a failed descriptor parse) is a no-op.
func ParseReport(dev *Device, report []byte, reportID byte, sink Sink) {
	if dev == nil {
		return
	}
	var (
		mouseXStashed bool
		mouseXChanged bool
		mouseXVal     int32
	)

	for i := range dev.Fields {
		f := &dev.Fields[i]
		if f.ReportID != reportID {
			continue
		}

		switch f.Kind {
		case FieldKey:
			parseKeyArray(dev.ID, f, report, sink)

		case FieldMouseAxisX:
			v := getFieldBits(report, f, 0)
			mouseXVal = v
			mouseXChanged = v != int32(f.Prev.Scalar)
			mouseXStashed = true
			f.Prev.Scalar = uint32(v)

		case FieldMouseAxisY:
			v := getFieldBits(report, f, 0)
			changed := v != int32(f.Prev.Scalar)
			f.Prev.Scalar = uint32(v)
			if mouseXStashed && (mouseXChanged || changed) {
				sink(Event{DeviceID: dev.ID, Ordinal: f.OrdinalWithinKind, Kind: EventMouseMotion, DX: mouseXVal, DY: v})
			}

		default:
			parseScalarField(dev.ID, f, report, sink)
		}
	}
}

// parseKeyArray implements the 6-key-rollover diff: a code present in the
// new array but absent from prev is newly pressed, and vice-versa. Array
// index order (not numeric order) determines event emission order, since
// it's the order the source descriptor declared the slots in.
func parseKeyArray(deviceID int, f *Field, report []byte, sink Sink) {
	newVals := make([]uint32, f.ArrayCount)
	for i := 0; i < f.ArrayCount; i++ {
		newVals[i] = uint32(getFieldBits(report, f, i))
	}

	for _, v := range newVals {
		if v != 0 && !containsCode(f.Prev.Vector, v) {
			sink(Event{DeviceID: deviceID, Ordinal: f.OrdinalWithinKind, Kind: EventKeyDown, KeyCode: uint16(v)})
		}
	}
	for _, v := range f.Prev.Vector {
		if v != 0 && !containsCode(newVals, v) {
			sink(Event{DeviceID: deviceID, Ordinal: f.OrdinalWithinKind, Kind: EventKeyUp, KeyCode: uint16(v)})
		}
	}
	f.Prev.Vector = newVals
}

func containsCode(codes []uint32, v uint32) bool {
	for _, c := range codes {
		if c == v {
			return true
		}
	}
	return false
}

// parseScalarField handles every field kind other than MouseAxisX/Y (merged
// above) and Key (rolled over above): compare to prev, translate, emit.
func parseScalarField(deviceID int, f *Field, report []byte, sink Sink) {
	v := getFieldBits(report, f, 0)
	if v == int32(f.Prev.Scalar) {
		return
	}
	f.Prev.Scalar = uint32(v)

	switch f.Kind {
	case FieldKeyMod:
		kind := EventKeyUp
		if v != 0 {
			kind = EventKeyDown
		}
		sink(Event{DeviceID: deviceID, Ordinal: f.OrdinalWithinKind, Kind: kind, KeyCode: f.Usage})

	case FieldJoyAxis:
		sink(Event{DeviceID: deviceID, Ordinal: f.OrdinalWithinKind, Kind: EventJoyAxis, AxisPos: normalizeAxis(v, f.LogicalMin, f.LogicalMax)})

	case FieldJoyButton:
		kind := EventJoyButtonUp
		if v != 0 {
			kind = EventJoyButtonDown
		}
		sink(Event{DeviceID: deviceID, Ordinal: f.OrdinalWithinKind, Kind: kind})

	case FieldMouseButton:
		kind := EventMouseButtonUp
		if v != 0 {
			kind = EventMouseButtonDown
		}
		sink(Event{DeviceID: deviceID, Ordinal: f.OrdinalWithinKind, Kind: kind})

	case FieldJoyHat:
		sink(Event{DeviceID: deviceID, Ordinal: f.OrdinalWithinKind, Kind: EventJoyHat, HatPos: v})

	case FieldMouseWheel:
		sink(Event{DeviceID: deviceID, Ordinal: f.OrdinalWithinKind, Kind: EventMouseWheel, Wheel: v})
	}
}

// normalizeAxis maps a raw logical-range value onto int16, per spec.md
// §4.3's translation table.
func normalizeAxis(v, min, max int32) int16 {
	rangeSize := int64(max) - int64(min) + 1
	if rangeSize <= 0 {
		return 0
	}
	pos := (int64(v-min)*65536)/rangeSize - 32768
	switch {
	case pos < -32768:
		pos = -32768
	case pos > 32767:
		pos = 32767
	}
	return int16(pos)
}
