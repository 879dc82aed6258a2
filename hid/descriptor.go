package hid

import "fmt"

// HID report descriptor item type field (bits 3:2 of the item prefix byte).
const (
	itemMain   = 0
	itemGlobal = 1
	itemLocal  = 2
)

// Global item tags.
const (
	tagUsagePage   = 0x0
	tagLogicalMin  = 0x1
	tagLogicalMax  = 0x2
	tagReportSize  = 0x7
	tagReportID    = 0x8
	tagReportCount = 0x9
)

// Local item tags.
const (
	tagUsage    = 0x0
	tagUsageMin = 0x1
	tagUsageMax = 0x2
)

// Main item tags.
const (
	tagInput         = 0x8
	tagOutput        = 0x9
	tagCollection    = 0xA
	tagFeature       = 0xB
	tagEndCollection = 0xC
)

// Usage pages.
const (
	pageGenericDesktop uint16 = 0x01
	pageKeyboard       uint16 = 0x07
	pageButton         uint16 = 0x09
)

// Generic Desktop page usages.
const (
	usagePointer   uint16 = 0x01
	usageMouse     uint16 = 0x02
	usageJoystick  uint16 = 0x04
	usageGamepad   uint16 = 0x05
	usageKeyboard  uint16 = 0x06
	usageKeypad    uint16 = 0x07
	usageX         uint16 = 0x30
	usageY         uint16 = 0x31
	usageZ         uint16 = 0x32
	usageRx        uint16 = 0x33
	usageRy        uint16 = 0x34
	usageRz        uint16 = 0x35
	usageWheel     uint16 = 0x38
	usageHatSwitch uint16 = 0x39
)

type rawField struct {
	kind       FieldKind
	reportID   byte
	bitPos     int
	bitLen     int
	arrayCount int
	logicalMin int32
	logicalMax int32
	usage      uint16
}

func itemDataSize(sizeCode byte) int {
	switch sizeCode {
	case 0:
		return 0
	case 1:
		return 1
	case 2:
		return 2
	default:
		return 4
	}
}

func signExtend32(val uint32, bits int) int32 {
	if bits <= 0 || bits >= 32 {
		return int32(val)
	}
	shift := uint(32 - bits)
	return int32(val<<shift) >> shift
}

// classifyField maps a non-const INPUT item's descriptor state to a Field
// kind per spec.md §4.3's table, or reports ok=false for items the core
// does not track (e.g. vendor pages, unrecognized device types).
func classifyField(devType DeviceType, usagePage uint16, usageStack []uint16, usageMin uint16, haveRange bool, reportSize int) (kind FieldKind, usage uint16, ok bool) {
	usage = usageMin
	if len(usageStack) > 0 {
		usage = usageStack[len(usageStack)-1]
	} else if !haveRange {
		return 0, 0, false
	}

	switch devType {
	case DeviceMouse:
		if usagePage == pageGenericDesktop {
			switch usage {
			case usageX:
				return FieldMouseAxisX, usage, true
			case usageY:
				return FieldMouseAxisY, usage, true
			case usageWheel:
				return FieldMouseWheel, usage, true
			}
		}
		if usagePage == pageButton {
			return FieldMouseButton, usage, true
		}
	case DeviceKeyboard:
		if usagePage == pageKeyboard {
			if reportSize == 1 {
				return FieldKeyMod, usage, true
			}
			return FieldKey, usage, true
		}
	case DeviceJoystick:
		if usagePage == pageButton {
			return FieldJoyButton, usage, true
		}
		if usagePage == pageGenericDesktop {
			switch usage {
			case usageX, usageY, usageZ, usageRx, usageRy, usageRz:
				return FieldJoyAxis, usage, true
			case usageHatSwitch:
				return FieldJoyHat, usage, true
			}
		}
	}
	return 0, 0, false
}

// collectRawFields walks the descriptor once, classifying every non-const
// INPUT item and inferring the top-level device type from Generic-Desktop
// collection usages.
func collectRawFields(data []byte) ([]rawField, DeviceType, error) {
	var (
		usagePage      uint16
		usageStack     []uint16
		usageMin       uint16
		haveUsageRange bool
		logicalMin     int32
		logicalMax     int32
		reportSize     int
		reportCount    int
		reportID       byte
		devType        DeviceType
		raws           []rawField
	)
	bitOffsets := map[byte]int{}

	i := 0
	for i < len(data) {
		b := data[i]
		i++
		if b == 0xFE { // long item
			if i+1 > len(data) {
				return nil, devType, fmt.Errorf("truncated long item at offset %d", i)
			}
			size := int(data[i])
			i += 2 + size
			continue
		}

		tag := (b >> 4) & 0x0F
		typ := (b >> 2) & 0x03
		size := itemDataSize(b & 0x03)
		if i+size > len(data) {
			return nil, devType, fmt.Errorf("truncated item at offset %d", i)
		}
		var val uint32
		for k := 0; k < size; k++ {
			val |= uint32(data[i+k]) << uint(8*k)
		}
		i += size

		switch typ {
		case itemGlobal:
			switch tag {
			case tagUsagePage:
				usagePage = uint16(val)
			case tagLogicalMin:
				logicalMin = signExtend32(val, size*8)
			case tagLogicalMax:
				logicalMax = signExtend32(val, size*8)
			case tagReportSize:
				reportSize = int(val)
			case tagReportID:
				reportID = byte(val)
			case tagReportCount:
				reportCount = int(val)
			}
		case itemLocal:
			switch tag {
			case tagUsage:
				usageStack = append(usageStack, uint16(val))
			case tagUsageMin:
				usageMin = uint16(val)
				haveUsageRange = true
			case tagUsageMax:
				// upper bound of the range; only the minimum is needed to
				// classify a field by kind.
			}
		case itemMain:
			switch tag {
			case tagCollection:
				if usagePage == pageGenericDesktop && len(usageStack) > 0 {
					switch usageStack[len(usageStack)-1] {
					case usagePointer, usageMouse:
						devType = DeviceMouse
					case usageKeyboard, usageKeypad:
						devType = DeviceKeyboard
					case usageJoystick, usageGamepad:
						devType = DeviceJoystick
					}
				}
				usageStack, haveUsageRange = usageStack[:0], false
			case tagInput:
				isConst := val&0x01 != 0
				start := bitOffsets[reportID]
				if !isConst && reportSize > 0 && reportCount > 0 {
					if kind, usage, ok := classifyField(devType, usagePage, usageStack, usageMin, haveUsageRange, reportSize); ok {
						raws = append(raws, rawField{
							kind: kind, reportID: reportID, bitPos: start, bitLen: reportSize,
							arrayCount: reportCount, logicalMin: logicalMin, logicalMax: logicalMax, usage: usage,
						})
					}
				}
				bitOffsets[reportID] = start + reportSize*reportCount
				usageStack, haveUsageRange = usageStack[:0], false
			case tagOutput, tagFeature:
				bitOffsets[reportID] += reportSize * reportCount
				usageStack, haveUsageRange = usageStack[:0], false
			}
		}
	}

	if devType == DeviceUnknown {
		return nil, devType, fmt.Errorf("no recognized top-level Generic Desktop usage")
	}
	return raws, devType, nil
}

// DeviceFromDescriptor parses a USB HID report descriptor restricted to its
// INPUT items into a Device field table (spec.md §4.3). The descriptor is
// walked once to classify and count fields, then a second pass assigns each
// field its ordinal-within-kind and allocates its Prev slot — matching the
// two-pass shape of the original so the field table's capacity is exact.
func DeviceFromDescriptor(data []byte, id int) (*Device, error) {
	raws, devType, err := collectRawFields(data)
	if err != nil {
		return nil, newErr("DeviceFromDescriptor", err)
	}

	ordinals := make(map[FieldKind]int)
	fields := make([]Field, 0, len(raws))
	for _, r := range raws {
		ord := ordinals[r.kind]
		ordinals[r.kind] = ord + 1

		f := Field{
			Kind: r.kind, ReportID: r.reportID,
			BitPos: r.bitPos, BitLen: r.bitLen, ArrayCount: r.arrayCount,
			OrdinalWithinKind: ord,
			LogicalMin:        r.logicalMin, LogicalMax: r.logicalMax, Usage: r.usage,
		}
		if r.arrayCount > 1 {
			f.Prev.Vector = make([]uint32, r.arrayCount)
		}
		fields = append(fields, f)
	}

	return &Device{ID: id, Type: devType, Fields: fields}, nil
}
