package hid

// Minimal descriptor item encoder used only by tests — production code
// never needs to emit descriptors, only parse them.

func di(tag, typ int, val uint32, size int) []byte {
	var sizeCode byte
	switch size {
	case 0:
		sizeCode = 0
	case 1:
		sizeCode = 1
	case 2:
		sizeCode = 2
	default:
		sizeCode = 3
		size = 4
	}
	b := []byte{byte(tag<<4) | byte(typ<<2) | sizeCode}
	for i := 0; i < size; i++ {
		b = append(b, byte(val>>uint(8*i)))
	}
	return b
}

func concatItems(items ...[]byte) []byte {
	var out []byte
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

// keyboardDescriptor is a 6-key-rollover boot keyboard: top-level Keyboard
// collection, then a single array Input item of report_size=8,
// report_count=6 over the Keyboard usage page.
func keyboardDescriptor() []byte {
	return concatItems(
		di(tagUsagePage, itemGlobal, uint32(pageGenericDesktop), 1),
		di(tagUsage, itemLocal, uint32(usageKeyboard), 1),
		di(tagCollection, itemMain, 0x01, 1), // Application

		di(tagUsagePage, itemGlobal, uint32(pageKeyboard), 1),
		di(tagLogicalMin, itemGlobal, 0x00, 1),
		di(tagLogicalMax, itemGlobal, 101, 1),
		di(tagReportSize, itemGlobal, 8, 1),
		di(tagReportCount, itemGlobal, 6, 1),
		di(tagUsageMin, itemLocal, 0x00, 1),
		di(tagUsageMax, itemLocal, 101, 1),
		di(tagInput, itemMain, 0x00, 1), // Array, Data

		di(tagEndCollection, itemMain, 0, 0),
	)
}

// mouseDescriptor declares independent X/Y axes (one Input item each) plus
// a left button, so a single report can drive S4's combined-motion event.
func mouseDescriptor() []byte {
	return concatItems(
		di(tagUsagePage, itemGlobal, uint32(pageGenericDesktop), 1),
		di(tagUsage, itemLocal, uint32(usageMouse), 1),
		di(tagCollection, itemMain, 0x01, 1),

		di(tagUsagePage, itemGlobal, uint32(pageGenericDesktop), 1),
		di(tagLogicalMin, itemGlobal, 0x81, 1), // -127 as a one-byte signed value
		di(tagLogicalMax, itemGlobal, 127, 1),
		di(tagReportSize, itemGlobal, 8, 1),
		di(tagReportCount, itemGlobal, 1, 1),
		di(tagUsage, itemLocal, uint32(usageX), 1),
		di(tagInput, itemMain, 0x02, 1), // Variable

		di(tagUsage, itemLocal, uint32(usageY), 1),
		di(tagInput, itemMain, 0x02, 1),

		di(tagUsagePage, itemGlobal, uint32(pageButton), 1),
		di(tagLogicalMin, itemGlobal, 0, 1),
		di(tagLogicalMax, itemGlobal, 1, 1),
		di(tagReportSize, itemGlobal, 1, 1),
		di(tagReportCount, itemGlobal, 1, 1),
		di(tagUsage, itemLocal, 0x01, 1),
		di(tagInput, itemMain, 0x02, 1),

		di(tagEndCollection, itemMain, 0, 0),
	)
}

// joystickAxisDescriptor declares a single 8-bit unsigned axis over [0,255].
// Logical Maximum uses a two-byte item: logical bounds are signed, so a
// one-byte 255 would read as -1.
func joystickAxisDescriptor() []byte {
	return concatItems(
		di(tagUsagePage, itemGlobal, uint32(pageGenericDesktop), 1),
		di(tagUsage, itemLocal, uint32(usageJoystick), 1),
		di(tagCollection, itemMain, 0x01, 1),

		di(tagUsagePage, itemGlobal, uint32(pageGenericDesktop), 1),
		di(tagLogicalMin, itemGlobal, 0, 1),
		di(tagLogicalMax, itemGlobal, 255, 2),
		di(tagReportSize, itemGlobal, 8, 1),
		di(tagReportCount, itemGlobal, 1, 1),
		di(tagUsage, itemLocal, uint32(usageX), 1),
		di(tagInput, itemMain, 0x02, 1),

		di(tagEndCollection, itemMain, 0, 0),
	)
}
