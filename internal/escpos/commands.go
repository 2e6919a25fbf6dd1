package escpos

// ESC/POS control sequences. These byte values are fixed by the hardware;
// changing any of them breaks compatibility with real printers.
var (
	cmdInit = []byte{0x1b, 0x40} // ESC @

	cmdAlignLeft   = []byte{0x1b, 0x61, 0x00} // ESC a 0
	cmdAlignCenter = []byte{0x1b, 0x61, 0x01} // ESC a 1
	cmdAlignRight  = []byte{0x1b, 0x61, 0x02} // ESC a 2

	cmdBoldOn  = []byte{0x1b, 0x45, 0x01} // ESC E 1
	cmdBoldOff = []byte{0x1b, 0x45, 0x00} // ESC E 0

	cmdUnderlineOn  = []byte{0x1b, 0x2d, 0x01} // ESC - 1
	cmdUnderlineOff = []byte{0x1b, 0x2d, 0x00} // ESC - 0

	cmdSizeNormal = []byte{0x1d, 0x21, 0x00} // GS ! 0
	cmdSizeDouble = []byte{0x1d, 0x21, 0x11} // GS ! double width+height

	cmdLineFeed = []byte{0x0a}

	cmdCutPartial = []byte{0x1d, 0x56, 0x01} // GS V 1
	cmdCutFull    = []byte{0x1d, 0x56, 0x00} // GS V 0

	cmdDrawerKick = []byte{0x1b, 0x70, 0x00, 0x19, 0xfa} // ESC p 0, pulse pin 2
)

// codePageSelect builds ESC t n for the numeric code page configured on the
// profile.
func codePageSelect(n int) []byte {
	return []byte{0x1b, 0x74, byte(n)}
}
