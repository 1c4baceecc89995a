package instruction

// Width is the size and domain of an operand or expression value.
type Width uint8

// Supported widths. Unset marks an operand whose width is not known yet.
const (
	Unset Width = iota
	Bool
	Byte
	Word16
	Word32
	Word64
	Word128
	Real32
	Real64
)

var widthNames = [...]string{
	Unset:   "unset",
	Bool:    "bool",
	Byte:    "byte",
	Word16:  "word16",
	Word32:  "word32",
	Word64:  "word64",
	Word128: "word128",
	Real32:  "real32",
	Real64:  "real64",
}

var widthBits = [...]int{
	Unset:   0,
	Bool:    1,
	Byte:    8,
	Word16:  16,
	Word32:  32,
	Word64:  64,
	Word128: 128,
	Real32:  32,
	Real64:  64,
}

// String returns the width name.
func (w Width) String() string {
	if int(w) >= len(widthNames) {
		return "unknown"
	}
	return widthNames[w]
}

// Bits returns the number of bits of the width.
func (w Width) Bits() int {
	if int(w) >= len(widthBits) {
		return 0
	}
	return widthBits[w]
}

// Size returns the number of bytes a value of the width occupies in memory.
func (w Width) Size() int {
	return (w.Bits() + 7) / 8
}

// IsSet returns whether the width is known.
func (w Width) IsSet() bool {
	return w != Unset
}

// IsReal returns whether the width describes a floating point value.
func (w Width) IsReal() bool {
	return w == Real32 || w == Real64
}

// Mask returns the value mask for integer widths up to 64 bits.
func (w Width) Mask() uint64 {
	bits := w.Bits()
	if bits == 0 || bits >= 64 {
		return ^uint64(0)
	}
	return 1<<bits - 1
}

// WidthOfSize returns the integer width that occupies size bytes.
func WidthOfSize(size int) Width {
	switch size {
	case 1:
		return Byte
	case 2:
		return Word16
	case 4:
		return Word32
	case 8:
		return Word64
	case 16:
		return Word128
	default:
		return Unset
	}
}
