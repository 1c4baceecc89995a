package m6502

import (
	"slices"

	m6502 "github.com/retroenv/retrogolib/arch/cpu/cpu6502"
	"github.com/retroenv/retrolift/internal/cursor"
)

// EntryPoints returns the reset, NMI and IRQ handler addresses stored in the
// interrupt vectors, if the image covers them. Unset vectors and handlers
// outside of the image are skipped, the reset handler comes first.
func (a *Arch) EntryPoints(c *cursor.Cursor) []uint64 {
	var entries []uint64
	for _, vector := range []uint64{uint64(m6502.ResetAddress), uint64(m6502.NMIAddress), uint64(m6502.IrqAddress)} {
		address, ok := readVector(c, vector)
		if !ok || address == 0 || !c.Contains(address) || slices.Contains(entries, address) {
			continue
		}
		entries = append(entries, address)
	}
	return entries
}

// readVector reads the little endian handler address stored at vector.
func readVector(c *cursor.Cursor, vector uint64) (uint64, bool) {
	r := c.Clone()
	if !r.Seek(vector) {
		return 0, false
	}
	address, ok := r.TryReadUint16()
	return uint64(address), ok
}
