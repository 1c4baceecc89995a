package rtl

import (
	"fmt"
	"strings"

	"github.com/retroenv/retrolift/internal/instruction"
)

// Cluster is the ordered effect list of one instruction.
type Cluster struct {
	Address uint64
	Length  int
	Class   instruction.Class
	Effects []Effect

	// Reason is set for clusters of instructions without a lowering.
	Reason error
}

// classCode returns the three letter class column of a listing line.
func classCode(c instruction.Class) string {
	switch {
	case c.Has(instruction.Invalid):
		return "---"
	case c.IsTransfer():
		return "T--"
	default:
		return "L--"
	}
}

// Lines renders the cluster as numbered lines, a header line 0 followed by
// one line per effect.
func (c *Cluster) Lines() []string {
	noun := "instructions"
	if len(c.Effects) == 1 {
		noun = "instruction"
	}
	lines := make([]string, 0, len(c.Effects)+1)
	lines = append(lines, fmt.Sprintf("0|%s|%08X(%d): %d %s",
		classCode(c.Class), c.Address, c.Length, len(c.Effects), noun))
	for i, e := range c.Effects {
		lines = append(lines, fmt.Sprintf("%d|%s|%s", i+1, classCode(e.Class()), e))
	}
	return lines
}

func (c *Cluster) String() string {
	return strings.Join(c.Lines(), "\n")
}

// IsUnimplemented returns whether the cluster only marks a missing lowering.
func (c *Cluster) IsUnimplemented() bool {
	if len(c.Effects) != 1 {
		return false
	}
	_, ok := c.Effects[0].(*Unimplemented)
	return ok
}
