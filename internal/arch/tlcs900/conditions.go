package tlcs900

import "github.com/retroenv/retrolift/internal/rtl"

const (
	condNever  = 0x0
	condAlways = 0x8
)

type condition struct {
	name  string
	cc    rtl.ConditionCode
	flags uint32
}

// conditions is indexed by the 4 bit condition field, the upper 8 codes
// are the negations of the lower 8.
var conditions = [16]condition{
	{"F", rtl.CCNever, 0},
	{"LT", rtl.CCLt, FlagS | FlagV},
	{"LE", rtl.CCLe, FlagS | FlagZ | FlagV},
	{"ULE", rtl.CCUle, FlagZ | FlagC},
	{"OV", rtl.CCOv, FlagV},
	{"MI", rtl.CCSg, FlagS},
	{"Z", rtl.CCEq, FlagZ},
	{"C", rtl.CCUlt, FlagC},
	{"T", rtl.CCAlways, 0},
	{"GE", rtl.CCGe, FlagS | FlagV},
	{"GT", rtl.CCGt, FlagS | FlagZ | FlagV},
	{"UGT", rtl.CCUgt, FlagZ | FlagC},
	{"NOV", rtl.CCNo, FlagV},
	{"PL", rtl.CCNs, FlagS},
	{"NZ", rtl.CCNe, FlagZ},
	{"NC", rtl.CCUge, FlagC},
}

func invertCondition(code int) int {
	return (code ^ 8) & 0xf
}
