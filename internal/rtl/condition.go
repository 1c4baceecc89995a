package rtl

// ConditionCode is an architecture neutral condition evaluated by Test.
type ConditionCode uint8

// Condition codes.
const (
	CCNever ConditionCode = iota
	CCAlways
	CCEq  // equal
	CCNe  // not equal
	CCLt  // signed less than
	CCGe  // signed greater or equal
	CCLe  // signed less or equal
	CCGt  // signed greater than
	CCUlt // unsigned less than
	CCUge // unsigned greater or equal
	CCUle // unsigned less or equal
	CCUgt // unsigned greater than
	CCOv  // overflow
	CCNo  // no overflow
	CCSg  // sign
	CCNs  // no sign
	CCPe  // parity even
	CCPo  // parity odd
)

var conditionNames = [...]string{
	CCNever:  "NEVER",
	CCAlways: "ALWAYS",
	CCEq:     "EQ",
	CCNe:     "NE",
	CCLt:     "LT",
	CCLe:     "LE",
	CCGt:     "GT",
	CCGe:     "GE",
	CCUlt:    "ULT",
	CCUle:    "ULE",
	CCUgt:    "UGT",
	CCUge:    "UGE",
	CCOv:     "OV",
	CCNo:     "NO",
	CCSg:     "SG",
	CCNs:     "NS",
	CCPe:     "PE",
	CCPo:     "PO",
}

func (c ConditionCode) String() string {
	if int(c) < len(conditionNames) {
		return conditionNames[c]
	}
	return "?"
}

// Invert returns the condition code that holds exactly when c does not.
func (c ConditionCode) Invert() ConditionCode {
	switch c {
	case CCNever:
		return CCAlways
	case CCAlways:
		return CCNever
	}
	// the remaining codes come in complementary pairs
	if c%2 == 0 {
		return c + 1
	}
	return c - 1
}
