package rtl

import "github.com/retroenv/retrolift/internal/instruction"

// Operator is a unary or binary RTL operator.
type Operator uint8

// Operators. The u suffixed ones interpret their operands as unsigned, the s
// suffixed ones as signed.
const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpMulU
	OpMulS
	OpDiv
	OpDivU
	OpMod
	OpModU
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpShrU
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLtU
	OpLeU
	OpGtU
	OpGeU
	OpCand
	OpCor
	OpNeg
	OpComp
	OpNot
)

const unaryPrecedence = 14

var operators = [...]struct {
	text       string
	precedence int
}{
	OpAdd:  {"+", 12},
	OpSub:  {"-", 12},
	OpMul:  {"*", 13},
	OpMulU: {"*u", 13},
	OpMulS: {"*s", 13},
	OpDiv:  {"/", 13},
	OpDivU: {"/u", 13},
	OpMod:  {"%", 13},
	OpModU: {"%u", 13},
	OpAnd:  {"&", 8},
	OpOr:   {"|", 6},
	OpXor:  {"^", 7},
	OpShl:  {"<<", 11},
	OpShr:  {">>", 11},
	OpShrU: {">>u", 11},
	OpEq:   {"==", 9},
	OpNe:   {"!=", 9},
	OpLt:   {"<", 10},
	OpLe:   {"<=", 10},
	OpGt:   {">", 10},
	OpGe:   {">=", 10},
	OpLtU:  {"<u", 10},
	OpLeU:  {"<=u", 10},
	OpGtU:  {">u", 10},
	OpGeU:  {">=u", 10},
	OpCand: {"&&", 5},
	OpCor:  {"||", 4},
	OpNeg:  {"-", unaryPrecedence},
	OpComp: {"~", unaryPrecedence},
	OpNot:  {"!", unaryPrecedence},
}

func (o Operator) String() string {
	return operators[o].text
}

func (o Operator) precedence() int {
	return operators[o].precedence
}

// IsComparison returns whether the operator yields a boolean.
func (o Operator) IsComparison() bool {
	return o >= OpEq && o <= OpCor
}

// Apply returns a binary expression. Comparisons have Bool width, all other
// operators the width of the left operand.
func Apply(op Operator, left, right Expr) *Binary {
	w := left.Width()
	if op.IsComparison() {
		w = instruction.Bool
	}
	return &Binary{Op: op, Left: left, Right: right, DataWidth: w}
}

// Add returns left + right.
func Add(left, right Expr) *Binary { return Apply(OpAdd, left, right) }

// Sub returns left - right.
func Sub(left, right Expr) *Binary { return Apply(OpSub, left, right) }

// And returns left & right.
func And(left, right Expr) *Binary { return Apply(OpAnd, left, right) }

// Or returns left | right.
func Or(left, right Expr) *Binary { return Apply(OpOr, left, right) }

// Xor returns left ^ right.
func Xor(left, right Expr) *Binary { return Apply(OpXor, left, right) }

// Shl returns left << right.
func Shl(left, right Expr) *Binary { return Apply(OpShl, left, right) }

// Eq returns left == right.
func Eq(left, right Expr) *Binary { return Apply(OpEq, left, right) }

// Ne returns left != right.
func Ne(left, right Expr) *Binary { return Apply(OpNe, left, right) }

// Neg returns -x.
func Neg(x Expr) *Unary { return &Unary{Op: OpNeg, X: x, DataWidth: x.Width()} }

// Comp returns the bitwise complement ~x.
func Comp(x Expr) *Unary { return &Unary{Op: OpComp, X: x, DataWidth: x.Width()} }

// Not returns the logical negation !x.
func Not(x Expr) *Unary { return &Unary{Op: OpNot, X: x, DataWidth: instruction.Bool} }

// Fn returns an intrinsic application.
func Fn(name string, w instruction.Width, args ...Expr) *Application {
	return &Application{Name: name, Args: args, DataWidth: w}
}

// Load returns a memory access.
func Load(ea Expr, w instruction.Width) *Mem {
	return &Mem{EA: ea, DataWidth: w}
}

// Bit returns the mask 1 << n for a bit number n.
func Bit(n Expr, w instruction.Width) *Binary {
	return &Binary{Op: OpShl, Left: Int(1, instruction.Word32), Right: n, DataWidth: w}
}
