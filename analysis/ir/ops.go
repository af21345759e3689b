package ir

// BinOp is a binary operator.
type BinOp int

const (
	OpNone BinOp = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpAndNot
	OpShl
	OpShr
	// Logical right shift regardless of signedness.
	OpShrUn
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
	OpLAnd
	OpLOr
)

var binOpStrings = [...]string{
	OpNone:   "",
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpMod:    "%",
	OpAnd:    "&",
	OpOr:     "|",
	OpXor:    "^",
	OpAndNot: "&^",
	OpShl:    "<<",
	OpShr:    ">>",
	OpShrUn:  ">>>",
	OpEq:     "==",
	OpNe:     "!=",
	OpLt:     "<",
	OpGt:     ">",
	OpLe:     "<=",
	OpGe:     ">=",
	OpLAnd:   "&&",
	OpLOr:    "||",
}

func (op BinOp) String() string {
	return binOpStrings[op]
}

// Precedence follows the Go operator precedence levels.
func (op BinOp) Precedence() int {
	switch op {
	case OpMul, OpDiv, OpMod, OpShl, OpShr, OpShrUn, OpAnd, OpAndNot:
		return 5
	case OpAdd, OpSub, OpOr, OpXor:
		return 4
	case OpEq, OpNe, OpLt, OpGt, OpLe, OpGe:
		return 3
	case OpLAnd:
		return 2
	case OpLOr:
		return 1
	}
	return 0
}

// IsComparison checks whether op yields a boolean from two integers.
func (op BinOp) IsComparison() bool {
	return op.Precedence() == 3
}

// BinOpFromString looks an operator up by its spelling.
func BinOpFromString(s string) (BinOp, bool) {
	for op, str := range binOpStrings {
		if str == s && op != int(OpNone) {
			return BinOp(op), true
		}
	}
	return OpNone, false
}

// UnOp is a unary operator.
type UnOp int

const (
	OpNeg UnOp = iota
	OpPlus
	// Bitwise complement.
	OpNot
	// Logical negation.
	OpLNot
)

func (op UnOp) String() string {
	return [...]string{"-", "+", "^", "!"}[op]
}
