package x86

// Opcode is a dense integer id for the representative x86/x86-64 opcode
// subset this package decodes (SPEC_FULL.md's scope decision).
type Opcode uint16

const (
	OpInvalid Opcode = iota
	OpData // pseudo-opcode: inline relocated data, not a real instruction
	OpMov
	OpLea
	OpPush
	OpPop
	OpRet
	OpLeave
	OpNop
	OpCall
	OpJmp
	OpJe
	OpJne
	OpAdd
	OpOr
	OpAdc
	OpSbb
	OpAnd
	OpSub
	OpXor
	OpCmp
)

var opcodeNames = map[Opcode]string{
	OpInvalid: "<invalid>",
	OpData:    "DATA",
	OpMov:     "mov",
	OpLea:     "lea",
	OpPush:    "push",
	OpPop:     "pop",
	OpRet:     "ret",
	OpLeave:   "leave",
	OpNop:     "nop",
	OpCall:    "call",
	OpJmp:     "jmp",
	OpJe:      "je",
	OpJne:     "jne",
	OpAdd:     "add",
	OpOr:      "or",
	OpAdc:     "adc",
	OpSbb:     "sbb",
	OpAnd:     "and",
	OpSub:     "sub",
	OpXor:     "xor",
	OpCmp:     "cmp",
}

// group1Ops maps a ModRM reg-field extension (0-7) to the opcode for the
// 0x81/0x83 "group 1" arithmetic-immediate instruction family.
var group1Ops = [8]Opcode{OpAdd, OpOr, OpAdc, OpSbb, OpAnd, OpSub, OpXor, OpCmp}

func (o Opcode) String() string {
	if n, ok := opcodeNames[o]; ok {
		return n
	}
	return "<unknown>"
}
