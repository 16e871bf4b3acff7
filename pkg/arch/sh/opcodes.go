package sh

// Opcode is a dense integer id for the representative SuperH (SH-2/SH-4)
// opcode subset this package decodes (SPEC_FULL.md's scope decision).
type Opcode uint16

const (
	OpInvalid Opcode = iota
	OpNop
	OpRts
	OpMovW  // mov.w @(disp,pc),Rn
	OpMovL  // mov.l @(disp,pc),Rn
	OpMovReg // mov Rm,Rn
	OpAdd
	OpAddImm
	OpCmpEq
	OpBra
	OpBsr
	OpBt
	OpBf
	OpJmp
	OpJsr
)

var opcodeNames = map[Opcode]string{
	OpInvalid: "<invalid>",
	OpNop:     "nop",
	OpRts:     "rts",
	OpMovW:    "mov.w",
	OpMovL:    "mov.l",
	OpMovReg:  "mov",
	OpAdd:     "add",
	OpAddImm:  "add",
	OpCmpEq:   "cmp/eq",
	OpBra:     "bra",
	OpBsr:     "bsr",
	OpBt:      "bt",
	OpBf:      "bf",
	OpJmp:     "jmp",
	OpJsr:     "jsr",
}

func (o Opcode) String() string {
	if n, ok := opcodeNames[o]; ok {
		return n
	}
	return "<unknown>"
}
