// Package instr holds the architecture-neutral instruction representation
// produced by component D (the per-architecture disassemblers) and
// consumed by components E-J (aligner, comparator, scorer, projector).
//
// The split mirrors the teacher's instructions.Instruction /
// instructions.OperandValue pattern: a lightweight scan-time descriptor
// (InstructionRef, analogous to RawInstruction) and a fully decoded form
// produced on demand (ParsedInstruction, analogous to Instruction).
package instr

import (
	"fmt"

	"github.com/objdiffgo/objdiff/pkg/object"
)

// InvalidOpcodeID is the sentinel opcode id emitted for a byte range a
// disassembler could not decode (spec.md §4.C, §4.D "Invalid-instruction
// handling"). Every architecture reserves this value; 0xFFFF never
// collides with a real table index in any of the per-arch tables, which
// are all far smaller than 65535 entries.
const InvalidOpcodeID uint16 = 0xFFFF

// InstructionRef is the lightweight descriptor produced by
// Arch.ScanInstructions: one per real instruction, covering the whole
// byte range handed to the scanner, byte-exact even on decode failure.
type InstructionRef struct {
	Address    uint64
	SizeBytes  uint8
	OpcodeID   uint16
	BranchDest uint64
	HasBranch  bool
	SectionIdx int

	// HasLiteral/LiteralValue/LiteralAddr record a literal-pool value this
	// instruction reads via a PC-relative displacement (SuperH's
	// mov.w/mov.l @(disp,PC),Rn — spec.md §8 scenario 3). Resolved at
	// scan time, when the full section buffer is still in view;
	// ProcessInstruction only sees its own instruction's bytes, so it
	// cannot re-read the pool itself.
	HasLiteral   bool
	LiteralValue uint64
	LiteralAddr  uint64
}

// Invalid reports whether this ref is the sentinel emitted on decode
// failure.
func (r InstructionRef) Invalid() bool {
	return r.OpcodeID == InvalidOpcodeID
}

// ArgKind tags the variant held by an InstructionArg, mirroring
// instructions.OperandValue.Kind() in the teacher.
type ArgKind int

const (
	ArgSignedValue ArgKind = iota
	ArgUnsignedValue
	ArgOpaqueValue
	ArgReloc
	ArgBranchDest
)

func (k ArgKind) String() string {
	switch k {
	case ArgSignedValue:
		return "signed"
	case ArgUnsignedValue:
		return "unsigned"
	case ArgOpaqueValue:
		return "opaque"
	case ArgReloc:
		return "reloc"
	case ArgBranchDest:
		return "branch-dest"
	}
	panic("unreachable")
}

// InstructionArg is one operand of a ParsedInstruction. Exactly one of
// the value fields is meaningful, selected by Kind — the same
// discriminated-struct shape as the teacher's OperandValue, chosen over
// an interface because comparator equality (reloc_eq, value equality)
// needs direct field access, not a type switch on every comparison.
type InstructionArg struct {
	Kind ArgKind

	Signed   int64
	Unsigned uint64
	Opaque   string // register name, condition code, barrier option, shift keyword...

	// RelocIndex is the relocIdx passed to RelocArg/ResolvedRelocationArg
	// when Kind == ArgReloc. Every current caller passes 0 and nothing
	// reads it back; comparison and display use Reloc below.
	RelocIndex int

	// Reloc carries the resolved relocation's comparable fields directly
	// (flags, addend, target identity), set by Arch.ProcessInstruction at
	// splice time. This is what the comparator's reloc_eq (spec.md §4.F)
	// actually compares — carrying the values inline avoids needing a
	// second section lookup during alignment/comparison, which run after
	// the ParsedInstruction has left ProcessInstruction's scope.
	Reloc ResolvedRelocArg

	// BranchAddr is the absolute destination when Kind == ArgBranchDest.
	BranchAddr uint64
}

// ResolvedRelocArg is the subset of object.ResolvedRelocation an
// InstructionArg needs to carry for later comparison and display,
// without instr depending on object's full Relocation/Symbol types at
// the field level (object.RelocKind is reused directly — it is already
// architecture-opaque, exactly what a cross-cutting comparator needs).
type ResolvedRelocArg struct {
	Flags      object.RelocKind
	Addend     int64
	TargetName string
	// TargetSection/TargetAddress let reloc_eq fall back to "resolves to
	// the same section+address" when names differ (spec.md §4.F), e.g.
	// across two builds where a local symbol was renamed but still
	// points at the same bytes.
	TargetSection  int
	TargetAddress  uint64
	TargetResolved bool // false when object.SymbolSentinel (unresolved)
	// TargetWeak mirrors the target symbol's object.SymbolWeak flag, used
	// by reloc_eq's "stripped weak symbol" fallback (spec.md §4.F): a
	// relocation resolved on one side but not the other can still count
	// as equal if the resolved side's target is a weak symbol and the
	// names match, the common shape when one build deduplicates a weak
	// symbol the other build still emits.
	TargetWeak bool
}

func SignedArg(v int64) InstructionArg    { return InstructionArg{Kind: ArgSignedValue, Signed: v} }
func UnsignedArg(v uint64) InstructionArg { return InstructionArg{Kind: ArgUnsignedValue, Unsigned: v} }
func OpaqueArg(v string) InstructionArg   { return InstructionArg{Kind: ArgOpaqueValue, Opaque: v} }
func RelocArg(relocIdx int) InstructionArg {
	return InstructionArg{Kind: ArgReloc, RelocIndex: relocIdx}
}

// ResolvedRelocArg builds a Reloc-kind arg carrying the resolved
// relocation's comparable fields (see ResolvedRelocArg type doc).
// relocIdx is stored as RelocIndex as given; current callers pass 0, and
// the display projector reads the Reloc fields, not the index.
func ResolvedRelocationArg(relocIdx int, r object.Relocation, target *object.Symbol) InstructionArg {
	ra := ResolvedRelocArg{Flags: r.Flags, Addend: r.Addend}
	if target != nil {
		ra.TargetName = target.Name
		ra.TargetSection = target.Section
		ra.TargetAddress = target.Address
		ra.TargetResolved = true
		ra.TargetWeak = target.Flags.Has(object.SymbolWeak)
	}
	return InstructionArg{Kind: ArgReloc, RelocIndex: relocIdx, Reloc: ra}
}
func BranchDestArg(addr uint64) InstructionArg {
	return InstructionArg{Kind: ArgBranchDest, BranchAddr: addr}
}

// String returns a human-readable rendering used by tests and by the
// fallback comparator string diffing; the display projector (component
// J) builds richer output by substituting relocation/branch references.
func (a InstructionArg) String() string {
	switch a.Kind {
	case ArgSignedValue:
		return fmt.Sprintf("%d", a.Signed)
	case ArgUnsignedValue:
		return fmt.Sprintf("0x%x", a.Unsigned)
	case ArgOpaqueValue:
		return a.Opaque
	case ArgReloc:
		return "<reloc>"
	case ArgBranchDest:
		return fmt.Sprintf("0x%x", a.BranchAddr)
	}
	panic("unreachable")
}

// ParsedInstruction is produced on demand from an InstructionRef and its
// backing bytes by Arch.ProcessInstruction. It is deterministic and
// side-effect free (spec.md §4.C).
type ParsedInstruction struct {
	Mnemonic         string // canonical (aliased) mnemonic, always lowercase
	MnemonicOriginal string // pre-alias form, for optional display (spec.md §4.D)
	Args             []InstructionArg

	// LiteralComment, when non-empty, is appended by the display
	// projector as a trailing `/* ... */` comment — SuperH's PC-relative
	// literal-pool annotation (spec.md §8 scenario 3).
	LiteralComment string

	// MemOperand, when non-nil, describes an x86 `[base ± disp]` memory
	// operand at Args[MemOperandArgIndex] — the displacement value still
	// lives in that arg's Signed field (or is spliced to a relocation),
	// but the surrounding `size ptr [base ...]` syntax isn't a single
	// value and so can't be represented as one InstructionArg (spec.md
	// §8 scenario 4).
	MemOperand         *MemOperand
	MemOperandArgIndex int
}

// MemOperand carries the x86 addressing-form fields the display
// projector needs to render a memory operand around the value already
// held by the corresponding InstructionArg.
type MemOperand struct {
	SizeKeyword string // "byte", "word", "dword", "qword"
	BaseReg     string // "" when the operand has no base register (absolute disp32)
	HasDisp     bool
}

func (p *ParsedInstruction) String() string {
	if len(p.Args) == 0 {
		return p.Mnemonic
	}
	out := p.Mnemonic + " "
	for i, a := range p.Args {
		if i > 0 {
			out += ", "
		}
		out += a.String()
	}
	return out
}

// PartKind tags one token of display output (component J).
type PartKind int

const (
	PartOpcode PartKind = iota
	PartArg
	PartReloc
	PartBranchDest
	PartSeparator
	PartBasic
)

// Part is one emitted display token. Opcode carries the stable opcode id
// alongside the mnemonic text so renderers needing it (e.g. colouring by
// instruction class) don't need a second lookup.
type Part struct {
	Kind       PartKind
	Text       string
	OpcodeID   uint16
	Arg        InstructionArg
	RelocIndex int
	Reloc      ResolvedRelocArg
	BranchAddr uint64
}

func OpcodePart(mnemonic string, id uint16) Part {
	return Part{Kind: PartOpcode, Text: mnemonic, OpcodeID: id}
}
func ArgPart(a InstructionArg) Part { return Part{Kind: PartArg, Text: a.String(), Arg: a} }
func RelocPart(idx int) Part        { return Part{Kind: PartReloc, RelocIndex: idx} }

// RelocArgPart projects a Reloc-kind InstructionArg straight to a display
// part, carrying the resolved relocation fields along so the display
// projector (component J) can render the target name / suffix without a
// second section lookup.
func RelocArgPart(a InstructionArg) Part {
	return Part{Kind: PartReloc, RelocIndex: a.RelocIndex, Reloc: a.Reloc}
}
func BranchDestPart(addr uint64) Part {
	return Part{Kind: PartBranchDest, BranchAddr: addr, Text: fmt.Sprintf("0x%x", addr)}
}
func SeparatorPart(text string) Part { return Part{Kind: PartSeparator, Text: text} }
func BasicPart(text string) Part     { return Part{Kind: PartBasic, Text: text} }

// EmitFunc is the callback Arch.DisplayInstruction invokes once per Part
// (spec.md §4.C: "invokes the emit callback once per InstructionPart").
type EmitFunc func(Part)
