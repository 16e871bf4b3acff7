// Package arch defines the polymorphic capability set every supported
// instruction set implements (spec.md §4.C), and the registry that maps
// an object.ArchKind to its implementation. The capability set replaces
// dynamic dispatch/interfaces-with-many-implementors with a single
// interface and a closed registry keyed by a tagged enum — the same
// "descriptor struct, not a class hierarchy" shape the teacher uses for
// instructions.OpCodesDescriptor / registers.RegisterClassesDescriptor.
package arch

import (
	"github.com/objdiffgo/objdiff/pkg/object"
	"github.com/objdiffgo/objdiff/pkg/object/instr"
)

// Config carries every recognized configuration option from spec.md §6
// that influences decoding or display. Architectures ignore options that
// don't apply to them.
type Config struct {
	RelaxRelocDiffs     bool
	SpaceBetweenArgs    bool
	CombineDataSections bool
	ShowDataFlow        bool

	X86Formatter X86Formatter

	MipsABI             MipsABI
	MipsInstrCategory   MipsInstrCategory

	ArmArchVersion   ArmArchVersion
	ArmUnifiedSyntax bool
	ArmAVRegisters   bool
	ArmR9Usage       ArmR9Usage
	ArmSLUsage       bool
	ArmFPUsage       bool
	ArmIPUsage       bool
}

// ArgSeparator returns ", " or "," per the SpaceBetweenArgs toggle
// (spec.md §4.D "Operand value normalization").
func (c Config) ArgSeparator() string {
	if c.SpaceBetweenArgs {
		return ", "
	}
	return ","
}

type X86Formatter int

const (
	X86FormatterIntel X86Formatter = iota
	X86FormatterGas
	X86FormatterNasm
	X86FormatterMasm
)

type MipsABI int

const (
	MipsABIAuto MipsABI = iota
	MipsABIO32
	MipsABIN32
	MipsABIN64
)

type MipsInstrCategory int

const (
	MipsInstrCategoryAuto MipsInstrCategory = iota
	MipsInstrCategoryCPU
	MipsInstrCategoryRSP
	MipsInstrCategoryR3000GTE
	MipsInstrCategoryR4000Allegrex
	MipsInstrCategoryR5900
)

type ArmArchVersion int

const (
	ArmArchVersionAuto ArmArchVersion = iota
	ArmArchVersionV4T
	ArmArchVersionV5TE
	ArmArchVersionV6
	ArmArchVersionV6K
	ArmArchVersionV6T2
	ArmArchVersionV7
	ArmArchVersionV8
)

type ArmR9Usage int

const (
	ArmR9UsageGPR ArmR9Usage = iota
	ArmR9UsageSB
	ArmR9UsageTR
)

// FunctionRange bounds the symbol currently being processed/displayed,
// used to decide whether a PC-relative destination is an intra-function
// branch (spec.md §4.D "Branch-destination recording") or an external
// call that should not be treated as a local label.
type FunctionRange struct {
	Start uint64
	End   uint64 // exclusive
}

func (r FunctionRange) Contains(addr uint64) bool {
	return addr >= r.Start && addr < r.End
}

// Arch is the capability set every architecture implements (spec.md
// §4.C). Optional capabilities (DataFlowAnalysis, PoolRelocationGenerator)
// return nil when an architecture doesn't provide them.
type Arch interface {
	Kind() object.ArchKind

	// ScanInstructions produces one InstructionRef per real instruction
	// covering the entire byte range of code. On a decode error it MUST
	// emit a sentinel ref (instr.InvalidOpcodeID) and step forward by
	// MinInstructionSize so alignment stays byte-exact across both
	// sides of a diff.
	ScanInstructions(address uint64, code []byte, sectionIndex int, relocations []object.Relocation, cfg Config) []instr.InstructionRef

	// ProcessInstruction decodes one InstructionRef into a
	// ParsedInstruction, splicing in a resolved relocation when present.
	// Deterministic, no I/O.
	ProcessInstruction(ref instr.InstructionRef, code []byte, resolved *object.ResolvedRelocation, fn FunctionRange, sectionIndex int, cfg Config) (instr.ParsedInstruction, error)

	// DisplayInstruction projects a ParsedInstruction into a stream of
	// instr.Part values via emit, honouring cfg's display toggles.
	DisplayInstruction(parsed instr.ParsedInstruction, cfg Config, emit instr.EmitFunc)

	// ImplicitAddend reads an addend embedded in the instruction word
	// when the relocation format omits an explicit one.
	ImplicitAddend(code []byte, section *object.Section, address uint64, reloc object.Relocation) (int64, error)

	// RelocName returns the stable uppercase identifier for a
	// relocation kind (e.g. "R_PPC_ADDR16_LO"), or "" if unknown.
	RelocName(flags object.RelocKind) string

	// DataRelocSize returns the byte width covered by a data relocation
	// of the given kind, needed to splice relocation-covered ranges out
	// of a byte-level data diff (component G).
	DataRelocSize(flags object.RelocKind) int

	// Demangle returns the demangled form of name, or "" if name isn't
	// recognized by any dialect this architecture dispatches to.
	Demangle(name string) string

	// MinInstructionSize is the smallest possible instruction length in
	// bytes — the step taken past a decode failure.
	MinInstructionSize() int

	// DataFlowAnalysis is an optional capability: architectures that
	// can annotate registers with inferred values (ShowDataFlow) return
	// a non-nil analyzer; others return nil.
	DataFlowAnalysis() DataFlowAnalyzer

	// PoolRelocationGenerator is an optional capability: only PowerPC
	// implements it (component H). Others return nil.
	PoolRelocationGenerator() PoolRelocationGenerator
}

// DataFlowAnalyzer annotates a register name with an inferred value at a
// given instruction address, when ShowDataFlow is enabled. Optional
// per-architecture capability (spec.md §4.C, §4.J).
type DataFlowAnalyzer interface {
	AnnotateRegister(address uint64, register string) (value string, ok bool)
}

// PoolRelocationGenerator is the optional capability backing component H
// (only PowerPC implements it). Defined here, implemented in pkg/pool,
// to avoid pkg/arch/ppc depending on pkg/pool for a type it only needs
// to return.
type PoolRelocationGenerator interface {
	GeneratePooledRelocations(obj *object.Object, sectionIndex int, fn FunctionRange, refs []instr.InstructionRef) []object.Relocation
}

// registry is the closed set of implementations, populated by each
// arch/<name> package's init().
var registry = map[object.ArchKind]Arch{}

// Register adds an implementation to the registry. Called from each
// per-architecture package's init(). Panics on duplicate registration —
// a programmer error, not a runtime condition.
func Register(a Arch) {
	if _, exists := registry[a.Kind()]; exists {
		panic("arch: duplicate registration for " + a.Kind().String())
	}
	registry[a.Kind()] = a
}

// For returns the registered implementation for kind, or (nil, false) if
// none is registered (spec.md §7 LoadError: ErrUnsupportedArch).
func For(kind object.ArchKind) (Arch, bool) {
	a, ok := registry[kind]
	return a, ok
}
