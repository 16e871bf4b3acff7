// Package object defines the architecture-neutral containers the rest of
// objdiff operates on: sections, symbols, relocations and the top-level
// Object they live in. Nothing in this package knows how to decode
// machine code — that is pkg/arch's job — it only knows how to hold the
// bytes and metadata an architecture decoder needs.
package object

import "fmt"

// ArchKind identifies the instruction set an Object was compiled for.
// A closed sum type, per the dispatch design in DESIGN.md: adding an
// architecture means adding a case here and a pkg/arch implementation,
// nothing else in this package changes.
type ArchKind int

const (
	ArchUnknown ArchKind = iota
	ArchArm
	ArchArm64
	ArchMips
	ArchPowerPC
	ArchSuperH
	ArchX86
	ArchX86_64
)

func (a ArchKind) String() string {
	switch a {
	case ArchArm:
		return "arm"
	case ArchArm64:
		return "arm64"
	case ArchMips:
		return "mips"
	case ArchPowerPC:
		return "powerpc"
	case ArchSuperH:
		return "sh"
	case ArchX86:
		return "x86"
	case ArchX86_64:
		return "x86_64"
	}
	return "unknown"
}

// SectionKind classifies a Section's role for the diff pipeline: Code
// sections get disassembled (component D), Data/Bss/Common get
// byte-diffed (component G).
type SectionKind int

const (
	SectionOther SectionKind = iota
	SectionCode
	SectionData
	SectionBss
	SectionCommon
)

func (k SectionKind) String() string {
	switch k {
	case SectionCode:
		return "code"
	case SectionData:
		return "data"
	case SectionBss:
		return "bss"
	case SectionCommon:
		return "common"
	}
	return "other"
}

// RelocKind is an architecture-specific opaque enum tagging an ELF/COFF
// relocation type. Each architecture package owns its own numeric space
// (mirroring debug/elf's R_PPC_*/R_AARCH64_*/R_X86_64_* constants) and is
// responsible for rendering a name for it via arch.Arch.RelocName.
type RelocKind uint32

// RelocNone is the flags value used by synthetic pool relocations
// (component H): it never appears in a real object file.
const RelocNone RelocKind = 0

// Relocation describes a single fixup: the byte range at Address within
// the owning Section's bytes should be patched to refer to TargetSymbol
// plus Addend once linked. objdiff never performs that patch (see
// spec.md Non-goals) — it only needs the relocation to resolve a display
// reference and to compare two relocations for equality.
type Relocation struct {
	Flags        RelocKind
	Address      uint64
	TargetSymbol int // index into Object.Symbols; SymbolSentinel if unresolved
	Addend       int64
}

// SymbolSentinel marks a Relocation (or SymbolReference) whose target
// symbol could not be resolved at load time. Kept instead of a -1 magic
// number scattered through the codebase; see spec.md §7 RelocationError.
const SymbolSentinel = -1

// Section is an architecture-neutral view of one ELF/COFF section.
type Section struct {
	Name    string
	Kind    SectionKind
	Address uint64
	Size    uint64
	Data    []byte

	// Relocations is sorted by Address (invariant from spec.md §3); no
	// two relocations at the same address have conflicting kinds.
	Relocations []Relocation

	// SymbolIndices lists, in address order, the indices into the
	// owning Object.Symbols that live in this section.
	SymbolIndices []int
}

// RelocationsAt returns every relocation covering the given address, in
// the order they appear in Relocations (stable, since Relocations is
// address-sorted and ties are rare but preserved in encounter order).
func (s *Section) RelocationsAt(address uint64) []Relocation {
	var out []Relocation
	for _, r := range s.Relocations {
		if r.Address == address {
			out = append(out, r)
		}
	}
	return out
}

// SymbolFlag is one bit of a Symbol's flag set.
type SymbolFlag uint32

const (
	SymbolGlobal SymbolFlag = 1 << iota
	SymbolLocal
	SymbolWeak
	SymbolCommon
	SymbolHidden
	SymbolHasExtra
	SymbolIgnored
	SymbolSizeInferred
)

// Has reports whether every bit in want is set in f.
func (f SymbolFlag) Has(want SymbolFlag) bool {
	return f&want == want
}

// Symbol is an architecture-neutral symbol table entry.
type Symbol struct {
	Name           string
	DemangledName  string // empty if not demangled / demangling failed
	Address        uint64
	Size           uint64 // may be zero = unknown, or inferred (see SymbolSizeInferred)
	Section        int    // index into Object.Sections, SymbolSentinel if absent
	VirtualAddress uint64
	HasVirtual     bool
	Flags          SymbolFlag
}

func (s *Symbol) DisplayName() string {
	if s.DemangledName != "" {
		return s.DemangledName
	}
	return s.Name
}

// Object owns every section, symbol and relocation parsed from one
// input file. It never mutates after the loader returns it — diffing,
// disassembly and scoring all take an *Object by read-only reference.
type Object struct {
	Arch     ArchKind
	Path     string
	Sections []Section
	Symbols  []Symbol

	// LineInfo maps a code Section index to an address->line map, built
	// from the DWARF line program of ELF inputs only; no fixed-record
	// line table is read, and COFF inputs get no line info. Absent (nil)
	// sections have no debug info.
	LineInfo map[int]map[uint64]int
}

// SectionAt returns a pointer to the section at index idx, or nil if idx
// is out of range or SymbolSentinel.
func (o *Object) SectionAt(idx int) *Section {
	if idx < 0 || idx >= len(o.Sections) {
		return nil
	}
	return &o.Sections[idx]
}

// SymbolAt returns a pointer to the symbol at index idx, or nil.
func (o *Object) SymbolAt(idx int) *Symbol {
	if idx < 0 || idx >= len(o.Symbols) {
		return nil
	}
	return &o.Symbols[idx]
}

// ResolvedRelocation is a (relocation, target symbol) pair looked up at
// display or comparison time. It exists only as a view — nothing stores
// a ResolvedRelocation persistently (spec.md §3 Ownership).
type ResolvedRelocation struct {
	Relocation Relocation
	Target     *Symbol // nil if unresolved (SymbolSentinel)
}

// Resolve joins a Relocation against this Object's symbol table.
func (o *Object) Resolve(r Relocation) ResolvedRelocation {
	return ResolvedRelocation{Relocation: r, Target: o.SymbolAt(r.TargetSymbol)}
}

// FindSymbolContaining returns the innermost non-hidden, non-ignored
// symbol in the given section whose [Address, Address+Size) range
// contains addr, or nil. Used by the pool-relocation synthesizer
// (component H) to resolve a pooled load to its specific target symbol.
func (o *Object) FindSymbolContaining(sectionIdx int, addr uint64) *Symbol {
	var best *Symbol
	for i := range o.Symbols {
		sym := &o.Symbols[i]
		if sym.Section != sectionIdx {
			continue
		}
		if sym.Flags.Has(SymbolHidden) || sym.Flags.Has(SymbolIgnored) {
			continue
		}
		size := sym.Size
		if size == 0 {
			size = 1
		}
		if addr < sym.Address || addr >= sym.Address+size {
			continue
		}
		if best == nil || sym.Address > best.Address {
			best = sym
		}
	}
	return best
}

func (o *Object) String() string {
	return fmt.Sprintf("Object{arch=%v, path=%q, sections=%d, symbols=%d}", o.Arch, o.Path, len(o.Sections), len(o.Symbols))
}
