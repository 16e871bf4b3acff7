// Package display implements the display projector (component J,
// spec.md §4.J): a pure function from a parsed instruction (or a data
// diff row) plus configuration to an ordered stream of typed
// instr.Part values. It knows nothing about the UI — callers provide an
// emit callback (the same EmitFunc shape arch.Arch.DisplayInstruction
// uses), matching the teacher's programfiledump.go pattern of a pure
// formatter that a caller decides how to render.
//
// This layer wraps the architecture's own DisplayInstruction (which
// already knows how to lay out its own operand order) rather than
// re-implementing per-architecture formatting: it post-processes the
// emitted Part stream to apply the toggles spec.md §4.J assigns to the
// projector specifically (reloc-suffix expansion, data-flow
// annotation, original-form display, separator collapsing), all of
// which are architecture-neutral.
package display

import (
	"fmt"
	"strings"

	"github.com/objdiffgo/objdiff/pkg/arch"
	"github.com/objdiffgo/objdiff/pkg/diff"
	"github.com/objdiffgo/objdiff/pkg/object"
	"github.com/objdiffgo/objdiff/pkg/object/instr"
)

// Config bundles the architecture-level Config (decode/display
// toggles shared with pkg/arch) with the two display-only toggles
// spec.md §4.J names that have no bearing on decoding: showing the
// original unaliased mnemonic alongside the canonical one, and
// collapsing a run of redundant separators.
type Config struct {
	arch.Config
	ShowOriginalForm   bool
	CollapseSeparators bool
}

// ProjectInstruction renders one side of an InstructionDiffRow. A row
// with no instruction on this side (Insert/Delete's empty side) emits
// nothing — callers render a blank line themselves.
func ProjectInstruction(a arch.Arch, row InstructionSide, cfg Config, emit instr.EmitFunc) {
	if row.Parsed == nil {
		return
	}
	parsed := *row.Parsed

	var dfa arch.DataFlowAnalyzer
	if cfg.ShowDataFlow {
		dfa = a.DataFlowAnalysis()
	}

	lastWasSeparator := false
	wrapped := func(p instr.Part) {
		if p.Kind == instr.PartSeparator {
			if lastWasSeparator && cfg.CollapseSeparators {
				return
			}
			lastWasSeparator = true
			emit(p)
			return
		}
		lastWasSeparator = false

		if p.Kind == instr.PartReloc {
			emitRelocWithSuffix(a, p, emit)
			return
		}

		emit(p)

		if dfa != nil && row.Address != 0 && p.Kind == instr.PartArg && p.Arg.Kind == instr.ArgOpaqueValue {
			if val, ok := dfa.AnnotateRegister(row.Address, p.Arg.Opaque); ok {
				emit(instr.BasicPart("{" + val + "}"))
			}
		}
	}

	a.DisplayInstruction(parsed, cfg.Config, wrapped)

	if cfg.ShowOriginalForm && parsed.MnemonicOriginal != "" && parsed.MnemonicOriginal != parsed.Mnemonic {
		emit(instr.BasicPart(" (" + parsed.MnemonicOriginal + ")"))
	}
}

// InstructionSide is the minimal slice of an InstructionDiffRow's one
// side the projector needs: the parsed form (nil on the empty side of
// an Insert/Delete) and the instruction's own address, used to look up
// a data-flow annotation at the right program point.
type InstructionSide struct {
	Parsed  *instr.ParsedInstruction
	Address uint64
}

// SideOf extracts the left or right InstructionSide from a diff row.
func SideOf(row diff.InstructionDiffRow) InstructionSide {
	s := InstructionSide{Parsed: row.Parsed}
	if row.Ref != nil {
		s.Address = row.Ref.Address
	}
	return s
}

// emitRelocWithSuffix expands a Reloc part per spec.md §4.J: a
// synthetic (object.RelocNone) relocation is wrapped in angle brackets
// ("<...> for fake"); otherwise the resolved part is emitted as-is and
// followed by the display suffix its relocation name implies (@h, @ha,
// @l, @sda21), derived from the architecture's own RelocName output so
// no per-architecture table needs duplicating here.
func emitRelocWithSuffix(a arch.Arch, p instr.Part, emit instr.EmitFunc) {
	if p.Reloc.Flags == object.RelocNone {
		label := p.Reloc.TargetName
		if label == "" {
			label = fmt.Sprintf("0x%x", p.Reloc.TargetAddress)
		}
		emit(instr.BasicPart("<" + label + ">"))
		return
	}

	emit(p)

	name := a.RelocName(p.Reloc.Flags)
	switch {
	case strings.Contains(name, "_HA"):
		emit(instr.BasicPart("@ha"))
	case strings.Contains(name, "_HI"):
		emit(instr.BasicPart("@h"))
	case strings.Contains(name, "SDA21"):
		emit(instr.BasicPart("@sda21"))
	case strings.Contains(name, "_LO"):
		emit(instr.BasicPart("@l"))
	}
}

// ProjectDataRow renders one DataDiffRow as a stream of hex-byte parts,
// one Part per byte, tagged with the row's diff kind via Text so a
// renderer can colour whole rows without re-deriving the kind per byte.
func ProjectDataRow(row diff.DataDiffRow, emit instr.EmitFunc) {
	kindText := dataKindText(row.Kind)
	for i, b := range row.Bytes {
		if i > 0 {
			emit(instr.SeparatorPart(" "))
		}
		emit(instr.Part{Kind: instr.PartBasic, Text: fmt.Sprintf("%02x", b)})
	}
	if kindText != "" {
		emit(instr.SeparatorPart(" "))
		emit(instr.BasicPart(kindText))
	}
}

func dataKindText(k diff.DataDiffKind) string {
	switch k {
	case diff.DataReplace:
		return "~"
	case diff.DataInsert:
		return "+"
	case diff.DataDelete:
		return "-"
	default:
		return ""
	}
}
