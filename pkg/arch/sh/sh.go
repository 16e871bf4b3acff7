// Package sh implements the SuperH (SH-2/SH-4) disassembler (component
// D). SH instructions are fixed 16-bit big-endian words, decoded the same
// table-driven way as pkg/arch/ppc, just over a 4-bit primary nibble
// instead of a 6-bit primary opcode.
//
// SPEC_FULL.md's scope decision applies: a representative opcode subset
// large enough to reproduce spec.md §8 scenario 3 (PC-relative literal
// pool loads) and the sign-extended branch displacements spec.md names,
// not a transcription of the full SH instruction set.
package sh

import (
	"encoding/binary"
	"fmt"

	"github.com/objdiffgo/objdiff/pkg/arch"
	"github.com/objdiffgo/objdiff/pkg/demangle"
	"github.com/objdiffgo/objdiff/pkg/object"
	"github.com/objdiffgo/objdiff/pkg/object/instr"
	"github.com/objdiffgo/objdiff/pkg/objerrors"
)

func init() {
	arch.Register(&SuperH{})
}

// SuperH implements arch.Arch for 16-bit big-endian SuperH.
type SuperH struct{}

func (SuperH) Kind() object.ArchKind   { return object.ArchSuperH }
func (SuperH) MinInstructionSize() int { return 2 }

func nibble(word uint16, i int) uint16 {
	shift := uint(12 - 4*i)
	return (word >> shift) & 0xF
}

func signExtend8(v uint16) int32 {
	return int32(int8(uint8(v)))
}

func signExtend12(v uint16) int32 {
	v &= 0xFFF
	if v&0x800 != 0 {
		return int32(v) - 0x1000
	}
	return int32(v)
}

type decoded struct {
	op         Opcode
	args       []instr.InstructionArg
	branchDest uint64
	hasBranch  bool
	// literalDisp/literalScale describe the PC-relative literal this
	// instruction reads, for ScanInstructions to resolve against the
	// section buffer (decode itself never sees more than its own word).
	hasLiteral   bool
	literalDisp  uint16
	literalScale uint64
	literalMask  uint64
}

func decode(addr uint64, word uint16) (decoded, bool) {
	switch nibble(word, 0) {
	case 0x0:
		switch word {
		case 0x0009:
			return decoded{op: OpNop}, true
		case 0x000B:
			return decoded{op: OpRts}, true
		}
	case 0x3:
		n := nibble(word, 1)
		m := nibble(word, 2)
		low := nibble(word, 3)
		switch low {
		case 0x0:
			return decoded{op: OpCmpEq, args: []instr.InstructionArg{reg(m), reg(n)}}, true
		case 0xC:
			return decoded{op: OpAdd, args: []instr.InstructionArg{reg(m), reg(n)}}, true
		}
	case 0x4:
		m := nibble(word, 1)
		low := word & 0xFF
		switch low {
		case 0x2B:
			return decoded{op: OpJmp, args: []instr.InstructionArg{atReg(m)}}, true
		case 0x0B:
			return decoded{op: OpJsr, args: []instr.InstructionArg{atReg(m)}}, true
		}
	case 0x6:
		n := nibble(word, 1)
		m := nibble(word, 2)
		if nibble(word, 3) == 0x3 {
			return decoded{op: OpMovReg, args: []instr.InstructionArg{reg(m), reg(n)}}, true
		}
	case 0x7:
		n := nibble(word, 1)
		imm := signExtend8(word & 0xFF)
		return decoded{op: OpAddImm, args: []instr.InstructionArg{instr.SignedArg(int64(imm)), reg(n)}}, true
	case 0x8:
		top := word & 0xFF00
		disp := signExtend8(word & 0xFF)
		dest := uint64(int64(addr) + 4 + int64(disp)*2)
		switch top {
		case 0x8900:
			return decoded{op: OpBt, branchDest: dest, hasBranch: true, args: []instr.InstructionArg{instr.BranchDestArg(dest)}}, true
		case 0x8B00:
			return decoded{op: OpBf, branchDest: dest, hasBranch: true, args: []instr.InstructionArg{instr.BranchDestArg(dest)}}, true
		}
	case 0x9:
		n := nibble(word, 1)
		disp := word & 0xFF
		return decoded{
			op: OpMovW, args: []instr.InstructionArg{atPCDisp(disp), reg(n)},
			hasLiteral: true, literalDisp: disp, literalScale: 2, literalMask: 0,
		}, true
	case 0xA:
		disp := signExtend12(word & 0xFFF)
		dest := uint64(int64(addr) + 4 + int64(disp)*2)
		return decoded{op: OpBra, branchDest: dest, hasBranch: true, args: []instr.InstructionArg{instr.BranchDestArg(dest)}}, true
	case 0xB:
		disp := signExtend12(word & 0xFFF)
		dest := uint64(int64(addr) + 4 + int64(disp)*2)
		return decoded{op: OpBsr, branchDest: dest, hasBranch: true, args: []instr.InstructionArg{instr.BranchDestArg(dest)}}, true
	case 0xD:
		n := nibble(word, 1)
		disp := word & 0xFF
		return decoded{
			op: OpMovL, args: []instr.InstructionArg{atPCDisp(disp), reg(n)},
			hasLiteral: true, literalDisp: disp, literalScale: 4, literalMask: 3,
		}, true
	}
	return decoded{}, false
}

// literalAddress computes the effective address a mov.w/mov.l PC-relative
// load reads from (spec.md §8 scenario 3's `@(0x4, pc)` form).
func literalAddress(addr uint64, d decoded) uint64 {
	base := addr + 4
	if d.literalMask != 0 {
		base &^= d.literalMask
	}
	return base + uint64(d.literalDisp)*d.literalScale
}

func reg(n uint16) instr.InstructionArg   { return instr.OpaqueArg(fmt.Sprintf("r%d", n)) }
func atReg(n uint16) instr.InstructionArg { return instr.OpaqueArg(fmt.Sprintf("@r%d", n)) }
func atPCDisp(disp uint16) instr.InstructionArg {
	return instr.OpaqueArg(fmt.Sprintf("@(0x%x, pc)", disp*2+4))
}

// ScanInstructions implements arch.Arch's fixed-width RISC decode loop,
// additionally resolving the literal-pool value for PC-relative loads
// while the whole section buffer is still in view (spec.md §8 scenario 3).
func (s SuperH) ScanInstructions(address uint64, code []byte, sectionIndex int, relocations []object.Relocation, cfg arch.Config) []instr.InstructionRef {
	var out []instr.InstructionRef
	for off := 0; off+2 <= len(code); off += 2 {
		addr := address + uint64(off)
		word := binary.BigEndian.Uint16(code[off : off+2])
		d, ok := decode(addr, word)
		if !ok {
			out = append(out, instr.InstructionRef{Address: addr, SizeBytes: 2, OpcodeID: instr.InvalidOpcodeID, SectionIdx: sectionIndex})
			continue
		}
		ref := instr.InstructionRef{Address: addr, SizeBytes: 2, OpcodeID: uint16(d.op), SectionIdx: sectionIndex}
		if d.hasBranch {
			ref.BranchDest = d.branchDest
			ref.HasBranch = true
		}
		if d.hasLiteral {
			litAddr := literalAddress(addr, d)
			litOff := int64(litAddr) - int64(address)
			if litOff >= 0 && litOff+2 <= int64(len(code)) {
				ref.HasLiteral = true
				ref.LiteralAddr = litAddr
				ref.LiteralValue = uint64(binary.BigEndian.Uint16(code[litOff : litOff+2]))
				if d.literalScale == 4 && litOff+4 <= int64(len(code)) {
					ref.LiteralValue = uint64(binary.BigEndian.Uint32(code[litOff : litOff+4]))
				}
			}
		}
		out = append(out, ref)
	}
	return out
}

// ProcessInstruction implements arch.Arch.
func (s SuperH) ProcessInstruction(ref instr.InstructionRef, code []byte, resolved *object.ResolvedRelocation, fn arch.FunctionRange, sectionIndex int, cfg arch.Config) (instr.ParsedInstruction, error) {
	if ref.Invalid() || len(code) < 2 {
		return instr.ParsedInstruction{Mnemonic: "<invalid>"}, objerrors.Wrap(objerrors.ErrDecode, "sh: at 0x%x", ref.Address)
	}
	word := binary.BigEndian.Uint16(code)
	d, ok := decode(ref.Address, word)
	if !ok {
		return instr.ParsedInstruction{Mnemonic: "<invalid>"}, objerrors.Wrap(objerrors.ErrDecode, "sh: at 0x%x", ref.Address)
	}
	parsed := instr.ParsedInstruction{
		Mnemonic:         d.op.String(),
		MnemonicOriginal: d.op.String(),
		Args:             append([]instr.InstructionArg(nil), d.args...),
	}
	// The literal pool comment only shows when the referenced address
	// lies within this function's own bytes (spec.md §8, §4.D's SuperH
	// row) — an out-of-range reference usually means the literal lives
	// in a different function's pool and isn't resolvable here.
	if ref.HasLiteral && fn.Contains(ref.LiteralAddr) {
		width := 4
		if d.literalScale == 4 {
			width = 8 // mov.l reads a full 32-bit pool word
		}
		parsed.LiteralComment = fmt.Sprintf("0x%0*X", width, ref.LiteralValue)
	}
	return parsed, nil
}

func (s SuperH) DisplayInstruction(parsed instr.ParsedInstruction, cfg arch.Config, emit instr.EmitFunc) {
	emit(instr.OpcodePart(parsed.Mnemonic, 0))
	sep := cfg.ArgSeparator()
	for i, a := range parsed.Args {
		if i > 0 {
			emit(instr.SeparatorPart(sep))
		} else {
			emit(instr.SeparatorPart(" "))
		}
		switch a.Kind {
		case instr.ArgReloc:
			emit(instr.RelocArgPart(a))
		case instr.ArgBranchDest:
			emit(instr.BranchDestPart(a.BranchAddr))
		default:
			emit(instr.ArgPart(a))
		}
	}
	if parsed.LiteralComment != "" {
		emit(instr.SeparatorPart(" "))
		emit(instr.BasicPart(fmt.Sprintf("/* %s */", parsed.LiteralComment)))
	}
}

func (s SuperH) ImplicitAddend(code []byte, section *object.Section, address uint64, reloc object.Relocation) (int64, error) {
	return 0, objerrors.Wrap(objerrors.ErrImplicitAddend, "sh: unsupported reloc kind %d", reloc.Flags)
}

func (s SuperH) RelocName(flags object.RelocKind) string  { return "R_SH_UNKNOWN" }
func (s SuperH) DataRelocSize(flags object.RelocKind) int { return 4 }
func (s SuperH) Demangle(name string) string              { return demangle.Demangle(name) }

func (s SuperH) DataFlowAnalysis() arch.DataFlowAnalyzer              { return nil }
func (s SuperH) PoolRelocationGenerator() arch.PoolRelocationGenerator { return nil }
