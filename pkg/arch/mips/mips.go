// Package mips implements the MIPS disassembler (component D) for the
// R3000/R4000/R5900-family little-endian cores spec.md §6's
// mips_instr_category option enumerates (PSX/PS2/PSP decompilation
// targets). Same table-driven, one-function-per-instruction-class shape
// as pkg/arch/ppc, adapted to MIPS's fixed opcode/rs/rt/rd field layout.
package mips

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
	arch.Register(&Mips{})
}

// Mips implements arch.Arch for 32-bit little-endian MIPS.
type Mips struct{}

func (Mips) Kind() object.ArchKind   { return object.ArchMips }
func (Mips) MinInstructionSize() int { return 4 }

func bits(word uint32, lo, width uint) uint32 {
	return (word >> lo) & ((1 << width) - 1)
}

func signExtend16(v uint32) int32 {
	return int32(int16(v))
}

type decoded struct {
	op         Opcode
	args       []instr.InstructionArg
	branchDest uint64
	hasBranch  bool
}

func reg(n uint32) instr.InstructionArg {
	return instr.OpaqueArg(fmt.Sprintf("$%d", n))
}

// decode decodes one 32-bit little-endian instruction word at address
// addr. Returns ok=false on an unrecognized encoding.
func decode(addr uint64, word uint32) (decoded, bool) {
	opcode := bits(word, 26, 6)
	rs := bits(word, 21, 5)
	rt := bits(word, 16, 5)
	rd := bits(word, 11, 5)
	shamt := bits(word, 6, 5)
	funct := bits(word, 0, 6)
	imm := bits(word, 0, 16)

	switch opcode {
	case 0: // R-type (SPECIAL)
		switch funct {
		case 0x00: // sll rd,rt,shamt ; all-zero canonicalizes to "nop"
			if rd == 0 && rt == 0 && shamt == 0 {
				return decoded{op: OpNop}, true
			}
			return decoded{op: OpSll, args: []instr.InstructionArg{reg(rd), reg(rt), instr.UnsignedArg(uint64(shamt))}}, true
		case 0x02:
			return decoded{op: OpSrl, args: []instr.InstructionArg{reg(rd), reg(rt), instr.UnsignedArg(uint64(shamt))}}, true
		case 0x08:
			return decoded{op: OpJr, args: []instr.InstructionArg{reg(rs)}}, true
		case 0x09:
			return decoded{op: OpJalr, args: []instr.InstructionArg{reg(rd), reg(rs)}}, true
		case 0x20:
			return decoded{op: OpAdd, args: []instr.InstructionArg{reg(rd), reg(rs), reg(rt)}}, true
		case 0x21:
			return decoded{op: OpAddu, args: []instr.InstructionArg{reg(rd), reg(rs), reg(rt)}}, true
		case 0x22:
			return decoded{op: OpSub, args: []instr.InstructionArg{reg(rd), reg(rs), reg(rt)}}, true
		case 0x23:
			return decoded{op: OpSubu, args: []instr.InstructionArg{reg(rd), reg(rs), reg(rt)}}, true
		case 0x24:
			return decoded{op: OpAnd, args: []instr.InstructionArg{reg(rd), reg(rs), reg(rt)}}, true
		case 0x25:
			return decoded{op: OpOr, args: []instr.InstructionArg{reg(rd), reg(rs), reg(rt)}}, true
		case 0x26:
			return decoded{op: OpXor, args: []instr.InstructionArg{reg(rd), reg(rs), reg(rt)}}, true
		case 0x27:
			return decoded{op: OpNor, args: []instr.InstructionArg{reg(rd), reg(rs), reg(rt)}}, true
		case 0x2A:
			return decoded{op: OpSlt, args: []instr.InstructionArg{reg(rd), reg(rs), reg(rt)}}, true
		case 0x2B:
			return decoded{op: OpSltu, args: []instr.InstructionArg{reg(rd), reg(rs), reg(rt)}}, true
		}
		return decoded{}, false
	case 0x08:
		return decoded{op: OpAddi, args: []instr.InstructionArg{reg(rt), reg(rs), instr.SignedArg(int64(signExtend16(imm)))}}, true
	case 0x09:
		return decoded{op: OpAddiu, args: []instr.InstructionArg{reg(rt), reg(rs), instr.SignedArg(int64(signExtend16(imm)))}}, true
	case 0x0C:
		return decoded{op: OpAndi, args: []instr.InstructionArg{reg(rt), reg(rs), instr.UnsignedArg(uint64(imm))}}, true
	case 0x0D:
		return decoded{op: OpOri, args: []instr.InstructionArg{reg(rt), reg(rs), instr.UnsignedArg(uint64(imm))}}, true
	case 0x0E:
		return decoded{op: OpXori, args: []instr.InstructionArg{reg(rt), reg(rs), instr.UnsignedArg(uint64(imm))}}, true
	case 0x0A:
		return decoded{op: OpSlti, args: []instr.InstructionArg{reg(rt), reg(rs), instr.SignedArg(int64(signExtend16(imm)))}}, true
	case 0x0B:
		return decoded{op: OpSltiu, args: []instr.InstructionArg{reg(rt), reg(rs), instr.UnsignedArg(uint64(imm))}}, true
	case 0x0F: // lui rt,imm ; rs must be 0, not carried as an operand
		return decoded{op: OpLui, args: []instr.InstructionArg{reg(rt), instr.UnsignedArg(uint64(imm))}}, true
	case 0x04, 0x05: // beq/bne rs,rt,offset — relative to the delay slot (addr+4)
		disp := int64(signExtend16(imm)) << 2
		dest := uint64(int64(addr) + 4 + disp)
		op := OpBeq
		if opcode == 0x05 {
			op = OpBne
		}
		return decoded{op: op, hasBranch: true, branchDest: dest,
			args: []instr.InstructionArg{reg(rs), reg(rt), instr.BranchDestArg(dest)}}, true
	case 0x20:
		return decoded{op: OpLb, args: []instr.InstructionArg{reg(rt), instr.SignedArg(int64(signExtend16(imm))), reg(rs)}}, true
	case 0x24:
		return decoded{op: OpLbu, args: []instr.InstructionArg{reg(rt), instr.SignedArg(int64(signExtend16(imm))), reg(rs)}}, true
	case 0x21:
		return decoded{op: OpLh, args: []instr.InstructionArg{reg(rt), instr.SignedArg(int64(signExtend16(imm))), reg(rs)}}, true
	case 0x29:
		return decoded{op: OpSh, args: []instr.InstructionArg{reg(rt), instr.SignedArg(int64(signExtend16(imm))), reg(rs)}}, true
	case 0x23:
		return decoded{op: OpLw, args: []instr.InstructionArg{reg(rt), instr.SignedArg(int64(signExtend16(imm))), reg(rs)}}, true
	case 0x28:
		return decoded{op: OpSb, args: []instr.InstructionArg{reg(rt), instr.SignedArg(int64(signExtend16(imm))), reg(rs)}}, true
	case 0x2B:
		return decoded{op: OpSw, args: []instr.InstructionArg{reg(rt), instr.SignedArg(int64(signExtend16(imm))), reg(rs)}}, true
	case 0x02, 0x03: // j/jal target — upper 4 bits come from the delay slot's address
		target := bits(word, 0, 26)
		dest := (uint64(addr+4) & 0xF0000000) | (uint64(target) << 2)
		op := OpJ
		if opcode == 0x03 {
			op = OpJal
		}
		return decoded{op: op, hasBranch: true, branchDest: dest, args: []instr.InstructionArg{instr.BranchDestArg(dest)}}, true
	}
	return decoded{}, false
}

func (m Mips) ScanInstructions(address uint64, code []byte, sectionIndex int, relocations []object.Relocation, cfg arch.Config) []instr.InstructionRef {
	var out []instr.InstructionRef
	for off := 0; off+4 <= len(code); off += 4 {
		addr := address + uint64(off)
		word := binary.LittleEndian.Uint32(code[off : off+4])
		d, ok := decode(addr, word)
		if !ok {
			out = append(out, instr.InstructionRef{Address: addr, SizeBytes: 4, OpcodeID: instr.InvalidOpcodeID, SectionIdx: sectionIndex})
			continue
		}
		ref := instr.InstructionRef{Address: addr, SizeBytes: 4, OpcodeID: uint16(d.op), SectionIdx: sectionIndex}
		if d.hasBranch {
			ref.BranchDest = d.branchDest
			ref.HasBranch = true
		}
		out = append(out, ref)
	}
	return out
}

func (m Mips) ProcessInstruction(ref instr.InstructionRef, code []byte, resolved *object.ResolvedRelocation, fn arch.FunctionRange, sectionIndex int, cfg arch.Config) (instr.ParsedInstruction, error) {
	if ref.Invalid() || len(code) < 4 {
		return instr.ParsedInstruction{Mnemonic: "<invalid>"}, objerrors.Wrap(objerrors.ErrDecode, "mips: at 0x%x", ref.Address)
	}
	word := binary.LittleEndian.Uint32(code)
	d, ok := decode(ref.Address, word)
	if !ok {
		return instr.ParsedInstruction{Mnemonic: "<invalid>"}, objerrors.Wrap(objerrors.ErrDecode, "mips: at 0x%x", ref.Address)
	}
	args := spliceRelocation(d, resolved)
	return instr.ParsedInstruction{Mnemonic: d.op.String(), MnemonicOriginal: d.op.String(), Args: args}, nil
}

// spliceRelocation routes a resolved relocation per spec.md §4.D's MIPS
// row: R_MIPS_26 replaces the branch-dest operand on j/jal; R_MIPS_HI16/
// LO16 replace the rightmost signed/unsigned value operand (the lui
// immediate or the load/store displacement).
func spliceRelocation(d decoded, resolved *object.ResolvedRelocation) []instr.InstructionArg {
	args := append([]instr.InstructionArg(nil), d.args...)
	if resolved == nil {
		return args
	}
	relocArg := instr.ResolvedRelocationArg(0, resolved.Relocation, resolved.Target)
	switch resolved.Relocation.Flags {
	case Reloc26:
		for i := len(args) - 1; i >= 0; i-- {
			if args[i].Kind == instr.ArgBranchDest {
				args[i] = relocArg
				break
			}
		}
	case RelocHi16, RelocLo16, Reloc16, Reloc32:
		for i := len(args) - 1; i >= 0; i-- {
			if args[i].Kind == instr.ArgSignedValue || args[i].Kind == instr.ArgUnsignedValue {
				args[i] = relocArg
				break
			}
		}
	}
	return args
}

func (m Mips) DisplayInstruction(parsed instr.ParsedInstruction, cfg arch.Config, emit instr.EmitFunc) {
	emit(instr.OpcodePart(parsed.Mnemonic, 0))
	sep := cfg.ArgSeparator()
	for i, a := range parsed.Args {
		if i > 0 {
			emit(instr.SeparatorPart(sep))
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
}

func (m Mips) ImplicitAddend(code []byte, section *object.Section, address uint64, reloc object.Relocation) (int64, error) {
	off := int(address - section.Address)
	if off+4 > len(code) {
		return 0, objerrors.Wrap(objerrors.ErrImplicitAddend, "mips: out of range at 0x%x", address)
	}
	word := binary.LittleEndian.Uint32(code[off : off+4])
	switch reloc.Flags {
	case RelocHi16, RelocLo16, Reloc16:
		return int64(signExtend16(bits(word, 0, 16))), nil
	case Reloc26:
		return int64(bits(word, 0, 26)) << 2, nil
	}
	return 0, objerrors.Wrap(objerrors.ErrImplicitAddend, "mips: unsupported reloc kind %d", reloc.Flags)
}

func (m Mips) RelocName(flags object.RelocKind) string             { return relocName(flags) }
func (m Mips) DataRelocSize(flags object.RelocKind) int             { return dataRelocSize(flags) }
func (m Mips) Demangle(name string) string                          { return demangle.Demangle(name) }
func (m Mips) DataFlowAnalysis() arch.DataFlowAnalyzer               { return nil }
func (m Mips) PoolRelocationGenerator() arch.PoolRelocationGenerator { return nil }
