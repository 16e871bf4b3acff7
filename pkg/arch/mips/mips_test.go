package mips

import (
	"encoding/binary"
	"testing"

	"github.com/objdiffgo/objdiff/pkg/arch"
	"github.com/objdiffgo/objdiff/pkg/object"
	"github.com/objdiffgo/objdiff/pkg/object/instr"
	"github.com/stretchr/testify/require"
)

func word(w uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, w)
	return b
}

func TestAddiuAndNop(t *testing.T) {
	m := Mips{}
	// addiu $4,$0,8 ; opcode 0x09, rs=0, rt=4, imm=8
	addiu := uint32(0x09<<26 | 0<<21 | 4<<16 | 8)
	nop := uint32(0)
	code := append(word(addiu), word(nop)...)
	refs := m.ScanInstructions(0x1000, code, 0, nil, arch.Config{})
	require.Len(t, refs, 2)
	require.Equal(t, uint16(OpAddiu), refs[0].OpcodeID)
	require.Equal(t, uint16(OpNop), refs[1].OpcodeID)

	fn := arch.FunctionRange{Start: 0x1000, End: 0x1008}
	parsed, err := m.ProcessInstruction(refs[0], code[0:4], nil, fn, 0, arch.Config{})
	require.NoError(t, err)
	require.Equal(t, "addiu", parsed.Mnemonic)
	require.Equal(t, "$4", parsed.Args[0].Opaque)
	require.Equal(t, int64(8), parsed.Args[2].Signed)
}

func TestBeqBranchDest(t *testing.T) {
	m := Mips{}
	// beq $2,$3,-1 (branch to itself: dest = addr+4+(-1*4) = addr)
	beq := uint32(0x04<<26 | 2<<21 | 3<<16 | 0xFFFF)
	refs := m.ScanInstructions(0x2000, word(beq), 0, nil, arch.Config{})
	require.True(t, refs[0].HasBranch)
	require.Equal(t, uint64(0x2000), refs[0].BranchDest)
}

func TestLuiHi16Relocation(t *testing.T) {
	m := Mips{}
	lui := uint32(0x0F<<26 | 0<<21 | 4<<16 | 0)
	reloc := object.Relocation{Address: 0x3000, Flags: RelocHi16, TargetSymbol: 1}
	target := &object.Symbol{Name: "g_table"}
	refs := m.ScanInstructions(0x3000, word(lui), 0, []object.Relocation{reloc}, arch.Config{})
	fn := arch.FunctionRange{Start: 0x3000, End: 0x3004}
	resolved := &object.ResolvedRelocation{Relocation: reloc, Target: target}
	parsed, err := m.ProcessInstruction(refs[0], word(lui), resolved, fn, 0, arch.Config{})
	require.NoError(t, err)
	require.Equal(t, "lui", parsed.Mnemonic)
	require.Equal(t, instr.ArgReloc, parsed.Args[1].Kind)
	require.Equal(t, "g_table", parsed.Args[1].Reloc.TargetName)
}

func TestJTargetUpperBitsFromDelaySlot(t *testing.T) {
	m := Mips{}
	j := uint32(0x02<<26 | 0x100)
	refs := m.ScanInstructions(0x80010000, word(j), 0, nil, arch.Config{})
	require.True(t, refs[0].HasBranch)
	require.Equal(t, uint64(0x80010000&0xF0000000|0x100<<2), refs[0].BranchDest)
}

func TestInvalidInstructionSentinel(t *testing.T) {
	m := Mips{}
	refs := m.ScanInstructions(0, word(0x3F<<26), 0, nil, arch.Config{})
	require.True(t, refs[0].Invalid())
	require.Equal(t, uint8(4), refs[0].SizeBytes)
}
