package arm

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

func TestMovImmediate(t *testing.T) {
	a := Arm{}
	// mov r0, #5 (al, data-proc imm, opcode=MOV(13), S=0, rd=0, imm8=5, rot=0)
	w := uint32(0xE<<28 | 1<<25 | 13<<21 | 0<<16 | 0<<12 | 5)
	refs := a.ScanInstructions(0x8000, word(w), 0, nil, arch.Config{})
	require.Equal(t, uint16(OpMov), refs[0].OpcodeID)

	fn := arch.FunctionRange{Start: 0x8000, End: 0x8004}
	parsed, err := a.ProcessInstruction(refs[0], word(w), nil, fn, 0, arch.Config{})
	require.NoError(t, err)
	require.Equal(t, "mov", parsed.Mnemonic)
	require.Equal(t, "r0", parsed.Args[0].Opaque)
	require.Equal(t, uint64(5), parsed.Args[1].Unsigned)
}

func TestAddRegister(t *testing.T) {
	a := Arm{}
	// add r3, r1, r2 (al, data-proc reg, opcode=ADD(4), rd=3,rn=1,rm=2)
	w := uint32(0xE<<28 | 0<<25 | 4<<21 | 1<<16 | 3<<12 | 2)
	refs := a.ScanInstructions(0x9000, word(w), 0, nil, arch.Config{})
	require.Equal(t, uint16(OpAdd), refs[0].OpcodeID)
	fn := arch.FunctionRange{Start: 0x9000, End: 0x9004}
	parsed, err := a.ProcessInstruction(refs[0], word(w), nil, fn, 0, arch.Config{})
	require.NoError(t, err)
	require.Equal(t, []string{"r3", "r1", "r2"}, []string{parsed.Args[0].Opaque, parsed.Args[1].Opaque, parsed.Args[2].Opaque})
}

func TestBranchLinkDestination(t *testing.T) {
	a := Arm{}
	// bl <self-8>: offset field -2 words -> dest = addr+8-8 = addr
	w := uint32(0xE<<28 | 0xB<<24 | uint32(int32(-2)&0xFFFFFF))
	refs := a.ScanInstructions(0x1000, word(w), 0, nil, arch.Config{})
	require.True(t, refs[0].HasBranch)
	require.Equal(t, uint16(OpBl), refs[0].OpcodeID)
	require.Equal(t, uint64(0x1000), refs[0].BranchDest)
}

func TestBxReturnLikeForm(t *testing.T) {
	a := Arm{}
	w := uint32(0xE12FFF1E) // bx lr
	refs := a.ScanInstructions(0x2000, word(w), 0, nil, arch.Config{})
	require.Equal(t, uint16(OpBx), refs[0].OpcodeID)
}

func TestAbs32RelocationSplice(t *testing.T) {
	a := Arm{}
	w := uint32(0xE<<28 | 1<<25 | 13<<21 | 0<<16 | 0<<12 | 0)
	reloc := object.Relocation{Address: 0x5000, Flags: RelocAbs32, TargetSymbol: 1}
	target := &object.Symbol{Name: "g_flag"}
	refs := a.ScanInstructions(0x5000, word(w), 0, []object.Relocation{reloc}, arch.Config{})
	fn := arch.FunctionRange{Start: 0x5000, End: 0x5004}
	resolved := &object.ResolvedRelocation{Relocation: reloc, Target: target}
	parsed, err := a.ProcessInstruction(refs[0], word(w), resolved, fn, 0, arch.Config{})
	require.NoError(t, err)
	require.Equal(t, instr.ArgReloc, parsed.Args[1].Kind)
	require.Equal(t, "g_flag", parsed.Args[1].Reloc.TargetName)
}

func TestInvalidInstructionSentinel(t *testing.T) {
	a := Arm{}
	// class 0b011 (load/store register offset) isn't in the representative subset
	w := uint32(0xE<<28 | 0b011<<25)
	refs := a.ScanInstructions(0, word(w), 0, nil, arch.Config{})
	require.True(t, refs[0].Invalid())
	require.Equal(t, uint8(4), refs[0].SizeBytes)
}
