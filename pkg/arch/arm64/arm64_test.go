package arm64

import (
	"encoding/binary"
	"testing"

	"github.com/objdiffgo/objdiff/pkg/arch"
	"github.com/objdiffgo/objdiff/pkg/object"
	"github.com/stretchr/testify/require"
)

func word(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// spec.md §8 scenario 1 (ARM64 alias), reproduced with bytes that encode a
// real ORR (shifted register) so the Rn==XZR alias rule actually fires:
// orr x10, xzr, x3 canonicalizes to mov x10, x3, and the opcode id is
// shared with the x5 variant since they differ only in register content.
func TestMovAlias(t *testing.T) {
	a := Arm64{}
	movX3 := word(0xaa0303ea)
	movX5 := word(0xaa0503ea)

	refs3 := a.ScanInstructions(0, movX3, 0, nil, arch.Config{})
	refs5 := a.ScanInstructions(0, movX5, 0, nil, arch.Config{})
	require.Equal(t, uint16(OpMov), refs3[0].OpcodeID)
	require.Equal(t, refs3[0].OpcodeID, refs5[0].OpcodeID)

	parsed, err := a.ProcessInstruction(refs3[0], movX3, nil, arch.FunctionRange{}, 0, arch.Config{})
	require.NoError(t, err)
	require.Equal(t, "mov", parsed.Mnemonic)
	require.Equal(t, "orr", parsed.MnemonicOriginal)
}

// A three-operand orr (Rn != XZR) must not alias to mov, and must carry a
// distinct opcode id from the aliased form.
func TestOrrNoAlias(t *testing.T) {
	a := Arm64{}
	orr := word(0xaa030049)
	refs := a.ScanInstructions(0, orr, 0, nil, arch.Config{})
	require.Equal(t, uint16(OpOrr), refs[0].OpcodeID)
	require.NotEqual(t, uint16(OpMov), refs[0].OpcodeID)
}

func TestBranch(t *testing.T) {
	a := Arm64{}
	refs := a.ScanInstructions(0x1000, word(0x14000004), 0, nil, arch.Config{})
	require.True(t, refs[0].HasBranch)
	require.Equal(t, uint64(0x1010), refs[0].BranchDest)
}

func TestAdrpPageAlignment(t *testing.T) {
	a := Arm64{}
	refs := a.ScanInstructions(0x4000, word(0x90000020), 0, nil, arch.Config{})
	require.True(t, refs[0].HasBranch)
	require.Equal(t, uint64(0x8000), refs[0].BranchDest)
}

func TestUbfmLsrAlias(t *testing.T) {
	a := Arm64{}
	w := word(0xd345fc41)
	refs := a.ScanInstructions(0, w, 0, nil, arch.Config{})
	parsed, err := a.ProcessInstruction(refs[0], w, nil, arch.FunctionRange{}, 0, arch.Config{})
	require.NoError(t, err)
	require.Equal(t, "lsr", parsed.Mnemonic)
	require.Equal(t, "ubfm", parsed.MnemonicOriginal)
}

func TestMaddMulAlias(t *testing.T) {
	a := Arm64{}
	w := word(0x9b027c20)
	refs := a.ScanInstructions(0, w, 0, nil, arch.Config{})
	parsed, err := a.ProcessInstruction(refs[0], w, nil, arch.FunctionRange{}, 0, arch.Config{})
	require.NoError(t, err)
	require.Equal(t, "mul", parsed.Mnemonic)
	require.Equal(t, "madd", parsed.MnemonicOriginal)
}

func TestCsincCsetAlias(t *testing.T) {
	a := Arm64{}
	w := word(0x9a9f07e3)
	refs := a.ScanInstructions(0, w, 0, nil, arch.Config{})
	parsed, err := a.ProcessInstruction(refs[0], w, nil, arch.FunctionRange{}, 0, arch.Config{})
	require.NoError(t, err)
	require.Equal(t, "cset", parsed.Mnemonic)
	require.Equal(t, "csinc", parsed.MnemonicOriginal)
}

func TestInvalidInstructionSentinel(t *testing.T) {
	a := Arm64{}
	refs := a.ScanInstructions(0, word(0xFFFFFFFF), 0, nil, arch.Config{})
	require.Len(t, refs, 1)
	require.True(t, refs[0].Invalid())
}

func TestAdrpRelocSplicing(t *testing.T) {
	a := Arm64{}
	w := word(0x90000020)
	refs := a.ScanInstructions(0x4000, w, 0, nil, arch.Config{})
	resolved := &object.ResolvedRelocation{
		Relocation: object.Relocation{Flags: RelocAdrPrelPgHi21, TargetSymbol: 0, Addend: 0},
		Target:     &object.Symbol{Name: "g_table"},
	}
	parsed, err := a.ProcessInstruction(refs[0], w, resolved, arch.FunctionRange{}, 0, arch.Config{})
	require.NoError(t, err)
	last := parsed.Args[len(parsed.Args)-1]
	require.Equal(t, "reloc", last.Kind.String())
	require.Equal(t, "g_table", last.Reloc.TargetName)
}
