package sh

import (
	"testing"

	"github.com/objdiffgo/objdiff/pkg/arch"
	"github.com/stretchr/testify/require"
)

// spec.md §8 scenario 3: SuperH PC-relative literal.
func TestMovWLiteralComment(t *testing.T) {
	s := SuperH{}
	code := []byte{0x90, 0x00, 0x00, 0x09, 0x00, 0xB0}
	base := uint64(0x0606F378)
	refs := s.ScanInstructions(base, code, 0, nil, arch.Config{})
	require.Len(t, refs, 3)
	require.Equal(t, uint16(OpMovW), refs[0].OpcodeID)
	require.True(t, refs[0].HasLiteral)
	require.Equal(t, base+4, refs[0].LiteralAddr)
	require.Equal(t, uint64(0x00B0), refs[0].LiteralValue)

	fn := arch.FunctionRange{Start: base, End: base + uint64(len(code))}
	parsed, err := s.ProcessInstruction(refs[0], code[0:2], nil, fn, 0, arch.Config{})
	require.NoError(t, err)
	require.Equal(t, "mov.w", parsed.Mnemonic)
	require.Equal(t, "@(0x4, pc)", parsed.Args[0].Opaque)
	require.Equal(t, "r0", parsed.Args[1].Opaque)
	require.Equal(t, "0x00B0", parsed.LiteralComment)
}

func TestNopAndRts(t *testing.T) {
	s := SuperH{}
	code := []byte{0x00, 0x09, 0x00, 0x0B}
	refs := s.ScanInstructions(0, code, 0, nil, arch.Config{})
	require.Equal(t, uint16(OpNop), refs[0].OpcodeID)
	require.Equal(t, uint16(OpRts), refs[1].OpcodeID)
}

// spec.md §4.D: 12-bit bra/bsr and 8-bit bt/bf displacements are
// sign-extended to a 32-bit absolute destination.
func TestBraNegativeDisplacement(t *testing.T) {
	s := SuperH{}
	// bra -2 (branch to itself): disp field 0xFFE (-2), dest = addr+4-4 = addr
	code := []byte{0xAF, 0xFE}
	refs := s.ScanInstructions(0x1000, code, 0, nil, arch.Config{})
	require.True(t, refs[0].HasBranch)
	require.Equal(t, uint64(0x1000), refs[0].BranchDest)
}

func TestInvalidInstructionSentinel(t *testing.T) {
	s := SuperH{}
	code := []byte{0xFF, 0xFF}
	refs := s.ScanInstructions(0, code, 0, nil, arch.Config{})
	require.True(t, refs[0].Invalid())
	require.Equal(t, uint8(2), refs[0].SizeBytes)
}
