package ppc

import (
	"encoding/binary"
	"testing"

	"github.com/objdiffgo/objdiff/pkg/arch"
	"github.com/objdiffgo/objdiff/pkg/object"
	"github.com/stretchr/testify/require"
)

func word(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// spec.md §8 scenario 2: PowerPC simplified branch.
func TestBranchSimplified(t *testing.T) {
	p := PowerPC{}
	refs := p.ScanInstructions(0x1000, word(0x4800000C), 0, nil, arch.Config{})
	require.Len(t, refs, 1)
	require.True(t, refs[0].HasBranch)
	require.Equal(t, uint64(0x100C), refs[0].BranchDest)

	parsed, err := p.ProcessInstruction(refs[0], word(0x4800000C), nil, arch.FunctionRange{}, 0, arch.Config{})
	require.NoError(t, err)
	require.Equal(t, "b", parsed.Mnemonic)
}

// spec.md §8 "Alias canonicalization": mr r3,r4 and or r3,r4,r4 share an
// opcode id.
func TestMrAlias(t *testing.T) {
	p := PowerPC{}
	// mr r3,r4 == or r3,r4,r4 (rB==rS); or r3,r4,r5 stays a plain or.
	mr := (31 << 26) | (4 << 21) | (3 << 16) | (4 << 11) | (444 << 1)
	or := (31 << 26) | (4 << 21) | (3 << 16) | (5 << 11) | (444 << 1)
	refsMr := p.ScanInstructions(0, word(uint32(mr)), 0, nil, arch.Config{})
	refsOr := p.ScanInstructions(0, word(uint32(or)), 0, nil, arch.Config{})
	require.Equal(t, uint16(OpMr), refsMr[0].OpcodeID)
	require.Equal(t, uint16(OpOr), refsOr[0].OpcodeID)
	require.NotEqual(t, refsMr[0].OpcodeID, refsOr[0].OpcodeID)

	parsed, err := p.ProcessInstruction(refsMr[0], word(uint32(mr)), nil, arch.FunctionRange{}, 0, arch.Config{})
	require.NoError(t, err)
	require.Equal(t, "mr", parsed.Mnemonic)
	require.Equal(t, "or", parsed.MnemonicOriginal)
}

func TestInvalidInstructionSentinel(t *testing.T) {
	p := PowerPC{}
	refs := p.ScanInstructions(0, word(0xFFFFFFFF), 0, nil, arch.Config{})
	require.Len(t, refs, 1)
	require.True(t, refs[0].Invalid())
	require.Equal(t, uint8(4), refs[0].SizeBytes)
}

func TestAddrRelocSplicing(t *testing.T) {
	p := PowerPC{}
	// lis r3, 0  -> addis r3,0,0
	lis := (15 << 26) | (3 << 21) | (0 << 16) | 0
	refs := p.ScanInstructions(0x2000, word(uint32(lis)), 0, nil, arch.Config{})
	resolved := &object.ResolvedRelocation{
		Relocation: object.Relocation{Flags: RelocAddr16Ha, TargetSymbol: 0, Addend: 0},
		Target:     &object.Symbol{Name: "g_pool"},
	}
	parsed, err := p.ProcessInstruction(refs[0], word(uint32(lis)), resolved, arch.FunctionRange{}, 0, arch.Config{})
	require.NoError(t, err)
	last := parsed.Args[len(parsed.Args)-1]
	require.Equal(t, "reloc", last.Kind.String())
	require.Equal(t, "g_pool", last.Reloc.TargetName)
}
