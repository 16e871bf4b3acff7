package x86

import (
	"testing"

	"github.com/objdiffgo/objdiff/pkg/arch"
	"github.com/objdiffgo/objdiff/pkg/object"
	"github.com/objdiffgo/objdiff/pkg/object/instr"
	"github.com/stretchr/testify/require"
)

// spec.md §8 scenario 4: `mov dword ptr [ebp-152], <reloc>` — a COFF
// IMAGE_REL_I386_DIR32 relocation covers the trailing imm32 field.
func TestMovMemImm32WithRelocation(t *testing.T) {
	code := []byte{0xC7, 0x85, 0x68, 0xFF, 0xFF, 0xFF, 0x00, 0x00, 0x00, 0x00}
	reloc := object.Relocation{Address: 0x1006, Flags: RelocI386Dir32, TargetSymbol: 1}
	target := &object.Symbol{Name: "g_value"}

	s := X86{}
	refs := s.ScanInstructions(0x1000, code, 0, []object.Relocation{reloc}, arch.Config{})
	require.Len(t, refs, 1)
	require.Equal(t, uint8(10), refs[0].SizeBytes)
	require.Equal(t, uint16(OpMov), refs[0].OpcodeID)

	resolved := &object.ResolvedRelocation{Relocation: reloc, Target: target}
	fn := arch.FunctionRange{Start: 0x1000, End: 0x100A}
	parsed, err := s.ProcessInstruction(refs[0], code, resolved, fn, 0, arch.Config{})
	require.NoError(t, err)
	require.Equal(t, "mov", parsed.Mnemonic)
	require.NotNil(t, parsed.MemOperand)
	require.Equal(t, "dword", parsed.MemOperand.SizeKeyword)
	require.Equal(t, "ebp", parsed.MemOperand.BaseReg)
	require.Equal(t, int64(-152), parsed.Args[0].Signed)
	require.Equal(t, instr.ArgReloc, parsed.Args[1].Kind)
	require.Equal(t, "g_value", parsed.Args[1].Reloc.TargetName)

	var texts []string
	s.DisplayInstruction(parsed, arch.Config{}, func(p instr.Part) {
		if p.Kind == instr.PartSeparator {
			return
		}
		texts = append(texts, p.Text)
	})
	require.Equal(t, []string{"mov", "dword", "ptr", "[", "ebp", "-", "152", "]", ""}, texts)
}

func TestGroup1ImmByteArithmetic(t *testing.T) {
	// add dword ptr [eax], 4  (83 00 04)
	code := []byte{0x83, 0x00, 0x04}
	s := X86{}
	refs := s.ScanInstructions(0x2000, code, 0, nil, arch.Config{})
	require.Len(t, refs, 1)
	require.Equal(t, uint8(3), refs[0].SizeBytes)

	fn := arch.FunctionRange{Start: 0x2000, End: 0x2003}
	parsed, err := s.ProcessInstruction(refs[0], code, nil, fn, 0, arch.Config{})
	require.NoError(t, err)
	require.Equal(t, "add", parsed.Mnemonic)
	require.Equal(t, int64(4), parsed.Args[1].Signed)
}

func TestCallRel32BranchReloc(t *testing.T) {
	code := []byte{0xE8, 0x00, 0x00, 0x00, 0x00}
	reloc := object.Relocation{Address: 0x3001, Flags: RelocI386Rel32, TargetSymbol: 1}
	target := &object.Symbol{Name: "helper"}
	s := X86{}
	refs := s.ScanInstructions(0x3000, code, 0, []object.Relocation{reloc}, arch.Config{})
	require.True(t, refs[0].HasBranch)

	resolved := &object.ResolvedRelocation{Relocation: reloc, Target: target}
	fn := arch.FunctionRange{Start: 0x3000, End: 0x3005}
	parsed, err := s.ProcessInstruction(refs[0], code, resolved, fn, 0, arch.Config{})
	require.NoError(t, err)
	require.Equal(t, "call", parsed.Mnemonic)
	require.Equal(t, instr.ArgReloc, parsed.Args[0].Kind)
	require.Equal(t, "helper", parsed.Args[0].Reloc.TargetName)
}

func TestInvalidInstructionSentinel(t *testing.T) {
	s := X86{}
	refs := s.ScanInstructions(0, []byte{0x0F, 0x0B}, 0, nil, arch.Config{})
	require.True(t, refs[0].Invalid())
	require.Equal(t, uint8(1), refs[0].SizeBytes)
}

func TestInlineDataPseudoOp(t *testing.T) {
	// A relocation whose Address coincides with the scan position marks
	// inline data rather than an instruction (spec.md §4.D).
	reloc := object.Relocation{Address: 0x4000, Flags: RelocELFX64_64}
	s := X86_64{}
	refs := s.ScanInstructions(0x4000, make([]byte, 8), 0, []object.Relocation{reloc}, arch.Config{})
	require.Len(t, refs, 1)
	require.Equal(t, uint16(OpData), refs[0].OpcodeID)
	require.Equal(t, uint8(8), refs[0].SizeBytes)
}
