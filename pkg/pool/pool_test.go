package pool

import (
	"encoding/binary"
	"testing"

	"github.com/objdiffgo/objdiff/pkg/arch"
	archppc "github.com/objdiffgo/objdiff/pkg/arch/ppc"
	"github.com/objdiffgo/objdiff/pkg/object"
	"github.com/objdiffgo/objdiff/pkg/object/instr"
	"github.com/stretchr/testify/require"
)

func word(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// spec.md §8 scenario 5: lis r3,.data@ha; addi r3,r3,.data@l; lwz r4,8(r3)
// synthesizes a fake relocation at the lwz targeting the inner symbol at
// .data+8 with addend 0 when that symbol exists, else .data with addend 8.
func buildPoolFunction(t *testing.T) (*object.Object, arch.FunctionRange) {
	t.Helper()
	// lis r3, 0  (HA reloc attached at +0)
	lis := uint32((15 << 26) | (3 << 21) | 0)
	// addi r3,r3,0  (LO reloc attached at +4)
	addi := uint32((14 << 26) | (3 << 21) | (3 << 16) | 0)
	// lwz r4,8(r3)
	lwz := uint32((32 << 26) | (4 << 21) | (3 << 16) | 8)

	var code []byte
	code = append(code, word(lis)...)
	code = append(code, word(addi)...)
	code = append(code, word(lwz)...)

	dataSec := object.Section{Name: ".data", Kind: object.SectionData, Address: 0x9000, Size: 0x20, Data: make([]byte, 0x20)}
	codeSec := object.Section{
		Name: ".text", Kind: object.SectionCode, Address: 0x1000, Size: uint64(len(code)), Data: code,
		Relocations: []object.Relocation{
			{Flags: archppc.RelocAddr16Ha, Address: 0x1000, TargetSymbol: 0, Addend: 0},
			{Flags: archppc.RelocAddr16Lo, Address: 0x1004, TargetSymbol: 0, Addend: 0},
		},
	}

	obj := &object.Object{
		Sections: []object.Section{codeSec, dataSec},
		Symbols: []object.Symbol{
			{Name: "g_data", Address: 0x9000, Size: 0x20, Section: 1},
		},
	}
	obj.Sections[0].SymbolIndices = nil
	obj.Sections[1].SymbolIndices = []int{0}

	fn := arch.FunctionRange{Start: 0x1000, End: 0x1000 + uint64(len(code))}
	return obj, fn
}

func TestPoolSynthesis_NoInnerSymbol(t *testing.T) {
	obj, fn := buildPoolFunction(t)
	refs := []instr.InstructionRef{
		{Address: 0x1000, SizeBytes: 4},
		{Address: 0x1004, SizeBytes: 4},
		{Address: 0x1008, SizeBytes: 4},
	}
	synth := Generator{}.GeneratePooledRelocations(obj, 0, fn, refs)
	require.Len(t, synth, 1)
	require.Equal(t, uint64(0x1008), synth[0].Address)
	require.Equal(t, archppc.RelocNone, synth[0].Flags)
	require.Equal(t, 0, synth[0].TargetSymbol)
	require.Equal(t, int64(8), synth[0].Addend)
}

func TestPoolSynthesis_InnerSymbol(t *testing.T) {
	obj, fn := buildPoolFunction(t)
	obj.Symbols = append(obj.Symbols, object.Symbol{Name: "g_data_inner", Address: 0x9008, Size: 4, Section: 1})
	obj.Sections[1].SymbolIndices = []int{0, 1}

	refs := []instr.InstructionRef{
		{Address: 0x1000, SizeBytes: 4},
		{Address: 0x1004, SizeBytes: 4},
		{Address: 0x1008, SizeBytes: 4},
	}
	synth := Generator{}.GeneratePooledRelocations(obj, 0, fn, refs)
	require.Len(t, synth, 1)
	require.Equal(t, 1, synth[0].TargetSymbol)
	require.Equal(t, int64(0), synth[0].Addend)
}
