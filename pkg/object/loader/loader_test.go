package loader

import (
	"debug/elf"
	"debug/pe"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objdiffgo/objdiff/pkg/object"
)

func TestIsCOFF(t *testing.T) {
	assert.True(t, isCOFF([]byte{0x4c, 0x01, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}))
	assert.False(t, isCOFF([]byte{0x7f, 'E', 'L', 'F'}))
	assert.False(t, isCOFF([]byte{0, 0}))
}

func TestDetectELFArch(t *testing.T) {
	cases := []struct {
		machine elf.Machine
		want    object.ArchKind
	}{
		{elf.EM_X86_64, object.ArchX86_64},
		{elf.EM_386, object.ArchX86},
		{elf.EM_ARM, object.ArchArm},
		{elf.EM_AARCH64, object.ArchArm64},
		{elf.EM_MIPS, object.ArchMips},
		{elf.EM_SH, object.ArchSuperH},
		{elf.EM_PPC, object.ArchPowerPC},
	}
	for _, c := range cases {
		f := &elf.File{FileHeader: elf.FileHeader{Machine: c.machine}}
		got, ok := detectELFArch(f)
		require.True(t, ok)
		assert.Equal(t, c.want, got)
	}

	f := &elf.File{FileHeader: elf.FileHeader{Machine: elf.EM_RISCV}}
	_, ok := detectELFArch(f)
	assert.False(t, ok)
}

func TestDetectCOFFArch(t *testing.T) {
	f := &pe.File{FileHeader: pe.FileHeader{Machine: pe.IMAGE_FILE_MACHINE_AMD64}}
	got, ok := detectCOFFArch(f)
	require.True(t, ok)
	assert.Equal(t, object.ArchX86_64, got)

	f = &pe.File{FileHeader: pe.FileHeader{Machine: 0x1f2}}
	got, ok = detectCOFFArch(f)
	require.True(t, ok)
	assert.Equal(t, object.ArchPowerPC, got)

	f = &pe.File{FileHeader: pe.FileHeader{Machine: 0xffff}}
	_, ok = detectCOFFArch(f)
	assert.False(t, ok)
}

func TestElfSectionKind(t *testing.T) {
	code := &elf.Section{SectionHeader: elf.SectionHeader{Flags: elf.SHF_EXECINSTR | elf.SHF_ALLOC}}
	assert.Equal(t, object.SectionCode, elfSectionKind(code))

	bss := &elf.Section{SectionHeader: elf.SectionHeader{Type: elf.SHT_NOBITS, Flags: elf.SHF_ALLOC}}
	assert.Equal(t, object.SectionBss, elfSectionKind(bss))

	data := &elf.Section{SectionHeader: elf.SectionHeader{Flags: elf.SHF_ALLOC | elf.SHF_WRITE}}
	assert.Equal(t, object.SectionData, elfSectionKind(data))

	other := &elf.Section{SectionHeader: elf.SectionHeader{}}
	assert.Equal(t, object.SectionOther, elfSectionKind(other))
}

func TestCoffSectionKind(t *testing.T) {
	code := &pe.Section{SectionHeader: pe.SectionHeader{Characteristics: pe.IMAGE_SCN_CNT_CODE}}
	assert.Equal(t, object.SectionCode, coffSectionKind(code))

	bss := &pe.Section{SectionHeader: pe.SectionHeader{Characteristics: pe.IMAGE_SCN_CNT_UNINITIALIZED_DATA}}
	assert.Equal(t, object.SectionBss, coffSectionKind(bss))

	data := &pe.Section{SectionHeader: pe.SectionHeader{Characteristics: pe.IMAGE_SCN_CNT_INITIALIZED_DATA}}
	assert.Equal(t, object.SectionData, coffSectionKind(data))
}

// TestInferSymbolSizes exercises the next-symbol/section-end inference
// rule directly against a hand-built Object, since constructing a real
// ELF fixture with an intact symbol table is out of scope for unit tests
// that must not shell out to a real toolchain.
func TestInferSymbolSizes(t *testing.T) {
	obj := &object.Object{
		Sections: []object.Section{{Address: 0x1000, Size: 0x100}},
		Symbols: []object.Symbol{
			{Name: "a", Address: 0x1000, Section: 0},
			{Name: "b", Address: 0x1020, Section: 0},
			{Name: "c", Address: 0x1080, Section: 0, Size: 0x10},
		},
	}
	inferSymbolSizes(obj)
	assert.Equal(t, uint64(0x20), obj.Symbols[0].Size)
	assert.True(t, obj.Symbols[0].Flags.Has(object.SymbolSizeInferred))
	assert.Equal(t, uint64(0x60), obj.Symbols[1].Size)
	assert.Equal(t, uint64(0x10), obj.Symbols[2].Size)
	assert.False(t, obj.Symbols[2].Flags.Has(object.SymbolSizeInferred))
}

func TestSectionContaining(t *testing.T) {
	obj := &object.Object{
		Sections: []object.Section{
			{Kind: object.SectionData, Address: 0, Size: 0x10},
			{Kind: object.SectionCode, Address: 0x100, Size: 0x50},
		},
	}
	assert.Equal(t, 1, sectionContaining(obj, 0x120))
	assert.Equal(t, -1, sectionContaining(obj, 0x8))
	assert.Equal(t, -1, sectionContaining(obj, 0x200))
}
