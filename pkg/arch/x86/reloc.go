package x86

import "github.com/objdiffgo/objdiff/pkg/object"

// Relocation kind numbers mirror the real COFF IMAGE_REL_I386_* and ELF
// R_386_*/R_X86_64_* constants this architecture's toolchains use
// (spec.md §4.D's x86 relocation row names IMAGE_REL_I386_DIR32 by name).
const (
	RelocNone         object.RelocKind = 0
	RelocI386Dir32    object.RelocKind = 0x0006 // COFF IMAGE_REL_I386_DIR32
	RelocI386Dir32NB  object.RelocKind = 0x0007 // COFF IMAGE_REL_I386_DIR32NB
	RelocI386Rel32    object.RelocKind = 0x0014 // COFF IMAGE_REL_I386_REL32
	RelocELF386_32    object.RelocKind = 0x1001 // R_386_32 plus 0x1000 (added by the ELF loader) to stay apart from the COFF numbers
	RelocELF386_PC32  object.RelocKind = 0x1002 // R_386_PC32
	RelocELFX64_64    object.RelocKind = 0x2001 // R_X86_64_64
	RelocELFX64_PC32  object.RelocKind = 0x2002 // R_X86_64_PC32
	RelocELFX64_32    object.RelocKind = 0x200A // R_X86_64_32
	RelocELFX64_32S   object.RelocKind = 0x200B // R_X86_64_32S
)

var relocNames = map[object.RelocKind]string{
	RelocNone:        "R_NONE",
	RelocI386Dir32:   "IMAGE_REL_I386_DIR32",
	RelocI386Dir32NB: "IMAGE_REL_I386_DIR32NB",
	RelocI386Rel32:   "IMAGE_REL_I386_REL32",
	RelocELF386_32:   "R_386_32",
	RelocELF386_PC32: "R_386_PC32",
	RelocELFX64_64:   "R_X86_64_64",
	RelocELFX64_PC32: "R_X86_64_PC32",
	RelocELFX64_32:   "R_X86_64_32",
	RelocELFX64_32S:  "R_X86_64_32S",
}

func relocName(k object.RelocKind) string {
	if n, ok := relocNames[k]; ok {
		return n
	}
	return "R_UNKNOWN"
}

// isBranchReloc reports whether flags is a PC-relative call/jmp
// displacement relocation, which replaces the entire displacement slot
// rather than being matched against get_constant_offsets (spec.md §4.D).
func isBranchReloc(k object.RelocKind) bool {
	switch k {
	case RelocI386Rel32, RelocELF386_PC32, RelocELFX64_PC32:
		return true
	}
	return false
}

func dataRelocSize(k object.RelocKind) int {
	switch k {
	case RelocELFX64_64:
		return 8
	default:
		return 4
	}
}
