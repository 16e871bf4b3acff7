package ppc

import "github.com/objdiffgo/objdiff/pkg/object"

// Relocation kinds, numbered the same as the real ELF R_PPC_* constants
// (binutils include/elf/powerpc.h) so RelocName's output is the literal
// identifier spec.md §6 requires ("stable uppercase identifiers").
const (
	RelocNone       object.RelocKind = 0
	RelocAddr32     object.RelocKind = 1
	RelocAddr24     object.RelocKind = 2
	RelocAddr16     object.RelocKind = 3
	RelocAddr16Lo   object.RelocKind = 4
	RelocAddr16Hi   object.RelocKind = 5
	RelocAddr16Ha   object.RelocKind = 6
	RelocRel24      object.RelocKind = 10
	RelocRel14      object.RelocKind = 11
	RelocSDAREL     object.RelocKind = 32
	RelocEMBSDA21   object.RelocKind = 109
	RelocEMBRELSDA  object.RelocKind = 116
)

var relocNames = map[object.RelocKind]string{
	RelocNone:      "R_PPC_NONE",
	RelocAddr32:    "R_PPC_ADDR32",
	RelocAddr24:    "R_PPC_ADDR24",
	RelocAddr16:    "R_PPC_ADDR16",
	RelocAddr16Lo:  "R_PPC_ADDR16_LO",
	RelocAddr16Hi:  "R_PPC_ADDR16_HI",
	RelocAddr16Ha:  "R_PPC_ADDR16_HA",
	RelocRel24:     "R_PPC_REL24",
	RelocRel14:     "R_PPC_REL14",
	RelocSDAREL:    "R_PPC_SDAREL16",
	RelocEMBSDA21:  "R_PPC_EMB_SDA21",
	RelocEMBRELSDA: "R_PPC_EMB_RELSDA",
}

func relocName(k object.RelocKind) string {
	return relocNames[k]
}

// dataRelocSize returns the byte width a data relocation of this kind
// covers (component G splicing). PowerPC data relocations this disasm
// ever emits are either word (32-bit) or halfword (16-bit) pointers.
func dataRelocSize(k object.RelocKind) int {
	switch k {
	case RelocAddr16, RelocAddr16Lo, RelocAddr16Hi, RelocAddr16Ha, RelocSDAREL:
		return 2
	default:
		return 4
	}
}
