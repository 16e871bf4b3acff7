package mips

import "github.com/objdiffgo/objdiff/pkg/object"

// Relocation kind numbers mirror the real ELF R_MIPS_* constants
// (spec.md §4.D's MIPS row: HI16/LO16 pairing, 26-bit jump targets).
const (
	RelocNone  object.RelocKind = 0
	Reloc16    object.RelocKind = 1
	Reloc32    object.RelocKind = 2
	RelocRel32 object.RelocKind = 3
	Reloc26    object.RelocKind = 4
	RelocHi16  object.RelocKind = 5
	RelocLo16  object.RelocKind = 6
	RelocGprel object.RelocKind = 7
)

var relocNames = map[object.RelocKind]string{
	RelocNone:  "R_MIPS_NONE",
	Reloc16:    "R_MIPS_16",
	Reloc32:    "R_MIPS_32",
	RelocRel32: "R_MIPS_REL32",
	Reloc26:    "R_MIPS_26",
	RelocHi16:  "R_MIPS_HI16",
	RelocLo16:  "R_MIPS_LO16",
	RelocGprel: "R_MIPS_GPREL16",
}

func relocName(k object.RelocKind) string {
	if n, ok := relocNames[k]; ok {
		return n
	}
	return "R_UNKNOWN"
}

func dataRelocSize(k object.RelocKind) int {
	if k == Reloc32 || k == RelocRel32 {
		return 4
	}
	return 4
}
