package arm

import "github.com/objdiffgo/objdiff/pkg/object"

// Relocation kind numbers mirror the real ELF R_ARM_* constants
// (spec.md §4.D's ARM row: PC24-style branch relocations and ABS32 data
// relocations).
const (
	RelocNone  object.RelocKind = 0
	RelocAbs32 object.RelocKind = 2
	RelocPc24  object.RelocKind = 1
	RelocCall  object.RelocKind = 28
	RelocJump24 object.RelocKind = 29
)

var relocNames = map[object.RelocKind]string{
	RelocNone:   "R_ARM_NONE",
	RelocPc24:   "R_ARM_PC24",
	RelocAbs32:  "R_ARM_ABS32",
	RelocCall:   "R_ARM_CALL",
	RelocJump24: "R_ARM_JUMP24",
}

func relocName(k object.RelocKind) string {
	if n, ok := relocNames[k]; ok {
		return n
	}
	return "R_UNKNOWN"
}

func dataRelocSize(k object.RelocKind) int { return 4 }

func isBranchReloc(k object.RelocKind) bool {
	switch k {
	case RelocPc24, RelocCall, RelocJump24:
		return true
	}
	return false
}
