package arm64

import "github.com/objdiffgo/objdiff/pkg/object"

// Relocation kind numbers mirror the real ELF AArch64 ABI's R_AARCH64_*
// constants (spec.md §4.D's ARM64 relocation table).
const (
	RelocNone            object.RelocKind = 0
	RelocAbs64           object.RelocKind = 257
	RelocAdrPrelPgHi21   object.RelocKind = 275
	RelocAddAbsLo12NC    object.RelocKind = 277
	RelocLdst32AbsLo12NC object.RelocKind = 285
	RelocLdst64AbsLo12NC object.RelocKind = 286
	RelocJump26          object.RelocKind = 282
	RelocCall26          object.RelocKind = 283
	RelocAdrGotPage      object.RelocKind = 311
	RelocLd64GotLo12NC   object.RelocKind = 313
)

var relocNames = map[object.RelocKind]string{
	RelocNone:            "R_AARCH64_NONE",
	RelocAbs64:           "R_AARCH64_ABS64",
	RelocAdrPrelPgHi21:   "R_AARCH64_ADR_PREL_PG_HI21",
	RelocAddAbsLo12NC:    "R_AARCH64_ADD_ABS_LO12_NC",
	RelocLdst32AbsLo12NC: "R_AARCH64_LDST32_ABS_LO12_NC",
	RelocLdst64AbsLo12NC: "R_AARCH64_LDST64_ABS_LO12_NC",
	RelocJump26:          "R_AARCH64_JUMP26",
	RelocCall26:          "R_AARCH64_CALL26",
	RelocAdrGotPage:      "R_AARCH64_ADR_GOT_PAGE",
	RelocLd64GotLo12NC:   "R_AARCH64_LD64_GOT_LO12_NC",
}

func relocName(k object.RelocKind) string {
	if n, ok := relocNames[k]; ok {
		return n
	}
	return "R_AARCH64_UNKNOWN"
}

func dataRelocSize(k object.RelocKind) int {
	switch k {
	case RelocAbs64, RelocLdst64AbsLo12NC, RelocLd64GotLo12NC:
		return 8
	default:
		return 4
	}
}
