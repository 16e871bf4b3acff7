package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/objdiffgo/objdiff/pkg/arch"
	"github.com/objdiffgo/objdiff/pkg/diff"
	"github.com/objdiffgo/objdiff/pkg/display"
	"github.com/objdiffgo/objdiff/pkg/object/instr"
	"github.com/objdiffgo/objdiff/pkg/utils"
)

// Terminal colours for diff rows, grounded on cmd/cpu/debug.go's palette
// of package-level *color.Color values keyed by semantic role (address,
// instruction, value, error...) rather than ad hoc fmt.Printf escapes.
var (
	colorAddr    = color.New(color.FgCyan)
	colorOpcode  = color.New(color.FgYellow)
	colorMatch   = color.New(color.FgGreen, color.Bold)
	colorMismach = color.New(color.FgRed, color.Bold)
	colorInsert  = color.New(color.FgGreen)
	colorDelete  = color.New(color.FgRed)
	colorDim     = color.New(color.FgHiBlack)
)

// displayConfigAlias names display.Config for callers (cmd/view.go) that
// want to avoid importing pkg/display just for the parameter type.
type displayConfigAlias = display.Config

// instructionText projects one side of an InstructionDiffRow through the
// architecture's own DisplayInstruction and returns the plain-text
// rendering, with no colour escapes — the shared core both renderRow
// (ANSI, for "diff"/"explore") and renderRowPlain (tview markup, for
// "view") build on.
func instructionText(a arch.Arch, row diff.InstructionDiffRow, cfg display.Config) string {
	if row.Parsed == nil {
		return ""
	}
	var sb strings.Builder
	display.ProjectInstruction(a, display.SideOf(row), cfg, func(p instr.Part) {
		sb.WriteString(partText(p))
	})
	return sb.String()
}

// renderRow formats one side of an InstructionDiffRow: "<addr>  <mnemonic operands...>".
// An empty side (Insert/Delete's missing half) renders as a dimmed placeholder.
func renderRow(a arch.Arch, row diff.InstructionDiffRow, cfg display.Config) string {
	if row.Ref == nil {
		return colorDim.Sprint("   --")
	}

	addr := colorAddr.Sprintf("%08x", row.Ref.Address)
	body := instructionText(a, row, cfg)
	if rowIsMismatch(row.Kind) {
		body = colorMismach.Sprint(body)
	}
	return addr + "  " + body
}

// plainInstructionText is instructionText's caption for view.go's tview
// rendering path, named separately so the two call sites read clearly
// about which renderer they feed.
func plainInstructionText(a arch.Arch, row diff.InstructionDiffRow, cfg display.Config) string {
	return instructionText(a, row, cfg)
}

func rowIsMismatch(k diff.RowKind) bool {
	switch k {
	case diff.KindReplace, diff.KindOpMismatch, diff.KindArgMismatch, diff.KindInsert, diff.KindDelete:
		return true
	default:
		return false
	}
}

// partText renders one display.Part as plain text. Reloc/BranchDest
// parts carry their payload in typed fields rather than Text (see
// pkg/object/instr's Part doc), so this switch is the one place a CLI
// renderer needs to know how to turn each Kind into a string.
func partText(p instr.Part) string {
	switch p.Kind {
	case instr.PartReloc:
		if p.Reloc.TargetName != "" {
			return p.Reloc.TargetName
		}
		return fmt.Sprintf("0x%x", p.Reloc.TargetAddress)
	case instr.PartBranchDest:
		return p.Text
	default:
		return p.Text
	}
}

// formatMatchPercent colours a match percentage green/yellow/red by how
// close it is to 100%.
func formatMatchPercent(pct float64) string {
	switch {
	case pct >= 100.0:
		return colorMatch.Sprintf("%.2f%%", pct)
	case pct >= 50.0:
		return color.New(color.FgYellow).Sprintf("%.2f%%", pct)
	default:
		return colorMismach.Sprintf("%.2f%%", pct)
	}
}

// symbolNames projects items to their names via pkg/utils.Map, in the
// input order; the result is not sorted.
func symbolNames[T any](items []T, name func(T) string) []string {
	return utils.Map(items, name)
}

// formatHex renders a fixed-width hex address using the teacher's
// pkg/utils.FormatUintHex helper (originally built for register/memory
// dumps, equally at home formatting a symbol's load address here).
func formatHex(v uint64, digits int) string {
	return utils.FormatUintHex(v, digits)
}
