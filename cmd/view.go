package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/gdamore/tcell/v2"
	"github.com/objdiffgo/objdiff/pkg/arch"
	"github.com/objdiffgo/objdiff/pkg/diff"
	"github.com/objdiffgo/objdiff/pkg/object"
	"github.com/objdiffgo/objdiff/pkg/objdiffapi"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"
)

var viewCmd = &cobra.Command{
	Use:   "view <target.o> <base.o>",
	Short: "Browse a two-object diff interactively",
	Long: `view runs the same pipeline as "objdiff diff" but renders the result as
an interactive terminal UI: a scrollable list of matched symbols on the
left, and the selected symbol's two-column instruction/byte diff on the
right. Use the arrow keys to move the selection and 'q' to quit.`,
	Args: cobra.ExactArgs(2),
	RunE: runView,
}

func runView(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions()
	if err != nil {
		return err
	}

	left, err := loadObject(args[0])
	if err != nil {
		return err
	}
	right, err := loadObject(args[1])
	if err != nil {
		return err
	}

	result, err := objdiffapi.Diff(left, right, objdiffapi.Options{Arch: opts.Arch, Align: opts.Align})
	if err != nil {
		return err
	}

	return runViewApp(left, right, result, opts.Display)
}

// runViewApp builds the tview widget tree: a symbol list on the left, a
// diff TextView on the right, inside a Flex layout. This is the one
// place in objdiff that genuinely drives rivo/tview + gdamore/tcell —
// the teacher declares both as direct dependencies but never builds a
// screen with them; the event-loop/redraw-on-selection shape below
// mirrors the App/SetRoot/SetFocus pattern the teacher's own
// pkg/hw/cpu/debugger/backend.go used for its (execution) debugger
// screen, adapted here to a read-only diff browser instead of a live
// CPU state view.
func runViewApp(left, right *object.Object, result *diff.ObjectDiff, dcfg displayConfigAlias) error {
	idxs := make([]int, 0, len(result.Symbols))
	for i := range result.Symbols {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)

	leftArch, _ := arch.For(left.Arch)
	rightArch, _ := arch.For(right.Arch)

	app := tview.NewApplication()
	list := tview.NewList().ShowSecondaryText(false)
	detail := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	detail.SetBorder(true).SetTitle(" diff ")
	list.SetBorder(true).SetTitle(" symbols ")

	render := func(idx int) {
		detail.Clear()
		sd := result.Symbols[idx]
		sym := &left.Symbols[idx]
		fmt.Fprintf(detail, "[::b]%s[::-]  %s\n\n", tview.Escape(sym.DisplayName()), formatMatchPercent(sd.MatchPercent))
		if sd.Err != nil {
			fmt.Fprintf(detail, "[red]error: %v[-]\n", sd.Err)
			return
		}
		n := len(sd.Left)
		if len(sd.Right) > n {
			n = len(sd.Right)
		}
		for i := 0; i < n; i++ {
			var lr, rr diff.InstructionDiffRow
			if i < len(sd.Left) {
				lr = sd.Left[i]
			}
			if i < len(sd.Right) {
				rr = sd.Right[i]
			}
			fmt.Fprintf(detail, "%-50s | %s\n", tview.Escape(renderRowPlain(leftArch, lr, dcfg)), tview.Escape(renderRowPlain(rightArch, rr, dcfg)))
		}
	}

	for _, i := range idxs {
		sym := &left.Symbols[i]
		idxCopy := i
		list.AddItem(fmt.Sprintf("%6.2f%%  %s", result.Symbols[i].MatchPercent, sym.DisplayName()), "", 0, func() { render(idxCopy) })
	}
	if len(idxs) > 0 {
		render(idxs[0])
	}

	flex := tview.NewFlex().
		AddItem(list, 0, 1, true).
		AddItem(detail, 0, 3, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})

	if err := app.SetRoot(flex, true).SetFocus(list).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "objdiff view:", err)
		return err
	}
	return nil
}

// renderRowPlain is renderRow without fatih/color escape codes — tview
// uses its own "[color]...[-]" markup, so ANSI escapes from the plain
// CLI renderer would show up as garbage inside a TextView.
func renderRowPlain(a arch.Arch, row diff.InstructionDiffRow, cfg displayConfigAlias) string {
	if row.Ref == nil {
		return "   --"
	}
	return fmt.Sprintf("%08x  %s", row.Ref.Address, plainInstructionText(a, row, cfg))
}
