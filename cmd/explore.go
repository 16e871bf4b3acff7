package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/objdiffgo/objdiff/pkg/arch"
	"github.com/objdiffgo/objdiff/pkg/diff"
	"github.com/objdiffgo/objdiff/pkg/object"
	"github.com/objdiffgo/objdiff/pkg/objdiffapi"
	"github.com/objdiffgo/objdiff/pkg/utils"
	"github.com/spf13/cobra"
)

var exploreCmd = &cobra.Command{
	Use:   "explore <target.o> <base.o>",
	Short: "Interactively query a two-object diff from a REPL",
	Long: `explore runs the diff pipeline once and then drops into a small
read-eval-print loop for querying the result: list matched symbols,
show one symbol's diff, or jump straight to its match percentage. The
REPL-over-backend split mirrors the teacher's debugger/controller.go,
built on the same chzyer/readline prompt library, adapted here to query
a static diff result instead of stepping a running CPU.`,
	Args: cobra.ExactArgs(2),
	RunE: runExplore,
}

func runExplore(cmd *cobra.Command, args []string) error {
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

	names := utils.Keys(symbolIndexByName(left, result))
	sort.Strings(names)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "objdiff> ",
		AutoComplete:    readline.NewPrefixCompleter(completerItems(names)...),
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	leftArch, _ := arch.For(left.Arch)
	rightArch, _ := arch.For(right.Arch)

	fmt.Fprintf(rl.Stderr(), "objdiff explore — %d matched symbols. Type 'help' for commands.\n", len(result.Symbols))

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "help":
			printExploreHelp(rl.Stdout())
		case "quit", "exit":
			return nil
		case "list":
			for _, n := range names {
				idx := symbolIndexByName(left, result)[n]
				fmt.Fprintf(rl.Stdout(), "%6.2f%%  %s\n", result.Symbols[idx].MatchPercent, n)
			}
		case "percent":
			fmt.Fprintf(rl.Stdout(), "overall: %.2f%%\n", result.OverallMatchPercent)
		case "show":
			if len(fields) < 2 {
				fmt.Fprintln(rl.Stderr(), "usage: show <symbol-name>")
				continue
			}
			showSymbol(rl, left, leftArch, rightArch, result, strings.Join(fields[1:], " "), opts.Display)
		default:
			fmt.Fprintf(rl.Stderr(), "unknown command %q (try 'help')\n", fields[0])
		}
	}
}

func printExploreHelp(w io.Writer) {
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  list            list every matched symbol with its match percentage")
	fmt.Fprintln(w, "  show <symbol>   print the two-column diff for one symbol")
	fmt.Fprintln(w, "  percent         print the overall object match percentage")
	fmt.Fprintln(w, "  quit            exit")
}

func symbolIndexByName(left *object.Object, result *diff.ObjectDiff) map[string]int {
	out := make(map[string]int, len(result.Symbols))
	for i := range result.Symbols {
		out[left.Symbols[i].DisplayName()] = i
	}
	return out
}

func showSymbol(rl *readline.Instance, left *object.Object, leftArch, rightArch arch.Arch, result *diff.ObjectDiff, name string, dcfg displayConfigAlias) {
	idx, ok := symbolIndexByName(left, result)[name]
	if !ok {
		fmt.Fprintf(rl.Stderr(), "no matched symbol named %q\n", name)
		return
	}
	sd := result.Symbols[idx]
	fmt.Fprintf(rl.Stdout(), "%s  %s\n", name, formatMatchPercent(sd.MatchPercent))
	if sd.Err != nil {
		fmt.Fprintf(rl.Stdout(), "  error: %v\n", sd.Err)
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
		fmt.Fprintf(rl.Stdout(), "  %-50s | %s\n", renderRow(leftArch, lr, dcfg), renderRow(rightArch, rr, dcfg))
	}
}

func completerItems(names []string) []readline.PrefixCompleterInterface {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("help"),
		readline.PcItem("list"),
		readline.PcItem("percent"),
		readline.PcItem("quit"),
		readline.PcItem("show", pcItemsFor(names)...),
	}
	return items
}

func pcItemsFor(names []string) []readline.PrefixCompleterInterface {
	out := make([]readline.PrefixCompleterInterface, 0, len(names))
	for _, n := range names {
		out = append(out, readline.PcItem(n))
	}
	return out
}
