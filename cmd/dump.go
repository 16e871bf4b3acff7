package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/objdiffgo/objdiff/pkg/arch"
	"github.com/objdiffgo/objdiff/pkg/object"
	"github.com/objdiffgo/objdiff/pkg/object/instr"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <object.o>",
	Short: "Disassemble one object file without diffing it",
	Long: `dump scans and disassembles every code symbol in a single object file,
printing its canonical mnemonic form the same way the left/right columns
of "objdiff diff" would — useful for inspecting how a reimplementation's
build is being decoded before comparing it against anything.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func runDump(cmd *cobra.Command, args []string) error {
	opts, err := loadOptions()
	if err != nil {
		return err
	}

	obj, err := loadObject(args[0])
	if err != nil {
		return err
	}

	a, ok := arch.For(obj.Arch)
	if !ok {
		return fmt.Errorf("dump: unsupported architecture %v", obj.Arch)
	}

	order := make([]int, 0, len(obj.Symbols))
	for i := range obj.Symbols {
		order = append(order, i)
	}
	sort.Slice(order, func(i, j int) bool { return obj.Symbols[order[i]].Address < obj.Symbols[order[j]].Address })

	bold := color.New(color.Bold)
	for _, idx := range order {
		sym := &obj.Symbols[idx]
		sec := obj.SectionAt(sym.Section)
		if sec == nil || sec.Kind != object.SectionCode {
			continue
		}

		bold.Printf("%s", sym.DisplayName())
		fmt.Printf("  @ %s\n", formatHex(sym.Address, 8))

		size := sym.Size
		if size == 0 {
			size = 1
		}
		start := sym.Address - sec.Address
		end := start + size
		if end > uint64(len(sec.Data)) {
			end = uint64(len(sec.Data))
		}
		if start > end {
			continue
		}
		code := sec.Data[start:end]
		relocs := relocsInSection(sec, sym.Address, sym.Address+size)

		refs := a.ScanInstructions(sym.Address, code, sym.Section, relocs, opts.Arch)
		for _, ref := range refs {
			off := ref.Address - sym.Address
			if int(off)+int(ref.SizeBytes) > len(code) {
				break
			}

			var resolved *object.ResolvedRelocation
			for _, r := range relocs {
				if r.Address == ref.Address {
					rr := obj.Resolve(r)
					resolved = &rr
					break
				}
			}

			parsed, err := a.ProcessInstruction(ref, code[off:off+uint64(ref.SizeBytes)], resolved, arch.FunctionRange{Start: sym.Address, End: sym.Address + size}, sym.Section, opts.Arch)
			if err != nil {
				fmt.Printf("  %s  <decode error: %v>\n", formatHex(ref.Address, 8), err)
				continue
			}

			var sb []byte
			a.DisplayInstruction(parsed, opts.Display, func(p instr.Part) {
				sb = append(sb, []byte(partText(p))...)
			})
			fmt.Printf("  %s  %s\n", colorAddr.Sprintf("%s", formatHex(ref.Address, 8)), string(sb))
		}
		fmt.Println()
	}
	return nil
}

func relocsInSection(sec *object.Section, start, end uint64) []object.Relocation {
	var out []object.Relocation
	for _, r := range sec.Relocations {
		if r.Address >= start && r.Address < end {
			out = append(out, r)
		}
	}
	return out
}
