package display

import (
	"testing"

	"github.com/objdiffgo/objdiff/pkg/arch"
	"github.com/objdiffgo/objdiff/pkg/diff"
	"github.com/objdiffgo/objdiff/pkg/object"
	"github.com/objdiffgo/objdiff/pkg/object/instr"
	"github.com/stretchr/testify/require"
)

// fakeArch is a minimal arch.Arch stand-in so the projector's own logic
// (reloc-suffix expansion, separator collapsing, data-flow annotation)
// can be exercised without depending on a real decoder.
type fakeArch struct {
	dfa arch.DataFlowAnalyzer
}

func (fakeArch) Kind() object.ArchKind { return object.ArchPowerPC }
func (fakeArch) ScanInstructions(uint64, []byte, int, []object.Relocation, arch.Config) []instr.InstructionRef {
	return nil
}
func (fakeArch) ProcessInstruction(instr.InstructionRef, []byte, *object.ResolvedRelocation, arch.FunctionRange, int, arch.Config) (instr.ParsedInstruction, error) {
	return instr.ParsedInstruction{}, nil
}
func (fakeArch) DisplayInstruction(parsed instr.ParsedInstruction, cfg arch.Config, emit instr.EmitFunc) {
	emit(instr.OpcodePart(parsed.Mnemonic, 0))
	for i, a := range parsed.Args {
		emit(instr.SeparatorPart(","))
		emit(instr.SeparatorPart(",")) // deliberately doubled, to test collapsing
		switch a.Kind {
		case instr.ArgReloc:
			emit(instr.RelocArgPart(a))
		default:
			emit(instr.ArgPart(a))
		}
		_ = i
	}
}
func (fakeArch) ImplicitAddend([]byte, *object.Section, uint64, object.Relocation) (int64, error) {
	return 0, nil
}
func (fakeArch) RelocName(flags object.RelocKind) string {
	switch flags {
	case 5:
		return "R_PPC_ADDR16_HA"
	case 6:
		return "R_PPC_ADDR16_LO"
	}
	return ""
}
func (fakeArch) DataRelocSize(object.RelocKind) int { return 4 }
func (fakeArch) Demangle(string) string             { return "" }
func (fakeArch) MinInstructionSize() int            { return 4 }
func (f fakeArch) DataFlowAnalysis() arch.DataFlowAnalyzer { return f.dfa }
func (fakeArch) PoolRelocationGenerator() arch.PoolRelocationGenerator { return nil }

type fakeDFA struct{}

func (fakeDFA) AnnotateRegister(address uint64, register string) (string, bool) {
	if register == "r3" {
		return "0x10", true
	}
	return "", false
}

func collectTexts(parts *[]instr.Part) instr.EmitFunc {
	return func(p instr.Part) { *parts = append(*parts, p) }
}

func TestRelocSuffixExpansion(t *testing.T) {
	a := fakeArch{}
	parsed := instr.ParsedInstruction{
		Mnemonic: "addi",
		Args: []instr.InstructionArg{
			instr.OpaqueArg("r3"),
			instr.ResolvedRelocationArg(0, object.Relocation{Flags: 5}, &object.Symbol{Name: "g_pool"}),
		},
	}
	var parts []instr.Part
	ProjectInstruction(a, InstructionSide{Parsed: &parsed}, Config{}, collectTexts(&parts))

	var texts []string
	for _, p := range parts {
		if p.Kind != instr.PartSeparator {
			texts = append(texts, p.Text)
		}
	}
	require.Equal(t, []string{"addi", "r3", "", "@ha"}, texts)
}

func TestFakeRelocAngleBrackets(t *testing.T) {
	a := fakeArch{}
	parsed := instr.ParsedInstruction{
		Mnemonic: "lwz",
		Args: []instr.InstructionArg{
			instr.ResolvedRelocationArg(0, object.Relocation{Flags: object.RelocNone}, &object.Symbol{Name: "g_table"}),
		},
	}
	var parts []instr.Part
	ProjectInstruction(a, InstructionSide{Parsed: &parsed}, Config{}, collectTexts(&parts))
	require.Equal(t, "<g_table>", parts[len(parts)-1].Text)
}

func TestSeparatorCollapsing(t *testing.T) {
	a := fakeArch{}
	parsed := instr.ParsedInstruction{Mnemonic: "mov", Args: []instr.InstructionArg{instr.OpaqueArg("r0")}}

	var uncollapsed []instr.Part
	ProjectInstruction(a, InstructionSide{Parsed: &parsed}, Config{}, collectTexts(&uncollapsed))
	sepCount := 0
	for _, p := range uncollapsed {
		if p.Kind == instr.PartSeparator {
			sepCount++
		}
	}
	require.Equal(t, 2, sepCount)

	var collapsed []instr.Part
	ProjectInstruction(a, InstructionSide{Parsed: &parsed}, Config{CollapseSeparators: true}, collectTexts(&collapsed))
	sepCount = 0
	for _, p := range collapsed {
		if p.Kind == instr.PartSeparator {
			sepCount++
		}
	}
	require.Equal(t, 1, sepCount)
}

func TestDataFlowAnnotation(t *testing.T) {
	a := fakeArch{dfa: fakeDFA{}}
	parsed := instr.ParsedInstruction{Mnemonic: "mr", Args: []instr.InstructionArg{instr.OpaqueArg("r3")}}
	ref := instr.InstructionRef{Address: 0x100}
	var parts []instr.Part
	cfg := Config{Config: arch.Config{ShowDataFlow: true}}
	ProjectInstruction(a, SideOf(diff.InstructionDiffRow{Ref: &ref, Parsed: &parsed}), cfg, collectTexts(&parts))

	var texts []string
	for _, p := range parts {
		texts = append(texts, p.Text)
	}
	require.Contains(t, texts, "{0x10}")
}

func TestOriginalFormSuffix(t *testing.T) {
	a := fakeArch{}
	parsed := instr.ParsedInstruction{Mnemonic: "mr", MnemonicOriginal: "or"}
	var parts []instr.Part
	ProjectInstruction(a, InstructionSide{Parsed: &parsed}, Config{ShowOriginalForm: true}, collectTexts(&parts))
	require.Equal(t, " (or)", parts[len(parts)-1].Text)
}

func TestNilParsedEmitsNothing(t *testing.T) {
	a := fakeArch{}
	var parts []instr.Part
	ProjectInstruction(a, InstructionSide{}, Config{}, collectTexts(&parts))
	require.Empty(t, parts)
}

func TestProjectDataRow(t *testing.T) {
	row := diff.DataDiffRow{Bytes: []byte{0xDE, 0xAD}, Kind: diff.DataReplace, Length: 2}
	var parts []instr.Part
	ProjectDataRow(row, collectTexts(&parts))
	var texts []string
	for _, p := range parts {
		if p.Kind != instr.PartSeparator {
			texts = append(texts, p.Text)
		}
	}
	require.Equal(t, []string{"de", "ad", "~"}, texts)
}
