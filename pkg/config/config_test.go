package config

import (
	"testing"

	"github.com/objdiffgo/objdiff/pkg/align"
	"github.com/objdiffgo/objdiff/pkg/arch"
	"github.com/stretchr/testify/require"
)

func TestParseX86Formatter(t *testing.T) {
	require.Equal(t, arch.X86FormatterIntel, parseX86Formatter(""))
	require.Equal(t, arch.X86FormatterGas, parseX86Formatter("GAS"))
	require.Equal(t, arch.X86FormatterNasm, parseX86Formatter("nasm"))
	require.Equal(t, arch.X86FormatterMasm, parseX86Formatter("masm"))
}

func TestParseMipsABI(t *testing.T) {
	require.Equal(t, arch.MipsABIAuto, parseMipsABI("bogus"))
	require.Equal(t, arch.MipsABIO32, parseMipsABI("o32"))
	require.Equal(t, arch.MipsABIN64, parseMipsABI("N64"))
}

func TestParseMipsInstrCategory(t *testing.T) {
	require.Equal(t, arch.MipsInstrCategoryR5900, parseMipsInstrCategory("r5900"))
	require.Equal(t, arch.MipsInstrCategoryAuto, parseMipsInstrCategory(""))
}

func TestParseArmArchVersion(t *testing.T) {
	require.Equal(t, arch.ArmArchVersionV8, parseArmArchVersion("v8"))
	require.Equal(t, arch.ArmArchVersionAuto, parseArmArchVersion("unknown"))
}

func TestParseArmR9Usage(t *testing.T) {
	require.Equal(t, arch.ArmR9UsageSB, parseArmR9Usage("sb"))
	require.Equal(t, arch.ArmR9UsageTR, parseArmR9Usage("tr"))
	require.Equal(t, arch.ArmR9UsageGPR, parseArmR9Usage(""))
}

func TestParseAlgorithm(t *testing.T) {
	require.Equal(t, align.AlgorithmLevenshtein, parseAlgorithm(""))
	require.Equal(t, align.AlgorithmLCS, parseAlgorithm("lcs"))
	require.Equal(t, align.AlgorithmMyers, parseAlgorithm("Myers"))
	require.Equal(t, align.AlgorithmPatience, parseAlgorithm("patience"))
}
