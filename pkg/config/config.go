// Package config loads the full option set spec.md §6 exposes (the
// diffing/display toggles and every per-architecture knob) into the
// typed arch.Config/display.Config/align.Options values the rest of the
// pipeline consumes. It follows the teacher's cmd/root.go convention
// exactly: viper reads a YAML config file plus environment variable
// overrides, and cobra flags bind on top — there is no separate ad hoc
// flag-parsing layer, the same "one config source of truth" shape
// initConfig establishes for the CPU-emulator CLI.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/objdiffgo/objdiff/pkg/align"
	"github.com/objdiffgo/objdiff/pkg/arch"
	"github.com/objdiffgo/objdiff/pkg/display"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment variable overrides the same way the
// teacher's AutomaticEnv call relies on Go's flag/viper key matching,
// just scoped to this tool instead of being global (spec.md §6 names no
// required prefix, but an unscoped AutomaticEnv would collide with any
// other OBJDIFF_* tool sharing the shell environment).
const EnvPrefix = "OBJDIFF"

// ConfigName is the bare (no extension) file name viper searches for in
// the config path, mirroring the teacher's cmd/root.go ".cucaracha" convention.
const ConfigName = ".objdiff"

// Options is the fully resolved configuration the diff pipeline and
// display projector consume, assembled from defaults, a YAML config
// file, environment variables and CLI flags, in that increasing order
// of precedence (viper's own precedence rules).
type Options struct {
	Arch    arch.Config
	Display display.Config
	Align   align.Options

	RelaxRelocDiffs bool
}

// Init registers the package's persistent flags on cmd and binds each
// to its viper key and default. It loads nothing itself: reading the
// config file and environment is left to Load, called at run time — the
// same split the teacher's cmd/root.go uses between init() (flag
// registration) and initConfig() (deferred, run-time config load).
func Init(cmd *cobra.Command, cfgFile *string) {
	cmd.PersistentFlags().StringVar(cfgFile, "config", "", fmt.Sprintf("config file (default is $HOME/%s.yaml)", ConfigName))

	bindBoolFlag(cmd, "relax-reloc-diffs", "relax_reloc_diffs", false, "treat data relocations with matching target names but differing addends/flags as equal (instruction relocation operands are compared without relaxation)")
	bindBoolFlag(cmd, "space-between-args", "space_between_args", false, "insert a space after each operand separator")
	bindBoolFlag(cmd, "combine-data-sections", "combine_data_sections", false, "stored in the configuration only; no diff step reads it, so data sections are not merged")
	bindBoolFlag(cmd, "show-data-flow", "show_data_flow", false, "annotate register operands with their last-known dataflow value")
	bindBoolFlag(cmd, "show-original-form", "show_original_form", false, "show the pre-simplification mnemonic alongside the canonical one")
	bindBoolFlag(cmd, "collapse-separators", "collapse_separators", false, "collapse runs of redundant operand separators")

	bindStringFlag(cmd, "x86-formatter", "x86_formatter", "intel", "x86/x86-64 disassembly syntax: intel, gas, nasm, masm")
	bindStringFlag(cmd, "mips-abi", "mips_abi", "auto", "MIPS ABI: auto, o32, n32, n64")
	bindStringFlag(cmd, "mips-instr-category", "mips_instr_category", "auto", "MIPS instruction category: auto, cpu, rsp, r3000gte, r4000allegrex, r5900")
	bindStringFlag(cmd, "arm-arch-version", "arm_arch_version", "auto", "ARM architecture version: auto, v4t, v5te, v6, v6k, v6t2, v7, v8")
	bindBoolFlag(cmd, "arm-unified-syntax", "arm_unified_syntax", true, "use ARM unified assembler syntax")
	bindBoolFlag(cmd, "arm-av-registers", "arm_av_registers", false, "name ARM r0-r3/r12 using their AAPCS argument/IP aliases")
	bindStringFlag(cmd, "arm-r9-usage", "arm_r9_usage", "gpr", "ARM r9 role: gpr, sb, tr")
	bindBoolFlag(cmd, "arm-sl-usage", "arm_sl_usage", false, "name ARM r10 as sl")
	bindBoolFlag(cmd, "arm-fp-usage", "arm_fp_usage", false, "name ARM r11 as fp")
	bindBoolFlag(cmd, "arm-ip-usage", "arm_ip_usage", false, "name ARM r12 as ip")

	bindStringFlag(cmd, "algorithm", "algorithm", "levenshtein", "sequence alignment algorithm: levenshtein, lcs, myers, patience")
}

func bindBoolFlag(cmd *cobra.Command, flag, key string, def bool, usage string) {
	cmd.PersistentFlags().Bool(flag, def, usage)
	viper.SetDefault(key, def)
	_ = viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag))
}

func bindStringFlag(cmd *cobra.Command, flag, key, def, usage string) {
	cmd.PersistentFlags().String(flag, def, usage)
	viper.SetDefault(key, def)
	_ = viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag))
}

// Load reads the config file (if any) and environment variables, same
// as the teacher's cmd/root.go initConfig, then materializes Options from whatever
// viper resolved. Call once per process, after flags have been parsed
// (cobra's PreRun or OnInitialize), mirroring the teacher's own deferred
// initConfig call.
func Load(cfgFile string) (Options, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return Options{}, err
		}
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(ConfigName)
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Options{}, err
		}
	}

	return fromViper(), nil
}

func fromViper() Options {
	opts := Options{
		RelaxRelocDiffs: viper.GetBool("relax_reloc_diffs"),
	}

	opts.Arch = arch.Config{
		RelaxRelocDiffs:     viper.GetBool("relax_reloc_diffs"),
		SpaceBetweenArgs:    viper.GetBool("space_between_args"),
		CombineDataSections: viper.GetBool("combine_data_sections"),
		ShowDataFlow:        viper.GetBool("show_data_flow"),

		X86Formatter: parseX86Formatter(viper.GetString("x86_formatter")),

		MipsABI:           parseMipsABI(viper.GetString("mips_abi")),
		MipsInstrCategory: parseMipsInstrCategory(viper.GetString("mips_instr_category")),

		ArmArchVersion:   parseArmArchVersion(viper.GetString("arm_arch_version")),
		ArmUnifiedSyntax: viper.GetBool("arm_unified_syntax"),
		ArmAVRegisters:   viper.GetBool("arm_av_registers"),
		ArmR9Usage:       parseArmR9Usage(viper.GetString("arm_r9_usage")),
		ArmSLUsage:       viper.GetBool("arm_sl_usage"),
		ArmFPUsage:       viper.GetBool("arm_fp_usage"),
		ArmIPUsage:       viper.GetBool("arm_ip_usage"),
	}

	opts.Display = display.Config{
		Config:             opts.Arch,
		ShowOriginalForm:   viper.GetBool("show_original_form"),
		CollapseSeparators: viper.GetBool("collapse_separators"),
	}

	opts.Align = align.Options{
		Algorithm: parseAlgorithm(viper.GetString("algorithm")),
	}

	return opts
}

func parseX86Formatter(s string) arch.X86Formatter {
	switch strings.ToLower(s) {
	case "gas":
		return arch.X86FormatterGas
	case "nasm":
		return arch.X86FormatterNasm
	case "masm":
		return arch.X86FormatterMasm
	default:
		return arch.X86FormatterIntel
	}
}

func parseMipsABI(s string) arch.MipsABI {
	switch strings.ToLower(s) {
	case "o32":
		return arch.MipsABIO32
	case "n32":
		return arch.MipsABIN32
	case "n64":
		return arch.MipsABIN64
	default:
		return arch.MipsABIAuto
	}
}

func parseMipsInstrCategory(s string) arch.MipsInstrCategory {
	switch strings.ToLower(s) {
	case "cpu":
		return arch.MipsInstrCategoryCPU
	case "rsp":
		return arch.MipsInstrCategoryRSP
	case "r3000gte":
		return arch.MipsInstrCategoryR3000GTE
	case "r4000allegrex":
		return arch.MipsInstrCategoryR4000Allegrex
	case "r5900":
		return arch.MipsInstrCategoryR5900
	default:
		return arch.MipsInstrCategoryAuto
	}
}

func parseArmArchVersion(s string) arch.ArmArchVersion {
	switch strings.ToLower(s) {
	case "v4t":
		return arch.ArmArchVersionV4T
	case "v5te":
		return arch.ArmArchVersionV5TE
	case "v6":
		return arch.ArmArchVersionV6
	case "v6k":
		return arch.ArmArchVersionV6K
	case "v6t2":
		return arch.ArmArchVersionV6T2
	case "v7":
		return arch.ArmArchVersionV7
	case "v8":
		return arch.ArmArchVersionV8
	default:
		return arch.ArmArchVersionAuto
	}
}

func parseArmR9Usage(s string) arch.ArmR9Usage {
	switch strings.ToLower(s) {
	case "sb":
		return arch.ArmR9UsageSB
	case "tr":
		return arch.ArmR9UsageTR
	default:
		return arch.ArmR9UsageGPR
	}
}

func parseAlgorithm(s string) align.Algorithm {
	switch strings.ToLower(s) {
	case "lcs":
		return align.AlgorithmLCS
	case "myers":
		return align.AlgorithmMyers
	case "patience":
		return align.AlgorithmPatience
	default:
		return align.AlgorithmLevenshtein
	}
}
