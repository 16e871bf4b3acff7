package diff

import (
	"testing"

	"github.com/objdiffgo/objdiff/pkg/align"
	"github.com/objdiffgo/objdiff/pkg/object"
	"github.com/objdiffgo/objdiff/pkg/object/instr"
	"github.com/stretchr/testify/require"
)

func opcodeIDs(refs []instr.InstructionRef) []int {
	ids := make([]int, len(refs))
	for i, r := range refs {
		ids[i] = int(r.OpcodeID)
	}
	return ids
}

// TestSequenceAlignmentDeterminism reproduces spec.md §8 scenario 6:
// [1,2,3,4,5] vs [1,3,4,5] under Levenshtein yields
// [Match, Delete(2), Match, Match, Match].
func TestSequenceAlignmentDeterminism(t *testing.T) {
	left := []int{1, 2, 3, 4, 5}
	right := []int{1, 3, 4, 5}
	script, err := align.Align(left, right, align.Options{})
	require.NoError(t, err)
	require.Len(t, script, 5)
	require.Equal(t, align.OpMatch, script[0].Op)
	require.Equal(t, align.OpDelete, script[1].Op)
	require.Equal(t, align.OpMatch, script[2].Op)
	require.Equal(t, align.OpMatch, script[3].Op)
	require.Equal(t, align.OpMatch, script[4].Op)
}

func refAt(addr uint64, opcode uint16) instr.InstructionRef {
	return instr.InstructionRef{Address: addr, SizeBytes: 4, OpcodeID: opcode}
}

func TestRowClassificationNoneAndArgMismatch(t *testing.T) {
	left := Side{
		Refs: []instr.InstructionRef{refAt(0, 1), refAt(4, 2)},
		Parsed: []instr.ParsedInstruction{
			{Mnemonic: "mov", Args: []instr.InstructionArg{instr.OpaqueArg("r0"), instr.OpaqueArg("r1")}},
			{Mnemonic: "add", Args: []instr.InstructionArg{instr.OpaqueArg("r2"), instr.OpaqueArg("r3")}},
		},
	}
	right := Side{
		Refs: []instr.InstructionRef{refAt(0, 1), refAt(4, 2)},
		Parsed: []instr.ParsedInstruction{
			{Mnemonic: "mov", Args: []instr.InstructionArg{instr.OpaqueArg("r0"), instr.OpaqueArg("r1")}},
			{Mnemonic: "add", Args: []instr.InstructionArg{instr.OpaqueArg("r2"), instr.OpaqueArg("r9")}},
		},
	}
	script, err := align.Align(opcodeIDs(left.Refs), opcodeIDs(right.Refs), align.Options{})
	require.NoError(t, err)

	res := CompareInstructions(left, right, script, DefaultCosts)
	require.Equal(t, KindNone, res.Left[0].Kind)
	require.Equal(t, KindArgMismatch, res.Left[1].Kind)
	require.Equal(t, []int{-1, 0}, res.Left[1].ArgDiffIndex)
	require.Equal(t, []int{-1, 0}, res.Right[1].ArgDiffIndex)
	require.Equal(t, DefaultCosts.ArgOpaque, res.DiffScore)
}

func TestRowClassificationReplaceAndOpMismatch(t *testing.T) {
	left := Side{
		Refs:   []instr.InstructionRef{refAt(0, 1)},
		Parsed: []instr.ParsedInstruction{{Mnemonic: "mov"}},
	}
	right := Side{
		Refs:   []instr.InstructionRef{refAt(0, 2)},
		Parsed: []instr.ParsedInstruction{{Mnemonic: "add"}},
	}
	script := align.EditScript{{Op: align.OpMatch, LeftIndex: 0, RightIndex: 0}}
	res := CompareInstructions(left, right, script, DefaultCosts)
	require.Equal(t, KindReplace, res.Left[0].Kind)
	require.Equal(t, DefaultCosts.Mismatch, res.DiffScore)

	// same opcode id, different mnemonic text -> OpMismatch.
	left2 := Side{
		Refs:   []instr.InstructionRef{refAt(0, 1)},
		Parsed: []instr.ParsedInstruction{{Mnemonic: "mr"}},
	}
	right2 := Side{
		Refs:   []instr.InstructionRef{refAt(0, 1)},
		Parsed: []instr.ParsedInstruction{{Mnemonic: "or"}},
	}
	res2 := CompareInstructions(left2, right2, script, DefaultCosts)
	require.Equal(t, KindOpMismatch, res2.Left[0].Kind)
	require.Equal(t, DefaultCosts.OpMismatchBase, res2.DiffScore)
}

func TestInsertDeleteRows(t *testing.T) {
	left := Side{Refs: []instr.InstructionRef{refAt(0, 1)}, Parsed: []instr.ParsedInstruction{{Mnemonic: "nop"}}}
	right := Side{Refs: []instr.InstructionRef{refAt(0, 2)}, Parsed: []instr.ParsedInstruction{{Mnemonic: "add"}}}
	script := align.EditScript{
		{Op: align.OpDelete, LeftIndex: 0},
		{Op: align.OpInsert, RightIndex: 0},
	}
	res := CompareInstructions(left, right, script, DefaultCosts)
	require.Equal(t, KindDelete, res.Left[0].Kind)
	require.Nil(t, res.Right[0].Ref)
	require.Equal(t, KindInsert, res.Right[1].Kind)
	require.Nil(t, res.Left[1].Ref)
	require.Equal(t, 2*DefaultCosts.Mismatch, res.DiffScore)
}

// TestBranchResolution builds a 2-instruction side where row 1 branches
// back to row 0, and checks branch_to/branch_from/branch_idx.
func TestBranchResolution(t *testing.T) {
	left := Side{
		Refs: []instr.InstructionRef{refAt(0x1000, 1), refAt(0x1004, 2)},
		Parsed: []instr.ParsedInstruction{
			{Mnemonic: "nop"},
			{Mnemonic: "b", Args: []instr.InstructionArg{instr.BranchDestArg(0x1000)}},
		},
	}
	right := left
	script := align.EditScript{
		{Op: align.OpMatch, LeftIndex: 0, RightIndex: 0},
		{Op: align.OpMatch, LeftIndex: 1, RightIndex: 1},
	}
	res := CompareInstructions(left, right, script, DefaultCosts)
	require.NotNil(t, res.Left[1].BranchTo)
	require.Equal(t, 0, res.Left[1].BranchTo.TargetRow)
	require.Equal(t, 0, res.Left[1].BranchTo.BranchIdx)
	require.Equal(t, []int{1}, res.Left[0].BranchFrom)
}

func TestCompareDataRuns(t *testing.T) {
	left := []byte{1, 2, 3, 4}
	right := []byte{1, 9, 3, 4}
	script := align.EditScript{
		{Op: align.OpMatch, LeftIndex: 0, RightIndex: 0},
		{Op: align.OpReplace, LeftIndex: 1, RightIndex: 1},
		{Op: align.OpMatch, LeftIndex: 2, RightIndex: 2},
		{Op: align.OpMatch, LeftIndex: 3, RightIndex: 3},
	}
	leftRows, rightRows := CompareData(left, right, script)
	require.Len(t, leftRows, 3)
	require.Equal(t, DataNone, leftRows[0].Kind)
	require.Equal(t, []byte{1}, leftRows[0].Bytes)
	require.Equal(t, DataReplace, leftRows[1].Kind)
	require.Equal(t, []byte{2}, leftRows[1].Bytes)
	require.Equal(t, DataReplace, rightRows[1].Kind)
	require.Equal(t, []byte{9}, rightRows[1].Bytes)
	require.Equal(t, DataNone, leftRows[2].Kind)
	require.Equal(t, []byte{3, 4}, leftRows[2].Bytes)
}

func TestCompareDataChunksAtRowWidth(t *testing.T) {
	left := make([]byte, 20)
	right := make([]byte, 20)
	for i := range left {
		left[i], right[i] = byte(i), byte(i)
	}
	var script align.EditScript
	for i := range left {
		script = append(script, align.Step{Op: align.OpMatch, LeftIndex: i, RightIndex: i})
	}
	leftRows, _ := CompareData(left, right, script)
	require.Len(t, leftRows, 2)
	require.Equal(t, 16, leftRows[0].Length)
	require.Equal(t, 4, leftRows[1].Length)
}

func TestRelocEqualRelax(t *testing.T) {
	a := instr.ResolvedRelocArg{Flags: 5, Addend: 0, TargetName: "g_val", TargetResolved: true}
	b := instr.ResolvedRelocArg{Flags: 9, Addend: 4, TargetName: "g_val", TargetResolved: true}
	require.False(t, RelocEqual(a, b, false))
	require.True(t, RelocEqual(a, b, true))
}

func TestRelocationDataDiff(t *testing.T) {
	leftObj := &object.Object{Symbols: []object.Symbol{{Name: "g_old", Address: 0x100}}}
	rightObj := &object.Object{Symbols: []object.Symbol{{Name: "g_new", Address: 0x200}}}
	leftSec := &object.Section{Address: 0x2000, Relocations: []object.Relocation{{Address: 0x2000, TargetSymbol: 0}}}
	rightSec := &object.Section{Address: 0x2000, Relocations: []object.Relocation{{Address: 0x2000, TargetSymbol: 0}}}
	a := constSizeArch{size: 4}
	left, right := RelocationDataDiff(leftObj, rightObj, leftSec, rightSec, a, false)
	require.Len(t, left, 1)
	require.Equal(t, DataReplace, left[0].Kind)
	require.Equal(t, 0, left[0].Start)
	require.Equal(t, 4, left[0].End)
	require.Len(t, right, 1)
	require.Equal(t, DataReplace, right[0].Kind)
}

type constSizeArch struct{ size int }

func (c constSizeArch) DataRelocSize(flags object.RelocKind) int { return c.size }
