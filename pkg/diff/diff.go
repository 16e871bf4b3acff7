// Package diff implements the instruction and data comparators
// (components F and G, spec.md §4.F/§4.G) plus the shared diff data
// model (spec.md §3: SymbolDiff, InstructionDiffRow, DataDiffRow,
// ObjectDiff). It consumes an align.EditScript over opcode ids (code) or
// raw bytes (data) and produces the row-classified, branch-resolved,
// colour-indexed structure the scorer (pkg/score) and projector
// (pkg/display) build on.
//
// Grounded on the teacher's instructionresolver.go/memoryresolver.go
// shape (an explicit pass over already-decoded instructions building a
// side-table, no pointer graphs) generalized from single-object
// resolution to two-sided comparison; branch edges are plain integer
// row indices per spec.md §3's "no cycles" ownership rule, the same way
// pool.go tracks GPR state by value instead of by reference.
package diff

import (
	"github.com/objdiffgo/objdiff/pkg/align"
	"github.com/objdiffgo/objdiff/pkg/object"
	"github.com/objdiffgo/objdiff/pkg/object/instr"
)

// RowKind classifies one InstructionDiffRow (spec.md §3).
type RowKind int

const (
	KindNone RowKind = iota
	KindOpMismatch
	KindArgMismatch
	KindReplace
	KindDelete
	KindInsert
)

func (k RowKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindOpMismatch:
		return "op-mismatch"
	case KindArgMismatch:
		return "arg-mismatch"
	case KindReplace:
		return "replace"
	case KindDelete:
		return "delete"
	case KindInsert:
		return "insert"
	}
	return "unknown"
}

// BranchRef is a destination edge: the target row index on the same
// side, plus a stable colour slot (spec.md §4.F "branch_idx... used
// purely to pick a stable colour slot").
type BranchRef struct {
	TargetRow int
	BranchIdx int
}

// InstructionDiffRow is one aligned code row (spec.md §3). Ref/Parsed
// are nil on the side that has no instruction (Insert/Delete).
type InstructionDiffRow struct {
	Ref    *instr.InstructionRef
	Parsed *instr.ParsedInstruction
	Kind   RowKind

	BranchFrom []int
	BranchTo   *BranchRef

	// ArgDiffIndex is parallel to Parsed.Args; -1 for an arg that did not
	// cause the mismatch, otherwise a per-side monotonic colour index
	// (spec.md §4.F: "the first unique string on a side gets 0...").
	ArgDiffIndex []int
}

// Costs weights each mismatch kind when accumulating diff_score
// (spec.md §4.F "Scoring"). Defaults give a differing opcode full
// weight and a differing register/branch less, so two instructions that
// differ only in which register they touch score as "closer" than two
// wholly different instructions.
type Costs struct {
	Mismatch       float64 // Replace / Insert / Delete
	OpMismatchBase float64 // fixed cost added before per-arg costs
	ArgValue       float64 // differing Signed/Unsigned immediate
	ArgOpaque      float64 // differing register/opaque operand
	ArgReloc       float64 // differing relocation target
	ArgBranch      float64 // differing branch destination
}

// DefaultCosts matches spec.md §4.F's "default to 1 per row... per-arg
// costs weighted so a single differing register counts less than a
// differing opcode."
var DefaultCosts = Costs{
	Mismatch:       1.0,
	OpMismatchBase: 0.5,
	ArgValue:       0.5,
	ArgOpaque:      0.25,
	ArgReloc:       1.0,
	ArgBranch:      0.25,
}

// Side bundles one side's scanned refs and their on-demand parsed forms,
// aligned 1:1 by index (Parsed[i] is ProcessInstruction(Refs[i])).
type Side struct {
	Refs   []instr.InstructionRef
	Parsed []instr.ParsedInstruction
}

// Result is the output of CompareInstructions: both sides' rows plus
// the accumulated score, ready for pkg/score.
type Result struct {
	Left, Right         []InstructionDiffRow
	DiffScore, MaxScore float64
}

// CompareInstructions implements component F. script must have been
// computed over the two sides' opcode id sequences (e.g.
// align.Align(opcodeIDs(left), opcodeIDs(right), opts)).
//
// Two passes over the edit script, matching original_source/src/diff.rs's
// diff_code: first build every row's Ref/Parsed (and the terminal Insert/
// Delete Kind, which needs no further input), then resolve_branches runs
// on each side's full row slice so every row's BranchTo.TargetRow is
// populated, and only then does the second pass classify Match/Replace
// rows and diff their args — since a BranchDest argument can only be
// compared by resolved target row once resolution has actually run.
func CompareInstructions(left, right Side, script align.EditScript, costs Costs) Result {
	res := Result{
		Left:  make([]InstructionDiffRow, len(script)),
		Right: make([]InstructionDiffRow, len(script)),
	}
	for i, step := range script {
		res.Left[i], res.Right[i] = buildStep(left, right, step)
	}

	resolveBranches(res.Left)
	resolveBranches(res.Right)

	for i, step := range script {
		lRow, rRow, cost := classifyStep(&res.Left[i], &res.Right[i], step, costs)
		res.Left[i], res.Right[i] = lRow, rRow
		res.DiffScore += cost
	}

	maxLen := len(left.Refs)
	if len(right.Refs) > maxLen {
		maxLen = len(right.Refs)
	}
	res.MaxScore = costs.Mismatch * float64(maxLen)
	return res
}

// buildStep places Ref/Parsed for one edit-script step on each side.
// Insert/Delete rows get their terminal Kind here since nothing further
// needs to be known about them; Match/Replace rows are left unclassified
// (Kind zero value) until classifyStep runs after branch resolution.
func buildStep(left, right Side, step align.Step) (InstructionDiffRow, InstructionDiffRow) {
	switch step.Op {
	case align.OpInsert:
		return InstructionDiffRow{Kind: KindInsert},
			InstructionDiffRow{Ref: &right.Refs[step.RightIndex], Parsed: &right.Parsed[step.RightIndex], Kind: KindInsert}
	case align.OpDelete:
		return InstructionDiffRow{Ref: &left.Refs[step.LeftIndex], Parsed: &left.Parsed[step.LeftIndex], Kind: KindDelete},
			InstructionDiffRow{Kind: KindDelete}
	default:
		return InstructionDiffRow{Ref: &left.Refs[step.LeftIndex], Parsed: &left.Parsed[step.LeftIndex]},
			InstructionDiffRow{Ref: &right.Refs[step.RightIndex], Parsed: &right.Parsed[step.RightIndex]}
	}
}

// classifyStep runs after both sides' rows have Ref/Parsed/BranchTo
// populated. lRow/rRow are the same *InstructionDiffRow backing res.Left/
// res.Right, so BranchTo set by resolveBranches is visible here.
func classifyStep(lRow, rRow *InstructionDiffRow, step align.Step, costs Costs) (InstructionDiffRow, InstructionDiffRow, float64) {
	if lRow.Kind == KindInsert || lRow.Kind == KindDelete {
		return *lRow, *rRow, costs.Mismatch
	}

	lRef, rRef := lRow.Ref, rRow.Ref
	if step.Op == align.OpReplace || lRef.OpcodeID != rRef.OpcodeID {
		lRow.Kind, rRow.Kind = KindReplace, KindReplace
		return *lRow, *rRow, costs.Mismatch
	}

	lParsed, rParsed := lRow.Parsed, rRow.Parsed
	if lParsed.Mnemonic != rParsed.Mnemonic {
		argCost, lIdx, rIdx := diffArgs(lParsed.Args, rParsed.Args, lRow, rRow, costs)
		lRow.Kind, rRow.Kind = KindOpMismatch, KindOpMismatch
		lRow.ArgDiffIndex, rRow.ArgDiffIndex = lIdx, rIdx
		return *lRow, *rRow, costs.OpMismatchBase + argCost
	}

	argCost, lIdx, rIdx := diffArgs(lParsed.Args, rParsed.Args, lRow, rRow, costs)
	if argCost == 0 {
		lRow.Kind, rRow.Kind = KindNone, KindNone
		return *lRow, *rRow, 0
	}
	lRow.Kind, rRow.Kind = KindArgMismatch, KindArgMismatch
	lRow.ArgDiffIndex, rRow.ArgDiffIndex = lIdx, rIdx
	return *lRow, *rRow, argCost
}

// diffArgs walks argument pairs left-to-right (spec.md §4.F). Returns
// the accumulated mismatch cost and, per side, a slice parallel to that
// side's Args with -1 for an equal arg or a per-side monotonic colour
// index (deduped by rendered string) for a differing one.
func diffArgs(left, right []instr.InstructionArg, lRow, rRow *InstructionDiffRow, costs Costs) (float64, []int, []int) {
	lIdx := fillDiffIndex(len(left))
	rIdx := fillDiffIndex(len(right))

	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	var cost float64
	lSeen, rSeen := map[string]int{}, map[string]int{}
	for i := 0; i < n; i++ {
		a, b := left[i], right[i]
		if argsEqual(a, b, lRow, rRow, costs) {
			continue
		}
		cost += argMismatchCost(a, b, costs)
		lIdx[i] = colourIndex(lSeen, a.String())
		rIdx[i] = colourIndex(rSeen, b.String())
	}
	// Length mismatch beyond the shared prefix: each extra arg on the
	// longer side is itself a mismatch contribution.
	for i := n; i < len(left); i++ {
		cost += costs.ArgOpaque
		lIdx[i] = colourIndex(lSeen, left[i].String())
	}
	for i := n; i < len(right); i++ {
		cost += costs.ArgOpaque
		rIdx[i] = colourIndex(rSeen, right[i].String())
	}
	return cost, lIdx, rIdx
}

func fillDiffIndex(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = -1
	}
	return idx
}

func colourIndex(seen map[string]int, s string) int {
	if i, ok := seen[s]; ok {
		return i
	}
	i := len(seen)
	seen[s] = i
	return i
}

// argsEqual implements spec.md §4.F's equality rule: both Reloc and
// reloc_eq; both BranchDest and same target row (compared via each row's
// own BranchTo.TargetRow, populated by resolveBranches before
// classifyStep ever calls this — comparing raw BranchAddr would be
// meaningless since left and right come from two different object files
// with generally different load addresses); or identical values/opaques.
// The Reloc case always calls RelocEqual with relax off: the
// RelaxRelocDiffs option is not applied to instruction operands.
func argsEqual(a, b instr.InstructionArg, lRow, rRow *InstructionDiffRow, costs Costs) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case instr.ArgReloc:
		return RelocEqual(a.Reloc, b.Reloc, false)
	case instr.ArgBranchDest:
		return branchTargetEqual(lRow.BranchTo, rRow.BranchTo)
	default:
		return a == b
	}
}

// branchTargetEqual compares two rows' resolved branch destinations by
// target row index (spec.md §4.F), not by address. An unresolved branch
// (BranchTo nil, e.g. a computed jump or a destination outside the
// symbol) only equals another unresolved branch.
func branchTargetEqual(l, r *BranchRef) bool {
	if l == nil || r == nil {
		return l == nil && r == nil
	}
	return l.TargetRow == r.TargetRow
}

func argMismatchCost(a, b instr.InstructionArg, costs Costs) float64 {
	kind := a.Kind
	if kind != b.Kind {
		kind = instr.ArgOpaqueValue // mixed-kind mismatch: treat as a generic operand swap
	}
	switch kind {
	case instr.ArgReloc:
		return costs.ArgReloc
	case instr.ArgBranchDest:
		return costs.ArgBranch
	case instr.ArgOpaqueValue:
		return costs.ArgOpaque
	default:
		return costs.ArgValue
	}
}

// RelocEqual implements spec.md §4.F's reloc_eq, matching
// original_source/src/diff.rs's reloc_eq case-for-case once past the
// relax short-circuit: same flags required; then, by whether each
// side's target resolved to a section,
//   - both resolved: equal if same section and (same target name OR
//     same resolved address, address+addend folded together);
//   - only the left resolved: never equal — a target that disappeared
//     entirely on the right is a real difference, not a formatting one;
//   - only the right resolved: equal if names still match and the
//     right's target is a weak symbol (a symbol stripped to a weak
//     alias on one side is the common cause of this asymmetry, not a
//     genuine relocation difference);
//   - neither resolved: equal if names match.
// Name matches require a non-empty name on both sides: unlike the Rust
// model's target (always a named ObjSymbol, resolved or not), an
// unresolved ResolvedRelocArg here carries no name at all (its
// TargetSymbol index was SymbolSentinel, so there was no symbol to read
// a name from) rather than "resolved to a name but not a section" — so
// two unrelated unnamed relocations are never treated as equal just
// because both are nameless.
// When relax is true (Config.RelaxRelocDiffs), a non-empty name match
// short-circuits all of the above, per spec.md's relaxed-reloc-diffs
// mode.
func RelocEqual(a, b instr.ResolvedRelocArg, relax bool) bool {
	nameMatches := a.TargetName != "" && a.TargetName == b.TargetName
	if relax && nameMatches {
		return true
	}
	if a.Flags != b.Flags {
		return false
	}
	switch {
	case a.TargetResolved && b.TargetResolved:
		return a.TargetSection == b.TargetSection &&
			(nameMatches || a.TargetAddress+uint64(a.Addend) == b.TargetAddress+uint64(b.Addend))
	case a.TargetResolved && !b.TargetResolved:
		return false
	case !a.TargetResolved && b.TargetResolved:
		return nameMatches && b.TargetWeak
	default:
		return nameMatches
	}
}

// resolveBranches implements spec.md §4.F's "Branch resolution (per
// side)": build address->row_index, then for every row whose args
// include a BranchDest hitting the map, record branch_to/branch_from.
// Branch indices are assigned in first-seen (address-scan) order per
// distinct target row, per spec.md §5's determinism guarantee.
func resolveBranches(rows []InstructionDiffRow) {
	addrToRow := make(map[uint64]int, len(rows))
	for i, r := range rows {
		if r.Ref != nil {
			addrToRow[r.Ref.Address] = i
		}
	}
	targetColour := make(map[int]int)
	for i := range rows {
		r := &rows[i]
		if r.Parsed == nil {
			continue
		}
		dest, ok := branchDest(r.Parsed)
		if !ok {
			continue
		}
		target, ok := addrToRow[dest]
		if !ok {
			continue
		}
		idx, ok := targetColour[target]
		if !ok {
			idx = len(targetColour)
			targetColour[target] = idx
		}
		r.BranchTo = &BranchRef{TargetRow: target, BranchIdx: idx}
		rows[target].BranchFrom = append(rows[target].BranchFrom, i)
	}
}

func branchDest(p *instr.ParsedInstruction) (uint64, bool) {
	for _, a := range p.Args {
		if a.Kind == instr.ArgBranchDest {
			return a.BranchAddr, true
		}
	}
	return 0, false
}

// DataDiffKind classifies one DataDiffRow (spec.md §3/§4.G).
type DataDiffKind int

const (
	DataNone DataDiffKind = iota
	DataReplace
	DataInsert
	DataDelete
)

// DataDiffRow is one run-encoded chunk, already split to at most
// RowWidth bytes (spec.md §4.G: "chunk each sequence into fixed-width
// rows of 16 bytes, splitting runs as needed at row boundaries").
type DataDiffRow struct {
	Bytes []byte
	Kind  DataDiffKind
	Length int
}

// RowWidth is the fixed display-row width spec.md §4.G specifies.
const RowWidth = 16

// DataRelocationDiff flags a byte range covered by a relocation whose
// resolved target differs across sides, even when the raw bytes happen
// to match (spec.md §4.G "Relocation-aware byte diffs").
type DataRelocationDiff struct {
	Start, End int
	Kind       DataDiffKind
}

// CompareData implements component G: aligns two byte sequences, run-
// encodes the result, then chunks it into RowWidth-byte display rows.
func CompareData(left, right []byte, script align.EditScript) (leftRows, rightRows []DataDiffRow) {
	leftRuns := encodeRuns(script, left, true)
	rightRuns := encodeRuns(script, right, false)
	return chunkRows(leftRuns), chunkRows(rightRuns)
}

type run struct {
	kind  DataDiffKind
	bytes []byte
}

func stepKind(op align.Op) DataDiffKind {
	switch op {
	case align.OpReplace:
		return DataReplace
	case align.OpInsert:
		return DataInsert
	case align.OpDelete:
		return DataDelete
	default:
		return DataNone
	}
}

// encodeRuns builds one side's run sequence from the edit script: for
// each step it takes this side's byte when the step contributes one
// (every op contributes to Left except Insert; every op contributes to
// Right except Delete — spec.md §4.E's Step doc), then merges
// consecutive same-kind contributions into a run. Per spec.md §4.G a
// Replace run's two sides are length-equal by construction (align.Step
// always consumes exactly one element per side for Match/Replace — see
// pkg/align's normalizeReplace), so the "split unequal replace tails"
// rule never triggers here, but chunkRows still only ever emits
// single-sided runs, so a future alignment strategy that violated that
// invariant would simply show as back-to-back runs rather than crash.
func encodeRuns(script align.EditScript, buf []byte, isLeft bool) []run {
	var runs []run
	for _, step := range script {
		var idx int
		switch {
		case isLeft && step.Op == align.OpInsert:
			continue
		case !isLeft && step.Op == align.OpDelete:
			continue
		case isLeft:
			idx = step.LeftIndex
		default:
			idx = step.RightIndex
		}
		if idx < 0 || idx >= len(buf) {
			continue
		}
		kind := stepKind(step.Op)
		b := buf[idx]
		if n := len(runs); n > 0 && runs[n-1].kind == kind {
			runs[n-1].bytes = append(runs[n-1].bytes, b)
			continue
		}
		runs = append(runs, run{kind: kind, bytes: []byte{b}})
	}
	return runs
}

// chunkRows splits a run sequence into rows that are each at most
// RowWidth bytes, never span a RowWidth-aligned absolute-offset
// boundary, and never mix two different kinds (spec.md §4.G: "chunk
// each sequence into fixed-width rows of 16 bytes, splitting runs as
// needed at row boundaries").
func chunkRows(runs []run) []DataDiffRow {
	var rows []DataDiffRow
	var cur DataDiffRow
	haveCur := false
	absOffset := 0

	flush := func() {
		if haveCur && cur.Length > 0 {
			rows = append(rows, cur)
		}
		cur = DataDiffRow{}
		haveCur = false
	}

	for _, r := range runs {
		rem := r.bytes
		for len(rem) > 0 {
			if haveCur && cur.Kind != r.kind {
				flush()
			}
			if !haveCur {
				cur = DataDiffRow{Kind: r.kind}
				haveCur = true
			}
			space := RowWidth - (absOffset % RowWidth)
			take := space
			if take > len(rem) {
				take = len(rem)
			}
			cur.Bytes = append(cur.Bytes, rem[:take]...)
			cur.Length += take
			rem = rem[take:]
			absOffset += take
			if absOffset%RowWidth == 0 {
				flush()
			}
		}
	}
	flush()
	return rows
}

// RelocationDataDiff implements spec.md §4.G's relocation-aware pass: it
// walks each side's relocations within [base, base+size) and, for every
// address either side covers, compares the two (using the same reloc_eq
// RelocEqual uses) to produce an overlay the renderer merges on top of
// the byte diff.
func RelocationDataDiff(leftObj, rightObj *object.Object, leftSec, rightSec *object.Section, a ArchRelocView, relax bool) (left, right []DataRelocationDiff) {
	type entry struct {
		reloc object.Relocation
		size  int
	}
	leftByAddr := map[uint64]entry{}
	for _, r := range leftSec.Relocations {
		leftByAddr[r.Address-leftSec.Address] = entry{r, a.DataRelocSize(r.Flags)}
	}
	rightByAddr := map[uint64]entry{}
	for _, r := range rightSec.Relocations {
		rightByAddr[r.Address-rightSec.Address] = entry{r, a.DataRelocSize(r.Flags)}
	}

	seen := map[uint64]bool{}
	var order []uint64
	for off := range leftByAddr {
		if !seen[off] {
			seen[off] = true
			order = append(order, off)
		}
	}
	for off := range rightByAddr {
		if !seen[off] {
			seen[off] = true
			order = append(order, off)
		}
	}

	for _, off := range order {
		le, lok := leftByAddr[off]
		re, rok := rightByAddr[off]
		switch {
		case lok && !rok:
			left = append(left, DataRelocationDiff{Start: int(off), End: int(off) + le.size, Kind: DataDelete})
		case !lok && rok:
			right = append(right, DataRelocationDiff{Start: int(off), End: int(off) + re.size, Kind: DataInsert})
		default:
			lArg := instr.ResolvedRelocationArg(0, le.reloc, leftObj.SymbolAt(le.reloc.TargetSymbol))
			rArg := instr.ResolvedRelocationArg(0, re.reloc, rightObj.SymbolAt(re.reloc.TargetSymbol))
			if !RelocEqual(lArg.Reloc, rArg.Reloc, relax) {
				left = append(left, DataRelocationDiff{Start: int(off), End: int(off) + le.size, Kind: DataReplace})
				right = append(right, DataRelocationDiff{Start: int(off), End: int(off) + re.size, Kind: DataReplace})
			}
		}
	}
	return left, right
}

// ArchRelocView is the slice of arch.Arch that RelocationDataDiff needs;
// kept narrow so pkg/diff does not import pkg/arch for its whole
// capability set just to read data-relocation sizes.
type ArchRelocView interface {
	DataRelocSize(flags object.RelocKind) int
}

// SymbolDiff is the per-symbol diff result (spec.md §3).
type SymbolDiff struct {
	TargetSymbol    int // SymbolSentinel when unmatched
	Left, Right     []InstructionDiffRow
	DataLeft, DataRight []DataDiffRow
	DataRelocLeft, DataRelocRight []DataRelocationDiff
	DiffScore, MaxScore float64
	MatchPercent        float64
	SyntheticRelocs     []object.Relocation
	Err error
}

// ObjectDiff is the top-level diff result (spec.md §3).
type ObjectDiff struct {
	Symbols             map[int]*SymbolDiff
	SectionMatchPercent map[int]float64
	OverallMatchPercent float64
}
