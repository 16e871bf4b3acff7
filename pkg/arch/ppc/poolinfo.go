package ppc

// PoolInfo classifies one decoded instruction for the pool-relocation
// synthesizer (component H, pkg/pool). Exported so pkg/pool can drive its
// CFG walk without re-implementing PowerPC field decoding — pkg/pool
// depends on this package, never the other way around (see ppc.go's
// SetPoolGenerator wiring note).
type PoolInfo struct {
	Op Opcode

	// IsAddiOri: addi/ori with a destination GPR worth tracking as a
	// relocation base (spec.md §4.H "record dst_gpr -> reloc").
	IsAddiOri   bool
	AddiOriDst  int
	AddiOriSrc  int // rS for ori; left 0 for addi, whose rA is in MoveSrc
	AddiOriImm  int32

	// IsLoadStore: immediate-offset load/store recognized by
	// guess_data_type_from_load_store_inst_op.
	IsLoadStore  bool
	LoadStoreBase int
	LoadStoreOff  int32

	// IsRegMove: addi/or that copies or offsets a tracked register into a
	// new destination (propagation step).
	IsRegMove  bool
	MoveDst    int
	MoveSrc    int
	MoveOffset int32 // non-zero only for "addi dst,src,imm" style moves

	// IsAdd: add rD,rA,rB also propagates (spec.md §4.H), but with two
	// candidate sources instead of one — the caller tries AddSrcA then
	// AddSrcB against the tracked-register map.
	IsAdd  bool
	AddDst int
	AddSrcA int
	AddSrcB int

	// WrittenReg is the destination GPR cleared from the tracking map
	// when none of the above special cases apply (spec.md "else clear
	// any destination GPR that was written"), or -1 if this instruction
	// writes no GPR.
	WrittenReg int

	IsCall          bool // bl
	IsCondBranch    bool // bc
	IsUnconditional bool // b
	IsBctr          bool // bctr/bctrl
	HasBranchDest   bool
	BranchDest      uint64
}

// Classify decodes word (at addr) into the PoolInfo the worklist walk
// needs. It reuses decode() so classification and disassembly can never
// disagree about what an instruction is.
func Classify(addr uint64, word uint32) (PoolInfo, bool) {
	d, ok := decode(addr, word)
	if !ok {
		return PoolInfo{WrittenReg: -1}, false
	}
	info := PoolInfo{Op: d.op, WrittenReg: -1}

	switch d.op {
	case OpAddi:
		rD := int(field(word, 6, 5))
		rA := int(field(word, 11, 5))
		imm := signExtend(field(word, 16, 16), 16)
		// addi's opcode alone qualifies it as a pool-base-forming
		// instruction (spec.md §4.H): whether it actually carries a real
		// relocation is decided by the caller looking one up at this
		// address, not by the register pattern. When it doesn't, it
		// falls back to a plain register-offset propagation.
		info.IsAddiOri = true
		info.AddiOriDst = rD
		info.AddiOriImm = imm
		info.IsRegMove = true
		info.MoveDst = rD
		info.MoveSrc = rA
		info.MoveOffset = imm
		info.WrittenReg = rD
	case OpOri:
		rA := int(field(word, 11, 5))
		rS := int(field(word, 6, 5))
		imm := int32(field(word, 16, 16))
		info.IsAddiOri = true
		info.AddiOriDst = rA
		info.AddiOriSrc = rS
		info.AddiOriImm = imm
		info.WrittenReg = rA
	case OpLis:
		rD := int(field(word, 6, 5))
		info.WrittenReg = rD
	case OpLwz, OpLha, OpLhz, OpLbz, OpLwzu, OpStw, OpSth, OpStb, OpStwu:
		rD := int(field(word, 6, 5))
		rA := int(field(word, 11, 5))
		off := signExtend(field(word, 16, 16), 16)
		info.IsLoadStore = true
		info.LoadStoreBase = rA
		info.LoadStoreOff = off
		switch d.op {
		case OpLwz, OpLha, OpLhz, OpLbz, OpLwzu:
			info.WrittenReg = rD
		default:
			info.WrittenReg = -1
		}
	case OpOr, OpMr:
		rA := int(field(word, 11, 5))
		rS := int(field(word, 6, 5))
		rB := int(field(word, 16, 5))
		if d.op == OpMr || rS == rB {
			info.IsRegMove = true
			info.MoveDst = rA
			info.MoveSrc = rS
		}
		info.WrittenReg = rA
	case OpAdd:
		rD := int(field(word, 6, 5))
		rA := int(field(word, 11, 5))
		rB := int(field(word, 16, 5))
		info.IsAdd = true
		info.AddDst = rD
		info.AddSrcA = rA
		info.AddSrcB = rB
		info.WrittenReg = rD
	case OpB:
		info.IsUnconditional = true
		info.HasBranchDest = true
		info.BranchDest = d.branchDest
	case OpBl:
		info.IsCall = true
		info.HasBranchDest = true
		info.BranchDest = d.branchDest
	case OpBc:
		info.IsCondBranch = true
		if d.hasBranch {
			info.HasBranchDest = true
			info.BranchDest = d.branchDest
		}
	case OpBctr, OpBctrl:
		info.IsBctr = true
	case OpAddis, OpAndi, OpOris, OpRlwinm, OpExtsh, OpExtsb, OpAnd, OpXor, OpMullw, OpDivw, OpSubf:
		rD := int(field(word, 6, 5))
		info.WrittenReg = rD
	}
	return info, true
}
