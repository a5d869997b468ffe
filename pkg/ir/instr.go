// Package ir implements IR lowering (spec §4.5, Component G): a linear,
// SSA-relaxed, register-named instruction list per function, built by
// walking the typed AST pkg/infer annotated (via its ExprID -> Info side
// table) and pkg/types' resolved Type values.
package ir

import "github.com/typec-lang/tcc/pkg/source"

// Op names one IR instruction (spec §4.5 "(opcode, arg*)"). Basic-type
// variants (const_<type>, s_loadf_<type>, ...) are built by suffixing a
// types.BasicKind's String() onto the family name rather than enumerating
// every combination as a distinct constant.
type Op string

const (
	OpConst    Op = "const"
	OpTmp      Op = "tmp"
	OpGlobal   Op = "global"
	OpMove     Op = "move"

	OpStructAlloc  Op = "s_alloc"
	OpStructRegF   Op = "s_reg_field"
	OpStructLoadF  Op = "s_loadf"
	OpStructStoreF Op = "s_storef"

	OpClassAlloc  Op = "c_alloc"
	OpClassRegF   Op = "c_reg_field"
	OpClassStoreM Op = "c_store_m"
	OpClassLoadM  Op = "c_load_m"
	OpClassLoadF  Op = "c_loadf"
	OpClassStoreF Op = "c_storef"

	OpInterfaceIsClass Op = "i_is_c"
	OpInterfaceHasM    Op = "i_has_m"

	OpArrayAlloc  Op = "a_alloc"
	OpArrayExtend Op = "a_extend"
	OpArrayLen    Op = "a_len"
	OpArraySlice  Op = "a_slice"
	OpArrayLoadF  Op = "a_loadf"
	OpArrayStoreF Op = "a_storef"

	OpFnAlloc     Op = "fn_alloc"
	OpFnSetReg    Op = "fn_set_reg"
	OpCall        Op = "call"
	OpCallPtr     Op = "call_ptr"
	OpPush        Op = "push"
	OpPop         Op = "pop"
	OpCallFFI     Op = "call_ffi"

	OpClosureAlloc   Op = "closure_alloc"
	OpClosurePushEnv Op = "closure_push_env"
	OpClosureCall    Op = "closure_call"
	OpClosureBackup  Op = "closure_backup"

	OpCoroutineAlloc   Op = "coroutine_alloc"
	OpCoroutineFnAlloc Op = "coroutine_fn_alloc"
	OpCoroutineCall    Op = "coroutine_call"
	OpCoroutineYield   Op = "coroutine_yield"
	OpCoroutineRet     Op = "coroutine_ret"
	OpCoroutineFinish  Op = "coroutine_finish"

	OpLabel   Op = "label"
	OpJump    Op = "j"
	OpJumpCmp Op = "j_cmp"
	OpJumpNil Op = "j_eq_null"

	OpRet     Op = "ret"
	OpRetVoid Op = "ret_void"

	OpCast Op = "cast"

	OpSrcmapPush Op = "srcmap_push_loc"
	OpSrcmapPop  Op = "srcmap_pop_loc"
)

// CmpOp is the comparison-jump opcode argument (spec §4.5 "opcode ∈
// {eq=0, ne=1, gt=2, ge=3, lt=4, le=5}").
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpGt
	CmpGe
	CmpLt
	CmpLe
)

var cmpByOp = map[string]CmpOp{
	"==": CmpEq, "!=": CmpNe, ">": CmpGt, ">=": CmpGe, "<": CmpLt, "<=": CmpLe,
}

// Reg is a virtual, unallocated register name; pkg/regalloc assigns
// physical/stack locations to these in a later pass.
type Reg string

// Instr is one emitted instruction: an opcode, its ordered operands (kept
// as `any` — register names, literal values, labels, or type-size ints —
// since the family determines how many and what kind of args there are),
// and the source location srcmap_push_loc/pop_loc instructions bracket.
type Instr struct {
	Op   Op
	Args []any
	Loc  source.Location
}

func instr(op Op, loc source.Location, args ...any) Instr {
	return Instr{Op: op, Args: args, Loc: loc}
}
