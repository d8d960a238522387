// Copyright 2025 The Rembulan Authors
// SPDX-License-Identifier: MIT

// Package luacomp translates resolved Lua syntax trees
// into the IR of package luair:
// one control-flow graph per function body
// plus one for the top-level chunk.
//
// The translator assumes the parser and resolver
// have already rejected invalid programs;
// any inconsistency it observes is reported as a
// [luasem.InvariantError], not a user diagnostic.
// Translation is pure and single-threaded:
// distinct chunks may be translated concurrently without coordination.
package luacomp

import (
	"fmt"

	"github.com/luavixen/rembulan-sub001/internal/luair"
	"github.com/luavixen/rembulan-sub001/internal/lualex"
	"github.com/luavixen/rembulan-sub001/internal/luasem"
	"github.com/luavixen/rembulan-sub001/internal/luasyntax"
)

// Options configures a [Translate] call.
type Options struct {
	// CPUAccounting is forwarded unchanged on the produced module;
	// it does not affect IR shape.
	CPUAccounting luair.CPUAccounting
}

// Translate lowers a resolved chunk into an IR module.
// The chunk is translated as an anonymous vararg function.
// The info tables must have been produced
// by [luasem.Resolve] over the same tree.
func Translate(info *luasem.Info, chunk *luasyntax.Block, opts Options) (*luair.Module, error) {
	t := &translator{
		info:   info,
		module: &luair.Module{CPUAccounting: opts.CPUAccounting},
	}
	fi, err := info.FunctionInfo(chunk)
	if err != nil {
		return nil, err
	}
	fs, err := t.openFunction(nil, fi, "main", chunk.Pos())
	if err != nil {
		return nil, err
	}
	fs.fn.LineDefined = 0
	if err := t.block(fs, chunk); err != nil {
		return nil, err
	}
	main, err := fs.close()
	if err != nil {
		return nil, err
	}
	t.module.Main = main
	return t.module, nil
}

type translator struct {
	info   *luasem.Info
	module *luair.Module
}

// openFunction allocates the builder state for one function,
// assigning parameter registers and upvalue slots
// from the function's resolved variable info.
func (t *translator) openFunction(parent *funcState, fi *luasem.FunctionInfo, name string, pos lualex.Position) (*funcState, error) {
	fs := &funcState{
		parent: parent,
		pos:    pos,
		fn: &luair.Function{
			Name:        name,
			NumParams:   len(fi.Params),
			IsVararg:    fi.IsVararg,
			LineDefined: pos.Line,
		},
		blocks:      make(map[luair.Label]*luair.BasicBlock),
		locals:      make(map[*luasem.Variable]luair.Val),
		upvals:      make(map[*luasem.Variable]luair.UpvalueIndex),
		labelBlocks: make(map[*luasem.Label]*labelRef),
	}
	fs.entry = fs.newLabel()
	fs.startBlock(fs.entry)

	for _, p := range fi.Params {
		fs.locals[p] = fs.newVal()
	}
	for _, v := range fi.Upvalues {
		if parent == nil {
			return nil, invariantf(pos, "chunk captures variable '%s'", v.Name)
		}
		var desc luair.UpvalueDescriptor
		if reg, ok := parent.locals[v]; ok {
			desc = luair.UpvalueDescriptor{Name: v.Name, InStack: true, Index: int(reg)}
		} else if slot, ok := parent.upvals[v]; ok {
			desc = luair.UpvalueDescriptor{Name: v.Name, InStack: false, Index: int(slot)}
		} else {
			return nil, invariantf(pos, "captured variable '%s' not found in enclosing function", v.Name)
		}
		fs.upvals[v] = luair.UpvalueIndex(len(fs.fn.Upvalues))
		fs.fn.Upvalues = append(fs.fn.Upvalues, desc)
	}

	if parent != nil {
		fs.id = luair.FunctionID(len(t.module.Functions))
		t.module.Functions = append(t.module.Functions, fs.fn)
	}
	return fs, nil
}

func (t *translator) block(fs *funcState, b *luasyntax.Block) error {
	for _, s := range b.Stats {
		if err := t.statement(fs, s); err != nil {
			return err
		}
	}
	if b.Return != nil {
		return t.returnStat(fs, b.Return)
	}
	return nil
}

func (t *translator) statement(fs *funcState, s luasyntax.Stat) error {
	switch s := s.(type) {
	case *luasyntax.LocalStat:
		return t.localStat(fs, s)
	case *luasyntax.LocalFunctionStat:
		return t.localFunctionStat(fs, s)
	case *luasyntax.AssignStat:
		return t.assignStat(fs, s)
	case *luasyntax.CallStat:
		_, err := t.exprMulti(fs, s.Call)
		return err
	case *luasyntax.DoStat:
		return t.block(fs, s.Body)
	case *luasyntax.WhileStat:
		return t.whileStat(fs, s)
	case *luasyntax.RepeatStat:
		return t.repeatStat(fs, s)
	case *luasyntax.IfStat:
		return t.ifStat(fs, s)
	case *luasyntax.NumericForStat:
		return t.numericForStat(fs, s)
	case *luasyntax.GenericForStat:
		return t.genericForStat(fs, s)
	case *luasyntax.LabelStat:
		sem, err := t.info.Label(s)
		if err != nil {
			return err
		}
		fs.continueAt(fs.labelFor(sem, s.Pos()))
		return nil
	case *luasyntax.GotoStat:
		sem, err := t.info.Label(s)
		if err != nil {
			return err
		}
		fs.terminate(&luair.Jmp{Target: fs.labelFor(sem, s.Pos())})
		fs.startBlock(fs.newLabel())
		return nil
	case *luasyntax.BreakStat:
		exit, ok := fs.breakTarget()
		if !ok {
			return invariantf(s.Pos(), "break outside any loop")
		}
		fs.terminate(&luair.Jmp{Target: exit})
		fs.startBlock(fs.newLabel())
		return nil
	case *luasyntax.ReturnStat:
		return t.returnStat(fs, s)
	default:
		return invariantf(s.Pos(), "unknown statement type %T", s)
	}
}

func (t *translator) localStat(fs *funcState, s *luasyntax.LocalStat) error {
	mapping, err := t.info.VarMapping(s)
	if err != nil {
		return err
	}
	vals, err := t.explistAdjusted(fs, s.Values, len(s.Names))
	if err != nil {
		return err
	}
	for i, n := range s.Names {
		v := mapping[n.Name]
		if v == nil {
			return invariantf(n.Pos(), "local '%s' missing from variable mapping", n.Name)
		}
		reg := fs.newVal()
		fs.locals[v] = reg
		fs.emit(&luair.Mov{Dest: reg, Src: vals[i]})
	}
	return nil
}

func (t *translator) localFunctionStat(fs *funcState, s *luasyntax.LocalFunctionStat) error {
	mapping, err := t.info.VarMapping(s)
	if err != nil {
		return err
	}
	v := mapping[s.Name.Name]
	if v == nil {
		return invariantf(s.Name.Pos(), "local '%s' missing from variable mapping", s.Name.Name)
	}
	// The register is bound before the closure is built
	// so the function body can capture itself.
	reg := fs.newVal()
	fs.locals[v] = reg
	c, err := t.closure(fs, s.Func)
	if err != nil {
		return err
	}
	fs.emit(&luair.Mov{Dest: reg, Src: c})
	return nil
}

// assignTarget is the evaluated left-hand side of one assignment slot.
type assignTarget struct {
	use luasem.VariableUse
	// slot is the upvalue index for upvalue targets.
	slot luair.UpvalueIndex
	// obj and key are the evaluated table and key for index targets.
	obj, key luair.Val
	isIndex  bool
}

func (t *translator) assignStat(fs *funcState, s *luasyntax.AssignStat) error {
	// Targets are evaluated before the right-hand side:
	// a table-field target's table and key come first.
	targets := make([]assignTarget, len(s.Targets))
	for i, target := range s.Targets {
		switch target := target.(type) {
		case *luasyntax.NameExpr:
			use, err := t.info.VariableUse(target)
			if err != nil {
				return err
			}
			targets[i].use = use
			if use.Kind == luasem.VariableUseUpvalue {
				slot, ok := fs.upvals[use.Var]
				if !ok {
					return invariantf(target.Pos(), "upvalue '%s' has no slot", target.Name)
				}
				targets[i].slot = slot
			}
		case *luasyntax.IndexExpr:
			obj, err := t.exprSingle(fs, target.X)
			if err != nil {
				return err
			}
			key, err := t.exprSingle(fs, target.Key)
			if err != nil {
				return err
			}
			targets[i] = assignTarget{obj: obj, key: key, isIndex: true}
		default:
			return invariantf(target.Pos(), "cannot assign to %T", target)
		}
	}

	vals, err := t.explistAdjusted(fs, s.Values, len(s.Targets))
	if err != nil {
		return err
	}

	// Stores happen in source order.
	for i, target := range targets {
		src := vals[i]
		switch {
		case target.isIndex:
			fs.emit(&luair.TabSet{Obj: target.obj, Key: target.key, Src: src})
		case target.use.Kind == luasem.VariableUseLocal:
			reg, ok := fs.locals[target.use.Var]
			if !ok {
				return invariantf(s.Targets[i].Pos(), "local '%s' has no register", target.use.Var.Name)
			}
			fs.emit(&luair.Mov{Dest: reg, Src: src})
		case target.use.Kind == luasem.VariableUseUpvalue:
			fs.emit(&luair.UpvalStore{Upval: target.slot, Src: src})
		default:
			fs.emit(&luair.GlobalStore{Name: target.use.Name, Src: src})
		}
	}
	return nil
}

func (t *translator) whileStat(fs *funcState, s *luasyntax.WhileStat) error {
	header := fs.newLabel()
	body := fs.newLabel()
	exit := fs.newLabel()

	fs.continueAt(header)
	cond, err := t.exprSingle(fs, s.Cond)
	if err != nil {
		return err
	}
	fs.terminate(&luair.Cjmp{Cond: cond, True: body, False: exit})
	fs.startBlock(body)

	fs.pushBreak(exit)
	err = t.block(fs, s.Body)
	fs.popBreak()
	if err != nil {
		return err
	}

	fs.terminate(&luair.Jmp{Target: header})
	fs.startBlock(exit)
	return nil
}

func (t *translator) repeatStat(fs *funcState, s *luasyntax.RepeatStat) error {
	body := fs.newLabel()
	cond := fs.newLabel()
	exit := fs.newLabel()

	fs.continueAt(body)
	fs.pushBreak(exit)
	err := t.block(fs, s.Body)
	fs.popBreak()
	if err != nil {
		return err
	}

	// The condition still sees the body's local bindings.
	fs.continueAt(cond)
	c, err := t.exprSingle(fs, s.Cond)
	if err != nil {
		return err
	}
	fs.terminate(&luair.Cjmp{Cond: c, True: exit, False: body})
	fs.startBlock(exit)
	return nil
}

func (t *translator) ifStat(fs *funcState, s *luasyntax.IfStat) error {
	join := fs.newLabel()
	for i, cond := range s.Conds {
		c, err := t.exprSingle(fs, cond)
		if err != nil {
			return err
		}
		then := fs.newLabel()
		last := i == len(s.Conds)-1
		// An absent else arm is a direct jump to the join.
		otherwise := join
		if !last || s.Else != nil {
			otherwise = fs.newLabel()
		}
		fs.terminate(&luair.Cjmp{Cond: c, True: then, False: otherwise})

		fs.startBlock(then)
		if err := t.block(fs, s.Blocks[i]); err != nil {
			return err
		}
		fs.terminate(&luair.Jmp{Target: join})

		if otherwise != join {
			fs.startBlock(otherwise)
		}
	}
	if s.Else != nil {
		if err := t.block(fs, s.Else); err != nil {
			return err
		}
		fs.terminate(&luair.Jmp{Target: join})
	}
	fs.startBlock(join)
	return nil
}

// isZeroStep reports whether a numeric for's step is a literal zero.
func isZeroStep(e luasyntax.Expr) bool {
	n, ok := e.(*luasyntax.NumberExpr)
	if !ok {
		return false
	}
	if n.IsInt {
		return n.Int == 0
	}
	return n.Float == 0
}

func (t *translator) numericForStat(fs *funcState, s *luasyntax.NumericForStat) error {
	mapping, err := t.info.VarMapping(s)
	if err != nil {
		return err
	}
	v := mapping[s.Name.Name]
	if v == nil {
		return invariantf(s.Name.Pos(), "loop variable '%s' missing from variable mapping", s.Name.Name)
	}

	// Evaluate start, limit, and step (defaulting to 1)
	// into fresh control registers.
	start, err := t.exprSingle(fs, s.Start)
	if err != nil {
		return err
	}
	limit, err := t.exprSingle(fs, s.Limit)
	if err != nil {
		return err
	}
	var step luair.Val
	if s.Step != nil {
		if step, err = t.exprSingle(fs, s.Step); err != nil {
			return err
		}
	} else {
		step = fs.newVal()
		fs.emit(&luair.LoadConst{Dest: step, Value: luair.IntegerValue(1)})
	}
	iReg := fs.newVal()
	fs.emit(&luair.Mov{Dest: iReg, Src: start})
	limitReg := fs.newVal()
	fs.emit(&luair.Mov{Dest: limitReg, Src: limit})
	stepReg := fs.newVal()
	fs.emit(&luair.Mov{Dest: stepReg, Src: step})

	// The iteration convention: coerce the three controls,
	// selecting the integer or float loop,
	// and raise at runtime on a zero step.
	fs.emit(&luair.ForPrep{Var: iReg, Limit: limitReg, Step: stepReg})
	if s.Step != nil && isZeroStep(s.Step) {
		fs.emit(&luair.RaiseError{Message: "'for' step is zero"})
	}

	header := fs.newLabel()
	checkUp := fs.newLabel()
	checkDown := fs.newLabel()
	body := fs.newLabel()
	exit := fs.newLabel()

	// The loop test depends on the step's sign:
	// i <= limit counting up, limit <= i counting down.
	fs.continueAt(header)
	zero := fs.newVal()
	fs.emit(&luair.LoadConst{Dest: zero, Value: luair.IntegerValue(0)})
	stepPos := fs.newVal()
	fs.emit(&luair.BinOp{Op: luair.LT, Dest: stepPos, Left: zero, Right: stepReg})
	fs.terminate(&luair.Cjmp{Cond: stepPos, True: checkUp, False: checkDown})

	fs.startBlock(checkUp)
	up := fs.newVal()
	fs.emit(&luair.BinOp{Op: luair.LE, Dest: up, Left: iReg, Right: limitReg})
	fs.terminate(&luair.Cjmp{Cond: up, True: body, False: exit})

	fs.startBlock(checkDown)
	down := fs.newVal()
	fs.emit(&luair.BinOp{Op: luair.LE, Dest: down, Left: limitReg, Right: iReg})
	fs.terminate(&luair.Cjmp{Cond: down, True: body, False: exit})

	// The loop variable is a per-iteration copy visible only in the body.
	fs.startBlock(body)
	userReg := fs.newVal()
	fs.locals[v] = userReg
	fs.emit(&luair.Mov{Dest: userReg, Src: iReg})

	fs.pushBreak(exit)
	err = t.block(fs, s.Body)
	fs.popBreak()
	if err != nil {
		return err
	}

	fs.emit(&luair.BinOp{Op: luair.ADD, Dest: iReg, Left: iReg, Right: stepReg})
	fs.terminate(&luair.Jmp{Target: header})
	fs.startBlock(exit)
	return nil
}

func (t *translator) genericForStat(fs *funcState, s *luasyntax.GenericForStat) error {
	mapping, err := t.info.VarMapping(s)
	if err != nil {
		return err
	}

	// The explist adjusts to three values:
	// iterator function, state, and initial control.
	vals, err := t.explistAdjusted(fs, s.Values, 3)
	if err != nil {
		return err
	}
	fReg := fs.newVal()
	fs.emit(&luair.Mov{Dest: fReg, Src: vals[0]})
	stateReg := fs.newVal()
	fs.emit(&luair.Mov{Dest: stateReg, Src: vals[1]})
	ctrlReg := fs.newVal()
	fs.emit(&luair.Mov{Dest: ctrlReg, Src: vals[2]})

	header := fs.newLabel()
	body := fs.newLabel()
	exit := fs.newLabel()

	// Each iteration calls the iterator with state and control;
	// a nil first result ends the loop.
	fs.continueAt(header)
	res := fs.newMulti()
	fs.emit(&luair.Call{Dest: res, Fn: fReg, Args: []luair.Val{stateReg, ctrlReg}, Tail: luair.NoMultiVal})
	first := fs.newVal()
	fs.emit(&luair.MultiGet{Dest: first, Src: res, Index: 0})
	nilReg := fs.newVal()
	fs.emit(&luair.LoadConst{Dest: nilReg, Value: luair.Value{}})
	isNil := fs.newVal()
	fs.emit(&luair.BinOp{Op: luair.EQ, Dest: isNil, Left: first, Right: nilReg})
	fs.terminate(&luair.Cjmp{Cond: isNil, True: exit, False: body})

	fs.startBlock(body)
	fs.emit(&luair.Mov{Dest: ctrlReg, Src: first})
	for i, n := range s.Names {
		v := mapping[n.Name]
		if v == nil {
			return invariantf(n.Pos(), "loop variable '%s' missing from variable mapping", n.Name)
		}
		reg := fs.newVal()
		fs.locals[v] = reg
		if i == 0 {
			fs.emit(&luair.Mov{Dest: reg, Src: first})
		} else {
			fs.emit(&luair.MultiGet{Dest: reg, Src: res, Index: i})
		}
	}

	fs.pushBreak(exit)
	err = t.block(fs, s.Body)
	fs.popBreak()
	if err != nil {
		return err
	}

	fs.terminate(&luair.Jmp{Target: header})
	fs.startBlock(exit)
	return nil
}

func (t *translator) returnStat(fs *funcState, s *luasyntax.ReturnStat) error {
	// "return f(...)" is a tail call.
	if len(s.Values) == 1 {
		switch call := s.Values[0].(type) {
		case *luasyntax.CallExpr:
			fn, args, tail, err := t.callParts(fs, call.Fn, nil, call.Args)
			if err != nil {
				return err
			}
			fs.terminate(&luair.TailCall{Fn: fn, Args: args, Tail: tail})
			fs.startBlock(fs.newLabel())
			return nil
		case *luasyntax.MethodCallExpr:
			fn, args, tail, err := t.methodCallParts(fs, call)
			if err != nil {
				return err
			}
			fs.terminate(&luair.TailCall{Fn: fn, Args: args, Tail: tail})
			fs.startBlock(fs.newLabel())
			return nil
		}
	}

	var fixed []luair.Val
	tail := luair.NoMultiVal
	for i, e := range s.Values {
		if i == len(s.Values)-1 && luasyntax.IsMultiValue(e) {
			m, err := t.exprMulti(fs, e)
			if err != nil {
				return err
			}
			tail = m
			break
		}
		v, err := t.exprSingle(fs, e)
		if err != nil {
			return err
		}
		fixed = append(fixed, v)
	}
	fs.terminate(&luair.Ret{Values: fixed, Tail: tail})
	// Trailing code lands in an unreachable block
	// that is discarded when the function closes.
	fs.startBlock(fs.newLabel())
	return nil
}

// explistAdjusted translates an expression list adjusted to exactly n
// values: a trailing multi-value producer expands into the remaining
// slots, missing slots are filled with nil, and extra expressions are
// evaluated for their side effects and discarded.
func (t *translator) explistAdjusted(fs *funcState, exprs []luasyntax.Expr, n int) ([]luair.Val, error) {
	vals := make([]luair.Val, 0, n)
	for i, e := range exprs {
		if i == len(exprs)-1 && luasyntax.IsMultiValue(e) && len(vals) < n {
			m, err := t.exprMulti(fs, e)
			if err != nil {
				return nil, err
			}
			for j := 0; len(vals) < n; j++ {
				reg := fs.newVal()
				fs.emit(&luair.MultiGet{Dest: reg, Src: m, Index: j})
				vals = append(vals, reg)
			}
			return vals, nil
		}
		v, err := t.exprSingle(fs, e)
		if err != nil {
			return nil, err
		}
		if len(vals) < n {
			vals = append(vals, v)
		}
	}
	for len(vals) < n {
		reg := fs.newVal()
		fs.emit(&luair.LoadConst{Dest: reg, Value: luair.Value{}})
		vals = append(vals, reg)
	}
	return vals, nil
}

// exprSingle translates an expression in single-value context.
func (t *translator) exprSingle(fs *funcState, e luasyntax.Expr) (luair.Val, error) {
	switch e := e.(type) {
	case *luasyntax.NilExpr:
		reg := fs.newVal()
		fs.emit(&luair.LoadConst{Dest: reg, Value: luair.Value{}})
		return reg, nil
	case *luasyntax.BoolExpr:
		reg := fs.newVal()
		fs.emit(&luair.LoadConst{Dest: reg, Value: luair.BoolValue(e.Value)})
		return reg, nil
	case *luasyntax.NumberExpr:
		reg := fs.newVal()
		if e.IsInt {
			fs.emit(&luair.LoadConst{Dest: reg, Value: luair.IntegerValue(e.Int)})
		} else {
			fs.emit(&luair.LoadConst{Dest: reg, Value: luair.FloatValue(e.Float)})
		}
		return reg, nil
	case *luasyntax.StringExpr:
		reg := fs.newVal()
		fs.emit(&luair.LoadConst{Dest: reg, Value: luair.StringValue(e.Value)})
		return reg, nil
	case *luasyntax.NameExpr:
		return t.nameExpr(fs, e)
	case *luasyntax.IndexExpr:
		obj, err := t.exprSingle(fs, e.X)
		if err != nil {
			return 0, err
		}
		key, err := t.exprSingle(fs, e.Key)
		if err != nil {
			return 0, err
		}
		reg := fs.newVal()
		fs.emit(&luair.TabGet{Dest: reg, Obj: obj, Key: key})
		return reg, nil
	case *luasyntax.ParenExpr:
		// Parentheses truncate to one value,
		// which single-value context already does.
		return t.exprSingle(fs, e.X)
	case *luasyntax.VarargExpr, *luasyntax.CallExpr, *luasyntax.MethodCallExpr:
		m, err := t.exprMulti(fs, e)
		if err != nil {
			return 0, err
		}
		reg := fs.newVal()
		fs.emit(&luair.MultiGet{Dest: reg, Src: m, Index: 0})
		return reg, nil
	case *luasyntax.FunctionExpr:
		return t.closure(fs, e)
	case *luasyntax.TableExpr:
		return t.tableExpr(fs, e)
	case *luasyntax.UnaryExpr:
		op, ok := unaryOpCode(e.Op)
		if !ok {
			return 0, invariantf(e.Pos(), "no IR opcode for unary operator %v", e.Op)
		}
		operand, err := t.exprSingle(fs, e.Operand)
		if err != nil {
			return 0, err
		}
		reg := fs.newVal()
		fs.emit(&luair.UnOp{Op: op, Dest: reg, Operand: operand})
		return reg, nil
	case *luasyntax.BinaryExpr:
		return t.binaryExpr(fs, e)
	default:
		return 0, invariantf(e.Pos(), "unknown expression type %T", e)
	}
}

func (t *translator) nameExpr(fs *funcState, e *luasyntax.NameExpr) (luair.Val, error) {
	use, err := t.info.VariableUse(e)
	if err != nil {
		return 0, err
	}
	switch use.Kind {
	case luasem.VariableUseLocal:
		reg, ok := fs.locals[use.Var]
		if !ok {
			return 0, invariantf(e.Pos(), "local '%s' has no register", use.Var.Name)
		}
		return reg, nil
	case luasem.VariableUseUpvalue:
		slot, ok := fs.upvals[use.Var]
		if !ok {
			return 0, invariantf(e.Pos(), "upvalue '%s' has no slot", use.Var.Name)
		}
		reg := fs.newVal()
		fs.emit(&luair.UpvalLoad{Dest: reg, Upval: slot})
		return reg, nil
	default:
		reg := fs.newVal()
		fs.emit(&luair.GlobalLoad{Dest: reg, Name: use.Name})
		return reg, nil
	}
}

func (t *translator) binaryExpr(fs *funcState, e *luasyntax.BinaryExpr) (luair.Val, error) {
	switch e.Op {
	case luasyntax.BinaryOperatorAnd, luasyntax.BinaryOperatorOr:
		// Short-circuit lowering.
		// The IR is not SSA,
		// so both paths store into one pre-allocated register.
		dest := fs.newVal()
		left, err := t.exprSingle(fs, e.Left)
		if err != nil {
			return 0, err
		}
		fs.emit(&luair.Mov{Dest: dest, Src: left})
		rhs := fs.newLabel()
		join := fs.newLabel()
		if e.Op == luasyntax.BinaryOperatorAnd {
			fs.terminate(&luair.Cjmp{Cond: left, True: rhs, False: join})
		} else {
			fs.terminate(&luair.Cjmp{Cond: left, True: join, False: rhs})
		}
		fs.startBlock(rhs)
		right, err := t.exprSingle(fs, e.Right)
		if err != nil {
			return 0, err
		}
		fs.emit(&luair.Mov{Dest: dest, Src: right})
		fs.continueAt(join)
		return dest, nil
	case luasyntax.BinaryOperatorGT, luasyntax.BinaryOperatorGE:
		// a > b is b < a; a >= b is b <= a.
		// Operands still evaluate left to right.
		op := luair.LT
		if e.Op == luasyntax.BinaryOperatorGE {
			op = luair.LE
		}
		left, err := t.exprSingle(fs, e.Left)
		if err != nil {
			return 0, err
		}
		right, err := t.exprSingle(fs, e.Right)
		if err != nil {
			return 0, err
		}
		reg := fs.newVal()
		fs.emit(&luair.BinOp{Op: op, Dest: reg, Left: right, Right: left})
		return reg, nil
	default:
		op, ok := binaryOpCode(e.Op)
		if !ok {
			return 0, invariantf(e.Pos(), "no IR opcode for binary operator %v", e.Op)
		}
		left, err := t.exprSingle(fs, e.Left)
		if err != nil {
			return 0, err
		}
		right, err := t.exprSingle(fs, e.Right)
		if err != nil {
			return 0, err
		}
		reg := fs.newVal()
		fs.emit(&luair.BinOp{Op: op, Dest: reg, Left: left, Right: right})
		return reg, nil
	}
}

func (t *translator) tableExpr(fs *funcState, e *luasyntax.TableExpr) (luair.Val, error) {
	reg := fs.newVal()
	fs.emit(&luair.TabNew{Dest: reg})
	arrayIndex := int64(1)
	for i, f := range e.Fields {
		if f.Key != nil {
			key, err := t.exprSingle(fs, f.Key)
			if err != nil {
				return 0, err
			}
			value, err := t.exprSingle(fs, f.Value)
			if err != nil {
				return 0, err
			}
			fs.emit(&luair.TabSet{Obj: reg, Key: key, Src: value})
			continue
		}
		// A trailing producer expands into the array part.
		if i == len(e.Fields)-1 && luasyntax.IsMultiValue(f.Value) {
			m, err := t.exprMulti(fs, f.Value)
			if err != nil {
				return 0, err
			}
			fs.emit(&luair.TabAppendMulti{Obj: reg, Src: m, FirstIndex: arrayIndex})
			continue
		}
		key := fs.newVal()
		fs.emit(&luair.LoadConst{Dest: key, Value: luair.IntegerValue(arrayIndex)})
		arrayIndex++
		value, err := t.exprSingle(fs, f.Value)
		if err != nil {
			return 0, err
		}
		fs.emit(&luair.TabSet{Obj: reg, Key: key, Src: value})
	}
	return reg, nil
}

// exprMulti translates a multi-value producer
// (call, method call, or vararg) in multi-value context.
func (t *translator) exprMulti(fs *funcState, e luasyntax.Expr) (luair.MultiVal, error) {
	switch e := e.(type) {
	case *luasyntax.CallExpr:
		fn, args, tail, err := t.callParts(fs, e.Fn, nil, e.Args)
		if err != nil {
			return 0, err
		}
		m := fs.newMulti()
		fs.emit(&luair.Call{Dest: m, Fn: fn, Args: args, Tail: tail})
		return m, nil
	case *luasyntax.MethodCallExpr:
		fn, args, tail, err := t.methodCallParts(fs, e)
		if err != nil {
			return 0, err
		}
		m := fs.newMulti()
		fs.emit(&luair.Call{Dest: m, Fn: fn, Args: args, Tail: tail})
		return m, nil
	case *luasyntax.VarargExpr:
		m := fs.newMulti()
		fs.emit(&luair.Vararg{Dest: m})
		return m, nil
	default:
		return 0, invariantf(e.Pos(), "%T is not a multi-value producer", e)
	}
}

// callParts evaluates a call's function and arguments.
// Extra leading arguments (the receiver of a method call)
// are passed through receiver.
func (t *translator) callParts(fs *funcState, fnExpr luasyntax.Expr, receiver []luair.Val, argExprs []luasyntax.Expr) (fn luair.Val, args []luair.Val, tail luair.MultiVal, err error) {
	fn, err = t.exprSingle(fs, fnExpr)
	if err != nil {
		return 0, nil, 0, err
	}
	args = append(args, receiver...)
	tail = luair.NoMultiVal
	for i, a := range argExprs {
		if i == len(argExprs)-1 && luasyntax.IsMultiValue(a) {
			m, err := t.exprMulti(fs, a)
			if err != nil {
				return 0, nil, 0, err
			}
			tail = m
			break
		}
		v, err := t.exprSingle(fs, a)
		if err != nil {
			return 0, nil, 0, err
		}
		args = append(args, v)
	}
	return fn, args, tail, nil
}

// methodCallParts lowers "obj:m(args)" into
// a lookup of "m" on obj and a call with obj prepended.
func (t *translator) methodCallParts(fs *funcState, e *luasyntax.MethodCallExpr) (fn luair.Val, args []luair.Val, tail luair.MultiVal, err error) {
	obj, err := t.exprSingle(fs, e.X)
	if err != nil {
		return 0, nil, 0, err
	}
	key := fs.newVal()
	fs.emit(&luair.LoadConst{Dest: key, Value: luair.StringValue(e.Method)})
	fn = fs.newVal()
	fs.emit(&luair.TabGet{Dest: fn, Obj: obj, Key: key})

	tail = luair.NoMultiVal
	args = []luair.Val{obj}
	for i, a := range e.Args {
		if i == len(e.Args)-1 && luasyntax.IsMultiValue(a) {
			m, err := t.exprMulti(fs, a)
			if err != nil {
				return 0, nil, 0, err
			}
			tail = m
			break
		}
		v, err := t.exprSingle(fs, a)
		if err != nil {
			return 0, nil, 0, err
		}
		args = append(args, v)
	}
	return fn, args, tail, nil
}

// closure translates a function literal by recursive translation,
// then emits a closure node listing the enclosing function's
// contribution to each upvalue:
// a local register or one of its own upvalue slots.
func (t *translator) closure(fs *funcState, fe *luasyntax.FunctionExpr) (luair.Val, error) {
	fi, err := t.info.FunctionInfo(fe)
	if err != nil {
		return 0, err
	}
	name := fmt.Sprintf("function <%v>", fe.Pos())
	child, err := t.openFunction(fs, fi, name, fe.Pos())
	if err != nil {
		return 0, err
	}
	if err := t.block(child, fe.Body); err != nil {
		return 0, err
	}
	fn, err := child.close()
	if err != nil {
		return 0, err
	}

	sources := make([]luair.UpvalueSource, len(fn.Upvalues))
	for i, desc := range fn.Upvalues {
		if desc.InStack {
			sources[i] = luair.UpvalueSource{InStack: true, Register: luair.Val(desc.Index)}
		} else {
			sources[i] = luair.UpvalueSource{Slot: luair.UpvalueIndex(desc.Index)}
		}
	}
	reg := fs.newVal()
	fs.emit(&luair.Closure{Dest: reg, Function: child.id, Upvalues: sources})
	return reg, nil
}
