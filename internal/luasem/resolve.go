// Copyright 2025 The Rembulan Authors
// SPDX-License-Identifier: MIT

package luasem

import (
	"fmt"

	"github.com/luavixen/rembulan-sub001/internal/luasyntax"
)

// Resolve analyzes a chunk and returns its attribute side tables.
// The chunk is treated as an anonymous vararg function.
//
// Errors returned by Resolve are user diagnostics:
// undefined or duplicate labels, gotos that would enter a local's scope,
// and use of '...' outside a vararg function.
func Resolve(chunk *luasyntax.Block) (*Info, error) {
	r := &resolver{info: newInfo()}
	r.pushFunction()
	r.fn.info.IsVararg = true
	r.info.functions[chunk] = r.fn.info
	if err := r.block(chunk); err != nil {
		return nil, err
	}
	r.fn = r.fn.parent
	return r.info, nil
}

type resolver struct {
	info *Info
	fn   *funcScope
}

// funcScope is the resolution state of one function under analysis.
type funcScope struct {
	parent *funcScope
	info   *FunctionInfo
	blocks []*blockScope
}

// blockScope is one lexical block of the current function.
type blockScope struct {
	vars   map[string]*Variable
	labels map[string]*labelDef
	// localCount is the number of locals declared in this block so far.
	localCount int
}

// labelDef is a label definition together with the scope facts
// needed to validate gotos that target it.
type labelDef struct {
	label *Label
	// localCount is the number of locals declared in the block
	// before the label's definition.
	localCount int
	// last reports that only other labels follow the definition
	// in its block, so the block's locals are out of scope at the jump.
	last bool
}

func (r *resolver) pushFunction() {
	r.fn = &funcScope{parent: r.fn, info: new(FunctionInfo)}
}

func (r *resolver) pushBlock() *blockScope {
	bs := &blockScope{
		vars:   make(map[string]*Variable),
		labels: make(map[string]*labelDef),
	}
	r.fn.blocks = append(r.fn.blocks, bs)
	return bs
}

func (r *resolver) popBlock() {
	r.fn.blocks = r.fn.blocks[:len(r.fn.blocks)-1]
}

// declare creates a binding for a new local variable
// in the innermost block scope.
func (r *resolver) declare(name string) *Variable {
	v := &Variable{Name: name}
	r.fn.info.Locals = append(r.fn.info.Locals, v)
	bs := r.fn.blocks[len(r.fn.blocks)-1]
	bs.vars[name] = v
	bs.localCount++
	return v
}

// lookup finds a local binding in the function's block stack,
// innermost block first.
func (f *funcScope) lookup(name string) *Variable {
	for i := len(f.blocks) - 1; i >= 0; i-- {
		if v, ok := f.blocks[i].vars[name]; ok {
			return v
		}
	}
	return nil
}

// addUpvalue records that f captures v, preserving first-use order.
func (f *funcScope) addUpvalue(v *Variable) {
	for _, u := range f.info.Upvalues {
		if u == v {
			return
		}
	}
	f.info.Upvalues = append(f.info.Upvalues, v)
}

func (r *resolver) block(b *luasyntax.Block) error {
	r.pushBlock()
	defer r.popBlock()
	if err := r.scanLabels(b); err != nil {
		return err
	}
	for _, s := range b.Stats {
		if err := r.statement(s); err != nil {
			return err
		}
	}
	if b.Return != nil {
		for _, e := range b.Return.Values {
			if err := r.expr(e); err != nil {
				return err
			}
		}
	}
	return nil
}

// scanLabels registers the labels defined directly in a block
// before its statements are resolved,
// so that forward gotos inside the block can see them.
func (r *resolver) scanLabels(b *luasyntax.Block) error {
	bs := r.fn.blocks[len(r.fn.blocks)-1]
	nLocals := 0
	for i, s := range b.Stats {
		switch s := s.(type) {
		case *luasyntax.LocalStat:
			nLocals += len(s.Names)
		case *luasyntax.LocalFunctionStat:
			nLocals++
		case *luasyntax.LabelStat:
			if _, exists := bs.labels[s.Name]; exists {
				return fmt.Errorf("%v: label '%s' already defined", s.Pos(), s.Name)
			}
			l := &Label{Name: s.Name}
			bs.labels[s.Name] = &labelDef{
				label:      l,
				localCount: nLocals,
				last:       onlyLabelsFollow(b.Stats[i+1:]),
			}
			r.info.labels[s] = l
		}
	}
	return nil
}

func onlyLabelsFollow(stats []luasyntax.Stat) bool {
	for _, s := range stats {
		if _, isLabel := s.(*luasyntax.LabelStat); !isLabel {
			return false
		}
	}
	return true
}

func (r *resolver) statement(s luasyntax.Stat) error {
	switch s := s.(type) {
	case *luasyntax.LocalStat:
		for _, e := range s.Values {
			if err := r.expr(e); err != nil {
				return err
			}
		}
		m := make(map[string]*Variable, len(s.Names))
		for _, n := range s.Names {
			m[n.Name] = r.declare(n.Name)
		}
		r.info.varMappings[s] = m
		return nil
	case *luasyntax.LocalFunctionStat:
		// The binding is visible inside the function body.
		v := r.declare(s.Name.Name)
		r.info.varMappings[s] = map[string]*Variable{s.Name.Name: v}
		return r.function(s.Func)
	case *luasyntax.AssignStat:
		for _, t := range s.Targets {
			if err := r.expr(t); err != nil {
				return err
			}
		}
		for _, e := range s.Values {
			if err := r.expr(e); err != nil {
				return err
			}
		}
		return nil
	case *luasyntax.CallStat:
		return r.expr(s.Call)
	case *luasyntax.DoStat:
		return r.block(s.Body)
	case *luasyntax.WhileStat:
		if err := r.expr(s.Cond); err != nil {
			return err
		}
		return r.block(s.Body)
	case *luasyntax.RepeatStat:
		// The condition is resolved inside the body's scope:
		// it can see the body's local variables.
		r.pushBlock()
		defer r.popBlock()
		if err := r.scanLabels(s.Body); err != nil {
			return err
		}
		for _, inner := range s.Body.Stats {
			if err := r.statement(inner); err != nil {
				return err
			}
		}
		if s.Body.Return != nil {
			for _, e := range s.Body.Return.Values {
				if err := r.expr(e); err != nil {
					return err
				}
			}
		}
		return r.expr(s.Cond)
	case *luasyntax.IfStat:
		for i, cond := range s.Conds {
			if err := r.expr(cond); err != nil {
				return err
			}
			if err := r.block(s.Blocks[i]); err != nil {
				return err
			}
		}
		if s.Else != nil {
			return r.block(s.Else)
		}
		return nil
	case *luasyntax.NumericForStat:
		if err := r.expr(s.Start); err != nil {
			return err
		}
		if err := r.expr(s.Limit); err != nil {
			return err
		}
		if s.Step != nil {
			if err := r.expr(s.Step); err != nil {
				return err
			}
		}
		r.pushBlock()
		defer r.popBlock()
		r.info.varMappings[s] = map[string]*Variable{s.Name.Name: r.declare(s.Name.Name)}
		return r.block(s.Body)
	case *luasyntax.GenericForStat:
		for _, e := range s.Values {
			if err := r.expr(e); err != nil {
				return err
			}
		}
		r.pushBlock()
		defer r.popBlock()
		m := make(map[string]*Variable, len(s.Names))
		for _, n := range s.Names {
			m[n.Name] = r.declare(n.Name)
		}
		r.info.varMappings[s] = m
		return r.block(s.Body)
	case *luasyntax.LabelStat:
		// Registered by scanLabels.
		return nil
	case *luasyntax.GotoStat:
		return r.resolveGoto(s)
	case *luasyntax.BreakStat:
		// Validity is the translator's concern.
		return nil
	default:
		return fmt.Errorf("%v: unknown statement type %T", s.Pos(), s)
	}
}

func (r *resolver) resolveGoto(s *luasyntax.GotoStat) error {
	for i := len(r.fn.blocks) - 1; i >= 0; i-- {
		bs := r.fn.blocks[i]
		def, ok := bs.labels[s.Name]
		if !ok {
			continue
		}
		// A goto may not jump into the scope of a local declared
		// after the point the jump leaves,
		// unless the label sits at the end of its block.
		if def.localCount > bs.localCount && !def.last {
			return fmt.Errorf("%v: goto '%s' jumps into the scope of a local variable", s.Pos(), s.Name)
		}
		r.info.labels[s] = def.label
		return nil
	}
	return fmt.Errorf("%v: no visible label '%s' for goto", s.Pos(), s.Name)
}

func (r *resolver) function(fe *luasyntax.FunctionExpr) error {
	r.pushFunction()
	fi := r.fn.info
	fi.IsVararg = fe.IsVararg
	r.info.functions[fe] = fi

	bs := r.pushBlock()
	for _, p := range fe.Params {
		v := &Variable{Name: p.Name}
		fi.Params = append(fi.Params, v)
		bs.vars[p.Name] = v
	}
	err := r.block(fe.Body)
	r.popBlock()
	r.fn = r.fn.parent
	return err
}

func (r *resolver) expr(e luasyntax.Expr) error {
	switch e := e.(type) {
	case *luasyntax.NameExpr:
		return r.useName(e)
	case *luasyntax.IndexExpr:
		if err := r.expr(e.X); err != nil {
			return err
		}
		return r.expr(e.Key)
	case *luasyntax.CallExpr:
		if err := r.expr(e.Fn); err != nil {
			return err
		}
		for _, a := range e.Args {
			if err := r.expr(a); err != nil {
				return err
			}
		}
		return nil
	case *luasyntax.MethodCallExpr:
		if err := r.expr(e.X); err != nil {
			return err
		}
		for _, a := range e.Args {
			if err := r.expr(a); err != nil {
				return err
			}
		}
		return nil
	case *luasyntax.FunctionExpr:
		return r.function(e)
	case *luasyntax.TableExpr:
		for _, f := range e.Fields {
			if f.Key != nil {
				if err := r.expr(f.Key); err != nil {
					return err
				}
			}
			if err := r.expr(f.Value); err != nil {
				return err
			}
		}
		return nil
	case *luasyntax.BinaryExpr:
		if err := r.expr(e.Left); err != nil {
			return err
		}
		return r.expr(e.Right)
	case *luasyntax.UnaryExpr:
		return r.expr(e.Operand)
	case *luasyntax.ParenExpr:
		return r.expr(e.X)
	case *luasyntax.VarargExpr:
		if !r.fn.info.IsVararg {
			return fmt.Errorf("%v: cannot use '...' outside a vararg function", e.Pos())
		}
		return nil
	default:
		// Literals resolve to themselves.
		return nil
	}
}

// useName resolves a variable reference,
// capturing it as an upvalue through every intervening function
// when the binding belongs to an enclosing one.
func (r *resolver) useName(e *luasyntax.NameExpr) error {
	if v := r.fn.lookup(e.Name); v != nil {
		r.info.variables[e] = VariableUse{Kind: VariableUseLocal, Var: v}
		return nil
	}
	for f := r.fn.parent; f != nil; f = f.parent {
		if v := f.lookup(e.Name); v != nil {
			for g := r.fn; g != f; g = g.parent {
				g.addUpvalue(v)
			}
			r.info.variables[e] = VariableUse{Kind: VariableUseUpvalue, Var: v}
			return nil
		}
	}
	r.info.variables[e] = VariableUse{Kind: VariableUseGlobal, Name: e.Name}
	return nil
}
