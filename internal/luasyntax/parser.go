// Copyright 2025 The Rembulan Authors
// SPDX-License-Identifier: MIT

package luasyntax

import (
	"fmt"
	"io"

	"github.com/luavixen/rembulan-sub001/internal/lualex"
)

// depthLimit is the maximum recursion depth for syntax constructs.
const depthLimit = 200

// Parse reads a Lua 5.3 chunk from r and returns its syntax tree.
// Errors are user diagnostics prefixed with a "line:col" position.
func Parse(r io.ByteScanner) (*Block, error) {
	p := &parser{ls: lualex.NewScanner(r)}
	p.advance()
	block, err := p.block()
	if err != nil {
		return nil, err
	}
	if p.curr.Kind != lualex.ErrorToken {
		return nil, p.syntaxError("'<eof>' expected")
	}
	if p.err != nil && p.err != io.EOF {
		return nil, p.err
	}
	return block, nil
}

// parser is the in-progress state of a [Parse] call.
// It keeps a single token of lookahead.
type parser struct {
	ls      *lualex.Scanner
	curr    lualex.Token
	next    lualex.Token
	hasNext bool
	err     error
	// lastPos is the position of the most recent valid token,
	// used to report errors at end of input.
	lastPos lualex.Position

	depth int
}

// advance scans the next token.
// After the end of input or a scan error,
// curr is left as an [lualex.ErrorToken].
func (p *parser) advance() {
	if p.curr.Position.IsValid() {
		p.lastPos = p.curr.Position
	}
	if p.hasNext {
		p.curr = p.next
		p.next = lualex.Token{}
		p.hasNext = false
		return
	}
	if p.err == nil {
		p.curr, p.err = p.ls.Scan()
	} else {
		p.curr = lualex.Token{}
	}
}

// peek returns the token after the current one without consuming it.
func (p *parser) peek() lualex.Token {
	if !p.hasNext && p.err == nil {
		p.next, p.err = p.ls.Scan()
		p.hasNext = p.err == nil
	}
	return p.next
}

// here returns the current token's position,
// or the most recent valid position at end of input.
func (p *parser) here() lualex.Position {
	if p.curr.Position.IsValid() {
		return p.curr.Position
	}
	if p.lastPos.IsValid() {
		return p.lastPos
	}
	return lualex.Pos(1, 1)
}

func (p *parser) syntaxError(msg string) error {
	return fmt.Errorf("%v: %s near %v", p.here(), msg, p.curr)
}

// expect consumes the current token if it has the given kind,
// or fails with a syntax error.
func (p *parser) expect(kind lualex.TokenKind) (lualex.Token, error) {
	tok := p.curr
	if tok.Kind != kind {
		return tok, p.syntaxError(fmt.Sprintf("'%v' expected", kind))
	}
	p.advance()
	return tok, nil
}

// expectMatch is like expect for block-closing tokens,
// pointing back at the construct being closed on failure.
func (p *parser) expectMatch(kind lualex.TokenKind, open string, openPos lualex.Position) error {
	if p.curr.Kind != kind {
		return p.syntaxError(fmt.Sprintf("'%v' expected (to close '%s' at %v)", kind, open, openPos))
	}
	p.advance()
	return nil
}

// name consumes an identifier token.
func (p *parser) name() (*Name, error) {
	if p.curr.Kind != lualex.IdentifierToken {
		return nil, p.syntaxError("<name> expected")
	}
	n := &Name{NamePos: p.curr.Position, Name: p.curr.Value}
	p.advance()
	return n, nil
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > depthLimit {
		return fmt.Errorf("%v: chunk has too many syntax levels", p.here())
	}
	return nil
}

// blockFollow reports whether a token kind ends a block.
func blockFollow(kind lualex.TokenKind, withUntil bool) bool {
	switch kind {
	case lualex.ErrorToken, lualex.ElseToken, lualex.ElseifToken, lualex.EndToken:
		return true
	case lualex.UntilToken:
		return withUntil
	default:
		return false
	}
}

func (p *parser) block() (*Block, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	b := &Block{BlockPos: p.here()}
	for !blockFollow(p.curr.Kind, true) {
		if p.curr.Kind == lualex.ReturnToken {
			ret, err := p.returnStat()
			if err != nil {
				return nil, err
			}
			b.Return = ret
			break
		}
		stat, err := p.statement()
		if err != nil {
			return nil, err
		}
		if stat != nil {
			b.Stats = append(b.Stats, stat)
		}
	}
	return b, nil
}

func (p *parser) statement() (Stat, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	switch p.curr.Kind {
	case lualex.SemiToken:
		p.advance()
		return nil, nil
	case lualex.IfToken:
		return p.ifStat()
	case lualex.WhileToken:
		return p.whileStat()
	case lualex.DoToken:
		pos := p.curr.Position
		p.advance()
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		if err := p.expectMatch(lualex.EndToken, "do", pos); err != nil {
			return nil, err
		}
		return &DoStat{DoPos: pos, Body: body}, nil
	case lualex.ForToken:
		return p.forStat()
	case lualex.RepeatToken:
		return p.repeatStat()
	case lualex.FunctionToken:
		return p.functionStat()
	case lualex.LocalToken:
		pos := p.curr.Position
		p.advance()
		if p.curr.Kind == lualex.FunctionToken {
			return p.localFunctionStat(pos)
		}
		return p.localStat(pos)
	case lualex.LabelToken:
		pos := p.curr.Position
		p.advance()
		n, err := p.name()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lualex.LabelToken); err != nil {
			return nil, err
		}
		return &LabelStat{LabelPos: pos, Name: n.Name}, nil
	case lualex.BreakToken:
		pos := p.curr.Position
		p.advance()
		return &BreakStat{BreakPos: pos}, nil
	case lualex.GotoToken:
		pos := p.curr.Position
		p.advance()
		n, err := p.name()
		if err != nil {
			return nil, err
		}
		return &GotoStat{GotoPos: pos, Name: n.Name}, nil
	default:
		return p.exprStat()
	}
}

func (p *parser) ifStat() (Stat, error) {
	pos := p.curr.Position
	stat := &IfStat{IfPos: pos}
	for {
		p.advance() // "if" or "elseif"
		cond, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lualex.ThenToken); err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		stat.Conds = append(stat.Conds, cond)
		stat.Blocks = append(stat.Blocks, body)
		if p.curr.Kind != lualex.ElseifToken {
			break
		}
	}
	if p.curr.Kind == lualex.ElseToken {
		p.advance()
		var err error
		stat.Else, err = p.block()
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectMatch(lualex.EndToken, "if", pos); err != nil {
		return nil, err
	}
	return stat, nil
}

func (p *parser) whileStat() (Stat, error) {
	pos := p.curr.Position
	p.advance()
	cond, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lualex.DoToken); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if err := p.expectMatch(lualex.EndToken, "while", pos); err != nil {
		return nil, err
	}
	return &WhileStat{WhilePos: pos, Cond: cond, Body: body}, nil
}

func (p *parser) repeatStat() (Stat, error) {
	pos := p.curr.Position
	p.advance()
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if err := p.expectMatch(lualex.UntilToken, "repeat", pos); err != nil {
		return nil, err
	}
	cond, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &RepeatStat{RepeatPos: pos, Body: body, Cond: cond}, nil
}

func (p *parser) forStat() (Stat, error) {
	pos := p.curr.Position
	p.advance()
	first, err := p.name()
	if err != nil {
		return nil, err
	}
	switch p.curr.Kind {
	case lualex.AssignToken:
		p.advance()
		start, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lualex.CommaToken); err != nil {
			return nil, err
		}
		limit, err := p.expr()
		if err != nil {
			return nil, err
		}
		var step Expr
		if p.curr.Kind == lualex.CommaToken {
			p.advance()
			if step, err = p.expr(); err != nil {
				return nil, err
			}
		}
		body, err := p.loopBody(pos)
		if err != nil {
			return nil, err
		}
		return &NumericForStat{ForPos: pos, Name: first, Start: start, Limit: limit, Step: step, Body: body}, nil
	case lualex.CommaToken, lualex.InToken:
		names := []*Name{first}
		for p.curr.Kind == lualex.CommaToken {
			p.advance()
			n, err := p.name()
			if err != nil {
				return nil, err
			}
			names = append(names, n)
		}
		if _, err := p.expect(lualex.InToken); err != nil {
			return nil, err
		}
		values, err := p.exprList()
		if err != nil {
			return nil, err
		}
		body, err := p.loopBody(pos)
		if err != nil {
			return nil, err
		}
		return &GenericForStat{ForPos: pos, Names: names, Values: values, Body: body}, nil
	default:
		return nil, p.syntaxError("'=' or 'in' expected")
	}
}

func (p *parser) loopBody(forPos lualex.Position) (*Block, error) {
	if _, err := p.expect(lualex.DoToken); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	if err := p.expectMatch(lualex.EndToken, "for", forPos); err != nil {
		return nil, err
	}
	return body, nil
}

// functionStat parses "function funcname funcbody",
// desugaring it to an assignment of a function literal.
// A method declaration gets an implicit leading "self" parameter.
func (p *parser) functionStat() (Stat, error) {
	pos := p.curr.Position
	p.advance()
	n, err := p.name()
	if err != nil {
		return nil, err
	}
	var target Expr = &NameExpr{NamePos: n.NamePos, Name: n.Name}
	isMethod := false
	for p.curr.Kind == lualex.DotToken {
		p.advance()
		field, err := p.name()
		if err != nil {
			return nil, err
		}
		target = &IndexExpr{X: target, Key: &StringExpr{StrPos: field.NamePos, Value: field.Name}}
	}
	if p.curr.Kind == lualex.ColonToken {
		p.advance()
		field, err := p.name()
		if err != nil {
			return nil, err
		}
		target = &IndexExpr{X: target, Key: &StringExpr{StrPos: field.NamePos, Value: field.Name}}
		isMethod = true
	}
	fn, err := p.functionBody(pos, isMethod)
	if err != nil {
		return nil, err
	}
	return &AssignStat{Targets: []Expr{target}, Values: []Expr{fn}}, nil
}

func (p *parser) localFunctionStat(localPos lualex.Position) (Stat, error) {
	funcPos := p.curr.Position
	p.advance()
	n, err := p.name()
	if err != nil {
		return nil, err
	}
	fn, err := p.functionBody(funcPos, false)
	if err != nil {
		return nil, err
	}
	return &LocalFunctionStat{LocalPos: localPos, Name: n, Func: fn}, nil
}

func (p *parser) localStat(localPos lualex.Position) (Stat, error) {
	stat := &LocalStat{LocalPos: localPos}
	for {
		n, err := p.name()
		if err != nil {
			return nil, err
		}
		stat.Names = append(stat.Names, n)
		if p.curr.Kind != lualex.CommaToken {
			break
		}
		p.advance()
	}
	if p.curr.Kind == lualex.AssignToken {
		p.advance()
		var err error
		stat.Values, err = p.exprList()
		if err != nil {
			return nil, err
		}
	}
	return stat, nil
}

func (p *parser) returnStat() (*ReturnStat, error) {
	pos := p.curr.Position
	p.advance()
	stat := &ReturnStat{ReturnPos: pos}
	if !blockFollow(p.curr.Kind, true) && p.curr.Kind != lualex.SemiToken {
		var err error
		stat.Values, err = p.exprList()
		if err != nil {
			return nil, err
		}
	}
	if p.curr.Kind == lualex.SemiToken {
		p.advance()
	}
	return stat, nil
}

// exprStat parses a statement that begins with an expression:
// a call statement or an assignment.
func (p *parser) exprStat() (Stat, error) {
	first, err := p.suffixedExpr()
	if err != nil {
		return nil, err
	}
	if p.curr.Kind != lualex.AssignToken && p.curr.Kind != lualex.CommaToken {
		switch first.(type) {
		case *CallExpr, *MethodCallExpr:
			return &CallStat{Call: first}, nil
		default:
			return nil, p.syntaxError("syntax error")
		}
	}

	targets := []Expr{first}
	for p.curr.Kind == lualex.CommaToken {
		p.advance()
		t, err := p.suffixedExpr()
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	for _, t := range targets {
		switch t.(type) {
		case *NameExpr, *IndexExpr:
		default:
			return nil, fmt.Errorf("%v: cannot assign to this expression", t.Pos())
		}
	}
	if _, err := p.expect(lualex.AssignToken); err != nil {
		return nil, err
	}
	values, err := p.exprList()
	if err != nil {
		return nil, err
	}
	return &AssignStat{Targets: targets, Values: values}, nil
}

func (p *parser) exprList() ([]Expr, error) {
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	list := []Expr{e}
	for p.curr.Kind == lualex.CommaToken {
		p.advance()
		if e, err = p.expr(); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, nil
}

func (p *parser) expr() (Expr, error) {
	return p.subExpr(0)
}

// subExpr parses expressions with precedence climbing:
// operators binding no tighter than limit are left to the caller.
func (p *parser) subExpr(limit int) (Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	var left Expr
	if op, ok := toUnaryOperator(p.curr.Kind); ok {
		opPos := p.curr.Position
		p.advance()
		operand, err := p.subExpr(unaryPrecedence)
		if err != nil {
			return nil, err
		}
		left = &UnaryExpr{OpPos: opPos, Op: op, Operand: operand}
	} else {
		var err error
		if left, err = p.simpleExpr(); err != nil {
			return nil, err
		}
	}

	for {
		op, ok := toBinaryOperator(p.curr.Kind)
		if !ok || int(operatorPrecedence[op].left) <= limit {
			return left, nil
		}
		p.advance()
		right, err := p.subExpr(int(operatorPrecedence[op].right))
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *parser) simpleExpr() (Expr, error) {
	tok := p.curr
	switch tok.Kind {
	case lualex.NumeralToken:
		p.advance()
		if i, ok := lualex.ParseInt(tok.Value); ok {
			return &NumberExpr{NumPos: tok.Position, IsInt: true, Int: i}, nil
		}
		f, ok := lualex.ParseNumber(tok.Value)
		if !ok {
			return nil, fmt.Errorf("%v: malformed number near %q", tok.Position, tok.Value)
		}
		return &NumberExpr{NumPos: tok.Position, Float: f}, nil
	case lualex.StringToken:
		p.advance()
		return &StringExpr{StrPos: tok.Position, Value: tok.Value}, nil
	case lualex.NilToken:
		p.advance()
		return &NilExpr{NilPos: tok.Position}, nil
	case lualex.TrueToken:
		p.advance()
		return &BoolExpr{BoolPos: tok.Position, Value: true}, nil
	case lualex.FalseToken:
		p.advance()
		return &BoolExpr{BoolPos: tok.Position, Value: false}, nil
	case lualex.VarargToken:
		p.advance()
		return &VarargExpr{EllipsisPos: tok.Position}, nil
	case lualex.LBraceToken:
		return p.tableConstructor()
	case lualex.FunctionToken:
		p.advance()
		return p.functionBody(tok.Position, false)
	default:
		return p.suffixedExpr()
	}
}

func (p *parser) primaryExpr() (Expr, error) {
	tok := p.curr
	switch tok.Kind {
	case lualex.IdentifierToken:
		p.advance()
		return &NameExpr{NamePos: tok.Position, Name: tok.Value}, nil
	case lualex.LParenToken:
		p.advance()
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lualex.RParenToken); err != nil {
			return nil, err
		}
		return &ParenExpr{LParenPos: tok.Position, X: e}, nil
	default:
		return nil, p.syntaxError("unexpected symbol")
	}
}

// suffixedExpr parses a primary expression
// followed by any number of indexing and call suffixes.
func (p *parser) suffixedExpr() (Expr, error) {
	e, err := p.primaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		switch p.curr.Kind {
		case lualex.DotToken:
			p.advance()
			field, err := p.name()
			if err != nil {
				return nil, err
			}
			e = &IndexExpr{X: e, Key: &StringExpr{StrPos: field.NamePos, Value: field.Name}}
		case lualex.LBracketToken:
			p.advance()
			key, err := p.expr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lualex.RBracketToken); err != nil {
				return nil, err
			}
			e = &IndexExpr{X: e, Key: key}
		case lualex.ColonToken:
			p.advance()
			method, err := p.name()
			if err != nil {
				return nil, err
			}
			args, err := p.callArgs()
			if err != nil {
				return nil, err
			}
			e = &MethodCallExpr{X: e, Method: method.Name, Args: args}
		case lualex.LParenToken, lualex.StringToken, lualex.LBraceToken:
			args, err := p.callArgs()
			if err != nil {
				return nil, err
			}
			e = &CallExpr{Fn: e, Args: args}
		default:
			return e, nil
		}
	}
}

func (p *parser) callArgs() ([]Expr, error) {
	switch tok := p.curr; tok.Kind {
	case lualex.LParenToken:
		p.advance()
		var args []Expr
		if p.curr.Kind != lualex.RParenToken {
			var err error
			if args, err = p.exprList(); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(lualex.RParenToken); err != nil {
			return nil, err
		}
		return args, nil
	case lualex.StringToken:
		p.advance()
		return []Expr{&StringExpr{StrPos: tok.Position, Value: tok.Value}}, nil
	case lualex.LBraceToken:
		table, err := p.tableConstructor()
		if err != nil {
			return nil, err
		}
		return []Expr{table}, nil
	default:
		return nil, p.syntaxError("function arguments expected")
	}
}

func (p *parser) tableConstructor() (Expr, error) {
	open, err := p.expect(lualex.LBraceToken)
	if err != nil {
		return nil, err
	}
	table := &TableExpr{LBracePos: open.Position}
	for p.curr.Kind != lualex.RBraceToken {
		var field TableField
		switch {
		case p.curr.Kind == lualex.LBracketToken:
			p.advance()
			if field.Key, err = p.expr(); err != nil {
				return nil, err
			}
			if _, err := p.expect(lualex.RBracketToken); err != nil {
				return nil, err
			}
			if _, err := p.expect(lualex.AssignToken); err != nil {
				return nil, err
			}
			if field.Value, err = p.expr(); err != nil {
				return nil, err
			}
		case p.curr.Kind == lualex.IdentifierToken && p.peek().Kind == lualex.AssignToken:
			field.Key = &StringExpr{StrPos: p.curr.Position, Value: p.curr.Value}
			p.advance()
			p.advance()
			if field.Value, err = p.expr(); err != nil {
				return nil, err
			}
		default:
			if field.Value, err = p.expr(); err != nil {
				return nil, err
			}
		}
		table.Fields = append(table.Fields, field)
		if p.curr.Kind != lualex.CommaToken && p.curr.Kind != lualex.SemiToken {
			break
		}
		p.advance()
	}
	if err := p.expectMatch(lualex.RBraceToken, "{", open.Position); err != nil {
		return nil, err
	}
	return table, nil
}

func (p *parser) functionBody(funcPos lualex.Position, isMethod bool) (*FunctionExpr, error) {
	fn := &FunctionExpr{FuncPos: funcPos}
	if isMethod {
		fn.Params = append(fn.Params, &Name{NamePos: funcPos, Name: "self"})
	}
	if _, err := p.expect(lualex.LParenToken); err != nil {
		return nil, err
	}
	if p.curr.Kind != lualex.RParenToken {
		for {
			switch p.curr.Kind {
			case lualex.IdentifierToken:
				n, err := p.name()
				if err != nil {
					return nil, err
				}
				fn.Params = append(fn.Params, n)
			case lualex.VarargToken:
				fn.IsVararg = true
				p.advance()
			default:
				return nil, p.syntaxError("<name> or '...' expected")
			}
			if fn.IsVararg || p.curr.Kind != lualex.CommaToken {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(lualex.RParenToken); err != nil {
		return nil, err
	}
	var err error
	if fn.Body, err = p.block(); err != nil {
		return nil, err
	}
	if err := p.expectMatch(lualex.EndToken, "function", funcPos); err != nil {
		return nil, err
	}
	return fn, nil
}
