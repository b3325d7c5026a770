package lang

import (
	"fmt"

	"github.com/oldhatfield/imperare/ast"
	"github.com/oldhatfield/imperare/codegen"
)

// ParseError reports a token the parser did not expect.
type ParseError struct {
	Want TokenKind
	Got  Token
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: expected %s, found %q", e.Got.Line, e.Want, e.Got.Text)
}

type parser struct {
	tokens []Token
	pos    int

	// declared tracks the names in scope for the procedure or main block
	// currently being parsed, so a bare identifier use can be tagged
	// ast.Undeclared immediately rather than surfacing only once codegen
	// looks it up — matching the distinction the language draws between a
	// forward/typo'd scalar reference (caught late, with a line number
	// preserved) and a malformed array reference.
	declared map[string]bool
}

// Parse lexes and parses src into a Program plus the (tokenType, line)
// trace codegen.Compiler uses for its diagnostic line cursor.
//
// That trace is built from the parsed statement tree rather than the raw
// token stream: codegen.Compiler.advanceLineno searches forward for labels
// like "ASSIGN" and "REPEAT" that name a statement kind, not a token any
// scanner emits literally (an assignment's first token is the target's
// PID, never the text "ASSIGN"). The AST is walked depth-first in textual
// order: every procedure body first, in declaration order, then the main
// body. For a program without procedure calls this is the order lowerStmt
// visits statements in; a procedure body is lowered only where it is
// called, so with calls the two orders differ.
func Parse(src string) (*ast.Program, []codegen.LineToken, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, nil, err
	}

	p := &parser{tokens: tokens}
	prog, err := p.parseProgram()
	if err != nil {
		return nil, nil, err
	}

	var lines []codegen.LineToken
	for _, proc := range prog.Procedures {
		lines = collectLineTokens(lines, proc.Body)
	}
	lines = collectLineTokens(lines, prog.MainBody)

	return prog, lines, nil
}

// collectLineTokens appends one (label, line) pair per statement in stmts,
// recursing into nested bodies in source order. The labels mirror the
// vocabulary codegen.Compiler.advanceLineno searches for.
func collectLineTokens(lines []codegen.LineToken, stmts []ast.Stmt) []codegen.LineToken {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.ReadStmt:
			lines = append(lines, codegen.LineToken{Token: "READ", Line: s.Line})
		case *ast.WriteStmt:
			lines = append(lines, codegen.LineToken{Token: "WRITE", Line: s.Line})
		case *ast.AssignStmt:
			lines = append(lines, codegen.LineToken{Token: "ASSIGN", Line: s.Line})
		case *ast.IfStmt:
			lines = append(lines, codegen.LineToken{Token: "IF", Line: s.Line})
			lines = collectLineTokens(lines, s.Body)
		case *ast.IfElseStmt:
			lines = append(lines, codegen.LineToken{Token: "IF", Line: s.Line})
			lines = collectLineTokens(lines, s.Then)
			lines = collectLineTokens(lines, s.Else)
		case *ast.WhileStmt:
			lines = append(lines, codegen.LineToken{Token: "WHILE", Line: s.Line})
			lines = collectLineTokens(lines, s.Body)
		case *ast.UntilStmt:
			lines = append(lines, codegen.LineToken{Token: "REPEAT", Line: s.Line})
			lines = collectLineTokens(lines, s.Body)
		case *ast.ProcCallStmt:
			lines = append(lines, codegen.LineToken{Token: "PID", Line: s.Line})
		}
	}
	return lines
}

func (p *parser) peek() Token    { return p.tokens[p.pos] }
func (p *parser) advance() Token { t := p.tokens[p.pos]; p.pos++; return t }

func (p *parser) expect(k TokenKind) (Token, error) {
	if p.peek().Kind != k {
		return Token{}, &ParseError{Want: k, Got: p.peek()}
	}
	return p.advance(), nil
}

func (p *parser) at(k TokenKind) bool { return p.peek().Kind == k }

func (p *parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{}

	for p.at(TokProcedure) {
		proc, err := p.parseProcedure()
		if err != nil {
			return nil, err
		}
		prog.Procedures = append(prog.Procedures, *proc)
	}

	if _, err := p.expect(TokProgram); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokIs); err != nil {
		return nil, err
	}
	p.declared = map[string]bool{}

	decls, err := p.parseOptionalDeclarations()
	if err != nil {
		return nil, err
	}
	prog.MainDecls = decls

	if _, err := p.expect(TokIn); err != nil {
		return nil, err
	}
	body, err := p.parseCommands()
	if err != nil {
		return nil, err
	}
	prog.MainBody = body

	if _, err := p.expect(TokEnd); err != nil {
		return nil, err
	}
	return prog, nil
}

func (p *parser) parseProcedure() (*ast.Procedure, error) {
	line := p.peek().Line
	if _, err := p.expect(TokProcedure); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(TokPID)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLParen); err != nil {
		return nil, err
	}

	p.declared = map[string]bool{}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokIs); err != nil {
		return nil, err
	}

	decls, err := p.parseOptionalDeclarations()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(TokIn); err != nil {
		return nil, err
	}
	body, err := p.parseCommands()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokEnd); err != nil {
		return nil, err
	}

	return &ast.Procedure{Name: nameTok.Text, Params: params, Decls: decls, Body: body, Line: line}, nil
}

func (p *parser) parseParamList() ([]ast.Param, error) {
	var params []ast.Param
	for {
		if p.at(TokTab) {
			p.advance()
			nameTok, err := p.expect(TokPID)
			if err != nil {
				return nil, err
			}
			params = append(params, ast.Param{Name: nameTok.Text, Kind: ast.ArrayParam})
			p.declared[nameTok.Text] = true
		} else {
			nameTok, err := p.expect(TokPID)
			if err != nil {
				return nil, err
			}
			params = append(params, ast.Param{Name: nameTok.Text, Kind: ast.ScalarParam})
			p.declared[nameTok.Text] = true
		}
		if !p.at(TokComma) {
			break
		}
		p.advance()
	}
	return params, nil
}

// parseOptionalDeclarations parses the `IS <declarations>` block when one
// is present; the grammar also allows a bare `IS IN`, i.e. no
// declarations at all.
func (p *parser) parseOptionalDeclarations() ([]ast.Decl, error) {
	if p.at(TokIn) {
		return nil, nil
	}
	var decls []ast.Decl
	for {
		line := p.peek().Line
		nameTok, err := p.expect(TokPID)
		if err != nil {
			return nil, err
		}
		if p.at(TokLBracket) {
			p.advance()
			sizeTok, err := p.expect(TokNum)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokRBracket); err != nil {
				return nil, err
			}
			decls = append(decls, ast.Decl{Name: nameTok.Text, IsArray: true, Size: sizeTok.Value, Line: line})
		} else {
			decls = append(decls, ast.Decl{Name: nameTok.Text, Line: line})
		}
		p.declared[nameTok.Text] = true

		if !p.at(TokComma) {
			break
		}
		p.advance()
	}
	return decls, nil
}

func (p *parser) parseCommands() ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for {
		stmt, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if !p.startsCommand() {
			break
		}
	}
	return stmts, nil
}

func (p *parser) startsCommand() bool {
	switch p.peek().Kind {
	case TokPID, TokIf, TokWhile, TokRepeat, TokRead, TokWrite:
		return true
	default:
		return false
	}
}

func (p *parser) parseCommand() (ast.Stmt, error) {
	line := p.peek().Line
	switch p.peek().Kind {
	case TokIf:
		return p.parseIf(line)
	case TokWhile:
		return p.parseWhile(line)
	case TokRepeat:
		return p.parseRepeat(line)
	case TokRead:
		p.advance()
		target, err := p.parseLvalue()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokSemicolon); err != nil {
			return nil, err
		}
		return &ast.ReadStmt{Target: target, Line: line}, nil
	case TokWrite:
		p.advance()
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokSemicolon); err != nil {
			return nil, err
		}
		return &ast.WriteStmt{Value: value, Line: line}, nil
	case TokPID:
		return p.parseAssignOrCall(line)
	default:
		return nil, &ParseError{Want: TokPID, Got: p.peek()}
	}
}

func (p *parser) parseIf(line int) (ast.Stmt, error) {
	p.advance()
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokThen); err != nil {
		return nil, err
	}
	then, err := p.parseCommands()
	if err != nil {
		return nil, err
	}
	if p.at(TokElse) {
		p.advance()
		elseBody, err := p.parseCommands()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokEndif); err != nil {
			return nil, err
		}
		return &ast.IfElseStmt{Cond: cond, Then: then, Else: elseBody, Line: line}, nil
	}
	if _, err := p.expect(TokEndif); err != nil {
		return nil, err
	}
	return &ast.IfStmt{Cond: cond, Body: then, Line: line}, nil
}

func (p *parser) parseWhile(line int) (ast.Stmt, error) {
	p.advance()
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokDo); err != nil {
		return nil, err
	}
	body, err := p.parseCommands()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokEndwhile); err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Cond: cond, Body: body, Line: line}, nil
}

func (p *parser) parseRepeat(line int) (ast.Stmt, error) {
	p.advance()
	body, err := p.parseCommands()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokUntil); err != nil {
		return nil, err
	}
	cond, err := p.parseCondition()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemicolon); err != nil {
		return nil, err
	}
	return &ast.UntilStmt{Body: body, Cond: cond, Line: line}, nil
}

// parseAssignOrCall disambiguates `name := expr ;` from `name ( args ) ;`
// on a single token of lookahead once the leading PID (and any index) has
// been consumed.
func (p *parser) parseAssignOrCall(line int) (ast.Stmt, error) {
	nameTok, err := p.expect(TokPID)
	if err != nil {
		return nil, err
	}

	if p.at(TokLParen) {
		p.advance()
		args, err := p.parseCallArgs()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		if _, err := p.expect(TokSemicolon); err != nil {
			return nil, err
		}
		return &ast.ProcCallStmt{Name: nameTok.Text, Args: args, Line: line}, nil
	}

	target, err := p.parseLvalueTail(nameTok)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokAssign); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemicolon); err != nil {
		return nil, err
	}
	return &ast.AssignStmt{Target: target, Value: value, Line: line}, nil
}

func (p *parser) parseCallArgs() ([]string, error) {
	var args []string
	if p.at(TokRParen) {
		return args, nil
	}
	for {
		tok, err := p.expect(TokPID)
		if err != nil {
			return nil, err
		}
		args = append(args, tok.Text)
		if !p.at(TokComma) {
			break
		}
		p.advance()
	}
	return args, nil
}

func (p *parser) parseLvalue() (ast.Lvalue, error) {
	nameTok, err := p.expect(TokPID)
	if err != nil {
		return nil, err
	}
	return p.parseLvalueTail(nameTok)
}

func (p *parser) parseLvalueTail(nameTok Token) (ast.Lvalue, error) {
	if !p.at(TokLBracket) {
		return p.resolveName(nameTok), nil
	}
	p.advance()
	var index ast.Expr
	switch p.peek().Kind {
	case TokNum:
		numTok := p.advance()
		index = &ast.Const{Value: numTok.Value, Line: numTok.Line}
	case TokPID:
		idxTok := p.advance()
		index = &ast.Load{Target: p.resolveName(idxTok), Line: idxTok.Line}
	default:
		return nil, &ParseError{Want: TokNum, Got: p.peek()}
	}
	if _, err := p.expect(TokRBracket); err != nil {
		return nil, err
	}
	return &ast.ArrayAccess{Array: nameTok.Text, Index: index, Line: nameTok.Line}, nil
}

func (p *parser) resolveName(tok Token) ast.Lvalue {
	if !p.declared[tok.Text] {
		return ast.Undeclared{Ident: tok.Text, Line: tok.Line}
	}
	return ast.Name{Ident: tok.Text, Line: tok.Line}
}

func (p *parser) parseValue() (ast.Expr, error) {
	line := p.peek().Line
	if p.at(TokNum) {
		tok := p.advance()
		return &ast.Const{Value: tok.Value, Line: line}, nil
	}
	lv, err := p.parseLvalue()
	if err != nil {
		return nil, err
	}
	return &ast.Load{Target: lv, Line: line}, nil
}

// parseExpression parses `value` or `value op value`, the only two shapes
// the grammar allows: a BinOp's operands are always themselves values,
// never nested expressions.
func (p *parser) parseExpression() (ast.Expr, error) {
	left, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	kind, ok := arithOpKind(p.peek().Kind)
	if !ok {
		return left, nil
	}
	line := p.peek().Line
	p.advance()
	right, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return &ast.BinOp{Kind: kind, Left: left, Right: right, Line: line}, nil
}

func arithOpKind(k TokenKind) (ast.BinOpKind, bool) {
	switch k {
	case TokPlus:
		return ast.Add, true
	case TokMinus:
		return ast.Sub, true
	case TokStar:
		return ast.Mul, true
	case TokSlash:
		return ast.Div, true
	case TokPercent:
		return ast.Mod, true
	default:
		return 0, false
	}
}

func (p *parser) parseCondition() (ast.Cond, error) {
	left, err := p.parseValue()
	if err != nil {
		return ast.Cond{}, err
	}
	kind, ok := relOpKind(p.peek().Kind)
	if !ok {
		return ast.Cond{}, &ParseError{Want: TokEq, Got: p.peek()}
	}
	line := p.peek().Line
	p.advance()
	right, err := p.parseValue()
	if err != nil {
		return ast.Cond{}, err
	}
	return ast.Cond{Kind: kind, Left: left, Right: right, Line: line}, nil
}

func relOpKind(k TokenKind) (ast.RelKind, bool) {
	switch k {
	case TokEq:
		return ast.Eq, true
	case TokNe:
		return ast.Ne, true
	case TokLt:
		return ast.Lt, true
	case TokGt:
		return ast.Gt, true
	case TokLe:
		return ast.Le, true
	case TokGe:
		return ast.Ge, true
	default:
		return 0, false
	}
}
