// Package parser 提供语法分析功能，将token序列构造为二叉语法树
package parser

import (
	"nyxshell/internal/lexer"
)

// Parser 语法分析器
// 按or/and/pipe/cmd四条规则递归下降，||和&&与|均为左结合
type Parser struct {
	tokens []lexer.Token
	pos    int
}

// New 创建新的语法分析器
func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse 解析整个token序列并返回语法树
// 空序列返回nil树（空行为无操作）
func Parse(tokens []lexer.Token) (*Node, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	p := New(tokens)
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	// 所有token必须归属于语法树
	if !p.atEnd() {
		return nil, &ParseError{Type: ErrorUnexpectedToken, Token: p.cur()}
	}
	return node, nil
}

// cur 返回当前token
func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.tokens[p.pos]
}

// advance 前进到下一个token
func (p *Parser) advance() {
	p.pos++
}

// atEnd 判断是否已消费所有token
func (p *Parser) atEnd() bool {
	return p.pos >= len(p.tokens)
}

// parseOr 解析 or := and (('||') and)*
func (p *Parser) parseOr() (*Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == lexer.OR {
		op := p.cur()
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, missingOperand(err, op)
		}
		left = &Node{Kind: NodeOr, Left: left, Right: right}
	}
	return left, nil
}

// parseAnd 解析 and := pipe (('&&') pipe)*
func (p *Parser) parseAnd() (*Node, error) {
	left, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == lexer.AND {
		op := p.cur()
		p.advance()
		right, err := p.parsePipe()
		if err != nil {
			return nil, missingOperand(err, op)
		}
		left = &Node{Kind: NodeAnd, Left: left, Right: right}
	}
	return left, nil
}

// parsePipe 解析 pipe := cmd (('|') cmd)*
// a | b | c 构成左倾的PIPE脊柱 PIPE(PIPE(a,b),c)
func (p *Parser) parsePipe() (*Node, error) {
	left, err := p.parseCommand()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == lexer.PIPE {
		op := p.cur()
		p.advance()
		right, err := p.parseCommand()
		if err != nil {
			return nil, missingOperand(err, op)
		}
		left = &Node{Kind: NodePipe, Left: left, Right: right}
	}
	return left, nil
}

// parseCommand 解析 cmd := (WORD | redir)+
// WORD与重定向可任意交错，重定向顺序保留
func (p *Parser) parseCommand() (*Node, error) {
	cmd := &Command{}

	for {
		tok := p.cur()
		switch {
		case tok.Type == lexer.WORD:
			cmd.Words = append(cmd.Words, tok)
			p.advance()
		case tok.Type.IsRedirect():
			p.advance()
			target := p.cur()
			if target.Type != lexer.WORD {
				if target.Type == lexer.EOF {
					return nil, &ParseError{Type: ErrorMissingTarget, Token: tok}
				}
				return nil, &ParseError{Type: ErrorUnexpectedToken, Token: target}
			}
			p.advance()
			cmd.Redirects = append(cmd.Redirects, &Redirect{
				Type:   redirectType(tok.Type),
				Target: target,
			})
		default:
			// 每个CMD至少需要一个WORD或一个重定向
			if len(cmd.Words) == 0 && len(cmd.Redirects) == 0 {
				if tok.Type == lexer.EOF {
					return nil, &ParseError{Type: ErrorUnexpectedEOF, Token: tok}
				}
				return nil, &ParseError{Type: ErrorUnexpectedToken, Token: tok}
			}
			return &Node{Kind: NodeCmd, Cmd: cmd}, nil
		}
	}
}

// missingOperand 操作符右侧缺少命令时，诊断指向该操作符
func missingOperand(err error, op lexer.Token) error {
	if pe, ok := err.(*ParseError); ok && pe.Type == ErrorUnexpectedEOF {
		return &ParseError{Type: ErrorMissingOperand, Token: op}
	}
	return err
}

// redirectType token类型到重定向类型的映射
func redirectType(t lexer.TokenType) RedirectType {
	switch t {
	case lexer.REDIRECT_IN:
		return RedirectIn
	case lexer.REDIRECT_OUT:
		return RedirectOut
	case lexer.REDIRECT_APPEND:
		return RedirectAppend
	default:
		return RedirectHeredoc
	}
}
