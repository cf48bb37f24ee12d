// Package lexer 提供词法分析功能，将输入的命令行分解为token序列
package lexer

import (
	"strings"
)

// Lexer 词法分析器
// 单遍扫描，引号状态决定每个WORD片段的来源
type Lexer struct {
	input        string
	position     int  // 当前位置
	readPosition int  // 读取位置
	ch           byte // 当前字符
	column       int  // 当前列号
}

// New 创建新的词法分析器
func New(input string) *Lexer {
	l := &Lexer{
		input:  input,
		column: 0,
	}
	l.readChar()
	return l
}

// Tokenize 扫描整行并返回token序列（不含EOF）
func Tokenize(input string) ([]Token, error) {
	l := New(input)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == EOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

// readChar 读取下一个字符
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

// peekChar 查看下一个字符但不移动位置
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// NextToken 读取下一个token
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	col := l.column

	switch l.ch {
	case 0:
		return Token{Type: EOF, Literal: "", Column: col}, nil
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			l.readChar()
			return Token{Type: OR, Literal: "||", Column: col}, nil
		}
		l.readChar()
		return Token{Type: PIPE, Literal: "|", Column: col}, nil
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			l.readChar()
			return Token{Type: AND, Literal: "&&", Column: col}, nil
		}
		// 孤立的 & 不支持后台执行，由parser报错
		l.readChar()
		return Token{Type: ILLEGAL, Literal: "&", Column: col}, nil
	case '>':
		if l.peekChar() == '>' {
			l.readChar()
			l.readChar()
			return Token{Type: REDIRECT_APPEND, Literal: ">>", Column: col}, nil
		}
		l.readChar()
		return Token{Type: REDIRECT_OUT, Literal: ">", Column: col}, nil
	case '<':
		if l.peekChar() == '<' {
			l.readChar()
			l.readChar()
			return Token{Type: HEREDOC, Literal: "<<", Column: col}, nil
		}
		l.readChar()
		return Token{Type: REDIRECT_IN, Literal: "<", Column: col}, nil
	default:
		return l.readWord()
	}
}

// readWord 读取一个WORD
// 相邻无空白分隔的片段聚合为同一个WORD：a'b'"c"d 为一个WORD四个片段
func (l *Lexer) readWord() (Token, error) {
	col := l.column
	start := l.position
	var segments []Segment

	for l.ch != 0 && !isWordBreak(l.ch) {
		switch l.ch {
		case '\'':
			seg, err := l.readQuoted('\'', QuoteSingle)
			if err != nil {
				return Token{}, err
			}
			segments = append(segments, seg)
		case '"':
			seg, err := l.readQuoted('"', QuoteDouble)
			if err != nil {
				return Token{}, err
			}
			segments = append(segments, seg)
		default:
			segments = append(segments, l.readBare())
		}
	}

	return Token{
		Type:     WORD,
		Literal:  l.input[start:l.position],
		Segments: segments,
		Column:   col,
	}, nil
}

// readBare 读取一个无引号片段
func (l *Lexer) readBare() Segment {
	position := l.position
	for l.ch != 0 && !isWordBreak(l.ch) && l.ch != '\'' && l.ch != '"' {
		l.readChar()
	}
	return Segment{Text: l.input[position:l.position], Quote: QuoteNone}
}

// readQuoted 读取一个引号片段
// 单引号内所有字符均为字面量；双引号内保留 $ 供展开阶段解释
func (l *Lexer) readQuoted(quote byte, mode QuoteMode) (Segment, error) {
	col := l.column
	l.readChar() // 跳过开始的引号

	var text strings.Builder
	for l.ch != quote {
		if l.ch == 0 {
			// 未闭合的引号
			errType := LexErrorUnclosedSingleQuote
			if quote == '"' {
				errType = LexErrorUnclosedDoubleQuote
			}
			return Segment{}, &LexError{Type: errType, Column: col}
		}
		text.WriteByte(l.ch)
		l.readChar()
	}
	l.readChar() // 跳过结束引号

	return Segment{Text: text.String(), Quote: mode}, nil
}

// skipWhitespace 跳过空白字符
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
		l.readChar()
	}
}

// isWordBreak 判断字符是否结束当前WORD
func isWordBreak(ch byte) bool {
	switch ch {
	case ' ', '\t', '\r', '\n', '|', '&', '<', '>':
		return true
	}
	return false
}
