package parser

import (
	"fmt"

	"nyxshell/internal/lexer"
)

// ParseErrorType 解析错误类型
type ParseErrorType int

const (
	ErrorUnexpectedToken ParseErrorType = iota // 意外的token
	ErrorMissingOperand                        // 操作符后缺少命令
	ErrorMissingTarget                         // 重定向后缺少文件名
	ErrorUnexpectedEOF                         // 意外的行尾
)

// ParseError 表示解析错误
type ParseError struct {
	Type  ParseErrorType
	Token lexer.Token
}

// Error 实现 error 接口
func (e *ParseError) Error() string {
	switch e.Type {
	case ErrorUnexpectedToken, ErrorMissingOperand:
		return fmt.Sprintf("syntax error near unexpected token `%s'", e.Token.Literal)
	case ErrorMissingTarget, ErrorUnexpectedEOF:
		return "syntax error near unexpected token `newline'"
	default:
		return "syntax error"
	}
}

// ExitCode 解析错误对应的退出状态
func (e *ParseError) ExitCode() int {
	return 2
}
