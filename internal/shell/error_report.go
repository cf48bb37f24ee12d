package shell

import (
	"fmt"
	"os"

	"nyxshell/internal/state"
)

// exitCoder 携带退出状态的错误
// 各阶段的类型化错误（词法、语法、执行）都实现该接口
type exitCoder interface {
	error
	ExitCode() int
}

// ErrorReporter 错误报告器
// 每个错误只产生一条带shell名前缀的诊断
type ErrorReporter struct {
	state *state.State
}

// NewErrorReporter 创建新的错误报告器
func NewErrorReporter(st *state.State) *ErrorReporter {
	return &ErrorReporter{state: st}
}

// Report 打印诊断并返回对应的退出状态
func (er *ErrorReporter) Report(err error) int {
	if err == nil {
		return 0
	}

	fmt.Fprintf(os.Stderr, "nyxshell: %v\n", err)

	if coder, ok := err.(exitCoder); ok {
		return coder.ExitCode()
	}
	return 1
}
