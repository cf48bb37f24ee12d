// Package state 提供shell全局状态
package state

import (
	"os"
	"strconv"

	"golang.org/x/term"

	"nyxshell/internal/env"
)

// State shell状态
// 环境、最近一次退出状态与交互标志在shell生命周期内存活
type State struct {
	Env         *env.Env
	LastStatus  int  // 最近一次命令的退出状态(0-255)
	Interactive bool // 标准输入是否为终端
	Subshell    bool // 管道内builtin的克隆状态，修改不回流

	// exit builtin设置，shell主循环据此终止
	ExitRequested bool
	ExitStatus    int
}

// New 创建shell状态并从进程环境初始化
// PWD未设置时补为当前工作目录，SHLVL存在时加一
func New() *State {
	st := &State{
		Env:         env.FromEnviron(os.Environ()),
		Interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}

	if _, ok := st.Env.Get("PWD"); !ok {
		if wd, err := os.Getwd(); err == nil {
			st.Env.Set("PWD", wd)
		}
	}

	if lvl, ok := st.Env.Get("SHLVL"); ok {
		n, err := strconv.Atoi(lvl)
		if err != nil {
			n = 0
		}
		st.Env.Set("SHLVL", strconv.Itoa(n+1))
	} else {
		st.Env.Set("SHLVL", "1")
	}

	return st
}

// Clone 复制状态供管道内builtin使用
// 克隆体上的环境修改、exit请求均不回流到shell
func (st *State) Clone() *State {
	return &State{
		Env:         st.Env.Clone(),
		LastStatus:  st.LastStatus,
		Interactive: st.Interactive,
		Subshell:    true,
	}
}

// RequestExit 记录exit请求
func (st *State) RequestExit(status int) {
	st.ExitRequested = true
	st.ExitStatus = status
}
