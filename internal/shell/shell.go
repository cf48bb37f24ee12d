// Package shell 提供交互式主循环
// 驱动词法分析、语法分析、展开、heredoc收集与执行五个阶段
package shell

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/sys/unix"

	"nyxshell/internal/executor"
	"nyxshell/internal/expand"
	"nyxshell/internal/heredoc"
	"nyxshell/internal/lexer"
	"nyxshell/internal/parser"
	"nyxshell/internal/state"
)

// historyFileName 历史记录文件名（位于HOME下）
const historyFileName = ".nyxshell_history"

// Shell Shell主结构
type Shell struct {
	state    *state.State
	executor *executor.Executor
	history  *History
	reporter *ErrorReporter
	prompt   string

	rl      *readline.Instance // 交互模式的行编辑器
	scanner *bufio.Scanner     // 脚本/管道输入的回退读取器
}

// New 创建新的Shell实例
func New() *Shell {
	st := state.New()
	sh := &Shell{
		state:    st,
		executor: executor.New(st),
		history:  NewHistory(1000),
		reporter: NewErrorReporter(st),
	}
	sh.prompt = sh.getPrompt()

	if file := sh.historyFile(); file != "" {
		sh.history.LoadFromFile(file)
	}
	return sh
}

// ExitStatus shell进程的最终退出状态
// exit请求优先，否则为最后一条命令的状态
func (s *Shell) ExitStatus() int {
	if s.state.ExitRequested {
		return s.state.ExitStatus
	}
	return s.state.LastStatus
}

// Run 运行交互式Shell
func (s *Shell) Run() {
	if !s.state.Interactive {
		s.runSimple(os.Stdin)
		return
	}

	// SIGQUIT在整个交互会话期间被忽略
	restore := ignoreQuit()
	defer restore()

	printBanner()

	config := &readline.Config{
		Prompt:          s.prompt,
		HistoryFile:     s.historyFile(),
		HistoryLimit:    1000,
		AutoComplete:    NewCompleter(s),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	}

	rl, err := readline.NewEx(config)
	if err != nil {
		// readline初始化失败时回退到简单模式
		s.runSimple(os.Stdin)
		return
	}
	defer rl.Close()
	s.rl = rl

	for {
		rl.SetPrompt(s.prompt)

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				// Ctrl+C：丢弃当前输入，开始新提示符
				s.state.LastStatus = 130
				continue
			}
			// EOF：与bash一致打印exit后退出
			fmt.Fprintln(os.Stderr, "exit")
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// 以\结尾的行继续读取
		for strings.HasSuffix(line, "\\") {
			line = strings.TrimSuffix(line, "\\")
			rl.SetPrompt("> ")
			next, err := rl.Readline()
			if err != nil {
				break
			}
			line += " " + strings.TrimSpace(next)
		}

		s.ExecuteLine(line)
		s.history.Add(line)
		rl.SaveHistory(line)

		if s.state.ExitRequested {
			break
		}

		// 工作目录可能已改变
		s.prompt = s.getPrompt()
	}

	if file := s.historyFile(); file != "" {
		s.history.SaveToFile(file)
	}
}

// runSimple 简单运行模式（非终端输入或readline不可用）
func (s *Shell) runSimple(r io.Reader) {
	s.scanner = bufio.NewScanner(r)
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		s.ExecuteLine(line)
		if s.state.ExitRequested {
			return
		}
	}
}

// ExecuteScript 执行脚本文件
func (s *Shell) ExecuteScript(scriptPath string) error {
	file, err := os.Open(scriptPath)
	if err != nil {
		return fmt.Errorf("nyxshell: %s: %v", scriptPath, unwrap(err))
	}
	defer file.Close()

	return s.ExecuteReader(file)
}

// ExecuteReader 从Reader逐行执行命令
// 跳过shebang与#注释行；heredoc正文从同一来源读取
func (s *Shell) ExecuteReader(reader io.Reader) error {
	s.scanner = bufio.NewScanner(reader)
	firstLine := true

	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())

		if firstLine && strings.HasPrefix(line, "#!") {
			firstLine = false
			continue
		}
		firstLine = false

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		s.ExecuteLine(line)
		if s.state.ExitRequested {
			return nil
		}
	}

	return s.scanner.Err()
}

// ExecuteLine 对一行输入执行完整的五阶段流水线
// 阶段1-4严格按序完成后阶段5才开始；任何阶段失败都
// 设置退出状态并放弃本行，错误不跨阶段传播
func (s *Shell) ExecuteLine(line string) {
	tokens, err := lexer.Tokenize(line)
	if err != nil {
		s.state.LastStatus = s.reporter.Report(err)
		return
	}

	tree, err := parser.Parse(tokens)
	if err != nil {
		s.state.LastStatus = s.reporter.Report(err)
		return
	}
	if tree == nil {
		// 空行与纯空白行：无操作，状态不变
		return
	}

	ctx := &expand.Context{Env: s.state.Env, LastStatus: s.state.LastStatus}
	expand.Tree(tree, ctx)

	if err := heredoc.Collect(tree, s, ctx); err != nil {
		if err == heredoc.ErrInterrupted {
			// heredoc期间的SIGINT放弃整个命令行
			fmt.Fprintln(os.Stderr)
			s.state.LastStatus = 130
			return
		}
		s.state.LastStatus = s.reporter.Report(err)
		return
	}

	s.executor.Run(tree)
}

// ReadLine 实现heredoc.LineReader
// 交互模式经readline读取（续行提示符可见），否则取脚本的下一行
func (s *Shell) ReadLine(prompt string) (string, error) {
	if s.rl != nil {
		s.rl.SetPrompt(prompt)
		defer s.rl.SetPrompt(s.prompt)
		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				return "", heredoc.ErrInterrupted
			}
			return "", io.EOF
		}
		return line, nil
	}

	if s.scanner != nil && s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	return "", io.EOF
}

// historyFile 历史记录文件路径，HOME未设置时为空
func (s *Shell) historyFile() string {
	home := s.state.Env.Value("HOME")
	if home == "" {
		return ""
	}
	return filepath.Join(home, historyFileName)
}

// ignoreQuit 忽略SIGQUIT（捕获后丢弃）
func ignoreQuit() func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGQUIT)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}

// unwrap 提取系统错误的原因文本
func unwrap(err error) error {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Err
	}
	return err
}
