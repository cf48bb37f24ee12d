// Package executor 提供语法树的递归执行功能
// 管理管道、短路逻辑与子进程的生灭，保证每个描述符在所有路径上被关闭
package executor

import (
	"fmt"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"nyxshell/internal/builtin"
	"nyxshell/internal/parser"
	"nyxshell/internal/state"
)

// Executor 执行器
type Executor struct {
	State *state.State
}

// New 创建新的执行器
func New(st *state.State) *Executor {
	return &Executor{State: st}
}

// Run 执行整棵语法树并把最终退出状态写入shell状态
// 每个完成的顶层命令行恰好写一次
func (e *Executor) Run(node *parser.Node) int {
	if node == nil {
		return e.State.LastStatus
	}
	status := e.exec(node)
	e.State.LastStatus = status
	return status
}

// exec 按节点类型分发
func (e *Executor) exec(node *parser.Node) int {
	switch node.Kind {
	case parser.NodeAnd:
		left := e.exec(node.Left)
		if left != 0 || e.State.ExitRequested {
			// 短路：右子树不执行，其heredoc描述符仍需回收
			node.Right.CloseHeredocs()
			return left
		}
		return e.exec(node.Right)
	case parser.NodeOr:
		left := e.exec(node.Left)
		if left == 0 || e.State.ExitRequested {
			node.Right.CloseHeredocs()
			return left
		}
		return e.exec(node.Right)
	case parser.NodePipe:
		return e.runPipeline(flatten(node))
	default:
		return e.runCommand(node.Cmd)
	}
}

// runCommand 执行单个CMD节点（非管道上下文）
func (e *Executor) runCommand(cmd *parser.Command) int {
	// 展开后参数向量为空：只应用重定向（创建/截断效果可见）
	if len(cmd.Argv) == 0 {
		if len(cmd.Redirects) == 0 {
			return 0
		}
		_, opened, err := resolveStdio(cmd, stdIO())
		if err != nil {
			return 1
		}
		closeFiles(opened)
		return 0
	}

	// 独立的builtin在当前进程执行，状态修改保留
	if fn, ok := builtin.Lookup(cmd.Argv[0]); ok {
		stdio, opened, err := resolveStdio(cmd, stdIO())
		if err != nil {
			return 1
		}
		status := fn(e.State, cmd.Argv, stdio)
		closeFiles(opened)
		return status
	}

	return e.runExternal(cmd)
}

// runExternal 创建子进程执行外部命令并等待
func (e *Executor) runExternal(cmd *parser.Command) int {
	path, lookErr := LookPath(cmd.Argv[0], e.State.Env)
	if lookErr != nil {
		fmt.Fprintf(os.Stderr, "nyxshell: %s\n", lookErr.Error())
		// 命令无法执行时heredoc描述符仍需回收
		if cmd.Heredoc != nil {
			cmd.Heredoc.Close()
			cmd.Heredoc = nil
		}
		return lookErr.ExitCode()
	}

	stdio, opened, err := resolveStdio(cmd, stdIO())
	if err != nil {
		return 1
	}

	restore := guardSignals()
	defer restore()

	proc, err := startProcess(path, cmd.Argv, e.State.Env.Environ(), stdio)
	closeFiles(opened)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nyxshell: %s: %v\n", cmd.Argv[0], err)
		return 1
	}

	return e.wait(proc)
}

// wait 等待子进程并把wait状态映射为退出状态
// 正常终止取低8位；被信号N杀死映射为128+N
func (e *Executor) wait(proc *os.Process) int {
	ps, err := proc.Wait()
	if err != nil {
		return 1
	}
	status := waitStatus(ps)
	e.reportSignal(status)
	return status
}

// startProcess 以显式描述符表创建子进程
// 子进程经exec后信号处置回到默认值
func startProcess(path string, argv []string, environ []string, stdio builtin.IO) (*os.Process, error) {
	attr := &os.ProcAttr{
		Env:   environ,
		Files: []*os.File{stdio.In, stdio.Out, stdio.Err},
	}
	return os.StartProcess(path, argv, attr)
}

// guardSignals 前台子进程运行期间shell忽略SIGINT与SIGQUIT
// 通过Notify捕获后丢弃：运行时处理器不会跨exec遗传给子进程
func guardSignals() func() {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, os.Interrupt, unix.SIGQUIT)
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

// stdIO shell自身的标准流
func stdIO() builtin.IO {
	return builtin.IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}
