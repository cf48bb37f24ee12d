package executor

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"nyxshell/internal/builtin"
	"nyxshell/internal/parser"
)

// stage 管道中的一个环节
// done非nil表示builtin goroutine，proc非nil表示外部子进程
type stage struct {
	proc   *os.Process
	status int
	done   chan struct{}
}

// flatten 把左倾的PIPE脊柱展平为有序CMD列表
// 单处集中管理描述符归属，避免递归处理管道时的泄漏隐患
func flatten(node *parser.Node) []*parser.Command {
	if node.Kind != parser.NodePipe {
		return []*parser.Command{node.Cmd}
	}
	return append(flatten(node.Left), flatten(node.Right)...)
}

// runPipeline 一次遍历启动N个环节
// 第i个环节stdin取管道i-1的读端，stdout取管道i的写端；
// 外部命令环节的管道端在该环节启动后即被关闭；builtin环节在本进程的
// goroutine中运行，其管道端在goroutine完成时才关闭，而不是在最后一次启动返回时。
// 管道的退出状态取最后一个命令的状态
func (e *Executor) runPipeline(cmds []*parser.Command) int {
	n := len(cmds)
	stages := make([]*stage, n)
	for i := range stages {
		stages[i] = &stage{status: 1}
	}

	restore := guardSignals()
	defer restore()

	var prevRead *os.File
	for i, cmd := range cmds {
		var pr, pw *os.File
		if i < n-1 {
			var err error
			pr, pw, err = os.Pipe()
			if err != nil {
				fmt.Fprintf(os.Stderr, "nyxshell: pipe: %v\n", err)
				closeFile(prevRead)
				discardHeredocs(cmds[i:])
				break
			}
		}

		base := builtin.IO{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
		if prevRead != nil {
			base.In = prevRead
		}
		if pw != nil {
			base.Out = pw
		}

		e.startStage(stages[i], cmd, base, prevRead, pw)
		prevRead = pr
	}

	// 按序收割：外部进程waitpid，builtin等待goroutine完成
	for _, st := range stages {
		switch {
		case st.proc != nil:
			ps, err := st.proc.Wait()
			if err == nil {
				st.status = waitStatus(ps)
			}
		case st.done != nil:
			<-st.done
		}
	}

	last := stages[n-1]
	if last.proc != nil {
		e.reportSignal(last.status)
	}
	return last.status
}

// startStage 启动管道中的一个环节
// prevRead与pw是父进程持有的管道端：外部进程启动后立即关闭，
// builtin环节移交给goroutine在完成时关闭
func (e *Executor) startStage(st *stage, cmd *parser.Command, base builtin.IO, prevRead, pw *os.File) {
	stdio, opened, err := resolveStdio(cmd, base)
	if err != nil {
		st.status = 1
		closeFile(prevRead)
		closeFile(pw)
		return
	}

	// 空命令环节：重定向已生效，直接结束
	if len(cmd.Argv) == 0 {
		st.status = 0
		closeFiles(opened)
		closeFile(prevRead)
		closeFile(pw)
		return
	}

	// 管道内的builtin针对克隆状态执行，修改不回流到shell
	if fn, ok := builtin.Lookup(cmd.Argv[0]); ok {
		st.done = make(chan struct{})
		cloned := e.State.Clone()
		go func() {
			st.status = fn(cloned, cmd.Argv, stdio)
			closeFiles(opened)
			closeFile(prevRead)
			closeFile(pw)
			close(st.done)
		}()
		return
	}

	path, lookErr := LookPath(cmd.Argv[0], e.State.Env)
	if lookErr != nil {
		fmt.Fprintf(os.Stderr, "nyxshell: %s\n", lookErr.Error())
		st.status = lookErr.ExitCode()
		closeFiles(opened)
		closeFile(prevRead)
		closeFile(pw)
		return
	}

	proc, err := startProcess(path, cmd.Argv, e.State.Env.Environ(), stdio)
	closeFiles(opened)
	closeFile(prevRead)
	closeFile(pw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nyxshell: %s: %v\n", cmd.Argv[0], err)
		st.status = 1
		return
	}
	st.proc = proc
}

// waitStatus 把wait状态映射为退出状态
func waitStatus(ps *os.ProcessState) int {
	ws := unix.WaitStatus(ps.Sys().(syscall.WaitStatus))
	if ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return ws.ExitStatus()
}

// reportSignal 前台命令死于信号时的交互提示
func (e *Executor) reportSignal(status int) {
	if !e.State.Interactive {
		return
	}
	switch status {
	case 128 + int(unix.SIGINT):
		fmt.Fprintln(os.Stderr)
	case 128 + int(unix.SIGQUIT):
		fmt.Fprintln(os.Stderr, "Quit")
	}
}

// closeFile 关闭单个文件（nil安全，标准流除外）
func closeFile(f *os.File) {
	if f == nil || f == os.Stdin || f == os.Stdout || f == os.Stderr {
		return
	}
	f.Close()
}

// discardHeredocs 回收未能启动的CMD列表上的heredoc描述符
func discardHeredocs(cmds []*parser.Command) {
	for _, cmd := range cmds {
		if cmd.Heredoc != nil {
			cmd.Heredoc.Close()
			cmd.Heredoc = nil
		}
	}
}
