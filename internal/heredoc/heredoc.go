// Package heredoc 提供heredoc正文的预收集功能
// 在任何子进程产生之前读完全部正文，执行阶段不再需要交互输入
package heredoc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"nyxshell/internal/expand"
	"nyxshell/internal/parser"
)

// Prompt heredoc续行提示符
const Prompt = "> "

// ErrInterrupted 读取正文期间收到SIGINT
var ErrInterrupted = errors.New("heredoc interrupted")

// LineReader 行读取接口
// 交互模式下由readline实现，脚本模式下由扫描器实现；
// 中断以ErrInterrupted报告，输入耗尽以io.EOF报告
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// Collect 遍历语法树，自左向右读取每个heredoc正文
// 定界符未含引号片段时正文按双引号规则展开变量；
// 同一CMD上链式heredoc全部读取，仅最后一个的读端作为stdin保留
func Collect(node *parser.Node, r LineReader, ctx *expand.Context) error {
	err := node.Walk(func(cmd *parser.Command) error {
		for _, redir := range cmd.Redirects {
			if redir.Type != parser.RedirectHeredoc {
				continue
			}
			body, err := readBody(r, redir.Path, redir.Quoted, ctx)
			if err != nil {
				return err
			}
			fd, err := pipeBody(body)
			if err != nil {
				return err
			}
			// 前一个heredoc的描述符被后来者取代时关闭
			if cmd.Heredoc != nil {
				cmd.Heredoc.Close()
			}
			cmd.Heredoc = fd
		}
		return nil
	})
	if err != nil {
		// 统一清扫：已附加的描述符全部关闭
		node.CloseHeredocs()
		return err
	}
	return nil
}

// readBody 逐行读取直到遇到与定界符完全相同的行
// 该行被丢弃；EOF先于定界符出现时告警并把已收集的正文视为完整
func readBody(r LineReader, delim string, quoted bool, ctx *expand.Context) (string, error) {
	var body strings.Builder
	for {
		line, err := r.ReadLine(Prompt)
		if err != nil {
			if err == io.EOF {
				fmt.Fprintf(os.Stderr,
					"nyxshell: warning: here-document delimited by end-of-file (wanted `%s')\n", delim)
				return body.String(), nil
			}
			return "", err
		}
		if line == delim {
			return body.String(), nil
		}
		if !quoted {
			line = expand.Line(line, ctx)
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
}

// pipeBody 把正文写入管道并返回读端
// 写入在独立goroutine中完成，正文超过管道缓冲时不会阻塞收集
func pipeBody(body string) (*os.File, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	go func() {
		io.WriteString(pw, body)
		pw.Close()
	}()
	return pr, nil
}
