package executor

import (
	"fmt"
	"os"

	"nyxshell/internal/builtin"
	"nyxshell/internal/parser"
)

// resolveStdio 按从左到右的顺序应用CMD的全部重定向
// 返回最终stdio与使用完毕后需要关闭的文件列表；
// 同一流上后出现的重定向覆盖先出现的，被覆盖的资源仍然打开并进入关闭列表。
// 任一打开失败时诊断一次，已打开的资源（含heredoc描述符）全部关闭并返回错误
func resolveStdio(cmd *parser.Command, base builtin.IO) (builtin.IO, []*os.File, error) {
	stdio := base
	var opened []*os.File

	hfd := cmd.Heredoc
	cmd.Heredoc = nil
	heredocTracked := false

	fail := func(redir *parser.Redirect, err error) (builtin.IO, []*os.File, error) {
		execErr := &ExecError{Type: ErrorOpenFailed, Name: redir.Path, Err: unwrapReason(err)}
		fmt.Fprintf(base.Err, "nyxshell: %s\n", execErr.Error())
		for _, f := range opened {
			f.Close()
		}
		if hfd != nil && !heredocTracked {
			hfd.Close()
		}
		return base, nil, execErr
	}

	for _, redir := range cmd.Redirects {
		switch redir.Type {
		case parser.RedirectHeredoc:
			if hfd == nil {
				continue
			}
			stdio.In = hfd
			if !heredocTracked {
				opened = append(opened, hfd)
				heredocTracked = true
			}
		case parser.RedirectIn:
			f, err := os.Open(redir.Path)
			if err != nil {
				return fail(redir, err)
			}
			stdio.In = f
			opened = append(opened, f)
		case parser.RedirectOut:
			f, err := os.OpenFile(redir.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
			if err != nil {
				return fail(redir, err)
			}
			stdio.Out = f
			opened = append(opened, f)
		case parser.RedirectAppend:
			f, err := os.OpenFile(redir.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return fail(redir, err)
			}
			stdio.Out = f
			opened = append(opened, f)
		}
	}

	// 重定向列表未引用时heredoc描述符直接关闭
	if hfd != nil && !heredocTracked {
		hfd.Close()
	}

	return stdio, opened, nil
}

// closeFiles 关闭文件列表
func closeFiles(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}

// unwrapReason 提取系统错误的原因（去掉op与path前缀）
func unwrapReason(err error) error {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Err
	}
	return err
}
