package executor

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"nyxshell/internal/env"
)

// LookPath 把命令名解析为可执行文件的具体路径
// 名字含/时跳过搜索；PATH按:分割，空元素视为当前目录，
// 首个指向可执行普通文件的条目胜出
func LookPath(name string, e *env.Env) (string, *ExecError) {
	if strings.ContainsRune(name, '/') {
		return name, checkPath(name)
	}

	path, ok := e.Get("PATH")
	if !ok {
		return "", &ExecError{Type: ErrorNotFound, Name: name}
	}

	foundNotExec := false
	for _, dir := range strings.Split(path, ":") {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if unix.Access(candidate, unix.X_OK) != nil {
			foundNotExec = true
			continue
		}
		return candidate, nil
	}

	if foundNotExec {
		return "", &ExecError{Type: ErrorNotExec, Name: name}
	}
	return "", &ExecError{Type: ErrorNotFound, Name: name}
}

// checkPath 检查具体路径能否执行
func checkPath(path string) *ExecError {
	info, err := os.Stat(path)
	if err != nil {
		return &ExecError{Type: ErrorNoEntry, Name: path}
	}
	if info.IsDir() {
		return &ExecError{Type: ErrorIsDir, Name: path}
	}
	if unix.Access(path, unix.X_OK) != nil {
		return &ExecError{Type: ErrorNotExec, Name: path}
	}
	return nil
}
