package shell

import (
	"os"
	"path/filepath"
	"strings"
)

// builtinNames 可补全的内置命令名
var builtinNames = []string{
	"cd", "echo", "env", "exit", "export", "pwd", "unset",
}

// Completer 实现readline的自动补全接口
type Completer struct {
	shell *Shell
}

// NewCompleter 创建新的补全器
func NewCompleter(s *Shell) *Completer {
	return &Completer{shell: s}
}

// Do 执行自动补全
func (c *Completer) Do(line []rune, pos int) (newLine [][]rune, length int) {
	lineStr := string(line[:pos])

	parts := strings.Fields(lineStr)
	if len(parts) == 0 {
		return c.completeCommands("")
	}

	current := parts[len(parts)-1]

	// 第一个词补全命令，否则补全文件名
	if len(parts) == 1 && !strings.HasSuffix(lineStr, " ") {
		return c.completeCommands(current)
	}
	if strings.HasSuffix(lineStr, " ") {
		return c.completeFiles("")
	}
	return c.completeFiles(current)
}

// completeCommands 补全命令（内置命令与PATH中的外部命令）
func (c *Completer) completeCommands(prefix string) ([][]rune, int) {
	var matches [][]rune

	for _, cmd := range builtinNames {
		if strings.HasPrefix(cmd, prefix) {
			matches = append(matches, []rune(cmd[len(prefix):]))
		}
	}

	pathEnv := c.shell.state.Env.Value("PATH")
	seen := make(map[string]bool)
	for _, dir := range strings.Split(pathEnv, ":") {
		if dir == "" {
			dir = "."
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if strings.HasPrefix(name, prefix) && !seen[name] {
				seen[name] = true
				matches = append(matches, []rune(name[len(prefix):]))
			}
		}
	}

	return matches, len(prefix)
}

// completeFiles 补全文件名
func (c *Completer) completeFiles(prefix string) ([][]rune, int) {
	var matches [][]rune

	dir := "."
	pattern := prefix
	if strings.Contains(prefix, "/") {
		dir = filepath.Dir(prefix)
		pattern = filepath.Base(prefix)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return matches, len(pattern)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, pattern) {
			continue
		}
		completion := name[len(pattern):]
		if entry.IsDir() {
			completion += "/"
		}
		matches = append(matches, []rune(completion))
	}

	return matches, len(pattern)
}
