package executor

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nyxshell/internal/env"
	"nyxshell/internal/expand"
	"nyxshell/internal/heredoc"
	"nyxshell/internal/lexer"
	"nyxshell/internal/parser"
	"nyxshell/internal/state"
)

// sliceReader 预置heredoc正文行的LineReader
type sliceReader struct {
	lines []string
	pos   int
}

func (r *sliceReader) ReadLine(prompt string) (string, error) {
	if r.pos >= len(r.lines) {
		return "", io.EOF
	}
	line := r.lines[r.pos]
	r.pos++
	return line, nil
}

// testExecutor 构造使用真实进程环境的执行器
func testExecutor() *Executor {
	return New(&state.State{Env: env.FromEnviron(os.Environ())})
}

// runLine 测试辅助：对一行输入执行完整的五阶段流水线
func runLine(t *testing.T, ex *Executor, line string, heredocLines ...string) int {
	t.Helper()
	tokens, err := lexer.Tokenize(line)
	if err != nil {
		t.Fatalf("词法分析失败 '%s': %v", line, err)
	}
	tree, err := parser.Parse(tokens)
	if err != nil {
		t.Fatalf("语法分析失败 '%s': %v", line, err)
	}
	ctx := &expand.Context{Env: ex.State.Env, LastStatus: ex.State.LastStatus}
	expand.Tree(tree, ctx)
	if err := heredoc.Collect(tree, &sliceReader{lines: heredocLines}, ctx); err != nil {
		t.Fatalf("heredoc收集失败 '%s': %v", line, err)
	}
	return ex.Run(tree)
}

// readFile 读取文件内容
func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取 %s 失败: %v", path, err)
	}
	return string(data)
}

func TestExternalExitStatus(t *testing.T) {
	ex := testExecutor()
	if status := runLine(t, ex, "true"); status != 0 {
		t.Errorf("true应返回0，得到 %d", status)
	}
	if status := runLine(t, ex, "false"); status != 1 {
		t.Errorf("false应返回1，得到 %d", status)
	}
	if ex.State.LastStatus != 1 {
		t.Errorf("LastStatus应为1，得到 %d", ex.State.LastStatus)
	}
}

func TestCommandNotFound(t *testing.T) {
	ex := testExecutor()
	if status := runLine(t, ex, "definitely_not_a_command_xyz"); status != 127 {
		t.Errorf("未找到的命令应返回127，得到 %d", status)
	}
}

func TestAndOrShortCircuit(t *testing.T) {
	dir := t.TempDir()
	skipped := filepath.Join(dir, "skipped")
	fallback := filepath.Join(dir, "fallback")

	ex := testExecutor()
	status := runLine(t, ex, "false && echo skipped > "+skipped+" || echo fallback > "+fallback)
	if status != 0 {
		t.Errorf("状态错误，期望 0，得到 %d", status)
	}
	if _, err := os.Stat(skipped); !os.IsNotExist(err) {
		t.Errorf("&&右侧不应执行")
	}
	if got := readFile(t, fallback); got != "fallback\n" {
		t.Errorf("||右侧输出错误，得到 %q", got)
	}

	// 左侧成功时||右侧不执行
	other := filepath.Join(dir, "other")
	status = runLine(t, ex, "true || echo x > "+other)
	if status != 0 {
		t.Errorf("状态错误，期望 0，得到 %d", status)
	}
	if _, err := os.Stat(other); !os.IsNotExist(err) {
		t.Errorf("||左侧成功时右侧不应执行")
	}
}

func TestPipelineLastStatusWins(t *testing.T) {
	ex := testExecutor()
	if status := runLine(t, ex, "false | true"); status != 0 {
		t.Errorf("管道状态应取最后一个命令，期望 0，得到 %d", status)
	}
	if status := runLine(t, ex, "true | false"); status != 1 {
		t.Errorf("管道状态应取最后一个命令，期望 1，得到 %d", status)
	}
}

func TestPipelineDataFlow(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")

	ex := testExecutor()
	if status := runLine(t, ex, "echo hello | cat > "+out); status != 0 {
		t.Errorf("状态错误，期望 0，得到 %d", status)
	}
	if got := readFile(t, out); got != "hello\n" {
		t.Errorf("管道数据错误，期望 'hello\\n'，得到 %q", got)
	}
}

func TestPipelineWordCount(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")

	// echo注入结尾换行，wc -c统计6字节
	ex := testExecutor()
	if status := runLine(t, ex, "echo hello | wc -c > "+out); status != 0 {
		t.Errorf("状态错误，期望 0，得到 %d", status)
	}
	if got := strings.TrimSpace(readFile(t, out)); got != "6" {
		t.Errorf("wc -c输出错误，期望 6，得到 %q", got)
	}
}

func TestPipelineThreeStages(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")

	// 只有最后一个命令的输出到达stdout
	ex := testExecutor()
	if status := runLine(t, ex, "echo a | echo b | echo c > "+out); status != 0 {
		t.Errorf("状态错误，期望 0，得到 %d", status)
	}
	if got := readFile(t, out); got != "c\n" {
		t.Errorf("输出错误，期望 'c\\n'，得到 %q", got)
	}
}

func TestPipelineBuiltinDoesNotLeakState(t *testing.T) {
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("获取工作目录失败: %v", err)
	}
	defer os.Chdir(origWd)

	ex := testExecutor()

	// cd在管道内针对克隆状态执行，shell目录不变
	runLine(t, ex, "cd /tmp | cat")
	wd, _ := os.Getwd()
	if wd != origWd {
		t.Errorf("管道内的cd不应改变shell目录")
	}

	// export在管道内不修改shell环境
	runLine(t, ex, "export NYXTEST_LEAK=1 | cat")
	if _, ok := ex.State.Env.Get("NYXTEST_LEAK"); ok {
		t.Errorf("管道内的export不应修改shell环境")
	}

	// exit在管道内只终止该环节
	runLine(t, ex, "exit | cat")
	if ex.State.ExitRequested {
		t.Errorf("管道内的exit不应请求shell退出")
	}
}

func TestStandaloneBuiltinMutatesState(t *testing.T) {
	ex := testExecutor()
	if status := runLine(t, ex, "export NYXTEST_KEEP=yes"); status != 0 {
		t.Errorf("export失败，状态 %d", status)
	}
	if v := ex.State.Env.Value("NYXTEST_KEEP"); v != "yes" {
		t.Errorf("独立builtin应修改shell环境，得到 %s", v)
	}
}

func TestRedirects(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "f")
	g := filepath.Join(dir, "g")

	ex := testExecutor()

	// > 截断写
	runLine(t, ex, "echo one > "+f)
	runLine(t, ex, "echo two > "+f)
	if got := readFile(t, f); got != "two\n" {
		t.Errorf("截断写错误，得到 %q", got)
	}

	// >> 追加写
	runLine(t, ex, "echo three >> "+f)
	if got := readFile(t, f); got != "two\nthree\n" {
		t.Errorf("追加写错误，得到 %q", got)
	}

	// < 读入
	if status := runLine(t, ex, "cat < "+f+" > "+g); status != 0 {
		t.Errorf("状态错误，期望 0，得到 %d", status)
	}
	if got := readFile(t, g); got != "two\nthree\n" {
		t.Errorf("读入重定向错误，得到 %q", got)
	}

	// 同一流上后出现的重定向覆盖先出现的
	h1 := filepath.Join(dir, "h1")
	h2 := filepath.Join(dir, "h2")
	runLine(t, ex, "echo last > "+h1+" > "+h2)
	if got := readFile(t, h2); got != "last\n" {
		t.Errorf("最后的重定向应胜出，得到 %q", got)
	}
	if got := readFile(t, h1); got != "" {
		t.Errorf("被覆盖的目标应为空文件，得到 %q", got)
	}

	// 输出文件以0644创建
	info, err := os.Stat(h2)
	if err != nil {
		t.Fatalf("stat失败: %v", err)
	}
	if perm := info.Mode().Perm(); perm&0644 != perm {
		t.Errorf("文件权限错误，得到 %o", perm)
	}
}

func TestRedirectOpenFailure(t *testing.T) {
	ex := testExecutor()
	if status := runLine(t, ex, "cat < /nonexistent_nyx/in"); status != 1 {
		t.Errorf("打开失败应返回1，得到 %d", status)
	}
}

func TestEmptyCommandWithRedirect(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "created")

	// 参数向量为空但有重定向：目标被创建
	ex := testExecutor()
	if status := runLine(t, ex, "> "+f); status != 0 {
		t.Errorf("状态错误，期望 0，得到 %d", status)
	}
	if _, err := os.Stat(f); err != nil {
		t.Errorf("重定向目标应被创建: %v", err)
	}

	// 展开为空的命令同样只应用重定向
	g := filepath.Join(dir, "created2")
	if status := runLine(t, ex, "$NYX_UNSET_VAR > "+g); status != 0 {
		t.Errorf("状态错误，期望 0，得到 %d", status)
	}
	if _, err := os.Stat(g); err != nil {
		t.Errorf("重定向目标应被创建: %v", err)
	}
}

func TestHeredocDelivery(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")

	ex := testExecutor()
	status := runLine(t, ex, "cat <<END > "+out, "line one", "line two", "END")
	if status != 0 {
		t.Errorf("状态错误，期望 0，得到 %d", status)
	}
	if got := readFile(t, out); got != "line one\nline two\n" {
		t.Errorf("heredoc正文错误，得到 %q", got)
	}
}

func TestHeredocThenFileRedirect(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out")
	os.WriteFile(in, []byte("from file\n"), 0644)

	// 最后出现的输入重定向胜出
	ex := testExecutor()
	status := runLine(t, ex, "cat <<END < "+in+" > "+out, "from heredoc", "END")
	if status != 0 {
		t.Errorf("状态错误，期望 0，得到 %d", status)
	}
	if got := readFile(t, out); got != "from file\n" {
		t.Errorf("文件重定向应胜出，得到 %q", got)
	}
}

func TestSignalDeathStatus(t *testing.T) {
	ex := testExecutor()
	// 子进程死于SIGINT映射为130
	status := runLine(t, ex, "sh -c 'kill -INT $$'")
	if status != 130 {
		t.Errorf("SIGINT死亡应映射为130，得到 %d", status)
	}
}

func TestEmptyTreeKeepsStatus(t *testing.T) {
	ex := testExecutor()
	ex.State.LastStatus = 7
	if status := ex.Run(nil); status != 7 {
		t.Errorf("空树不应改变状态，得到 %d", status)
	}
}
