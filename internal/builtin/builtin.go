// Package builtin 提供在shell进程内执行的内置命令
package builtin

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"nyxshell/internal/env"
	"nyxshell/internal/state"
)

// IO 内置命令的标准输入输出
// 执行器按重定向解析结果填充，默认为shell自身的标准流
type IO struct {
	In  *os.File
	Out *os.File
	Err *os.File
}

// Func 内置命令函数类型，argv[0]为命令名，返回退出状态
type Func func(st *state.State, argv []string, io IO) int

var builtins map[string]Func

func init() {
	builtins = make(map[string]Func)
	builtins["echo"] = echo
	builtins["cd"] = cd
	builtins["pwd"] = pwd
	builtins["export"] = export
	builtins["unset"] = unset
	builtins["env"] = envCmd
	builtins["exit"] = exit
}

// Lookup 按名字精确匹配内置命令
func Lookup(name string) (Func, bool) {
	fn, ok := builtins[name]
	return fn, ok
}

// echo 打印参数
// 连续的前导-n标志（可叠写，如-nnn）抑制结尾换行，始终返回0
func echo(st *state.State, argv []string, io IO) int {
	args := argv[1:]
	newline := true
	for len(args) > 0 && isEchoFlag(args[0]) {
		newline = false
		args = args[1:]
	}
	fmt.Fprint(io.Out, strings.Join(args, " "))
	if newline {
		fmt.Fprintln(io.Out)
	}
	return 0
}

// isEchoFlag 判断参数是否为-n标志（一个或多个n）
func isEchoFlag(arg string) bool {
	if len(arg) < 2 || arg[0] != '-' {
		return false
	}
	for i := 1; i < len(arg); i++ {
		if arg[i] != 'n' {
			return false
		}
	}
	return true
}

// cd 改变工作目录
// 无参数时取HOME；成功后OLDPWD←旧PWD，PWD←新绝对路径
func cd(st *state.State, argv []string, io IO) int {
	args := argv[1:]
	if len(args) > 1 {
		fmt.Fprintln(io.Err, "nyxshell: cd: too many arguments")
		return 1
	}

	var dir string
	if len(args) == 0 {
		home, ok := st.Env.Get("HOME")
		if !ok || home == "" {
			fmt.Fprintln(io.Err, "nyxshell: cd: HOME not set")
			return 1
		}
		dir = home
	} else {
		dir = args[0]
	}

	oldPwd := st.Env.Value("PWD")

	// 管道内的克隆状态：进程的工作目录属于shell本体，
	// 这里只校验目标并更新克隆体的PWD
	if st.Subshell {
		info, err := os.Stat(dir)
		if err != nil {
			fmt.Fprintf(io.Err, "nyxshell: cd: %s: %s\n", dir, reason(err))
			return 1
		}
		if !info.IsDir() {
			fmt.Fprintf(io.Err, "nyxshell: cd: %s: Not a directory\n", dir)
			return 1
		}
		if unix.Access(dir, unix.X_OK) != nil {
			fmt.Fprintf(io.Err, "nyxshell: cd: %s: Permission denied\n", dir)
			return 1
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			abs = dir
		}
		st.Env.Set("OLDPWD", oldPwd)
		st.Env.Set("PWD", abs)
		return 0
	}

	if err := os.Chdir(dir); err != nil {
		fmt.Fprintf(io.Err, "nyxshell: cd: %s: %s\n", dir, reason(err))
		return 1
	}

	pwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(io.Err, "nyxshell: cd: %s\n", reason(err))
		return 1
	}
	st.Env.Set("OLDPWD", oldPwd)
	st.Env.Set("PWD", pwd)
	return 0
}

// pwd 打印当前工作目录，忽略所有参数
func pwd(st *state.State, argv []string, io IO) int {
	dir, err := os.Getwd()
	if err != nil {
		// 目录被删除等情况下回退到PWD变量
		dir = st.Env.Value("PWD")
	}
	fmt.Fprintln(io.Out, dir)
	return 0
}

// export 创建或更新绑定
// 无参数时按插入顺序打印declare -x列表；
// 非法名字逐个诊断并返回1，合法参数仍然生效
func export(st *state.State, argv []string, io IO) int {
	args := argv[1:]
	if len(args) == 0 {
		st.Env.Each(func(name, value string, hasValue bool) {
			if hasValue {
				fmt.Fprintf(io.Out, "declare -x %s=\"%s\"\n", name, value)
			} else {
				fmt.Fprintf(io.Out, "declare -x %s\n", name)
			}
		})
		return 0
	}

	status := 0
	for _, arg := range args {
		name, value, hasValue := splitAssignment(arg)
		if !env.IsValidName(name) {
			fmt.Fprintf(io.Err, "nyxshell: export: `%s': not a valid identifier\n", arg)
			status = 1
			continue
		}
		if hasValue {
			st.Env.Set(name, value)
		} else {
			st.Env.SetExported(name)
		}
	}
	return status
}

// unset 删除绑定
// 不存在的名字静默忽略；非法名字诊断并返回1
func unset(st *state.State, argv []string, io IO) int {
	status := 0
	for _, arg := range argv[1:] {
		if !env.IsValidName(arg) {
			fmt.Fprintf(io.Err, "nyxshell: unset: `%s': not a valid identifier\n", arg)
			status = 1
			continue
		}
		st.Env.Unset(arg)
	}
	return status
}

// envCmd 按插入顺序打印有值的绑定
func envCmd(st *state.State, argv []string, io IO) int {
	st.Env.Each(func(name, value string, hasValue bool) {
		if hasValue {
			fmt.Fprintf(io.Out, "%s=%s\n", name, value)
		}
	})
	return 0
}

// exit 退出shell
// 无参数沿用最近状态；数字参数取模256；非数字诊断后以2退出；
// 多个参数诊断但不退出，状态为1
func exit(st *state.State, argv []string, io IO) int {
	args := argv[1:]
	if st.Interactive && !st.Subshell {
		fmt.Fprintln(io.Err, "exit")
	}

	if len(args) == 0 {
		st.RequestExit(st.LastStatus)
		return st.LastStatus
	}

	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(io.Err, "nyxshell: exit: %s: numeric argument required\n", args[0])
		st.RequestExit(2)
		return 2
	}

	if len(args) > 1 {
		fmt.Fprintln(io.Err, "nyxshell: exit: too many arguments")
		return 1
	}

	status := int(((n % 256) + 256) % 256)
	st.RequestExit(status)
	return status
}

// splitAssignment 分割NAME=VALUE形式的参数
func splitAssignment(arg string) (string, string, bool) {
	if i := strings.IndexByte(arg, '='); i >= 0 {
		return arg[:i], arg[i+1:], true
	}
	return arg, "", false
}

// reason 提取系统错误的原因文本（去掉op和path前缀）
func reason(err error) string {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Err.Error()
	}
	if le, ok := err.(*os.LinkError); ok {
		return le.Err.Error()
	}
	return err.Error()
}
