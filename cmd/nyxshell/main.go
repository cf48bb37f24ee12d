package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"nyxshell/internal/shell"
)

func main() {
	var command = flag.String("c", "", "执行命令字符串")
	flag.Parse()

	sh := shell.New()

	// 执行命令字符串
	if *command != "" {
		if err := sh.ExecuteReader(strings.NewReader(*command)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(sh.ExitStatus())
	}

	// 执行脚本文件
	if flag.NArg() > 0 {
		if err := sh.ExecuteScript(flag.Arg(0)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(127)
		}
		os.Exit(sh.ExitStatus())
	}

	// 交互式模式
	sh.Run()
	os.Exit(sh.ExitStatus())
}
