package shell

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	promptUserColor = color.New(color.FgGreen, color.Bold)
	promptPathColor = color.New(color.FgBlue, color.Bold)
)

// getPrompt 构造提示符 user@host:wd$
// 工作目录位于HOME下时缩写为~
func (s *Shell) getPrompt() string {
	username := s.state.Env.Value("USER")
	if username == "" {
		username = "user"
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "host"
	}

	wd, _ := os.Getwd()
	if wd == "" {
		wd = s.state.Env.Value("PWD")
	}

	home := s.state.Env.Value("HOME")
	if home != "" && (wd == home || strings.HasPrefix(wd, home+"/")) {
		wd = "~" + wd[len(home):]
	}

	return fmt.Sprintf("%s:%s$ ",
		promptUserColor.Sprintf("%s@%s", username, hostname),
		promptPathColor.Sprint(wd))
}
