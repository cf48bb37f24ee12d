package shell

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// banner 启动横幅
const banner = `
  _   _            ____  _          _ _
 | \ | |_   ___  _/ ___|| |__   ___| | |
 |  \| | | | \ \/ \___ \| '_ \ / _ \ | |
 | |\  | |_| |>  < ___) | | | |  __/ | |
 |_| \_|\__, /_/\_\____/|_| |_|\___|_|_|
        |___/
`

// printBanner 交互模式启动时打印横幅
func printBanner() {
	color.New(color.FgCyan).Fprint(os.Stdout, banner)
	fmt.Println()
}
