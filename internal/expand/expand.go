// Package expand 提供变量展开功能
// 遍历语法树，把每个CMD的WORD列表改写为最终的参数向量
package expand

import (
	"strconv"
	"strings"

	"nyxshell/internal/env"
	"nyxshell/internal/lexer"
	"nyxshell/internal/parser"
)

// Context 展开上下文
type Context struct {
	Env        *env.Env
	LastStatus int // $? 的值
}

// Tree 展开整棵语法树
// 每个CMD得到非nil的Argv；重定向目标同步展开，heredoc定界符除外
func Tree(node *parser.Node, ctx *Context) {
	node.Walk(func(cmd *parser.Command) error {
		Command(cmd, ctx)
		return nil
	})
}

// Command 展开单个CMD节点
func Command(cmd *parser.Command, ctx *Context) {
	cmd.Argv = make([]string, 0, len(cmd.Words))
	for _, word := range cmd.Words {
		value, quoted := Word(word, ctx)
		// 完全无引号且展开为空的WORD从参数向量中剔除；
		// 显式引号产生的空串保留
		if value == "" && !quoted {
			continue
		}
		cmd.Argv = append(cmd.Argv, value)
	}

	for _, redir := range cmd.Redirects {
		if redir.Type == parser.RedirectHeredoc {
			// 定界符不展开，只去引号并记录引号事实
			redir.Path = redir.Target.Text()
			redir.Quoted = redir.Target.Quoted()
			continue
		}
		redir.Path, _ = Word(redir.Target, ctx)
	}
}

// Word 展开一个WORD并返回最终字符串与是否含引号片段
// 不做字段切分：含空格的变量值仍是单个参数
func Word(word lexer.Token, ctx *Context) (string, bool) {
	var out strings.Builder
	for _, seg := range word.Segments {
		out.WriteString(segment(seg, ctx))
	}
	return out.String(), word.Quoted()
}

// segment 按片段引号模式展开
func segment(seg lexer.Segment, ctx *Context) string {
	if seg.Quote == lexer.QuoteSingle {
		return seg.Text
	}
	return Line(seg.Text, ctx)
}

// Line 对文本执行$NAME与$?展开，规则与双引号片段一致
// heredoc收集阶段复用该函数展开正文行
func Line(text string, ctx *Context) string {
	var out strings.Builder
	for i := 0; i < len(text); {
		if text[i] != '$' {
			out.WriteByte(text[i])
			i++
			continue
		}
		// $? 展开为最近一次退出状态
		if i+1 < len(text) && text[i+1] == '?' {
			out.WriteString(strconv.Itoa(ctx.LastStatus))
			i += 2
			continue
		}
		// $NAME 贪婪消费合法名字
		name, width := scanName(text[i+1:])
		if width == 0 {
			// $ 后不是名字起始也不是 ?，按字面量输出
			out.WriteByte('$')
			i++
			continue
		}
		out.WriteString(ctx.Env.Value(name))
		i += 1 + width
	}
	return out.String()
}

// scanName 从文本开头扫描 [A-Za-z_][A-Za-z0-9_]*
func scanName(text string) (string, int) {
	if text == "" || !isNameStart(text[0]) {
		return "", 0
	}
	i := 1
	for i < len(text) && isNameChar(text[i]) {
		i++
	}
	return text[:i], i
}

// isNameStart 判断变量名首字符
func isNameStart(ch byte) bool {
	return ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z'
}

// isNameChar 判断变量名后续字符
func isNameChar(ch byte) bool {
	return isNameStart(ch) || ch >= '0' && ch <= '9'
}
