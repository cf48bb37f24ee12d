package lexer

import (
	"testing"
)

func TestUnclosedQuote(t *testing.T) {
	tests := []struct {
		input    string
		expected LexErrorType
	}{
		{"echo 'unterminated", LexErrorUnclosedSingleQuote},
		{`echo "unterminated`, LexErrorUnclosedDoubleQuote},
		{"echo a'", LexErrorUnclosedSingleQuote},
		{`echo "it's fine`, LexErrorUnclosedDoubleQuote},
	}

	for _, tt := range tests {
		_, err := Tokenize(tt.input)
		if err == nil {
			t.Errorf("测试 '%s': 期望错误但没有发生", tt.input)
			continue
		}
		lexErr, ok := err.(*LexError)
		if !ok {
			t.Errorf("测试 '%s': 期望 *LexError，得到 %T", tt.input, err)
			continue
		}
		if lexErr.Type != tt.expected {
			t.Errorf("测试 '%s': 错误类型错误，期望 %d，得到 %d",
				tt.input, tt.expected, lexErr.Type)
		}
		if lexErr.ExitCode() != 2 {
			t.Errorf("测试 '%s': 退出状态错误，期望 2，得到 %d",
				tt.input, lexErr.ExitCode())
		}
	}
}

func TestClosedQuotesNoError(t *testing.T) {
	tests := []string{
		"echo 'closed'",
		`echo "closed"`,
		`echo "nested 'single'"`,
		`echo 'nested "double"'`,
	}

	for _, input := range tests {
		if _, err := Tokenize(input); err != nil {
			t.Errorf("测试 '%s': 意外的错误: %v", input, err)
		}
	}
}
