package utils

import (
	"strconv"
	"unicode/utf8"
)

// ParseID parses a positive numeric id from a path or query value.
func ParseID(s string) (uint, bool) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// TruncateRunes 按字符截断，不会切断多字节字符
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
