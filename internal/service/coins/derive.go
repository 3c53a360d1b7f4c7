package coins

import (
	"strings"
	"unicode/utf8"
)

const (
	maxNameRunes    = 32
	maxSymbolLength = 8

	DefaultTokenName   = "Blog Coin"
	DefaultTokenSymbol = "BLOG"
)

// DeriveTokenName is the trimmed title cut to 32 characters.
func DeriveTokenName(title string) string {
	name := strings.TrimSpace(title)
	if utf8.RuneCountInString(name) > maxNameRunes {
		name = string([]rune(name)[:maxNameRunes])
	}
	if name == "" {
		return DefaultTokenName
	}
	return name
}

// DeriveTokenSymbol keeps the first eight ASCII letters and digits, uppercased.
func DeriveTokenSymbol(title string) string {
	var b strings.Builder
	for i := 0; i < len(title) && b.Len() < maxSymbolLength; i++ {
		c := title[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
			b.WriteByte(c)
		}
	}
	if b.Len() == 0 {
		return DefaultTokenSymbol
	}
	return strings.ToUpper(b.String())
}
