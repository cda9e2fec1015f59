package export

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const (
	// MaxCellChars caps cell text before layout.
	MaxCellChars     = 1000
	TruncationMarker = "..."
)

// inlineTags are the formatting tags models put inside cells. Any other
// tag, or a mismatched close, makes the cell malformed.
var inlineTags = map[string]bool{
	"b": true, "i": true, "u": true, "em": true, "strong": true,
	"sup": true, "sub": true, "code": true, "span": true, "font": true,
	"br": true,
}

// plainText drops inline formatting from s. The second result is false when
// the markup is malformed.
func plainText(s string) (string, bool) {
	if !strings.ContainsAny(s, "<>&") {
		return s, true
	}
	if strings.Count(s, "<") != strings.Count(s, ">") {
		return "", false
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var (
		sb    strings.Builder
		stack []string
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return sb.String(), len(stack) == 0
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if !inlineTags[tag] {
				return "", false
			}
			if tag == "br" {
				sb.WriteByte('\n')
				continue
			}
			stack = append(stack, tag)
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) != "br" {
				return "", false
			}
			sb.WriteByte('\n')
		case html.EndTagToken:
			name, _ := z.TagName()
			if len(stack) == 0 || stack[len(stack)-1] != string(name) {
				return "", false
			}
			stack = stack[:len(stack)-1]
		default:
			// comments and doctypes never appear in a cell
			return "", false
		}
	}
}

var bracketStripper = strings.NewReplacer("<", "", ">", "")

// cellText prepares a cell for layout: inline markup is removed, falling
// back to bracket-stripped text when it is malformed, and the result is
// capped at MaxCellChars.
func cellText(s string) string {
	text, ok := plainText(s)
	if !ok {
		text = bracketStripper.Replace(s)
	}
	return truncate(text, MaxCellChars)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i] + TruncationMarker
		}
		count++
	}
	return s
}
