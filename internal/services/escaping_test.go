package services

import (
	"html"
	"strings"
	"testing"
	"testing/quick"
)

func TestProperty_BoldEscapesContent(t *testing.T) {
	property := func(text string) bool {
		return FormatBold(text) == "<b>"+html.EscapeString(text)+"</b>"
	}
	if err := quick.Check(property, &quick.Config{MaxCount: 100}); err != nil {
		t.Errorf("bold formatting failed: %v", err)
	}
}

func TestProperty_FormattedTextHasNoRawMarkup(t *testing.T) {
	property := func(text string) bool {
		for _, out := range []string{FormatBold(text), FormatItalic(text), FormatCode(text)} {
			inner := out[strings.Index(out, ">")+1 : strings.LastIndex(out, "<")]
			if strings.ContainsAny(inner, "<>") {
				return false
			}
		}
		return true
	}
	if err := quick.Check(property, &quick.Config{MaxCount: 100}); err != nil {
		t.Errorf("escaping failed: %v", err)
	}
}

func TestFormatHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"bold", FormatBold("Girls & STEM"), "<b>Girls &amp; STEM</b>"},
		{"italic", FormatItalic("<draft>"), "<i>&lt;draft&gt;</i>"},
		{"code", FormatCode("PAY-1"), "<code>PAY-1</code>"},
		{"link", FormatLink("pay", "http://x/pay?a=1&b=2"), `<a href="http://x/pay?a=1&amp;b=2">pay</a>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
