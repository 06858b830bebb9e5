package pdf

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// defaultFontPattern matches math and monospace fonts whose glyphs must
// never pass through a translator.
const defaultFontPattern = `(CM[^R]|MS.M|XY|MT|BL|RM|EU|LA|RS|LINE|LCIRCLE|TeX-|rsfs|txsy|wasy|stmary|.*Mono|.*Code|.*Ital|.*Sym|.*Math)`

// Shield 把公式字符替换为 {v<n>} 占位符，翻译后再还原。
// 占位符在提示词里被声明为不可改动，这样公式可以穿过任何翻译后端。
type Shield struct {
	fontRe *regexp.Regexp
	charRe *regexp.Regexp // nil 时退回 unicode 类别判断
}

// NewShield compiles the font and character patterns. Empty fontPattern
// selects the built-in math font set; empty charPattern selects the
// unicode category check (Lm, Mn, Sk, Sm, Zl, Zp, So).
func NewShield(fontPattern, charPattern string) (*Shield, error) {
	if fontPattern == "" {
		fontPattern = defaultFontPattern
	}
	fontRe, err := regexp.Compile(fontPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid font pattern: %w", err)
	}

	var charRe *regexp.Regexp
	if charPattern != "" {
		charRe, err = regexp.Compile(charPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid char pattern: %w", err)
		}
	}
	return &Shield{fontRe: fontRe, charRe: charRe}, nil
}

// ProtectedFont reports whether text in this font is formula material.
func (s *Shield) ProtectedFont(fontName string) bool {
	return fontName != "" && s.fontRe.MatchString(fontName)
}

func (s *Shield) protectedRune(r rune) bool {
	if s.charRe != nil {
		return s.charRe.MatchString(string(r))
	}
	return unicode.In(r, unicode.Lm, unicode.Mn, unicode.Sk, unicode.Sm, unicode.Zl, unicode.Zp, unicode.So)
}

// Mask replaces each run of protected characters with a {v<n>} placeholder
// and returns the masked text together with the run contents. Restore
// reverses it with the same slice.
func (s *Shield) Mask(text string) (string, []string) {
	var (
		out  strings.Builder
		run  strings.Builder
		vars []string
	)

	flush := func() {
		if run.Len() == 0 {
			return
		}
		vars = append(vars, run.String())
		fmt.Fprintf(&out, "{v%d}", len(vars))
		run.Reset()
	}

	for _, r := range text {
		if s.protectedRune(r) {
			run.WriteRune(r)
			continue
		}
		flush()
		out.WriteRune(r)
	}
	flush()
	return out.String(), vars
}

var placeholderRe = regexp.MustCompile(`\{\s*v\s*(\d+)\s*\}`)

// Restore substitutes the original runs back for their placeholders.
// Translators occasionally pad placeholders with spaces, so the match is
// lenient about whitespace inside the braces.
func (s *Shield) Restore(text string, vars []string) string {
	if len(vars) == 0 {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		groups := placeholderRe.FindStringSubmatch(m)
		n := 0
		for _, c := range groups[1] {
			n = n*10 + int(c-'0')
		}
		if n < 1 || n > len(vars) {
			return m
		}
		return vars[n-1]
	})
}
