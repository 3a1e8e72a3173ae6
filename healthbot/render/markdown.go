package render

import (
	"html/template"
	"strings"

	"healthbot/healthbot/utils/color"
)

// Span is a run of text with uniform emphasis.
type Span struct {
	Text   string
	Bold   bool
	Italic bool
}

// Parse splits one line of chat text into spans. Supported markup is
// **bold** and *italic*, both non-empty and confined to the line. Italic may
// appear inside bold but not the other way round; any marker without a
// partner is kept as literal text.
func Parse(line string) []Span {
	var out []Span
	var plain strings.Builder
	flush := func() {
		if plain.Len() > 0 {
			out = appendSpan(out, Span{Text: plain.String()})
			plain.Reset()
		}
	}

	for i := 0; i < len(line); {
		if strings.HasPrefix(line[i:], "**") {
			if end := strings.Index(line[i+2:], "**"); end > 0 {
				flush()
				for _, s := range parseItalic(line[i+2 : i+2+end]) {
					s.Bold = true
					out = appendSpan(out, s)
				}
				i += 2 + end + 2
				continue
			}
			plain.WriteString("**")
			i += 2
			continue
		}
		if line[i] == '*' {
			if end, ok := italicEnd(line, i); ok {
				flush()
				out = appendSpan(out, Span{Text: line[i+1 : end], Italic: true})
				i = end + 1
				continue
			}
		}
		plain.WriteByte(line[i])
		i++
	}
	flush()
	return out
}

// italicEnd finds the closing star for a single star at open. The closer must
// not be part of a "**" pair, so italic text never contains bold.
func italicEnd(line string, open int) (int, bool) {
	if open+1 < len(line) && line[open+1] == '*' {
		return 0, false
	}
	rel := strings.IndexByte(line[open+1:], '*')
	if rel <= 0 {
		return 0, false
	}
	end := open + 1 + rel
	if end+1 < len(line) && line[end+1] == '*' {
		return 0, false
	}
	return end, true
}

func parseItalic(text string) []Span {
	var out []Span
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '*' {
			continue
		}
		end, ok := italicEnd(text, i)
		if !ok {
			continue
		}
		if i > start {
			out = appendSpan(out, Span{Text: text[start:i]})
		}
		out = appendSpan(out, Span{Text: text[i+1 : end], Italic: true})
		i = end
		start = end + 1
	}
	if start < len(text) {
		out = appendSpan(out, Span{Text: text[start:]})
	}
	return out
}

func appendSpan(spans []Span, s Span) []Span {
	if n := len(spans); n > 0 && spans[n-1].Bold == s.Bold && spans[n-1].Italic == s.Italic {
		spans[n-1].Text += s.Text
		return spans
	}
	return append(spans, s)
}

// Markdown escapes text and then formats emphasis, line by line. The result
// is always balanced markup.
func Markdown(text string) template.HTML {
	lines := strings.Split(text, "\n")
	var b strings.Builder
	for n, line := range lines {
		if n > 0 {
			b.WriteByte('\n')
		}
		writeHTMLSpans(&b, Parse(template.HTMLEscapeString(line)))
	}
	return template.HTML(b.String())
}

func writeHTMLSpans(b *strings.Builder, spans []Span) {
	var bold, italic bool
	for _, s := range spans {
		if italic && (!s.Italic || bold != s.Bold) {
			b.WriteString("</em>")
			italic = false
		}
		if bold && !s.Bold {
			b.WriteString("</strong>")
			bold = false
		}
		if s.Bold && !bold {
			b.WriteString("<strong>")
			bold = true
		}
		if s.Italic && !italic {
			b.WriteString("<em>")
			italic = true
		}
		b.WriteString(s.Text)
	}
	if italic {
		b.WriteString("</em>")
	}
	if bold {
		b.WriteString("</strong>")
	}
}

// Terminal formats emphasis with ANSI styles.
func Terminal(text string) string {
	lines := strings.Split(text, "\n")
	for n, line := range lines {
		var b strings.Builder
		for _, s := range Parse(line) {
			switch {
			case s.Bold && s.Italic:
				b.WriteString(color.BoldItalic(s.Text))
			case s.Bold:
				b.WriteString(color.Bold(s.Text))
			case s.Italic:
				b.WriteString(color.Italic(s.Text))
			default:
				b.WriteString(s.Text)
			}
		}
		lines[n] = b.String()
	}
	return strings.Join(lines, "\n")
}
