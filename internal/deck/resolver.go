package deck

import "strings"

// TokenMap maps literal delimited tokens ("{{CLIENT_NAME}}") to their
// substitution values.
type TokenMap map[string]string

// ChartPlaceholderToken marks the visual slot for the rendered chart. It is
// handled by image insertion, not text substitution.
const ChartPlaceholderToken = "{{CHART_PLACEHOLDER}}"

// Token wraps an identifier in the literal delimiter syntax.
func Token(ident string) string { return "{{" + ident + "}}" }

// Resolve walks a shape depth-first and replaces every token occurrence in
// its text runs in place. Matching is exact literal substring matching:
// multiple distinct tokens may be replaced within one run, tokens absent
// from the map stay in the output untouched, and a second pass over the
// same map is a no-op because substituted tokens are gone.
func Resolve(s Shape, tokens TokenMap) {
	switch v := s.(type) {
	case TextHolder:
		resolveFrame(v.TextFrame(), tokens)
	case *Table:
		for _, row := range v.Rows {
			for _, cell := range row {
				resolveFrame(cell, tokens)
			}
		}
	}
	if c, ok := s.(Container); ok {
		for _, child := range c.Children() {
			Resolve(child, tokens)
		}
	}
}

func resolveFrame(tf *TextFrame, tokens TokenMap) {
	for _, p := range tf.Paragraphs {
		for _, r := range p.Runs {
			for key, val := range tokens {
				if strings.Contains(r.Text, key) {
					r.Text = strings.ReplaceAll(r.Text, key, val)
				}
			}
		}
	}
}
