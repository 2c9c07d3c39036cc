// Package prompt renders prompt templates with {name} placeholders.
//
// A template is plain text in which {name} is replaced by the value supplied
// for name. Literal braces are written as {{ and }}. Rendering is strict: a
// placeholder without a value, or a brace that does not form a placeholder,
// is a TemplateFormat error instead of leaking a raw token into the prompt.
package prompt

import (
	"fmt"
	"strings"

	"github.com/joestump/hookline/internal/apperr"
)

// Placeholder keys supplied by the generation call sites.
const (
	KeyURL      = "url"
	KeyExamples = "examples"
)

// Values maps placeholder names to their substitution text.
type Values map[string]string

// token is one parsed piece of a template: literal text or a placeholder name.
type token struct {
	literal string
	name    string
	offset  int
}

// Render substitutes every placeholder in tmpl. Keys in values that tmpl does
// not reference are ignored.
func Render(tmpl string, values Values) (string, error) {
	tokens, err := parse(tmpl)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(tmpl))
	for _, t := range tokens {
		if t.name == "" {
			b.WriteString(t.literal)
			continue
		}
		v, ok := values[t.name]
		if !ok {
			return "", apperr.TemplateFormat("render prompt",
				fmt.Sprintf("unknown placeholder {%s} at offset %d", t.name, t.offset), nil)
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

// Placeholders returns the placeholder names used by tmpl in order of first use.
func Placeholders(tmpl string) ([]string, error) {
	tokens, err := parse(tmpl)
	if err != nil {
		return nil, err
	}
	var names []string
	seen := make(map[string]bool)
	for _, t := range tokens {
		if t.name == "" || seen[t.name] {
			continue
		}
		seen[t.name] = true
		names = append(names, t.name)
	}
	return names, nil
}

// Validate checks that tmpl parses and references only the allowed names.
func Validate(tmpl string, allowed ...string) error {
	names, err := Placeholders(tmpl)
	if err != nil {
		return err
	}
	ok := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		ok[a] = true
	}
	for _, n := range names {
		if !ok[n] {
			return apperr.TemplateFormat("validate template",
				fmt.Sprintf("unknown placeholder {%s}; allowed: %s", n, formatAllowed(allowed)), nil)
		}
	}
	return nil
}

func formatAllowed(allowed []string) string {
	if len(allowed) == 0 {
		return "none"
	}
	parts := make([]string, len(allowed))
	for i, a := range allowed {
		parts[i] = "{" + a + "}"
	}
	return strings.Join(parts, ", ")
}

func parse(tmpl string) ([]token, error) {
	var (
		tokens []token
		lit    strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			tokens = append(tokens, token{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return nil, formatErr("unclosed '{'", i)
			}
			name := tmpl[i+1 : i+1+end]
			if !isIdent(name) {
				return nil, formatErr(fmt.Sprintf("invalid placeholder {%s}", name), i)
			}
			flush()
			tokens = append(tokens, token{name: name, offset: i})
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, formatErr("single '}' (write '}}' for a literal brace)", i)
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return tokens, nil
}

func formatErr(msg string, offset int) error {
	return apperr.TemplateFormat("parse template", fmt.Sprintf("%s at offset %d", msg, offset), nil)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
