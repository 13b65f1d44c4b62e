package prompts

import (
	"sort"
	"strings"
)

// render expands {name} placeholders. {{ and }} produce literal braces.
func render(name, tmpl string, vars map[string]string) (string, error) {
	var sb strings.Builder
	sb.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				sb.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", &TemplateError{Kind: ErrMalformedTemplate, Template: name, Placeholder: "unclosed '{'"}
			}
			key := tmpl[i+1 : i+1+end]
			value, ok := vars[key]
			if !ok {
				return "", &TemplateError{
					Kind:        ErrMissingPlaceholder,
					Template:    name,
					Placeholder: key,
					Provided:    sortedKeys(vars),
				}
			}
			sb.WriteString(value)
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				sb.WriteByte('}')
				i++
				continue
			}
			return "", &TemplateError{Kind: ErrMalformedTemplate, Template: name, Placeholder: "single '}'"}
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
