package detection

import (
	"strconv"
	"strings"
)

// Pattern schemes.
const (
	JSONScheme = "json:"
	XMLScheme  = "xml://"
)

// Family is the content family of a body.
type Family int

// Content families.
const (
	FamilyUnknown Family = iota
	FamilyJSON
	FamilyXML
)

// String returns the family name.
func (f Family) String() string {
	switch f {
	case FamilyJSON:
		return "json"
	case FamilyXML:
		return "xml"
	default:
		return "unknown"
	}
}

// FamilyOf classifies a body by its declared content type, falling back to
// sniffing the first non-blank character.
func FamilyOf(contentType, body string) Family {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return FamilyJSON
	case strings.Contains(ct, "xml"):
		return FamilyXML
	}

	trimmed := strings.TrimLeft(body, " \t\r\n\ufeff")
	if trimmed == "" {
		return FamilyUnknown
	}
	switch trimmed[0] {
	case '{', '[':
		return FamilyJSON
	case '<':
		return FamilyXML
	default:
		return FamilyUnknown
	}
}

// IgnorePattern maps a dynamic field path to the pattern string registered
// with the mock engine. Paths already carry their scheme, so the mapping is
// the identity; it exists so callers never build patterns by hand.
func IgnorePattern(fieldPath string) string {
	return fieldPath
}

// ParsePattern splits an ignore pattern into its family and expression. JSON
// expressions are returned as JSONPath ("$.a.b"), XML expressions as etree
// paths ("/*[local-name()='a']").
func ParsePattern(pattern string) (Family, string, bool) {
	switch {
	case strings.HasPrefix(pattern, XMLScheme):
		expr := strings.TrimPrefix(pattern, XMLScheme)
		return FamilyXML, expr, expr != ""
	case strings.HasPrefix(pattern, JSONScheme):
		expr := strings.TrimPrefix(pattern, JSONScheme)
		switch {
		case expr == "" || expr == "$":
			return FamilyJSON, "$", true
		case strings.HasPrefix(expr, "$"):
			return FamilyJSON, expr, true
		case strings.HasPrefix(expr, "["):
			return FamilyJSON, "$" + expr, true
		default:
			return FamilyJSON, "$." + expr, true
		}
	default:
		return FamilyUnknown, "", false
	}
}

// jsonPath is a JSON field location as key and index segments.
type jsonPath []any

func (p jsonPath) child(seg any) jsonPath {
	out := make(jsonPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

// String renders p in dotted form, bracketing keys that are not plain
// identifiers: a.b, items[0].id, headers['x-trace'].
func (p jsonPath) String() string {
	if len(p) == 0 {
		return "$"
	}
	var b strings.Builder
	for i, seg := range p {
		switch s := seg.(type) {
		case int:
			b.WriteString("[" + strconv.Itoa(s) + "]")
		case string:
			if isIdentifier(s) {
				if i > 0 {
					b.WriteByte('.')
				}
				b.WriteString(s)
			} else {
				b.WriteString("['" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "']")
			}
		}
	}
	return b.String()
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// xmlStep renders one locator step matching an element by local name, with a
// 1-based position when siblings share the name.
func xmlStep(local string, position int) string {
	step := "/*[local-name()='" + local + "']"
	if position > 0 {
		step += "[" + strconv.Itoa(position) + "]"
	}
	return step
}
