package engine

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/beevik/etree"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/getmockd/replayd/pkg/detection"
)

// ignoreRule is a compiled ignore pattern.
type ignoreRule struct {
	pattern string
	family  detection.Family
	// whole ignores the entire body.
	whole bool
	json  jp.Expr
	xml   etree.Path
	attr  string
}

func compileRule(pattern string) (ignoreRule, error) {
	family, expr, ok := detection.ParsePattern(pattern)
	if !ok {
		return ignoreRule{}, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}

	rule := ignoreRule{pattern: pattern, family: family}
	switch family {
	case detection.FamilyJSON:
		if expr == "$" {
			rule.whole = true
			return rule, nil
		}
		x, err := jp.ParseString(expr)
		if err != nil {
			return ignoreRule{}, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, pattern, err)
		}
		rule.json = x
	case detection.FamilyXML:
		elem := expr
		if i := strings.LastIndex(expr, "/@"); i >= 0 {
			elem, rule.attr = expr[:i], expr[i+2:]
			if rule.attr == "" {
				return ignoreRule{}, fmt.Errorf("%w: %q: empty attribute name", ErrInvalidPattern, pattern)
			}
		}
		if elem == "" {
			elem = "/*"
		}
		p, err := etree.CompilePath(elem)
		if err != nil {
			return ignoreRule{}, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, pattern, err)
		}
		rule.xml = p
	}
	return rule, nil
}

func compileRules(patterns []string) ([]ignoreRule, error) {
	rules := make([]ignoreRule, 0, len(patterns))
	for _, p := range patterns {
		r, err := compileRule(p)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// findStub returns the first stub matching req.
func findStub(stubs []*Stub, global []ignoreRule, req RecordedRequest) *Stub {
	for _, s := range stubs {
		if !requestLineMatches(s, req) {
			continue
		}
		rules := global
		if len(s.rules) > 0 {
			rules = append(append([]ignoreRule(nil), global...), s.rules...)
		}
		if bodiesMatch(s.Request.Body, req.Body, contentType(s, req), rules) {
			return s
		}
	}
	return nil
}

// nearMisses names stubs whose method and path match but whose query or body
// differ.
func nearMisses(stubs []*Stub, req RecordedRequest) []string {
	reqPath, _, _ := strings.Cut(req.URL, "?")
	var out []string
	for _, s := range stubs {
		stubPath, _, _ := strings.Cut(s.Request.URL, "?")
		if strings.EqualFold(s.Request.Method, req.Method) && stubPath == reqPath {
			out = append(out, s.Name)
		}
	}
	return out
}

func requestLineMatches(s *Stub, req RecordedRequest) bool {
	if !strings.EqualFold(s.Request.Method, req.Method) {
		return false
	}
	stubPath, stubQuery, _ := strings.Cut(s.Request.URL, "?")
	reqPath, reqQuery, _ := strings.Cut(req.URL, "?")
	if stubPath != reqPath {
		return false
	}
	return queryMatches(stubQuery, reqQuery)
}

func queryMatches(a, b string) bool {
	if a == b {
		return true
	}
	qa, errA := url.ParseQuery(a)
	qb, errB := url.ParseQuery(b)
	if errA != nil || errB != nil {
		return false
	}
	if len(qa) == 0 && len(qb) == 0 {
		return true
	}
	return reflect.DeepEqual(qa, qb)
}

func contentType(s *Stub, req RecordedRequest) string {
	if s.Request.ContentType != "" {
		return s.Request.ContentType
	}
	return req.ContentType
}

// bodiesMatch compares a recorded body with an incoming one. A stub without
// a body accepts any body.
func bodiesMatch(recorded, incoming, contentType string, rules []ignoreRule) bool {
	if recorded == "" || recorded == incoming {
		return true
	}
	switch detection.FamilyOf(contentType, recorded) {
	case detection.FamilyJSON:
		return jsonBodiesMatch(recorded, incoming, rules)
	case detection.FamilyXML:
		return xmlBodiesMatch(recorded, incoming, rules)
	default:
		return false
	}
}

func jsonBodiesMatch(recorded, incoming string, rules []ignoreRule) bool {
	a, err := oj.ParseString(recorded)
	if err != nil {
		return false
	}
	b, err := oj.ParseString(incoming)
	if err != nil {
		return false
	}

	for _, r := range rules {
		if r.family != detection.FamilyJSON {
			continue
		}
		if r.whole {
			return true
		}
		// Set fails when the path crosses a scalar; both sides then keep
		// their value and are compared as is.
		_ = r.json.Set(a, nil)
		_ = r.json.Set(b, nil)
	}
	return reflect.DeepEqual(a, b)
}

func xmlBodiesMatch(recorded, incoming string, rules []ignoreRule) bool {
	a := etree.NewDocument()
	if err := a.ReadFromString(recorded); err != nil || a.Root() == nil {
		return false
	}
	b := etree.NewDocument()
	if err := b.ReadFromString(incoming); err != nil || b.Root() == nil {
		return false
	}

	var xmlRules []ignoreRule
	for _, r := range rules {
		if r.family == detection.FamilyXML {
			xmlRules = append(xmlRules, r)
		}
	}
	neutralize(a, xmlRules)
	neutralize(b, xmlRules)

	return xmlEqual(a.Root(), b.Root())
}

// neutralize blanks every element and drops every attribute addressed by
// rules. Targets are resolved before any change so positional steps keep
// their meaning.
func neutralize(doc *etree.Document, rules []ignoreRule) {
	type attrTarget struct {
		elem *etree.Element
		key  string
	}
	var (
		elems []*etree.Element
		attrs []attrTarget
	)
	for _, r := range rules {
		for _, e := range doc.FindElementsPath(r.xml) {
			if r.attr != "" {
				attrs = append(attrs, attrTarget{e, r.attr})
				continue
			}
			elems = append(elems, e)
		}
	}

	for _, t := range attrs {
		removeLocalAttr(t.elem, t.key)
	}
	for _, e := range elems {
		e.Child = nil
		e.Attr = nil
	}
}

func removeLocalAttr(e *etree.Element, key string) {
	kept := e.Attr[:0]
	for _, a := range e.Attr {
		if a.Key != key || a.Space == "xmlns" {
			kept = append(kept, a)
		}
	}
	e.Attr = kept
}

// xmlEqual compares elements by local name, non-namespace attributes,
// trimmed text and child elements in order.
func xmlEqual(a, b *etree.Element) bool {
	if a.Tag != b.Tag {
		return false
	}
	if strings.TrimSpace(a.Text()) != strings.TrimSpace(b.Text()) {
		return false
	}
	if !reflect.DeepEqual(attrMap(a), attrMap(b)) {
		return false
	}

	ca, cb := a.ChildElements(), b.ChildElements()
	if len(ca) != len(cb) {
		return false
	}
	for i := range ca {
		if !xmlEqual(ca[i], cb[i]) {
			return false
		}
	}
	return true
}

func attrMap(e *etree.Element) map[string]string {
	m := make(map[string]string, len(e.Attr))
	for _, a := range e.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		m[a.Key] = a.Value
	}
	return m
}
