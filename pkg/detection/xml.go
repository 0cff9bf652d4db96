package detection

import (
	"errors"
	"strings"

	"github.com/beevik/etree"

	"github.com/getmockd/replayd/pkg/util"
)

var errNoRoot = errors.New("xml document has no root element")

func parseXML(body string) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.ValidateInput = true
	if err := doc.ReadFromString(body); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, errNoRoot
	}
	return doc, nil
}

// xmlDiff walks parsed XML documents in parallel, matching elements by local
// name.
type xmlDiff struct {
	found []observation
}

func (d *xmlDiff) compareRoots(docs []*etree.Document) {
	roots := make([]*etree.Element, len(docs))
	for i, doc := range docs {
		roots[i] = doc.Root()
	}
	for _, r := range roots[1:] {
		if r.Tag != roots[0].Tag {
			d.reportElements("/*", roots)
			return
		}
	}
	d.compare(xmlStep(roots[0].Tag, 0), roots)
}

func (d *xmlDiff) compare(loc string, elems []*etree.Element) {
	canon := make([]string, len(elems))
	for i, e := range elems {
		canon[i] = serialize(e)
	}
	if allSame(canon) {
		return
	}

	if !sameChildNames(elems) {
		d.reportElements(loc, elems)
		return
	}

	for _, attr := range elems[0].Attr {
		if isNamespaceDecl(attr) {
			continue
		}
		vals := make([]value, len(elems))
		for i, e := range elems {
			if a := localAttr(e, attr.Key); a != nil {
				vals[i] = value{present: true, key: a.Value, display: util.TruncateBody(a.Value, maxSampleLength)}
			}
		}
		if !allValuesEqual(vals) {
			d.found = append(d.found, observation{path: XMLScheme + loc + "/@" + attr.Key, values: vals})
		}
	}

	// Leading text counts for mixed content too. A divergence there reports
	// the element itself, which covers its children when ignored.
	texts := make([]value, len(elems))
	for i, e := range elems {
		text := strings.TrimSpace(e.Text())
		texts[i] = value{present: true, key: text, display: util.TruncateBody(text, maxSampleLength)}
	}
	if !allValuesEqual(texts) {
		d.found = append(d.found, observation{path: XMLScheme + loc, values: texts})
		return
	}

	children := elems[0].ChildElements()
	if len(children) == 0 {
		return
	}

	counts := make(map[string]int, len(children))
	for _, c := range children {
		counts[c.Tag]++
	}
	seen := make(map[string]int, len(children))
	for i, c := range children {
		seen[c.Tag]++
		position := 0
		if counts[c.Tag] > 1 {
			position = seen[c.Tag]
		}
		next := make([]*etree.Element, len(elems))
		for j, e := range elems {
			next[j] = e.ChildElements()[i]
		}
		d.compare(loc+xmlStep(c.Tag, position), next)
	}
}

func (d *xmlDiff) reportElements(loc string, elems []*etree.Element) {
	vals := make([]value, len(elems))
	for i, e := range elems {
		s := serialize(e)
		vals[i] = value{present: true, key: s, display: util.TruncateBody(s, maxSampleLength)}
	}
	d.found = append(d.found, observation{path: XMLScheme + loc, values: vals})
}

// sameChildNames reports whether every element has the same sequence of
// child element local names.
func sameChildNames(elems []*etree.Element) bool {
	first := elems[0].ChildElements()
	for _, e := range elems[1:] {
		children := e.ChildElements()
		if len(children) != len(first) {
			return false
		}
		for i := range children {
			if children[i].Tag != first[i].Tag {
				return false
			}
		}
	}
	return true
}

func localAttr(e *etree.Element, key string) *etree.Attr {
	for i := range e.Attr {
		if e.Attr[i].Key == key && !isNamespaceDecl(e.Attr[i]) {
			return &e.Attr[i]
		}
	}
	return nil
}

func isNamespaceDecl(a etree.Attr) bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
}

func serialize(e *etree.Element) string {
	doc := etree.NewDocument()
	doc.SetRoot(e.Copy())
	s, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return s
}

func allSame(list []string) bool {
	for _, s := range list[1:] {
		if s != list[0] {
			return false
		}
	}
	return true
}

func allValuesEqual(vals []value) bool {
	for _, v := range vals[1:] {
		if !v.equal(vals[0]) {
			return false
		}
	}
	return true
}
