package matching

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// xpathCondition is a compiled XPath expression. An expression ending in
// /@name selects an attribute of the matched element.
type xpathCondition struct {
	expr     string
	path     etree.Path
	attr     string
	expected string
}

func compileXPath(conditions map[string]string) ([]xpathCondition, error) {
	out := make([]xpathCondition, 0, len(conditions))
	for _, x := range sortedKeys(conditions) {
		elemPath, attr := x, ""
		if i := strings.LastIndex(x, "/@"); i >= 0 {
			elemPath, attr = x[:i], x[i+2:]
		}
		p, err := etree.CompilePath(elemPath)
		if err != nil {
			return nil, fmt.Errorf("invalid XPath expression %q: %w", x, err)
		}
		out = append(out, xpathCondition{expr: x, path: p, attr: attr, expected: conditions[x]})
	}
	return out, nil
}

// parseXML reads an XML document from a request body.
func parseXML(body []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("no root element")
	}
	return doc, nil
}

// extractXPath returns the trimmed element text or the attribute value at
// the condition's path. The boolean is false when nothing was found.
func extractXPath(doc *etree.Document, c xpathCondition) (string, bool) {
	elem := doc.FindElementPath(c.path)
	if elem == nil {
		return "", false
	}
	if c.attr != "" {
		attr := elem.SelectAttr(c.attr)
		if attr == nil {
			return "", false
		}
		return attr.Value, true
	}
	return strings.TrimSpace(elem.Text()), true
}
