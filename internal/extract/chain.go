// Package extract turns fetched HTML into domain records. Every extractor is
// best-effort: missing data yields an empty result, never an error.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Strategy is one way of locating a logical field inside a document.
type Strategy interface {
	TryExtract(root *goquery.Selection) (*goquery.Selection, bool)
}

// CSS matches elements whose trimmed text is not empty.
type CSS string

func (c CSS) TryExtract(root *goquery.Selection) (*goquery.Selection, bool) {
	sel := root.Find(string(c)).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return clean(s.Text()) != ""
	})
	return sel, sel.Length() > 0
}

// Chain tries its strategies in priority order; the first that matches wins.
type Chain []Strategy

func Selectors(queries ...string) Chain {
	c := make(Chain, 0, len(queries))
	for _, q := range queries {
		c = append(c, CSS(q))
	}
	return c
}

func (c Chain) TryExtract(root *goquery.Selection) (*goquery.Selection, bool) {
	for _, s := range c {
		if sel, ok := s.TryExtract(root); ok {
			return sel, true
		}
	}
	return root.Slice(0, 0), false
}

// Text returns the text of the first element matched by the chain.
func (c Chain) Text(root *goquery.Selection) (string, bool) {
	sel, ok := c.TryExtract(root)
	if !ok {
		return "", false
	}
	return clean(sel.First().Text()), true
}

// clean collapses runs of whitespace, which rendered tables are full of.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// spacedText is Selection.Text with a separator between text nodes, so
// adjacent elements do not glue their numbers and words together.
func spacedText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return clean(b.String())
}

func cellText(cells *goquery.Selection, i int) string {
	return clean(cells.Eq(i).Text())
}
