package finder

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// RegionsFromHTML builds a region snapshot from saved page markup, such as
// the .html files written by Diagnostics. Without a live style engine an
// element counts as shown unless it or an ancestor has an inline
// display:none or the hidden attribute.
func RegionsFromHTML(r io.Reader) (Regions, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Regions{}, fmt.Errorf("parse html: %w", err)
	}

	var regions Regions
	if n := find(doc, func(n *html.Node) bool {
		return attr(n, "data-role") == "league-result-league-name-display"
	}); n != nil {
		regions.LeagueName = strings.TrimSpace(textContent(n))
	}

	if list := findByID(doc, "multiple-league-result-list"); list != nil {
		if li := find(list, isElement("li")); li != nil {
			regions.MultipleItem = strings.TrimSpace(textContent(li))
		}
		for _, li := range findAll(list, isElement("li")) {
			for _, p := range findAll(li, isElement("p")) {
				regions.MultipleNames = append(regions.MultipleNames, strings.TrimSpace(textContent(p)))
			}
		}
	}

	regions.NoResults = shown(findByID(doc, IDNoResults))
	regions.GeocodingFailure = shown(findByID(doc, IDGeocodingFailure))
	regions.PrecisionTooLow = shown(findByID(doc, IDPrecisionTooLow))
	regions.LookupFailure = shown(findByID(doc, IDLeagueLookupFailure))
	return regions, nil
}

func isElement(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

func findByID(root *html.Node, id string) *html.Node {
	return find(root, func(n *html.Node) bool { return attr(n, "id") == id })
}

// find returns the first descendant of root (excluding root) matching pred,
// in document order.
func find(root *html.Node, pred func(*html.Node) bool) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && pred(c) {
			return c
		}
		if n := find(c, pred); n != nil {
			return n
		}
	}
	return nil
}

func findAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && pred(c) {
			out = append(out, c)
		}
		out = append(out, findAll(c, pred)...)
	}
	return out
}

func attr(n *html.Node, key string) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func shown(n *html.Node) bool {
	if n == nil {
		return false
	}
	for ; n != nil; n = n.Parent {
		if hiddenInline(n) {
			return false
		}
	}
	return true
}

func hiddenInline(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if hasAttr(n, "hidden") {
		return true
	}
	for _, decl := range strings.Split(attr(n, "style"), ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(prop), "display") &&
			strings.HasPrefix(strings.ToLower(strings.TrimSpace(val)), "none") {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
