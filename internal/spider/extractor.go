package spider

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docbinder/internal/foundation/errors"
)

// Link is a hyperlink target found in a page.
type Link struct {
	URL       string
	Tag       string
	Attribute string
}

// linkAttrs lists the attribute carrying a target for each element we follow.
var linkAttrs = map[string]string{
	"a":      "href",
	"link":   "href",
	"img":    "src",
	"script": "src",
	"iframe": "src",
	"video":  "src",
	"audio":  "src",
	"source": "src",
}

// ExtractLinks parses an HTML document and returns every link target.
func ExtractLinks(r io.Reader) ([]Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML").Build()
	}

	var links []Link
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr, ok := linkAttrs[n.Data]; ok {
				if v := strings.TrimSpace(getAttr(n, attr)); v != "" {
					links = append(links, Link{URL: v, Tag: n.Data, Attribute: attr})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(doc)
	return links, nil
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// shouldFollow filters targets that never name a file: fragments and special
// schemes.
func shouldFollow(target string) bool {
	if target == "" || strings.HasPrefix(target, "#") {
		return false
	}
	lower := strings.ToLower(target)
	for _, prefix := range []string{"mailto:", "tel:", "javascript:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	return true
}
