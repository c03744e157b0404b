// Package pagetext extracts the visible text of an HTML document, the
// server-side stand-in for a browser's document.body.innerText.
package pagetext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// hiddenSelectors never contribute visible text.
const hiddenSelectors = "script, style, noscript, template, svg, iframe, [hidden], [aria-hidden='true']"

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "header": true, "hr": true, "li": true, "main": true,
	"nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "td": true, "th": true, "tr": true, "ul": true,
}

// Page is the text extracted from one document.
type Page struct {
	Title string
	Text  string
}

// Extract parses body and returns its title and visible text. Block
// elements are separated by newlines; callers normalize whitespace
// themselves when they need to.
func Extract(body []byte) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}
	return FromDocument(doc), nil
}

// FromDocument extracts text from an already parsed document. The document
// is modified: hidden elements are removed.
func FromDocument(doc *goquery.Document) Page {
	page := Page{Title: strings.TrimSpace(doc.Find("title").First().Text())}

	root := doc.Find("body").First()
	if root.Length() == 0 {
		root = doc.Selection
	}
	root.Find(hiddenSelectors).Remove()

	var b strings.Builder
	for _, n := range root.Nodes {
		writeText(&b, n)
	}
	page.Text = strings.TrimSpace(b.String())
	return page
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if n.Data == "head" {
			return
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}
