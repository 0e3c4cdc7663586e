// Package htmltext converts Canvas HTML bodies into readable markdown-ish text.
package htmltext

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Convert renders an HTML fragment as text. Line breaks, paragraph and div
// closes become newlines, headings become "#" prefixes, links become
// [text](href) and images become ![Image](src). Entities are decoded.
func Convert(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}

	var b strings.Builder
	for _, n := range doc.Nodes {
		walk(&b, n)
	}

	out := strings.ReplaceAll(b.String(), "\u00a0", " ")
	out = blankRuns.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// Text returns the plain text of an HTML fragment with whitespace collapsed.
func Text(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	text := strings.ReplaceAll(doc.Text(), "\u00a0", " ")
	return strings.Join(strings.Fields(text), " ")
}

func walk(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
	default:
		children(b, n)
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head:
	case atom.Br:
		b.WriteString("\n")
	case atom.P:
		children(b, n)
		b.WriteString("\n\n")
	case atom.Div:
		children(b, n)
		b.WriteString("\n")
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		b.WriteString("\n" + strings.Repeat("#", level) + " ")
		children(b, n)
		b.WriteString("\n\n")
	case atom.A:
		href, ok := attr(n, "href")
		if !ok {
			children(b, n)
			return
		}
		var text strings.Builder
		children(&text, n)
		b.WriteString("[" + strings.TrimSpace(text.String()) + "](" + href + ")")
	case atom.Img:
		if src, ok := attr(n, "src"); ok {
			b.WriteString("\n![Image](" + src + ")\n")
		}
	case atom.Li:
		b.WriteString("\n- ")
		children(b, n)
	case atom.Ul, atom.Ol:
		children(b, n)
		b.WriteString("\n")
	default:
		children(b, n)
	}
}

func children(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(b, c)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
