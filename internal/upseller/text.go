package upseller

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var blockElements = map[string]bool{
	"address": true, "article": true, "blockquote": true, "dd": true,
	"div": true, "dl": true, "dt": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "section": true, "table": true, "tbody": true, "td": true,
	"th": true, "thead": true, "tr": true, "ul": true,
}

var whitespaceRegex = regexp.MustCompile(`[\s\x{00a0}]+`)

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(whitespaceRegex.ReplaceAllString(n.Data, " "))
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		case "br":
			b.WriteByte('\n')
			return
		}
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

// innerText renders a selection roughly the way a browser's innerText does:
// block elements and <br> become line breaks, other whitespace collapses.
func innerText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeText(&b, n)
	}

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		line = strings.TrimSpace(whitespaceRegex.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// cleanText is innerText flattened to one line.
func cleanText(sel *goquery.Selection) string {
	return strings.Join(strings.Split(innerText(sel), "\n"), " ")
}

func attrOrText(sel *goquery.Selection, attr string) string {
	if v := strings.TrimSpace(sel.AttrOr(attr, "")); v != "" {
		return whitespaceRegex.ReplaceAllString(v, " ")
	}
	return cleanText(sel)
}
