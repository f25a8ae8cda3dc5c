package scraper

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// UntitledDocument is the title used when a page has neither <title> nor <h1>.
const UntitledDocument = "Untitled Document"

// Content is the normalized result of extraction.
type Content struct {
	Title string
	Text  string
}

// boilerplate subtrees are dropped before anything else is read.
var boilerplate = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Nav:    true,
	atom.Footer: true,
	atom.Header: true,
	atom.Aside:  true,

	// x/net/html keeps these as raw text, so their markup would leak into Text.
	atom.Noscript: true,
	atom.Template: true,
}

// blockElements separate their text from neighbours.
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Blockquote: true, atom.Br: true,
	atom.Dd: true, atom.Details: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Fieldset: true, atom.Figcaption: true, atom.Figure: true, atom.Form: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Hr: true, atom.Li: true, atom.Main: true, atom.Ol: true, atom.P: true,
	atom.Pre: true, atom.Section: true, atom.Summary: true, atom.Table: true,
	atom.Tbody: true, atom.Td: true, atom.Tfoot: true, atom.Th: true, atom.Thead: true,
	atom.Tr: true, atom.Ul: true, atom.Body: true, atom.Title: true,
}

// Extract reduces markup to a title and whitespace-normalized body text.
// It is pure: the same input always yields the same Content.
func Extract(markup []byte) Content {
	doc, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		// html.Parse only fails on reader errors, which a bytes.Reader never returns.
		return Content{Title: UntitledDocument, Text: Normalize(string(markup))}
	}

	removeBoilerplate(doc)

	return Content{
		Title: extractTitle(doc),
		Text:  Normalize(collectText(contentRoot(doc))),
	}
}

// Normalize collapses every whitespace run into one space and trims the ends.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Checksum is the SHA-256 hex digest of the trimmed text.
func Checksum(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

func removeBoilerplate(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && boilerplate[c.DataAtom] {
			n.RemoveChild(c)
		} else {
			removeBoilerplate(c)
		}
		c = next
	}
}

func extractTitle(doc *html.Node) string {
	if n := findFirst(doc, byTag(atom.Title)); n != nil {
		if t := Normalize(collectText(n)); t != "" {
			return t
		}
	}
	if n := findFirst(doc, byTag(atom.H1)); n != nil {
		if t := Normalize(collectText(n)); t != "" {
			return t
		}
	}
	return UntitledDocument
}

// contentRoot picks the primary content region by priority: semantic
// containers, then generic content class/id, then the body.
func contentRoot(doc *html.Node) *html.Node {
	candidates := []func(*html.Node) bool{
		byTag(atom.Main),
		byTag(atom.Article),
		byClassOrID("content"),
		byClassOrID("main"),
		byTag(atom.Body),
	}
	for _, match := range candidates {
		if n := findFirst(doc, match); n != nil {
			return n
		}
	}
	return doc
}

func byTag(tag atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == tag
	}
}

func byClassOrID(name string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		if getAttr(n, "id") == name {
			return true
		}
		for _, c := range strings.Fields(getAttr(n, "class")) {
			if c == name {
				return true
			}
		}
		return false
	}
}

// findFirst returns the first matching node in document order.
func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	if match(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := findFirst(c, match); n != nil {
			return n
		}
	}
	return nil
}

func collectText(root *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.CommentNode:
			return
		}
		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			sb.WriteByte(' ')
		}
	}
	walk(root)
	return sb.String()
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
