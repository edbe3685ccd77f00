// Package text derives plain text and counts from editor HTML.
//
// The functions are stateless and safe for concurrent use. They do not
// sanitize or validate markup; malformed input is tokenized best-effort.
package text

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// isBlock reports whether the element breaks words and lines when its
// tags open or close.
func isBlock(a atom.Atom) bool {
	switch a {
	case atom.Address, atom.Article, atom.Aside, atom.Blockquote, atom.Br,
		atom.Dd, atom.Div, atom.Dl, atom.Dt, atom.Figcaption, atom.Figure,
		atom.Footer, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Header, atom.Hr, atom.Li, atom.Main, atom.Nav, atom.Ol, atom.P,
		atom.Pre, atom.Section, atom.Table, atom.Td, atom.Th, atom.Tr, atom.Ul:
		return true
	}
	return false
}

// isHidden reports whether the element has no user-visible text.
func isHidden(a atom.Atom) bool {
	return a == atom.Script || a == atom.Style || a == atom.Template
}

// Extract returns the plain text of an HTML fragment. Entities are decoded,
// runs of whitespace collapse to a single space, and each block element
// becomes its own line. Empty lines are dropped.
func Extract(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))

	var lines []string
	var line strings.Builder
	skipDepth := 0

	flush := func() {
		if s := collapse(line.String()); s != "" {
			lines = append(lines, s)
		}
		line.Reset()
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a read error; either way there is nothing left.
			flush()
			return strings.Join(lines, "\n")
		case html.TextToken:
			if skipDepth == 0 {
				line.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if isHidden(a) {
				switch tt {
				case html.StartTagToken:
					skipDepth++
				case html.EndTagToken:
					if skipDepth > 0 {
						skipDepth--
					}
				}
				continue
			}
			if isBlock(a) {
				flush()
			}
		}
	}
}

func collapse(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// WordCount returns the number of whitespace-separated words in the text
// of fragment.
func WordCount(fragment string) int {
	return len(strings.FieldsFunc(Extract(fragment), unicode.IsSpace))
}

// CharCount returns the number of user-perceived characters in the text of
// fragment. The line breaks Extract inserts between blocks are not counted.
func CharCount(fragment string) int {
	return countGraphemes(fragment, false)
}

// CharCountNoSpaces is CharCount excluding whitespace.
func CharCountNoSpaces(fragment string) int {
	return countGraphemes(fragment, true)
}

func countGraphemes(fragment string, skipSpaces bool) int {
	count := 0
	for _, line := range strings.Split(Extract(fragment), "\n") {
		g := uniseg.NewGraphemes(norm.NFC.String(line))
		for g.Next() {
			if skipSpaces && isSpace(g.Runes()) {
				continue
			}
			count++
		}
	}
	return count
}

func isSpace(runes []rune) bool {
	for _, r := range runes {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return len(runes) > 0
}
