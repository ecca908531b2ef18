package epub

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// entityNameToNumeric maps HTML named entities that encoding/xml does
// not understand to XML numeric character references.
var entityNameToNumeric = map[string]string{
	"nbsp": "&#160;", "mdash": "&#8212;", "ndash": "&#8211;",
	"hellip": "&#8230;",
	"lsquo":  "&#8216;", "rsquo": "&#8217;",
	"ldquo": "&#8220;", "rdquo": "&#8221;",
	"copy": "&#169;", "reg": "&#174;", "trade": "&#8482;",
	"laquo": "&#171;", "raquo": "&#187;",
}

var entityPattern = regexp.MustCompile(
	`(?i)&(nbsp|mdash|ndash|hellip|lsquo|rsquo|ldquo|rdquo|copy|reg|trade|laquo|raquo);`)

// preprocessEntities rewrites common HTML named entities as numeric
// references so XML parsing of loosely authored package files succeeds.
func preprocessEntities(data []byte) []byte {
	return entityPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := strings.ToLower(string(match[1 : len(match)-1]))
		if replacement, ok := entityNameToNumeric[name]; ok {
			return []byte(replacement)
		}
		return match
	})
}

// blockTags insert a line break during text extraction.
var blockTags = map[atom.Atom]bool{
	atom.P:          true,
	atom.Br:         true,
	atom.Div:        true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Li:         true,
	atom.Tr:         true,
	atom.Blockquote: true,
	atom.Hr:         true,
}

// skipTags contain no narration text.
var skipTags = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Head:   true,
}

// headingTags can supply a chapter title, highest rank wins.
var headingTags = map[atom.Atom]bool{
	atom.H1: true,
	atom.H2: true,
	atom.H3: true,
}

// extractContent pulls the plain narration text and a chapter title
// from one content document. The title is the text of the first h1,
// upgraded only by an earlier-ranked heading; body text keeps the
// document order with block elements separated by line breaks.
func extractContent(data []byte) (title, text string, err error) {
	tokenizer := html.NewTokenizer(bytes.NewReader(data))

	var (
		buf          strings.Builder
		headingBuf   strings.Builder
		headingDepth int
		headingRank  int
		titleRank    = 99
		skipDepth    int
	)

	flushHeading := func() {
		if headingDepth > 0 {
			return
		}
		h := strings.Join(strings.Fields(headingBuf.String()), " ")
		if h != "" && headingRank < titleRank {
			title = h
			titleRank = headingRank
		}
		headingBuf.Reset()
	}

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if errors.Is(tokenizer.Err(), io.EOF) {
				return title, strings.TrimSpace(buf.String()), nil
			}
			return "", "", tokenizer.Err()

		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			a := atom.Lookup(name)
			switch {
			case skipTags[a]:
				skipDepth++
			case headingTags[a] && skipDepth == 0:
				headingDepth++
				headingRank = int(a.String()[1] - '0')
			}
			if blockTags[a] {
				buf.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			a := atom.Lookup(name)
			switch {
			case skipTags[a] && skipDepth > 0:
				skipDepth--
			case headingTags[a] && headingDepth > 0:
				headingDepth--
				flushHeading()
			}
			if blockTags[a] {
				buf.WriteByte('\n')
			}

		case html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if blockTags[atom.Lookup(name)] {
				buf.WriteByte('\n')
			}

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			t := string(tokenizer.Text())
			buf.WriteString(t)
			if headingDepth > 0 {
				headingBuf.WriteString(t)
			}
		}
	}
}
