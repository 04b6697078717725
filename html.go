package shelf

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// sanitizeStep is one rewrite of the chapter sanitization pipeline.
type sanitizeStep struct {
	name    string
	pattern *regexp.Regexp
	repl    string
}

// sanitizeSteps strip document-level markup from a chapter, in order.
// Every step is idempotent on its own output.
var sanitizeSteps = []sanitizeStep{
	{"xml-prolog", regexp.MustCompile(`(?i)<\?xml[^>]*\?>`), ""},
	{"doctype", regexp.MustCompile(`(?i)<!DOCTYPE[^>]*>`), ""},
	{"html-open", regexp.MustCompile(`(?i)<html(?:\s[^>]*)?>`), "<div>"},
	{"html-close", regexp.MustCompile(`(?i)</html\s*>`), "</div>"},
	{"head", regexp.MustCompile(`(?is)<head(?:\s[^>]*)?>.*?</head\s*>`), ""},
	{"title", regexp.MustCompile(`(?is)<title(?:\s[^>]*)?>.*?</title\s*>`), ""},
	{"meta", regexp.MustCompile(`(?i)<meta\b[^>]*>`), ""},
	{"link", regexp.MustCompile(`(?i)<link\b[^>]*>`), ""},
}

// sanitizeChapter removes the XML prolog, doctype, head section and any
// stray meta/link tags, and swaps the root element for a <div>. The result
// is the body-level markup, trimmed. No further cleaning is done; callers
// that embed the result must apply their own display policy.
func sanitizeChapter(src string) string {
	out := src
	for _, step := range sanitizeSteps {
		out = step.pattern.ReplaceAllString(out, step.repl)
	}
	return strings.TrimSpace(out)
}

// breaksLine reports whether a preview line break goes before the tag.
func breaksLine(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Br, atom.Div, atom.Section, atom.Article,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Li, atom.Tr, atom.Blockquote, atom.Hr, atom.Pre:
		return true
	}
	return false
}

// skipTags is the set of tags whose content is skipped during text extraction.
var skipTags = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
	atom.Title:  true,
}

// selfClosingSkipTagPattern matches XHTML-style <script/>, <style/> and
// <title/>. The HTML tokenizer treats these as raw-text openers and would
// swallow the rest of the document.
var selfClosingSkipTagPattern = regexp.MustCompile(`(?is)<(script|style|title)\b([^>]*)/>`)

func normalizeSelfClosingSkipTags(htmlData []byte) []byte {
	if !selfClosingSkipTagPattern.Match(htmlData) {
		return htmlData
	}
	return selfClosingSkipTagPattern.ReplaceAll(htmlData, []byte(`<$1$2></$1>`))
}

// extractText extracts the plain text content from HTML data.
// Block-level elements produce line breaks; script, style and title
// content is skipped.
func extractText(htmlData []byte) (string, error) {
	htmlData = normalizeSelfClosingSkipTags(htmlData)
	tokenizer := html.NewTokenizer(bytes.NewReader(htmlData))

	var buf strings.Builder
	skipDepth := 0
	lastWasNewline := true

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			err := tokenizer.Err()
			if errors.Is(err, io.EOF) {
				return strings.TrimSpace(buf.String()), nil
			}
			return "", err

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, _ := tokenizer.TagName()
			a := atom.Lookup(tn)
			if skipTags[a] {
				if tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if skipDepth == 0 && breaksLine(a) && buf.Len() > 0 && !lastWasNewline {
				buf.WriteByte('\n')
				lastWasNewline = true
			}

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if skipTags[atom.Lookup(tn)] && skipDepth > 0 {
				skipDepth--
			}

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			if text := collapseWhitespace(string(tokenizer.Text())); text != "" {
				buf.WriteString(text)
				lastWasNewline = false
			}
		}
	}
}

// collapseWhitespace replaces runs of whitespace with a single space.
// It returns "" for all-whitespace input. A leading or trailing run is kept
// as one space so inline elements keep their spacing.
func collapseWhitespace(s string) string {
	fields := strings.FieldsFunc(s, isWhitespace)
	if len(fields) == 0 {
		return ""
	}
	out := strings.Join(fields, " ")
	if r, _ := utf8.DecodeRuneInString(s); isWhitespace(r) {
		out = " " + out
	}
	if r, _ := utf8.DecodeLastRuneInString(s); isWhitespace(r) {
		out += " "
	}
	return out
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// truncateRunes shortens s to at most n runes, cutting at the last space
// when there is one and appending an ellipsis.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)[:n]
	cut := string(runes)
	if i := strings.LastIndexAny(cut, " \n"); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "…"
}
