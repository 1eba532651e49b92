// Package artifacts turns article payloads from the assistant flows
// into readable markdown for the client surfaces.
package artifacts

import (
	"bytes"
	"io"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/brandgrowthos/bgos/pkg/models/chat"
)

// Article is the distilled form of an HTML document.
type Article struct {
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
	Text     string `json:"text,omitempty"`
}

func newConverter() *md.Converter {
	return md.NewConverter("", true, nil)
}

// FromHTML extracts the title and converts the body to markdown.
func FromHTML(html string) (Article, error) {
	out := Article{}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return out, err
	}
	out.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if out.Title == "" {
		out.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	out.Markdown, err = newConverter().ConvertString(html)
	if err != nil {
		return out, err
	}
	out.Markdown = strings.TrimSpace(out.Markdown)
	return out, nil
}

// Distill runs a fetched page through readability first, so navigation
// and chrome never reach the markdown.
func Distill(r io.Reader, pageURL *url.URL) (Article, error) {
	art, err := readability.FromReader(r, pageURL)
	if err != nil {
		return Article{}, err
	}

	var html bytes.Buffer
	art.RenderHTML(&html)
	markdown, err := newConverter().ConvertString(html.String())
	if err != nil {
		return Article{}, err
	}

	var text bytes.Buffer
	art.RenderText(&text)
	return Article{
		Title:    strings.TrimSpace(art.Title()),
		Markdown: strings.TrimSpace(markdown),
		Text:     strings.TrimSpace(text.String()),
	}, nil
}

// looksLikeHTML is a cheap check; the flows sometimes send article
// bodies that are already markdown.
func looksLikeHTML(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "<") && strings.Contains(s, ">")
}

// ApplyToMessage rewrites an article message's body in place, leaving
// non-article and already-markdown payloads untouched.
func ApplyToMessage(m *chat.Message) {
	if m == nil || !m.IsArticle || !looksLikeHTML(m.ArticleText) {
		return
	}
	art, err := FromHTML(m.ArticleText)
	if err != nil {
		logger().Infow("convert article fail", "chat", m.ChatID, "err", err)
		return
	}
	m.ArticleText = art.Markdown
	if m.Text == "" && art.Title != "" {
		m.Text = art.Title
	}
}
