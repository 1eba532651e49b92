package artifacts

import (
	"net/url"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandgrowthos/bgos/pkg/models/chat"
)

const samplePage = `<html><head><title>Release Notes</title></head>
<body>
<h1>Release Notes</h1>
<p>The queue now drains <strong>strictly</strong> in order.</p>
<ul><li>one sender at a time</li><li>failed sends keep the line moving</li></ul>
</body></html>`

func diff(want, got string) string {
	out, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	return out
}

func TestFromHTML(t *testing.T) {
	art, err := FromHTML(samplePage)
	require.NoError(t, err)
	assert.Equal(t, "Release Notes", art.Title)
	assert.Contains(t, art.Markdown, "# Release Notes")
	assert.Contains(t, art.Markdown, "**strictly**")
	assert.Contains(t, art.Markdown, "- one sender at a time")
	assert.NotContains(t, art.Markdown, "<p>", "no leftover tags:\n%s", diff(samplePage, art.Markdown))
}

func TestDistill(t *testing.T) {
	page := `<html><head><title>Queue Internals</title></head><body>
<nav><a href="/">home</a> <a href="/about">about</a></nav>
<article>
<h1>Queue Internals</h1>
<p>The outbound queue drains one message at a time. A single worker
goroutine pops the head, marks it sending, and calls the transport.
Nothing else may touch the wire while that call is in flight.</p>
<p>Failures do not wedge the line. A failed send is marked as such and
the worker moves on to the next waiting message, so one bad webhook
response never blocks the rest of the conversation.</p>
<p>Replies that arrive while a message waits its turn are appended as
they land. The waiting message refreshes its sent date when its turn
starts, keeping the rendered order honest.</p>
</article>
<footer>copyright nobody</footer>
</body></html>`

	u, err := url.Parse("https://example.org/posts/queue-internals")
	require.NoError(t, err)

	art, err := Distill(strings.NewReader(page), u)
	require.NoError(t, err)
	assert.Equal(t, "Queue Internals", art.Title)
	assert.Contains(t, art.Markdown, "one message at a time")
	assert.Contains(t, art.Text, "Failures do not wedge the line")
	assert.NotContains(t, art.Markdown, "<p>", "rendered HTML converts cleanly:\n%s", diff(page, art.Markdown))
}

func TestFromHTMLFallbackTitle(t *testing.T) {
	art, err := FromHTML(`<div><h1>Untitled Draft</h1><p>body</p></div>`)
	require.NoError(t, err)
	assert.Equal(t, "Untitled Draft", art.Title)
}

func TestApplyToMessage(t *testing.T) {
	m := &chat.Message{
		ChatID:      "c-1",
		IsArticle:   true,
		ArticleText: samplePage,
	}
	ApplyToMessage(m)
	assert.Contains(t, m.ArticleText, "# Release Notes")
	assert.Equal(t, "Release Notes", m.Text, "empty text picks up the article title")

	// markdown bodies pass through untouched
	plain := &chat.Message{IsArticle: true, ArticleText: "# Already markdown"}
	ApplyToMessage(plain)
	assert.Equal(t, "# Already markdown", plain.ArticleText)

	// non-article messages are never rewritten
	msg := &chat.Message{Text: "<b>hi</b>"}
	ApplyToMessage(msg)
	assert.Equal(t, "<b>hi</b>", msg.Text)
}
