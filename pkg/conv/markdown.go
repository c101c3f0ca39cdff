// Package conv renders model answers for the chat transports.
package conv

import (
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/inbucket/html2text"
	"github.com/microcosm-cc/bluemonday"
)

var (
	extensions = parser.CommonExtensions | parser.NoEmptyLineBeforeBlock
	htmlFlags  = html.CommonFlags | html.HrefTargetBlank
	tgPolicy   = telegramPolicy()
)

// telegramPolicy allows only https://core.telegram.org/bots/api#html-style
func telegramPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "u", "ins", "s", "strike", "del", "code", "pre", "blockquote")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("class").OnElements("code")
	return p
}

func render(md []byte) []byte {
	p := parser.NewWithExtensions(extensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})
	return markdown.Render(p.Parse(md), renderer)
}

// MarkdownToTelegramHTML renders an answer and strips every tag the
// Bot API would reject.
func MarkdownToTelegramHTML(md []byte) string {
	return string(tgPolicy.SanitizeBytes(render(md)))
}

// HTMLToText flattens HTML for channels without markup. Input that
// cannot be parsed comes back as is.
func HTMLToText(s string) string {
	text, err := html2text.FromString(s, html2text.Options{OmitLinks: false, PrettyTables: true})
	if err != nil {
		return s
	}
	return strings.TrimSpace(text)
}

// MarkdownToText renders an answer for a plain terminal.
func MarkdownToText(md string) string {
	return HTMLToText(string(render([]byte(md))))
}
