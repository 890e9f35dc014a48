package format

import (
	"fmt"
	"html"
	"strings"
)

// htmlEscaper escapes the characters Telegram's HTML parse mode reserves
var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// HTMLFormatter renders messages for Telegram's HTML parse mode, which
// accepts only a small tag subset.
type HTMLFormatter struct{}

var htmlMarkup = &markup{
	boldOpen: "<b>", boldClose: "</b>",
	italicOpen: "<i>", italicClose: "</i>",
	strikeOpen: "<s>", strikeClose: "</s>",
	codeOpen: "<code>", codeClose: "</code>",
	quoteOpen: "<blockquote>", quoteClose: "</blockquote>",
	pre: func(code, language string) string {
		if language != "" {
			return fmt.Sprintf(`<pre><code class="language-%s">%s</code></pre>`,
				html.EscapeString(language), htmlEscaper.Replace(code))
		}
		return "<pre>" + htmlEscaper.Replace(code) + "</pre>"
	},
	link: func(label, url string) string {
		if url == "" {
			return label
		}
		return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(url), label)
	},
	escape: htmlEscaper.Replace,
}

// ReviewStarted implements Formatter
func (HTMLFormatter) ReviewStarted(info ReviewStartedInfo) string {
	var sb strings.Builder
	sb.WriteString("🚀 <b>Code review started</b>\n\n")
	sb.WriteString(fmt.Sprintf("📂 Repository: <b>%s</b>\n", htmlEscaper.Replace(info.Repo)))
	sb.WriteString(fmt.Sprintf("💾 Commit: %s\n", htmlCommit(info)))
	if info.Branch != "" {
		sb.WriteString(fmt.Sprintf("🌿 Branch: %s\n", htmlEscaper.Replace(info.Branch)))
	}
	if info.Pusher != "" {
		sb.WriteString(fmt.Sprintf("👤 Pusher: %s\n", htmlEscaper.Replace(info.Pusher)))
	}
	sb.WriteString(fmt.Sprintf("📄 Files to review: <b>%d</b>\n\n", info.Files))
	sb.WriteString("⏳ Review in progress...")
	return sb.String()
}

// NothingToReview implements Formatter
func (HTMLFormatter) NothingToReview(info ReviewStartedInfo) string {
	return fmt.Sprintf("ℹ️ <b>Nothing to review</b>\n\n📂 %s @ %s has no added or modified files.",
		htmlEscaper.Replace(info.Repo), htmlCommit(info))
}

// ReviewFailed implements Formatter
func (HTMLFormatter) ReviewFailed(info ReviewStartedInfo) string {
	return fmt.Sprintf("❌ <b>Code review failed</b>\n\n📂 %s @ %s\nThe review engine did not return a result.",
		htmlEscaper.Replace(info.Repo), htmlCommit(info))
}

// Review implements Formatter
func (HTMLFormatter) Review(markdown string) string {
	return renderMarkdown(markdown, htmlMarkup)
}

func htmlCommit(info ReviewStartedInfo) string {
	code := "<code>" + htmlEscaper.Replace(info.Commit) + "</code>"
	if info.hasCommitURL() {
		return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(info.CommitURL), code)
	}
	return code
}
