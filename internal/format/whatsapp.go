package format

import (
	"fmt"
	"strings"
)

// WhatsAppFormatter renders messages with WhatsApp's lightweight markup
type WhatsAppFormatter struct{}

var whatsAppMarkup = &markup{
	boldOpen: "*", boldClose: "*",
	italicOpen: "_", italicClose: "_",
	strikeOpen: "~", strikeClose: "~",
	codeOpen: "`", codeClose: "`",
	quoteOpen: "> ", quoteClose: "",
	pre: func(code, _ string) string {
		return "```\n" + code + "\n```"
	},
	link: func(label, url string) string {
		if url == "" || label == url {
			return label
		}
		return fmt.Sprintf("%s (%s)", label, url)
	},
	escape: func(s string) string { return s },
}

// ReviewStarted implements Formatter
func (WhatsAppFormatter) ReviewStarted(info ReviewStartedInfo) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🚀 *Code review started for %s*\n\n", info.Repo))
	sb.WriteString(fmt.Sprintf("💾 Commit: `%s`\n", info.Commit))
	if info.Branch != "" {
		sb.WriteString(fmt.Sprintf("🌿 Branch: %s\n", info.Branch))
	}
	if info.Pusher != "" {
		sb.WriteString(fmt.Sprintf("👤 Pusher: %s\n", info.Pusher))
	}
	sb.WriteString(fmt.Sprintf("📄 Files to review: %d\n", info.Files))
	if info.hasCommitURL() {
		sb.WriteString(fmt.Sprintf("\n🔗 View commit: %s\n", info.CommitURL))
	}
	sb.WriteString("\n⏳ Review in progress...")
	return sb.String()
}

// NothingToReview implements Formatter
func (WhatsAppFormatter) NothingToReview(info ReviewStartedInfo) string {
	return fmt.Sprintf("ℹ️ *Nothing to review*\n\n%s @ `%s` has no added or modified files.", info.Repo, info.Commit)
}

// ReviewFailed implements Formatter
func (WhatsAppFormatter) ReviewFailed(info ReviewStartedInfo) string {
	return fmt.Sprintf("❌ *Code review failed*\n\n%s @ `%s`\nThe review engine did not return a result.", info.Repo, info.Commit)
}

// Review implements Formatter
func (WhatsAppFormatter) Review(markdown string) string {
	return renderMarkdown(markdown, whatsAppMarkup)
}
