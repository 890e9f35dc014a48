// Package review turns a contents document into a code review.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nahidhasan98/review-relay/internal/logger"
)

// FailedFetchPlaceholder stands in for an empty contents document
const FailedFetchPlaceholder = "<FAILED TO FETCH FILE CONTENTS>"

// chunkSeparator joins the reviews of consecutive chunks
const chunkSeparator = "\n\n---\n\n"

// fileEnvelopeStart opens every block in a contents document
const fileEnvelopeStart = "--- FILE: "

// Engine produces a review for a prompt
type Engine interface {
	Review(ctx context.Context, prompt string) (string, error)
}

// BuildPrompt prepends the instruction prefix to the contents document
func BuildPrompt(prefix, contents string) string {
	if contents == "" {
		contents = FailedFetchPlaceholder
	}
	return prefix + contents
}

// Chunk splits a contents document into pieces of at most maxChars bytes,
// cutting only between file blocks. A single block larger than maxChars is
// cut on line boundaries, and a single line larger than that is cut hard.
func Chunk(document string, maxChars int) []string {
	if maxChars <= 0 || len(document) <= maxChars {
		return []string{document}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, block := range splitBlocks(document) {
		if current.Len()+len(block) <= maxChars {
			current.WriteString(block)
			continue
		}

		flush()
		if len(block) <= maxChars {
			current.WriteString(block)
			continue
		}

		for _, piece := range splitLines(block, maxChars) {
			if current.Len()+len(piece) > maxChars {
				flush()
			}
			current.WriteString(piece)
		}
	}
	flush()

	return chunks
}

// splitBlocks cuts document in front of every line opening a file envelope
func splitBlocks(document string) []string {
	var blocks []string
	var current strings.Builder
	for _, line := range strings.SplitAfter(document, "\n") {
		if strings.HasPrefix(line, fileEnvelopeStart) && current.Len() > 0 {
			blocks = append(blocks, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		blocks = append(blocks, current.String())
	}
	return blocks
}

// splitLines cuts text into pieces of at most max bytes on line boundaries
func splitLines(text string, max int) []string {
	var pieces []string
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > max {
			cut := max
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				_, cut = utf8.DecodeRuneInString(line)
			}
			pieces = append(pieces, line[:cut])
			line = line[cut:]
		}
		if line != "" {
			pieces = append(pieces, line)
		}
	}
	return pieces
}

// Reviewer reviews contents documents that may exceed the engine's prompt size
type Reviewer struct {
	engine   Engine
	prefix   string
	maxChars int
	log      *logger.Logger
}

// NewReviewer creates a reviewer. maxChars bounds the contents part of each
// prompt; zero disables chunking.
func NewReviewer(engine Engine, prefix string, maxChars int, log *logger.Logger) *Reviewer {
	return &Reviewer{
		engine:   engine,
		prefix:   prefix,
		maxChars: maxChars,
		log:      log,
	}
}

// Review reviews contents, one engine call per chunk, and joins the answers
func (r *Reviewer) Review(ctx context.Context, contents string) (string, error) {
	chunks := Chunk(contents, r.maxChars)
	if len(chunks) > 1 {
		r.log.Infof("Contents split into %d review chunks", len(chunks))
	}

	reviews := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		answer, err := r.engine.Review(ctx, BuildPrompt(r.prefix, chunk))
		if err != nil {
			var providerErr *ProviderError
			if errors.As(err, &providerErr) && providerErr.IsRateLimited() {
				r.log.Warnf("Review engine rate limited on chunk %d of %d", i+1, len(chunks))
			}
			return "", fmt.Errorf("review chunk %d of %d: %w", i+1, len(chunks), err)
		}
		reviews = append(reviews, strings.TrimSpace(answer))
	}

	return strings.Join(reviews, chunkSeparator), nil
}
