package review

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nahidhasan98/review-relay/internal/logger"
	"github.com/nahidhasan98/review-relay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBuildPrompt(t *testing.T) {
	assert.Equal(t, "Review:\n\ncode", BuildPrompt("Review:\n\n", "code"))
	assert.Equal(t, "Review:\n\n"+FailedFetchPlaceholder, BuildPrompt("Review:\n\n", ""))
}

func block(path string, size int) string {
	return models.NewFileBlock(path, strings.Repeat("x", size)).String()
}

func TestChunk(t *testing.T) {
	a := block("a.go", 40)
	b := block("b.go", 40)
	c := block("c.go", 40)
	document := a + "\n" + b + "\n" + c

	t.Run("fits", func(t *testing.T) {
		assert.Equal(t, []string{document}, Chunk(document, len(document)))
	})

	t.Run("disabled", func(t *testing.T) {
		assert.Equal(t, []string{document}, Chunk(document, 0))
	})

	t.Run("cuts between blocks", func(t *testing.T) {
		chunks := Chunk(document, len(b)+len(c)+1)
		require.Len(t, chunks, 2)
		assert.Equal(t, a+"\n", chunks[0])
		assert.Equal(t, b+"\n"+c, chunks[1])
	})

	t.Run("oversized block is cut on lines", func(t *testing.T) {
		big := models.NewFileBlock("big.go", strings.Repeat("line\n", 50)).String()
		chunks := Chunk(big, 60)
		require.Greater(t, len(chunks), 1)
		assert.Equal(t, big, strings.Join(chunks, ""))
		for _, chunk := range chunks {
			assert.LessOrEqual(t, len(chunk), 60)
		}
	})
}

func TestChunkKeepsRunesWhole(t *testing.T) {
	line := strings.Repeat("проверка кода ", 20) + "\n"
	big := models.NewFileBlock("ru.md", strings.Repeat(line, 3)).String()

	for _, maxChars := range []int{37, 64, 101} {
		chunks := Chunk(big, maxChars)
		require.Greater(t, len(chunks), 1)
		assert.Equal(t, big, strings.Join(chunks, ""))
		for _, chunk := range chunks {
			assert.True(t, utf8.ValidString(chunk), "max %d: %q", maxChars, chunk)
			assert.LessOrEqual(t, len(chunk), maxChars)
		}
	}
}

func TestChunkProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(1, 8).Draw(t, "count")
		blocks := make([]string, count)
		for i := range blocks {
			size := rapid.IntRange(0, 200).Draw(t, fmt.Sprintf("size%d", i))
			blocks[i] = block(fmt.Sprintf("f%d.go", i), size)
		}
		document := strings.Join(blocks, "\n")
		maxChars := rapid.IntRange(1, 600).Draw(t, "maxChars")

		chunks := Chunk(document, maxChars)

		if got := strings.Join(chunks, ""); got != document {
			t.Fatalf("chunks do not reassemble the document")
		}
		for _, chunk := range chunks {
			if len(chunk) > maxChars && len(chunks) > 1 {
				t.Fatalf("chunk of %d bytes exceeds %d", len(chunk), maxChars)
			}
		}
	})
}

type stubEngine struct {
	prompts []string
	answer  func(prompt string) (string, error)
}

func (e *stubEngine) Review(_ context.Context, prompt string) (string, error) {
	e.prompts = append(e.prompts, prompt)
	return e.answer(prompt)
}

func TestReviewer(t *testing.T) {
	engine := &stubEngine{answer: func(prompt string) (string, error) {
		return fmt.Sprintf(" review %d \n", strings.Count(prompt, "--- FILE: ")), nil
	}}
	a := block("a.go", 40)
	b := block("b.go", 40)

	reviewer := NewReviewer(engine, "P:", len(a)+1, logger.Nop())
	got, err := reviewer.Review(context.Background(), a+"\n"+b)
	require.NoError(t, err)

	require.Len(t, engine.prompts, 2)
	assert.Equal(t, "P:"+a+"\n", engine.prompts[0])
	assert.Equal(t, "P:"+b, engine.prompts[1])
	assert.Equal(t, "review 1\n\n---\n\nreview 1", got)
}

func TestReviewerEmptyContents(t *testing.T) {
	engine := &stubEngine{answer: func(string) (string, error) { return "ok", nil }}

	got, err := NewReviewer(engine, "P:", 100, logger.Nop()).Review(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "ok", got)
	assert.Equal(t, []string{"P:" + FailedFetchPlaceholder}, engine.prompts)
}

func TestReviewerEngineFailure(t *testing.T) {
	engine := &stubEngine{answer: func(string) (string, error) {
		return "", &ProviderError{StatusCode: 500, Message: "boom"}
	}}

	_, err := NewReviewer(engine, "P:", 0, logger.Nop()).Review(context.Background(), "code")
	require.Error(t, err)

	var providerErr *ProviderError
	assert.ErrorAs(t, err, &providerErr)
	assert.Equal(t, 500, providerErr.StatusCode)
}
