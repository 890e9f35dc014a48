package notify

import (
	"strings"
	"unicode/utf8"
)

type openTag struct {
	name string
	raw  string
}

// SplitHTML splits Telegram HTML into parts of at most limit runes. Lines are
// kept whole where possible; tags and entities are never cut. Tags still open
// at a cut are closed at the end of the part and reopened at the start of the
// next one, so every part parses on its own.
func SplitHTML(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	s := &htmlSplitter{limit: limit}
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		s.addLine(tokenizeHTML(line))
	}
	s.flush()
	return s.parts
}

type htmlSplitter struct {
	limit      int
	parts      []string
	current    strings.Builder
	currentLen int
	contentLen int
	stack      []openTag
}

func (s *htmlSplitter) addLine(tokens []string) {
	lineLen := 0
	after := s.stack
	for _, tok := range tokens {
		lineLen += utf8.RuneCountInString(tok)
		after = applyTag(after, tok)
	}

	if s.contentLen > 0 && s.currentLen+lineLen+closersLen(after) > s.limit {
		s.flush()
	}
	if s.currentLen+lineLen+closersLen(after) <= s.limit {
		for _, tok := range tokens {
			s.write(tok)
		}
		return
	}

	for _, tok := range tokens {
		tokLen := utf8.RuneCountInString(tok)
		if s.contentLen > 0 && s.currentLen+tokLen+closersLen(applyTag(s.stack, tok)) > s.limit {
			s.flush()
		}
		s.write(tok)
	}
}

func (s *htmlSplitter) write(tok string) {
	s.current.WriteString(tok)
	n := utf8.RuneCountInString(tok)
	s.currentLen += n
	s.contentLen += n
	s.stack = applyTag(s.stack, tok)
}

func (s *htmlSplitter) flush() {
	if s.contentLen == 0 {
		return
	}
	body := strings.TrimRight(s.current.String(), "\n")
	s.parts = append(s.parts, body+closers(s.stack))

	s.current.Reset()
	s.currentLen = 0
	s.contentLen = 0
	for _, tag := range s.stack {
		s.current.WriteString(tag.raw)
		s.currentLen += utf8.RuneCountInString(tag.raw)
	}
}

// tokenizeHTML breaks a line into tags, entities and single runes.
func tokenizeHTML(line string) []string {
	var tokens []string
	for i := 0; i < len(line); {
		switch line[i] {
		case '<':
			if end := strings.IndexByte(line[i:], '>'); end > 0 {
				tokens = append(tokens, line[i:i+end+1])
				i += end + 1
				continue
			}
		case '&':
			if end := strings.IndexByte(line[i:], ';'); end > 0 && end <= 10 {
				tokens = append(tokens, line[i:i+end+1])
				i += end + 1
				continue
			}
		}
		_, size := utf8.DecodeRuneInString(line[i:])
		tokens = append(tokens, line[i:i+size])
		i += size
	}
	return tokens
}

// applyTag returns the open tag stack after tok. The input slice is not modified.
func applyTag(stack []openTag, tok string) []openTag {
	if len(tok) < 3 || tok[0] != '<' || tok[len(tok)-1] != '>' {
		return stack
	}
	if tok[1] == '/' {
		name := tagName(tok[2:])
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].name == name {
				return stack[:i:i]
			}
		}
		return stack
	}
	if strings.HasSuffix(tok, "/>") {
		return stack
	}
	name := tagName(tok[1:])
	if name == "" {
		return stack
	}
	next := make([]openTag, len(stack), len(stack)+1)
	copy(next, stack)
	return append(next, openTag{name: name, raw: tok})
}

func tagName(s string) string {
	end := strings.IndexAny(s, " \t\n/>")
	if end < 0 {
		end = len(s)
	}
	return strings.ToLower(s[:end])
}

func closers(stack []openTag) string {
	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteString("</" + stack[i].name + ">")
	}
	return b.String()
}

func closersLen(stack []openTag) int {
	n := 0
	for _, tag := range stack {
		n += len(tag.name) + 3
	}
	return n
}
