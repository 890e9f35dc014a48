package format

import (
	"strconv"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// The parser configuration never changes and parsing keeps per-call state,
// so one instance is shared.
var (
	markdownParserInstance goldmark.Markdown
	markdownParserOnce     sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParserInstance = goldmark.New(
			goldmark.WithExtensions(
				extension.Strikethrough,
				extension.Table,
				extension.TaskList,
				extension.Linkify,
			),
		)
	})
	return markdownParserInstance
}

// markup is the set of inline and block decorations of a chat channel
type markup struct {
	boldOpen, boldClose     string
	italicOpen, italicClose string
	strikeOpen, strikeClose string
	codeOpen, codeClose     string
	quoteOpen, quoteClose   string

	// pre renders a code block; language may be empty
	pre func(code, language string) string

	// link renders a hyperlink around already rendered label text
	link func(label, url string) string

	// escape makes literal text safe for the channel
	escape func(string) string
}

// renderMarkdown converts markdown into the given channel markup
func renderMarkdown(input string, m *markup) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	source := []byte(input)
	document := getMarkdownParser().Parser().Parse(text.NewReader(source))

	renderer := &chatRenderer{source: source, markup: m}
	_ = ast.Walk(document, renderer.walk)

	return strings.TrimSpace(renderer.output.String())
}

// chatRenderer walks a goldmark AST writing channel markup. Chat clients
// do their own wrapping, so line breaks in the source are kept as is.
type chatRenderer struct {
	source []byte
	markup *markup
	output strings.Builder

	lists []listState

	// Label of the link being rendered. Markdown links do not nest.
	linkLabel *strings.Builder
}

type listState struct {
	ordered bool
	counter int
	tight   bool
}

func (r *chatRenderer) write(s string) {
	if r.linkLabel != nil {
		r.linkLabel.WriteString(s)
		return
	}
	r.output.WriteString(s)
}

func (r *chatRenderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {
	case ast.KindParagraph, ast.KindTextBlock:
		if !entering {
			if r.inTightList() {
				r.write("\n")
			} else {
				r.write("\n\n")
			}
		}

	case ast.KindHeading:
		if entering {
			r.write(r.markup.boldOpen)
		} else {
			r.write(r.markup.boldClose + "\n\n")
		}

	case ast.KindFencedCodeBlock:
		if entering {
			block := node.(*ast.FencedCodeBlock)
			r.write(r.markup.pre(r.blockText(block), string(block.Language(r.source))) + "\n\n")
			return ast.WalkSkipChildren, nil
		}

	case ast.KindCodeBlock:
		if entering {
			r.write(r.markup.pre(r.blockText(node), "") + "\n\n")
			return ast.WalkSkipChildren, nil
		}

	case ast.KindBlockquote:
		if entering {
			r.write(r.markup.quoteOpen)
		} else {
			r.trimTrailingNewlines()
			r.write(r.markup.quoteClose + "\n\n")
		}

	case ast.KindList:
		list := node.(*ast.List)
		if entering {
			r.lists = append(r.lists, listState{
				ordered: list.IsOrdered(),
				counter: list.Start,
				tight:   list.IsTight,
			})
		} else {
			r.lists = r.lists[:len(r.lists)-1]
			if len(r.lists) == 0 {
				r.write("\n")
			}
		}

	case ast.KindListItem:
		if entering {
			r.enterListItem()
		}

	case ast.KindThematicBreak:
		if entering {
			r.write("──────────\n\n")
		}

	case ast.KindHTMLBlock:
		if entering {
			r.write(r.markup.escape(r.blockText(node)) + "\n")
			return ast.WalkSkipChildren, nil
		}

	case ast.KindText:
		if entering {
			textNode := node.(*ast.Text)
			r.write(r.markup.escape(string(textNode.Segment.Value(r.source))))
			if textNode.SoftLineBreak() || textNode.HardLineBreak() {
				r.write("\n")
			}
		}

	case ast.KindString:
		if entering {
			r.write(r.markup.escape(string(node.(*ast.String).Value)))
		}

	case ast.KindEmphasis:
		emphasis := node.(*ast.Emphasis)
		switch {
		case emphasis.Level >= 2 && entering:
			r.write(r.markup.boldOpen)
		case emphasis.Level >= 2:
			r.write(r.markup.boldClose)
		case entering:
			r.write(r.markup.italicOpen)
		default:
			r.write(r.markup.italicClose)
		}

	case ast.KindCodeSpan:
		if entering {
			r.write(r.markup.codeOpen + r.markup.escape(r.inlineText(node)) + r.markup.codeClose)
			return ast.WalkSkipChildren, nil
		}

	case ast.KindLink:
		link := node.(*ast.Link)
		if entering {
			r.linkLabel = &strings.Builder{}
		} else if r.linkLabel != nil {
			label := r.linkLabel.String()
			r.linkLabel = nil
			r.write(r.markup.link(label, string(link.Destination)))
		}

	case ast.KindAutoLink:
		if entering {
			url := string(node.(*ast.AutoLink).URL(r.source))
			if r.linkLabel != nil {
				r.write(r.markup.escape(url))
			} else {
				r.write(r.markup.link(r.markup.escape(url), url))
			}
		}

	case ast.KindImage:
		if entering {
			image := node.(*ast.Image)
			label := r.markup.escape("[" + r.inlineText(node) + "]")
			r.write(r.markup.link(label, string(image.Destination)))
			return ast.WalkSkipChildren, nil
		}

	case ast.KindRawHTML:
		if entering {
			raw := node.(*ast.RawHTML)
			var b strings.Builder
			for i := 0; i < raw.Segments.Len(); i++ {
				segment := raw.Segments.At(i)
				b.Write(segment.Value(r.source))
			}
			r.write(r.markup.escape(b.String()))
		}

	case extast.KindStrikethrough:
		if entering {
			r.write(r.markup.strikeOpen)
		} else {
			r.write(r.markup.strikeClose)
		}

	case extast.KindTable:
		if entering {
			r.renderTable(node)
			return ast.WalkSkipChildren, nil
		}

	case extast.KindTaskCheckBox:
		if entering {
			if node.(*extast.TaskCheckBox).IsChecked {
				r.write("☑ ")
			} else {
				r.write("☐ ")
			}
		}
	}

	return ast.WalkContinue, nil
}

func (r *chatRenderer) inTightList() bool {
	return len(r.lists) > 0 && r.lists[len(r.lists)-1].tight
}

func (r *chatRenderer) enterListItem() {
	depth := len(r.lists)
	if depth == 0 {
		return
	}

	if depth > 1 {
		r.trimTrailingBlankLine()
	} else if out := r.output.String(); out != "" && !strings.HasSuffix(out, "\n") {
		r.write("\n")
	}

	current := &r.lists[depth-1]
	indent := strings.Repeat("  ", depth-1)
	if current.ordered {
		r.write(indent + strconv.Itoa(current.counter) + ". ")
		current.counter++
	} else {
		r.write(indent + "• ")
	}
}

// trimTrailingBlankLine turns a trailing blank line into a single newline
// so nested list items stay packed under their parent.
func (r *chatRenderer) trimTrailingBlankLine() {
	out := r.output.String()
	if strings.HasSuffix(out, "\n\n") {
		r.output.Reset()
		r.output.WriteString(strings.TrimRight(out, "\n") + "\n")
	}
}

func (r *chatRenderer) trimTrailingNewlines() {
	out := r.output.String()
	trimmed := strings.TrimRight(out, "\n")
	if len(trimmed) != len(out) {
		r.output.Reset()
		r.output.WriteString(trimmed)
	}
}

// blockText returns the raw lines of a block node
func (r *chatRenderer) blockText(node ast.Node) string {
	var b strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		b.Write(segment.Value(r.source))
	}
	return strings.TrimRight(b.String(), "\n")
}

// inlineText returns the plain text of node's descendants
func (r *chatRenderer) inlineText(node ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(node, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := child.(type) {
		case *ast.Text:
			b.Write(n.Segment.Value(r.source))
			if n.SoftLineBreak() {
				b.WriteString(" ")
			}
		case *ast.String:
			b.Write(n.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// renderTable lays a table out as pipe separated rows in a code block,
// chat clients have no table support.
func (r *chatRenderer) renderTable(node ast.Node) {
	var rows []string
	for row := node.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			if cell.Kind() == extast.KindTableCell {
				cells = append(cells, strings.TrimSpace(r.inlineText(cell)))
			}
		}
		rows = append(rows, strings.Join(cells, " | "))
	}
	r.write(r.markup.pre(strings.Join(rows, "\n"), "") + "\n\n")
}
