package extract

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock represents a fenced code block found in markdown content.
type CodeBlock struct {
	// Lang is the language token of the info string (e.g., "json", "go").
	Lang string
	// Content is the raw text inside the code block.
	Content string
	// Offset is the byte offset of Content within the source.
	Offset int
}

// ExtractCodeBlocks uses a markdown AST to find all fenced code blocks in
// document order, including blocks nested in lists or quotes.
func ExtractCodeBlocks(source []byte) ([]CodeBlock, error) {
	var blocks []CodeBlock
	parser := goldmark.DefaultParser()
	root := parser.Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fencedCodeBlock, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var block CodeBlock
		if fencedCodeBlock.Info != nil {
			block.Lang = string(fencedCodeBlock.Language(source))
		}

		var content bytes.Buffer
		lines := fencedCodeBlock.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			if i == 0 {
				block.Offset = line.Start
			}
			content.Write(line.Value(source))
		}
		block.Content = content.String()

		blocks = append(blocks, block)
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}

	return blocks, nil
}

// FirstBlock returns the first fenced block tagged exactly with lang.
func FirstBlock(source []byte, lang string) (CodeBlock, bool) {
	blocks, err := ExtractCodeBlocks(source)
	if err != nil {
		return CodeBlock{}, false
	}
	for _, b := range blocks {
		if b.Lang == lang {
			return b, true
		}
	}
	return CodeBlock{}, false
}
