// Package snippets expands code-snippet fenced blocks with code pulled from
// code-example repositories.
//
// A block whose info string reads
//
//	code-snippet <owner/repo> <marker>
//
// is replaced by the lines between "code_snippet <marker> start [lang]" and
// "code_snippet <marker> end" found in that repository.
package snippets

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const directiveKeyword = "code-snippet"

// Directive is one code-snippet block. Start and End delimit the whole block
// including both fences.
type Directive struct {
	Repository string
	Marker     string
	Start      int
	End        int
}

// FindDirectives returns the code-snippet blocks in src in document order.
func FindDirectives(src []byte) []Directive {
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	var out []Directive
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		block, ok := n.(*gmast.FencedCodeBlock)
		if !ok || block.Info == nil {
			return gmast.WalkContinue, nil
		}
		fields := strings.Fields(string(block.Info.Segment.Value(src)))
		if len(fields) != 3 || fields[0] != directiveKeyword {
			return gmast.WalkSkipChildren, nil
		}
		start, end := blockBounds(src, block)
		out = append(out, Directive{Repository: fields[1], Marker: fields[2], Start: start, End: end})
		return gmast.WalkSkipChildren, nil
	})
	return out
}

// blockBounds finds the byte range from the opening fence line to the end of
// the closing fence line. goldmark does not keep the closing fence, so it is
// located by scanning forward from the last content line.
func blockBounds(src []byte, block *gmast.FencedCodeBlock) (int, int) {
	infoStart := block.Info.Segment.Start
	start := bytes.LastIndexByte(src[:infoStart], '\n') + 1

	opening := bytes.TrimLeft(src[start:lineEnd(src, start)], " ")
	fenceChar := opening[0]
	fenceLen := 0
	for fenceLen < len(opening) && opening[fenceLen] == fenceChar {
		fenceLen++
	}

	pos := lineEnd(src, start)
	if lines := block.Lines(); lines.Len() > 0 {
		pos = lines.At(lines.Len() - 1).Stop
	}
	for pos < len(src) {
		eol := lineEnd(src, pos)
		if isClosingFence(src[pos:eol], fenceChar, fenceLen) {
			return start, eol
		}
		pos = eol
	}
	return start, len(src)
}

// lineEnd returns the offset just past the newline ending the line at pos.
func lineEnd(src []byte, pos int) int {
	if i := bytes.IndexByte(src[pos:], '\n'); i >= 0 {
		return pos + i + 1
	}
	return len(src)
}

func isClosingFence(line []byte, fenceChar byte, fenceLen int) bool {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) < fenceLen {
		return false
	}
	for _, c := range trimmed {
		if c != fenceChar {
			return false
		}
	}
	return true
}
