package chunker

import (
	"regexp"
	"strings"

	"github.com/stefan-kp/sourcerack-sub001/internal/parsing"
)

// DocChunker splits markdown/doc content into chunks by header then by
// paragraph, so that content_type=docs chunks stay within a token budget
// without ever splitting a fenced code block.
type DocChunker struct {
	targetTokens int
}

// NewDocChunker builds a DocChunker targeting roughly targetTokens per chunk
// (tokens estimated at ~4 characters each).
func NewDocChunker(targetTokens int) *DocChunker {
	if targetTokens <= 0 {
		targetTokens = 400
	}
	return &DocChunker{targetTokens: targetTokens}
}

var headerPattern = regexp.MustCompile(`^#{1,6}\s+`)
var fencePattern = regexp.MustCompile("^```")

type docSection struct {
	startLine int
	lines     []string
}

// ChunkDocument splits content into docs-typed chunks.
func (d *DocChunker) ChunkDocument(path string, content []byte) Result {
	text := string(content)
	if strings.TrimSpace(text) == "" {
		return Result{Path: path, Language: "", Success: true}
	}

	lines := strings.Split(text, "\n")
	var chunks []Chunk
	for _, sec := range splitByHeaders(lines) {
		chunks = append(chunks, d.chunkSection(sec)...)
	}

	return Result{Path: path, Chunks: chunks, Success: true}
}

func splitByHeaders(lines []string) []docSection {
	var sections []docSection
	current := docSection{startLine: 1}

	for i, line := range lines {
		if i > 0 && headerPattern.MatchString(line) {
			if len(current.lines) > 0 {
				sections = append(sections, current)
			}
			current = docSection{startLine: i + 1}
		}
		current.lines = append(current.lines, line)
	}
	if len(current.lines) > 0 {
		sections = append(sections, current)
	}
	return sections
}

func (d *DocChunker) chunkSection(sec docSection) []Chunk {
	text := strings.Join(sec.lines, "\n")
	if estimateTokens(text) <= d.targetTokens {
		return []Chunk{d.buildChunk(sec.startLine, sec.startLine+len(sec.lines)-1, strings.TrimSpace(text))}
	}
	return d.splitByParagraphs(sec)
}

type docParagraph struct {
	text      string
	startLine int
	endLine   int
}

func (d *DocChunker) splitByParagraphs(sec docSection) []Chunk {
	paragraphs := extractParagraphs(sec.lines, sec.startLine)

	var chunks []Chunk
	var batch []docParagraph
	size := 0

	flush := func() {
		if len(batch) == 0 {
			return
		}
		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.text
		}
		chunks = append(chunks, d.buildChunk(batch[0].startLine, batch[len(batch)-1].endLine, strings.Join(texts, "\n\n")))
		batch = nil
		size = 0
	}

	for _, p := range paragraphs {
		pSize := estimateTokens(p.text)
		if size > 0 && size+pSize > d.targetTokens {
			flush()
		}
		batch = append(batch, p)
		size += pSize
	}
	flush()

	return chunks
}

// extractParagraphs splits lines on blank lines, treating a fenced code
// block as a single indivisible paragraph.
func extractParagraphs(lines []string, startLine int) []docParagraph {
	var paragraphs []docParagraph
	var current []string
	currentStart := startLine
	inFence := false

	flush := func(endLine int) {
		text := strings.TrimSpace(strings.Join(current, "\n"))
		if text != "" {
			paragraphs = append(paragraphs, docParagraph{text: text, startLine: currentStart, endLine: endLine})
		}
		current = nil
	}

	for i, line := range lines {
		lineNum := startLine + i

		if fencePattern.MatchString(line) {
			if !inFence {
				flush(lineNum - 1)
				currentStart = lineNum
				inFence = true
			} else {
				current = append(current, line)
				flush(lineNum)
				currentStart = lineNum + 1
				inFence = false
				continue
			}
		}

		if inFence {
			current = append(current, line)
			continue
		}

		if strings.TrimSpace(line) == "" {
			flush(lineNum - 1)
			currentStart = lineNum + 1
			continue
		}
		current = append(current, line)
	}
	flush(startLine + len(lines) - 1)

	return paragraphs
}

func (d *DocChunker) buildChunk(startLine, endLine int, text string) Chunk {
	return Chunk{
		Symbol:      "doc",
		SymbolKind:  KindOther,
		Language:    parsing.Language("markdown"),
		ContentType: "docs",
		StartLine:   startLine,
		EndLine:     endLine,
		Content:     text,
	}
}

func estimateTokens(text string) int {
	return len(text) / 4
}
