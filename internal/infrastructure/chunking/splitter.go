package chunking

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

// Splitter cuts text into overlapping token windows. A token is a maximal run
// of non-space runes; offsets are rune offsets into the original text.
//
// Window boundaries are widened so that consecutive chunks always touch or
// overlap in rune space: chunk 0 starts at 0, the last chunk ends at the end
// of the text, and a chunk never ends before the next one starts. Removing
// each chunk's overlap with its predecessor therefore reconstructs the input
// exactly, whitespace included.
type Splitter struct{}

func NewSplitter() *Splitter {
	return &Splitter{}
}

type tokenSpan struct {
	start int
	end   int
}

func (s *Splitter) Chunk(text string, maxTokens, overlapTokens int) ([]domain.Chunk, error) {
	if maxTokens <= 0 {
		return nil, domain.WrapError(domain.ErrValidation, "chunk text",
			fmt.Errorf("max_tokens must be positive, got %d", maxTokens))
	}
	if overlapTokens < 0 {
		return nil, domain.WrapError(domain.ErrValidation, "chunk text",
			fmt.Errorf("overlap_tokens must not be negative, got %d", overlapTokens))
	}
	if overlapTokens >= maxTokens {
		return nil, domain.WrapError(domain.ErrValidation, "chunk text",
			fmt.Errorf("overlap_tokens %d must be smaller than max_tokens %d", overlapTokens, maxTokens))
	}

	runes := []rune(text)
	tokens := scanTokens(runes)
	if len(tokens) == 0 {
		return nil, domain.WrapError(domain.ErrValidation, "chunk text", errors.New("text contains no tokens"))
	}

	step := maxTokens - overlapTokens
	out := make([]domain.Chunk, 0, len(tokens)/step+1)
	for start := 0; start < len(tokens); start += step {
		end := start + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}

		startChar := tokens[start].start
		if start == 0 {
			startChar = 0
		}
		endChar := tokens[end-1].end
		if end == len(tokens) {
			endChar = len(runes)
		} else if next := start + step; next < len(tokens) && endChar < tokens[next].start {
			// Zero-overlap windows would otherwise drop the whitespace
			// between chunks; extend to the next chunk's first token.
			endChar = tokens[next].start
		}

		out = append(out, domain.Chunk{
			Index:      len(out),
			Text:       string(runes[startChar:endChar]),
			StartChar:  startChar,
			EndChar:    endChar,
			TokenCount: end - start,
		})

		if end == len(tokens) {
			break
		}
	}
	return out, nil
}

func scanTokens(runes []rune) []tokenSpan {
	spans := make([]tokenSpan, 0, len(runes)/5+1)
	start := -1
	for i, r := range runes {
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, tokenSpan{start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, tokenSpan{start: start, end: len(runes)})
	}
	return spans
}
