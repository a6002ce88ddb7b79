package chunking

import (
	"strings"
	"testing"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
)

func TestChunkRejectsOverlapNotSmallerThanMax(t *testing.T) {
	s := NewSplitter()
	for _, overlap := range []int{10, 15} {
		if _, err := s.Chunk("some text here", 10, overlap); !domain.IsKind(err, domain.ErrValidation) {
			t.Fatalf("overlap=%d: expected validation error, got %v", overlap, err)
		}
	}
}

func TestChunkRejectsEmptyText(t *testing.T) {
	s := NewSplitter()
	for _, text := range []string{"", "   \n\t  "} {
		if _, err := s.Chunk(text, 10, 2); !domain.IsKind(err, domain.ErrValidation) {
			t.Fatalf("text=%q: expected validation error, got %v", text, err)
		}
	}
}

func TestChunkShortTextYieldsSingleChunkSpanningInput(t *testing.T) {
	s := NewSplitter()
	text := "  a few words only  "
	chunks, err := s.Chunk(text, 100, 10)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.StartChar != 0 || c.EndChar != len([]rune(text)) {
		t.Fatalf("expected chunk to span whole input, got [%d,%d)", c.StartChar, c.EndChar)
	}
	if c.Text != text {
		t.Fatalf("expected chunk text to equal input, got %q", c.Text)
	}
	if c.TokenCount != 4 {
		t.Fatalf("expected 4 tokens, got %d", c.TokenCount)
	}
}

func TestChunkIndexesContiguousFromZero(t *testing.T) {
	s := NewSplitter()
	text := strings.Repeat("alpha beta gamma delta ", 40)
	chunks, err := s.Chunk(text, 16, 4)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Fatalf("chunk %d has index %d", i, c.Index)
		}
		if c.StartChar >= c.EndChar {
			t.Fatalf("chunk %d has empty span [%d,%d)", i, c.StartChar, c.EndChar)
		}
		if c.Text == "" {
			t.Fatalf("chunk %d is empty", i)
		}
	}
}

func TestChunkReconstructionEqualsOriginal(t *testing.T) {
	s := NewSplitter()
	texts := []string{
		"one two three four five six seven eight nine ten",
		"  leading and trailing whitespace preserved  ",
		strings.Repeat("слово word 词 token\nnewline\ttab ", 30),
	}
	configs := []struct{ max, overlap int }{
		{3, 0}, {3, 1}, {5, 2}, {8, 7}, {50, 10},
	}

	for _, text := range texts {
		runes := []rune(text)
		for _, cfg := range configs {
			chunks, err := s.Chunk(text, cfg.max, cfg.overlap)
			if err != nil {
				t.Fatalf("Chunk(max=%d,overlap=%d) error = %v", cfg.max, cfg.overlap, err)
			}

			var rebuilt []rune
			prevEnd := 0
			for i, c := range chunks {
				chunkRunes := []rune(c.Text)
				if string(runes[c.StartChar:c.EndChar]) != c.Text {
					t.Fatalf("chunk %d text does not match its offsets", i)
				}
				skip := 0
				if i > 0 {
					skip = prevEnd - c.StartChar
					if skip < 0 {
						t.Fatalf("chunk %d starts after previous end (gap of %d runes)", i, -skip)
					}
				}
				rebuilt = append(rebuilt, chunkRunes[skip:]...)
				prevEnd = c.EndChar
			}
			if string(rebuilt) != text {
				t.Fatalf("max=%d overlap=%d: reconstruction mismatch:\nwant %q\ngot  %q",
					cfg.max, cfg.overlap, text, string(rebuilt))
			}
		}
	}
}

func TestChunkDeterministic(t *testing.T) {
	s := NewSplitter()
	text := strings.Repeat("deterministic input text ", 25)
	first, err := s.Chunk(text, 10, 3)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	second, err := s.Chunk(text, 10, 3)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.Index != b.Index || a.Text != b.Text || a.StartChar != b.StartChar ||
			a.EndChar != b.EndChar || a.TokenCount != b.TokenCount {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}
