// Package chunker provides a word-window text chunking processor.
package chunker

import (
	"context"
	"strings"
)

// DefaultChunkWords is the default number of words per chunk.
const DefaultChunkWords = 200

// DefaultOverlapWords is the default number of words shared by
// consecutive chunks.
const DefaultOverlapWords = 0

// Processor splits document text into windows of whole words.
// It implements the PostProcessor interface.
type Processor struct {
	chunkWords int
	overlap    int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkWords sets the window size in words.
func WithChunkWords(words int) Option {
	return func(p *Processor) {
		if words > 0 {
			p.chunkWords = words
		}
	}
}

// WithOverlap sets how many trailing words of a chunk start the next one.
func WithOverlap(words int) Option {
	return func(p *Processor) {
		if words >= 0 {
			p.overlap = words
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkWords: DefaultChunkWords,
		overlap:    DefaultOverlapWords,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't reach the window size
	if p.overlap >= p.chunkWords {
		p.overlap = p.chunkWords / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkWords returns the configured window size.
func (p *Processor) ChunkWords() int {
	return p.chunkWords
}

// Process splits text on whitespace and joins each window with single
// spaces. Input chunks are ignored; this processor creates new chunks.
func (p *Processor) Process(ctx context.Context, text string, _ []string) ([]string, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	step := p.chunkWords - p.overlap
	chunks := make([]string, 0, len(words)/step+1)

	for start := 0; start < len(words); start += step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + p.chunkWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))

		if end == len(words) {
			break
		}
	}

	return chunks, nil
}
