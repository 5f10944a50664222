// Package preprocess turns a speaker's raw turn sequence into compact, dated
// fact memories before storage.
//
// It has two stages: a pure greedy [Chunker] that partitions turns into
// bounded chunks, and an [Extractor] that asks a completion provider to
// compress each chunk into atomic facts. Extraction fails open: any provider
// error degrades the whole run to the original unmodified turns so ingestion
// never stalls on a flaky model.
package preprocess

import "unicode/utf8"

// Turn is a single role-tagged utterance from the owning speaker's viewpoint.
type Turn struct {
	// Role is "user" for the speaker's own utterances, "assistant" for the
	// interlocutor's.
	Role string

	// Content is the utterance text, conventionally "Speaker: text".
	Content string

	// Timestamp is the absolute session timestamp the turn belongs to.
	Timestamp string
}

// Default chunking bounds.
const (
	DefaultMaxChunkTurns = 6
	DefaultMaxChunkChars = 1400
)

// Chunker partitions a turn sequence into bounded contiguous chunks.
type Chunker struct {
	maxTurns int
	maxChars int
}

// ChunkerOption is a functional option for [NewChunker].
type ChunkerOption func(*Chunker)

// WithMaxTurns caps the number of turns per chunk. Defaults to 6.
func WithMaxTurns(n int) ChunkerOption {
	return func(c *Chunker) {
		if n > 0 {
			c.maxTurns = n
		}
	}
}

// WithMaxChars caps the cumulative content length per chunk, counted in
// characters, not bytes. Defaults to 1400.
func WithMaxChars(n int) ChunkerOption {
	return func(c *Chunker) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// NewChunker creates a [Chunker] with the default bounds.
func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{
		maxTurns: DefaultMaxChunkTurns,
		maxChars: DefaultMaxChunkChars,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Chunk greedily partitions turns. A chunk is flushed before the turn that
// would push it past either bound, and that turn starts the next chunk, so
// concatenating the result reproduces turns exactly and no chunk is empty.
// A single turn longer than the character bound still forms its own chunk.
func (c *Chunker) Chunk(turns []Turn) [][]Turn {
	var (
		chunks [][]Turn
		chunk  []Turn
		chars  int
	)
	for _, t := range turns {
		runes := utf8.RuneCountInString(t.Content)
		if len(chunk) > 0 && (len(chunk) >= c.maxTurns || chars+runes > c.maxChars) {
			chunks = append(chunks, chunk)
			chunk = nil
			chars = 0
		}
		chunk = append(chunk, t)
		chars += runes
	}
	if len(chunk) > 0 {
		chunks = append(chunks, chunk)
	}
	return chunks
}
