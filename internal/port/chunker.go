package port

// Chunker splits raw document text into retrievable pieces. Chunkers
// are external collaborators: the engine only ever sees the resulting
// text strings plus whatever metadata the caller attaches.
type Chunker interface {
	Chunk(text string) []string
}
