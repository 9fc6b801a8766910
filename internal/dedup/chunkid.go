package dedup

import (
	"fmt"

	"github.com/google/uuid"
)

// namespaceChunks seeds deterministic chunk id derivation: the same
// (path, symbol, start, end, content) always yields the same id, so an
// unchanged file shares chunk ids across commits and embeddings are never
// duplicated for identical content.
var namespaceChunks = uuid.MustParse("1b6e6a6c-2f6b-4a9a-9b6d-6a3e5b7c8d9e")

// ChunkID derives a chunk's content-addressed id from its location and body.
func ChunkID(path, symbol string, startLine, endLine int, content string) string {
	key := fmt.Sprintf("%s\x1f%s\x1f%d\x1f%d\x1f%s", path, symbol, startLine, endLine, content)
	return uuid.NewSHA1(namespaceChunks, []byte(key)).String()
}
