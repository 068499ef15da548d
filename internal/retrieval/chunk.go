package retrieval

import (
	"strings"
	"unicode"
)

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

// SplitIntoChunks splits text into pieces of at most size runes, each
// starting overlap runes before the end of the previous one. Breaks prefer
// whitespace in the second half of a window so words stay whole.
func SplitIntoChunks(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(strings.TrimSpace(text))
	var chunks []string
	for start := 0; start < len(runes); {
		end := min(start+size, len(runes))
		if end < len(runes) {
			for i := end; i > start+size/2; i-- {
				if unicode.IsSpace(runes[i-1]) {
					end = i
					break
				}
			}
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			chunks = append(chunks, piece)
		}
		if end == len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

var filenameLanguages = []struct {
	needle   string
	language string
}{
	{"kotlin", "kotlin"},
	{"android", "kotlin"},
	{"typescript", "typescript"},
	{"angular", "typescript"},
	{"javascript", "javascript"},
	{"react", "javascript"},
	{"node", "javascript"},
	{"java", "java"},
	{"spring", "java"},
	{"python", "python"},
	{"django", "python"},
	{"csharp", "csharp"},
	{"dotnet", "csharp"},
	{"cpp", "cpp"},
	{"c++", "cpp"},
	{"rust", "rust"},
	{"golang", "go"},
	{"go-", "go"},
	{"swift", "swift"},
	{"ios", "swift"},
}

// LanguageFromFilename guesses the language a document covers from its
// name, or returns "general".
func LanguageFromFilename(name string) string {
	lower := strings.ToLower(name)
	for _, fl := range filenameLanguages {
		if strings.Contains(lower, fl.needle) {
			return fl.language
		}
	}
	return "general"
}
