package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefault(t *testing.T) {
	req := require.New(t)

	// When loading the dictionaries shipped with the binary
	dictionary, err := LoadDefault()
	req.NoError(err)

	// Then both language files contribute
	req.Contains(dictionary.Languages, "en")
	req.Contains(dictionary.Languages, "fr")
	req.NotEmpty(dictionary.Words)

	// And the merged list has no duplicates
	seen := make(map[string]struct{}, len(dictionary.Words))
	for _, word := range dictionary.Words {
		_, dup := seen[word]
		req.False(dup, "duplicate word %q", word)
		seen[word] = struct{}{}
	}
}

func TestLoadAll_UnknownDirectory(t *testing.T) {
	req := require.New(t)

	_, err := NewLoader(censoredFS).LoadAll("nowhere")
	req.Error(err)
}
