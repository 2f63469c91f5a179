package wordbank

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeWordsFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "words.txt")

	err := os.WriteFile(path, []byte(content), 0o644)
	assert.NoError(t, err)

	return path
}

func TestLoadFileBank(t *testing.T) {
	path := writeWordsFile(t, `Animals:Giraffe
Animals:Penguin

not a valid line
Objects:Alarm Clock
`)

	fb, err := LoadFileBank(path)

	assert.NoError(t, err)
	assert.Len(t, fb.entries, 3)
	assert.Equal(t, Entry{Text: "Giraffe", Category: "Animals"}, fb.entries[0])
	assert.Equal(t, Entry{Text: "Alarm Clock", Category: "Objects"}, fb.entries[2])
}

func TestLoadFileBank_MissingFile(t *testing.T) {
	_, err := LoadFileBank(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestFileBank_ThreeWords(t *testing.T) {
	path := writeWordsFile(t, `A:one
A:two
A:three
A:four
A:five
`)

	fb, err := LoadFileBank(path)
	assert.NoError(t, err)

	words := fb.ThreeWords(nil)
	assert.Len(t, words, 3)

	for _, w := range words {
		assert.Contains(t, []string{"one", "two", "three", "four", "five"}, w)
	}
}

func TestFileBank_ThreeWordsHonorsExclusions(t *testing.T) {
	path := writeWordsFile(t, `A:one
A:two
A:three
A:four
`)

	fb, err := LoadFileBank(path)
	assert.NoError(t, err)

	// 排除忽略大小写
	words := fb.ThreeWords([]string{"ONE", "Two"})

	assert.Len(t, words, 2)
	assert.NotContains(t, words, "one")
	assert.NotContains(t, words, "two")
}

func TestFileBank_ThreeWordsExhaustedPool(t *testing.T) {
	path := writeWordsFile(t, `A:one
A:two
`)

	fb, err := LoadFileBank(path)
	assert.NoError(t, err)

	words := fb.ThreeWords([]string{"one", "two"})
	assert.Empty(t, words)
}
