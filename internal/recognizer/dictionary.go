package recognizer

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Charset maps between dictionary tokens and their model indices. Index 0
// in the model output is the CTC blank, so token i in the file corresponds
// to model index i+1; lookups here use the file-order index.
type Charset struct {
	tokens  []string
	toIndex map[string]int
}

// LoadCharset reads a dictionary file with one token per line. A UTF-8 BOM
// on the first line is stripped and empty lines are skipped.
func LoadCharset(path string) (*Charset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer f.Close()

	cs := &Charset{toIndex: make(map[string]int)}
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\\uFEFF")
			first = false
		}
		if line == "" {
			continue
		}
		if _, exists := cs.toIndex[line]; exists {
			continue
		}
		cs.toIndex[line] = len(cs.tokens)
		cs.tokens = append(cs.tokens, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dictionary: %w", err)
	}
	if len(cs.tokens) == 0 {
		return nil, fmt.Errorf("dictionary is empty: %s", path)
	}
	return cs, nil
}

// LookupToken returns the token at the given index, or "" if out of range.
func (c *Charset) LookupToken(index int) string {
	if index < 0 || index >= len(c.tokens) {
		return ""
	}
	return c.tokens[index]
}

// LookupIndex returns the index of the token, or -1 if not present.
func (c *Charset) LookupIndex(token string) int {
	if idx, ok := c.toIndex[token]; ok {
		return idx
	}
	return -1
}

// Size returns the number of tokens.
func (c *Charset) Size() int {
	return len(c.tokens)
}
