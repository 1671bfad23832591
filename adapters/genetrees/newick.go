// Package genetrees reads and writes gene trees in Newick format and
// summarizes them into observed quartet concordance factors.
package genetrees

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/evolbioinfo/gotree/io/newick"
	"github.com/evolbioinfo/gotree/tree"

	"netgof/internal/errors"
)

// maxLine bounds a single Newick line; gene trees on many taxa are long.
const maxLine = 64 << 20

// Read parses one Newick tree per non-empty line.
func Read(r io.Reader) ([]*tree.Tree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<16), maxLine)
	var trees []*tree.Tree
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		t, err := newick.NewParser(strings.NewReader(text)).Parse()
		if err != nil {
			return nil, errors.InvalidInputf("gene tree on line %d: %v", line, err)
		}
		trees = append(trees, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.IOError("failed to read gene trees", err)
	}
	if len(trees) == 0 {
		return nil, errors.InvalidInput("no gene tree found")
	}
	return trees, nil
}

// ReadFile opens path and calls Read.
func ReadFile(path string) ([]*tree.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IOError("failed to open gene tree file", err)
	}
	defer f.Close()
	return Read(f)
}

// Write writes one Newick tree per line.
func Write(w io.Writer, trees []*tree.Tree) error {
	bw := bufio.NewWriter(w)
	for _, t := range trees {
		if _, err := bw.WriteString(t.Newick()); err != nil {
			return errors.IOError("failed to write gene tree", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return errors.IOError("failed to write gene tree", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.IOError("failed to write gene trees", err)
	}
	return nil
}

// WriteFile creates path and calls Write.
func WriteFile(path string, trees []*tree.Tree) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.IOError("failed to create gene tree file", err)
	}
	if err := Write(f, trees); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.IOError("failed to close gene tree file", err)
	}
	return nil
}
