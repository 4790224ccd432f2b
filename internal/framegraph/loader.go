package framegraph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rcliao/graphene/internal/model"
)

// ReadTriples decodes one frame file: a JSON array of detector triples.
func ReadTriples(r io.Reader) ([]model.Triple, error) {
	var raw []model.RawTriple
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode triples: %w", err)
	}
	triples := make([]model.Triple, 0, len(raw))
	for i, rt := range raw {
		if rt.Subject.ID == "" || rt.Object.ID == "" || rt.Predicate.ID == "" {
			return nil, fmt.Errorf("triple %d: missing subject, predicate or object id", i)
		}
		triples = append(triples, rt.Triple())
	}
	return triples, nil
}

// LoadFile reads the triples of a single frame file.
func LoadFile(path string) ([]model.Triple, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	triples, err := ReadTriples(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return triples, nil
}

// ListFrameFiles returns the .json files of dir in lexical order, which is
// the frame order.
func ListFrameFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// MergeWindow concatenates every size consecutive frames into one. A
// trailing partial window is kept. Duplicates across merged frames are
// resolved later by the frame graph's dedup merge.
func MergeWindow(frames [][]model.Triple, size int) [][]model.Triple {
	if size <= 1 {
		return frames
	}
	var out [][]model.Triple
	for start := 0; start < len(frames); start += size {
		end := start + size
		if end > len(frames) {
			end = len(frames)
		}
		var merged []model.Triple
		for _, f := range frames[start:end] {
			merged = append(merged, f...)
		}
		out = append(out, merged)
	}
	return out
}
