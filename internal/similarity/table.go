// Package similarity holds the static class-name similarity table used for
// fuzzy name matching between detections of different frames.
package similarity

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Pair is one weighted, undirected edge of the table.
type Pair struct {
	A      string  `yaml:"a" json:"a"`
	B      string  `yaml:"b" json:"b"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// Table is an immutable weighted undirected graph over class names.
// It is safe for concurrent reads.
type Table struct {
	weights map[string]map[string]float64
}

// defaultPairs is the built-in synonym graph.
var defaultPairs = []Pair{
	{"hand", "arm", 0.5},
	{"hand", "person", 0.2},
	{"hand", "finger", 0.6},
	{"glass", "cup", 0.8},
	{"person", "woman", 0.8},
	{"person", "man", 0.8},
	{"mouth", "person", 0.4},
	{"mouth", "woman", 0.4},
	{"mouth", "man", 0.4},
	{"woman", "girl", 0.9},
	{"man", "boy", 0.9},
	{"boy", "person", 0.9},
	{"girl", "person", 0.9},
}

// New builds a table from pairs. Later duplicates overwrite earlier ones.
func New(pairs []Pair) (*Table, error) {
	t := &Table{weights: make(map[string]map[string]float64)}
	for i, p := range pairs {
		if p.A == "" || p.B == "" {
			return nil, fmt.Errorf("pair %d: empty class name", i)
		}
		if p.A == p.B {
			return nil, fmt.Errorf("pair %d: self pair %q", i, p.A)
		}
		if p.Weight < 0 || p.Weight > 1 {
			return nil, fmt.Errorf("pair %d (%s, %s): weight %v outside [0,1]", i, p.A, p.B, p.Weight)
		}
		t.set(p.A, p.B, p.Weight)
		t.set(p.B, p.A, p.Weight)
	}
	return t, nil
}

// Default returns the built-in table.
func Default() *Table {
	t, err := New(defaultPairs)
	if err != nil {
		panic(err)
	}
	return t
}

// Empty returns a table with no pairs; only identical names match.
func Empty() *Table {
	return &Table{weights: map[string]map[string]float64{}}
}

func (t *Table) set(a, b string, w float64) {
	m, ok := t.weights[a]
	if !ok {
		m = make(map[string]float64)
		t.weights[a] = m
	}
	m[b] = w
}

// Similarity returns 1 for identical names, the direct edge weight when
// one exists, and 0 otherwise. There is no multi-hop lookup.
func (t *Table) Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if t == nil {
		return 0
	}
	return t.weights[a][b]
}

// Len returns the number of undirected pairs.
func (t *Table) Len() int {
	n := 0
	for _, m := range t.weights {
		n += len(m)
	}
	return n / 2
}

// Pairs returns every pair once, with A < B, sorted by A then B.
func (t *Table) Pairs() []Pair {
	var out []Pair
	for a, m := range t.weights {
		for b, w := range m {
			if a < b {
				out = append(out, Pair{A: a, B: b, Weight: w})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// file is the on-disk YAML layout.
type file struct {
	Pairs []Pair `yaml:"pairs"`
}

// Read parses a YAML table.
func Read(r io.Reader) (*Table, error) {
	var f file
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return Empty(), nil
		}
		return nil, fmt.Errorf("decode similarity table: %w", err)
	}
	return New(f.Pairs)
}

// Load reads a YAML table from path.
func Load(path string) (*Table, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open similarity table: %w", err)
	}
	defer fh.Close()
	return Read(fh)
}

// WriteYAML writes the table in the format Read accepts.
func (t *Table) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file{Pairs: t.Pairs()}); err != nil {
		return err
	}
	return enc.Close()
}
