package narrative

import (
	"strings"

	"github.com/rcliao/graphene/internal/model"
)

const (
	DefaultTargetSize = 1500
	DefaultMaxSize    = 2000
)

// PageOptions configures pagination.
type PageOptions struct {
	TargetSize int
	MaxSize    int
}

// DefaultPageOptions returns default pagination options.
func DefaultPageOptions() PageOptions {
	return PageOptions{
		TargetSize: DefaultTargetSize,
		MaxSize:    DefaultMaxSize,
	}
}

// Page is a run of sentences that fits a context budget.
type Page struct {
	Text       string `json:"text"`
	FirstFrame int    `json:"first_frame"`
	LastFrame  int    `json:"last_frame"`
	Sentences  int    `json:"sentences"`
}

// block holds the sentences of one appearance frame.
type block struct {
	frame     int
	sentences []string
}

func (b block) size() int {
	n := 0
	for _, s := range b.sentences {
		n += len(s) + 1
	}
	return n
}

// Pages packs the narrative into pages of roughly TargetSize characters.
// Sentences of the same frame stay on one page unless the frame alone
// exceeds MaxSize.
func Pages(snap model.Snapshot, opts PageOptions) []Page {
	if opts.TargetSize <= 0 {
		opts = DefaultPageOptions()
	}
	if opts.MaxSize < opts.TargetSize {
		opts.MaxSize = opts.TargetSize
	}

	blocks := groupByFrame(Ordered(snap))
	if len(blocks) == 0 {
		return nil
	}

	var pages []Page
	var accum []block
	accumSize := 0

	flush := func() {
		if len(accum) == 0 {
			return
		}
		pages = append(pages, newPage(accum))
		accum = nil
		accumSize = 0
	}

	for _, b := range blocks {
		size := b.size()
		if size > opts.MaxSize {
			flush()
			pages = append(pages, hardSplit(b, opts)...)
			continue
		}
		if accumSize > 0 && accumSize+size > opts.TargetSize {
			flush()
		}
		accum = append(accum, b)
		accumSize += size
	}
	flush()

	return pages
}

func groupByFrame(recs []model.EdgeRecord) []block {
	var blocks []block
	for _, r := range recs {
		if n := len(blocks); n > 0 && blocks[n-1].frame == r.AppearanceTime {
			blocks[n-1].sentences = append(blocks[n-1].sentences, Sentence(r))
			continue
		}
		blocks = append(blocks, block{frame: r.AppearanceTime, sentences: []string{Sentence(r)}})
	}
	return blocks
}

func newPage(blocks []block) Page {
	var lines []string
	for _, b := range blocks {
		lines = append(lines, b.sentences...)
	}
	return Page{
		Text:       strings.Join(lines, "\n"),
		FirstFrame: blocks[0].frame,
		LastFrame:  blocks[len(blocks)-1].frame,
		Sentences:  len(lines),
	}
}

// hardSplit breaks an oversized frame on sentence boundaries.
func hardSplit(b block, opts PageOptions) []Page {
	var pages []Page
	var current []string
	curLen := 0

	for _, s := range b.sentences {
		if curLen+len(s) > opts.TargetSize && len(current) > 0 {
			pages = append(pages, newPage([]block{{frame: b.frame, sentences: current}}))
			current = nil
			curLen = 0
		}
		current = append(current, s)
		curLen += len(s) + 1
	}
	if len(current) > 0 {
		pages = append(pages, newPage([]block{{frame: b.frame, sentences: current}}))
	}
	return pages
}
