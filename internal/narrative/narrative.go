// Package narrative renders a temporal graph snapshot as text for
// downstream language models.
package narrative

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rcliao/graphene/internal/model"
)

// pastTense maps common scene-graph predicates to a past-tense phrase.
var pastTense = map[string]string{
	"on":           "was on",
	"in":           "was in",
	"at":           "was at",
	"of":           "was part of",
	"has":          "had",
	"have":         "had",
	"wearing":      "wore",
	"wears":        "wore",
	"holding":      "held",
	"holds":        "held",
	"carrying":     "carried",
	"riding":       "rode",
	"eating":       "ate",
	"drinking":     "drank",
	"using":        "used",
	"touching":     "touched",
	"watching":     "watched",
	"looking at":   "looked at",
	"sitting on":   "sat on",
	"sitting in":   "sat in",
	"standing on":  "stood on",
	"standing in":  "stood in",
	"lying on":     "lay on",
	"walking on":   "walked on",
	"playing with": "played with",
	"covering":     "covered",
	"throwing":     "threw",
	"catching":     "caught",
	"pushing":      "pushed",
	"pulling":      "pulled",
}

// PastTense returns the past-tense phrase for pred. Unknown predicates
// become "was <pred>".
func PastTense(pred string) string {
	p := strings.Join(strings.Fields(strings.ToLower(pred)), " ")
	if phrase, ok := pastTense[p]; ok {
		return phrase
	}
	if p == "" {
		return "was related to"
	}
	return "was " + p
}

// Ordered returns the records sorted by appearance, then last presence,
// keeping record order for ties.
func Ordered(snap model.Snapshot) []model.EdgeRecord {
	recs := make([]model.EdgeRecord, len(snap.Edges))
	copy(recs, snap.Edges)
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].AppearanceTime != recs[j].AppearanceTime {
			return recs[i].AppearanceTime < recs[j].AppearanceTime
		}
		return recs[i].LastPresence < recs[j].LastPresence
	})
	return recs
}

// Sentence renders one edge record.
func Sentence(r model.EdgeRecord) string {
	return fmt.Sprintf("%s %s %s in frame %d.", r.From, PastTense(r.Relation), r.To, r.AppearanceTime)
}

// Sentences returns one sentence per edge record in temporal order.
func Sentences(snap model.Snapshot) []string {
	recs := Ordered(snap)
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, Sentence(r))
	}
	return out
}

// Text joins Sentences with newlines.
func Text(snap model.Snapshot) string {
	return strings.Join(Sentences(snap), "\n")
}

// Timeline renders the snapshot as a scene script where each frame lasts
// step. Relations are listed under the moment they first appear:
//
//	At the beginning of the scene:
//	person_0 on chair_0
//	After 2 seconds:
//	person_0 holding cup_0
//	The scene ends
func Timeline(snap model.Snapshot, step time.Duration) string {
	if step <= 0 {
		step = time.Second
	}
	var b strings.Builder
	b.WriteString("At the beginning of the scene:\n")

	start := 0
	if len(snap.Frames) > 0 {
		start = snap.Frames[0]
	}
	current := start
	for _, r := range Ordered(snap) {
		if r.AppearanceTime != current {
			current = r.AppearanceTime
			if current > start {
				elapsed := time.Duration(current-start) * step
				fmt.Fprintf(&b, "After %s seconds:\n", strconv.FormatFloat(elapsed.Seconds(), 'f', -1, 64))
			}
		}
		fmt.Fprintf(&b, "%s %s %s\n", r.From, r.Relation, r.To)
	}
	b.WriteString("The scene ends\n")
	return b.String()
}
