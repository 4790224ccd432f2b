package store

import (
	"context"
	"math"
	"sort"
)

// ContextParams holds parameters for context assembly.
type ContextParams struct {
	RunID  string
	Query  string
	Budget int // max tokens in output (rough proxy: 1 token ≈ 4 chars)
}

// ContextSentence is a scored sentence for context output.
type ContextSentence struct {
	Seq            int     `json:"seq"`
	AppearanceTime int     `json:"appearance_time"`
	Text           string  `json:"text"`
	Score          float64 `json:"score"`
}

// ContextResult is the assembled context response.
type ContextResult struct {
	RunID     string            `json:"run_id"`
	Budget    int               `json:"budget"`
	Used      int               `json:"used"`
	Dropped   int               `json:"dropped"`
	Sentences []ContextSentence `json:"sentences"`
}

// Context picks the most salient sentences of a run that fit the token
// budget and returns them in narrative order. Long-lived and recent
// relations rank first.
func (s *SQLiteStore) Context(ctx context.Context, p ContextParams) (*ContextResult, error) {
	run, err := s.Get(ctx, p.RunID)
	if err != nil {
		return nil, err
	}

	budget := p.Budget
	if budget <= 0 {
		budget = 4000
	}
	charBudget := budget * 4

	results, err := s.Search(ctx, SearchParams{RunID: run.ID, Query: p.Query, Limit: -1})
	if err != nil {
		return nil, err
	}

	out := &ContextResult{RunID: run.ID, Budget: budget, Sentences: []ContextSentence{}}
	if len(results) == 0 {
		return out, nil
	}

	first, last := results[0].AppearanceTime, results[0].LastPresence
	for _, r := range results {
		first = min(first, r.AppearanceTime)
		last = max(last, r.LastPresence)
	}
	span := float64(last-first) + 1

	candidates := make([]ContextSentence, 0, len(results))
	for _, r := range results {
		// Duration: share of the run the relation held for.
		duration := float64(r.LastPresence-r.AppearanceTime+1) / span
		// Recency: how close to the end of the run the relation was last seen.
		recency := float64(r.LastPresence-first+1) / span

		score := 0.4 + duration*0.3 + recency*0.3
		candidates = append(candidates, ContextSentence{
			Seq:            r.Seq,
			AppearanceTime: r.AppearanceTime,
			Text:           r.Text,
			Score:          math.Round(score*100) / 100,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	// Greedy packing into budget
	used := 0
	for _, c := range candidates {
		n := len(c.Text) + 1
		if used+n > charBudget {
			out.Dropped++
			continue
		}
		out.Sentences = append(out.Sentences, c)
		used += n
	}

	sort.Slice(out.Sentences, func(i, j int) bool {
		return out.Sentences[i].Seq < out.Sentences[j].Seq
	})
	out.Used = used / 4

	return out, nil
}
