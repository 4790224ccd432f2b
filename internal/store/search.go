package store

import (
	"context"
	"fmt"
	"strings"
)

// SearchParams holds parameters for searching narrative sentences.
type SearchParams struct {
	RunID string
	Query string
	Limit int
}

// SearchResult is one matching sentence.
type SearchResult struct {
	RunID          string `json:"run_id"`
	Seq            int    `json:"seq"`
	AppearanceTime int    `json:"appearance_time"`
	LastPresence   int    `json:"last_presence"`
	Text           string `json:"text"`
}

// Search finds sentences of live runs containing the query substring,
// in narrative order.
func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]SearchResult, error) {
	limit := p.Limit
	if limit == 0 {
		limit = 20
	}

	where := []string{"r.deleted_at IS NULL"}
	args := []interface{}{}

	if p.RunID != "" {
		where = append(where, "s.run_id = ?")
		args = append(args, p.RunID)
	}
	if p.Query != "" {
		where = append(where, `s.text LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(p.Query)+"%")
	}

	query := fmt.Sprintf(`
		SELECT s.run_id, s.seq, s.appearance_time, s.last_presence, s.text
		FROM sentences s
		INNER JOIN runs r ON r.id = s.run_id
		WHERE %s
		ORDER BY s.run_id DESC, s.seq
		LIMIT ?`, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.RunID, &r.Seq, &r.AppearanceTime, &r.LastPresence, &r.Text); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes q match literally inside a LIKE pattern.
func escapeLike(q string) string {
	return likeEscaper.Replace(q)
}
