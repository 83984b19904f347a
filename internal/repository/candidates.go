package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/notedex/notedex/internal/domain"
	"github.com/notedex/notedex/internal/service"
)

// candidateCap bounds how many distinct chunks a single retrieval may
// return before scoring.
const candidateCap = 2000

// dateExprFor picks the SQL expression for the requested date field.
// "auto" prefers the explicit front-matter date and falls back to the
// source modification time.
func dateExprFor(field string) string {
	switch field {
	case service.DateFieldCreated:
		return "f.created_at"
	case service.DateFieldModified:
		return "f.modified_at"
	default:
		return "COALESCE(f.created_at, f.modified_at)"
	}
}

// chunkFilterSQL renders FilterSpec into WHERE conditions over the
// chunks/files join, appending bind values to args.
func chunkFilterSQL(f service.FilterSpec, args []any) (string, []any) {
	where := []string{"TRUE"}
	dateExpr := dateExprFor(f.DateField)

	if f.Since != nil {
		args = append(args, *f.Since)
		where = append(where, fmt.Sprintf("%s >= $%d", dateExpr, len(args)))
	}
	if f.Until != nil {
		args = append(args, *f.Until)
		where = append(where, fmt.Sprintf("%s <= $%d", dateExpr, len(args)))
	}
	if f.PathPrefix != "" {
		args = append(args, f.PathPrefix)
		where = append(where, fmt.Sprintf("c.path LIKE $%d || '%%'", len(args)))
	}
	if len(f.Tags) > 0 {
		args = append(args, f.Tags)
		if f.RequireAll {
			where = append(where, fmt.Sprintf(
				`c.id IN (
					SELECT ct.chunk_id FROM chunk_tags ct
					WHERE ct.tag = ANY($%d)
					GROUP BY ct.chunk_id
					HAVING COUNT(DISTINCT ct.tag) = %d
				)`, len(args), len(f.Tags)))
		} else {
			where = append(where, fmt.Sprintf(
				`c.id IN (SELECT ct.chunk_id FROM chunk_tags ct WHERE ct.tag = ANY($%d))`,
				len(args)))
		}
	}

	return strings.Join(where, " AND "), args
}

// CandidatesForTerms returns the union of filtered chunks whose postings
// intersect any of the given terms, each carrying its per-term frequency.
func (r *IndexRepository) CandidatesForTerms(ctx context.Context, terms []string, filters service.FilterSpec) ([]*service.Candidate, error) {
	if len(terms) == 0 {
		return []*service.Candidate{}, nil
	}

	args := []any{terms}
	where, args := chunkFilterSQL(filters, args)

	query := fmt.Sprintf(`
		SELECT c.id, c.path, c.heading, c.start_line, c.end_line, c.body, c.token_count,
		       f.created_at, f.modified_at, p.term, p.freq
		FROM chunks c
		JOIN files f ON f.path = c.path
		JOIN postings p ON p.chunk_id = c.id
		WHERE p.term = ANY($1) AND %s
		ORDER BY c.path, c.start_line`, where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStoreError("candidates", err)
	}
	defer rows.Close()

	byID := make(map[string]*service.Candidate)
	ordered := make([]*service.Candidate, 0, 64)
	for rows.Next() {
		var (
			cand      service.Candidate
			createdAt *time.Time
			term      string
			freq      int
		)
		err := rows.Scan(
			&cand.ChunkID, &cand.Path, &cand.Heading, &cand.StartLine, &cand.EndLine,
			&cand.Text, &cand.TokenCount, &createdAt, &cand.ModifiedAt, &term, &freq,
		)
		if err != nil {
			return nil, domain.NewStoreError("candidates", err)
		}

		existing, ok := byID[cand.ChunkID]
		if !ok {
			if len(ordered) >= candidateCap {
				continue
			}
			cand.CreatedAt = createdAt
			cand.TermFreqs = make(map[string]int, len(terms))
			existing = &cand
			byID[cand.ChunkID] = existing
			ordered = append(ordered, existing)
		}
		existing.TermFreqs[term] = freq
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("candidates", err)
	}
	return ordered, nil
}

// RecentChunks lists filtered chunks newest first. Used as the fallback
// listing when a query produces no index tokens.
func (r *IndexRepository) RecentChunks(ctx context.Context, filters service.FilterSpec, limit int) ([]*service.Candidate, error) {
	if limit <= 0 || limit > candidateCap {
		limit = candidateCap
	}

	where, args := chunkFilterSQL(filters, nil)
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT c.id, c.path, c.heading, c.start_line, c.end_line, c.body, c.token_count,
		       f.created_at, f.modified_at
		FROM chunks c
		JOIN files f ON f.path = c.path
		WHERE %s
		ORDER BY %s DESC NULLS LAST, c.path, c.start_line
		LIMIT $%d`, where, dateExprFor(filters.DateField), len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStoreError("recent chunks", err)
	}
	defer rows.Close()

	out := make([]*service.Candidate, 0, limit)
	for rows.Next() {
		var cand service.Candidate
		var createdAt *time.Time
		err := rows.Scan(
			&cand.ChunkID, &cand.Path, &cand.Heading, &cand.StartLine, &cand.EndLine,
			&cand.Text, &cand.TokenCount, &createdAt, &cand.ModifiedAt,
		)
		if err != nil {
			return nil, domain.NewStoreError("recent chunks", err)
		}
		cand.CreatedAt = createdAt
		cand.TermFreqs = map[string]int{}
		out = append(out, &cand)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("recent chunks", err)
	}
	return out, nil
}
