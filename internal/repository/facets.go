package repository

import (
	"context"
	"fmt"

	"github.com/notedex/notedex/internal/domain"
	"github.com/notedex/notedex/internal/service"
)

// TagCounts groups the filtered chunk population by tag membership,
// most frequent first. Reads the live tables, so the result always
// reflects the last completed ingestion.
func (r *IndexRepository) TagCounts(ctx context.Context, filters service.FilterSpec, limit int) (map[string]int, error) {
	if limit <= 0 {
		limit = 50
	}

	where, args := chunkFilterSQL(filters, nil)
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT ct.tag, COUNT(*)
		FROM chunk_tags ct
		JOIN chunks c ON c.id = ct.chunk_id
		JOIN files f ON f.path = c.path
		WHERE %s
		GROUP BY ct.tag
		ORDER BY COUNT(*) DESC, ct.tag
		LIMIT $%d`, where, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStoreError("tag counts", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var tag string
		var count int
		if err := rows.Scan(&tag, &count); err != nil {
			return nil, domain.NewStoreError("tag counts", err)
		}
		counts[tag] = count
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("tag counts", err)
	}
	return counts, nil
}

// TimeHistogram buckets the filtered chunk population by month of the
// selected date field, most recent bucket first.
func (r *IndexRepository) TimeHistogram(ctx context.Context, filters service.FilterSpec, limit int) ([]service.TimeBucket, error) {
	if limit <= 0 {
		limit = 24
	}

	where, args := chunkFilterSQL(filters, nil)
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT to_char(date_trunc('month', %s), 'YYYY-MM') AS bucket, COUNT(*)
		FROM chunks c
		JOIN files f ON f.path = c.path
		WHERE %s
		GROUP BY bucket
		ORDER BY bucket DESC
		LIMIT $%d`, dateExprFor(filters.DateField), where, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStoreError("time histogram", err)
	}
	defer rows.Close()

	var buckets []service.TimeBucket
	for rows.Next() {
		var b service.TimeBucket
		if err := rows.Scan(&b.Bucket, &b.Count); err != nil {
			return nil, domain.NewStoreError("time histogram", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("time histogram", err)
	}
	return buckets, nil
}
