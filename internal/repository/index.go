package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notedex/notedex/internal/domain"
	"github.com/notedex/notedex/internal/service"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// IndexRepository is the persistent inverted index over Postgres. Writes
// are one transaction per file path; readers run plain pool queries and
// never see a partially replaced chunk set.
type IndexRepository struct {
	pool *pgxpool.Pool
}

func NewIndexRepository(pool *pgxpool.Pool) *IndexRepository {
	return &IndexRepository{pool: pool}
}

// Compile-time check that the repository fulfils the engine's store contract.
var _ service.IndexStore = (*IndexRepository)(nil)

// UpsertFile replaces all prior chunks of file.Path with the given set and
// rebuilds term postings inside a single transaction. The corpus aggregates
// are adjusted by delta in the same transaction, so posting consistency is
// restored atomically or not at all.
func (r *IndexRepository) UpsertFile(ctx context.Context, file *domain.File, chunks []domain.Chunk) error {
	if err := domain.ValidateFile(file); err != nil {
		return domain.NewStoreError("upsert", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.NewStoreError("upsert", err)
	}
	defer tx.Rollback(ctx)

	removedCount, removedTokens, err := pathChunkStats(ctx, tx, file.Path)
	if err != nil {
		return domain.NewStoreError("upsert", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE path = $1`, file.Path); err != nil {
		return domain.NewStoreError("upsert", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO files (path, etag, size, title, tags, created_at, modified_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (path) DO UPDATE SET
		     etag = EXCLUDED.etag,
		     size = EXCLUDED.size,
		     title = EXCLUDED.title,
		     tags = EXCLUDED.tags,
		     created_at = EXCLUDED.created_at,
		     modified_at = EXCLUDED.modified_at`,
		file.Path, file.ETag, file.Size, file.Title, file.Tags, file.CreatedAt, file.ModifiedAt,
	)
	if err != nil {
		return domain.NewStoreError("upsert", err)
	}

	addedTokens := int64(0)
	for i := range chunks {
		c := &chunks[i]
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		addedTokens += int64(c.TokenCount)

		_, err := tx.Exec(ctx,
			`INSERT INTO chunks (id, path, heading, start_line, end_line, body, token_count)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, file.Path, c.Heading, c.StartLine, c.EndLine, c.Text, c.TokenCount,
		)
		if err != nil {
			return domain.NewStoreError("upsert", err)
		}

		for _, tag := range file.Tags {
			_, err := tx.Exec(ctx,
				`INSERT INTO chunk_tags (chunk_id, tag) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				c.ID, tag,
			)
			if err != nil {
				return domain.NewStoreError("upsert", err)
			}
		}

		for term, freq := range c.TermFreqs {
			_, err := tx.Exec(ctx,
				`INSERT INTO postings (term, chunk_id, freq) VALUES ($1, $2, $3)`,
				term, c.ID, freq,
			)
			if err != nil {
				return domain.NewStoreError("upsert", err)
			}
		}
	}

	err = adjustStats(ctx, tx, int64(len(chunks))-removedCount, addedTokens-removedTokens)
	if err != nil {
		return domain.NewStoreError("upsert", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.NewStoreError("upsert", err)
	}
	return nil
}

// DeleteFile removes the file and everything derived from it. Unknown
// paths are a no-op, not an error.
func (r *IndexRepository) DeleteFile(ctx context.Context, path string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.NewStoreError("delete", err)
	}
	defer tx.Rollback(ctx)

	removedCount, removedTokens, err := pathChunkStats(ctx, tx, path)
	if err != nil {
		return domain.NewStoreError("delete", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM files WHERE path = $1`, path); err != nil {
		return domain.NewStoreError("delete", err)
	}

	if err := adjustStats(ctx, tx, -removedCount, -removedTokens); err != nil {
		return domain.NewStoreError("delete", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.NewStoreError("delete", err)
	}
	return nil
}

// GetEtag returns the stored change token for a path; ok reports whether
// the path has been indexed before.
func (r *IndexRepository) GetEtag(ctx context.Context, path string) (string, bool, error) {
	var etag string
	err := r.pool.QueryRow(ctx, `SELECT etag FROM files WHERE path = $1`, path).Scan(&etag)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, domain.NewStoreError("get etag", err)
	}
	return etag, true, nil
}

// ListFilePaths returns every indexed path, used by the synchronizer to
// detect paths that vanished from the source.
func (r *IndexRepository) ListFilePaths(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT path FROM files ORDER BY path`)
	if err != nil {
		return nil, domain.NewStoreError("list paths", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, domain.NewStoreError("list paths", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("list paths", err)
	}
	return paths, nil
}

// Stats returns the corpus-wide aggregates maintained alongside postings.
func (r *IndexRepository) Stats(ctx context.Context) (domain.CorpusStats, error) {
	var stats domain.CorpusStats
	err := r.pool.QueryRow(ctx,
		`SELECT chunk_count, total_tokens FROM corpus_stats`,
	).Scan(&stats.ChunkCount, &stats.TotalTokens)
	if err != nil {
		return domain.CorpusStats{}, domain.NewStoreError("stats", err)
	}
	return stats, nil
}

// TermDocFreqs returns the corpus-wide document frequency of each term.
// Terms without postings are absent from the result.
func (r *IndexRepository) TermDocFreqs(ctx context.Context, terms []string) (map[string]int, error) {
	freqs := make(map[string]int, len(terms))
	if len(terms) == 0 {
		return freqs, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT term, COUNT(*) FROM postings WHERE term = ANY($1) GROUP BY term`,
		terms,
	)
	if err != nil {
		return nil, domain.NewStoreError("term freqs", err)
	}
	defer rows.Close()

	for rows.Next() {
		var term string
		var count int
		if err := rows.Scan(&term, &count); err != nil {
			return nil, domain.NewStoreError("term freqs", err)
		}
		freqs[term] = count
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("term freqs", err)
	}
	return freqs, nil
}

func pathChunkStats(ctx context.Context, db dbtx, path string) (count, tokens int64, err error) {
	err = db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(token_count), 0) FROM chunks WHERE path = $1`,
		path,
	).Scan(&count, &tokens)
	return count, tokens, err
}

func adjustStats(ctx context.Context, db dbtx, chunkDelta, tokenDelta int64) error {
	if chunkDelta == 0 && tokenDelta == 0 {
		return nil
	}
	_, err := db.Exec(ctx,
		`UPDATE corpus_stats
		 SET chunk_count = chunk_count + $1, total_tokens = total_tokens + $2`,
		chunkDelta, tokenDelta,
	)
	return err
}
