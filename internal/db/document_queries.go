package db

import (
	"context"
	"fmt"
	"time"
)

// InsertRawDocumentParams carries one ingested document for archival.
type InsertRawDocumentParams struct {
	RunID        int64
	DocumentID   string
	SourceType   string
	Organization string
	Title        string
	BodyText     string
	PublishedAt  time.Time
	OriginURL    *string
}

// InsertRawDocument archives one ingested document. Re-submitting a document
// id already on file is a no-op.
func (p *Pool) InsertRawDocument(ctx context.Context, params InsertRawDocumentParams) (bool, error) {
	const q = `
INSERT INTO intel.raw_documents (
	run_id, document_id, source_type, organization, title, body_text, published_at, origin_url
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (document_id) DO NOTHING
`

	tag, err := p.Exec(ctx, q,
		params.RunID,
		params.DocumentID,
		params.SourceType,
		params.Organization,
		params.Title,
		params.BodyText,
		params.PublishedAt.UTC(),
		params.OriginURL,
	)
	if err != nil {
		return false, fmt.Errorf("insert raw document id=%s: %w", params.DocumentID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// RawDocumentRow is one archived document read back for corpus building.
type RawDocumentRow struct {
	DocumentID   string
	SourceType   string
	Organization string
	Title        string
	BodyText     string
	PublishedAt  time.Time
	OriginURL    *string
}

// RecentDocuments lists archived documents for one organization published at
// or after since, oldest first.
func (p *Pool) RecentDocuments(ctx context.Context, organization string, since time.Time) ([]RawDocumentRow, error) {
	const q = `
SELECT
	d.document_id,
	d.source_type,
	d.organization,
	d.title,
	d.body_text,
	d.published_at,
	d.origin_url
FROM intel.raw_documents d
WHERE d.organization = $1
  AND d.published_at >= $2
ORDER BY d.published_at, d.raw_document_id
`

	rows, err := p.Query(ctx, q, organization, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query recent documents org=%s: %w", organization, err)
	}
	defer rows.Close()

	items := make([]RawDocumentRow, 0, 16)
	for rows.Next() {
		var row RawDocumentRow
		if err := rows.Scan(
			&row.DocumentID,
			&row.SourceType,
			&row.Organization,
			&row.Title,
			&row.BodyText,
			&row.PublishedAt,
			&row.OriginURL,
		); err != nil {
			return nil, fmt.Errorf("scan raw document row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw document rows: %w", err)
	}

	return items, nil
}
