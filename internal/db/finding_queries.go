package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// InsertFindingParams carries everything needed to archive one finding.
type InsertFindingParams struct {
	EventHash          string
	DocumentID         string
	Organization       string
	EventKind          string
	ValueUSD           *float64
	Headline           string
	Detail             string
	ConsultingAngle    string
	SourceURL          *string
	SourceType         string
	ValidationStatus   string
	ConfirmationCount  int
	InternalConfirmed  bool
	ExternalConfirmed  bool
	SecondaryConfirmed bool
	EventDate          time.Time
}

// InsertFinding inserts one finding inside tx. The unique event_hash makes the
// insert idempotent: a conflicting hash leaves the existing row untouched and
// returns its id with inserted=false.
func InsertFinding(ctx context.Context, tx Tx, params InsertFindingParams) (int64, bool, error) {
	const insert = `
INSERT INTO intel.findings (
	event_hash, document_id, organization, event_kind, value_usd,
	headline, detail, consulting_angle, source_url, source_type,
	validation_status, confirmation_count,
	internal_confirmed, external_confirmed, secondary_confirmed, event_date
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (event_hash) DO NOTHING
RETURNING finding_id
`

	var findingID int64
	err := tx.QueryRow(ctx, insert,
		params.EventHash,
		params.DocumentID,
		params.Organization,
		params.EventKind,
		params.ValueUSD,
		params.Headline,
		params.Detail,
		params.ConsultingAngle,
		params.SourceURL,
		params.SourceType,
		params.ValidationStatus,
		params.ConfirmationCount,
		params.InternalConfirmed,
		params.ExternalConfirmed,
		params.SecondaryConfirmed,
		params.EventDate.UTC(),
	).Scan(&findingID)
	if err == nil {
		return findingID, true, nil
	}
	if !IsNoRows(err) {
		return 0, false, fmt.Errorf("insert finding hash=%s: %w", params.EventHash, err)
	}

	const lookup = `SELECT finding_id FROM intel.findings WHERE event_hash = $1`
	if err := tx.QueryRow(ctx, lookup, params.EventHash).Scan(&findingID); err != nil {
		return 0, false, fmt.Errorf("lookup finding hash=%s after conflict: %w", params.EventHash, err)
	}
	return findingID, false, nil
}

// InsertFindingEmbedding stores the canonical summary for finding. The vector
// literal is nil when dedup ran degraded; the summary hash is always kept so
// exact matching still works on later runs.
func InsertFindingEmbedding(ctx context.Context, tx Tx, findingID int64, summaryText, summaryHash string, vectorLiteral *string) error {
	const q = `
INSERT INTO intel.finding_embeddings (finding_id, summary_text, summary_hash, embedding)
VALUES ($1, $2, $3, $4)
ON CONFLICT (finding_id) DO NOTHING
`
	if _, err := tx.Exec(ctx, q, findingID, summaryText, summaryHash, vectorLiteral); err != nil {
		return fmt.Errorf("insert embedding for finding id=%d: %w", findingID, err)
	}
	return nil
}

// InsertValidationLog records the validation outcome for a finding.
func InsertValidationLog(ctx context.Context, tx Tx, findingID, runID int64, status string, confirmationCount int, channels json.RawMessage) error {
	const q = `
INSERT INTO intel.validation_logs (finding_id, run_id, status, confirmation_count, channels)
VALUES ($1, $2, $3, $4, $5)
`
	if _, err := tx.Exec(ctx, q, findingID, runID, status, confirmationCount, channels); err != nil {
		return fmt.Errorf("insert validation log for finding id=%d: %w", findingID, err)
	}
	return nil
}

// FindingRow is one archived finding as read back for queries and the API.
type FindingRow struct {
	FindingID         int64     `json:"finding_id"`
	FindingUUID       string    `json:"finding_uuid"`
	Organization      string    `json:"organization"`
	EventKind         string    `json:"event_kind"`
	ValueUSD          *float64  `json:"value_usd,omitempty"`
	Headline          string    `json:"headline"`
	Detail            string    `json:"detail"`
	ConsultingAngle   string    `json:"consulting_angle"`
	SourceURL         *string   `json:"source_url,omitempty"`
	SourceType        string    `json:"source_type"`
	ValidationStatus  string    `json:"validation_status"`
	ConfirmationCount int       `json:"confirmation_count"`
	EventDate         time.Time `json:"event_date"`
	CreatedAt         time.Time `json:"created_at"`
}

// FindingsByDateRange lists findings whose event date falls in [start, end),
// newest first. The (organization, event_date) index keeps the scan narrow.
func (p *Pool) FindingsByDateRange(ctx context.Context, start, end time.Time) ([]FindingRow, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("start must be before end")
	}

	const q = `
SELECT
	f.finding_id,
	f.finding_uuid::text,
	f.organization,
	f.event_kind,
	f.value_usd,
	f.headline,
	f.detail,
	f.consulting_angle,
	f.source_url,
	f.source_type,
	f.validation_status,
	f.confirmation_count,
	f.event_date,
	f.created_at
FROM intel.findings f
WHERE f.event_date >= $1
  AND f.event_date < $2
ORDER BY f.event_date DESC, f.organization, f.finding_id DESC
`

	rows, err := p.Query(ctx, q, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query findings by date range: %w", err)
	}
	defer rows.Close()

	items := make([]FindingRow, 0, 32)
	for rows.Next() {
		var row FindingRow
		if err := rows.Scan(
			&row.FindingID,
			&row.FindingUUID,
			&row.Organization,
			&row.EventKind,
			&row.ValueUSD,
			&row.Headline,
			&row.Detail,
			&row.ConsultingAngle,
			&row.SourceURL,
			&row.SourceType,
			&row.ValidationStatus,
			&row.ConfirmationCount,
			&row.EventDate,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan finding row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate finding rows: %w", err)
	}

	return items, nil
}

// EmbeddingRow is one archived summary vector for duplicate scans.
type EmbeddingRow struct {
	FindingID   int64
	SummaryText string
	SummaryHash string
	Embedding   *string
}

// SameDayEmbeddings returns the summaries archived for one organization on
// one calendar day. This is the candidate set for a duplicate scan.
func (p *Pool) SameDayEmbeddings(ctx context.Context, organization string, day time.Time) ([]EmbeddingRow, error) {
	const q = `
SELECT
	e.finding_id,
	e.summary_text,
	e.summary_hash,
	e.embedding
FROM intel.finding_embeddings e
JOIN intel.findings f ON f.finding_id = e.finding_id
WHERE f.organization = $1
  AND f.event_date = $2
ORDER BY e.finding_id
`

	rows, err := p.Query(ctx, q, organization, day.UTC().Truncate(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("query same-day embeddings org=%s: %w", organization, err)
	}
	defer rows.Close()

	items := make([]EmbeddingRow, 0, 8)
	for rows.Next() {
		var row EmbeddingRow
		if err := rows.Scan(&row.FindingID, &row.SummaryText, &row.SummaryHash, &row.Embedding); err != nil {
			return nil, fmt.Errorf("scan embedding row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embedding rows: %w", err)
	}

	return items, nil
}

// OrganizationStats is one row of the archive stats summary.
type OrganizationStats struct {
	Organization  string     `json:"organization"`
	FindingCount  int64      `json:"finding_count"`
	DoubleSource  int64      `json:"double_source_count"`
	LatestEventAt *time.Time `json:"latest_event_at,omitempty"`
	TotalValueUSD float64    `json:"total_value_usd"`
}

// StatsByOrganization summarizes the archive per monitored organization.
func (p *Pool) StatsByOrganization(ctx context.Context) ([]OrganizationStats, error) {
	const q = `
SELECT
	f.organization,
	COUNT(*)::BIGINT AS finding_count,
	COUNT(*) FILTER (WHERE f.validation_status = 'double_source')::BIGINT AS double_source_count,
	MAX(f.event_date) AS latest_event_at,
	COALESCE(SUM(f.value_usd), 0) AS total_value_usd
FROM intel.findings f
GROUP BY f.organization
ORDER BY finding_count DESC, f.organization
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query finding stats: %w", err)
	}
	defer rows.Close()

	items := make([]OrganizationStats, 0, 8)
	for rows.Next() {
		var row OrganizationStats
		if err := rows.Scan(
			&row.Organization,
			&row.FindingCount,
			&row.DoubleSource,
			&row.LatestEventAt,
			&row.TotalValueUSD,
		); err != nil {
			return nil, fmt.Errorf("scan stats row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats rows: %w", err)
	}

	return items, nil
}
