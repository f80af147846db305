package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ridge.run/sentinel/internal/db"
	"ridge.run/sentinel/internal/dedup"
	"ridge.run/sentinel/internal/embedding"
	"ridge.run/sentinel/internal/intel"
)

// Service persists findings, raw documents, and the run ledger. Writes for the
// same organization and day are serialized through a striped lock so two
// workers cannot race a duplicate check against an insert.
type Service struct {
	pool   *db.Pool
	logger zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(pool *db.Pool, logger zerolog.Logger) *Service {
	return &Service{
		pool:   pool,
		logger: logger,
		locks:  map[string]*sync.Mutex{},
	}
}

// SaveResult reports what archiving one finding did.
type SaveResult struct {
	FindingID int64
	Inserted  bool
}

// SaveFinding archives one validated event together with its summary
// embedding and validation log in a single transaction. The event hash makes
// the whole operation idempotent: re-archiving an identical event returns the
// existing finding id with Inserted=false.
func (s *Service) SaveFinding(ctx context.Context, runID int64, record intel.ValidationRecord, decision dedup.Decision) (SaveResult, error) {
	event := record.Event

	unlock := s.lockBucket(event.Organization, event.OccurredAt)
	defer unlock()

	tx, err := s.pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return SaveResult{}, fmt.Errorf("begin save-finding tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var sourceURL *string
	if event.SourceURL != "" {
		sourceURL = &event.SourceURL
	}

	findingID, inserted, err := db.InsertFinding(ctx, tx, db.InsertFindingParams{
		EventHash:          decision.Hash,
		DocumentID:         event.DocumentID,
		Organization:       event.Organization,
		EventKind:          string(event.Kind),
		ValueUSD:           event.ValueUSD,
		Headline:           event.Headline,
		Detail:             event.Detail,
		ConsultingAngle:    event.ConsultingAngle,
		SourceURL:          sourceURL,
		SourceType:         string(event.SourceType),
		ValidationStatus:   string(record.Status),
		ConfirmationCount:  record.ConfirmationCount,
		InternalConfirmed:  record.InternalConfirmed,
		ExternalConfirmed:  record.ExternalConfirmed,
		SecondaryConfirmed: record.SecondaryConfirmed,
		EventDate:          event.OccurredAt,
	})
	if err != nil {
		return SaveResult{}, err
	}

	if inserted {
		var vectorLiteral *string
		if len(decision.Vector) > 0 {
			literal, err := embedding.VectorLiteral(decision.Vector)
			if err != nil {
				return SaveResult{}, fmt.Errorf("render vector for finding id=%d: %w", findingID, err)
			}
			vectorLiteral = &literal
		}
		if err := db.InsertFindingEmbedding(ctx, tx, findingID, decision.Summary, decision.Hash, vectorLiteral); err != nil {
			return SaveResult{}, err
		}

		channels, err := json.Marshal(map[string]bool{
			"internal":  record.InternalConfirmed,
			"external":  record.ExternalConfirmed,
			"secondary": record.SecondaryConfirmed,
		})
		if err != nil {
			return SaveResult{}, fmt.Errorf("marshal validation channels: %w", err)
		}
		if err := db.InsertValidationLog(ctx, tx, findingID, runID, string(record.Status), record.ConfirmationCount, channels); err != nil {
			return SaveResult{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return SaveResult{}, fmt.Errorf("commit save-finding tx: %w", err)
	}

	if !inserted {
		s.logger.Debug().
			Int64("finding_id", findingID).
			Str("organization", event.Organization).
			Msg("finding already archived, insert skipped")
	}
	return SaveResult{FindingID: findingID, Inserted: inserted}, nil
}

// SaveRawDocuments archives the run's input documents before analysis starts,
// so a crashed run leaves an auditable trail. Returns how many were new.
func (s *Service) SaveRawDocuments(ctx context.Context, runID int64, docs []intel.Document) (int, error) {
	saved := 0
	for _, doc := range docs {
		var originURL *string
		if doc.OriginURL != "" {
			originURL = &doc.OriginURL
		}
		inserted, err := s.pool.InsertRawDocument(ctx, db.InsertRawDocumentParams{
			RunID:        runID,
			DocumentID:   doc.ID,
			SourceType:   string(doc.SourceType),
			Organization: doc.Organization,
			Title:        doc.Title,
			BodyText:     doc.BodyText,
			PublishedAt:  doc.PublishedAt,
			OriginURL:    originURL,
		})
		if err != nil {
			return saved, err
		}
		if inserted {
			saved++
		}
	}
	return saved, nil
}

// LoadDedupEntries reads the archived same-day summaries for one organization
// into dedup index entries. Rows whose stored vector cannot be parsed fall
// back to hash-only matching instead of failing the load.
func (s *Service) LoadDedupEntries(ctx context.Context, organization string, day time.Time) ([]dedup.Entry, error) {
	rows, err := s.pool.SameDayEmbeddings(ctx, organization, day)
	if err != nil {
		return nil, err
	}

	entries := make([]dedup.Entry, 0, len(rows))
	for _, row := range rows {
		entry := dedup.Entry{FindingID: row.FindingID, Hash: row.SummaryHash}
		if row.Embedding != nil {
			vector, err := embedding.ParseVectorLiteral(*row.Embedding)
			if err != nil {
				s.logger.Warn().
					Err(err).
					Int64("finding_id", row.FindingID).
					Msg("stored embedding unreadable, entry degraded to hash matching")
			} else {
				entry.Vector = vector
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// FindingsByDateRange exposes the archive's date-window query.
func (s *Service) FindingsByDateRange(ctx context.Context, start, end time.Time) ([]db.FindingRow, error) {
	return s.pool.FindingsByDateRange(ctx, start, end)
}

// RecentDocuments exposes archived documents for corpus building.
func (s *Service) RecentDocuments(ctx context.Context, organization string, since time.Time) ([]intel.Document, error) {
	rows, err := s.pool.RecentDocuments(ctx, organization, since)
	if err != nil {
		return nil, err
	}
	docs := make([]intel.Document, 0, len(rows))
	for _, row := range rows {
		doc := intel.Document{
			ID:           row.DocumentID,
			SourceType:   intel.SourceType(row.SourceType),
			Organization: row.Organization,
			Title:        row.Title,
			BodyText:     row.BodyText,
			PublishedAt:  row.PublishedAt,
		}
		if row.OriginURL != nil {
			doc.OriginURL = *row.OriginURL
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Stats exposes the per-organization archive summary.
func (s *Service) Stats(ctx context.Context) ([]db.OrganizationStats, error) {
	return s.pool.StatsByOrganization(ctx)
}

// StartRun opens a ledger entry for a pipeline run.
func (s *Service) StartRun(ctx context.Context, runUUID string) (int64, error) {
	return s.pool.StartRun(ctx, runUUID)
}

// FinishRun closes the ledger entry.
func (s *Service) FinishRun(ctx context.Context, params db.FinishRunParams) error {
	return s.pool.FinishRun(ctx, params)
}

func (s *Service) lockBucket(organization string, day time.Time) func() {
	key := organization + "|" + day.UTC().Format("2006-01-02")

	s.mu.Lock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
