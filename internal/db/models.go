package db

import (
	"encoding/json"
	"time"
)

// PipelineRun maps intel.pipeline_runs.
type PipelineRun struct {
	RunID              int64      `gorm:"column:run_id;primaryKey;autoIncrement"`
	RunUUID            string     `gorm:"column:run_uuid;type:uuid;not null;unique"`
	StartedAt          time.Time  `gorm:"column:started_at;type:timestamptz;not null;default:now()"`
	FinishedAt         *time.Time `gorm:"column:finished_at;type:timestamptz"`
	Status             string     `gorm:"column:status;type:text;not null;default:running"`
	DocumentsProcessed int        `gorm:"column:documents_processed;type:integer;not null;default:0"`
	DocumentsSkipped   int        `gorm:"column:documents_skipped;type:integer;not null;default:0"`
	DocumentsFailed    int        `gorm:"column:documents_failed;type:integer;not null;default:0"`
	FindingsNew        int        `gorm:"column:findings_new;type:integer;not null;default:0"`
	FindingsDuplicate  int        `gorm:"column:findings_duplicate;type:integer;not null;default:0"`
	ErrorMessage       *string    `gorm:"column:error_message;type:text"`
	CreatedAt          time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (PipelineRun) TableName() string { return "intel.pipeline_runs" }

// RawDocument maps intel.raw_documents: the ingested text as it arrived, kept
// for audit and for re-validation against later runs.
type RawDocument struct {
	RawDocumentID   int64     `gorm:"column:raw_document_id;primaryKey;autoIncrement"`
	RawDocumentUUID string    `gorm:"column:raw_document_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	RunID           int64     `gorm:"column:run_id;type:bigint;not null"`
	DocumentID      string    `gorm:"column:document_id;type:text;not null;unique"`
	SourceType      string    `gorm:"column:source_type;type:text;not null"`
	Organization    string    `gorm:"column:organization;type:text;not null"`
	Title           string    `gorm:"column:title;type:text;not null"`
	BodyText        string    `gorm:"column:body_text;type:text;not null;default:''"`
	PublishedAt     time.Time `gorm:"column:published_at;type:timestamptz;not null"`
	OriginURL       *string   `gorm:"column:origin_url;type:text"`
	CreatedAt       time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (RawDocument) TableName() string { return "intel.raw_documents" }

// Finding maps intel.findings: one validated, deduplicated business event.
// event_hash is the canonical identity; the unique constraint makes inserts
// idempotent across re-runs.
type Finding struct {
	FindingID          int64     `gorm:"column:finding_id;primaryKey;autoIncrement"`
	FindingUUID        string    `gorm:"column:finding_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	EventHash          string    `gorm:"column:event_hash;type:text;not null;unique"`
	DocumentID         string    `gorm:"column:document_id;type:text;not null"`
	Organization       string    `gorm:"column:organization;type:text;not null"`
	EventKind          string    `gorm:"column:event_kind;type:text;not null"`
	ValueUSD           *float64  `gorm:"column:value_usd;type:double precision"`
	Headline           string    `gorm:"column:headline;type:text;not null"`
	Detail             string    `gorm:"column:detail;type:text;not null;default:''"`
	ConsultingAngle    string    `gorm:"column:consulting_angle;type:text;not null;default:''"`
	SourceURL          *string   `gorm:"column:source_url;type:text"`
	SourceType         string    `gorm:"column:source_type;type:text;not null"`
	ValidationStatus   string    `gorm:"column:validation_status;type:text;not null;default:unvalidated"`
	ConfirmationCount  int       `gorm:"column:confirmation_count;type:integer;not null;default:0"`
	InternalConfirmed  bool      `gorm:"column:internal_confirmed;type:boolean;not null;default:false"`
	ExternalConfirmed  bool      `gorm:"column:external_confirmed;type:boolean;not null;default:false"`
	SecondaryConfirmed bool      `gorm:"column:secondary_confirmed;type:boolean;not null;default:false"`
	EventDate          time.Time `gorm:"column:event_date;type:date;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt          time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Finding) TableName() string { return "intel.findings" }

// FindingEmbedding maps intel.finding_embeddings: the canonical summary and
// its vector, used for same-day duplicate scans on later runs.
type FindingEmbedding struct {
	FindingEmbeddingID   int64     `gorm:"column:finding_embedding_id;primaryKey;autoIncrement"`
	FindingEmbeddingUUID string    `gorm:"column:finding_embedding_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	FindingID            int64     `gorm:"column:finding_id;type:bigint;not null;unique"`
	SummaryText          string    `gorm:"column:summary_text;type:text;not null"`
	SummaryHash          string    `gorm:"column:summary_hash;type:text;not null"`
	Embedding            *string   `gorm:"column:embedding;type:text"`
	EmbeddedAt           time.Time `gorm:"column:embedded_at;type:timestamptz;not null;default:now()"`
}

func (FindingEmbedding) TableName() string { return "intel.finding_embeddings" }

// ValidationLog maps intel.validation_logs: the cross-source check outcome
// recorded at the time a finding was archived.
type ValidationLog struct {
	ValidationLogID   int64           `gorm:"column:validation_log_id;primaryKey;autoIncrement"`
	ValidationLogUUID string          `gorm:"column:validation_log_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	FindingID         int64           `gorm:"column:finding_id;type:bigint;not null"`
	RunID             int64           `gorm:"column:run_id;type:bigint;not null"`
	Status            string          `gorm:"column:status;type:text;not null"`
	ConfirmationCount int             `gorm:"column:confirmation_count;type:integer;not null"`
	Channels          json.RawMessage `gorm:"column:channels;type:jsonb"`
	CreatedAt         time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (ValidationLog) TableName() string { return "intel.validation_logs" }

func autoMigrateModels() []any {
	return []any{
		&PipelineRun{},
		&RawDocument{},
		&Finding{},
		&FindingEmbedding{},
		&ValidationLog{},
	}
}
