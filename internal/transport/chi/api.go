package chi

import (
	"github.com/kailas-cloud/crossref/internal/domain/occurrence"
)

// ErrorCode is the machine-readable error code of an ErrorResponse.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeNormalization    ErrorCode = "normalization_failed"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeNotFound         ErrorCode = "not_found"
	CodeWorkerNotFound   ErrorCode = "worker_not_found"
	CodeJobNotActive     ErrorCode = "job_not_active"
	CodeNotConfigured    ErrorCode = "not_configured"
	CodePlatformMismatch ErrorCode = "platform_mismatch"
	CodeStartupFailed    ErrorCode = "startup_failed"
	CodeStoreUnavailable ErrorCode = "store_unavailable"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// FlagsDTO carries the per-job feature switches.
type FlagsDTO struct {
	FlagNotable         bool `json:"flag_notable"`
	FlagPrevSeen        bool `json:"flag_prev_seen"`
	FlagUniqueArtifacts bool `json:"flag_unique_artifacts"`
	SaveInstances       bool `json:"save_instances"`
}

// StartWorkerRequest is the body of POST /v1/jobs/{jobID}/workers.
type StartWorkerRequest struct {
	DataSourceObjID int64    `json:"data_source_id"`
	DataSourceName  string   `json:"data_source_name,omitempty"`
	DeviceID        string   `json:"device_id,omitempty"`
	CaseUUID        string   `json:"case_uuid"`
	CaseName        string   `json:"case_name,omitempty"`
	MultiUser       bool     `json:"multi_user,omitempty"`
	Flags           FlagsDTO `json:"flags"`
}

// WorkerResponse identifies a started worker.
type WorkerResponse struct {
	WorkerID string `json:"worker_id"`
	JobID    int64  `json:"job_id"`
}

// ItemRequest is the body of POST /v1/workers/{workerID}/items.
type ItemRequest struct {
	ObjectID     int64             `json:"object_id"`
	Kind         string            `json:"kind"`
	Name         string            `json:"name,omitempty"`
	ParentPath   string            `json:"parent_path,omitempty"`
	FileType     string            `json:"file_type,omitempty"`
	Allocated    bool              `json:"allocated,omitempty"`
	KnownStatus  string            `json:"known_status,omitempty"`
	MD5          string            `json:"md5,omitempty"`
	ArtifactType string            `json:"artifact_type,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`
}

// ShutdownResponse reports what the worker's shutdown did.
type ShutdownResponse struct {
	Last          bool     `json:"last"`
	Flushed       int      `json:"flushed"`
	FlushError    string   `json:"flush_error,omitempty"`
	HashesUpdated []string `json:"hashes_updated,omitempty"`
	HashSyncError string   `json:"hash_sync_error,omitempty"`
}

// OccurrenceDTO is one prior sighting of a value.
type OccurrenceDTO struct {
	CaseUUID    string `json:"case_uuid"`
	CaseName    string `json:"case_name"`
	KnownStatus string `json:"known_status"`
}

// ClassifyRequest is the body of POST /v1/classify.
type ClassifyRequest struct {
	Check       string          `json:"check"`
	Type        string          `json:"type"`
	Occurrences []OccurrenceDTO `json:"occurrences"`
}

// ClassifyResponse is the outcome of one check.
type ClassifyResponse struct {
	Kind      string   `json:"kind"`
	Score     string   `json:"score"`
	CaseNames []string `json:"case_names,omitempty"`
}

// OccurrencesResponse lists the occurrences of a value.
type OccurrencesResponse struct {
	Type        string          `json:"type"`
	Value       string          `json:"value"`
	Cases       int             `json:"cases"`
	Occurrences []OccurrenceDTO `json:"occurrences"`
}

// KnownStatusRequest is the body of PUT /v1/known-status.
type KnownStatusRequest struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	CaseUUID string `json:"case_uuid"`
	Status   string `json:"status"`
}

// KnownStatusResponse reports how many instances were tagged.
type KnownStatusResponse struct {
	Updated int `json:"updated"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func occurrencesToDTO(occs []occurrence.Occurrence) []OccurrenceDTO {
	out := make([]OccurrenceDTO, len(occs))
	for i, o := range occs {
		out[i] = OccurrenceDTO{
			CaseUUID:    o.CaseUUID(),
			CaseName:    o.CaseDisplayName(),
			KnownStatus: string(o.KnownStatus()),
		}
	}
	return out
}
