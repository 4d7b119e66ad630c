package crossref

import (
	"github.com/kailas-cloud/crossref/internal/domain/inbox"
	"github.com/kailas-cloud/crossref/internal/domain/item"
	ingestuc "github.com/kailas-cloud/crossref/internal/usecase/ingest"
)

// ItemKind is the category of a processed item.
type ItemKind = item.Kind

// Item kinds.
const (
	KindFile     = item.KindFile
	KindArtifact = item.KindArtifact
	KindAccount  = item.KindAccount
)

// FileType is the origin of a file within a data source.
type FileType = item.FileType

// File types recorded in the correlation store. Other file types are
// accepted and ignored.
const (
	FileFS      = item.FileFS
	FileCarved  = item.FileCarved
	FileDerived = item.FileDerived
	FileLocal   = item.FileLocal
	FileLayout  = item.FileLayout
)

// ArtifactType is the kind of data artifact an item carries.
type ArtifactType = item.ArtifactType

// JobSpec identifies the ingest job a worker belongs to.
type JobSpec struct {
	ID              int64
	DataSourceObjID int64
	DataSourceName  string
	DeviceID        string
	CaseUUID        string
	CaseName        string
	MultiUser       bool
	Flags           Flags
}

// Flags are the per-job feature switches.
type Flags struct {
	FlagNotable         bool // report items tagged notable in other cases
	FlagPrevSeen        bool // report devices seen in other cases
	FlagUniqueArtifacts bool // report programs and domains never seen before
	SaveInstances       bool // record this job's attributes in the store
}

// Item is one file, artifact or account handed to a worker.
type Item struct {
	ObjectID     int64
	Kind         ItemKind
	Name         string
	ParentPath   string
	FileType     FileType
	Allocated    bool
	KnownStatus  string // "", "unknown", "known" or "bad"
	MD5          string
	ArtifactType ArtifactType
	Fields       map[string]string
}

// ProcessResult summarizes one Worker.Process call.
type ProcessResult = ingestuc.ProcessResult

// JobSummary reports what a worker's Close did. Only the last worker of a
// job flushes and syncs hashes.
type JobSummary struct {
	Last          bool
	Flushed       int
	FlushErr      error
	HashesUpdated []string
	HashSyncErr   error
}

// InboxMessage is the notification sent for a notable item.
type InboxMessage = inbox.Message

// Occurrence is one prior sighting of a value in a case.
type Occurrence struct {
	CaseUUID    string `json:"case_uuid"`
	CaseName    string `json:"case_name"`
	KnownStatus string `json:"known_status"`
}

// Outcome is one classification that calls for a result.
type Outcome struct {
	Kind      string   `json:"kind"`
	Score     string   `json:"score"`
	CaseNames []string `json:"case_names,omitempty"`
}

// LookupResult holds the occurrences of a value and its classification
// under every check.
type LookupResult struct {
	Type        string       `json:"type"`
	Value       string       `json:"value"`
	Cases       int          `json:"cases"`
	Occurrences []Occurrence `json:"occurrences"`
	Outcomes    []Outcome    `json:"outcomes"`
}
