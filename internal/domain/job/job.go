// Package job describes one ingest job over a single data source.
package job

import (
	"fmt"

	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/policy"
)

// Case identifies the case a job belongs to.
type Case struct {
	UUID        string
	DisplayName string
}

// Flags are the per-job feature switches.
type Flags struct {
	FlagNotable         bool
	FlagPrevSeen        bool
	FlagUniqueArtifacts bool
	SaveInstances       bool
}

// Checks returns the classification checks enabled by f.
func (f Flags) Checks() []policy.Check {
	var checks []policy.Check
	if f.FlagNotable {
		checks = append(checks, policy.CheckNotable)
	}
	if f.FlagPrevSeen {
		checks = append(checks, policy.CheckPreviouslySeen)
	}
	if f.FlagUniqueArtifacts {
		checks = append(checks, policy.CheckUnique)
	}
	return checks
}

// Job is the per-job context shared by all workers (immutable value object).
type Job struct {
	id              int64
	dataSourceObjID int64
	dataSourceName  string
	deviceID        string
	kase            Case
	multiUser       bool
	flags           Flags
}

// Params holds the fields of a new Job.
type Params struct {
	ID              int64
	DataSourceObjID int64
	DataSourceName  string
	DeviceID        string
	Case            Case
	MultiUser       bool
	Flags           Flags
}

// New validates and creates a Job.
func New(p Params) (Job, error) {
	if p.ID <= 0 {
		return Job{}, fmt.Errorf("job id must be positive: %w", domain.ErrInvalidInput)
	}
	if p.DataSourceObjID <= 0 {
		return Job{}, fmt.Errorf("data source object id must be positive: %w", domain.ErrInvalidInput)
	}
	if p.Case.UUID == "" {
		return Job{}, fmt.Errorf("case uuid is required: %w", domain.ErrInvalidInput)
	}
	c := p.Case
	if c.DisplayName == "" {
		c.DisplayName = c.UUID
	}
	return Job{
		id:              p.ID,
		dataSourceObjID: p.DataSourceObjID,
		dataSourceName:  p.DataSourceName,
		deviceID:        p.DeviceID,
		kase:            c,
		multiUser:       p.MultiUser,
		flags:           p.Flags,
	}, nil
}

// ID returns the ingest job id.
func (j Job) ID() int64 { return j.id }

// DataSourceObjID returns the case database object id of the data source.
func (j Job) DataSourceObjID() int64 { return j.dataSourceObjID }

// DataSourceName returns the data source display name.
func (j Job) DataSourceName() string { return j.dataSourceName }

// DeviceID returns the data source device id.
func (j Job) DeviceID() string { return j.deviceID }

// Case returns the owning case.
func (j Job) Case() Case { return j.kase }

// MultiUser reports whether the case is a multi-user case.
func (j Job) MultiUser() bool { return j.multiUser }

// Flags returns the feature switches.
func (j Job) Flags() Flags { return j.flags }
