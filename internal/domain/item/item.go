// Package item describes the files, artifacts and accounts handed to the
// engine by the ingest pipeline.
package item

import (
	"fmt"

	"github.com/kailas-cloud/crossref/internal/domain"
)

// Kind is the category of a processed item.
type Kind string

// Item kinds.
const (
	KindFile     Kind = "file"
	KindArtifact Kind = "artifact"
	KindAccount  Kind = "account"
)

// FileType is the origin of a file within a data source.
type FileType string

// File types.
const (
	FileFS            FileType = "fs"
	FileCarved        FileType = "carved"
	FileDerived       FileType = "derived"
	FileLocal         FileType = "local"
	FileLayout        FileType = "layout_file"
	FileUnallocBlocks FileType = "unalloc_blocks"
	FileUnusedBlocks  FileType = "unused_blocks"
	FileSlack         FileType = "slack"
	FileVirtualDir    FileType = "virtual_dir"
	FileLocalDir      FileType = "local_dir"
)

// ArtifactType is the kind of data artifact an item carries.
type ArtifactType string

// Artifact types the extractor understands.
const (
	ArtifactDeviceAttached   ArtifactType = "device_attached"
	ArtifactWifiNetwork      ArtifactType = "wifi_network"
	ArtifactWifiAdapter      ArtifactType = "wifi_network_adapter"
	ArtifactBluetoothPairing ArtifactType = "bluetooth_pairing"
	ArtifactBluetoothAdapter ArtifactType = "bluetooth_adapter"
	ArtifactDeviceInfo       ArtifactType = "device_info"
	ArtifactSIMAttached      ArtifactType = "sim_attached"
	ArtifactWebFormAddress   ArtifactType = "web_form_address"
	ArtifactWebBookmark      ArtifactType = "web_bookmark"
	ArtifactWebCookie        ArtifactType = "web_cookie"
	ArtifactWebDownload      ArtifactType = "web_download"
	ArtifactWebHistory       ArtifactType = "web_history"
	ArtifactWebCache         ArtifactType = "web_cache"
	ArtifactInstalledProgram ArtifactType = "installed_prog"
	ArtifactContact          ArtifactType = "contact"
	ArtifactCallLog          ArtifactType = "calllog"
	ArtifactMessage          ArtifactType = "message"
)

// Field names carried in Item.Fields.
const (
	FieldDeviceID    = "device_id"
	FieldMAC         = "mac_address"
	FieldSSID        = "ssid"
	FieldIMEI        = "imei"
	FieldIMSI        = "imsi"
	FieldICCID       = "iccid"
	FieldEmail       = "email"
	FieldPhone       = "phone_number"
	FieldPhoneFrom   = "phone_number_from"
	FieldPhoneTo     = "phone_number_to"
	FieldDomain      = "domain"
	FieldProgName    = "prog_name"
	FieldPath        = "path"
	FieldAccountType = "account_type"
	FieldAccountID   = "account_id"
)

// Item is one unit of ingest work (immutable value object).
type Item struct {
	objectID     int64
	kind         Kind
	name         string
	parentPath   string
	fileType     FileType
	allocated    bool
	knownStatus  domain.KnownStatus
	md5          string
	artifactType ArtifactType
	fields       map[string]string
}

// Params holds the fields of a new Item.
type Params struct {
	ObjectID     int64
	Kind         Kind
	Name         string
	ParentPath   string
	FileType     FileType
	Allocated    bool
	KnownStatus  domain.KnownStatus
	MD5          string
	ArtifactType ArtifactType
	Fields       map[string]string
}

// New validates and creates an Item.
func New(p Params) (Item, error) {
	if p.ObjectID <= 0 {
		return Item{}, fmt.Errorf("object id must be positive: %w", domain.ErrInvalidInput)
	}
	switch p.Kind {
	case KindFile, KindArtifact, KindAccount:
	default:
		return Item{}, fmt.Errorf("unknown item kind %q: %w", p.Kind, domain.ErrInvalidInput)
	}
	known := p.KnownStatus
	if known == "" {
		known = domain.KnownUnknown
	}

	fields := make(map[string]string, len(p.Fields))
	for k, v := range p.Fields {
		fields[k] = v
	}

	return Item{
		objectID:     p.ObjectID,
		kind:         p.Kind,
		name:         p.Name,
		parentPath:   p.ParentPath,
		fileType:     p.FileType,
		allocated:    p.Allocated,
		knownStatus:  known,
		md5:          p.MD5,
		artifactType: p.ArtifactType,
		fields:       fields,
	}, nil
}

// ObjectID returns the case database object id.
func (i Item) ObjectID() int64 { return i.objectID }

// Kind returns the item kind.
func (i Item) Kind() Kind { return i.kind }

// Name returns the display name.
func (i Item) Name() string { return i.name }

// ParentPath returns the parent path, with a trailing slash.
func (i Item) ParentPath() string { return i.parentPath }

// Path returns the full path of the item.
func (i Item) Path() string { return i.parentPath + i.name }

// FileType returns the file origin.
func (i Item) FileType() FileType { return i.fileType }

// Allocated reports whether a file-system file is allocated.
func (i Item) Allocated() bool { return i.allocated }

// KnownStatus returns the case-side known status.
func (i Item) KnownStatus() domain.KnownStatus { return i.knownStatus }

// MD5 returns the file hash, possibly empty.
func (i Item) MD5() string { return i.md5 }

// ArtifactType returns the artifact type for artifact items.
func (i Item) ArtifactType() ArtifactType { return i.artifactType }

// Field returns a structured field value.
func (i Item) Field(name string) (string, bool) {
	v, ok := i.fields[name]
	return v, ok && v != ""
}
