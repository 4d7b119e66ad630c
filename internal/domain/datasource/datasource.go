// Package datasource describes the data source an ingest job reads from.
package datasource

import "fmt"

// Type is the data source kind in the case database.
type Type string

// Data source types. Only images carry hashes worth mirroring.
const (
	TypeImage      Type = "image"
	TypeLocalFiles Type = "local_files"
	TypeLogical    Type = "logical"
)

// HashKind names one of the mirrored hashes.
type HashKind string

// Hash kinds, in sync order.
const (
	HashMD5    HashKind = "md5"
	HashSHA1   HashKind = "sha1"
	HashSHA256 HashKind = "sha256"
)

// HashKinds returns every hash kind in sync order.
func HashKinds() []HashKind { return []HashKind{HashMD5, HashSHA1, HashSHA256} }

// Hashes holds the MD5/SHA1/SHA256 of a data source. Empty means unknown.
type Hashes struct {
	MD5    string
	SHA1   string
	SHA256 string
}

// Get returns the hash of kind k.
func (h Hashes) Get(k HashKind) string {
	switch k {
	case HashMD5:
		return h.MD5
	case HashSHA1:
		return h.SHA1
	case HashSHA256:
		return h.SHA256
	default:
		return ""
	}
}

// Set returns a copy with the hash of kind k replaced.
func (h Hashes) Set(k HashKind, v string) Hashes {
	switch k {
	case HashMD5:
		h.MD5 = v
	case HashSHA1:
		h.SHA1 = v
	case HashSHA256:
		h.SHA256 = v
	}
	return h
}

// DataSource is a data source record as known to the case database.
type DataSource struct {
	ObjID    int64
	Name     string
	DeviceID string
	Type     Type
	Hashes   Hashes
}

// Validate checks the fields needed to register a data source.
func (d DataSource) Validate() error {
	if d.ObjID <= 0 {
		return fmt.Errorf("data source object id must be positive")
	}
	return nil
}

// IsImage reports whether the data source is a disk image.
func (d DataSource) IsImage() bool { return d.Type == TypeImage }
