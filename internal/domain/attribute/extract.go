package attribute

import (
	"strings"

	"github.com/kailas-cloud/crossref/internal/domain"
	"github.com/kailas-cloud/crossref/internal/domain/item"
)

// NoDataMD5 is the MD5 of zero bytes; files hashing to it carry no content.
const NoDataMD5 = "d41d8cd98f00b204e9800998ecf8427e"

var domainsToSkip = map[string]bool{"localhost": true, "127.0.0.1": true}

// fieldSpec maps an item field to a correlation type.
type fieldSpec struct {
	field string
	typ   Type
}

var artifactFields = map[item.ArtifactType][]fieldSpec{
	item.ArtifactDeviceAttached:   {{item.FieldDeviceID, USBID}, {item.FieldMAC, MAC}},
	item.ArtifactWifiNetwork:      {{item.FieldSSID, SSID}},
	item.ArtifactWifiAdapter:      {{item.FieldMAC, MAC}},
	item.ArtifactBluetoothPairing: {{item.FieldMAC, MAC}},
	item.ArtifactBluetoothAdapter: {{item.FieldMAC, MAC}},
	item.ArtifactDeviceInfo:       {{item.FieldIMEI, IMEI}, {item.FieldIMSI, IMSI}, {item.FieldICCID, ICCID}},
	item.ArtifactSIMAttached:      {{item.FieldIMSI, IMSI}, {item.FieldICCID, ICCID}},
	item.ArtifactWebFormAddress:   {{item.FieldEmail, Email}, {item.FieldPhone, Phone}},
	item.ArtifactWebBookmark:      {{item.FieldDomain, Domain}},
	item.ArtifactWebCookie:        {{item.FieldDomain, Domain}},
	item.ArtifactWebDownload:      {{item.FieldDomain, Domain}},
	item.ArtifactWebHistory:       {{item.FieldDomain, Domain}},
	item.ArtifactWebCache:         {{item.FieldDomain, Domain}},
}

// Scope binds extracted attributes to the case and data source of the job.
type Scope struct {
	CaseUUID        string
	DataSourceObjID int64
}

// Extract derives the correlation attributes of it. Unsupported items yield
// nothing. Values that fail normalization are returned in errs and do not
// prevent the other attributes of the item from being extracted.
func Extract(it item.Item, scope Scope) (attrs []Attribute, errs []error) {
	switch it.Kind() {
	case item.KindFile:
		return extractFile(it, scope)
	case item.KindArtifact:
		return extractArtifact(it, scope)
	case item.KindAccount:
		return extractAccount(it, scope)
	default:
		return nil, nil
	}
}

// IsSupportedFile reports whether a file can be recorded in the correlation store.
func IsSupportedFile(it item.Item) bool {
	switch it.FileType() {
	case item.FileCarved, item.FileDerived, item.FileLocal, item.FileLayout:
		return true
	case item.FileFS:
		return it.Allocated()
	default:
		return false
	}
}

func extractFile(it item.Item, scope Scope) ([]Attribute, []error) {
	if !IsSupportedFile(it) || it.KnownStatus() == domain.KnownGood {
		return nil, nil
	}
	md5 := strings.ToLower(strings.TrimSpace(it.MD5()))
	if md5 == "" || md5 == NoDataMD5 {
		return nil, nil
	}

	// Known status in the store comes from tagging, not from hash sets.
	a, err := New(Files, md5, Source{
		CaseUUID:        scope.CaseUUID,
		DataSourceObjID: scope.DataSourceObjID,
		Path:            it.Path(),
		ObjectID:        it.ObjectID(),
		KnownStatus:     domain.KnownUnknown,
	})
	if err != nil {
		return nil, []error{err}
	}
	return []Attribute{a}, nil
}

func extractArtifact(it item.Item, scope Scope) ([]Attribute, []error) {
	switch it.ArtifactType() {
	case item.ArtifactInstalledProgram:
		// program name preferred, path as fallback
		field := item.FieldProgName
		if _, ok := it.Field(field); !ok {
			field = item.FieldPath
		}
		return build(it, scope, []fieldSpec{{field, InstalledPrograms}})
	case item.ArtifactContact, item.ArtifactCallLog, item.ArtifactMessage:
		for _, f := range []string{item.FieldPhone, item.FieldPhoneFrom, item.FieldPhoneTo} {
			if _, ok := it.Field(f); ok {
				return build(it, scope, []fieldSpec{{f, Phone}})
			}
		}
		return nil, nil
	}

	specs, ok := artifactFields[it.ArtifactType()]
	if !ok {
		return nil, nil
	}
	return build(it, scope, specs)
}

func extractAccount(it item.Item, scope Scope) ([]Attribute, []error) {
	accountType, _ := it.Field(item.FieldAccountType)
	var t Type
	switch strings.ToLower(accountType) {
	case "email":
		t = Email
	case "phone":
		t = Phone
	default:
		// device accounts and custom account types are not correlated
		return nil, nil
	}
	return build(it, scope, []fieldSpec{{item.FieldAccountID, t}})
}

func build(it item.Item, scope Scope, specs []fieldSpec) ([]Attribute, []error) {
	var attrs []Attribute
	var errs []error
	for _, s := range specs {
		raw, ok := it.Field(s.field)
		if !ok {
			continue
		}
		if s.typ == Domain && domainsToSkip[strings.ToLower(strings.TrimSpace(raw))] {
			continue
		}
		a, err := New(s.typ, raw, Source{
			CaseUUID:        scope.CaseUUID,
			DataSourceObjID: scope.DataSourceObjID,
			Path:            it.Path(),
			ObjectID:        it.ObjectID(),
			KnownStatus:     domain.KnownUnknown,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		attrs = append(attrs, a)
	}
	return attrs, errs
}
