package correlation

import (
	"strconv"

	"github.com/kailas-cloud/crossref/internal/domain/attribute"
)

// Instance and data source hash fields.
const (
	fieldType     = "type"
	fieldValue    = "value"
	fieldCaseUUID = "case_uuid"
	fieldDSObjID  = "ds_obj_id"
	fieldPath     = "path"
	fieldKnown    = "known"
	fieldObjectID = "object_id"
	fieldDSName   = "name"
	fieldDSDevice = "device_id"
)

func (r *Repo) typeKey(t attribute.Type) string {
	return r.prefix + "type:" + strconv.Itoa(int(t))
}

func (r *Repo) caseKey(caseUUID string) string {
	return r.prefix + "case:" + caseUUID
}

func (r *Repo) dataSourceKey(caseUUID string, objID int64) string {
	return r.prefix + "ds:" + caseUUID + ":" + strconv.FormatInt(objID, 10)
}

func (r *Repo) dataSourceInfoKey(caseUUID string, objID int64) string {
	return r.prefix + "dsinfo:" + caseUUID + ":" + strconv.FormatInt(objID, 10)
}

// occurrenceKey is the set of instance keys recorded for one value.
func (r *Repo) occurrenceKey(t attribute.Type, value string) string {
	return r.prefix + "occ:" + strconv.Itoa(int(t)) + ":" + value
}

// instanceKey length-prefixes the value, which may itself hold ':'.
func (r *Repo) instanceKey(a attribute.Attribute) string {
	return r.prefix + "inst:" + strconv.Itoa(int(a.Type())) + ":" +
		strconv.Itoa(len(a.Value())) + ":" + a.Value() + ":" +
		a.CaseUUID() + ":" + strconv.FormatInt(a.DataSourceObjID(), 10) + ":" +
		strconv.FormatInt(a.ObjectID(), 10)
}
