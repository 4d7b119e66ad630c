package datasource

import "testing"

func TestHashes_GetSet(t *testing.T) {
	var h Hashes
	for _, k := range HashKinds() {
		h = h.Set(k, string(k)+"-value")
	}
	for _, k := range HashKinds() {
		if got := h.Get(k); got != string(k)+"-value" {
			t.Errorf("Get(%s) = %q", k, got)
		}
	}
	if h.Get("crc32") != "" {
		t.Error("unknown kind must read empty")
	}
	if h.Set("crc32", "x") != h {
		t.Error("unknown kind must not change hashes")
	}
}

func TestDataSource_Validate(t *testing.T) {
	if err := (DataSource{}).Validate(); err == nil {
		t.Error("expected error for zero object id")
	}
	if err := (DataSource{ObjID: 1}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDataSource_IsImage(t *testing.T) {
	if !(DataSource{Type: TypeImage}).IsImage() {
		t.Error("image must report IsImage")
	}
	if (DataSource{Type: TypeLocalFiles}).IsImage() {
		t.Error("local files must not report IsImage")
	}
}
