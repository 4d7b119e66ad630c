package attribute

import (
	"fmt"
	"strconv"
)

// Type is a correlation attribute type. Numeric ids are stable and shared
// with every case that writes to the correlation store.
type Type int

// Correlation attribute types.
const (
	Files             Type = 0
	Email             Type = 1
	Phone             Type = 2
	Domain            Type = 3
	USBID             Type = 4
	SSID              Type = 5
	MAC               Type = 6
	IMEI              Type = 7
	IMSI              Type = 8
	ICCID             Type = 9
	InstalledPrograms Type = 10
	OSAccount         Type = 11
)

var typeNames = map[Type]string{
	Files:             "files",
	Email:             "email",
	Phone:             "phone",
	Domain:            "domain",
	USBID:             "usb_id",
	SSID:              "ssid",
	MAC:               "mac",
	IMEI:              "imei",
	IMSI:              "imsi",
	ICCID:             "iccid",
	InstalledPrograms: "installed_programs",
	OSAccount:         "os_account",
}

var typeDisplayNames = map[Type]string{
	Files:             "File MD5",
	Email:             "Email Addresses",
	Phone:             "Phone Numbers",
	Domain:            "Domains",
	USBID:             "USB Devices",
	SSID:              "Wireless Networks",
	MAC:               "MAC Addresses",
	IMEI:              "IMEI Number",
	IMSI:              "IMSI Number",
	ICCID:             "ICCID Number",
	InstalledPrograms: "Installed Programs",
	OSAccount:         "OS Accounts",
}

// AllTypes returns every known type in id order.
func AllTypes() []Type {
	return []Type{
		Files, Email, Phone, Domain, USBID, SSID, MAC,
		IMEI, IMSI, ICCID, InstalledPrograms, OSAccount,
	}
}

// ParseType resolves a type from its name or numeric id.
func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	if id, err := strconv.Atoi(s); err == nil {
		t := Type(id)
		if t.Valid() {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown correlation type %q", s)
}

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// String returns the type name.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "type_" + strconv.Itoa(int(t))
}

// DisplayName returns the human-readable type name.
func (t Type) DisplayName() string {
	if name, ok := typeDisplayNames[t]; ok {
		return name
	}
	return t.String()
}

// IsDevice reports whether t identifies a device or a person. Only these
// types take part in the previously-seen check.
func (t Type) IsDevice() bool {
	switch t {
	case USBID, ICCID, IMEI, IMSI, MAC, Email, Phone:
		return true
	default:
		return false
	}
}

// IsUniqueArtifact reports whether t takes part in the previously-unseen check.
func (t Type) IsUniqueArtifact() bool {
	return t == InstalledPrograms || t == Domain
}
