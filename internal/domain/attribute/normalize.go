package attribute

import (
	"net"
	"regexp"
	"strings"

	"github.com/kailas-cloud/crossref/internal/domain"
)

// MaxValueLength is the longest value the correlation store accepts.
const MaxValueLength = 256

var (
	md5Regex    = regexp.MustCompile(`^[a-f0-9]{32}$`)
	emailRegex  = regexp.MustCompile(`^[a-z0-9._%+\-']+@[a-z0-9.\-]+\.[a-z]{2,}$`)
	domainRegex = regexp.MustCompile(`^([a-z0-9_]([a-z0-9_\-]{0,61}[a-z0-9_])?\.)+[a-z0-9][a-z0-9\-]{0,61}[a-z0-9]$`)
	hexRegex    = regexp.MustCompile(`^[a-f0-9]+$`)
	digitsRegex = regexp.MustCompile(`^[0-9]+$`)
	iccidRegex  = regexp.MustCompile(`^[0-9]{17,21}[0-9f]$`)
	phoneStrip  = regexp.MustCompile(`[^0-9+]`)
)

// Normalize trims and case-folds value and validates it for type t.
// The error wraps domain.ErrNormalization.
func Normalize(t Type, value string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return "", domain.NewNormalizationError(t.String(), value, "empty value")
	}

	switch t {
	case Files:
		if !md5Regex.MatchString(v) {
			return "", domain.NewNormalizationError(t.String(), value, "not an md5 hash")
		}
	case Email:
		if !emailRegex.MatchString(v) {
			return "", domain.NewNormalizationError(t.String(), value, "not an email address")
		}
	case Phone:
		v = normalizePhone(v)
		if countDigits(v) < 5 {
			return "", domain.NewNormalizationError(t.String(), value, "not a phone number")
		}
	case Domain:
		if net.ParseIP(v) == nil && !domainRegex.MatchString(v) {
			return "", domain.NewNormalizationError(t.String(), value, "not a domain")
		}
	case MAC:
		v = strings.NewReplacer(":", "", "-", "", ".", "").Replace(v)
		if (len(v) != 12 && len(v) != 16) || !hexRegex.MatchString(v) {
			return "", domain.NewNormalizationError(t.String(), value, "not a mac address")
		}
	case IMEI:
		v = strings.NewReplacer("-", "", " ", "").Replace(v)
		if len(v) < 14 || len(v) > 16 || !digitsRegex.MatchString(v) {
			return "", domain.NewNormalizationError(t.String(), value, "not an imei")
		}
	case IMSI:
		v = strings.NewReplacer("-", "", " ", "").Replace(v)
		if len(v) < 14 || len(v) > 15 || !digitsRegex.MatchString(v) {
			return "", domain.NewNormalizationError(t.String(), value, "not an imsi")
		}
	case ICCID:
		v = strings.NewReplacer("-", "", " ", "").Replace(v)
		if !iccidRegex.MatchString(v) {
			return "", domain.NewNormalizationError(t.String(), value, "not an iccid")
		}
	case USBID, SSID, InstalledPrograms, OSAccount:
	default:
		return "", domain.NewNormalizationError(t.String(), value, "unknown type")
	}

	if len(v) >= MaxValueLength {
		return "", domain.NewNormalizationError(t.String(), value, "value too long")
	}
	return v, nil
}

// normalizePhone keeps digits and a single leading plus sign.
func normalizePhone(v string) string {
	v = phoneStrip.ReplaceAllString(v, "")
	if v == "" {
		return v
	}
	rest := strings.ReplaceAll(v[1:], "+", "")
	return v[:1] + rest
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
