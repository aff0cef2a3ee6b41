package profile

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wasilibs/go-re2"
)

// fileTimeEpochOffset is the number of 100ns ticks between 1601-01-01 and 1970-01-01.
const fileTimeEpochOffset = 116444736000000000

// maxFileTime is the largest tick count representable as a calendar date (9999-12-31).
const maxFileTime = 2650467743999999999

var (
	digitsPattern      = re2.MustCompile(`^\d+$`)
	cimDatetimePattern = re2.MustCompile(`^(\d{14})\.(\d{6})([+-]\d{3})$`)
	jsonDatePattern    = re2.MustCompile(`^/Date\((-?\d+)([+-]\d{4})?\)/$`)
)

// generalLayouts are tried in order for free-form strings. Layouts without a
// zone are read as UTC so parsing never depends on the local locale.
var generalLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"01/02/2006",
	time.RFC1123Z,
	time.RFC1123,
	"Monday, January 2, 2006 3:04:05 PM",
	"Monday, 2 January 2006 15:04:05",
	"2 January 2006 15:04:05",
	time.ANSIC,
	time.UnixDate,
}

// NormalizeLastUse converts a last-use value of unknown provenance to a UTC
// instant. The second result is false when the value cannot be interpreted.
// It never panics.
//
// Accepted shapes, in order: an instant; an integer or digit-only string read as
// FILETIME ticks; a CIM datetime ("yyyyMMddHHmmss.ffffff+UUU", offset in
// minutes); any other date string.
func NormalizeLastUse(v any) (t time.Time, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t, ok = time.Time{}, false
		}
	}()

	switch val := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if val.IsZero() {
			return time.Time{}, false
		}
		return val.UTC(), true
	case *time.Time:
		if val == nil || val.IsZero() {
			return time.Time{}, false
		}
		return val.UTC(), true
	case int:
		return fromFileTime(int64(val))
	case int32:
		return fromFileTime(int64(val))
	case int64:
		return fromFileTime(val)
	case uint32:
		return fromFileTime(int64(val))
	case uint64:
		if val > math.MaxInt64 {
			return time.Time{}, false
		}
		return fromFileTime(int64(val))
	case float64:
		if val != math.Trunc(val) || val < 0 || val > maxFileTime {
			return time.Time{}, false
		}
		return fromFileTime(int64(val))
	case json.Number:
		return normalizeString(val.String())
	case string:
		return normalizeString(val)
	default:
		return time.Time{}, false
	}
}

func normalizeString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if digitsPattern.MatchString(s) {
		ticks, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return fromFileTime(ticks)
	}

	if m := cimDatetimePattern.FindStringSubmatch(s); m != nil {
		return fromCIMDatetime(m[1], m[2], m[3])
	}

	return parseGeneral(s)
}

func fromFileTime(ticks int64) (time.Time, bool) {
	if ticks < 0 || ticks > maxFileTime {
		return time.Time{}, false
	}
	unixTicks := ticks - fileTimeEpochOffset
	secs := unixTicks / 10_000_000
	rem := unixTicks % 10_000_000
	if rem < 0 {
		secs--
		rem += 10_000_000
	}
	return time.Unix(secs, rem*100).UTC(), true
}

func fromCIMDatetime(stamp, fraction, offset string) (time.Time, bool) {
	local, err := time.Parse("20060102150405", stamp)
	if err != nil {
		return time.Time{}, false
	}
	micros, err := strconv.Atoi(fraction)
	if err != nil {
		return time.Time{}, false
	}
	offsetMinutes, err := strconv.Atoi(offset)
	if err != nil {
		return time.Time{}, false
	}
	// local = UTC + offset
	utc := local.Add(time.Duration(micros) * time.Microsecond).Add(-time.Duration(offsetMinutes) * time.Minute)
	return utc.UTC(), true
}

func parseGeneral(s string) (time.Time, bool) {
	if m := jsonDatePattern.FindStringSubmatch(s); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	}

	for _, layout := range generalLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// LastUsePtr is NormalizeLastUse shaped for Record.LastUseUTC.
func LastUsePtr(v any) *time.Time {
	t, ok := NormalizeLastUse(v)
	if !ok {
		return nil
	}
	return &t
}
