package keys

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Coord renders a coordinate in its shortest round-trip form (23.8, 90, -0.5).
// Zero of either sign is "0". Magnitudes below 1e-6 use exponent form with an
// unpadded exponent (1e-7), so keys match those already persisted in exports.
func Coord(v float64) string {
	if v == 0 {
		return "0"
	}
	if a := math.Abs(v); a < 1e-6 || a >= 1e21 {
		mant, exp, _ := strings.Cut(strconv.FormatFloat(v, 'e', -1, 64), "e")
		return mant + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NASAData builds "{dataType}_{lat}_{lon}" with an optional "_{start}_{end}" suffix.
// The suffix is only added when both dates are present.
func NASAData(dataType string, lat, lon float64, startDate, endDate string) string {
	k := dataType + "_" + Coord(lat) + "_" + Coord(lon)
	if startDate != "" && endDate != "" {
		k += "_" + startDate + "_" + endDate
	}
	return k
}

// Risk builds "risk_{lat}_{lon}" with an optional "_{params}" suffix.
func Risk(lat, lon float64, params map[string]any) string {
	k := "risk_" + Coord(lat) + "_" + Coord(lon)
	if len(params) > 0 {
		k += "_" + Params(params)
	}
	return k
}

func Intervention(interventionType string, params map[string]any) string {
	return sanitize(strings.TrimSpace(interventionType)) + "_" + Params(params)
}

func Indices(lat, lon float64) string {
	return "indices_" + Coord(lat) + "_" + Coord(lon)
}

// LocationFragment is the "_{lat}_{lon}" segment shared by every
// location-scoped key, used to find all keys for one location.
func LocationFragment(lat, lon float64) string {
	return "_" + Coord(lat) + "_" + Coord(lon)
}

// ForLocation matches keys scoped to exactly lat/lon: the fragment must be
// followed by "_" or the end of the key, so 90.4 does not match 90.45.
func ForLocation(lat, lon float64) func(key string) bool {
	frag := LocationFragment(lat, lon)
	return func(key string) bool {
		for rest := key; ; {
			i := strings.Index(rest, frag)
			if i < 0 {
				return false
			}
			after := rest[i+len(frag):]
			if after == "" || after[0] == '_' {
				return true
			}
			rest = rest[i+1:]
		}
	}
}

// Params serialises params as a JSON object with sorted keys. nil and empty
// maps both serialise as "{}".
func Params(params map[string]any) string {
	if len(params) == 0 {
		return "{}"
	}
	b, err := json.Marshal(params)
	if err != nil {
		// unencodable values (NaN, channels) fall back to a stable hash of %v
		return fmt.Sprintf("h=%016x", xxhash.Sum64String(fmt.Sprintf("%v", params)))
	}
	return string(b)
}

// Fingerprint is a short stable hash used for ETags and event de-duplication.
func Fingerprint(b []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}

func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
