// Package units formats and parses human-readable byte quantities.
//
// Two distinct conventions are in play because the two callers disagree:
// the CLI summary reports byte counts the way operators expect (decimal,
// base-1000, "99.9 GB"), while the copier's own log output expresses sizes
// in the binary convention its documentation describes (k/m/g/t scaled by
// 1024). Both live here since both are "format/parse a byte count".
package units

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const decimalBase = 1000.0

const rollover = decimalBase - 100 // values below this stay in the current unit

// BytesStringBase10 formats n as a decimal (base-1000) byte quantity, e.g.
// "1.2 KB", "99.9 GB".
func BytesStringBase10(n int64) string {
	return toDecimalUnitString(float64(n), "B")
}

func toDecimalUnitString(f float64, smallSuffix string) string {
	if f < rollover {
		return strconv.FormatInt(int64(f), 10) + " " + smallSuffix
	}

	suffixes := []string{"K", "M", "G", "T"}

	for _, s := range suffixes {
		f /= decimalBase
		if f < rollover {
			return formatFloat(f) + " " + s + smallSuffix
		}
	}

	// values of 900 T and above stay in the "T" tier rather than growing a
	// "P" tier we have no use for.
	return formatFloat(f) + " T" + smallSuffix
}

func formatFloat(f float64) string {
	r := math.Round(f*10) / 10 // nolint:mnd

	if r == math.Trunc(r) {
		return strconv.FormatFloat(r, 'f', 0, 64)
	}

	return strconv.FormatFloat(r, 'f', 1, 64)
}

const binaryBase = 1024.0

var binarySuffixMultiplier = map[byte]float64{ // nolint:gochecknoglobals
	'k': binaryBase,
	'm': binaryBase * binaryBase,
	'g': binaryBase * binaryBase * binaryBase,
	't': binaryBase * binaryBase * binaryBase * binaryBase,
}

// ParseBinarySizeToken parses a copier log size token such as "12.5", "12.5k",
// "930m", "1.1g", case-insensitively, scaled by 1024 per unit, and returns
// the byte count rounded to the nearest integer. An unparseable token is an
// error; callers that want "leave the counter at zero" tolerance should
// treat a non-nil error as exactly that.
func ParseBinarySizeToken(tok string) (int64, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return 0, errors.New("empty size token")
	}

	mult := 1.0

	last := tok[len(tok)-1]
	if m, ok := binarySuffixMultiplier[toLowerByte(last)]; ok {
		mult = m
		tok = tok[:len(tok)-1]
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid size token %q", tok)
	}

	return int64(math.Round(v * mult)), nil
}

func toLowerByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}

	return b
}
