package optimizer

import (
	"crypto/md5" //nolint:gosec // content hash for identifiers, not security
	"encoding/hex"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rxtech-lab/funding-breakout/internal/types"
)

// RunIDPrefix prefixes every run identifier.
const RunIDPrefix = "run_"

// RunID derives a stable identifier from the parameter content. It hashes a
// canonical JSON object with sorted keys, so equal parameters always map to
// the same id across processes and restarts.
func RunID(params types.ParameterSet) string {
	return RunIDFromMap(params.AsMap())
}

// RunIDFromMap is RunID over an arbitrary parameter map.
func RunIDFromMap(params map[string]float64) string {
	sum := md5.Sum([]byte(CanonicalJSON(params)))

	return RunIDPrefix + hex.EncodeToString(sum[:])[:8]
}

// CanonicalJSON renders params as a JSON object with sorted keys, ": " and
// ", " separators, and floats that always carry a fractional part
// (3 renders as 3.0). Ids computed by earlier tooling use this form.
func CanonicalJSON(params map[string]float64) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var b strings.Builder

	b.WriteByte('{')

	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}

		b.WriteString(strconv.Quote(k))
		b.WriteString(": ")
		b.WriteString(formatFloat(params[k]))
	}

	b.WriteByte('}')

	return b.String()
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}

	return s
}
