package series

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/soltixdb/insight/internal/analytics"
	"github.com/soltixdb/insight/internal/utils"
)

// Extract normalizes a result set into samples ordered by timestamp.
// Entries with a null, non-numeric or non-finite value are dropped, as are
// entries whose timestamp cannot be read. An empty or fully invalid input
// yields an empty sequence; classifying that is up to the caller.
func Extract(shape ResultShape) analytics.SampleSequence {
	var samples analytics.SampleSequence

	switch s := shape.(type) {
	case Columnar:
		samples = extractColumnar(s)
	case RowTuples:
		samples = extractRows(s)
	default:
		return analytics.SampleSequence{}
	}

	samples.SortByTime()
	return samples
}

func extractColumnar(c Columnar) analytics.SampleSequence {
	numColumns := len(c.Columns)
	if numColumns == 0 || len(c.Values) == 0 {
		return analytics.SampleSequence{}
	}

	valueCol := ValueColumn(c.Columns)
	if valueCol < 0 {
		return analytics.SampleSequence{}
	}

	numRows := len(c.Values) / numColumns
	samples := make(analytics.SampleSequence, 0, numRows)

	for i := 0; i < numRows; i++ {
		row := c.Values[i*numColumns : (i+1)*numColumns]

		value, ok := utils.ToFiniteFloat64(row[valueCol])
		if !ok {
			continue
		}
		ts, ok := ParseTimestamp(row[0])
		if !ok {
			continue
		}

		samples = append(samples, analytics.Sample{Timestamp: ts, Value: value})
	}

	return samples
}

// ValueColumn picks the first column whose name contains "value"
// (case-insensitive), else the second column. Returns -1 when the table has
// fewer than two columns and none is named like a value.
func ValueColumn(columns []string) int {
	for i, name := range columns {
		if i == 0 {
			continue // timestamp
		}
		if strings.Contains(strings.ToLower(name), "value") {
			return i
		}
	}
	if len(columns) >= 2 {
		return 1
	}
	return -1
}

func extractRows(r RowTuples) analytics.SampleSequence {
	samples := make(analytics.SampleSequence, 0, len(r.Rows))

	for _, row := range r.Rows {
		if len(row) < 2 {
			continue
		}

		value, ok := utils.ToFiniteFloat64(row[1])
		if !ok {
			continue
		}
		ts, ok := ParseTimestamp(row[0])
		if !ok {
			continue
		}

		sample := analytics.Sample{Timestamp: ts, Value: value}
		if len(row) > 2 {
			if secondary, ok := utils.ToFiniteFloat64(row[2]); ok {
				sample.SecondaryValue = &secondary
			}
		}

		samples = append(samples, sample)
	}

	return samples
}

// ParseTimestamp reads epoch millis from a number, a numeric string or an
// RFC3339 string.
func ParseTimestamp(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case time.Time:
		return val.UnixMilli(), true
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, true
		}
		f, err := val.Float64()
		if err != nil || !analytics.IsFinite(f) {
			return 0, false
		}
		return int64(f), true
	case string:
		s := strings.TrimSpace(val)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0, false
		}
		return t.UnixMilli(), true
	default:
		f, ok := utils.ToFiniteFloat64(val)
		if !ok {
			return 0, false
		}
		return int64(f), true
	}
}
