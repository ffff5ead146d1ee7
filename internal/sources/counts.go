package sources

import (
	"encoding/json"
	"strconv"
	"strings"
)

// parseCount reads the vendor's display counters: "356", "1.2万", "3w", "10万+".
// Anything unparseable counts as zero.
func parseCount(s string) int64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "+"))
	if s == "" {
		return 0
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "万"):
		multiplier = 10000
		s = strings.TrimSuffix(s, "万")
	case strings.HasSuffix(s, "w"), strings.HasSuffix(s, "W"):
		multiplier = 10000
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "亿"):
		multiplier = 100000000
		s = strings.TrimSuffix(s, "亿")
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v < 0 {
		return 0
	}
	return int64(v*multiplier + 0.5)
}

// flexCount accepts a counter encoded either as a JSON number or a string
type flexCount int64

func (c *flexCount) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		if v, err := n.Int64(); err == nil {
			*c = flexCount(v)
			return nil
		}
		if f, err := n.Float64(); err == nil {
			*c = flexCount(int64(f))
			return nil
		}
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = flexCount(parseCount(s))
		return nil
	}
	*c = 0
	return nil
}
