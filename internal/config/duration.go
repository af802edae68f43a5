package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var dayWeekPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)([dw])`)

// parseDurationExtended parses Go-style duration strings and additionally
// accepts d (days, 24h) and w (weeks, 7d) units. Examples: "168h", "3d",
// "1w2d", "1.5d".
func parseDurationExtended(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("duration is required")
	}
	if !strings.ContainsAny(raw, "dw") {
		return time.ParseDuration(raw)
	}
	expanded := dayWeekPattern.ReplaceAllStringFunc(raw, func(match string) string {
		parts := dayWeekPattern.FindStringSubmatch(match)
		value, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return match
		}
		hours := value * 24
		if parts[2] == "w" {
			hours *= 7
		}
		return strconv.FormatFloat(hours, 'f', -1, 64) + "h"
	})
	d, err := time.ParseDuration(expanded)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	return d, nil
}

// Duration is a time.Duration that unmarshals from YAML using the extended
// duration syntax.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := parseDurationExtended(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
