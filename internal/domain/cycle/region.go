package cycle

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed regions.yaml
var regionsYAML []byte

var ErrRegionNotFound = errors.New("region not found")

// Indicator describes where a world-state section reports its current phase.
type Indicator struct {
	Field         string `yaml:"field"`
	FallbackField string `yaml:"fallback_field"`
	WhenTrue      string `yaml:"when_true"`
	WhenFalse     string `yaml:"when_false"`
}

// Region is one tracked open-world area.
type Region struct {
	Key       string    `yaml:"key"`
	Label     string    `yaml:"label"`
	Section   string    `yaml:"section"`
	Indicator Indicator `yaml:"indicator"`
	Phases    Pattern   `yaml:"phases"`
}

// Observation is the raw, possibly stale state reported upstream for a region.
type Observation struct {
	PhaseKey string
	Expiry   int64
}

// Observe extracts the current phase and its expiry from a world-state
// section. ok is false for missing or malformed data.
func (r Region) Observe(section map[string]any) (Observation, bool) {
	if section == nil {
		return Observation{}, false
	}
	rawExpiry, _ := section["expiry"].(string)
	if rawExpiry == "" {
		return Observation{}, false
	}
	expiry, err := time.Parse(time.RFC3339, rawExpiry)
	if err != nil {
		return Observation{}, false
	}

	key, ok := r.phaseFrom(section)
	if !ok {
		return Observation{}, false
	}
	return Observation{PhaseKey: key, Expiry: expiry.Unix()}, true
}

func (r Region) phaseFrom(section map[string]any) (string, bool) {
	raw, present := section[r.Indicator.Field]
	if (!present || raw == nil || raw == "") && r.Indicator.FallbackField != "" {
		raw, present = section[r.Indicator.FallbackField]
	}
	if !present || raw == nil {
		return "", false
	}

	switch v := raw.(type) {
	case bool:
		if v {
			return r.Indicator.WhenTrue, r.Indicator.WhenTrue != ""
		}
		return r.Indicator.WhenFalse, r.Indicator.WhenFalse != ""
	case string:
		key := strings.ToLower(strings.TrimSpace(v))
		if !r.Phases.Has(key) {
			return "", false
		}
		return key, true
	default:
		return "", false
	}
}

// Status resolves a world-state section into a current Status at now.
func (r Region) Status(section map[string]any, now int64) (Status, bool) {
	obs, ok := r.Observe(section)
	if !ok {
		return Status{}, false
	}
	expiry, key := ResolvePhase(r.Phases, obs.PhaseKey, obs.Expiry, now)
	return Status{
		Region:       r.Key,
		RegionLabel:  r.Label,
		Pattern:      r.Phases,
		PhaseKey:     key,
		NextChangeTS: expiry,
	}, true
}

// Regions is the ordered set of tracked regions.
type Regions []Region

// Find looks a region up by key or label, case-insensitively.
func (rs Regions) Find(name string) (Region, error) {
	name = strings.TrimSpace(name)
	for _, r := range rs {
		if strings.EqualFold(r.Key, name) || strings.EqualFold(r.Label, name) {
			return r, nil
		}
	}
	return Region{}, fmt.Errorf("%w: %q", ErrRegionNotFound, name)
}

// LoadRegions parses the embedded region catalog.
func LoadRegions() (Regions, error) {
	return ParseRegions(regionsYAML)
}

// ParseRegions parses a region catalog document.
func ParseRegions(data []byte) (Regions, error) {
	var doc struct {
		Regions Regions `yaml:"regions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse region catalog: %w", err)
	}
	for _, r := range doc.Regions {
		if r.Key == "" || r.Section == "" {
			return nil, fmt.Errorf("region catalog entry is missing key or section: %+v", r)
		}
		if len(r.Phases) == 0 || r.Phases.Length() <= 0 {
			return nil, fmt.Errorf("region %s has no usable phases", r.Key)
		}
		for _, ph := range r.Phases {
			if ph.Duration <= 0 {
				return nil, fmt.Errorf("region %s phase %s has a non-positive duration", r.Key, ph.Key)
			}
		}
	}
	return doc.Regions, nil
}
