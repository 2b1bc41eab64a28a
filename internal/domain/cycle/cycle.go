// internal/domain/cycle/cycle.go
package cycle

// triggerSlackSeconds keeps freshly computed triggers from firing on the very next tick.
const triggerSlackSeconds = 2

// Phase is one state of a recurring world cycle.
type Phase struct {
	Key      string `yaml:"key"`
	Label    string `yaml:"label"`
	Duration int64  `yaml:"seconds"` // seconds
}

// Pattern is the ordered list of phases of a cycle. It repeats forever.
type Pattern []Phase

// Length is the total cycle length in seconds.
func (p Pattern) Length() int64 {
	var total int64
	for _, ph := range p {
		total += ph.Duration
	}
	return total
}

// Has reports whether key is one of the pattern's phases.
func (p Pattern) Has(key string) bool {
	return p.index(key) >= 0
}

// Label returns the display label for key, or key itself when unknown.
func (p Pattern) Label(key string) string {
	if i := p.index(key); i >= 0 && p[i].Label != "" {
		return p[i].Label
	}
	return key
}

func (p Pattern) index(key string) int {
	for i, ph := range p {
		if ph.Key == key {
			return i
		}
	}
	return -1
}

// indexOrFirst mirrors how upstream data with an unknown phase is treated:
// as if the cycle were in its first phase.
func (p Pattern) indexOrFirst(key string) int {
	if i := p.index(key); i >= 0 {
		return i
	}
	return 0
}

// Status is the derived, never persisted view of one region's cycle.
type Status struct {
	Region       string
	RegionLabel  string
	Pattern      Pattern
	PhaseKey     string
	NextChangeTS int64
}

// PhaseLabel is the display label of the current phase.
func (s Status) PhaseLabel() string {
	return s.Pattern.Label(s.PhaseKey)
}

// ResolvePhase rolls a possibly stale expiry forward until it lies strictly
// after now. expiry is the moment currentKey ends. The returned key is the
// phase active until the returned expiry.
//
// Empty patterns, non-positive cycle lengths and non-positive expiries are
// treated as unknown data and returned unchanged.
func ResolvePhase(pattern Pattern, currentKey string, expiry, now int64) (int64, string) {
	if expiry <= 0 || len(pattern) == 0 {
		return expiry, currentKey
	}
	length := pattern.Length()
	if length <= 0 {
		return expiry, currentKey
	}
	if expiry > now {
		return expiry, currentKey
	}

	idx := pattern.indexOrFirst(currentKey)

	// Whole cycles leave the phase unchanged, skip them in one step.
	if behind := now - expiry; behind >= length {
		expiry += (behind / length) * length
	}

	n := len(pattern)
	for expiry <= now {
		idx = (idx + 1) % n
		expiry += pattern[idx].Duration
		currentKey = pattern[idx].Key
	}
	return expiry, currentKey
}

// NextPhaseStart returns the timestamp at which targetKey next begins, given
// that currentKey ends at changeTS. It returns 0 when the start cannot be
// resolved: no pattern, changeTS <= 0, or targetKey not in the pattern.
func NextPhaseStart(currentKey string, changeTS int64, targetKey string, pattern Pattern) int64 {
	if changeTS <= 0 || len(pattern) == 0 {
		return 0
	}
	idx := pattern.indexOrFirst(currentKey)
	n := len(pattern)

	t := changeTS
	for step := 1; step <= n; step++ {
		ph := pattern[(idx+step)%n]
		if ph.Key == targetKey {
			return t
		}
		t += ph.Duration
	}
	return 0
}

// ComputeTriggerTimes resolves when targetKey starts next and when a reminder
// leadMinutes ahead of it should fire. If the lead time reaches past now the
// start is pushed forward by whole cycles until the trigger is in the future.
// Both values are 0 when the start is unresolvable.
func ComputeTriggerTimes(status Status, targetKey string, leadMinutes int, now int64) (startTS, triggerTS int64) {
	startTS = NextPhaseStart(status.PhaseKey, status.NextChangeTS, targetKey, status.Pattern)
	if startTS <= 0 {
		return 0, 0
	}
	length := status.Pattern.Length()
	if length <= 0 {
		return 0, 0
	}
	if leadMinutes < 0 {
		leadMinutes = 0
	}
	lead := int64(leadMinutes) * 60

	triggerTS = startTS - lead
	if limit := now + triggerSlackSeconds; triggerTS <= limit {
		cycles := (limit-triggerTS)/length + 1
		startTS += cycles * length
		triggerTS = startTS - lead
	}
	return startTS, triggerTS
}
