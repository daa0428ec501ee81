package detector

import (
	"sub_trigger_bot/pkg/holder"
)

// Detects increases between consecutive available samples.
// The baseline survives unavailable samples and is never lowered,
// so a noisy dip followed by a recovery is not counted twice.
type Detector struct {
	lastKnownGood uint64
	known         bool
}

func New() *Detector {
	return &Detector{}
}

// Observes the next sample and returns the increase over the baseline, if any.
func (d *Detector) Observe(sample holder.Sample) (holder.Delta, bool) {
	value, ok := sample.Value()
	if !ok {
		return 0, false
	}

	// first reading establishes baseline
	if !d.known {
		d.lastKnownGood = value
		d.known = true
		return 0, false
	}

	if value <= d.lastKnownGood {
		return 0, false
	}

	delta := holder.Delta(value - d.lastKnownGood)
	d.lastKnownGood = value

	return delta, true
}

// Forgets the baseline.
func (d *Detector) Reset() {
	d.lastKnownGood = 0
	d.known = false
}

// Returns the current baseline, false until the first available sample.
func (d *Detector) Baseline() (uint64, bool) {
	return d.lastKnownGood, d.known
}
