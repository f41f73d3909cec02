package exercise

import "time"

// Guide is the pacer's answer for one moment of an exercise.
type Guide struct {
	Exercise  string `json:"exercise"`
	Step      Step   `json:"step,omitempty"` // Empty once done
	Label     string `json:"label,omitempty"`
	Remaining int    `json:"remaining"` // Countdown seconds left in the step
	Cycle     int    `json:"cycle"`     // Completed cycles
	Done      bool   `json:"done"`
}

// Pacer maps elapsed time onto an exercise's cycle. It holds no clock, so
// any caller (HTTP handler, session loop, test) can ask about any instant.
type Pacer struct {
	exercise Exercise
	segments []Segment
	cycle    time.Duration
}

// NewPacer creates a pacer for the exercise.
func NewPacer(ex Exercise) (*Pacer, error) {
	if err := ex.Pattern.Validate(); err != nil {
		return nil, err
	}
	return &Pacer{
		exercise: ex,
		segments: ex.Pattern.Segments(),
		cycle:    ex.Pattern.CycleDuration(),
	}, nil
}

// Total returns the full length of the exercise, or 0 when it is endless.
func (p *Pacer) Total() time.Duration {
	return time.Duration(p.exercise.TargetCycles) * p.cycle
}

// At returns the guided step at the given time since the exercise started.
// Negative elapsed is treated as the start.
func (p *Pacer) At(elapsed time.Duration) Guide {
	if elapsed < 0 {
		elapsed = 0
	}

	g := Guide{
		Exercise: p.exercise.ID,
		Cycle:    int(elapsed / p.cycle),
	}

	if target := p.exercise.TargetCycles; target > 0 && g.Cycle >= target {
		g.Cycle = target
		g.Done = true
		return g
	}

	offset := elapsed % p.cycle
	for _, seg := range p.segments {
		if offset < seg.Duration {
			g.Step = seg.Step
			g.Label = seg.Step.Label()
			// Countdown starts at the full step length and ticks once per second
			g.Remaining = int((seg.Duration - offset.Truncate(time.Second)) / time.Second)
			return g
		}
		offset -= seg.Duration
	}

	// Unreachable for a validated pattern
	return g
}
