package exercise

import (
	"fmt"
	"slices"
	"sort"
	"sync"
)

// builtIn is the stock catalog.
var builtIn = []Exercise{
	{
		ID:          "4-7-8",
		Name:        "4-7-8 Relaxation",
		Description: "Calming breath technique for sleep and anxiety",
		Pattern:     Pattern{Inhale: 4, Hold: 7, Exhale: 8},
		Benefits:    []string{"Reduces anxiety", "Promotes sleep", "Calms nervous system"},
		Difficulty:  Easy,
	},
	{
		ID:           "box",
		Name:         "Box Breathing",
		Description:  "Square breathing for focus and stress management",
		Pattern:      Pattern{Inhale: 4, Hold: 4, Exhale: 4, HoldAfter: 4},
		Benefits:     []string{"Improves focus", "Reduces stress", "Enhances performance"},
		Difficulty:   Medium,
		TargetCycles: 4,
	},
	{
		ID:           "calm",
		Name:         "Calm Breathing",
		Description:  "Simple deep breathing for instant relaxation",
		Pattern:      Pattern{Inhale: 5, Exhale: 5},
		Benefits:     []string{"Quick relaxation", "Lowers heart rate", "Easy to do anywhere"},
		Difficulty:   Easy,
		TargetCycles: 5,
	},
	{
		ID:          "energize",
		Name:        "Energizing Breath",
		Description: "Quick breathing to boost energy and alertness",
		Pattern:     Pattern{Inhale: 3, Exhale: 6},
		Benefits:    []string{"Increases energy", "Improves alertness", "Boosts mood"},
		Difficulty:  Easy,
	},
	{
		ID:          "coherent",
		Name:        "Coherent Breathing",
		Description: "Steady six second breathing for heart-brain coherence",
		Pattern:     Pattern{Inhale: 6, Exhale: 6},
		Benefits:    []string{"Balances nervous system", "Improves HRV", "Reduces blood pressure"},
		Difficulty:  Medium,
	},
	{
		ID:          "alternate",
		Name:        "Alternate Nostril",
		Description: "Yogic breathing for balance and clarity",
		Pattern:     Pattern{Inhale: 4, Hold: 4, Exhale: 4},
		Benefits:    []string{"Balances energy", "Clears mind", "Reduces anxiety"},
		Difficulty:  Advanced,
	},
}

// Registry holds the available exercises keyed by ID.
type Registry struct {
	mu        sync.RWMutex
	exercises map[string]Exercise
	order     []string
}

// NewRegistry creates a registry preloaded with the built-in catalog.
func NewRegistry() *Registry {
	r := &Registry{exercises: make(map[string]Exercise)}
	for _, ex := range builtIn {
		// Built-ins are known good
		_ = r.Register(ex)
	}
	return r
}

// Register adds or replaces an exercise.
func (r *Registry) Register(ex Exercise) error {
	if ex.ID == "" {
		return fmt.Errorf("exercise id must not be empty")
	}
	if err := ex.Pattern.Validate(); err != nil {
		return fmt.Errorf("exercise %q: %w", ex.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.exercises[ex.ID]; !exists {
		r.order = append(r.order, ex.ID)
	}
	ex.Benefits = slices.Clone(ex.Benefits)
	r.exercises[ex.ID] = ex
	return nil
}

// Get retrieves an exercise by ID.
func (r *Registry) Get(id string) (Exercise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ex, ok := r.exercises[id]
	if !ok {
		return Exercise{}, fmt.Errorf("%w: %s", ErrUnknownExercise, id)
	}
	return ex, nil
}

// List returns all exercises in registration order.
func (r *Registry) List() []Exercise {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Exercise, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.exercises[id])
	}
	return out
}

// IDs returns all exercise IDs, sorted alphabetically.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := slices.Clone(r.order)
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered exercises.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.exercises)
}
