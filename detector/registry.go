package detector

import (
	"os"
	"sort"

	"github.com/pkg/errors"
)

var (
	// ErrMissingWeights is returned when a registration's weights file does not exist.
	ErrMissingWeights = errors.New("model weights not found")
	// ErrDuplicateName is returned when two registrations share a name.
	ErrDuplicateName = errors.New("duplicate detector name")
	// ErrUnknownKind is returned when no factory is registered for a kind.
	ErrUnknownKind = errors.New("unknown detector kind")
)

// Kind selects the backend that runs a model's weights.
type Kind string

// Registration is one entry of the fixed detector list.
type Registration struct {
	Name    string `json:"name"    yaml:"name"    mapstructure:"name"`
	Kind    Kind   `json:"kind"    yaml:"kind"    mapstructure:"kind"`
	Weights string `json:"weights" yaml:"weights" mapstructure:"weights"`
}

// Factory loads the model described by a registration.
type Factory func(reg Registration) (Model, error)

// Registry maps detector kinds to the factories that load them.
type Registry struct {
	factories map[Kind]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Kind]Factory)}
}

// Register adds or replaces the factory for a kind.
func (r *Registry) Register(kind Kind, factory Factory) {
	r.factories[kind] = factory
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Build creates the detectors for a registration list, preserving its order.
//
// Every registration is validated before any model is loaded. If loading a
// later model fails, the models already loaded are closed.
//
// Arguments:
//   - regs: The ordered registration list.
//
// Returns:
//   - []Detector: One detector per registration.
//   - error: ErrDuplicateName, ErrUnknownKind, ErrMissingWeights or the
//     factory's error.
func (r *Registry) Build(regs []Registration) ([]Detector, error) {
	seen := make(map[string]bool, len(regs))
	for _, reg := range regs {
		if reg.Name == "" {
			return nil, errors.New("detector name is empty")
		}
		if seen[reg.Name] {
			return nil, errors.Wrap(ErrDuplicateName, reg.Name)
		}
		seen[reg.Name] = true

		if _, ok := r.factories[reg.Kind]; !ok {
			return nil, errors.Wrapf(ErrUnknownKind, "%q for %s", reg.Kind, reg.Name)
		}
		if _, err := os.Stat(reg.Weights); err != nil {
			return nil, errors.Wrapf(ErrMissingWeights, "%s: %s", reg.Name, reg.Weights)
		}
	}

	detectors := make([]Detector, 0, len(regs))
	for _, reg := range regs {
		model, err := r.factories[reg.Kind](reg)
		if err != nil {
			_ = Close(detectors)
			return nil, errors.Wrapf(err, "failed to load %s", reg.Name)
		}
		detectors = append(detectors, Detector{Name: reg.Name, Model: model})
	}

	return detectors, nil
}
