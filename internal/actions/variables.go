package actions

import (
	"fmt"
	"sync"

	"jordanella.com/offer-story-go/internal/cv"
)

// VariableStore is a thread-safe implementation of VariableStoreInterface
type VariableStore struct {
	mu   sync.RWMutex
	vars map[string]string
}

// NewVariableStore creates a new variable store
func NewVariableStore() *VariableStore {
	return &VariableStore{
		vars: make(map[string]string),
	}
}

// NewVariableStoreFrom creates a store seeded with values
func NewVariableStoreFrom(values map[string]string) *VariableStore {
	vs := NewVariableStore()
	for k, v := range values {
		vs.vars[k] = v
	}
	return vs
}

func (vs *VariableStore) Set(name string, value string) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	vs.vars[name] = value
}

func (vs *VariableStore) Get(name string) (string, bool) {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	val, ok := vs.vars[name]
	return val, ok
}

func (vs *VariableStore) Has(name string) bool {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	_, ok := vs.vars[name]
	return ok
}

func (vs *VariableStore) Delete(name string) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	delete(vs.vars, name)
}

func (vs *VariableStore) GetAll() map[string]string {
	vs.mu.RLock()
	defer vs.mu.RUnlock()
	// Return a copy to prevent external modification
	copy := make(map[string]string, len(vs.vars))
	for k, v := range vs.vars {
		copy[k] = v
	}
	return copy
}

// RegionMemory keeps located regions between steps, so a routine can act
// on an element after its appearance changed
type RegionMemory struct {
	mu      sync.RWMutex
	regions map[string]cv.Region
}

func NewRegionMemory() *RegionMemory {
	return &RegionMemory{regions: make(map[string]cv.Region)}
}

func (m *RegionMemory) Remember(name string, region cv.Region) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regions[name] = region
}

func (m *RegionMemory) Recall(name string) (cv.Region, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	region, ok := m.regions[name]
	if !ok {
		return cv.Region{}, fmt.Errorf("no region remembered as '%s'", name)
	}
	return region, nil
}

func (m *RegionMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regions = make(map[string]cv.Region)
}

// SetVariable sets a variable to a specific value
type SetVariable struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

func (a *SetVariable) Validate(ab *ActionBuilder) error {
	if a.Name == "" {
		return fmt.Errorf("SetVariable: name is required")
	}
	// Value can be empty string, so no validation needed
	return nil
}

func (a *SetVariable) Build(ab *ActionBuilder) *ActionBuilder {
	return ab.add(Step{
		name: fmt.Sprintf("SetVariable (%s)", a.Name),
		execute: func(bot BotInterface) error {
			value, err := InterpolateString(a.Value, bot)
			if err != nil {
				return fmt.Errorf("SetVariable: %w", err)
			}
			bot.Variables().Set(a.Name, value)
			return nil
		},
		issue: a.Validate(ab),
	})
}
