package validation

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Built-in validator names used by form definitions.
const (
	NameNotEmpty    = "not-empty"
	NameDigits      = "digits"
	NameCardNumber  = "card-number"
	NameDate        = "date"
	NameSelection   = "selection"
	NameContract    = "contract-duration"
	NameRole        = "personnel-role"
	NameGender      = "gender"
	NameSkillUnique = "skill-duplication"
)

// Registry stores field and cross-field validators by name. Duplicate names
// are rejected so definitions cannot silently shadow a built-in.
type Registry struct {
	mu    sync.RWMutex
	field map[string]Validator
	cross map[string]CrossValidator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		field: make(map[string]Validator),
		cross: make(map[string]CrossValidator),
	}
}

// NewDefaultRegistry returns a registry with the built-in validators.
func NewDefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.MustRegister(NameNotEmpty, NotEmpty)
	reg.MustRegister(NameDigits, IsDigit)
	reg.MustRegister(NameCardNumber, CardNumber)
	reg.MustRegister(NameDate, Date)
	reg.MustRegisterCross(NameSelection, SelectionRule)
	reg.MustRegisterCross(NameContract, ContractDurationRule)
	reg.MustRegisterCross(NameRole, PersonnelRoleRule)
	reg.MustRegisterCross(NameGender, GenderRule)
	reg.MustRegisterCross(NameSkillUnique, SkillDuplicationRule)
	return reg
}

// Register adds a field validator.
func (r *Registry) Register(name string, fn Validator) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("validation: validator name is required")
	}
	if fn == nil {
		return fmt.Errorf("validation: validator %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.field[name]; exists {
		return fmt.Errorf("validation: validator %q already registered", name)
	}
	r.field[name] = fn
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(name string, fn Validator) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// RegisterCross adds a cross-field validator.
func (r *Registry) RegisterCross(name string, fn CrossValidator) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("validation: validator name is required")
	}
	if fn == nil {
		return fmt.Errorf("validation: cross validator %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cross[name]; exists {
		return fmt.Errorf("validation: cross validator %q already registered", name)
	}
	r.cross[name] = fn
	return nil
}

// MustRegisterCross panics on registration failure.
func (r *Registry) MustRegisterCross(name string, fn CrossValidator) {
	if err := r.RegisterCross(name, fn); err != nil {
		panic(err)
	}
}

// Get retrieves a field validator by name.
func (r *Registry) Get(name string) (Validator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.field[name]
	if !ok {
		return nil, fmt.Errorf("validation: validator %q not found", name)
	}
	return fn, nil
}

// GetCross retrieves a cross-field validator by name.
func (r *Registry) GetCross(name string) (CrossValidator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.cross[name]
	if !ok {
		return nil, fmt.Errorf("validation: cross validator %q not found", name)
	}
	return fn, nil
}

// Has reports whether a field validator is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.field[name]
	return ok
}

// HasCross reports whether a cross-field validator is registered.
func (r *Registry) HasCross(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.cross[name]
	return ok
}

// List returns the sorted names of every registered validator.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.field)+len(r.cross))
	for name := range r.field {
		names = append(names, name)
	}
	for name := range r.cross {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
