package formschema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-crmpanel/pkg/model"
	"github.com/goliatone/go-crmpanel/pkg/validation"
)

// ErrUnknownForm is returned when a form id is not defined.
var ErrUnknownForm = errors.New("formschema: unknown form")

// Store holds loaded form definitions keyed by id.
type Store struct {
	forms map[string]model.FormModel
}

// LoadOption configures LoadFS.
type LoadOption func(*loadConfig)

type loadConfig struct {
	registry *validation.Registry
}

// WithRegistry resolves validator names against the supplied registry.
func WithRegistry(reg *validation.Registry) LoadOption {
	return func(cfg *loadConfig) {
		if reg != nil {
			cfg.registry = reg
		}
	}
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// LoadFS walks the filesystem and parses every JSON/YAML form definition.
// When fsys is nil the returned store is empty.
func LoadFS(fsys fs.FS, opts ...LoadOption) (*Store, error) {
	cfg := loadConfig{registry: validation.NewDefaultRegistry()}
	for _, opt := range opts {
		opt(&cfg)
	}

	store := &Store{forms: make(map[string]model.FormModel)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("formschema: read %s: %w", path, err)
		}
		form, err := parseForm(data, path)
		if err != nil {
			return err
		}
		form.ID = strings.TrimSpace(form.ID)
		if err := check(form, path, cfg.registry); err != nil {
			return err
		}
		if _, exists := store.forms[form.ID]; exists {
			return fmt.Errorf("formschema: duplicate form %q (file %s)", form.ID, path)
		}
		store.forms[form.ID] = form
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Form returns the definition for id.
func (s *Store) Form(id string) (model.FormModel, error) {
	if s != nil {
		if form, ok := s.forms[id]; ok {
			return form, nil
		}
	}
	return model.FormModel{}, fmt.Errorf("%w: %s", ErrUnknownForm, id)
}

// List returns every definition sorted by id.
func (s *Store) List() []model.FormModel {
	if s == nil {
		return nil
	}
	out := make([]model.FormModel, 0, len(s.forms))
	for _, form := range s.forms {
		out = append(out, form)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs returns the sorted form ids.
func (s *Store) IDs() []string {
	forms := s.List()
	ids := make([]string, 0, len(forms))
	for _, form := range forms {
		ids = append(ids, form.ID)
	}
	return ids
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func parseForm(data []byte, source string) (model.FormModel, error) {
	var form model.FormModel
	if len(strings.TrimSpace(string(data))) == 0 {
		return form, fmt.Errorf("formschema: file %s is empty", source)
	}
	if err := json.Unmarshal(data, &form); err == nil {
		return form, nil
	}
	form = model.FormModel{}
	if err := yaml.Unmarshal(data, &form); err != nil {
		return model.FormModel{}, fmt.Errorf("formschema: parse %s: %w", source, err)
	}
	return form, nil
}

func check(form model.FormModel, source string, reg *validation.Registry) error {
	if err := structValidator.Struct(form); err != nil {
		return fmt.Errorf("formschema: %s: %w", source, err)
	}

	ids := make(map[string]struct{})
	claim := func(id string) error {
		if _, dup := ids[id]; dup {
			return fmt.Errorf("formschema: form %q (file %s) declares element %q twice", form.ID, source, id)
		}
		ids[id] = struct{}{}
		return nil
	}
	checkField := func(field model.Field) error {
		if !field.Kind.Valid() {
			return fmt.Errorf("formschema: form %q (file %s) field %q has unknown kind %q", form.ID, source, field.ID, field.Kind)
		}
		if err := claim(field.ID); err != nil {
			return err
		}
		if field.Kind == model.KindRadio {
			if len(field.Options) == 0 {
				return fmt.Errorf("formschema: form %q (file %s) radio group %q has no options", form.ID, source, field.ID)
			}
			for _, opt := range field.Options {
				if err := claim(opt.ID); err != nil {
					return err
				}
			}
		}
		for _, name := range field.Validators {
			if !reg.Has(name) {
				return fmt.Errorf("formschema: form %q (file %s) field %q uses unknown validator %q", form.ID, source, field.ID, name)
			}
		}
		return nil
	}

	for _, field := range form.Fields {
		if err := checkField(field); err != nil {
			return err
		}
	}
	for _, section := range form.Sections {
		if err := claim(section.ID); err != nil {
			return err
		}
		for _, field := range section.Template {
			if !model.IsTemplateID(field.ID) {
				return fmt.Errorf("formschema: form %q (file %s) template field %q must end in %q", form.ID, source, field.ID, model.TemplateSuffix)
			}
			if field.Kind == model.KindRadio {
				return fmt.Errorf("formschema: form %q (file %s) template field %q cannot be a radio group", form.ID, source, field.ID)
			}
			if err := checkField(field); err != nil {
				return err
			}
			if err := claim(model.CleanID(field.ID)); err != nil {
				return err
			}
		}
	}
	for _, rule := range form.Rules {
		if !knownKey(form, rule.Anchor, ids) {
			return fmt.Errorf("formschema: form %q (file %s) rule anchor %q is not an element", form.ID, source, rule.Anchor)
		}
		for _, input := range rule.Inputs {
			if !knownKey(form, input, ids) {
				return fmt.Errorf("formschema: form %q (file %s) rule input %q is not an element", form.ID, source, input)
			}
		}
		for _, name := range rule.Validators {
			if !reg.HasCross(name) {
				return fmt.Errorf("formschema: form %q (file %s) rule %q uses unknown validator %q", form.ID, source, rule.Anchor, name)
			}
		}
	}
	return nil
}

func knownKey(form model.FormModel, key string, ids map[string]struct{}) bool {
	if _, ok := ids[key]; ok {
		return true
	}
	_, ok := form.SectionFor(key)
	return ok
}
