package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Catalog is the set of paths and the records they own. Ownership lives on the
// child records only; per-path lists are derived by filtering.
type Catalog struct {
	Paths       []Path       `json:"paths" validate:"dive"`
	Containers  []Container  `json:"containers" validate:"dive"`
	EntryPoints []EntryPoint `json:"entry_points" validate:"dive"`
	Limits      []Limit      `json:"limits" validate:"dive"`
}

func (c Catalog) ActivePaths() []Path {
	var res []Path
	for _, p := range c.Paths {
		if p.Active {
			res = append(res, p)
		}
	}
	return res
}

func (c Catalog) Path(id string) (Path, bool) {
	for _, p := range c.Paths {
		if p.ID == id {
			return p, true
		}
	}
	return Path{}, false
}

func (c Catalog) ContainersOf(pathID string) []Container {
	var res []Container
	for _, ct := range c.Containers {
		if ct.PathID == pathID {
			res = append(res, ct)
		}
	}
	return res
}

func (c Catalog) EntryPointsOf(pathID string) []EntryPoint {
	var res []EntryPoint
	for _, e := range c.EntryPoints {
		if e.PathID == pathID {
			res = append(res, e)
		}
	}
	return res
}

// LimitsFor returns the limits eligible for a path: global limits first, then the
// path's own, each group in catalog order.
func (c Catalog) LimitsFor(pathID string) []Limit {
	var global, own []Limit
	for _, l := range c.Limits {
		switch {
		case l.Scope.IsGlobal():
			global = append(global, l)
		case l.Scope.PathID() == pathID:
			own = append(own, l)
		}
	}
	return append(global, own...)
}

// PathNames maps path ids to display names.
func (c Catalog) PathNames() map[string]string {
	res := make(map[string]string, len(c.Paths))
	for _, p := range c.Paths {
		res[p.ID] = p.Name
	}
	return res
}

// ValidateColor applies the same rule as Path.Color: empty or a hex color.
func ValidateColor(color string) error {
	return validate.Var(color, "omitempty,hexcolor")
}

// Validate checks field rules, id uniqueness, path name uniqueness and that every
// path-scoped record points at an existing path.
func (c Catalog) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}
	var errs []error
	paths := map[string]bool{}
	names := map[string]bool{}
	for _, p := range c.Paths {
		if paths[p.ID] {
			errs = append(errs, fmt.Errorf("duplicate path id %s", p.ID))
		}
		paths[p.ID] = true
		key := NormalizeName(p.Name)
		if names[key] {
			errs = append(errs, fmt.Errorf("duplicate path name %q", p.Name))
		}
		names[key] = true
	}
	seen := map[string]bool{}
	check := func(kind, id, pathID string) {
		if seen[kind+"/"+id] {
			errs = append(errs, fmt.Errorf("duplicate %s id %s", kind, id))
		}
		seen[kind+"/"+id] = true
		if !paths[pathID] {
			errs = append(errs, fmt.Errorf("%s %s references unknown path %s", kind, id, pathID))
		}
	}
	for _, ct := range c.Containers {
		check("container", ct.ID, ct.PathID)
	}
	for _, e := range c.EntryPoints {
		check("entry point", e.ID, e.PathID)
	}
	for _, l := range c.Limits {
		if l.Scope.IsGlobal() {
			if seen["limit/"+l.ID] {
				errs = append(errs, fmt.Errorf("duplicate limit id %s", l.ID))
			}
			seen["limit/"+l.ID] = true
			continue
		}
		check("limit", l.ID, l.Scope.PathID())
	}
	return errors.Join(errs...)
}

// NormalizeName is the comparison key for path name uniqueness.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Snapshot is the full persisted data set, used for JSON export and import.
type Snapshot struct {
	Catalog
	Prompts  []Prompt `json:"prompts" validate:"dive"`
	Logs     []Log    `json:"logs" validate:"dive"`
	Settings Settings `json:"settings"`
}

func (s Snapshot) Validate() error {
	if err := s.Catalog.Validate(); err != nil {
		return err
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}
	return s.Settings.Validate()
}
