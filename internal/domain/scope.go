package domain

import (
	"encoding/json"
	"fmt"
)

// GlobalScopeID is the wire and storage spelling of the global limit scope.
const GlobalScopeID = "GLOBAL"

// LimitScope says which prompts a limit may be attached to: every path (global)
// or exactly one path. The zero value is global.
type LimitScope struct {
	pathID string
}

func GlobalScope() LimitScope { return LimitScope{} }

func PathScope(pathID string) LimitScope { return LimitScope{pathID: pathID} }

// ParseLimitScope maps the stored representation back to a scope.
func ParseLimitScope(s string) LimitScope {
	if s == "" || s == GlobalScopeID {
		return GlobalScope()
	}
	return PathScope(s)
}

func (s LimitScope) IsGlobal() bool { return s.pathID == "" }

// PathID returns the owning path, or "" for a global scope.
func (s LimitScope) PathID() string { return s.pathID }

// AppliesTo reports whether a limit with this scope is eligible for the path.
func (s LimitScope) AppliesTo(pathID string) bool {
	return s.IsGlobal() || s.pathID == pathID
}

func (s LimitScope) Equal(o LimitScope) bool { return s.pathID == o.pathID }

func (s LimitScope) String() string {
	if s.IsGlobal() {
		return GlobalScopeID
	}
	return s.pathID
}

func (s LimitScope) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *LimitScope) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("limit scope: %w", err)
	}
	*s = ParseLimitScope(raw)
	return nil
}
