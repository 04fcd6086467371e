// Package session holds the mutable state of one interactive run: the
// loaded dataset, column aliases, adjustable settings, and the colorbar
// scale memory that keeps map renderings comparable across commands.
package session

import (
	"sort"
	"strings"

	"echocli/internal/dataset"
)

// Session is the state shared by all commands of one run. It is not
// safe for concurrent use; the command loop is single-threaded.
type Session struct {
	data     *dataset.Dataset
	aliases  map[string]string
	settings map[string]string
	derived  map[string]bool
	scales   *ScaleMemory
}

// New creates an empty session seeded with the given settings.
func New(settings map[string]string) *Session {
	s := &Session{
		aliases:  make(map[string]string),
		settings: make(map[string]string),
		derived:  make(map[string]bool),
		scales:   NewScaleMemory(),
	}
	for k, v := range settings {
		s.settings[k] = v
	}
	return s
}

// Dataset returns the loaded dataset, or nil before the first load.
func (s *Session) Dataset() *dataset.Dataset {
	return s.data
}

// HasData reports whether a dataset has been loaded.
func (s *Session) HasData() bool {
	return s.data != nil
}

// ReplaceDataset installs a freshly loaded dataset. Variables derived
// from the previous dataset by create/calc no longer exist, so their
// registrations are dropped; the returned names let the caller warn
// about aliases and habits that now dangle.
func (s *Session) ReplaceDataset(d *dataset.Dataset) []string {
	s.data = d
	if len(s.derived) == 0 {
		return nil
	}
	dropped := make([]string, 0, len(s.derived))
	for name := range s.derived {
		dropped = append(dropped, name)
	}
	sort.Strings(dropped)
	s.derived = make(map[string]bool)
	return dropped
}

// SetDataset swaps the dataset in place, keeping derived registrations.
// Aggregation and transformation tasks use this to update the working
// dataset without resetting create/calc bookkeeping.
func (s *Session) SetDataset(d *dataset.Dataset) {
	s.data = d
}

// RecordDerived registers a column created by create/calc so it can be
// reported as lost when the dataset is reloaded.
func (s *Session) RecordDerived(name string) {
	s.derived[name] = true
}

// DerivedVariables lists the registered derived columns in sorted order.
func (s *Session) DerivedVariables() []string {
	out := make([]string, 0, len(s.derived))
	for name := range s.derived {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// SetAlias binds a short name to a column. Re-binding overwrites.
func (s *Session) SetAlias(short, column string) {
	s.aliases[strings.ToLower(short)] = column
}

// Aliases returns a copy of the alias table.
func (s *Session) Aliases() map[string]string {
	out := make(map[string]string, len(s.aliases))
	for k, v := range s.aliases {
		out[k] = v
	}
	return out
}

// ResolveColumn maps a user-supplied column reference to a dataset
// column. A name that exists as a literal column always wins; the alias
// table is consulted only for names the dataset does not have, so an
// alias can never shadow real data.
func (s *Session) ResolveColumn(name string) string {
	if s.data != nil && s.data.HasColumn(name) {
		return name
	}
	if target, ok := s.aliases[strings.ToLower(name)]; ok {
		return target
	}
	return name
}

// Set updates a session setting. Unknown keys are accepted; the loader
// and executor read only the keys they know.
func (s *Session) Set(key, value string) {
	s.settings[strings.ToLower(key)] = value
}

// Setting returns the value for key and whether it is present.
func (s *Session) Setting(key string) (string, bool) {
	v, ok := s.settings[strings.ToLower(key)]
	return v, ok
}

// Settings returns a copy of all settings, for display.
func (s *Session) Settings() map[string]string {
	out := make(map[string]string, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out
}

// Scales exposes the colorbar scale memory.
func (s *Session) Scales() *ScaleMemory {
	return s.scales
}
