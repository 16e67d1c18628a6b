package firmware

import (
	"strings"
	"sync"
)

// HardwareType is a short classification code identifying a device's
// silicon/radio variant, derived from its model string. The closed set of
// codes includes the empty string for legacy devices whose firmware keys
// carry no type token.
type HardwareType string

// HardwareTypeLegacy is the empty code of first-generation devices.
const HardwareTypeLegacy HardwareType = ""

// ClassifierEntry maps a hardware-type code to the substrings that identify
// it in a device model string.
type ClassifierEntry struct {
	Code    HardwareType `json:"code" mapstructure:"code"`
	Matches []string     `json:"matches" mapstructure:"matches"`
}

// DefaultClassifierEntries is the built-in classification table. The slice
// order IS the classification order and is part of the configuration:
// entries are checked first to last and the first code with any matching
// substring wins. The substrings are not mutually exclusive (a model like
// "NOTE-NBGL-500" contains both an "NB" and a "500" token), so "u5" must
// stay ahead of the legacy entry or such models change classification.
func DefaultClassifierEntries() []ClassifierEntry {
	return []ClassifierEntry{
		{Code: "u5", Matches: []string{"NB", "MB", "WB"}},
		{Code: "s3", Matches: []string{"ESP"}},
		{Code: HardwareTypeLegacy, Matches: []string{"500"}},
	}
}

// Classifier maps a device model string to a hardware-type code by ordered
// first-match substring containment. The table can be swapped at runtime
// (config hot reload); classification itself is lock-free beyond a read
// lock and never mutates the table.
type Classifier struct {
	mu      sync.RWMutex
	entries []ClassifierEntry
}

// NewClassifier creates a classifier with the given table, or the built-in
// default table when entries is empty.
func NewClassifier(entries []ClassifierEntry) *Classifier {
	if len(entries) == 0 {
		entries = DefaultClassifierEntries()
	}
	return &Classifier{entries: entries}
}

// Classify returns the hardware-type code for a device model string.
// Matching is case-sensitive substring containment, checked in declared
// table order; the first code whose any substring is found wins. An empty
// or unmatched model yields UnknownHardwareTypeError.
func (c *Classifier) Classify(model string) (HardwareType, error) {
	if model == "" {
		return "", &UnknownHardwareTypeError{Model: model}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, entry := range c.entries {
		for _, sub := range entry.Matches {
			if strings.Contains(model, sub) {
				return entry.Code, nil
			}
		}
	}

	return "", &UnknownHardwareTypeError{Model: model}
}

// Codes returns every code in the current table, in table order. The
// resolver uses the non-empty codes to recognize legacy keys.
func (c *Classifier) Codes() []HardwareType {
	c.mu.RLock()
	defer c.mu.RUnlock()

	codes := make([]HardwareType, len(c.entries))
	for i, entry := range c.entries {
		codes[i] = entry.Code
	}
	return codes
}

// Replace atomically swaps the classification table. Empty input is
// rejected by keeping the current table.
func (c *Classifier) Replace(entries []ClassifierEntry) {
	if len(entries) == 0 {
		return
	}

	copied := make([]ClassifierEntry, len(entries))
	copy(copied, entries)

	c.mu.Lock()
	c.entries = copied
	c.mu.Unlock()
}
