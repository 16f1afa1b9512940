// Package envtable holds the environment handed to spawned build tools.
//
// The orchestrator never calls os.Setenv: every variable that should reach
// cargo, rustup, or a build script is recorded in a Table and applied at the
// single point where the child process is created.
package envtable

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Table is a captured set of environment variables. The zero value is not
// usable; use New or Capture.
type Table struct {
	vars  map[string]string
	order []string
}

// New returns an empty table.
func New() *Table {
	return &Table{vars: make(map[string]string)}
}

// Capture snapshots the current process environment into a new table.
func Capture() *Table {
	t := New()
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		t.Set(k, v)
	}
	return t
}

// Set records key=value, preserving first-set ordering for Environ output.
func (t *Table) Set(key, value string) {
	if _, seen := t.vars[key]; !seen {
		t.order = append(t.order, key)
	}
	t.vars[key] = value
}

// Get returns the recorded value and whether the key is present.
func (t *Table) Get(key string) (string, bool) {
	v, ok := t.vars[key]
	return v, ok
}

// Unset removes a key. Removing an absent key is a no-op.
func (t *Table) Unset(key string) {
	if _, ok := t.vars[key]; !ok {
		return
	}
	delete(t.vars, key)
	for i, k := range t.order {
		if k == key {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Environ renders the table in the form accepted by exec.Cmd.Env.
func (t *Table) Environ() []string {
	out := make([]string, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, fmt.Sprintf("%s=%s", k, t.vars[k]))
	}
	return out
}

// Keys returns the recorded keys in sorted order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.vars))
	for k := range t.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	c := New()
	for _, k := range t.order {
		c.Set(k, t.vars[k])
	}
	return c
}
