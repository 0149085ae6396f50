// Package doctor reports whether this machine can run sctrace and why not.
package doctor

import (
	"errors"
	"fmt"
	"io"

	"github.com/majorcontext/sctrace/internal/ui"
)

// ErrCheckFailed is returned by a section whose own output already explains
// what is wrong. Registry.Print counts it without repeating it.
var ErrCheckFailed = errors.New("check failed")

// Section represents a diagnostic section that can be printed.
type Section interface {
	// Name returns the section name (e.g., "Ptrace")
	Name() string

	// Print outputs the section's diagnostic information to the writer.
	// Returns an error if the section fails to generate diagnostics.
	Print(w io.Writer) error
}

// Registry holds all registered doctor sections.
type Registry struct {
	sections []Section
}

// NewRegistry creates a new doctor section registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a section to the registry.
func (r *Registry) Register(s Section) {
	r.sections = append(r.sections, s)
}

// Sections returns all registered sections.
func (r *Registry) Sections() []Section {
	return r.sections
}

// Print writes every section under its heading. A failing section does not
// stop the others; the number of failures is returned.
func (r *Registry) Print(w io.Writer) int {
	failed := 0
	for _, section := range r.sections {
		ui.Section(w, section.Name())
		if err := section.Print(w); err != nil {
			if !errors.Is(err, ErrCheckFailed) {
				fmt.Fprintf(w, "%s Error: %v\n", ui.FailTag(), err)
			}
			failed++
		}
		fmt.Fprintln(w)
	}
	return failed
}
