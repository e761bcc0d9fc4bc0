// SPDX-License-Identifier: MPL-2.0

package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
)

// filterThreshold is the entry count above which the picker switches from a
// plain select to the fuzzy filter list.
const filterThreshold = 10

// Entry is one selectable row of the picker. Entries are shown exactly in
// the order given, which for scripts is the manifest's declaration order.
type Entry struct {
	// Title is the display label, e.g. "build" or "my-app: build".
	Title string
	// Detail is the command preview shown next to the title.
	Detail string
}

// Label renders the entry's display string.
func (e Entry) Label() string {
	if e.Detail == "" {
		return e.Title
	}
	return fmt.Sprintf("%s · %s", e.Title, e.Detail)
}

// PickEntry prompts the user to select one entry and returns its index.
// Small sets get a plain select; larger ones the fuzzy filter. Dismissing
// the prompt returns ErrAborted.
func PickEntry(title string, entries []Entry, cfg Config) (int, error) {
	if len(entries) == 0 {
		return 0, fmt.Errorf("nothing to select from")
	}
	if len(entries) > filterThreshold && !cfg.Accessible {
		return FilterEntry(title, entries, cfg)
	}
	return ChooseEntry(title, entries, cfg)
}

// ChooseEntry presents a single-select prompt over the entries and returns
// the chosen index.
func ChooseEntry(title string, entries []Entry, cfg Config) (int, error) {
	opts := make([]huh.Option[int], len(entries))
	for i, e := range entries {
		opts[i] = huh.NewOption(e.Label(), i)
	}

	var selected int
	sel := huh.NewSelect[int]().
		Title(title).
		Options(opts...).
		Value(&selected)

	form := huh.NewForm(huh.NewGroup(sel)).
		WithAccessible(cfg.Accessible)
	if cfg.Output != nil {
		form = form.WithOutput(cfg.Output)
	}

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return 0, ErrAborted
		}
		return 0, fmt.Errorf("script selection: %w", err)
	}

	return selected, nil
}
