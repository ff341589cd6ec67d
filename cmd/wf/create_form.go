package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/weftlabs/weft/internal/types"
)

// runCreateForm fills the unit from an interactive terminal form.
//
// Keyboard navigation:
//   - Tab/Shift+Tab: move between fields
//   - Enter: submit (on the last field)
//   - Ctrl+C: cancel
func runCreateForm(unit *types.WorkUnit) error {
	var (
		typeStr     = string(types.TypeStory)
		tagsInput   string
		estimateStr string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&unit.Title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("title is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Type").
				Options(
					huh.NewOption("Story", string(types.TypeStory)),
					huh.NewOption("Bug", string(types.TypeBug)),
					huh.NewOption("Task", string(types.TypeTask)),
				).
				Value(&typeStr),
			huh.NewInput().
				Title("Tags").
				Description("comma-separated, optional").
				Value(&tagsInput),
			huh.NewInput().
				Title("Epic").
				Description("optional").
				Value(&unit.Epic),
			huh.NewInput().
				Title("Estimate").
				Description("points, optional").
				Value(&estimateStr).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					if _, err := strconv.Atoi(s); err != nil {
						return fmt.Errorf("estimate must be a number")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewText().
				Title("Description").
				Description("markdown, optional").
				Value(&unit.Description),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	unit.Type = types.UnitType(typeStr)
	if tagsInput != "" {
		for _, t := range strings.Split(tagsInput, ",") {
			if t = strings.TrimSpace(t); t != "" {
				unit.Tags = append(unit.Tags, t)
			}
		}
	}
	if estimateStr != "" {
		est, _ := strconv.Atoi(estimateStr)
		unit.Estimate = &est
	}
	return nil
}
