package events

import (
	"strings"

	"github.com/aura-events/backend/internal/models"
)

const incompleteThreshold = 90

// Shape classifies an event by the kinds of parts it has.
type Shape string

const (
	ShapeMeetingsOnly   Shape = "meetings_only"
	ShapeConferenceOnly Shape = "conference_only"
	ShapeNoParts        Shape = "no_parts"
	ShapeMixed          Shape = "mixed"
)

// Features are the structural facts the completion checklist reads.
type Features struct {
	HasStage      bool
	HasNetworking bool
	Description   string
	PictureURL    string
	PersonaCount  int
	Message       string
}

// Check is one checklist item.
type Check struct {
	Name      string `json:"name"`
	Satisfied bool   `json:"satisfied"`
}

// FeaturesOf gathers Features from an event and its loaded children.
func FeaturesOf(ev *models.Event, parts []models.EventPart, personas []models.Persona) Features {
	f := Features{
		Description:  ev.Description,
		PictureURL:   ev.PictureURL,
		PersonaCount: len(personas),
		Message:      ev.Message,
	}
	for _, p := range parts {
		switch p.PartType {
		case models.PartStage:
			f.HasStage = true
		case models.PartNetworking:
			f.HasNetworking = true
		case models.PartSessions, models.PartExpo:
		}
	}
	return f
}

// Classify maps part presence to a Shape.
func Classify(f Features) Shape {
	switch {
	case f.HasNetworking && !f.HasStage:
		return ShapeMeetingsOnly
	case f.HasStage && !f.HasNetworking:
		return ShapeConferenceOnly
	case !f.HasStage && !f.HasNetworking:
		return ShapeNoParts
	default:
		return ShapeMixed
	}
}

// checklists holds the checklist per shape. All shapes share one list for now.
var checklists = map[Shape]func(Features) []Check{
	ShapeMeetingsOnly:   baseChecklist,
	ShapeConferenceOnly: baseChecklist,
	ShapeNoParts:        baseChecklist,
	ShapeMixed:          baseChecklist,
}

// Checklist evaluates the checks for shape.
func Checklist(shape Shape, f Features) []Check {
	build, ok := checklists[shape]
	if !ok {
		build = baseChecklist
	}
	return build(f)
}

func baseChecklist(f Features) []Check {
	return []Check{
		{Name: "has_registration_area", Satisfied: present(f.Description) && present(f.PictureURL)},
		{Name: "has_tickets", Satisfied: f.PersonaCount >= 1},
		{Name: "has_reception_area", Satisfied: present(f.Message)},
	}
}

// CompletionPercentage is 100 minus the satisfied share of the checklist.
// A fully configured event scores 0 and a bare one scores 100.
func CompletionPercentage(f Features) float64 {
	checks := Checklist(Classify(f), f)
	if len(checks) == 0 {
		return 0
	}
	satisfied := 0
	for _, c := range checks {
		if c.Satisfied {
			satisfied++
		}
	}
	return 100 - float64(satisfied)/float64(len(checks))*100
}

// IsNotComplete reports whether the completion percentage is above 90.
func IsNotComplete(f Features) bool {
	return CompletionPercentage(f) > incompleteThreshold
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}
