package loam

import (
	"github.com/aretw0/cracklens/pkg/domain"
)

// PlanMetadata is the header of a saved plan document.
// It uses "mapstructure" tags to match Frontmatter/YAML keys.
type PlanMetadata struct {
	ID          string        `json:"id" mapstructure:"id"`
	Description string        `json:"description" mapstructure:"description"`
	Steps       []domain.Step `json:"steps" mapstructure:"steps"`

	// Defaults are merged into the args of every step that does not set them.
	Defaults map[string]any `json:"defaults,omitempty" mapstructure:"defaults"`
}
