package plan

import (
	"bytes"
	"fmt"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ParsePlan reads a plan written as JSON or YAML: either a list of steps or an
// object with a steps field.
func ParsePlan(data []byte) (domain.Plan, error) {
	raw, err := decodeDocument(data)
	if err != nil {
		return domain.Plan{}, err
	}

	var p domain.Plan
	switch v := raw.(type) {
	case []any:
		err = decodeWeak(v, &p.Steps)
	case map[string]any:
		if _, ok := v["steps"]; !ok {
			return domain.Plan{}, fmt.Errorf("plan has no steps field")
		}
		err = decodeWeak(v, &p)
	default:
		return domain.Plan{}, fmt.Errorf("plan must be a list of steps or an object with steps, got %T", raw)
	}
	if err != nil {
		return domain.Plan{}, fmt.Errorf("failed to decode plan: %w", err)
	}

	for i, s := range p.Steps {
		if s.Tool == "" {
			return domain.Plan{}, fmt.Errorf("step %d has no tool", i)
		}
	}
	return p, nil
}

// ParseIntents reads planner output: a list of intents or an object with steps.
func ParseIntents(data []byte) ([]Intent, error) {
	raw, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	if m, ok := raw.(map[string]any); ok {
		raw = m["steps"]
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("intents must be a list, got %T", raw)
	}

	var intents []Intent
	if err := decodeWeak(list, &intents); err != nil {
		return nil, fmt.Errorf("failed to decode intents: %w", err)
	}
	return intents, nil
}

func decodeDocument(data []byte) (any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty plan")
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	return raw, nil
}

func decodeWeak(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
