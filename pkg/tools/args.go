package tools

import (
	"fmt"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// decodeArgs decodes loosely typed step arguments into a typed struct.
// Numbers given as strings or json.Number are accepted.
func decodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgs, err)
	}
	return nil
}

// required returns an error result for a missing argument.
func required(tool, name string) domain.ToolResult {
	return domain.Failure(fmt.Sprintf("%s: missing %s", tool, name), fmt.Errorf("%w: %s is required", domain.ErrInvalidArgs, name))
}
