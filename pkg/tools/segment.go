package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/registry"
)

type segmentArgs struct {
	ImagePath string `mapstructure:"image_path"`
}

// Segment returns the segmentation tool. The mask is written to the masks directory
// under the image's base name, so masks can be traced back to their images.
func Segment(deps Deps) registry.ToolFunc {
	return func(ctx context.Context, args map[string]any) (domain.ToolResult, error) {
		var a segmentArgs
		if err := decodeArgs(args, &a); err != nil {
			return domain.Failure("segmentation failed", err), nil
		}
		if a.ImagePath == "" {
			return required(domain.ToolSegment, domain.ArgImagePath), nil
		}
		if _, err := os.Stat(a.ImagePath); err != nil {
			return domain.Failure("segmentation failed", fmt.Errorf("%w: image %s", domain.ErrMissingArtifact, a.ImagePath)), nil
		}
		if deps.Segmenter == nil {
			return domain.Failure("segmentation failed", fmt.Errorf("no segmenter configured")), nil
		}

		mask := deps.Layout.MaskPath(domain.Stem(a.ImagePath))
		if err := os.MkdirAll(filepath.Dir(mask), 0755); err != nil {
			return domain.ToolResult{}, fmt.Errorf("failed to ensure mask directory: %w", err)
		}

		deps.logger().DebugContext(ctx, "Segmenting image", "image", a.ImagePath, "mask", mask)
		if err := deps.Segmenter.Segment(ctx, a.ImagePath, mask); err != nil {
			return domain.Failure("segmentation failed", err), nil
		}
		if _, err := os.Stat(mask); err != nil {
			return domain.Failure("segmentation failed", fmt.Errorf("%w: mask was not written: %s", domain.ErrMissingArtifact, mask)), nil
		}

		return domain.Success("Segmentation complete; mask saved", map[string]any{domain.KeyMaskPath: mask}), nil
	}
}
