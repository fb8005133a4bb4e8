package domain

// Object fields accepted by the object store's Update.
const (
	FieldSegmentationPath  = "segmentation_path"
	FieldSkeletonPath      = "skeleton_path"
	FieldVisualizationPath = "visualization_path"
)

// Object tracks the lineage of one input image within a process.
type Object struct {
	ID                string   `json:"id"`
	OriginalPath      string   `json:"original_path"`
	SegmentationPath  string   `json:"segmentation_path,omitempty"`
	SkeletonPath      string   `json:"skeleton_path,omitempty"`
	VisualizationPath string   `json:"visualization_path,omitempty"`
	Status            []string `json:"status"`
}

// HasStatus reports whether the object carries the tag.
func (o Object) HasStatus(tag string) bool {
	for _, s := range o.Status {
		if s == tag {
			return true
		}
	}
	return false
}
