// Package objects tracks the lineage of input images within one process.
package objects

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/cracklens/pkg/domain"
)

// Store maps object ids to the artifacts derived from one input image.
// It is not persisted; the memory controller is the durable record.
type Store struct {
	mu      sync.RWMutex
	objects map[string]*domain.Object
	order   []string
	next    int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{objects: make(map[string]*domain.Object)}
}

// RegisterImage creates an object for an original image and returns its id.
// Ids are assigned monotonically as image_001, image_002, ...
func (s *Store) RegisterImage(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	id := fmt.Sprintf("image_%03d", s.next)
	s.objects[id] = &domain.Object{ID: id, OriginalPath: path, Status: []string{}}
	s.order = append(s.order, id)
	return id
}

// Update sets one artifact path of an object.
func (s *Store) Update(id, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrObjectNotFound, id)
	}
	switch field {
	case domain.FieldSegmentationPath:
		obj.SegmentationPath = value
	case domain.FieldSkeletonPath:
		obj.SkeletonPath = value
	case domain.FieldVisualizationPath:
		obj.VisualizationPath = value
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownField, field)
	}
	return nil
}

// AddStatus appends a status tag unless the object already carries it.
func (s *Store) AddStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrObjectNotFound, id)
	}
	if !obj.HasStatus(status) {
		obj.Status = append(obj.Status, status)
	}
	return nil
}

// Get returns a copy of the object.
func (s *Store) Get(id string) (domain.Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[id]
	if !ok {
		return domain.Object{}, false
	}
	c := *obj
	c.Status = append([]string(nil), obj.Status...)
	return c, true
}

// List returns copies of every object in registration order.
func (s *Store) List() []domain.Object {
	s.mu.RLock()
	ids := append([]string(nil), s.order...)
	s.mu.RUnlock()

	out := make([]domain.Object, 0, len(ids))
	for _, id := range ids {
		if obj, ok := s.Get(id); ok {
			out = append(out, obj)
		}
	}
	return out
}

// FindByImagePath returns the id of the object registered for path.
func (s *Store) FindByImagePath(path string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clean := filepath.Clean(path)
	for _, id := range s.order {
		if filepath.Clean(s.objects[id].OriginalPath) == clean {
			return id, true
		}
	}
	return "", false
}

// FindByMaskPath returns the object whose segmentation path ends with the base name
// of path. Mask names derive from image names, so the basename is enough to correlate.
func (s *Store) FindByMaskPath(path string) (string, bool) {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return "", false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		seg := s.objects[id].SegmentationPath
		if seg != "" && strings.HasSuffix(seg, base) {
			return id, true
		}
	}
	return "", false
}

// FindBySubject returns the object whose original image has the given stem.
func (s *Store) FindBySubject(subject string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		if domain.Stem(s.objects[id].OriginalPath) == subject {
			return id, true
		}
	}
	return "", false
}

// FindByStatus returns the sorted ids of objects tagged with status.
func (s *Store) FindByStatus(status string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := []string{}
	for id, obj := range s.objects {
		if obj.HasStatus(status) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
