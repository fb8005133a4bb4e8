package objects_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/aretw0/cracklens/pkg/objects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Lineage(t *testing.T) {
	s := objects.NewStore()

	id := s.RegisterImage("data/Test_images/img01.jpg")
	assert.Equal(t, "image_001", id)
	assert.Equal(t, "image_002", s.RegisterImage("data/Test_images/img02.jpg"))

	require.NoError(t, s.Update(id, domain.FieldSegmentationPath, "outputs/masks/img01.png"))
	require.NoError(t, s.AddStatus(id, domain.StatusSegmented))
	require.NoError(t, s.Update(id, domain.FieldVisualizationPath, "outputs/visuals/img01_max_width.png"))
	require.NoError(t, s.AddStatus(id, domain.StatusQuantified))
	require.NoError(t, s.AddStatus(id, domain.StatusQuantified))

	obj, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, []string{domain.StatusSegmented, domain.StatusQuantified}, obj.Status)
	assert.Equal(t, "outputs/visuals/img01_max_width.png", obj.VisualizationPath)

	found, ok := s.FindByImagePath("data/Test_images/./img01.jpg")
	require.True(t, ok)
	assert.Equal(t, id, found)

	found, ok = s.FindByMaskPath("/somewhere/else/img01.png")
	require.True(t, ok)
	assert.Equal(t, id, found)

	_, ok = s.FindByMaskPath("img03.png")
	assert.False(t, ok)

	found, ok = s.FindBySubject("img02")
	require.True(t, ok)
	assert.Equal(t, "image_002", found)

	assert.Equal(t, []string{id}, s.FindByStatus(domain.StatusQuantified))
	assert.Len(t, s.List(), 2)
}

func TestStore_Errors(t *testing.T) {
	s := objects.NewStore()
	id := s.RegisterImage("a.jpg")

	assert.ErrorIs(t, s.Update(id, "thumbnail_path", "x"), domain.ErrUnknownField)
	assert.ErrorIs(t, s.Update("image_999", domain.FieldSkeletonPath, "x"), domain.ErrObjectNotFound)
	assert.ErrorIs(t, s.AddStatus("image_999", domain.StatusSegmented), domain.ErrObjectNotFound)

	_, ok := s.Get("image_999")
	assert.False(t, ok)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := objects.NewStore()
	id := s.RegisterImage("a.jpg")
	require.NoError(t, s.AddStatus(id, domain.StatusSegmented))

	obj, _ := s.Get(id)
	obj.Status[0] = "tampered"

	again, _ := s.Get(id)
	assert.Equal(t, domain.StatusSegmented, again.Status[0])
}

func TestStore_ConcurrentRegister(t *testing.T) {
	s := objects.NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := s.RegisterImage(fmt.Sprintf("img%02d.jpg", i))
			assert.NoError(t, s.AddStatus(id, domain.StatusSegmented))
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.FindByStatus(domain.StatusSegmented), 50)
	_, ok := s.Get("image_050")
	assert.True(t, ok)
}
