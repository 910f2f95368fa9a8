package types

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSet(t *testing.T) {
	t.Run("empty set", func(t *testing.T) {
		assert.Empty(t, NewSet[string]())
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		set := NewSet("a", "b", "a")
		assert.Len(t, set, 2)
		assert.True(t, set.Has("a"))
		assert.True(t, set.Has("b"))
	})
}

func TestSet_Insert(t *testing.T) {
	set := NewSet[int]()

	assert.True(t, set.Insert(1), "first insert adds the element")
	assert.False(t, set.Insert(1), "second insert is a no-op")
	assert.Len(t, set, 1)
}

func TestSet_Delete(t *testing.T) {
	set := NewSet(1, 2, 3)
	set.Delete(2, 4)

	assert.False(t, set.Has(2))
	assert.ElementsMatch(t, []int{1, 3}, set.ToSlice())
}

func TestSet_ToIter(t *testing.T) {
	set := NewSet("x", "y")

	got := slices.Sorted(set.ToIter())
	assert.Equal(t, []string{"x", "y"}, got)
}

func TestUnique(t *testing.T) {
	t.Run("keeps first occurrence order", func(t *testing.T) {
		assert.Equal(t, []string{"c", "a", "b"}, Unique([]string{"c", "a", "c", "b", "a"}))
	})

	t.Run("nil input yields empty slice", func(t *testing.T) {
		got := Unique[int](nil)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}
