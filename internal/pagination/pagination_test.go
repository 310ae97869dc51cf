package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(1, 20))
	assert.NoError(t, Validate(50, MaxPageSize))

	assert.Error(t, Validate(0, 20))
	assert.Error(t, Validate(-1, 20))
	assert.Error(t, Validate(1, 0))
	assert.Error(t, Validate(1, MaxPageSize+1))
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	t.Run("middle page", func(t *testing.T) {
		page, meta := Paginate(items, 2, 3)

		assert.Equal(t, []int{4, 5, 6}, page)
		assert.Equal(t, Meta{Page: 2, PageSize: 3, Total: 7, TotalPages: 3}, meta)
	})

	t.Run("last page is partial", func(t *testing.T) {
		page, meta := Paginate(items, 3, 3)

		assert.Equal(t, []int{7}, page)
		assert.Equal(t, 3, meta.TotalPages)
	})

	t.Run("page past the end is empty but keeps total", func(t *testing.T) {
		page, meta := Paginate(items, 5, 3)

		assert.Empty(t, page)
		assert.NotNil(t, page)
		assert.Equal(t, 7, meta.Total)
	})

	t.Run("empty input", func(t *testing.T) {
		page, meta := Paginate([]int{}, 1, 20)

		assert.Empty(t, page)
		assert.Equal(t, Meta{Page: 1, PageSize: 20, Total: 0, TotalPages: 0}, meta)
	})
}
