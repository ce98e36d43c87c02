package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func queryContext(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return c
}

func TestParsePagination(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		query  string
		page   int
		limit  int
		offset int
	}{
		{"defaults", "", 1, 10, 0},
		{"explicit", "page=3&limit=5", 3, 5, 10},
		{"limit clamped to max", "limit=999", 1, 50, 0},
		{"garbage falls back", "page=abc&limit=-2", 1, 10, 0},
		{"zero page falls back", "page=0", 1, 10, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, limit, offset := parsePagination(queryContext(tc.query), 10, 50)
			assert.Equal(t, tc.page, page)
			assert.Equal(t, tc.limit, limit)
			assert.Equal(t, tc.offset, offset)
		})
	}
}

func TestQueryID(t *testing.T) {
	t.Parallel()

	id, ok := queryID(queryContext("id=42"), "id")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	for _, query := range []string{"", "id=", "id=abc", "id=0", "id=-5"} {
		_, ok := queryID(queryContext(query), "id")
		assert.False(t, ok, "query %q", query)
	}
}

// is_primary - строгий флаг: никаких молчаливых приведений к истине.
func TestParsePrimaryFlag(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"true", "1", " TRUE "} {
		v, err := parsePrimaryFlag(raw)
		assert.NoError(t, err, "raw %q", raw)
		assert.True(t, v, "raw %q", raw)
	}
	for _, raw := range []string{"", "false", "0", "False"} {
		v, err := parsePrimaryFlag(raw)
		assert.NoError(t, err, "raw %q", raw)
		assert.False(t, v, "raw %q", raw)
	}
	for _, raw := range []string{"yes", "on", "2", "primary"} {
		_, err := parsePrimaryFlag(raw)
		assert.Error(t, err, "raw %q", raw)
	}
}

func TestTotalPages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, totalPages(0, 10))
	assert.Equal(t, 1, totalPages(1, 10))
	assert.Equal(t, 1, totalPages(10, 10))
	assert.Equal(t, 2, totalPages(11, 10))
	assert.Equal(t, 0, totalPages(5, 0))
}
