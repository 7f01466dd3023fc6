package ingest

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeImdbID(t *testing.T) {
	t.Run("bare digits are padded and prefixed", func(t *testing.T) {
		assert.Equal(t, "tt0123456", NormalizeImdbID("123456"))
	})

	t.Run("canonical form passes through", func(t *testing.T) {
		assert.Equal(t, "tt0123456", NormalizeImdbID("tt0123456"))
	})

	t.Run("full URL resolves to the same id", func(t *testing.T) {
		assert.Equal(t, "tt0123456", NormalizeImdbID("https://www.imdb.com/title/tt0123456/"))
	})

	t.Run("all accepted shapes agree", func(t *testing.T) {
		shapes := []string{
			"123456",
			"0123456",
			"tt123456",
			"tt0123456",
			"https://imdb.com/title/tt0123456",
			"https://www.imdb.com/title/tt0123456/?ref_=fn_al_tt_1",
		}
		for _, s := range shapes {
			assert.Equal(t, "tt0123456", NormalizeImdbID(s), "input %q", s)
		}
	})

	t.Run("ids longer than seven digits keep their length", func(t *testing.T) {
		assert.Equal(t, "tt12345678", NormalizeImdbID("12345678"))
	})

	t.Run("garbage yields empty", func(t *testing.T) {
		for _, s := range []string{"", "abc", "tt", "movie-123x", "000"} {
			assert.Empty(t, NormalizeImdbID(s), "input %q", s)
		}
	})
}

func TestNormalizeYearBoundaries(t *testing.T) {
	maxYear := time.Now().Year() + 5

	cases := []struct {
		year     string
		accepted bool
	}{
		{"1879", false},
		{"1880", true},
		{fmt.Sprintf("%d", maxYear), true},
		{fmt.Sprintf("%d", maxYear+1), false},
	}
	for _, tc := range cases {
		t.Run(tc.year, func(t *testing.T) {
			c, reject := Normalize(RawRow{ImdbID: "tt0000001", Title: "Some Title", Year: tc.year})
			require.Equal(t, RejectNone, reject)
			if tc.accepted {
				require.NotNil(t, c.Year)
			} else {
				// Out-of-range years degrade to absent, they never reject
				// the row.
				assert.Nil(t, c.Year)
			}
		})
	}
}

func TestNormalizeYearFromDate(t *testing.T) {
	c, reject := Normalize(RawRow{ImdbID: "tt0000001", Title: "Some Title", Date: "1994-10-14"})
	require.Equal(t, RejectNone, reject)
	require.NotNil(t, c.Year)
	assert.Equal(t, 1994, *c.Year)
}

func TestNormalizeRejections(t *testing.T) {
	t.Run("no identifier", func(t *testing.T) {
		_, reject := Normalize(RawRow{Title: "A Real Title"})
		assert.Equal(t, RejectNoIdentifier, reject)
	})

	t.Run("empty title", func(t *testing.T) {
		_, reject := Normalize(RawRow{ImdbID: "tt0000001", Title: "   "})
		assert.Equal(t, RejectBadTitle, reject)
	})

	t.Run("numeric placeholder title", func(t *testing.T) {
		_, reject := Normalize(RawRow{ImdbID: "tt0000001", Title: "482091"})
		assert.Equal(t, RejectBadTitle, reject)
	})

	t.Run("title is a dataset link", func(t *testing.T) {
		_, reject := Normalize(RawRow{ImdbID: "tt0000001", Title: "https://www.themoviedb.org/movie/482091"})
		assert.Equal(t, RejectBadTitle, reject)
	})
}

func TestNormalizeMultiValuedFields(t *testing.T) {
	c, reject := Normalize(RawRow{
		ImdbID:    "tt0000001",
		Title:     "Some Title",
		Countries: "USA, UK|France",
		Directors: "Jane Doe; John Smith",
	})
	require.Equal(t, RejectNone, reject)
	assert.Equal(t, []string{"USA", "UK", "France"}, c.Countries)
	assert.Equal(t, []string{"Jane Doe", "John Smith"}, c.Directors)
}

func TestNormalizeIsDeterministic(t *testing.T) {
	row := RawRow{ImdbID: "tt0111161", Title: "The Shawshank Redemption", Year: "1994"}
	a, _ := Normalize(row)
	b, _ := Normalize(row)
	assert.Equal(t, a, b)
}
