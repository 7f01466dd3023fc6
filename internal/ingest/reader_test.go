package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAllCSV(t *testing.T) {
	input := "imdb_id,title,year,country\n" +
		"tt0111161,The Shawshank Redemption,1994,USA\n" +
		"tt0068646,The Godfather,1972,\"USA, Italy\"\n"

	rows, err := ReadAll(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "tt0111161", rows[0].ImdbID)
	assert.Equal(t, "The Shawshank Redemption", rows[0].Title)
	assert.Equal(t, "1994", rows[0].Year)
	assert.Equal(t, "USA, Italy", rows[1].Countries)
}

func TestReadAllTSV(t *testing.T) {
	input := "tconst\tprimaryTitle\tstartYear\n" +
		"tt0050083\t12 Angry Men\t1957\n"

	rows, err := ReadAll(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "tt0050083", rows[0].ImdbID)
	assert.Equal(t, "12 Angry Men", rows[0].Title)
	assert.Equal(t, "1957", rows[0].Year)
}

func TestReadAllHeaderAliases(t *testing.T) {
	// Same semantics under a different export's column names.
	input := "const,name,release_date,directors,link\n" +
		"tt0111161,The Shawshank Redemption,1994-10-14,Frank Darabont,https://www.imdb.com/title/tt0111161/\n"

	rows, err := ReadAll(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "tt0111161", rows[0].ImdbID)
	assert.Equal(t, "1994-10-14", rows[0].Date)
	assert.Equal(t, "Frank Darabont", rows[0].Directors)
	assert.Equal(t, "https://www.imdb.com/title/tt0111161/", rows[0].URL)
}

func TestReadAllIgnoresUnknownColumns(t *testing.T) {
	input := "imdb_id,title,my_rating,watched_on\n" +
		"tt0111161,The Shawshank Redemption,5,2025-01-01\n"

	rows, err := ReadAll(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "tt0111161", rows[0].ImdbID)
}

func TestReadAllRejectsUnrecognizedHeader(t *testing.T) {
	_, err := ReadAll(strings.NewReader("foo,bar\n1,2\n"))
	assert.Error(t, err)
}

func TestReadAllEmptyInput(t *testing.T) {
	_, err := ReadAll(strings.NewReader(""))
	assert.Error(t, err)
}
