package csvimport

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSVParser(t *testing.T) {
	t.Run("UTF-8 BOM is stripped", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("\xEF\xBB\xBFSale Order Number,City\nPZ1,Kolkata"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, "Sale Order Number", parser.Headers()[0])
	})

	t.Run("Empty file returns error", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("  \n"))
		assert.ErrorIs(t, err, ErrEmptyFile)
		assert.Nil(t, parser)
	})

	t.Run("Invalid UTF-8 returns error", func(t *testing.T) {
		_, err := NewCSVParser(strings.NewReader("name\n\xff\xfe"))
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("Custom delimiter", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("name;city\nAsha;Pune"), WithDelimiter(';'))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, []string{"name", "city"}, parser.Headers())
	})
}

func TestReadRow(t *testing.T) {
	parser, err := NewCSVParser(strings.NewReader("a,b,c\n1,2\n3,4,5,6\n"))
	require.NoError(t, err)
	require.NoError(t, parser.ParseHeader())

	row, err := parser.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, 2, row.LineNumber)
	assert.Equal(t, "", row.Record["c"], "missing trailing cell becomes empty")

	row, err = parser.ReadRow()
	require.NoError(t, err)
	assert.Len(t, row.Record, 3, "extra cells are dropped")
	assert.Equal(t, "5", row.Record["c"])

	_, err = parser.ReadRow()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestReadRecords(t *testing.T) {
	t.Run("Skips blank rows and trims cells", func(t *testing.T) {
		input := "Sale Order Number,*City,Quantity Ordered\n PZ1 , Kolkata ,3\n,,\n\"PZ2\",\"Howrah, WB\",1\n"
		records, err := ReadRecords(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "PZ1", records[0]["Sale Order Number"])
		assert.Equal(t, "Kolkata", records[0].String("", "City"))
		assert.Equal(t, "Howrah, WB", records[1]["*City"])
	})

	t.Run("Header only", func(t *testing.T) {
		_, err := ReadRecords(strings.NewReader("a,b\n"))
		assert.ErrorIs(t, err, ErrNoDataRows)
	})

	t.Run("Quoted JSON cells survive", func(t *testing.T) {
		input := "Number,Totals\n10005,\"{\"\"discount\"\": \"\"100\"\"}\"\n"
		records, err := ReadRecords(strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, `{"discount": "100"}`, records[0]["Totals"])
	})
}

func TestRowError(t *testing.T) {
	assert.Equal(t, "row 3, column 'Totals': bad json",
		NewRowError(3, "Totals", ErrCodeImportInvalidJSON, "bad json").Error())
	assert.Equal(t, "row 4: bad", NewRowError(4, "", ErrCodeImportMalformedRow, "bad").Error())
}
