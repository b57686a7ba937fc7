package parser

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r *CSVRowReader) ([]Row, []int) {
	t.Helper()
	var rows []Row
	var nums []int
	for {
		row, num, err := r.Next()
		if err == io.EOF {
			return rows, nums
		}
		require.NoError(t, err)
		rows = append(rows, row)
		nums = append(nums, num)
	}
}

func TestCSVRowReader_HeaderOnFirstLine(t *testing.T) {
	src := "DESADU\tADUANA\tNRO_CONSEC\n" +
		"ADUANA INTERIOR\t211\tC-1\n" +
		"ADUANA FRONTERA\t735\tC-2\n" +
		"ADUANA AEROPUERTO\t431\tC-3\n"

	r, err := NewCSVRowReader(strings.NewReader(src), '\t', 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"DESADU", "ADUANA", "NRO_CONSEC"}, r.Headers())

	rows, nums := readAll(t, r)
	require.Len(t, rows, 3)
	assert.Equal(t, []int{1, 2, 3}, nums)
	assert.Equal(t, "C-2", rows[1]["NRO_CONSEC"])
}

func TestCSVRowReader_DiscardsLinesBeforeHeader(t *testing.T) {
	src := "Tabla 4\n" +
		"DESADU;ADUANA\n" +
		"ADUANA INTERIOR;211\n"

	r, err := NewCSVRowReader(strings.NewReader(src), ';', 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"DESADU", "ADUANA"}, r.Headers())

	rows, nums := readAll(t, r)
	require.Len(t, rows, 1)
	assert.Equal(t, []int{2}, nums)
	assert.Equal(t, "211", rows[0]["ADUANA"])
}

func TestCSVRowReader_RaggedRows(t *testing.T) {
	src := "A\tB\tC\n" +
		"1\t2\t3\t4\n" + // excess field dropped
		"5\n" // missing fields become empty

	r, err := NewCSVRowReader(strings.NewReader(src), '\t', 1)
	require.NoError(t, err)

	rows, _ := readAll(t, r)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{"A": "1", "B": "2", "C": "3"}, rows[0])
	assert.Equal(t, Row{"A": "5", "B": "", "C": ""}, rows[1])
}

func TestCSVRowReader_TrimsValuesAndStripsBOM(t *testing.T) {
	src := "\xEF\xBB\xBFDESADU\tADUANA\n" +
		"  ADUANA INTERIOR  \t 211 \n"

	r, err := NewCSVRowReader(strings.NewReader(src), '\t', 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"DESADU", "ADUANA"}, r.Headers())

	rows, _ := readAll(t, r)
	require.Len(t, rows, 1)
	assert.Equal(t, "ADUANA INTERIOR", rows[0]["DESADU"])
	assert.Equal(t, "211", rows[0]["ADUANA"])
}

func TestCSVRowReader_EmptySource(t *testing.T) {
	_, err := NewCSVRowReader(strings.NewReader(""), '\t', 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header row")
}

func TestCSVRowReader_HeaderLinePastEOF(t *testing.T) {
	_, err := NewCSVRowReader(strings.NewReader("solo una linea\n"), '\t', 5)
	require.Error(t, err)
}

func TestRecordToRow_SkipsEmptyHeaders(t *testing.T) {
	row := recordToRow([]string{"A", "", "C"}, []string{"1", "2", "3"})
	assert.Equal(t, Row{"A": "1", "C": "3"}, row)
}
