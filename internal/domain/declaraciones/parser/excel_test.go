package parser

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestReadExcelRows(t *testing.T) {
	gofakeit.Seed(11)

	importadores := make([]string, 3)
	for i := range importadores {
		importadores[i] = gofakeit.Company()
	}

	rows := [][]any{
		{"DESADU", "NRO_CONSEC", "IMPORTADOR", "CIF_ITEM"},
	}
	for i, imp := range importadores {
		rows = append(rows, []any{"ADUANA INTERIOR", fmt.Sprintf("C-%d", i+1), imp, 100.5 * float64(i+1)})
	}

	got, err := ReadExcelRows(buildWorkbook(t, rows))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "C-1", got[0]["NRO_CONSEC"])
	assert.Equal(t, importadores[2], got[2]["IMPORTADOR"])
	assert.NotEmpty(t, got[1]["CIF_ITEM"])
}

func TestReadExcelRows_HeaderOnly(t *testing.T) {
	got, err := ReadExcelRows(buildWorkbook(t, [][]any{{"DESADU", "ADUANA"}}))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReadExcelRows_TrimsHeadersAndValues(t *testing.T) {
	rows := [][]any{
		{" DESADU ", "ADUANA"},
		{"  ADUANA INTERIOR  ", " 211 "},
	}

	got, err := ReadExcelRows(buildWorkbook(t, rows))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ADUANA INTERIOR", got[0]["DESADU"])
	assert.Equal(t, "211", got[0]["ADUANA"])
}

func TestReadExcelRows_NotAWorkbook(t *testing.T) {
	_, err := ReadExcelRows(bytes.NewReader([]byte("no es un xlsx")))
	require.Error(t, err)
}
