package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/comexdata/aduana-api/internal/domain/declaraciones/repository"
)

func fecha(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func str(s string) *string { return &s }

func sampleDatos() *Datos {
	return &Datos{
		Filtros:    repository.Filtros{},
		GeneradoEn: time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC),
		Resumen: &repository.Resumen{
			TotalRegistros: 2,
			TotalCif:       decimal.NewFromInt(1000),
			TotalFob:       decimal.NewFromInt(900),
			TotalPNeto:     decimal.NewFromInt(500),
			TotalPBruto:    decimal.NewFromInt(550),
		},
		PorMes: []repository.AgrupadoMes{
			{Mes: "FEB", TotalCif: decimal.NewFromInt(400), TotalPNeto: decimal.NewFromInt(200)},
			{Mes: "ENE", TotalCif: decimal.NewFromInt(600), TotalPNeto: decimal.NewFromInt(300)},
		},
		PorPartida: []repository.AgrupadoPartida{
			{Partida: "8703231090", Descripcion: str("VEHICULO"), TotalCif: decimal.NewFromInt(1000), TotalPNeto: decimal.NewFromInt(500)},
		},
		PorImportador: []repository.AgrupadoImportador{
			{Importador: "IMPORTADORA ORIENTE SRL", TotalCif: decimal.NewFromInt(1000), TotalPNeto: decimal.NewFromInt(500)},
		},
		PorProveedor: []repository.AgrupadoProveedor{
			{Proveedor: "TOYOTA TSUSHO", Pais: str("JAPON"), Registros: 2, TotalCif: decimal.NewFromInt(1000), TotalPNeto: decimal.NewFromInt(500)},
		},
		PorPais: []repository.AgrupadoPais{
			{Pais: "JAPON", TotalCif: decimal.NewFromInt(1000), TotalPNeto: decimal.NewFromInt(500)},
		},
		PorProcedencia: []repository.AgrupadoPais{
			{Pais: "CHILE", TotalCif: decimal.NewFromInt(1000), TotalPNeto: decimal.NewFromInt(500)},
		},
		Detalle: []repository.Declaracion{
			{
				FechaReci:  fecha(2024, time.January, 15),
				NroConsec:  str("C-1"),
				PartidaAr:  str("8703231090"),
				Importador: str("IMPORTADORA ORIENTE SRL"),
				CifItem:    decimal.NullDecimal{Decimal: decimal.NewFromInt(600), Valid: true},
				Cantidad:   decimal.NullDecimal{Decimal: decimal.NewFromInt(1), Valid: true},
			},
		},
	}
}

func TestGenerar_SheetLayout(t *testing.T) {
	contenido, err := Generar(sampleDatos())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(contenido))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		"Índice", "Montos", "Posiciones", "Importadores", "Proveedores",
		"Países de Origen", "Países Procedencia", "Detalle Completo",
	}, f.GetSheetList())

	titulo, err := f.GetCellValue("Índice", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Índice de Reportes", titulo)

	// Months come out in lexical order, then the total row.
	rows, err := f.GetRows("Montos")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 10)
	assert.Equal(t, []string{"Mes", "Monto (USD)", "Peso Neto", "%Monto"}, rows[6])
	assert.Equal(t, "ENE", rows[7][0])
	assert.Equal(t, "FEB", rows[8][0])
	assert.Equal(t, "Total", rows[9][0])
	assert.Equal(t, "100%", rows[9][3])
	assert.Equal(t, "60.00%", rows[7][3])
}

func TestGenerar_DetalleTotals(t *testing.T) {
	contenido, err := Generar(sampleDatos())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(contenido))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Detalle Completo")
	require.NoError(t, err)
	require.Len(t, rows, 9) // 6 banner rows + header + 1 data row + total

	assert.Equal(t, "Fecha", rows[6][0])
	assert.Equal(t, "15/1/2024", rows[7][0])
	assert.Equal(t, "C-1", rows[7][1])

	total := rows[8]
	assert.Equal(t, "Total", total[0])
	assert.Equal(t, "1", total[8])    // cantidad
	assert.Equal(t, "1000", total[10]) // monto CIF
}

func TestGenerar_EmptyBatch(t *testing.T) {
	d := &Datos{
		Filtros:    repository.Filtros{},
		GeneradoEn: time.Now(),
		Resumen:    &repository.Resumen{},
	}

	contenido, err := Generar(d)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(contenido))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Montos")
	require.NoError(t, err)
	last := rows[len(rows)-1]
	assert.Equal(t, "Total", last[0])
}

func TestBuildFilterDescription(t *testing.T) {
	tests := []struct {
		name string
		f    repository.Filtros
		want string
	}{
		{
			name: "no filters",
			f:    repository.Filtros{},
			want: "Todos los registros",
		},
		{
			name: "single country",
			f:    repository.Filtros{PaisOrige: "JAPON"},
			want: "Origen: JAPON",
		},
		{
			name: "several filters keep a fixed order",
			f: repository.Filtros{
				PartidaAr:   "8703",
				Descripcion: "vehiculos",
				Importador:  "oriente",
				DeptoDes:    "SC",
			},
			want: "8703 - VEHICULOS - ORIENTE - Depto: SC",
		},
		{
			name: "supplier gets a label",
			f:    repository.Filtros{Proveedor: "Toyota"},
			want: "Proveedor: Toyota",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildFilterDescription(tt.f))
		})
	}
}

func TestBuildPeriodoDescription(t *testing.T) {
	t.Run("date range", func(t *testing.T) {
		f := repository.Filtros{
			FechaDesde: fecha(2023, time.January, 1),
			FechaHasta: fecha(2023, time.June, 30),
		}
		assert.Equal(t, "del 1/1/2023 al 30/6/2023", BuildPeriodoDescription(f))
	})

	t.Run("month only", func(t *testing.T) {
		assert.Equal(t, "Mes: MAR", BuildPeriodoDescription(repository.Filtros{Mes: "MAR"}))
	})

	t.Run("open period", func(t *testing.T) {
		assert.Equal(t, "Todos los períodos", BuildPeriodoDescription(repository.Filtros{}))
	})
}

func TestBuildReportFilename(t *testing.T) {
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	t.Run("defaults to current year", func(t *testing.T) {
		got := BuildReportFilename(repository.Filtros{}, now)
		assert.Equal(t, "BO - IMP - 2024.xlsx", got)
	})

	t.Run("date range in yyyymm", func(t *testing.T) {
		f := repository.Filtros{
			FechaDesde: fecha(2023, time.January, 1),
			FechaHasta: fecha(2023, time.June, 30),
		}
		got := BuildReportFilename(f, now)
		assert.Equal(t, "BO - IMP - 202301 al 202306.xlsx", got)
	})

	t.Run("tariff code loses its dots", func(t *testing.T) {
		f := repository.Filtros{PartidaAr: "8703.23.10"}
		got := BuildReportFilename(f, now)
		assert.Equal(t, "BO - IMP - 2024 - 87032310.xlsx", got)
	})

	t.Run("description beats importer and is truncated uppercase", func(t *testing.T) {
		f := repository.Filtros{
			Descripcion: "vehiculos automoviles de turismo y demas",
			Importador:  "oriente",
		}
		got := BuildReportFilename(f, now)
		assert.Equal(t, "BO - IMP - 2024 - VEHICULOS AUTOMOVILES DE TURIS.xlsx", got)
	})
}
