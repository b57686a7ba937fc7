// Package report renders the multi-sheet Excel import report. Sheet names,
// banner rows and column layouts follow the format the analysts already use,
// so the output stays drop-in compatible with their existing spreadsheets.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/comexdata/aduana-api/internal/domain/declaraciones/repository"
)

// Datos carries everything the workbook needs, pre-aggregated.
type Datos struct {
	Filtros    repository.Filtros
	GeneradoEn time.Time

	Resumen        *repository.Resumen
	PorMes         []repository.AgrupadoMes
	PorPartida     []repository.AgrupadoPartida
	PorImportador  []repository.AgrupadoImportador
	PorProveedor   []repository.AgrupadoProveedor
	PorPais        []repository.AgrupadoPais
	PorProcedencia []repository.AgrupadoPais
	Detalle        []repository.Declaracion
}

// Generar builds the workbook and returns its bytes. Sheets, in order:
// Índice, Montos, Posiciones, Importadores, Proveedores, Países de Origen,
// Países Procedencia, Detalle Completo.
func Generar(d *Datos) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	filterDesc := BuildFilterDescription(d.Filtros)
	periodo := BuildPeriodoDescription(d.Filtros)
	totalCif := d.Resumen.TotalCif
	totalPesoNeto := d.Resumen.TotalPNeto

	pct := func(n decimal.Decimal) string {
		if !totalCif.IsPositive() {
			return "0%"
		}
		return n.Div(totalCif).Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
	}
	banner := func(titulo string) [][]any {
		return [][]any{
			{titulo},
			{filterDesc},
			{periodo},
			{},
			{"[Ir al Índice]"},
			{},
		}
	}

	// Índice
	indice := [][]any{
		{"Índice de Reportes"},
		{filterDesc},
		{periodo},
		{},
		{"", "Haga click en los links debajo para ir directo al Reporte"},
		{},
		{"", "Montos", "Montos importados cada mes"},
		{"", "Posiciones", "Listado de Posiciones importadas"},
		{"", "Importadores", "Listado de Importadores"},
		{"", "Proveedores", "Listado de Proveedores"},
		{"", "Países de Origen", "Origen de los productos importados"},
		{"", "Países de Procedencia", "Listado de Procedencias"},
		{"", "Detalle Completo", "Detalles de Operaciones"},
	}
	if err := f.SetSheetName("Sheet1", "Índice"); err != nil {
		return nil, err
	}
	if err := writeRows(f, "Índice", indice); err != nil {
		return nil, err
	}

	// Montos, one row per month code in lexical order
	meses := append([]repository.AgrupadoMes(nil), d.PorMes...)
	sort.SliceStable(meses, func(i, j int) bool { return meses[i].Mes < meses[j].Mes })
	montos := banner("Reporte de Importaciones - Montos")
	montos = append(montos, []any{"Mes", "Monto (USD)", "Peso Neto", "%Monto"})
	for _, m := range meses {
		montos = append(montos, []any{m.Mes, num(m.TotalCif), num(m.TotalPNeto), pct(m.TotalCif)})
	}
	montos = append(montos, []any{"Total", num(totalCif), num(totalPesoNeto), "100%"})
	if err := addSheet(f, "Montos", montos); err != nil {
		return nil, err
	}

	// Posiciones
	posiciones := banner("Reporte de Importaciones - Posiciones")
	posiciones = append(posiciones, []any{"Posición", "Producto", "Monto (USD)", "Peso Neto", "%Monto"})
	for _, p := range d.PorPartida {
		posiciones = append(posiciones, []any{
			p.Partida, deref(p.Descripcion), num(p.TotalCif), num(p.TotalPNeto), pct(p.TotalCif),
		})
	}
	posiciones = append(posiciones, []any{"Total", "", num(totalCif), num(totalPesoNeto), "100%"})
	if err := addSheet(f, "Posiciones", posiciones); err != nil {
		return nil, err
	}

	// Importadores
	importadores := banner("Reporte de Importaciones - Empresas")
	importadores = append(importadores, []any{"Importador", "Monto (USD)", "Peso Neto", "%Monto"})
	for _, i := range d.PorImportador {
		importadores = append(importadores, []any{
			i.Importador, num(i.TotalCif), num(i.TotalPNeto), pct(i.TotalCif),
		})
	}
	importadores = append(importadores, []any{"Total", num(totalCif), num(totalPesoNeto), "100%"})
	if err := addSheet(f, "Importadores", importadores); err != nil {
		return nil, err
	}

	// Proveedores
	proveedores := banner("Reporte de Importaciones - Proveedores")
	proveedores = append(proveedores, []any{"Proveedor", "País", "Operaciones", "Monto (USD)", "Peso Neto", "%Monto"})
	for _, p := range d.PorProveedor {
		proveedores = append(proveedores, []any{
			p.Proveedor, deref(p.Pais), p.Registros, num(p.TotalCif), num(p.TotalPNeto), pct(p.TotalCif),
		})
	}
	proveedores = append(proveedores, []any{
		"Total", "", d.Resumen.TotalRegistros, num(totalCif), num(totalPesoNeto), "100%",
	})
	if err := addSheet(f, "Proveedores", proveedores); err != nil {
		return nil, err
	}

	// Países de Origen / Procedencia
	for _, sheet := range []struct {
		name   string
		titulo string
		rows   []repository.AgrupadoPais
	}{
		{"Países de Origen", "Reporte de Importaciones - Países de Origen", d.PorPais},
		{"Países Procedencia", "Reporte de Importaciones - Países de Procedencia", d.PorProcedencia},
	} {
		paises := banner(sheet.titulo)
		paises = append(paises, []any{"País", "Monto (USD)", "Peso Neto", "%Monto"})
		for _, p := range sheet.rows {
			paises = append(paises, []any{p.Pais, num(p.TotalCif), num(p.TotalPNeto), pct(p.TotalCif)})
		}
		paises = append(paises, []any{"Total", num(totalCif), num(totalPesoNeto), "100%"})
		if err := addSheet(f, sheet.name, paises); err != nil {
			return nil, err
		}
	}

	// Detalle Completo
	detalle := banner("Reporte de Importaciones - Detalle Completo")
	detalle = append(detalle, []any{
		"Fecha", "Operación", "Posición", "Importador", "Proveedor", "Origen",
		"Procedencia", "Detalle", "Cantidad", "Unidad", "Monto (USD)",
		"Peso Neto", "Peso Bruto", "FOB (USD)", "Flete (USD)", "Seguro (USD)",
		"Aduana", "Departamento",
	})
	var totalCantidad, totalFlete, totalSeguro decimal.Decimal
	for _, dec := range d.Detalle {
		totalCantidad = totalCantidad.Add(dec.Cantidad.Decimal)
		totalFlete = totalFlete.Add(dec.FleteItem.Decimal)
		totalSeguro = totalSeguro.Add(dec.SegItem.Decimal)
		detalle = append(detalle, []any{
			fechaCorta(dec.FechaReci), deref(dec.NroConsec), deref(dec.PartidaAr),
			deref(dec.Importador), deref(dec.Proveedor), deref(dec.PaisOrige),
			deref(dec.PaisPro), deref(dec.Descripcio),
			num(dec.Cantidad.Decimal), deref(dec.UnidMed), num(dec.CifItem.Decimal),
			num(dec.PNeto.Decimal), num(dec.PBruto.Decimal), num(dec.Fob.Decimal),
			num(dec.FleteItem.Decimal), num(dec.SegItem.Decimal),
			deref(dec.Aduana), deref(dec.DeptoDes),
		})
	}
	detalle = append(detalle, []any{
		"Total", "", "", "", "", "", "", "",
		num(totalCantidad), "", num(totalCif),
		num(totalPesoNeto), num(d.Resumen.TotalPBruto), num(d.Resumen.TotalFob),
		num(totalFlete), num(totalSeguro), "", "",
	})
	if err := addSheet(f, "Detalle Completo", detalle); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildFilterDescription summarizes the active filters for the banner rows.
func BuildFilterDescription(f repository.Filtros) string {
	var parts []string
	if f.PartidaAr != "" {
		parts = append(parts, f.PartidaAr)
	}
	if f.Descripcion != "" {
		parts = append(parts, strings.ToUpper(f.Descripcion))
	}
	if f.Importador != "" {
		parts = append(parts, strings.ToUpper(f.Importador))
	}
	if f.Proveedor != "" {
		parts = append(parts, "Proveedor: "+f.Proveedor)
	}
	if f.PaisOrige != "" {
		parts = append(parts, "Origen: "+f.PaisOrige)
	}
	if f.DeptoDes != "" {
		parts = append(parts, "Depto: "+f.DeptoDes)
	}
	if len(parts) == 0 {
		return "Todos los registros"
	}
	return strings.Join(parts, " - ")
}

// BuildPeriodoDescription summarizes the date filter for the banner rows.
func BuildPeriodoDescription(f repository.Filtros) string {
	if f.FechaDesde != nil && f.FechaHasta != nil {
		return fmt.Sprintf("del %s al %s", fechaCorta(f.FechaDesde), fechaCorta(f.FechaHasta))
	}
	if f.Mes != "" {
		return "Mes: " + f.Mes
	}
	return "Todos los períodos"
}

// BuildReportFilename derives the download name: "BO - IMP - <periodo>
// [- <partida>] [- <descripción o importador>].xlsx". The period is YYYYMM
// ranges when both dates are set, otherwise the current year.
func BuildReportFilename(f repository.Filtros, now time.Time) string {
	parts := []string{"BO", "IMP"}

	if f.FechaDesde != nil && f.FechaHasta != nil {
		parts = append(parts, fmt.Sprintf("%s al %s",
			f.FechaDesde.Format("200601"), f.FechaHasta.Format("200601")))
	} else {
		parts = append(parts, now.Format("2006"))
	}

	if f.PartidaAr != "" {
		parts = append(parts, strings.ReplaceAll(f.PartidaAr, ".", ""))
	}
	if f.Descripcion != "" {
		parts = append(parts, strings.ToUpper(truncate(f.Descripcion, 30)))
	} else if f.Importador != "" {
		parts = append(parts, strings.ToUpper(truncate(f.Importador, 30)))
	}

	return strings.Join(parts, " - ") + ".xlsx"
}

func addSheet(f *excelize.File, name string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	return writeRows(f, name, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// num renders a decimal as a float cell value. Null decimals carry a zero
// value, matching how the legacy report rendered missing amounts.
func num(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// fechaCorta renders a date as d/m/yyyy, the regional short form.
func fechaCorta(t *time.Time) string {
	if t == nil {
		return ""
	}
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
