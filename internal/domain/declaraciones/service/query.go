package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/comexdata/aduana-api/internal/domain/declaraciones/report"
	"github.com/comexdata/aduana-api/internal/domain/declaraciones/repository"
	"github.com/comexdata/aduana-api/pkg/metrics"
)

// maxDetalleFilas caps the row count of the detail sheet in the Excel report.
const maxDetalleFilas = 10000

// monthOrder maps the legacy three-letter month codes onto calendar order.
var monthOrder = map[string]int{
	"ENE": 1, "FEB": 2, "MAR": 3, "ABR": 4, "MAY": 5, "JUN": 6,
	"JUL": 7, "AGO": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DIC": 12,
}

// FilterOptions holds the distinct values available for filter dropdowns.
type FilterOptions struct {
	Paises        []string `json:"paises"`
	Departamentos []string `json:"departamentos"`
}

// QueryService serves listing, aggregation and export queries over the
// imported declarations.
type QueryService struct {
	repo    repository.DeclaracionRepository
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewQueryService creates a new query service.
func NewQueryService(repo repository.DeclaracionRepository, m *metrics.Metrics, logger *slog.Logger) *QueryService {
	return &QueryService{
		repo:    repo,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Listar returns a filtered, sorted page of declarations with batch totals.
func (s *QueryService) Listar(ctx context.Context, f repository.Filtros) (*repository.Listado, error) {
	listado, err := s.repo.Listar(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("listing declarations: %w", err)
	}
	return listado, nil
}

// GetFilterOptions returns the distinct origin countries and destination
// departments present in the data.
func (s *QueryService) GetFilterOptions(ctx context.Context) (*FilterOptions, error) {
	paises, departamentos, err := s.repo.FilterOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading filter options: %w", err)
	}
	return &FilterOptions{Paises: paises, Departamentos: departamentos}, nil
}

// ResumenGeneral computes batch-wide totals for the filtered set.
func (s *QueryService) ResumenGeneral(ctx context.Context, f repository.Filtros) (*repository.Resumen, error) {
	return s.repo.ResumenGeneral(ctx, f)
}

// ReportePorPais aggregates by origin country, largest CIF first.
func (s *QueryService) ReportePorPais(ctx context.Context, f repository.Filtros) ([]repository.AgrupadoPais, error) {
	return s.repo.AggPorPais(ctx, f)
}

// ReportePorProcedencia aggregates by provenance country.
func (s *QueryService) ReportePorProcedencia(ctx context.Context, f repository.Filtros) ([]repository.AgrupadoPais, error) {
	return s.repo.AggPorPaisProcedencia(ctx, f)
}

// ReportePorImportador aggregates by importer and tax id.
func (s *QueryService) ReportePorImportador(ctx context.Context, f repository.Filtros) ([]repository.AgrupadoImportador, error) {
	return s.repo.AggPorImportador(ctx, f)
}

// ReportePorProveedor aggregates by supplier and origin country.
func (s *QueryService) ReportePorProveedor(ctx context.Context, f repository.Filtros) ([]repository.AgrupadoProveedor, error) {
	return s.repo.AggPorProveedor(ctx, f)
}

// ReportePorDepartamento aggregates by destination department.
func (s *QueryService) ReportePorDepartamento(ctx context.Context, f repository.Filtros) ([]repository.AgrupadoDepartamento, error) {
	return s.repo.AggPorDepartamento(ctx, f)
}

// EvolucionMensual aggregates by month code and orders the result
// chronologically. Codes look like "OCT25" or "ENE26": three-letter month plus
// a two-digit year, so ordering is year first, then calendar month.
func (s *QueryService) EvolucionMensual(ctx context.Context, f repository.Filtros) ([]repository.AgrupadoMes, error) {
	meses, err := s.repo.AggPorMes(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("aggregating by month: %w", err)
	}

	sort.SliceStable(meses, func(i, j int) bool {
		return monthKey(meses[i].Mes) < monthKey(meses[j].Mes)
	})
	return meses, nil
}

// monthKey turns a month code into a sortable year*100+month value. Unknown
// months and missing year suffixes rank as zero.
func monthKey(mes string) int {
	if len(mes) < 3 {
		return 0
	}
	rank := monthOrder[strings.ToUpper(mes[:3])]
	anio := 0
	if len(mes) > 3 {
		anio, _ = strconv.Atoi(mes[3:])
	}
	return anio*100 + rank
}

// TopCategorias returns the 8 largest tariff chapters by CIF. When more
// chapters exist, their remainder is folded into a synthetic "99" entry so the
// slices always account for the full filtered set.
func (s *QueryService) TopCategorias(ctx context.Context, f repository.Filtros) ([]repository.AgrupadoCapitulo, error) {
	top, err := s.repo.TopCapitulos(ctx, f, 8)
	if err != nil {
		return nil, fmt.Errorf("aggregating by chapter: %w", err)
	}

	resumen, err := s.repo.ResumenGeneral(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("loading totals: %w", err)
	}

	restoCif := resumen.TotalCif
	restoFob := resumen.TotalFob
	restoRegistros := resumen.TotalRegistros
	for _, t := range top {
		restoCif = restoCif.Sub(t.TotalCif)
		restoFob = restoFob.Sub(t.TotalFob)
		restoRegistros -= t.Registros
	}

	if restoRegistros > 0 {
		top = append(top, repository.AgrupadoCapitulo{
			Capitulo:  "99",
			TotalCif:  restoCif,
			TotalFob:  restoFob,
			Registros: restoRegistros,
		})
	}
	return top, nil
}

// GenerarReporteExcel builds the multi-sheet Excel report for the filtered set
// and returns its suggested filename along with the workbook bytes.
func (s *QueryService) GenerarReporteExcel(ctx context.Context, f repository.Filtros) (string, []byte, error) {
	datos, err := s.buildDatosReporte(ctx, f)
	if err != nil {
		return "", nil, err
	}

	contenido, err := report.Generar(datos)
	if err != nil {
		return "", nil, fmt.Errorf("building workbook: %w", err)
	}

	nombre := report.BuildReportFilename(f, datos.GeneradoEn)
	s.metrics.ReportsGenerated.Inc()
	s.logger.InfoContext(ctx, "excel report generated",
		slog.String("file", nombre),
		slog.Int("detail_rows", len(datos.Detalle)),
		slog.Int("bytes", len(contenido)),
	)
	return nombre, contenido, nil
}

func (s *QueryService) buildDatosReporte(ctx context.Context, f repository.Filtros) (*report.Datos, error) {
	resumen, err := s.repo.ResumenGeneral(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("loading totals: %w", err)
	}
	porMes, err := s.repo.AggPorMes(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("aggregating by month: %w", err)
	}
	porPartida, err := s.repo.AggPorPartida(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("aggregating by tariff code: %w", err)
	}
	porImportador, err := s.repo.AggPorImportador(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("aggregating by importer: %w", err)
	}
	porProveedor, err := s.repo.AggPorProveedor(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("aggregating by supplier: %w", err)
	}
	porPais, err := s.repo.AggPorPais(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("aggregating by origin country: %w", err)
	}
	porProcedencia, err := s.repo.AggPorPaisProcedencia(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("aggregating by provenance country: %w", err)
	}
	detalle, err := s.repo.Detalle(ctx, f, maxDetalleFilas)
	if err != nil {
		return nil, fmt.Errorf("loading detail rows: %w", err)
	}

	return &report.Datos{
		Filtros:        f,
		GeneradoEn:     s.now(),
		Resumen:        resumen,
		PorMes:         porMes,
		PorPartida:     porPartida,
		PorImportador:  porImportador,
		PorProveedor:   porProveedor,
		PorPais:        porPais,
		PorProcedencia: porProcedencia,
		Detalle:        detalle,
	}, nil
}
