package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs. Declared as an
// interface so tests can substitute a pgxmock pool.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresDeclaracionRepository implements DeclaracionRepository over Postgres.
type PostgresDeclaracionRepository struct {
	db DB
}

// NewPostgresDeclaracionRepository creates a new Postgres-backed repository.
func NewPostgresDeclaracionRepository(db DB) *PostgresDeclaracionRepository {
	return &PostgresDeclaracionRepository{db: db}
}

// sortableColumns is the allow-list of columns exposed for user-driven
// sorting. Anything outside it falls back to the default sort.
var sortableColumns = map[string]bool{
	"nro_consec": true,
	"pais_orige": true,
	"importador": true,
	"despachant": true,
	"descripcio": true,
	"acuerdo_co": true,
	"cantidad":   true,
	"fob":        true,
	"cif_item":   true,
	"mes":        true,
	"depto_des":  true,
	"fecha_reg":  true,
	"fecha_reci": true,
	"p_bruto":    true,
	"p_neto":     true,
	"anio":       true,
}

const declaracionColumns = `id, desadu, aduana, anio, serial, nro_consec, nro_item,
	partida_ar, unid_med, descripcio, acuerdo_co, regimen, estado_mer,
	p_bruto, p_neto, cantidad, cif_item, flete_item, seg_item, gast_item, fob, cif,
	importador, nit_desp, despachant, proveedor, pais_orige, pais_pro, depto_des,
	fecha_reg, fecha_reci, mes, canal, tipo_proc, embarque, adu_ing,
	datos_extra, created_at, updated_at`

// CreateDeclaracion inserts a single declaration. Each row is its own commit:
// ingestion deliberately avoids multi-row transactions so one bad row never
// rolls back its neighbours.
func (r *PostgresDeclaracionRepository) CreateDeclaracion(ctx context.Context, d *Declaracion) error {
	query := `
		INSERT INTO declaraciones_aduaneras (
			desadu, aduana, anio, serial, nro_consec, nro_item,
			partida_ar, unid_med, descripcio, acuerdo_co, regimen, estado_mer,
			p_bruto, p_neto, cantidad, cif_item, flete_item, seg_item, gast_item, fob, cif,
			importador, nit_desp, despachant, proveedor, pais_orige, pais_pro, depto_des,
			fecha_reg, fecha_reci, mes, canal, tipo_proc, embarque, adu_ing,
			datos_extra
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21,
			$22, $23, $24, $25, $26, $27, $28,
			$29, $30, $31, $32, $33, $34, $35, $36
		)
		RETURNING id, created_at, updated_at
	`

	extra, err := marshalDatosExtra(d.DatosExtra)
	if err != nil {
		return fmt.Errorf("encoding datos_extra: %w", err)
	}

	return r.db.QueryRow(ctx, query,
		d.Desadu, d.Aduana, d.Anio, d.Serial, d.NroConsec, d.NroItem,
		d.PartidaAr, d.UnidMed, d.Descripcio, d.AcuerdoCo, d.Regimen, d.EstadoMer,
		d.PBruto, d.PNeto, d.Cantidad, d.CifItem, d.FleteItem, d.SegItem, d.GastItem, d.Fob, d.Cif,
		d.Importador, d.NitDesp, d.Despachant, d.Proveedor, d.PaisOrige, d.PaisPro, d.DeptoDes,
		d.FechaReg, d.FechaReci, d.Mes, d.Canal, d.TipoProc, d.Embarque, d.AduIng,
		extra,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

// DistinctPartidas returns one (code, description) pair per distinct tariff
// code, taking the description from the most recently created declaration.
func (r *PostgresDeclaracionRepository) DistinctPartidas(ctx context.Context) ([]CodigoDescripcion, error) {
	query := `
		SELECT DISTINCT ON (partida_ar) partida_ar, descripcio
		FROM declaraciones_aduaneras
		WHERE partida_ar IS NOT NULL AND descripcio IS NOT NULL
		ORDER BY partida_ar, created_at DESC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var partidas []CodigoDescripcion
	for rows.Next() {
		var p CodigoDescripcion
		if err := rows.Scan(&p.Codigo, &p.Descripcion); err != nil {
			return nil, err
		}
		partidas = append(partidas, p)
	}
	return partidas, rows.Err()
}

// UpsertPartida inserts or overwrites a catalog entry keyed by code. The
// returned flag reports whether a new row was inserted, taken from the write
// itself (xmax = 0) rather than inferred from timestamps.
func (r *PostgresDeclaracionRepository) UpsertPartida(ctx context.Context, codigo, capitulo, descripcion string) (bool, error) {
	query := `
		INSERT INTO partidas_arancelarias (codigo, capitulo, descripcion)
		VALUES ($1, $2, $3)
		ON CONFLICT (codigo) DO UPDATE SET
			capitulo = EXCLUDED.capitulo,
			descripcion = EXCLUDED.descripcion,
			updated_at = now()
		RETURNING (xmax = 0) AS inserted
	`

	var inserted bool
	if err := r.db.QueryRow(ctx, query, codigo, capitulo, descripcion).Scan(&inserted); err != nil {
		return false, err
	}
	return inserted, nil
}

// PartidasPorCapitulo lists the catalog entries of one chapter ordered by code.
func (r *PostgresDeclaracionRepository) PartidasPorCapitulo(ctx context.Context, capitulo string) ([]CodigoDescripcion, error) {
	query := `
		SELECT codigo, descripcion
		FROM partidas_arancelarias
		WHERE capitulo = $1
		ORDER BY codigo ASC
	`

	rows, err := r.db.Query(ctx, query, capitulo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var partidas []CodigoDescripcion
	for rows.Next() {
		var p CodigoDescripcion
		if err := rows.Scan(&p.Codigo, &p.Descripcion); err != nil {
			return nil, err
		}
		partidas = append(partidas, p)
	}
	return partidas, rows.Err()
}

// Listar returns a filtered, sorted page of declarations plus the matching
// total count and CIF/FOB sums.
func (r *PostgresDeclaracionRepository) Listar(ctx context.Context, f Filtros) (*Listado, error) {
	where, args := buildWhere(f)

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	orderBy := "fecha_reci DESC NULLS LAST"
	if sortableColumns[f.SortBy] {
		dir := "ASC"
		if strings.EqualFold(f.SortDir, "desc") {
			dir = "DESC"
		}
		orderBy = f.SortBy + " " + dir + " NULLS LAST"
	}

	dataQuery := fmt.Sprintf(`
		SELECT %s
		FROM declaraciones_aduaneras
		%s
		ORDER BY %s
		LIMIT %d OFFSET %d
	`, declaracionColumns, where, orderBy, limit, offset)

	rows, err := r.db.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &Listado{}
	for rows.Next() {
		d, err := scanDeclaracion(rows)
		if err != nil {
			return nil, err
		}
		result.Data = append(result.Data, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	countQuery := "SELECT COUNT(*) FROM declaraciones_aduaneras " + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&result.Total); err != nil {
		return nil, err
	}

	sumQuery := `
		SELECT COALESCE(SUM(cif_item), 0), COALESCE(SUM(fob), 0)
		FROM declaraciones_aduaneras ` + where
	if err := r.db.QueryRow(ctx, sumQuery, args...).Scan(&result.TotalCif, &result.TotalFob); err != nil {
		return nil, err
	}

	return result, nil
}

// FilterOptions returns the distinct non-null origin countries and destination
// departments, ascending.
func (r *PostgresDeclaracionRepository) FilterOptions(ctx context.Context) ([]string, []string, error) {
	paises, err := r.distinctColumn(ctx, "pais_orige")
	if err != nil {
		return nil, nil, err
	}
	departamentos, err := r.distinctColumn(ctx, "depto_des")
	if err != nil {
		return nil, nil, err
	}
	return paises, departamentos, nil
}

func (r *PostgresDeclaracionRepository) distinctColumn(ctx context.Context, column string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT %s FROM declaraciones_aduaneras
		WHERE %s IS NOT NULL
		ORDER BY %s ASC
	`, column, column, column)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// ResumenGeneral computes batch-wide totals for the filtered set.
func (r *PostgresDeclaracionRepository) ResumenGeneral(ctx context.Context, f Filtros) (*Resumen, error) {
	where, args := buildWhere(f)
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(cif_item), 0), COALESCE(SUM(fob), 0),
			COALESCE(SUM(cantidad), 0), COALESCE(SUM(p_neto), 0), COALESCE(SUM(p_bruto), 0)
		FROM declaraciones_aduaneras ` + where

	var res Resumen
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&res.TotalRegistros, &res.TotalCif, &res.TotalFob,
		&res.TotalCantidad, &res.TotalPNeto, &res.TotalPBruto,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// AggPorPais groups the filtered set by origin country, largest CIF first.
func (r *PostgresDeclaracionRepository) AggPorPais(ctx context.Context, f Filtros) ([]AgrupadoPais, error) {
	return r.aggPorPaisColumn(ctx, f, "pais_orige")
}

// AggPorPaisProcedencia groups the filtered set by provenance country.
func (r *PostgresDeclaracionRepository) AggPorPaisProcedencia(ctx context.Context, f Filtros) ([]AgrupadoPais, error) {
	return r.aggPorPaisColumn(ctx, f, "pais_pro")
}

func (r *PostgresDeclaracionRepository) aggPorPaisColumn(ctx context.Context, f Filtros, column string) ([]AgrupadoPais, error) {
	where, args := buildWhereExtra(f, column+" IS NOT NULL")
	query := fmt.Sprintf(`
		SELECT %s,
			COALESCE(SUM(cif_item), 0), COALESCE(SUM(fob), 0),
			COALESCE(SUM(cantidad), 0), COALESCE(SUM(p_neto), 0), COUNT(*)
		FROM declaraciones_aduaneras
		%s
		GROUP BY %s
		ORDER BY SUM(cif_item) DESC NULLS LAST
	`, column, where, column)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AgrupadoPais
	for rows.Next() {
		var a AgrupadoPais
		if err := rows.Scan(&a.Pais, &a.TotalCif, &a.TotalFob, &a.TotalCantidad, &a.TotalPNeto, &a.Registros); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// AggPorImportador groups by importer and tax id, largest CIF first.
func (r *PostgresDeclaracionRepository) AggPorImportador(ctx context.Context, f Filtros) ([]AgrupadoImportador, error) {
	where, args := buildWhereExtra(f, "importador IS NOT NULL")
	query := `
		SELECT importador, nit_desp,
			COALESCE(SUM(cif_item), 0), COALESCE(SUM(fob), 0), COALESCE(SUM(p_neto), 0), COUNT(*)
		FROM declaraciones_aduaneras
		` + where + `
		GROUP BY importador, nit_desp
		ORDER BY SUM(cif_item) DESC NULLS LAST
	`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AgrupadoImportador
	for rows.Next() {
		var a AgrupadoImportador
		if err := rows.Scan(&a.Importador, &a.Nit, &a.TotalCif, &a.TotalFob, &a.TotalPNeto, &a.Registros); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// AggPorProveedor groups by supplier and origin country, largest CIF first.
func (r *PostgresDeclaracionRepository) AggPorProveedor(ctx context.Context, f Filtros) ([]AgrupadoProveedor, error) {
	where, args := buildWhereExtra(f, "proveedor IS NOT NULL")
	query := `
		SELECT proveedor, pais_orige,
			COALESCE(SUM(cif_item), 0), COALESCE(SUM(fob), 0), COALESCE(SUM(p_neto), 0), COUNT(*)
		FROM declaraciones_aduaneras
		` + where + `
		GROUP BY proveedor, pais_orige
		ORDER BY SUM(cif_item) DESC NULLS LAST
	`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AgrupadoProveedor
	for rows.Next() {
		var a AgrupadoProveedor
		if err := rows.Scan(&a.Proveedor, &a.Pais, &a.TotalCif, &a.TotalFob, &a.TotalPNeto, &a.Registros); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// AggPorDepartamento groups by destination department, largest CIF first.
func (r *PostgresDeclaracionRepository) AggPorDepartamento(ctx context.Context, f Filtros) ([]AgrupadoDepartamento, error) {
	where, args := buildWhereExtra(f, "depto_des IS NOT NULL")
	query := `
		SELECT depto_des, COALESCE(SUM(cif_item), 0), COALESCE(SUM(fob), 0), COUNT(*)
		FROM declaraciones_aduaneras
		` + where + `
		GROUP BY depto_des
		ORDER BY SUM(cif_item) DESC NULLS LAST
	`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AgrupadoDepartamento
	for rows.Next() {
		var a AgrupadoDepartamento
		if err := rows.Scan(&a.Departamento, &a.TotalCif, &a.TotalFob, &a.Registros); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// AggPorMes groups by the denormalized month-code label. Month ordering is a
// service concern; rows come back in storage order.
func (r *PostgresDeclaracionRepository) AggPorMes(ctx context.Context, f Filtros) ([]AgrupadoMes, error) {
	where, args := buildWhereExtra(f, "mes IS NOT NULL")
	query := `
		SELECT mes, COALESCE(SUM(cif_item), 0), COALESCE(SUM(fob), 0), COALESCE(SUM(p_neto), 0), COUNT(*)
		FROM declaraciones_aduaneras
		` + where + `
		GROUP BY mes
	`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AgrupadoMes
	for rows.Next() {
		var a AgrupadoMes
		if err := rows.Scan(&a.Mes, &a.TotalCif, &a.TotalFob, &a.TotalPNeto, &a.Registros); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// AggPorPartida groups by tariff code and description, largest CIF first.
func (r *PostgresDeclaracionRepository) AggPorPartida(ctx context.Context, f Filtros) ([]AgrupadoPartida, error) {
	where, args := buildWhereExtra(f, "partida_ar IS NOT NULL")
	query := `
		SELECT partida_ar, descripcio,
			COALESCE(SUM(cif_item), 0), COALESCE(SUM(fob), 0), COALESCE(SUM(p_neto), 0), COUNT(*)
		FROM declaraciones_aduaneras
		` + where + `
		GROUP BY partida_ar, descripcio
		ORDER BY SUM(cif_item) DESC NULLS LAST
	`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AgrupadoPartida
	for rows.Next() {
		var a AgrupadoPartida
		if err := rows.Scan(&a.Partida, &a.Descripcion, &a.TotalCif, &a.TotalFob, &a.TotalPNeto, &a.Registros); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// TopCapitulos aggregates by the 2-digit chapter prefix of the tariff code.
func (r *PostgresDeclaracionRepository) TopCapitulos(ctx context.Context, f Filtros, limit int) ([]AgrupadoCapitulo, error) {
	where, args := buildWhereExtra(f, "partida_ar IS NOT NULL")
	query := fmt.Sprintf(`
		SELECT LEFT(REGEXP_REPLACE(partida_ar, '[^0-9]', '', 'g'), 2) AS capitulo,
			COALESCE(SUM(cif_item), 0), COALESCE(SUM(fob), 0), COUNT(*)
		FROM declaraciones_aduaneras
		%s
		GROUP BY capitulo
		ORDER BY SUM(cif_item) DESC NULLS LAST
		LIMIT %d
	`, where, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AgrupadoCapitulo
	for rows.Next() {
		var a AgrupadoCapitulo
		if err := rows.Scan(&a.Capitulo, &a.TotalCif, &a.TotalFob, &a.Registros); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// Detalle returns individual declarations for the export, newest first.
func (r *PostgresDeclaracionRepository) Detalle(ctx context.Context, f Filtros, limit int) ([]Declaracion, error) {
	where, args := buildWhere(f)
	query := fmt.Sprintf(`
		SELECT %s
		FROM declaraciones_aduaneras
		%s
		ORDER BY fecha_reci DESC NULLS LAST
		LIMIT %d
	`, declaracionColumns, where, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Declaracion
	for rows.Next() {
		d, err := scanDeclaracion(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

// buildWhere translates Filtros into a WHERE clause with positional args.
func buildWhere(f Filtros) (string, []any) {
	return buildWhereExtra(f, "")
}

func buildWhereExtra(f Filtros, extra string) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.PaisOrige != "" {
		var paises []string
		for _, p := range strings.Split(f.PaisOrige, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paises = append(paises, p)
			}
		}
		switch {
		case len(paises) == 1:
			conds = append(conds, "pais_orige ILIKE '%' || "+arg(paises[0])+" || '%'")
		case len(paises) > 1:
			conds = append(conds, "pais_orige = ANY("+arg(paises)+")")
		}
	}
	if f.Importador != "" {
		conds = append(conds, "importador ILIKE '%' || "+arg(f.Importador)+" || '%'")
	}
	if f.Proveedor != "" {
		conds = append(conds, "proveedor ILIKE '%' || "+arg(f.Proveedor)+" || '%'")
	}
	if f.Descripcion != "" {
		conds = append(conds, "descripcio ILIKE '%' || "+arg(f.Descripcion)+" || '%'")
	}
	if f.PartidaAr != "" {
		conds = append(conds, "partida_ar LIKE "+arg(f.PartidaAr)+" || '%'")
	}
	if f.Mes != "" {
		conds = append(conds, "mes = "+arg(f.Mes))
	}
	if f.DeptoDes != "" {
		conds = append(conds, "depto_des = "+arg(f.DeptoDes))
	}
	if f.Busqueda != "" {
		b := arg(f.Busqueda)
		conds = append(conds, fmt.Sprintf(`(
			pais_orige ILIKE '%%' || %s || '%%' OR
			importador ILIKE '%%' || %s || '%%' OR
			proveedor ILIKE '%%' || %s || '%%' OR
			descripcio ILIKE '%%' || %s || '%%' OR
			partida_ar ILIKE '%%' || %s || '%%' OR
			nro_consec ILIKE '%%' || %s || '%%')`, b, b, b, b, b, b))
	}
	if f.FechaDesde != nil {
		conds = append(conds, "fecha_reci >= "+arg(*f.FechaDesde))
	}
	if f.FechaHasta != nil {
		conds = append(conds, "fecha_reci <= "+arg(*f.FechaHasta))
	}
	if extra != "" {
		conds = append(conds, extra)
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func scanDeclaracion(rows pgx.Rows) (*Declaracion, error) {
	var d Declaracion
	var extra []byte
	err := rows.Scan(
		&d.ID, &d.Desadu, &d.Aduana, &d.Anio, &d.Serial, &d.NroConsec, &d.NroItem,
		&d.PartidaAr, &d.UnidMed, &d.Descripcio, &d.AcuerdoCo, &d.Regimen, &d.EstadoMer,
		&d.PBruto, &d.PNeto, &d.Cantidad, &d.CifItem, &d.FleteItem, &d.SegItem, &d.GastItem, &d.Fob, &d.Cif,
		&d.Importador, &d.NitDesp, &d.Despachant, &d.Proveedor, &d.PaisOrige, &d.PaisPro, &d.DeptoDes,
		&d.FechaReg, &d.FechaReci, &d.Mes, &d.Canal, &d.TipoProc, &d.Embarque, &d.AduIng,
		&extra, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &d.DatosExtra); err != nil {
			return nil, fmt.Errorf("decoding datos_extra: %w", err)
		}
	}
	return &d, nil
}

func marshalDatosExtra(extra map[string]string) ([]byte, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	return json.Marshal(extra)
}
