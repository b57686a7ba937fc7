// Package repository provides data access for customs declarations and the
// derived tariff-code catalog.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Declaracion is one customs import/export line item. Most columns are
// nullable because legacy exports routinely omit them.
type Declaracion struct {
	ID uuid.UUID `db:"id"`

	// Business identifiers
	Desadu    *string `db:"desadu"`
	Aduana    *string `db:"aduana"`
	Anio      *int    `db:"anio"`
	Serial    *string `db:"serial"`
	NroConsec *string `db:"nro_consec"`
	NroItem   *int    `db:"nro_item"`

	// Classification
	PartidaAr  *string `db:"partida_ar"`
	UnidMed    *string `db:"unid_med"`
	Descripcio *string `db:"descripcio"`
	AcuerdoCo  *string `db:"acuerdo_co"`
	Regimen    *int    `db:"regimen"`
	EstadoMer  *string `db:"estado_mer"`

	// Commercial values
	PBruto    decimal.NullDecimal `db:"p_bruto"`
	PNeto     decimal.NullDecimal `db:"p_neto"`
	Cantidad  decimal.NullDecimal `db:"cantidad"`
	CifItem   decimal.NullDecimal `db:"cif_item"`
	FleteItem decimal.NullDecimal `db:"flete_item"`
	SegItem   decimal.NullDecimal `db:"seg_item"`
	GastItem  decimal.NullDecimal `db:"gast_item"`
	Fob       decimal.NullDecimal `db:"fob"`
	Cif       decimal.NullDecimal `db:"cif"`

	// Parties
	Importador *string `db:"importador"`
	NitDesp    *string `db:"nit_desp"`
	Despachant *string `db:"despachant"`
	Proveedor  *string `db:"proveedor"`
	PaisOrige  *string `db:"pais_orige"`
	PaisPro    *string `db:"pais_pro"`
	DeptoDes   *string `db:"depto_des"`

	// Temporal
	FechaReg  *time.Time `db:"fecha_reg"`
	FechaReci *time.Time `db:"fecha_reci"`
	Mes       *string    `db:"mes"`

	// Process metadata
	Canal    *string `db:"canal"`
	TipoProc *string `db:"tipo_proc"`
	Embarque *string `db:"embarque"`
	AduIng   *string `db:"adu_ing"`

	// DatosExtra holds the legacy auxiliary columns that were never promoted
	// to first-class fields. Keys come from a fixed allow-list; nil when the
	// source row carried none of them.
	DatosExtra map[string]string `db:"datos_extra"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PartidaArancelaria is one entry of the deduplicated tariff-code catalog.
type PartidaArancelaria struct {
	ID          uuid.UUID `db:"id"`
	Codigo      string    `db:"codigo"`
	Capitulo    string    `db:"capitulo"`
	Descripcion string    `db:"descripcion"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// CodigoDescripcion is the compact (tariff code, description) projection used
// for catalog sync and chapter lookups.
type CodigoDescripcion struct {
	Codigo      string
	Descripcion string
}

// Filtros specifies filter, search, sort and pagination options for listing
// and report queries. String filters are ignored when empty.
type Filtros struct {
	PaisOrige   string // comma-separated list; one value matches loosely, several match exactly
	Importador  string
	Proveedor   string
	Descripcion string
	PartidaAr   string // prefix match
	Mes         string
	DeptoDes    string
	Busqueda    string // free text across the main columns

	FechaDesde *time.Time
	FechaHasta *time.Time

	SortBy  string
	SortDir string // "asc" or "desc"
	Limit   int
	Offset  int
}

// Listado is the result of a filtered declaration list query.
type Listado struct {
	Data     []Declaracion
	Total    int64
	TotalCif decimal.Decimal
	TotalFob decimal.Decimal
}

// Resumen holds batch-wide aggregate totals.
type Resumen struct {
	TotalRegistros int64
	TotalCif       decimal.Decimal
	TotalFob       decimal.Decimal
	TotalCantidad  decimal.Decimal
	TotalPNeto     decimal.Decimal
	TotalPBruto    decimal.Decimal
}

// AgrupadoPais is a per-country aggregate (origin or provenance).
type AgrupadoPais struct {
	Pais          string
	TotalCif      decimal.Decimal
	TotalFob      decimal.Decimal
	TotalCantidad decimal.Decimal
	TotalPNeto    decimal.Decimal
	Registros     int64
}

// AgrupadoImportador is a per-importer aggregate.
type AgrupadoImportador struct {
	Importador string
	Nit        *string
	TotalCif   decimal.Decimal
	TotalFob   decimal.Decimal
	TotalPNeto decimal.Decimal
	Registros  int64
}

// AgrupadoProveedor is a per-supplier aggregate.
type AgrupadoProveedor struct {
	Proveedor  string
	Pais       *string
	TotalCif   decimal.Decimal
	TotalFob   decimal.Decimal
	TotalPNeto decimal.Decimal
	Registros  int64
}

// AgrupadoDepartamento is a per-destination-department aggregate.
type AgrupadoDepartamento struct {
	Departamento string
	TotalCif     decimal.Decimal
	TotalFob     decimal.Decimal
	Registros    int64
}

// AgrupadoMes is a per-month-code aggregate.
type AgrupadoMes struct {
	Mes        string
	TotalCif   decimal.Decimal
	TotalFob   decimal.Decimal
	TotalPNeto decimal.Decimal
	Registros  int64
}

// AgrupadoPartida is a per-tariff-code aggregate.
type AgrupadoPartida struct {
	Partida     string
	Descripcion *string
	TotalCif    decimal.Decimal
	TotalFob    decimal.Decimal
	TotalPNeto  decimal.Decimal
	Registros   int64
}

// AgrupadoCapitulo is a per-tariff-chapter aggregate.
type AgrupadoCapitulo struct {
	Capitulo  string
	TotalCif  decimal.Decimal
	TotalFob  decimal.Decimal
	Registros int64
}

// DeclaracionRepository defines data access operations for declarations and
// the tariff catalog.
type DeclaracionRepository interface {
	// Ingestion
	CreateDeclaracion(ctx context.Context, d *Declaracion) error

	// Catalog sync
	DistinctPartidas(ctx context.Context) ([]CodigoDescripcion, error)
	UpsertPartida(ctx context.Context, codigo, capitulo, descripcion string) (inserted bool, err error)
	PartidasPorCapitulo(ctx context.Context, capitulo string) ([]CodigoDescripcion, error)

	// Listing
	Listar(ctx context.Context, f Filtros) (*Listado, error)
	FilterOptions(ctx context.Context) (paises, departamentos []string, err error)

	// Aggregates (all honor the fecha/filter fields of Filtros)
	ResumenGeneral(ctx context.Context, f Filtros) (*Resumen, error)
	AggPorPais(ctx context.Context, f Filtros) ([]AgrupadoPais, error)
	AggPorPaisProcedencia(ctx context.Context, f Filtros) ([]AgrupadoPais, error)
	AggPorImportador(ctx context.Context, f Filtros) ([]AgrupadoImportador, error)
	AggPorProveedor(ctx context.Context, f Filtros) ([]AgrupadoProveedor, error)
	AggPorDepartamento(ctx context.Context, f Filtros) ([]AgrupadoDepartamento, error)
	AggPorMes(ctx context.Context, f Filtros) ([]AgrupadoMes, error)
	AggPorPartida(ctx context.Context, f Filtros) ([]AgrupadoPartida, error)
	TopCapitulos(ctx context.Context, f Filtros, limit int) ([]AgrupadoCapitulo, error)

	// Detalle returns individual declarations for the report export, newest
	// reception date first, capped at limit rows.
	Detalle(ctx context.Context, f Filtros, limit int) ([]Declaracion, error)
}
