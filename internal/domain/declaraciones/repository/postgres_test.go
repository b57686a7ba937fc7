package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresDeclaracionRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPostgresDeclaracionRepository(mock)
}

// anyArgs builds n pgxmock.AnyArg matchers for wide parameter lists.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestCreateDeclaracion(t *testing.T) {
	mock, repo := newMockRepo(t)

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery("INSERT INTO declaraciones_aduaneras").
		WithArgs(anyArgs(36)...).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(id, now, now))

	consec := "C-1"
	d := &Declaracion{NroConsec: &consec}
	require.NoError(t, repo.CreateDeclaracion(context.Background(), d))

	assert.Equal(t, id, d.ID)
	assert.Equal(t, now, d.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDistinctPartidas(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT ON (partida_ar)")).
		WillReturnRows(pgxmock.NewRows([]string{"partida_ar", "descripcio"}).
			AddRow("8703231090", "VEHICULO").
			AddRow("0201100000", "CARNE BOVINA"))

	got, err := repo.DistinctPartidas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []CodigoDescripcion{
		{Codigo: "8703231090", Descripcion: "VEHICULO"},
		{Codigo: "0201100000", Descripcion: "CARNE BOVINA"},
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertPartida(t *testing.T) {
	t.Run("reports an insert", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery("INSERT INTO partidas_arancelarias").
			WithArgs("8703231090", "87", "VEHICULO").
			WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(true))

		inserted, err := repo.UpsertPartida(context.Background(), "8703231090", "87", "VEHICULO")
		require.NoError(t, err)
		assert.True(t, inserted)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports an update", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery("INSERT INTO partidas_arancelarias").
			WithArgs("8703231090", "87", "VEHICULO NUEVO").
			WillReturnRows(pgxmock.NewRows([]string{"inserted"}).AddRow(false))

		inserted, err := repo.UpsertPartida(context.Background(), "8703231090", "87", "VEHICULO NUEVO")
		require.NoError(t, err)
		assert.False(t, inserted)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPartidasPorCapitulo(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery("SELECT codigo, descripcion").
		WithArgs("87").
		WillReturnRows(pgxmock.NewRows([]string{"codigo", "descripcion"}).
			AddRow("8703231090", "VEHICULO"))

	got, err := repo.PartidasPorCapitulo(context.Background(), "87")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "8703231090", got[0].Codigo)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResumenGeneral(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*),")).
		WillReturnRows(pgxmock.NewRows([]string{"count", "cif", "fob", "cantidad", "p_neto", "p_bruto"}).
			AddRow(int64(10), decimal.NewFromInt(1000), decimal.NewFromInt(900),
				decimal.NewFromInt(50), decimal.NewFromInt(400), decimal.NewFromInt(450)))

	got, err := repo.ResumenGeneral(context.Background(), Filtros{})
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.TotalRegistros)
	assert.True(t, got.TotalCif.Equal(decimal.NewFromInt(1000)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTopCapitulos(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("LEFT(REGEXP_REPLACE(partida_ar, '[^0-9]', '', 'g'), 2)")).
		WillReturnRows(pgxmock.NewRows([]string{"capitulo", "cif", "fob", "count"}).
			AddRow("87", decimal.NewFromInt(800), decimal.NewFromInt(700), int64(4)).
			AddRow("02", decimal.NewFromInt(200), decimal.NewFromInt(180), int64(6)))

	got, err := repo.TopCapitulos(context.Background(), Filtros{}, 8)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "87", got[0].Capitulo)
	assert.Equal(t, int64(6), got[1].Registros)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildWhere(t *testing.T) {
	desde := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	hasta := time.Date(2023, time.June, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		f        Filtros
		extra    string
		want     string
		wantArgs []any
	}{
		{
			name: "no filters",
			f:    Filtros{},
			want: "",
		},
		{
			name:     "single country is a loose match",
			f:        Filtros{PaisOrige: "JAPON"},
			want:     "WHERE pais_orige ILIKE '%' || $1 || '%'",
			wantArgs: []any{"JAPON"},
		},
		{
			name:     "several countries match exactly",
			f:        Filtros{PaisOrige: "JAPON, CHILE ,BRASIL"},
			want:     "WHERE pais_orige = ANY($1)",
			wantArgs: []any{[]string{"JAPON", "CHILE", "BRASIL"}},
		},
		{
			name:     "tariff code is a prefix match",
			f:        Filtros{PartidaAr: "8703"},
			want:     "WHERE partida_ar LIKE $1 || '%'",
			wantArgs: []any{"8703"},
		},
		{
			name:     "date range",
			f:        Filtros{FechaDesde: &desde, FechaHasta: &hasta},
			want:     "WHERE fecha_reci >= $1 AND fecha_reci <= $2",
			wantArgs: []any{desde, hasta},
		},
		{
			name:     "extra condition only",
			f:        Filtros{},
			extra:    "pais_orige IS NOT NULL",
			want:     "WHERE pais_orige IS NOT NULL",
			wantArgs: nil,
		},
		{
			name:     "filters combine with AND",
			f:        Filtros{Importador: "oriente", Mes: "MAR"},
			extra:    "importador IS NOT NULL",
			want:     "WHERE importador ILIKE '%' || $1 || '%' AND mes = $2 AND importador IS NOT NULL",
			wantArgs: []any{"oriente", "MAR"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := buildWhereExtra(tt.f, tt.extra)
			assert.Equal(t, tt.want, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuildWhere_BusquedaSharesOneArg(t *testing.T) {
	where, args := buildWhere(Filtros{Busqueda: "toyota"})
	assert.Contains(t, where, "pais_orige ILIKE")
	assert.Contains(t, where, "nro_consec ILIKE")
	assert.Equal(t, []any{"toyota"}, args)
}

func TestListar_SortAllowList(t *testing.T) {
	t.Run("allowed column is used", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery("ORDER BY fob ASC NULLS LAST").
			WillReturnRows(declaracionRows())
		expectCountAndSums(mock)

		_, err := repo.Listar(context.Background(), Filtros{SortBy: "fob", SortDir: "asc"})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown column falls back to fecha_reci desc", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery("ORDER BY fecha_reci DESC NULLS LAST").
			WillReturnRows(declaracionRows())
		expectCountAndSums(mock)

		_, err := repo.Listar(context.Background(), Filtros{SortBy: "created_at; DROP TABLE"})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("default limit is 50", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery("LIMIT 50 OFFSET 0").
			WillReturnRows(declaracionRows())
		expectCountAndSums(mock)

		_, err := repo.Listar(context.Background(), Filtros{})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func declaracionRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "desadu", "aduana", "anio", "serial", "nro_consec", "nro_item",
		"partida_ar", "unid_med", "descripcio", "acuerdo_co", "regimen", "estado_mer",
		"p_bruto", "p_neto", "cantidad", "cif_item", "flete_item", "seg_item", "gast_item", "fob", "cif",
		"importador", "nit_desp", "despachant", "proveedor", "pais_orige", "pais_pro", "depto_des",
		"fecha_reg", "fecha_reci", "mes", "canal", "tipo_proc", "embarque", "adu_ing",
		"datos_extra", "created_at", "updated_at",
	})
}

func expectCountAndSums(mock pgxmock.PgxPoolIface) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM declaraciones_aduaneras")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(SUM(cif_item), 0), COALESCE(SUM(fob), 0)")).
		WillReturnRows(pgxmock.NewRows([]string{"cif", "fob"}).
			AddRow(decimal.Zero, decimal.Zero))
}
