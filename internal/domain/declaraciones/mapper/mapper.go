// Package mapper coerces raw source rows into declaration records. Coercion is
// forgiving: a value that fails to parse becomes null rather than failing the
// row, because legacy exports mix formats within a single file.
package mapper

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comexdata/aduana-api/internal/domain/declaraciones/parser"
	"github.com/comexdata/aduana-api/internal/domain/declaraciones/repository"
)

// MapRow converts one source row into a declaration. It returns ok=false when
// the row carries none of the identifying columns (DESADU, ADUANA, NRO_CONSEC),
// which marks residual footer or separator lines to be skipped.
func MapRow(row parser.Row) (*repository.Declaracion, bool) {
	if get(row, "DESADU") == nil && get(row, "ADUANA") == nil && get(row, "NRO_CONSEC") == nil {
		return nil, false
	}

	d := &repository.Declaracion{
		Desadu:    get(row, "DESADU"),
		Aduana:    get(row, "ADUANA"),
		Anio:      parseEntero(get(row, "ANIO")),
		Serial:    get(row, "SERIAL"),
		NroConsec: get(row, "NRO_CONSEC"),
		NroItem:   parseEntero(get(row, "NRO_ITEM")),

		PartidaAr:  get(row, "PARTIDA_AR"),
		UnidMed:    get(row, "UNID_MED"),
		Descripcio: get(row, "DESCRIPCIO"),
		AcuerdoCo:  get(row, "ACUERDO_CO"),
		Regimen:    parseEntero(get(row, "REGIMEN")),
		EstadoMer:  get(row, "ESTADO_MER"),

		PBruto:    parseDecimal(get(row, "P_BRUTO")),
		PNeto:     parseDecimal(get(row, "P_NETO")),
		Cantidad:  parseDecimal(get(row, "CANTIDAD")),
		CifItem:   parseDecimal(get(row, "CIF_ITEM")),
		FleteItem: parseDecimal(get(row, "FLETE_ITEM")),
		SegItem:   parseDecimal(get(row, "SEG_ITEM")),
		GastItem:  parseDecimal(get(row, "GAST_ITEM")),
		Fob:       parseDecimal(get(row, "FOB")),
		Cif:       parseDecimal(get(row, "CIF")),

		Importador: get(row, "IMPORTADOR"),
		NitDesp:    get(row, "NIT_DESP"),
		Despachant: get(row, "DESPACHANT"),
		Proveedor:  get(row, "PROVEEDOR"),
		PaisOrige:  get(row, "PAIS_ORIGE"),
		PaisPro:    get(row, "PAIS_PRO"),
		DeptoDes:   get(row, "DEPTO_DES"),

		FechaReg:  parseFecha(get(row, "FECHA_REG")),
		FechaReci: parseFecha(get(row, "FECHA_RECI")),
		Mes:       get(row, "MES"),

		Canal:    get(row, "CANAL"),
		TipoProc: get(row, "TIPO_PROC"),
		Embarque: get(row, "EMBARQUE"),
		AduIng:   get(row, "ADU_ING"),

		DatosExtra: collectExtras(row),
	}
	return d, true
}

// get looks a column up by exact name and then by its uppercase form, trims the
// value, and treats empty strings as absent.
func get(row parser.Row, key string) *string {
	v, ok := row[key]
	if !ok {
		v, ok = row[strings.ToUpper(key)]
	}
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// parseDecimal accepts both "1234.56" and "1234,56". Only the first comma is
// rewritten so grouped values like "1,234,56" stay invalid.
func parseDecimal(s *string) decimal.NullDecimal {
	if s == nil {
		return decimal.NullDecimal{}
	}
	normalized := strings.Replace(*s, ",", ".", 1)
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func parseEntero(s *string) *int {
	if s == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(*s))
	if err != nil {
		return nil
	}
	return &n
}

// parseFecha parses day/month/year dates separated by "/", the only separator
// the legacy importer emits. Two-digit years pivot at 50: 50..99 map to
// 1950..1999, 0..49 to 2000..2049. Impossible calendar dates like 31/02/23
// become null instead of rolling over.
func parseFecha(s *string) *time.Time {
	if s == nil {
		return nil
	}
	parts := strings.Split(*s, "/")
	if len(parts) != 3 {
		return nil
	}

	day, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil
	}
	month, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil
	}
	year, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return nil
	}
	if year < 100 {
		if year >= 50 {
			year += 1900
		} else {
			year += 2000
		}
	}
	if month < 1 || month > 12 || day < 1 {
		return nil
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return nil
	}
	return &t
}

// collectExtras gathers the allow-listed auxiliary columns present in the row.
// Returns nil when none are present so empty payloads persist as NULL.
func collectExtras(row parser.Row) map[string]string {
	var extras map[string]string
	for _, col := range extraColumns {
		if v := get(row, col); v != nil {
			if extras == nil {
				extras = make(map[string]string)
			}
			extras[col] = *v
		}
	}
	return extras
}
