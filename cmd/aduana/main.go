// Command aduana manages the customs import declaration store: it ingests
// SIDUNEA exports, keeps the tariff catalog in sync, answers filtered queries
// and produces the multi-sheet Excel report.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/comexdata/aduana-api/internal/domain/declaraciones/repository"
	"github.com/comexdata/aduana-api/pkg/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(ctx context.Context) (*Dependencies, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	return InitDependencies(ctx, cfg, logger)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "aduana",
		Short:         "Customs import declaration management",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newImportarCmd(),
		newCatalogoCmd(),
		newListarCmd(),
		newReporteCmd(),
		newServirCmd(),
	)
	return root
}

func newImportarCmd() *cobra.Command {
	var delimitador string

	cmd := &cobra.Command{
		Use:   "importar <archivo>",
		Short: "Import a CSV/TSV or Excel declaration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Cleanup()

			result, err := deps.ImportService.ImportFromPath(cmd.Context(), args[0], delimitador)
			if err != nil {
				return err
			}

			fmt.Printf("Importadas: %d\n", result.Importadas)
			fmt.Printf("Omitidas:   %d\n", result.Omitidas)
			fmt.Printf("Errores:    %d\n", len(result.Errores))
			for _, e := range result.Errores {
				fmt.Println("  " + e)
			}
			for _, a := range result.Advertencias {
				fmt.Println("Advertencia: " + a)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&delimitador, "delimitador", "auto", "delimiter: auto, tab, semicolon, comma or pipe")
	return cmd
}

func newCatalogoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalogo",
		Short: "Tariff catalog operations",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "sync",
			Short: "Rebuild the tariff catalog from imported declarations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				deps, err := setup(cmd.Context())
				if err != nil {
					return err
				}
				defer deps.Cleanup()

				result, err := deps.CatalogService.SyncCatalogo(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("Total: %d, agregadas: %d, actualizadas: %d\n",
					result.Total, result.Agregadas, result.Actualizadas)
				return nil
			},
		},
		&cobra.Command{
			Use:   "subpartidas <capitulo>",
			Short: "List the catalog entries of a 2-digit chapter",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				deps, err := setup(cmd.Context())
				if err != nil {
					return err
				}
				defer deps.Cleanup()

				partidas, err := deps.CatalogService.GetSubPartidas(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, p := range partidas {
					fmt.Printf("%s\t%s\n", p.Codigo, p.Descripcion)
				}
				return nil
			},
		},
	)
	return cmd
}

// filterFlags binds the shared filter options onto a command.
func filterFlags(cmd *cobra.Command, f *filtrosFlags) {
	cmd.Flags().StringVar(&f.pais, "pais", "", "origin country (comma-separated for several)")
	cmd.Flags().StringVar(&f.importador, "importador", "", "importer name contains")
	cmd.Flags().StringVar(&f.proveedor, "proveedor", "", "supplier name contains")
	cmd.Flags().StringVar(&f.descripcion, "descripcion", "", "goods description contains")
	cmd.Flags().StringVar(&f.partida, "partida", "", "tariff code prefix")
	cmd.Flags().StringVar(&f.mes, "mes", "", "month code (ENE..DIC)")
	cmd.Flags().StringVar(&f.depto, "depto", "", "destination department")
	cmd.Flags().StringVar(&f.busqueda, "busqueda", "", "free text search")
	cmd.Flags().StringVar(&f.desde, "desde", "", "reception date from (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.hasta, "hasta", "", "reception date to (YYYY-MM-DD)")
}

type filtrosFlags struct {
	pais, importador, proveedor, descripcion string
	partida, mes, depto, busqueda            string
	desde, hasta                             string
}

func (f *filtrosFlags) toFiltros() (repository.Filtros, error) {
	filtros := repository.Filtros{
		PaisOrige:   f.pais,
		Importador:  f.importador,
		Proveedor:   f.proveedor,
		Descripcion: f.descripcion,
		PartidaAr:   f.partida,
		Mes:         f.mes,
		DeptoDes:    f.depto,
		Busqueda:    f.busqueda,
	}

	if f.desde != "" {
		t, err := time.Parse("2006-01-02", f.desde)
		if err != nil {
			return filtros, fmt.Errorf("invalid --desde date: %w", err)
		}
		filtros.FechaDesde = &t
	}
	if f.hasta != "" {
		t, err := time.Parse("2006-01-02", f.hasta)
		if err != nil {
			return filtros, fmt.Errorf("invalid --hasta date: %w", err)
		}
		filtros.FechaHasta = &t
	}
	return filtros, nil
}

func newListarCmd() *cobra.Command {
	var flags filtrosFlags
	var orden, dir string
	var limite, offset int

	cmd := &cobra.Command{
		Use:   "listar",
		Short: "List declarations with filters and sorting",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Cleanup()

			filtros, err := flags.toFiltros()
			if err != nil {
				return err
			}
			filtros.SortBy = orden
			filtros.SortDir = dir
			filtros.Limit = limite
			filtros.Offset = offset

			listado, err := deps.QueryService.Listar(cmd.Context(), filtros)
			if err != nil {
				return err
			}

			for _, d := range listado.Data {
				fecha := ""
				if d.FechaReci != nil {
					fecha = d.FechaReci.Format("2006-01-02")
				}
				fmt.Printf("%s\t%s\t%s\t%s\t%s\n",
					fecha, valor(d.NroConsec), valor(d.PartidaAr),
					valor(d.Importador), d.CifItem.Decimal.StringFixed(2))
			}
			fmt.Printf("Total: %d registros, CIF %s, FOB %s\n",
				listado.Total, listado.TotalCif.StringFixed(2), listado.TotalFob.StringFixed(2))
			return nil
		},
	}

	filterFlags(cmd, &flags)
	cmd.Flags().StringVar(&orden, "orden", "", "sort column")
	cmd.Flags().StringVar(&dir, "dir", "desc", "sort direction: asc or desc")
	cmd.Flags().IntVar(&limite, "limite", 50, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func newReporteCmd() *cobra.Command {
	var flags filtrosFlags
	var salida string

	cmd := &cobra.Command{
		Use:   "reporte",
		Short: "Generate the multi-sheet Excel import report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Cleanup()

			filtros, err := flags.toFiltros()
			if err != nil {
				return err
			}

			nombre, contenido, err := deps.QueryService.GenerarReporteExcel(cmd.Context(), filtros)
			if err != nil {
				return err
			}

			dest := filepath.Join(salida, nombre)
			if err := os.WriteFile(dest, contenido, 0o644); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			fmt.Println(dest)
			return nil
		},
	}

	filterFlags(cmd, &flags)
	cmd.Flags().StringVar(&salida, "salida", ".", "output directory")
	return cmd
}

// newServirCmd runs the background scheduler and the metrics endpoint until
// interrupted.
func newServirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "servir",
		Short: "Run scheduled jobs and the metrics endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Cleanup()

			if deps.Scheduler != nil {
				if err := deps.Scheduler.Start(); err != nil {
					return fmt.Errorf("starting scheduler: %w", err)
				}
			}

			var srv *http.Server
			if deps.Config.Observability.MetricsEnabled {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				srv = &http.Server{
					Addr:    fmt.Sprintf("%s:%d", deps.Config.Server.Host, deps.Config.Observability.MetricsPort),
					Handler: mux,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						deps.Logger.Error("metrics server failed", slog.Any("error", err))
					}
				}()
				deps.Logger.Info("metrics endpoint listening", slog.String("addr", srv.Addr))
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			if srv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					deps.Logger.Warn("metrics server shutdown", slog.Any("error", err))
				}
			}
			return nil
		},
	}
}

func valor(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
