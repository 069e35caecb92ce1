package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/firmador-dte/internal/application/dto"
)

var signConcurrency int

var signCmd = &cobra.Command{
	Use:   "sign <request.json>...",
	Short: "Firma una o varias solicitudes {nit, passwordPri, dteJson}",
	Long: "Firma cada archivo de solicitud con el certificado de su NIT. Con varios archivos las " +
		"firmas se hacen en paralelo y se imprime un arreglo en el orden de los argumentos.",
	Example: `  dtecert sign solicitud.json
  dtecert sign lote/*.json --concurrency 8`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSign,
}

func init() {
	signCmd.Flags().IntVarP(&signConcurrency, "concurrency", "c", 0, "Firmas simultáneas (por defecto SIGNING_CONCURRENCY)")
}

type signOutput struct {
	File   string     `json:"file"`
	Result dto.Result `json:"result"`
}

func runSign(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		return printResult(cmd, a.sign.SignFile(cmd.Context(), args[0]))
	}

	limit := signConcurrency
	if limit <= 0 {
		limit = a.cfg.Signing.Concurrency
	}
	results := signFiles(cmd.Context(), a, args, limit)

	failed := 0
	for _, r := range results {
		if !r.Result.Success {
			failed++
		}
	}
	if err := printJSON(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d de %d firmas fallaron", failed, len(results))
	}
	return nil
}

// signFiles firma los archivos con a lo sumo limit firmas en vuelo. Cada resultado ocupa la
// posición de su archivo; un fallo no cancela el resto.
func signFiles(ctx context.Context, a *app, files []string, limit int) []signOutput {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]signOutput, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			results[i] = signOutput{File: file, Result: a.sign.SignFile(gctx, file)}
			return nil
		})
	}
	_ = g.Wait()
	a.log.Info().Int("files", len(files)).Int("concurrency", limit).Msg("lote firmado")
	return results
}
