package main

import (
	"github.com/spf13/cobra"

	"github.com/jhoicas/firmador-dte/internal/application/dto"
)

var (
	extractToken string
	extractFile  string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Decodifica el payload de un JWS sin verificar la firma",
	Args:  cobra.NoArgs,
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractToken, "token", "", "Token JWS")
	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "", "Archivo con el token JWS (- para stdin)")
}

func runExtract(cmd *cobra.Command, _ []string) error {
	token, err := readToken(cmd, extractToken, extractFile)
	if err != nil {
		return err
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	return printResult(cmd, a.verify.ExtractPayload(cmd.Context(), dto.ExtractRequest{Token: token}))
}
