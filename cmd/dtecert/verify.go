package main

import (
	"github.com/spf13/cobra"

	"github.com/jhoicas/firmador-dte/internal/application/dto"
)

var (
	verifyNIT   string
	verifyToken string
	verifyFile  string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verifica un JWS contra la llave pública del certificado del NIT",
	Example: `  dtecert verify --nit 06140101901013 --token eyJhbGciOiJSUzUxMiJ9...
  dtecert verify --nit 06140101901013 --file dte.jws`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyNIT, "nit", "", "NIT del emisor (14 dígitos)")
	verifyCmd.Flags().StringVar(&verifyToken, "token", "", "Token JWS")
	verifyCmd.Flags().StringVarP(&verifyFile, "file", "f", "", "Archivo con el token JWS (- para stdin)")
	_ = verifyCmd.MarkFlagRequired("nit")
}

func runVerify(cmd *cobra.Command, _ []string) error {
	token, err := readToken(cmd, verifyToken, verifyFile)
	if err != nil {
		return err
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	return printResult(cmd, a.verify.Verify(cmd.Context(), dto.VerifyRequest{Token: token, Nit: verifyNIT}))
}
