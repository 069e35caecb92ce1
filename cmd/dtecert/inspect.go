package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/firmador-dte/internal/application/dto"
	"github.com/jhoicas/firmador-dte/internal/infrastructure/certificate"
	"github.com/jhoicas/firmador-dte/pkg/dte"
	"github.com/jhoicas/firmador-dte/pkg/secret"
)

var (
	inspectNIT      string
	inspectPassword string
	inspectShowKey  bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Diagnostica el certificado de un NIT",
	Long: "Muestra el esquema, el estado (activo/verificado), la huella y si la llave privada se " +
		"puede descifrar con la contraseña dada. Nunca imprime la llave privada.",
	Example: `  dtecert inspect --nit 0614-010190-101-3
  dtecert inspect --nit 06140101901013 --password 'MiClave123' --public-key`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectNIT, "nit", "", "NIT del certificado")
	inspectCmd.Flags().StringVarP(&inspectPassword, "password", "p", "", "Contraseña de la llave privada")
	inspectCmd.Flags().BoolVar(&inspectShowKey, "public-key", false, "Incluir la llave pública PEM")
	_ = inspectCmd.MarkFlagRequired("nit")
}

type inspectOutput struct {
	NIT           string      `json:"nit"`
	NITFormateado string      `json:"nitFormateado"`
	Path          string      `json:"path"`
	Schema        string      `json:"schema"`
	Active        bool        `json:"active"`
	Verified      bool        `json:"verified"`
	HasPublicKey  bool        `json:"hasPublicKey"`
	KeyID         string      `json:"keyId,omitempty"`
	Fingerprint   string      `json:"fingerprint,omitempty"`
	KeyEncoding   string      `json:"keyEncoding"`
	Usable        bool        `json:"usable"`
	Validation    *dto.Result `json:"validation,omitempty"`
	Key           *dto.Result `json:"key,omitempty"`
	PublicKeyPEM  string      `json:"publicKeyPem,omitempty"`
}

func runInspect(cmd *cobra.Command, _ []string) error {
	nit, err := dte.NormalizeNIT(inspectNIT)
	if err != nil {
		return err
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	password := secret.FromString(inspectPassword)
	defer password.Destroy()

	rep, err := a.loader.Inspect(nit, password)
	if err != nil {
		return printResult(cmd, dto.Failure(err))
	}
	out := newInspectOutput(rep)
	if err := printJSON(cmd.OutOrStdout(), out); err != nil {
		return err
	}
	if !out.Usable {
		return fmt.Errorf("el certificado del NIT %s no es utilizable para firmar", nit)
	}
	return nil
}

func newInspectOutput(rep *certificate.Report) inspectOutput {
	out := inspectOutput{
		NIT:           rep.NIT,
		NITFormateado: dte.FormatNIT(rep.NIT),
		Path:          rep.Path,
		Schema:        rep.Variant.String(),
		Active:        rep.Active,
		Verified:      rep.Verified,
		HasPublicKey:  rep.HasPublicKey,
		KeyID:         rep.KeyID,
		Fingerprint:   rep.Fingerprint,
		KeyEncoding:   rep.KeyEncoding,
		Usable:        rep.OK(),
	}
	if rep.ValidationErr != nil {
		res := dto.Failure(rep.ValidationErr)
		out.Validation = &res
	}
	if rep.KeyErr != nil {
		res := dto.Failure(rep.KeyErr)
		out.Key = &res
	}
	if inspectShowKey {
		out.PublicKeyPEM = rep.PublicKeyPEM
	}
	return out
}
