package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/firmador-dte/pkg/config"
	"github.com/jhoicas/firmador-dte/pkg/jwt"
)

var (
	tokenClient  string
	tokenScopes  []string
	tokenMinutes int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Emite un token de cliente para el API (requiere JWT_SECRET)",
	Example: `  dtecert token --client erp-contable
  dtecert token --client verificador --scope dte:verify --minutes 1440`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenClient, "client", "", "Identificador del cliente")
	tokenCmd.Flags().StringSliceVar(&tokenScopes, "scope", nil, "Scopes concedidos (dte:sign, dte:verify); por defecto todos")
	tokenCmd.Flags().IntVar(&tokenMinutes, "minutes", 0, "Vigencia en minutos (por defecto JWT_EXPIRATION_MINUTES)")
	_ = tokenCmd.MarkFlagRequired("client")
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}
	if !cfg.JWT.Enabled() {
		return fmt.Errorf("JWT_SECRET no está configurado")
	}
	for _, s := range tokenScopes {
		if s != jwt.ScopeSign && s != jwt.ScopeVerify {
			return fmt.Errorf("scope desconocido %q", s)
		}
	}
	minutes := tokenMinutes
	if minutes <= 0 {
		minutes = cfg.JWT.Expiration
	}

	tok, err := jwt.Generate(cfg.JWT.Secret, tokenClient, tokenScopes, cfg.JWT.Issuer, minutes)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
	return err
}
