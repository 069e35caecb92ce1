package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jhoicas/firmador-dte/internal/application/dto"
	"github.com/jhoicas/firmador-dte/internal/application/signing"
	"github.com/jhoicas/firmador-dte/internal/infrastructure/certificate"
	"github.com/jhoicas/firmador-dte/internal/infrastructure/jws"
	"github.com/jhoicas/firmador-dte/internal/infrastructure/keys"
	"github.com/jhoicas/firmador-dte/pkg/config"
	"github.com/jhoicas/firmador-dte/pkg/logger"
)

var (
	certDir     string
	payloadMode string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "dtecert",
	Short: "Firma y verificación de DTE (JWS RS512)",
	Long: "Firma Documentos Tributarios Electrónicos con el certificado de Hacienda de cada NIT, " +
		"verifica tokens JWS y diagnostica archivos de certificado.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&certDir, "cert-dir", "", "Directorio de certificados (por defecto CERT_DIRECTORY)")
	rootCmd.PersistentFlags().StringVar(&payloadMode, "payload-mode", "", "Serialización del payload: compact o pretty (por defecto SIGNING_PAYLOAD_MODE)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "Nivel de log: debug, info, warn, error (por defecto LOG_LEVEL)")

	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(tokenCmd)
}

// app dependencias de los comandos, construidas desde la configuración y los flags globales.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	loader *certificate.Loader
	sign   *signing.SignUseCase
	verify *signing.VerifyUseCase
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cargar configuración: %w", err)
	}
	if certDir != "" {
		cfg.Signing.CertDirectory = certDir
	}
	if payloadMode != "" {
		cfg.Signing.PayloadMode = payloadMode
	}
	if logLevel != "" {
		cfg.App.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := jws.ParsePayloadMode(cfg.Signing.PayloadMode)
	if err != nil {
		return nil, err
	}

	// stdout queda para los resultados JSON.
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Output: cmd.ErrOrStderr()})
	normalizer := keys.NewNormalizer(log)
	loader := certificate.NewLoader(cfg.Signing.CertDirectory, normalizer, log)
	return &app{
		cfg:    cfg,
		log:    log,
		loader: loader,
		sign:   signing.NewSignUseCase(loader, jws.NewSigner(normalizer, mode), nil, log),
		verify: signing.NewVerifyUseCase(loader, jws.NewVerifier(), log),
	}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// printResult imprime el resultado y devuelve error si la operación falló (exit code 1).
func printResult(cmd *cobra.Command, res dto.Result) error {
	if err := printJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%s: %s", res.ErrorCode, res.Message)
	}
	return nil
}

// readToken devuelve --token o el contenido de --file ("-" lee stdin).
func readToken(cmd *cobra.Command, token, file string) (string, error) {
	switch {
	case token != "" && file != "":
		return "", fmt.Errorf("use --token o --file, no ambos")
	case token != "":
		return strings.TrimSpace(token), nil
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("leer stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("leer token: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return "", fmt.Errorf("se requiere --token o --file")
	}
}
