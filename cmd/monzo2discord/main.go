package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/brizzai/monzo2discord/internal/auth"
	"github.com/brizzai/monzo2discord/internal/auth/constants"
	"github.com/brizzai/monzo2discord/internal/auth/handlers"
	"github.com/brizzai/monzo2discord/internal/auth/pending"
	"github.com/brizzai/monzo2discord/internal/auth/providers"
	"github.com/brizzai/monzo2discord/internal/config"
	"github.com/brizzai/monzo2discord/internal/logger"
	"github.com/brizzai/monzo2discord/internal/relay"
	"github.com/brizzai/monzo2discord/internal/requester"
	"github.com/brizzai/monzo2discord/internal/server"
	"github.com/brizzai/monzo2discord/internal/utils"
	"github.com/brizzai/monzo2discord/internal/webhook"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	Execute()
}

var (
	serverURL  string
	webhookURL string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "monzo2discord",
	Short: "Relay Monzo account events to Discord webhooks",
	Long: `monzo2discord links a Monzo account to a Discord webhook through the Monzo
OAuth flow and forwards the account's events to the linked webhook.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	RunE:  runServe,
}

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Start linking a webhook against a running service and print the consent URL",
	RunE:  runLink,
}

var openapiCmd = &cobra.Command{
	Use:   "openapi",
	Short: "Print the OpenAPI document of the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := server.NewOpenAPIDocument(config.GetVersionInfo())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")

	config.InitFlags(serveCmd.Flags())

	linkCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Base URL of the running service")
	linkCmd.Flags().StringVar(&webhookURL, "webhook", "", "Discord webhook URL to link")

	rootCmd.AddCommand(serveCmd, linkCmd, openapiCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	defer func() {
		if r := recover(); r != nil {
			pterm.Error.Printf("\nCaught panic: %v\n", r)
			pterm.Error.Printf("%s\n", debug.Stack())
			os.Exit(2)
		}
	}()

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	if _, err := logger.InitLogger(&cfg.Logging); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting monzo2discord",
		zap.String("version", cfg.Server.Version),
		zap.String("address", cfg.Server.Addr()),
		zap.String("webhook_target", cfg.Webhook.TargetURL),
		zap.Duration("pending_ttl", cfg.OAuth.PendingTTL),
	)

	app := fx.New(
		fx.WithLogger(logger.FxLogger),
		fx.Supply(
			&cfg.Server,
			&cfg.OAuth,
			&cfg.Webhook,
			&cfg.HTTP,
			&cfg.Relay,
		),
		requester.Module,
		webhook.Module,
		providers.Module,
		pending.Module,
		relay.Module,
		auth.Module,
		handlers.Module,
		server.Module,
	)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}

func runLink(cmd *cobra.Command, args []string) error {
	if webhookURL == "" {
		return fmt.Errorf("webhook URL is required, you must supply it with --webhook")
	}

	endpoint, err := url.Parse(strings.TrimRight(serverURL, "/") + constants.LoginPath)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	endpoint.RawQuery = url.Values{constants.WebhookParam: {webhookURL}}.Encode()

	client := *requester.New(nil, 15*time.Second).Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	spinner, _ := pterm.DefaultSpinner.Start("Validating webhook")
	resp, err := client.Get(endpoint.String())
	if err != nil {
		spinner.Fail("Service unreachable")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		var body utils.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&body)
		spinner.Fail(fmt.Sprintf("Service answered %d", resp.StatusCode))
		return fmt.Errorf("%s: %s", body.Error, body.ErrorDescription)
	}

	spinner.Success("Webhook accepted")
	pterm.Info.Println("Open this URL to authorize the account:")
	pterm.Println(pterm.LightGreen(resp.Header.Get("Location")))
	return nil
}
