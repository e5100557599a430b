package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/seoaudit/internal/app"
	"github.com/MarcoPoloResearchLab/seoaudit/internal/audit"
	"github.com/MarcoPoloResearchLab/seoaudit/internal/auth"
	"github.com/MarcoPoloResearchLab/seoaudit/internal/config"
	"github.com/MarcoPoloResearchLab/seoaudit/internal/logging"
	"github.com/MarcoPoloResearchLab/seoaudit/internal/server"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "seoaudit-api",
		Short: "SEO audit dashboard backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(newReportCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().StringSlice("allowed-origins", nil, "Browser origins allowed to call the API with the session cookie")
	cmd.PersistentFlags().String("database-url", "", "Database URL (postgres:// or sqlite://); empty keeps data in memory")
	cmd.PersistentFlags().Int("probe-timeout-seconds", defaults.GetInt("database.probe_timeout_seconds"), "Startup database probe timeout in seconds")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log format (json, console)")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")
	cmd.PersistentFlags().Int("session-ttl-minutes", defaults.GetInt("session.ttl_minutes"), "Session lifetime in minutes")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "http.allowed_origins", "allowed-origins")
	bindFlag(cmd, "database.url", "database-url")
	bindFlag(cmd, "database.probe_timeout_seconds", "probe-timeout-seconds")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
	bindFlag(cmd, "session.signing_secret", "signing-secret")
	bindFlag(cmd, "session.ttl_minutes", "session-ttl-minutes")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		return err
	}

	return nil
}

// bootstrap loads configuration, builds the logger and selects the storage backend.
func bootstrap(ctx context.Context) (config.AppConfig, *zap.Logger, *app.App, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return config.AppConfig{}, nil, nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return config.AppConfig{}, nil, nil, err
	}

	application := app.New(ctx, app.Config{
		DatabaseURL:  appConfig.DatabaseURL,
		ProbeTimeout: appConfig.ProbeTimeout,
		Clock:        time.Now,
		Logger:       logger,
	})
	return appConfig, logger, application, nil
}

func runServer(ctx context.Context) error {
	appConfig, logger, application, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()       //nolint:errcheck
	defer application.Close() //nolint:errcheck

	signingSecret := []byte(appConfig.SessionSigningSecret)
	if len(signingSecret) == 0 {
		logger.Warn("session signing secret not configured, sessions will not survive a restart")
		signingSecret = []byte(uuid.NewString())
	}

	issuer, err := auth.NewSessionIssuer(auth.SessionIssuerConfig{
		SigningSecret: signingSecret,
		CookieName:    appConfig.SessionCookieName,
		TTL:           appConfig.SessionTTL,
		Clock:         application.Clock,
	})
	if err != nil {
		return err
	}
	validator, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: signingSecret,
		CookieName:    appConfig.SessionCookieName,
		Clock:         application.Clock,
	})
	if err != nil {
		return err
	}

	auditor, err := audit.NewService(audit.ServiceConfig{
		Store:  application.Store,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Store:          application.Store,
		Auditor:        auditor,
		Issuer:         issuer,
		Validator:      validator,
		AllowedOrigins: appConfig.AllowedOrigins,
		Clock:          application.Clock,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("storage", application.Backend),
		)
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
