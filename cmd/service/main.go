package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gitlab.com/dirk.krummacker/contacts-service/internal/addressbook"
	"gitlab.com/dirk.krummacker/contacts-service/internal/categories"
	"gitlab.com/dirk.krummacker/contacts-service/internal/config"
	"gitlab.com/dirk.krummacker/contacts-service/internal/contacts"
	"gitlab.com/dirk.krummacker/contacts-service/internal/logger"
	"gitlab.com/dirk.krummacker/contacts-service/internal/mail"
	"gitlab.com/dirk.krummacker/contacts-service/internal/metrics"
	"gitlab.com/dirk.krummacker/contacts-service/internal/notify"
	"gitlab.com/dirk.krummacker/contacts-service/internal/service"
	"gitlab.com/dirk.krummacker/contacts-service/internal/store"
	"go.uber.org/zap"
)

var configFile string

// rootCmd starts the REST API.
//
// Usage example on the command line:
// > PORT=8080 DBUSER=dirk DBPWD=bullo92 GIN_MODE=release GIN_LOGGING=off go run main.go
// > go run main.go --config service.yml
var rootCmd = &cobra.Command{
	Use:   "service",
	Short: "Start the contacts service",
	Long:  `The contacts service manages the contacts and categories of its users and sends emails to them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		log := logger.New(cfg.LogMode)
		defer func() { _ = log.Sync() }()
		return run(cmd.Context(), cfg, log)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file (environment variables take precedence)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) error {
	sqlDB, err := store.CreateDatabase(store.DSN(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBName))
	if err != nil {
		return err
	}
	db := sqlx.NewDb(sqlDB, "mysql")
	defer db.Close()

	s, err := store.New(ctx, db)
	if err != nil {
		return err
	}
	defer s.Close()

	mailer, err := newMailer(cfg, log)
	if err != nil {
		return err
	}

	m := metrics.New()
	book := addressbook.New(db, log)
	api := service.New(
		contacts.New(s, book, log),
		categories.New(s, book, log),
		notify.New(s, mailer, log, m.MailSends),
		m, log,
		service.Options{GinLogging: cfg.GinLogging, MaxUploadBytes: cfg.MaxUploadBytes},
	)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		log.Infow("listening", "port", cfg.Port, "database", cfg.DBHost+"/"+cfg.DBName, "mail", cfg.MailProvider)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		log.Errorw("server stopped", "error", err)
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func newMailer(cfg *config.Config, log *zap.SugaredLogger) (notify.Mailer, error) {
	if cfg.MailProvider == "sendgrid" {
		return mail.NewSendGrid(log, cfg.SendGrid)
	}
	return mail.NewLogMailer(log), nil
}
