package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kenatst/docgen/internal/addressbook"
	"github.com/kenatst/docgen/internal/config"
	"github.com/kenatst/docgen/internal/database"
	"github.com/kenatst/docgen/internal/history"
	"github.com/kenatst/docgen/internal/logging"
	"github.com/kenatst/docgen/internal/profile"
	"github.com/kenatst/docgen/internal/server"
	"github.com/kenatst/docgen/internal/storage"
	"github.com/kenatst/docgen/internal/templates"
	"github.com/kenatst/docgen/internal/vault"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "docgen-api",
		Short: "Document generation backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("key-path", defaults.GetString("crypto.key_path"), "Master key file path")
	cmd.PersistentFlags().Bool("allow-insecure-fallback", defaults.GetBool("crypto.allow_insecure_fallback"), "Permit storing the master key in the database when the key file is unusable")
	cmd.PersistentFlags().Int("retention-days", defaults.GetInt("retention.days"), "History retention window in days")
	cmd.PersistentFlags().Int("retention-max-documents", defaults.GetInt("retention.max_documents"), "Maximum retained documents")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "crypto.key_path", "key-path")
	bindFlag(cmd, "crypto.allow_insecure_fallback", "allow-insecure-fallback")
	bindFlag(cmd, "retention.days", "retention-days")
	bindFlag(cmd, "retention.max_documents", "retention-max-documents")
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

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if err := templates.VerifyCatalog(); err != nil {
		return err
	}

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	store, err := storage.NewStore(storage.StoreConfig{
		Database: db,
		Clock:    time.Now,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	keystore, err := vault.NewKeystore(vault.KeystoreConfig{
		KeyPath:               appConfig.MasterKeyPath,
		AllowInsecureFallback: appConfig.AllowInsecureFallback,
		Store:                 store,
		Logger:                logger,
	})
	if err != nil {
		return err
	}

	cipher, err := vault.NewCipher(vault.CipherConfig{
		Secrets: keystore,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	historyService, err := history.NewService(history.ServiceConfig{
		Store:         store,
		Cipher:        cipher,
		Clock:         time.Now,
		IDProvider:    history.NewUUIDProvider(),
		Logger:        logger,
		RetentionDays: appConfig.RetentionDays,
		MaxDocuments:  appConfig.MaxDocuments,
	})
	if err != nil {
		return err
	}

	profileService, err := profile.NewService(profile.ServiceConfig{
		Store:         store,
		Cipher:        cipher,
		Clock:         time.Now,
		IDProvider:    profile.NewUUIDProvider(),
		Logger:        logger,
		AutosaveQuiet: appConfig.AutosaveQuiet,
	})
	if err != nil {
		return err
	}

	contactService, err := addressbook.NewService(addressbook.ServiceConfig{
		Store:  store,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		History:  historyService,
		Profiles: profileService,
		Contacts: contactService,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		if err := profileService.Flush(context.Background()); err != nil {
			logger.Error("profile flush on shutdown failed", zap.Error(err))
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
