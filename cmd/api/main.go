package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bekicr/universal-clinic/internal/config"
	"github.com/bekicr/universal-clinic/internal/handlers"
	"github.com/bekicr/universal-clinic/internal/models"
	"github.com/bekicr/universal-clinic/internal/server"
	"github.com/bekicr/universal-clinic/internal/services"
	"github.com/bekicr/universal-clinic/internal/storage"
	"github.com/bekicr/universal-clinic/internal/storage/memory"
	"github.com/bekicr/universal-clinic/internal/storage/mongodb"
	"github.com/bekicr/universal-clinic/internal/utils"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "clinic-api",
		Short:        "Clinic management REST API",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(createAdminCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func createAdminCmd() *cobra.Command {
	var name, email, password, phone string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an ADMIN user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			store, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			user, err := createAdmin(ctx, store, name, email, password, phone)
			if err != nil {
				return err
			}
			logger.Info().Str("user_id", user.ID.Hex()).Str("email", user.Email).Msg("admin created")
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s)\n", user.Email, user.ID.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Admin display name")
	cmd.Flags().StringVar(&email, "email", "", "Admin email")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (min 8 characters)")
	cmd.Flags().StringVar(&phone, "phone", "", "Admin phone number")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func createAdmin(ctx context.Context, store storage.UserStore, name, email, password, phone string) (models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(email) == "" {
		return models.User{}, errors.New("name and email are required")
	}
	if len(password) < 8 {
		return models.User{}, errors.New("password must be at least 8 characters")
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		Name:     name,
		Email:    email,
		Phone:    strings.TrimSpace(phone),
		Password: hashed,
		Role:     models.RoleAdmin,
	}
	if err := store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return models.User{}, fmt.Errorf("a user with email %s already exists", email)
		}
		return models.User{}, fmt.Errorf("create admin: %w", err)
	}
	return user, nil
}

func bootstrap() (config.Config, zerolog.Logger, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config.Config{}, zerolog.Nop(), fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	return cfg, newLogger(cfg), nil
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", "clinic-api").Logger()
}

// openStore returns the configured store and a func releasing it.
func openStore(ctx context.Context, cfg config.Config) (storage.Store, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		return memory.New(), func() {}, nil
	}

	store, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, nil, err
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = store.Close(context.Background())
		return nil, nil, fmt.Errorf("ensure indexes: %w", err)
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Close(ctx)
	}
	return store, closeFn, nil
}

func runServer() error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, closeStore, err := openStore(connectCtx, cfg)
	cancel()
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info().Str("driver", cfg.StoreDriver).Msg("store ready")

	tokens, err := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		return err
	}
	uploads, err := services.NewUploadStore(cfg.UploadDir, "/uploads", cfg.UploadMaxBytes)
	if err != nil {
		return err
	}
	notificationSvc := services.NewNotificationService(cfg.TextbeltKey, cfg.TextbeltURL, logger)

	h := handlers.NewHandler(store, tokens, uploads, notificationSvc, logger)
	srv := server.New(cfg, h, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr()).Msg("clinic api listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
