package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/huangang/taskboard/internal/config"
	"github.com/huangang/taskboard/internal/models"
	"github.com/huangang/taskboard/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

var configPath string

var rootCmd = &cobra.Command{
	Use:   "taskboard",
	Short: "Role-based project and task management server",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional; real environment variables take precedence
		_ = godotenv.Load()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the identity store schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIdentityStore(func(cfg *config.Config, db *gorm.DB) error {
			if err := models.AutoMigrate(db); err != nil {
				return err
			}
			logger.Info().Str("driver", cfg.Database.Driver).Msg("Identity store is up to date")
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed roles, permissions and the admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withIdentityStore(func(cfg *config.Config, db *gorm.DB) error {
			return seedIdentityStore(db, cfg)
		})
	},
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write the default configuration to a yaml file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "config.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return err
		}
		cmd.Printf("wrote %s\n", path)
		return nil
	},
}

func withIdentityStore(fn func(*config.Config, *gorm.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := connectIdentityStore(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	return fn(cfg, db)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default is $CONFIG_PATH or ./config.yaml)")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, initConfigCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Log.Level)
	return cfg, nil
}

func serve(cfg *config.Config) error {
	svc, err := bootstrap(cfg)
	if err != nil {
		return err
	}

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	registerRoutes(r, svc)

	addr := cfg.ListenAddr()
	// cancelled before Shutdown so open event streams end
	baseCtx, stopStreams := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:        addr,
		Handler:     r,
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}

	go func() {
		logger.Infof("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info().Str("signal", sig.String()).Msg("Shutting down server")

	stopStreams()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	svc.shutdown()
	logger.Info().Msg("Server exited")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
