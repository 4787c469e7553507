package main

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rapidcare/rapidcare/internal/config"
	"github.com/rapidcare/rapidcare/internal/domain/reset"
	"github.com/rapidcare/rapidcare/internal/platform/auth"
	"github.com/rapidcare/rapidcare/internal/platform/db"
	"github.com/rapidcare/rapidcare/internal/platform/docstore"
	"github.com/rapidcare/rapidcare/internal/platform/realtime"
)

const (
	tokenIssuer    = "rapidcare"
	connectTimeout = 10 * time.Second
	purgeInterval  = 15 * time.Minute
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rapidcare-server",
		Short: "RapidCare hospital network API and realtime server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API and WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres document store schema",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				count, err := db.NewMigrator(pool, db.Migrations(), schema).Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("schema", "public", "Target schema for migrations")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			return withPool(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool) error {
				statuses, err := db.NewMigrator(pool, db.Migrations(), schema).Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}

				fmt.Printf("Migration status for schema: %s\n", schema)
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Println("---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status := "pending"
					appliedAt := ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}
	statusCmd.Flags().String("schema", "public", "Target schema for migrations")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Replace all data with the demo data set",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(os.Getenv("ENV"))
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.close()

			// Nobody is connected to a CLI process; the broadcaster only
			// satisfies the service's publisher.
			quiet := realtime.NewBroadcaster(realtime.NewRegistry(), logger)
			counts, err := reset.NewService(store.backend, quiet, logger).Seed(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d hospitals, %d doctors, %d ambulances, %d beds, %d attendance records.\n",
				counts.Hospitals, counts.Doctors, counts.Ambulances, counts.Beds, counts.Attendance)
			fmt.Printf("Every account uses the password %q.\n", auth.DefaultPassword)
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			role, _ := cmd.Flags().GetString("role")
			ref, _ := cmd.Flags().GetString("ref")
			if role == "" {
				return fmt.Errorf("--role is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSigningKey == "" {
				return fmt.Errorf("JWT_SIGNING_KEY must be set to issue tokens")
			}
			issuer := auth.NewIssuer(jwtConfig([]byte(cfg.JWTSigningKey)), cfg.JWTTTL)
			token, err := issuer.Issue(auth.Identity{Role: role, Ref: ref})
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().String("role", auth.RoleAdmin, "Role carried by the token")
	cmd.Flags().String("ref", "ops", "Entity id carried by the token")
	return cmd
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"))

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer store.close()
	logger.Info().Str("driver", store.backend.Name()).Msg("store ready")

	key, err := signingKey(cfg, logger)
	if err != nil {
		return err
	}

	a := newApp(cfg, logger, store, key)
	if cfg.RedisURL != "" {
		client, err := realtime.Connect(ctx, cfg.RedisURL, 5, 2*time.Second)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		a.useRelay(realtime.NewRedisRelay(a.broadcaster, client, cfg.RedisChannel, logger))
	}
	e := a.server()

	g, gctx := errgroup.WithContext(ctx)
	if a.relay != nil {
		g.Go(func() error { return a.relay.Run(gctx) })
	}
	g.Go(func() error {
		a.manager.RunCompaction(gctx, cfg.WSCompactInterval)
		return nil
	})
	g.Go(func() error {
		a.purgeAnnouncements(gctx, purgeInterval)
		return nil
	})
	g.Go(func() error {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("relay", a.relay != nil).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newLogger(env string) zerolog.Logger {
	if env == "development" || env == "" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func jwtConfig(key []byte) auth.JWTConfig {
	return auth.JWTConfig{Issuer: tokenIssuer, SigningKey: key}
}

// signingKey returns the configured JWT key. Development servers without one
// get a random per-process key, so tokens do not survive a restart.
func signingKey(cfg *config.Config, logger zerolog.Logger) ([]byte, error) {
	if cfg.JWTSigningKey != "" {
		return []byte(cfg.JWTSigningKey), nil
	}
	buf := make([]byte, 32)
	if _, err := crypto_rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	logger.Warn().Msg("JWT_SIGNING_KEY not set, using an ephemeral development key")
	return []byte(hex.EncodeToString(buf)), nil
}

// store is the opened document backend plus whatever must be released with
// it. pool is set only for the Postgres driver.
type store struct {
	backend docstore.Backend
	pool    *pgxpool.Pool
	close   func()
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*store, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		n, err := db.NewMigrator(pool, db.Migrations(), "").Up(ctx)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		if n > 0 {
			logger.Info().Int("applied", n).Msg("applied migrations")
		}
		return &store{backend: docstore.NewPostgres(pool), pool: pool, close: pool.Close}, nil
	case config.StoreMongo:
		database, err := docstore.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, connectTimeout)
		if err != nil {
			return nil, err
		}
		return &store{
			backend: docstore.NewMongo(database),
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
				defer cancel()
				_ = database.Client().Disconnect(ctx)
			},
		}, nil
	default:
		logger.Warn().Msg("using the in-memory store, data is lost on restart")
		return &store{backend: docstore.NewMemory(), close: func() {}}, nil
	}
}

func withPool(ctx context.Context, fn func(context.Context, *pgxpool.Pool) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, pool)
}
