package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/scheduling"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:          "hms-server",
		Short:        "Hospital booking API server",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile == "" {
				return nil
			}
			// existing environment variables take precedence
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("load env file %s: %w", envFile, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading configuration")

	root.AddCommand(serveCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(slotsCmd())
	return root
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

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", "hms-server").Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(level).With().Timestamp().Logger()
	}
	return logger
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, logger)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.store.Close()
	logger.Info().Str("backend", cfg.StoreBackend).Msg("record store ready")

	app, err := newApp(cfg, b, logger)
	if err != nil {
		return err
	}
	seeded, err := app.identity.EnsureDefaults(ctx)
	if err != nil {
		return fmt.Errorf("seed default users: %w", err)
	}
	if seeded {
		logger.Info().Msg("default users created")
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := app.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the default admin, patient and doctor accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			b, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.store.Close()

			app, err := newApp(cfg, b, zerolog.Nop())
			if err != nil {
				return err
			}
			seeded, err := app.identity.EnsureDefaults(ctx)
			if err != nil {
				return err
			}
			if seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "default users created")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "users already present, nothing written")
			}
			return nil
		},
	}
}

func slotsCmd() *cobra.Command {
	var (
		doctorID int
		date     string
	)
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print the slot grid, or a doctor's availability for --date",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if doctorID == 0 {
				for _, s := range newEngine(cfg).Grid.Slots() {
					fmt.Fprintln(out, s)
				}
				return nil
			}
			if date == "" {
				return errors.New("--date is required with --doctor")
			}

			ctx := cmd.Context()
			b, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.store.Close()
			app, err := newApp(cfg, b, zerolog.Nop())
			if err != nil {
				return err
			}
			avail, err := app.scheduling.Availability(ctx, doctorID, date)
			if err != nil {
				return err
			}
			return printAvailability(out, avail)
		},
	}
	cmd.Flags().IntVar(&doctorID, "doctor", 0, "doctor id")
	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD")
	return cmd
}

func printAvailability(w io.Writer, avail []scheduling.SlotAvailability) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSTATE")
	for _, a := range avail {
		fmt.Fprintf(tw, "%s\t%s\n", a.Slot, a.State)
	}
	return tw.Flush()
}
