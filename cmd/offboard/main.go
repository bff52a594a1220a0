// offboard is a three-stage batch user-offboarding tool:
//
//	offboard resolve — look input emails up in the identity provider and
//	                   write the pipeline artifact
//	offboard delete  — delete each artifact record from the directory
//	                   service and the identity provider
//	offboard verify  — re-query both services and report anything still
//	                   present
//
// The CSV artifact is the only state shared between stages; each stage is
// independently re-runnable because 404 responses count as success.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"example.com/offboard-template/internal/artifact"
	"example.com/offboard-template/internal/config"
	"example.com/offboard-template/internal/gateway"
	"example.com/offboard-template/internal/report"
	"example.com/offboard-template/internal/stage"
)

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func newRootCmd() *cobra.Command {
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:           "offboard",
		Short:         "Batch user offboarding: resolve, delete, verify",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfg.Region, "region", getenv("OFFBOARD_REGION", "eu"),
		"region selector resolving both service base URLs ("+strings.Join(config.RegionNames(), "|")+")")
	pf.StringVar(&cfg.Token, "token", getenv("OFFBOARD_IDP_TOKEN", ""),
		"bearer token for identity provider calls (or OFFBOARD_IDP_TOKEN)")
	pf.StringVar(&cfg.InputPath, "input", getenv("OFFBOARD_INPUT", "users.csv"),
		"stage 1 input CSV (header: Email,Port Name)")
	pf.StringVar(&cfg.ArtifactPath, "artifact", getenv("OFFBOARD_ARTIFACT", "resolved_users.csv"),
		"pipeline artifact CSV (stage 1 output, stage 2/3 input)")
	pf.StringVar(&cfg.LogDir, "log-dir", getenv("OFFBOARD_LOG_DIR", "logs"),
		"directory for categorized stage logs")
	pf.StringVar(&cfg.GatewayKind, "gateway", getenv("OFFBOARD_GATEWAY", "http"),
		"gateway kind: http | mock (mock = synthetic backends for rehearsal)")
	pf.StringVar(&cfg.DirectoryBaseURL, "directory-base-url", getenv("OFFBOARD_DIRECTORY_BASE_URL", ""),
		"directory service base URL override")
	pf.StringVar(&cfg.IDPBaseURL, "idp-base-url", getenv("OFFBOARD_IDP_BASE_URL", ""),
		"identity provider base URL override")
	pf.Float64Var(&cfg.RequestRPS, "rps", getenvFloat("OFFBOARD_RPS", 4.0),
		"courtesy request rate toward the identity provider")
	pf.StringVar(&cfg.HistoryDSN, "history-dsn", getenv("OFFBOARD_HISTORY_DSN", ""),
		"optional Postgres DSN for the offboard_history audit sink")
	pf.BoolVar(&cfg.AssumeYes, "yes", false, "skip the confirmation prompt")
	pf.BoolVar(&cfg.Verbose, "verbose", false, "per-record debug logging")

	root.AddCommand(newResolveCmd(cfg), newDeleteCmd(cfg), newVerifyCmd(cfg))
	return root
}

func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = "console"
	zcfg.DisableCaller = true
	if verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// setup finalizes config and wires the gateways, logger and optional
// history sink for one stage run.
func setup(ctx context.Context, cfg *config.Config, stageName string) (stage.Deps, func(), error) {
	if err := cfg.Finalize(); err != nil {
		return stage.Deps{}, nil, err
	}
	log, err := newLogger(cfg.Verbose)
	if err != nil {
		return stage.Deps{}, nil, err
	}
	idp, dir, err := gateway.New(gateway.Options{
		Kind:             cfg.GatewayKind,
		DirectoryBaseURL: cfg.DirectoryBaseURL,
		IDPBaseURL:       cfg.IDPBaseURL,
		Token:            cfg.Token,
		RPS:              cfg.RequestRPS,
	})
	if err != nil {
		return stage.Deps{}, nil, err
	}
	hist, err := report.OpenHistory(ctx, cfg.HistoryDSN, stageName, log)
	if err != nil {
		return stage.Deps{}, nil, err
	}
	cleanup := func() {
		hist.Close()
		_ = log.Sync()
	}
	deps := stage.Deps{Cfg: cfg, IDP: idp, Dir: dir, Hist: hist, Log: log}
	return deps, cleanup, nil
}

// confirm prints the preview and asks for an explicit yes. Anything but
// y/yes aborts with no side effects.
func confirm(cfg *config.Config, preview string) bool {
	fmt.Println(preview)
	if cfg.AssumeYes {
		return true
	}
	fmt.Print("proceed? [y/N]: ")
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(sc.Text())) {
	case "y", "yes":
		return true
	}
	return false
}

func newResolveCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Stage 1: resolve provider IDs for each input email",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := cfg.Finalize(); err != nil {
				return err
			}
			records, err := artifact.ReadInput(cfg.InputPath)
			if err != nil {
				return err
			}
			preview := fmt.Sprintf("resolve: %d emails from %s → %s (idp %s, gateway %s)",
				len(records), cfg.InputPath, cfg.ArtifactPath, cfg.IDPBaseURL, cfg.GatewayKind)
			if !confirm(cfg, preview) {
				fmt.Println("aborted")
				return nil
			}
			deps, cleanup, err := setup(ctx, cfg, "resolve")
			if err != nil {
				return err
			}
			defer cleanup()

			stats, runErr := stage.Resolve(ctx, records, deps)
			fmt.Printf("resolve: processed=%d found=%d not_found=%d errors=%d artifact=%s logs=%s\n",
				stats.Processed, stats.Found, stats.NotFound, stats.Errors, cfg.ArtifactPath, cfg.LogDir)
			return runErr
		},
	}
}

func newDeleteCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Stage 2: delete each resolved record from both services",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := cfg.Finalize(); err != nil {
				return err
			}
			records, err := artifact.Read(cfg.ArtifactPath)
			if err != nil {
				return err
			}
			preview := fmt.Sprintf("delete: %d records from %s → directory %s, idp %s (gateway %s)",
				len(records), cfg.ArtifactPath, cfg.DirectoryBaseURL, cfg.IDPBaseURL, cfg.GatewayKind)
			if !confirm(cfg, preview) {
				fmt.Println("aborted")
				return nil
			}
			deps, cleanup, err := setup(ctx, cfg, "delete")
			if err != nil {
				return err
			}
			defer cleanup()

			stats, runErr := stage.Delete(ctx, records, deps)
			fmt.Printf("delete: processed=%d directory{deleted=%d not_found=%d failed=%d} provider{deleted=%d not_found=%d failed=%d skipped=%d}\n",
				stats.Processed,
				stats.Directory.Deleted, stats.Directory.NotFound, stats.Directory.Failed,
				stats.Provider.Deleted, stats.Provider.NotFound, stats.Provider.Failed, stats.Provider.Skipped)
			if n := stats.Provider.AuthFailed; n > 0 {
				fmt.Printf("delete: WARNING %d auth failure(s) (401/403) — check token and scopes, see %s/idp_errors.log\n",
					n, cfg.LogDir)
			}
			return runErr
		},
	}
}

func newVerifyCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Stage 3: confirm both services no longer know the users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := cfg.Finalize(); err != nil {
				return err
			}
			records, err := artifact.Read(cfg.ArtifactPath)
			if err != nil {
				return err
			}
			preview := fmt.Sprintf("verify: %d records from %s against directory %s, idp %s (gateway %s)",
				len(records), cfg.ArtifactPath, cfg.DirectoryBaseURL, cfg.IDPBaseURL, cfg.GatewayKind)
			if !confirm(cfg, preview) {
				fmt.Println("aborted")
				return nil
			}
			deps, cleanup, err := setup(ctx, cfg, "verify")
			if err != nil {
				return err
			}
			defer cleanup()

			stats, runErr := stage.Verify(ctx, records, deps)
			fmt.Printf("verify: processed=%d directory{gone=%d still=%d inconclusive=%d} provider{gone=%d still=%d inconclusive=%d skipped=%d}\n",
				stats.Processed,
				stats.Directory.Gone, stats.Directory.StillExists, stats.Directory.CheckErrors,
				stats.Provider.Gone, stats.Provider.StillExists, stats.Provider.CheckErrors, stats.Provider.Skipped)
			if runErr != nil {
				return runErr
			}
			if stats.Failed() {
				return fmt.Errorf("verification FAILED: %d user(s) still present, see %s/still_present.log",
					stats.Directory.StillExists+stats.Provider.StillExists, cfg.LogDir)
			}
			if stats.Inconclusive() {
				fmt.Printf("verify: SUCCESS with %d inconclusive check(s), see %s/verify_errors.log\n",
					stats.Directory.CheckErrors+stats.Provider.CheckErrors, cfg.LogDir)
				return nil
			}
			fmt.Println("verify: SUCCESS")
			return nil
		},
	}
}

func main() {
	// Optional .env for local runs; flags and real env still win.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "offboard:", err)
		os.Exit(1)
	}
}
