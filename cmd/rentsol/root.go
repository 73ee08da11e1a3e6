package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	cfgpkg "github.com/Catorpilor/rentsol/internal/config"
	logpkg "github.com/Catorpilor/rentsol/internal/logging"
	"github.com/Catorpilor/rentsol/internal/metrics"
	"github.com/Catorpilor/rentsol/internal/provider"
	"github.com/Catorpilor/rentsol/internal/rentable"
	rpcpkg "github.com/Catorpilor/rentsol/internal/rpcclient"
	"github.com/Catorpilor/rentsol/internal/wallet"
)

type rootFlags struct {
	configPath  string
	rpcURL      string
	programID   string
	simulate    bool
	metricsAddr string
	logLevel    string
}

// app carries what every subcommand needs. Fields past cfg are built on
// demand so offline commands work without a wallet.
type app struct {
	flags   rootFlags
	cfg     *cfgpkg.Config
	metrics *metrics.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "rentsol",
		Short:         "Client for the rentable_sol program",
		Long:          "rentsol lends a token through the rentable_sol program: initialize locks it at a price, borrow pays that price to rent it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.flags.configPath, "config", "c", "", "path to config file (default: environment only)")
	pf.StringVar(&a.flags.rpcURL, "rpc-url", "", "override RPC URL")
	pf.StringVar(&a.flags.programID, "program-id", "", "override program id")
	pf.BoolVar(&a.flags.simulate, "simulate", false, "simulate only (no send)")
	pf.StringVar(&a.flags.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "override log level (debug|info|warn|error)")

	cmd.AddCommand(
		newInitializeCmd(a),
		newBorrowCmd(a),
		newShowCmd(a),
		newPDACmd(a),
		newAirdropCmd(a),
		newWatchCmd(a),
		newKeygenCmd(a),
	)
	return cmd
}

func (a *app) load() error {
	cfg, err := cfgpkg.Load(a.flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.flags.rpcURL != "" {
		cfg.RPC.URL = a.flags.rpcURL
	}
	if a.flags.programID != "" {
		cfg.Program.ProgramID = a.flags.programID
	}
	if a.flags.metricsAddr != "" {
		cfg.Metrics.ListenAddr = a.flags.metricsAddr
	}
	if a.flags.logLevel != "" {
		cfg.Logging.Level = a.flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logpkg.Setup(cfg.Logging)
	a.cfg = cfg
	a.metrics = metrics.New()
	return nil
}

// program wires wallet, RPC client and provider into a program handle, and
// starts the metrics listener when one is configured.
func (a *app) program(ctx context.Context) (*rentable.Program, *provider.Provider, error) {
	kp, err := wallet.Load(a.cfg.Wallet)
	if err != nil {
		return nil, nil, fmt.Errorf("load wallet: %w", err)
	}
	if addr := a.cfg.Metrics.ListenAddr; addr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, addr); err != nil {
				slog.Error("metrics server", "err", err)
			}
		}()
	}
	rpc := rpcpkg.New(a.cfg.RPC, a.metrics)
	p := provider.New(rpc, kp, provider.OptionsFromConfig(a.cfg), a.metrics)
	slog.Debug("provider ready", "rpc", a.cfg.RPC.URL, "wallet", kp.PublicKey().String(), "program", a.cfg.Program.ProgramID)
	return rentable.New(p, a.cfg.ProgramID(), a.cfg.TokenProgramID()), p, nil
}

// parseKey parses an optional base58 public key flag.
func parseKey(flag, v string) (solana.PublicKey, error) {
	if v == "" {
		return solana.PublicKey{}, nil
	}
	k, err := solana.PublicKeyFromBase58(v)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid --%s: %w", flag, err)
	}
	return k, nil
}

// ownerOrWallet resolves --owner, falling back to the configured wallet.
func (a *app) ownerOrWallet(v string) (solana.PublicKey, error) {
	owner, err := parseKey("owner", v)
	if err != nil || !owner.IsZero() {
		return owner, err
	}
	kp, err := wallet.Load(a.cfg.Wallet)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("--owner not set and no wallet: %w", err)
	}
	return kp.PublicKey(), nil
}
