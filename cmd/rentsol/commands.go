package main

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Catorpilor/rentsol/internal/rentable"
	"github.com/Catorpilor/rentsol/internal/wallet"
	"github.com/Catorpilor/rentsol/internal/watch"
)

func newInitializeCmd(a *app) *cobra.Command {
	var (
		owner, mint, from, fromTA, toTA string
		price                           uint64
		expiration                      int64
		expiresIn                       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "initialize",
		Short: "Lock a token with the program at a price and expiration",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := rentable.InitializeParams{Price: price, Expiration: expiration, SimulateOnly: a.flags.simulate}
			var err error
			for _, f := range []struct {
				name string
				val  string
				dst  *solana.PublicKey
			}{
				{"owner", owner, &params.Owner},
				{"mint", mint, &params.Mint},
				{"from", from, &params.From},
				{"from-token-account", fromTA, &params.FromTokenAccount},
				{"to-token-account", toTA, &params.ToTokenAccount},
			} {
				if *f.dst, err = parseKey(f.name, f.val); err != nil {
					return err
				}
			}
			if expiresIn > 0 {
				params.Expiration = time.Now().Add(expiresIn).Unix()
			}

			program, _, err := a.program(cmd.Context())
			if err != nil {
				return err
			}
			res, err := program.Initialize(cmd.Context(), params)
			if err != nil {
				return err
			}
			if res.Simulated {
				fmt.Fprintln(cmd.OutOrStdout(), res)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Your transaction signature", res.Signature)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&owner, "owner", "", "token owner recorded in the account (default: wallet)")
	f.Uint64Var(&price, "price", 0, "rent price in lamports")
	f.Int64Var(&expiration, "expiration", 0, "rental expiration as unix seconds")
	f.DurationVar(&expiresIn, "expires-in", 0, "rental expiration relative to now (overrides --expiration)")
	f.StringVar(&mint, "mint", "", "token mint; derives token accounts that are not given")
	f.StringVar(&from, "from", "", "transfer authority account (default: source token account)")
	f.StringVar(&fromTA, "from-token-account", "", "source token account (default: wallet ATA for --mint)")
	f.StringVar(&toTA, "to-token-account", "", "destination token account (default: program ATA for --mint)")
	return cmd
}

func newBorrowCmd(a *app) *cobra.Command {
	var owner, to, from string
	cmd := &cobra.Command{
		Use:   "borrow",
		Short: "Rent a locked token by paying its price",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := rentable.BorrowParams{SimulateOnly: a.flags.simulate}
			var err error
			if params.Owner, err = parseKey("owner", owner); err != nil {
				return err
			}
			if params.Owner.IsZero() {
				return fmt.Errorf("--owner is required")
			}
			if params.To, err = parseKey("to", to); err != nil {
				return err
			}
			if params.From, err = parseKey("from", from); err != nil {
				return err
			}
			program, _, err := a.program(cmd.Context())
			if err != nil {
				return err
			}
			res, err := program.Borrow(cmd.Context(), params)
			if err != nil {
				return err
			}
			if res.Simulated {
				fmt.Fprintln(cmd.OutOrStdout(), res)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Your transaction signature", res.Signature)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "wallet that initialized the rentable token account")
	cmd.Flags().StringVar(&to, "to", "", "rent recipient (default: stored token owner)")
	cmd.Flags().StringVar(&from, "from", "", "rent payer (default: wallet)")
	return cmd
}

type accountView struct {
	PDA     solana.PublicKey        `yaml:"pda"`
	Account *rentable.RentableToken `yaml:"account"`
	Expires string                  `yaml:"expires,omitempty"`
}

func newShowCmd(a *app) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the decoded rentable token account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerKey, err := a.ownerOrWallet(owner)
			if err != nil {
				return err
			}
			program, _, err := a.program(cmd.Context())
			if err != nil {
				return err
			}
			state, pda, err := program.FetchRentableToken(cmd.Context(), ownerKey)
			if err != nil {
				return err
			}
			view := accountView{PDA: pda, Account: state}
			if state.Expiration != 0 {
				view.Expires = state.ExpiresAt().Format(time.RFC3339)
			}
			out, err := yaml.Marshal(view)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "wallet that initialized the account (default: wallet)")
	return cmd
}

func newPDACmd(a *app) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "pda",
		Short: "Derive the rentable token account address (offline)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerKey, err := a.ownerOrWallet(owner)
			if err != nil {
				return err
			}
			pda, bump, err := rentable.FindRentablePDA(a.cfg.ProgramID(), ownerKey)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", pda, bump)
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner wallet (default: wallet)")
	return cmd
}

func newAirdropCmd(a *app) *cobra.Command {
	var sol float64
	cmd := &cobra.Command{
		Use:   "airdrop",
		Short: "Request SOL for the wallet (localnet/devnet)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sol <= 0 {
				return fmt.Errorf("--sol must be positive")
			}
			_, p, err := a.program(cmd.Context())
			if err != nil {
				return err
			}
			res, err := p.Airdrop(cmd.Context(), uint64(sol*float64(solana.LAMPORTS_PER_SOL)))
			if err != nil {
				return err
			}
			bal, err := p.Balance(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\nbalance: %d lamports\n", res, bal)
			return nil
		},
	}
	cmd.Flags().Float64Var(&sol, "sol", 1, "amount of SOL")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		owner    string
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll a rentable token account and print every change",
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerKey, err := a.ownerOrWallet(owner)
			if err != nil {
				return err
			}
			if interval > 0 {
				a.cfg.Watch.Interval = interval
			}
			program, _, err := a.program(cmd.Context())
			if err != nil {
				return err
			}
			w := watch.New(program, ownerKey, a.cfg.Watch.Interval, a.cfg.Watch.JitterPct)
			err = w.Run(cmd.Context(), func(c watch.Change) {
				out, merr := yaml.Marshal(accountView{PDA: c.PDA, Account: c.State})
				if merr != nil {
					return
				}
				fmt.Fprintf(cmd.OutOrStdout(), "--- %s\n%s", c.At.Format(time.RFC3339), out)
			})
			if cmd.Context().Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "wallet that initialized the account (default: wallet)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (default: watch.interval from config)")
	return cmd
}

func newKeygenCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a keypair file in the Solana CLI format",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := solana.NewRandomPrivateKey()
			if err != nil {
				return err
			}
			if err := wallet.WriteKeypairFile(out, key); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key.PublicKey())
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
