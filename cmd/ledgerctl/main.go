// Package main provides ledgerctl, an operator CLI that runs ledger
// transactions directly against a Badger data directory and mints API tokens.
// The directory must not be open in a running ledgerd.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	certservice "credledger/internal/certificate/service"
	"credledger/internal/ledger"
	"credledger/internal/ledger/badgerstore"
	skillservice "credledger/internal/skill/service"
)

var version = "dev"

// app holds global flag values and lazily opened dependencies.
type app struct {
	dataDir string
	caller  string
	role    string
	org     string
	output  string

	out    io.Writer
	logger *slog.Logger

	store  *badgerstore.Store
	certs  *certservice.Service
	skills *skillservice.Service
}

func main() {
	if err := execute(os.Stdout, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// execute runs one command line and releases the ledger afterwards, also when
// the command failed.
func execute(out io.Writer, args []string) error {
	a := &app{
		out:    out,
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.Execute()
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate on a credential ledger data directory",
		Long: `ledgerctl runs certificate and skill transactions against a local ledger
data directory, the same directory ledgerd serves with LEDGER_DATA_DIR.

Every transaction runs as the identity given by --caller, --role and --org
and is subject to the same access rules as the HTTP API.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.SetOut(a.out)

	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", envOr("LEDGER_DATA_DIR", "./data"), "Ledger data directory")
	root.PersistentFlags().StringVar(&a.caller, "caller", "ledgerctl", "Caller identity")
	root.PersistentFlags().StringVar(&a.role, "role", "admin", "Caller role (institution, employer, training_center, admin)")
	root.PersistentFlags().StringVar(&a.org, "org", "", "Caller organization")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "json", "Output format: json, yaml")

	root.AddCommand(newInitCmd(a))
	root.AddCommand(newCertCmd(a))
	root.AddCommand(newSkillCmd(a))
	root.AddCommand(newTokenCmd(a))
	return root
}

func (a *app) open() error {
	if a.store != nil {
		return nil
	}
	store, err := badgerstore.Open(badgerstore.WithDir(a.dataDir), badgerstore.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("opening ledger at %s: %w", a.dataDir, err)
	}
	a.store = store
	a.certs = certservice.NewService(certservice.WithLogger(a.logger))
	a.skills = skillservice.NewService(skillservice.WithLogger(a.logger))
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func (a *app) identity() ledger.Caller {
	return ledger.NewCaller(a.caller, a.role, a.org)
}

// submit runs fn as a committed transaction and prints its result.
func submit[T any](ctx context.Context, a *app, fn func(ledger.Tx) (T, error)) error {
	if err := a.open(); err != nil {
		return err
	}
	res, err := ledger.SubmitResult(ctx, a.store, a.identity(), fn)
	if err != nil {
		return err
	}
	return render(a.out, a.output, res)
}

// evaluate runs fn as a read-only transaction and prints its result.
func evaluate[T any](ctx context.Context, a *app, fn func(ledger.Tx) (T, error)) error {
	if err := a.open(); err != nil {
		return err
	}
	res, err := ledger.EvaluateResult(ctx, a.store, a.identity(), fn)
	if err != nil {
		return err
	}
	return render(a.out, a.output, res)
}

// render writes v in the requested format. YAML output goes through the JSON
// encoding first so field names match the API.
func render(w io.Writer, format string, v any) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q (want json or yaml)", format)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
