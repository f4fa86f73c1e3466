package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"marketfront/cmd/internal/bootstrap"
	"marketfront/cmd/internal/passphrase"
	"marketfront/config"
	"marketfront/core/session"
	"marketfront/observability/logging"
)

const defaultConfig = "./marketctl.toml"

// marketSession is the part of a session the CLI drives.
type marketSession interface {
	Account() common.Address
	Dispatch(ctx context.Context, cmd session.Command) (session.State, error)
	Balance(ctx context.Context, owner common.Address) (*uint256.Int, error)
}

type globalOptions struct {
	configPath string
	passEnv    string
	verbose    bool
}

// openSession is replaced in tests.
var openSession = func(ctx context.Context, opts globalOptions, stderr io.Writer) (marketSession, func(), error) {
	pass, err := passphrase.NewSource(opts.passEnv).Get()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(opts.configPath, pass)
	if err != nil {
		return nil, nil, fmt.Errorf("load profile: %w", err)
	}
	contractAddr, err := cfg.ContractAddr()
	if err != nil {
		return nil, nil, fmt.Errorf("%w in %s", err, opts.configPath)
	}
	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger := logging.Setup("marketctl", os.Getenv("MARKETFRONT_ENV"), logging.Options{Level: level, Output: stderr})
	rt, err := bootstrap.Open(ctx, bootstrap.Params{
		LedgerEndpoint:  cfg.LedgerEndpoint,
		Contract:        contractAddr,
		ChainID:         cfg.ChainID,
		KeystorePath:    cfg.KeystorePath,
		Passphrase:      pass,
		IPFSAPI:         cfg.IPFSAPI,
		SnapshotBackend: cfg.SnapshotBackend,
		SnapshotPath:    cfg.SnapshotPath,
		ReceiptTimeout:  time.Duration(cfg.ReceiptTimeout) * time.Second,
		Logger:          logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return rt.Session, rt.Close, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("marketctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts globalOptions
	fs.StringVar(&opts.configPath, "config", defaultConfig, "path to the marketctl profile")
	fs.StringVar(&opts.passEnv, "pass-env", config.DefaultPassphraseEnv, "environment variable holding the keystore passphrase")
	fs.BoolVar(&opts.verbose, "v", false, "log debug output to stderr")
	fs.Usage = func() { fmt.Fprintln(stderr, usage()) }
	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n", rest[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
	return cmd(ctx, opts, rest[1:], stdout, stderr)
}

func usage() string {
	return `Usage: marketctl [--config path] [--pass-env VAR] [-v] <command> [flags]

Queries:
  status                                   show the account's role
  users                                    list users (admin)
  storefronts [--owner addr | --all]       list storefronts
  products --owner addr --index n          list a storefront's products
  balance [--owner addr]                   show an owner's total balance

Shop owners:
  add-storefront --name s
  remove-storefront --index n [--owner addr]
  add-product --store n --name s --price ether --quantity q
  remove-product --store n --product i
  update-price --store n --product i --price ether
  upload-image --store n --product i --file path
  withdraw --store n [--amount ether]

Shoppers:
  request-rights
  purchase --owner addr --store n --product i --quantity q [--payment ether]

Admins:
  grant-shop-owner --addr a
  grant-admin --addr a
  delete-user --addr a
  toggle-active
  emergency-withdraw`
}

func printError(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}
