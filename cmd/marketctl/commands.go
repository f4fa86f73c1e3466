package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"marketfront/core/session"
	"marketfront/core/types"
)

type commandFunc func(ctx context.Context, opts globalOptions, args []string, stdout, stderr io.Writer) int

var commands map[string]commandFunc

func init() {
	commands = map[string]commandFunc{
		"status":             runStatus,
		"users":              runUsers,
		"storefronts":        runStorefronts,
		"products":           runProducts,
		"balance":            runBalance,
		"add-storefront":     runAddStorefront,
		"remove-storefront":  runRemoveStorefront,
		"add-product":        runAddProduct,
		"remove-product":     runRemoveProduct,
		"update-price":       runUpdatePrice,
		"upload-image":       runUploadImage,
		"withdraw":           runWithdraw,
		"request-rights":     runSimple(session.RequestShopOwner{}),
		"purchase":           runPurchase,
		"grant-shop-owner":   runTargeted(func(a common.Address) session.Command { return session.GrantShopOwner{Target: a} }),
		"grant-admin":        runTargeted(func(a common.Address) session.Command { return session.GrantAdmin{Target: a} }),
		"delete-user":        runTargeted(func(a common.Address) session.Command { return session.DeleteUser{Target: a} }),
		"toggle-active":      runSimple(session.ToggleContractActive{}),
		"emergency-withdraw": runSimple(session.EmergencyWithdraw{}),
	}
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string, stderr io.Writer) bool {
	if err := fs.Parse(args); err != nil {
		return false
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return false
	}
	return true
}

// plan lists the commands to run after Load, given the opened session.
type plan func(sess marketSession) ([]session.Command, error)

func steps(cmds ...session.Command) plan {
	return func(marketSession) ([]session.Command, error) { return cmds, nil }
}

// withSession opens a session, loads it, runs the planned commands in order
// and prints the final snapshot with render.
func withSession(ctx context.Context, opts globalOptions, stdout, stderr io.Writer, render func(io.Writer, marketSession, session.State), p plan) int {
	sess, closeFn, err := openSession(ctx, opts, stderr)
	if err != nil {
		return printError(stderr, err)
	}
	defer closeFn()

	cmds, err := p(sess)
	if err != nil {
		return printError(stderr, err)
	}
	state, err := sess.Dispatch(ctx, session.Load{})
	if err != nil {
		return printError(stderr, fmt.Errorf("load: %w", err))
	}
	for _, cmd := range cmds {
		if state, err = sess.Dispatch(ctx, cmd); err != nil {
			return printError(stderr, fmt.Errorf("%s: %w", cmd.CommandName(), err))
		}
	}
	render(stdout, sess, state)
	return 0
}

// ownStorefront selects one of the session account's storefronts before cmd.
func ownStorefront(store int, cmd session.Command) plan {
	return func(sess marketSession) ([]session.Command, error) {
		if store < 0 {
			return nil, errors.New("--store is required")
		}
		return []session.Command{session.Select{Owner: sess.Account(), Index: store}, cmd}, nil
	}
}

func runSimple(cmd session.Command) commandFunc {
	return func(ctx context.Context, opts globalOptions, args []string, stdout, stderr io.Writer) int {
		if !parseFlags(newFlagSet(cmd.CommandName(), stderr), args, stderr) {
			return 1
		}
		return withSession(ctx, opts, stdout, stderr, renderDone(cmd.CommandName()), steps(cmd))
	}
}

func runTargeted(build func(common.Address) session.Command) commandFunc {
	return func(ctx context.Context, opts globalOptions, args []string, stdout, stderr io.Writer) int {
		fs := newFlagSet("user", stderr)
		addr := fs.String("addr", "", "target account address")
		if !parseFlags(fs, args, stderr) {
			return 1
		}
		target, err := parseAddress("--addr", *addr)
		if err != nil {
			return printError(stderr, err)
		}
		cmd := build(target)
		return withSession(ctx, opts, stdout, stderr, renderUsers, steps(cmd))
	}
}

func runStatus(ctx context.Context, opts globalOptions, args []string, stdout, stderr io.Writer) int {
	if !parseFlags(newFlagSet("status", stderr), args, stderr) {
		return 1
	}
	return withSession(ctx, opts, stdout, stderr, func(w io.Writer, _ marketSession, s session.State) {
		fmt.Fprintf(w, "account: %s\nstatus:  %s\nuploads: %t\n", s.Account.Hex(), s.Status, s.Capabilities.ContentStore)
	}, steps())
}

func runUsers(ctx context.Context, opts globalOptions, args []string, stdout, stderr io.Writer) int {
	if !parseFlags(newFlagSet("users", stderr), args, stderr) {
		return 1
	}
	return withSession(ctx, opts, stdout, stderr, renderUsers, steps(session.RefreshUsers{}))
}

func runStorefronts(ctx context.Context, opts globalOptions, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("storefronts", stderr)
	owner := fs.String("owner", "", "only list storefronts of this owner")
	all := fs.Bool("all", false, "list every owner's storefronts")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	var filter *common.Address
	if *owner != "" {
		addr, err := parseAddress("--owner", *owner)
		if err != nil {
			return printError(stderr, err)
		}
		filter = &addr
	}
	var cmds []session.Command
	if *all || filter != nil {
		cmds = append(cmds, session.RefreshStorefronts{All: true})
	}
	return withSession(ctx, opts, stdout, stderr, func(w io.Writer, _ marketSession, s session.State) {
		for _, front := range s.Storefronts {
			if filter != nil && !types.SameAddress(front.Owner, *filter) {
				continue
			}
			fmt.Fprintf(w, "%s  %3d  %-24s  %12s ETH  %d products\n",
				front.Owner.Hex(), front.Index, front.Name, types.FormatEther(front.Balance), front.ProductCount)
		}
	}, steps(cmds...))
}

func runProducts(ctx context.Context, opts globalOptions, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("products", stderr)
	owner := fs.String("owner", "", "storefront owner")
	index := fs.Int("index", -1, "storefront index within the owner's storefronts")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	addr, err := parseAddress("--owner", *owner)
	if err != nil {
		return printError(stderr, err)
	}
	if *index < 0 {
		return printError(stderr, errors.New("--index is required"))
	}
	return withSession(ctx, opts, stdout, stderr, renderProducts, steps(session.Select{Owner: addr, Index: *index}))
}

func runBalance(ctx context.Context, opts globalOptions, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("balance", stderr)
	owner := fs.String("owner", "", "owner address (defaults to the profile account)")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	sess, closeFn, err := openSession(ctx, opts, stderr)
	if err != nil {
		return printError(stderr, err)
	}
	defer closeFn()
	addr := sess.Account()
	if *owner != "" {
		if addr, err = parseAddress("--owner", *owner); err != nil {
			return printError(stderr, err)
		}
	}
	balance, err := sess.Balance(ctx, addr)
	if err != nil {
		return printError(stderr, err)
	}
	fmt.Fprintf(stdout, "%s %s ETH\n", addr.Hex(), types.FormatEther(balance))
	return 0
}

func runAddStorefront(ctx context.Context, opts globalOptions, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("add-storefront", stderr)
	name := fs.String("name", "", "storefront name")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	return withSession(ctx, opts, stdout, stderr, renderOwnStorefronts, steps(session.AddStorefront{Name: *name}))
}

func runRemoveStorefront(ctx context.Context, opts globalOptions, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("remove-storefront", stderr)
	owner := fs.String("owner", "", "storefront owner (admins only; defaults to the profile account)")
	index := fs.Int("index", -1, "storefront index within the owner's storefronts")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if *index < 0 {
		return printError(stderr, errors.New("--index is required"))
	}
	var owned *common.Address
	if *owner != "" {
		addr, err := parseAddress("--owner", *owner)
		if err != nil {
			return printError(stderr, err)
		}
		owned = &addr
	}
	return withSession(ctx, opts, stdout, stderr, renderOwnStorefronts, func(sess marketSession) ([]session.Command, error) {
		addr := sess.Account()
		if owned != nil {
			addr = *owned
		}
		return []session.Command{session.RemoveStorefront{Owner: addr, Index: *index}}, nil
	})
}

func runAddProduct(ctx context.Context, opts globalOptions, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("add-product", stderr)
	store := fs.Int("store", -1, "index of one of your storefronts")
	name := fs.String("name", "", "product name")
	price := fs.String("price", "", "unit price in ether")
	quantity := fs.Uint64("quantity", 0, "units available")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	amount, err := types.ParseEther(*price)
	if err != nil {
		return printError(stderr, fmt.Errorf("--price: %w", err))
	}
	return withSession(ctx, opts, stdout, stderr, renderProducts, ownStorefront(*store, session.AddProduct{Name: *name, Price: amount, Quantity: *quantity}))
}

func runRemoveProduct(ctx context.Context, opts globalOptions, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("remove-product", stderr)
	store := fs.Int("store", -1, "index of one of your storefronts")
	product := fs.Int("product", -1, "product index")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	return withSession(ctx, opts, stdout, stderr, renderProducts, ownStorefront(*store, session.RemoveProduct{Index: *product}))
}

func runUpdatePrice(ctx context.Context, opts globalOptions, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("update-price", stderr)
	store := fs.Int("store", -1, "index of one of your storefronts")
	product := fs.Int("product", -1, "product index")
	price := fs.String("price", "", "new unit price in ether")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	amount, err := types.ParseEther(*price)
	if err != nil {
		return printError(stderr, fmt.Errorf("--price: %w", err))
	}
	return withSession(ctx, opts, stdout, stderr, renderProducts, ownStorefront(*store, session.UpdatePrice{Index: *product, Price: amount}))
}

func runUploadImage(ctx context.Context, opts globalOptions, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("upload-image", stderr)
	store := fs.Int("store", -1, "index of one of your storefronts")
	product := fs.Int("product", -1, "product index")
	file := fs.String("file", "", "picture to upload")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if strings.TrimSpace(*file) == "" {
		return printError(stderr, errors.New("--file is required"))
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return printError(stderr, err)
	}
	return withSession(ctx, opts, stdout, stderr, renderProducts, func(sess marketSession) ([]session.Command, error) {
		cmds, err := ownStorefront(*store, session.StageImage{Index: *product, Data: data})(sess)
		if err != nil {
			return nil, err
		}
		return append(cmds, session.SubmitImage{}), nil
	})
}

func runWithdraw(ctx context.Context, opts globalOptions, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("withdraw", stderr)
	store := fs.Int("store", -1, "index of one of your storefronts")
	amountFlag := fs.String("amount", "", "amount in ether (defaults to the whole balance)")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	if *store < 0 {
		return printError(stderr, errors.New("--store is required"))
	}
	var amount *uint256.Int
	if *amountFlag != "" {
		parsed, err := types.ParseEther(*amountFlag)
		if err != nil {
			return printError(stderr, fmt.Errorf("--amount: %w", err))
		}
		amount = parsed
	}
	return withSession(ctx, opts, stdout, stderr, renderOwnStorefronts, steps(session.Withdraw{StorefrontIndex: *store, Amount: amount}))
}

func runPurchase(ctx context.Context, opts globalOptions, args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("purchase", stderr)
	owner := fs.String("owner", "", "storefront owner")
	store := fs.Int("store", -1, "storefront index within the owner's storefronts")
	product := fs.Int("product", -1, "product index")
	quantity := fs.Uint64("quantity", 0, "units to buy")
	payment := fs.String("payment", "", "payment in ether (defaults to price times quantity)")
	if !parseFlags(fs, args, stderr) {
		return 1
	}
	addr, err := parseAddress("--owner", *owner)
	if err != nil {
		return printError(stderr, err)
	}
	if *store < 0 {
		return printError(stderr, errors.New("--store is required"))
	}
	var paid *uint256.Int
	if *payment != "" {
		if paid, err = types.ParseEther(*payment); err != nil {
			return printError(stderr, fmt.Errorf("--payment: %w", err))
		}
	}
	return withSession(ctx, opts, stdout, stderr, renderProducts, steps(
		session.Select{Owner: addr, Index: *store},
		session.Purchase{Index: *product, Quantity: *quantity, Payment: paid},
	))
}

func parseAddress(flagName, raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return common.Address{}, fmt.Errorf("%s is required", flagName)
	}
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("%s must be a hex address", flagName)
	}
	return common.HexToAddress(trimmed), nil
}

func renderDone(name string) func(io.Writer, marketSession, session.State) {
	return func(w io.Writer, _ marketSession, s session.State) {
		fmt.Fprintf(w, "%s: ok (state version %d)\n", name, s.Version)
	}
}

func renderUsers(w io.Writer, _ marketSession, s session.State) {
	for _, user := range s.Users {
		fmt.Fprintf(w, "%s  %s\n", user.Address.Hex(), user.Status)
	}
}

func renderOwnStorefronts(w io.Writer, sess marketSession, s session.State) {
	for _, front := range s.Storefronts {
		if !types.SameAddress(front.Owner, sess.Account()) {
			continue
		}
		fmt.Fprintf(w, "%3d  %-24s  %12s ETH  %d products\n",
			front.Index, front.Name, types.FormatEther(front.Balance), front.ProductCount)
	}
}

func renderProducts(w io.Writer, _ marketSession, s session.State) {
	if s.Selection != nil {
		fmt.Fprintf(w, "%s #%d %s\n", s.Selection.Owner.Hex(), s.Selection.Index, s.Selection.Name)
	}
	for _, p := range s.Products {
		cid := p.ContentID
		if cid == "" {
			cid = "-"
		}
		fmt.Fprintf(w, "%3d  %-24s  %12s ETH  x%-6d  %s\n", p.Index, p.Name, types.FormatEther(p.Price), p.Quantity, cid)
	}
}
