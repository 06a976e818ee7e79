// Package main: one-shot balance verification.
//
// verify checks whether a set of wallets meets a minimum balance on a chain and prints the outcome as a table. The
// wallets are given with -w (repeatable) or as identity records in a JSON file with -i. For example:
//
//	verify -chain 56 -min 1000 -contract 0xc1A59a17F87ba6651Eb8E8F707db7672647c45bD -w 0x6A1FFe04D63f892F079C30fB619b8db5fE17fF9c
//
// With -token, the details of the -contract token are printed instead.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"

	"github.com/tarancss/balcheck/lib/block"
	"github.com/tarancss/balcheck/lib/chain"
	"github.com/tarancss/balcheck/lib/config"
	"github.com/tarancss/balcheck/lib/identity"
	"github.com/tarancss/balcheck/lib/threshold"
	"github.com/tarancss/balcheck/verifier"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command with args and returns the exit code: 0 if verified, 1 if not and 2 on errors.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var wallets []string

	confPath := fs.String("c", "", "flag to get configuration from json or yaml file")
	chainID := fs.Int64("chain", chain.BNBMainnet, "chain id")
	min := fs.String("min", "0", "minimum amount, in whole units of the currency")
	contract := fs.String("contract", "", "ERC20 token contract address, native currency if empty")
	decimals := fs.Int("decimals", int(threshold.DefaultDecimals), "decimals of the currency, 0 to 255")
	idsPath := fs.String("i", "", "JSON file with the identity records of the user")
	token := fs.Bool("token", false, "print the details of the -contract token")
	debug := fs.Bool("debug", false, "trace the verification")
	fs.Func("w", "wallet address (repeatable)", func(s string) error {
		wallets = append(wallets, s)

		return nil
	})

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *decimals < 0 || *decimals > int(threshold.MaxDecimals) {
		fmt.Fprintf(stderr, "decimals: %v %d\n", threshold.ErrDecimals, *decimals)

		return 2
	}

	conf, err := config.ExtractConfiguration(*confPath)
	if err != nil {
		fmt.Fprintf(stderr, "configuration: %v\n", err)

		return 2
	}

	reg := chain.New(conf.Chains)
	v := verifier.New(reg, block.NewPool(conf.Driver, reg), verifier.Options{
		Policy:     conf.Policy,
		Timeout:    conf.Timeout(),
		Debug:      conf.Debug,
		MaxWallets: conf.MaxWallets,
	})
	defer v.Close()

	ctx := context.Background()

	if *token {
		tok, errT := v.Token(ctx, *chainID, *contract)
		if errT != nil {
			fmt.Fprintf(stderr, "token: %v\n", errT)

			return 2
		}

		t := newTable()
		t.AppendHeader(table.Row{"Chain", "Address", "Name", "Symbol", "Decimals"})
		t.AppendRow(table.Row{reg.Name(*chainID), tok.Address, tok.Name, tok.Symbol, tok.Decimals})
		fmt.Fprintln(stdout, t.Render())

		return 0
	}

	minimum, err := decimal.NewFromString(*min)
	if err != nil {
		fmt.Fprintf(stderr, "minimum: %v\n", err)

		return 2
	}

	ids, err := identities(*idsPath, *chainID, wallets)
	if err != nil {
		fmt.Fprintf(stderr, "identities: %v\n", err)

		return 2
	}

	q := verifier.NewQuery(*chainID)
	q.ID = uuid.NewString()
	q.MinimumAmount = minimum
	q.ContractAddress = *contract
	q.ContractDecimals = int32(*decimals)
	q.Debug = *debug

	o, err := v.Verify(ctx, ids, q)
	if err != nil {
		fmt.Fprintf(stderr, "verify: %v\n", err)

		return 2
	}

	asset := "native"
	if *contract != "" {
		asset = *contract
	}

	t := newTable()
	t.AppendHeader(table.Row{"Request", "Chain", "Asset", "Minimum", "Wallets", "Valid", "Reason"})
	t.AppendRow(table.Row{q.ID, reg.Name(*chainID) + " (" + strconv.FormatInt(*chainID, 10) + ")", asset,
		minimum.String(), o.Wallets, o.Valid, o.Reason})
	fmt.Fprintln(stdout, t.Render())
	fmt.Fprintln(stdout, o.Message)

	if !o.Valid {
		return 1
	}

	return 0
}

// identities returns the identity records in file, if any, plus a SIWE identity for each wallet.
func identities(file string, chainID int64, wallets []string) ([]identity.Identity, error) {
	var ids []identity.Identity

	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}

		if err = json.Unmarshal(b, &ids); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	for _, w := range wallets {
		ids = append(ids, identity.Identity{
			Provider:   "oauth2",
			Connection: identity.SIWE,
			UserID:     fmt.Sprintf("siwe|eip155:%d:%s", chainID, w),
		})
	}

	return ids, nil
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)

	return t
}
