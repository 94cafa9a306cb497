package main

import (
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
)

func whitelisterCommand() *cli.Command {
	return &cli.Command{
		Name:  "whitelister",
		Usage: "Show the gate's trusted signer, owner and signing domain",
		Action: func(c *cli.Context) error {
			l, err := newLogger(c)
			if err != nil {
				return err
			}
			client, err := newClient(c, l, false)
			if err != nil {
				return err
			}
			info, err := client.Whitelister(c.Context)
			if err != nil {
				return err
			}
			return printJSON(info)
		},
	}
}

func tokensCommand() *cli.Command {
	return &cli.Command{
		Name:  "tokens",
		Usage: "List accepted payment tokens",
		Action: func(c *cli.Context) error {
			l, err := newLogger(c)
			if err != nil {
				return err
			}
			client, err := newClient(c, l, false)
			if err != nil {
				return err
			}
			accepted, err := client.AcceptedTokens(c.Context)
			if err != nil {
				return err
			}
			return printJSON(types.TokensResponse{Accepted: accepted})
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "Recover the signer of a fraction signature",
		Flags: []cli.Flag{walletFlag, priceFlag, infoFlag, signatureFlag},
		Action: func(c *cli.Context) error {
			l, err := newLogger(c)
			if err != nil {
				return err
			}
			client, err := newClient(c, l, false)
			if err != nil {
				return err
			}
			wallet, err := addressArg(c, "wallet")
			if err != nil {
				return err
			}
			price, err := amountArg(c, "price")
			if err != nil {
				return err
			}
			sig, err := signatureArg(c)
			if err != nil {
				return err
			}
			res, err := client.Verify(c.Context, wallet, price, c.String("info"), sig)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
}

func whitelistCommand() *cli.Command {
	return &cli.Command{
		Name:  "whitelist",
		Usage: "Redeem a signed fraction: consume its slot and pay the gate",
		Flags: []cli.Flag{assetFlag, amountFlag, fractionIDFlag, infoFlag, signatureFlag},
		Action: func(c *cli.Context) error {
			l, err := newLogger(c)
			if err != nil {
				return err
			}
			client, err := newClient(c, l, true)
			if err != nil {
				return err
			}
			asset, err := addressArg(c, "asset")
			if err != nil {
				return err
			}
			amount, err := amountArg(c, "amount")
			if err != nil {
				return err
			}
			id, err := fractionIDArg(c)
			if err != nil {
				return err
			}
			sig, err := signatureArg(c)
			if err != nil {
				return err
			}
			receipt, err := client.DoWhitelist(c.Context, asset, amount, id, c.String("info"), sig)
			if err != nil {
				return err
			}
			return printJSON(receipt)
		},
	}
}

func updateTokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "update-token",
		Usage: "Accept or revoke a payment token (owner only)",
		Flags: []cli.Flag{
			assetFlag,
			&cli.BoolFlag{Name: "accepted", Usage: "Accept the token; pass --accepted=false to revoke", Value: true},
		},
		Action: func(c *cli.Context) error {
			l, err := newLogger(c)
			if err != nil {
				return err
			}
			client, err := newClient(c, l, true)
			if err != nil {
				return err
			}
			// the server validates the raw identifier
			accepted, err := client.UpdateToken(c.Context, c.String("asset"), c.Bool("accepted"))
			if err != nil {
				return err
			}
			return printJSON(types.TokensResponse{Accepted: accepted})
		},
	}
}

func mintCommand() *cli.Command {
	return &cli.Command{
		Name:  "mint",
		Usage: "Mint mock tokens to an account",
		Flags: []cli.Flag{
			assetFlag,
			amountFlag,
			&cli.StringFlag{Name: "to", Usage: "Recipient address", Required: true},
		},
		Action: func(c *cli.Context) error {
			l, err := newLogger(c)
			if err != nil {
				return err
			}
			client, err := newClient(c, l, true)
			if err != nil {
				return err
			}
			asset, err := addressArg(c, "asset")
			if err != nil {
				return err
			}
			to, err := addressArg(c, "to")
			if err != nil {
				return err
			}
			amount, err := amountArg(c, "amount")
			if err != nil {
				return err
			}
			return client.Mint(c.Context, asset, to, amount)
		},
	}
}

func approveCommand() *cli.Command {
	return &cli.Command{
		Name:  "approve",
		Usage: "Approve a spender (usually the gate) to pull tokens from the caller",
		Flags: []cli.Flag{
			assetFlag,
			amountFlag,
			&cli.StringFlag{Name: "spender", Usage: "Spender address", Required: true},
		},
		Action: func(c *cli.Context) error {
			l, err := newLogger(c)
			if err != nil {
				return err
			}
			client, err := newClient(c, l, true)
			if err != nil {
				return err
			}
			asset, err := addressArg(c, "asset")
			if err != nil {
				return err
			}
			spender, err := addressArg(c, "spender")
			if err != nil {
				return err
			}
			amount, err := amountArg(c, "amount")
			if err != nil {
				return err
			}
			return client.Approve(c.Context, asset, spender, amount)
		},
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "balance",
		Usage: "Show a token balance",
		Flags: []cli.Flag{
			assetFlag,
			&cli.StringFlag{Name: "account", Usage: "Account address", Required: true},
		},
		Action: func(c *cli.Context) error {
			l, err := newLogger(c)
			if err != nil {
				return err
			}
			client, err := newClient(c, l, false)
			if err != nil {
				return err
			}
			asset, err := addressArg(c, "asset")
			if err != nil {
				return err
			}
			account, err := addressArg(c, "account")
			if err != nil {
				return err
			}
			balance, err := client.BalanceOf(c.Context, asset, account)
			if err != nil {
				return err
			}
			return printJSON(types.BalanceResponse{Asset: asset, Account: account, Balance: balance.String()})
		},
	}
}

func slotCommand() *cli.Command {
	return &cli.Command{
		Name:  "slot",
		Usage: "Show whether a fraction slot has been consumed",
		Flags: []cli.Flag{fractionIDFlag},
		Action: func(c *cli.Context) error {
			l, err := newLogger(c)
			if err != nil {
				return err
			}
			client, err := newClient(c, l, false)
			if err != nil {
				return err
			}
			id, err := fractionIDArg(c)
			if err != nil {
				return err
			}
			consumed, err := client.IsSlotConsumed(c.Context, id)
			if err != nil {
				return err
			}
			return printJSON(types.SlotResponse{FractionID: id, Consumed: consumed})
		},
	}
}

func proofCommand() *cli.Command {
	return &cli.Command{
		Name:  "proof",
		Usage: "Fetch the receipt tree root, or a receipt's inclusion proof with --fraction-id",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "fraction-id", Usage: "Fraction slot id (hex)"},
		},
		Action: func(c *cli.Context) error {
			l, err := newLogger(c)
			if err != nil {
				return err
			}
			client, err := newClient(c, l, false)
			if err != nil {
				return err
			}
			if c.String("fraction-id") == "" {
				root, err := client.ReceiptRoot(c.Context)
				if err != nil {
					return err
				}
				return printJSON(root)
			}
			id, err := fractionIDArg(c)
			if err != nil {
				return err
			}
			proof, err := client.ReceiptProof(c.Context, id)
			if err != nil {
				return err
			}
			return printJSON(proof)
		},
	}
}

// encodeSignature renders a signature the way the commands accept it back.
func encodeSignature(sig []byte) string {
	return hexutil.Encode(sig)
}
