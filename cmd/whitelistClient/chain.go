package main

import (
	"github.com/artfi-labs/artfi-whitelist-go/pkg/config"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/contractCaller/caller"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/transactionSigner"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	ethereumTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"
)

// chainCommand groups commands that talk to a deployed ArtfiWhitelist contract
// over RPC instead of a whitelist server.
func chainCommand() *cli.Command {
	return &cli.Command{
		Name:  "chain",
		Usage: "Call a deployed ArtfiWhitelist contract directly",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rpc-url",
				Aliases: []string{"rpc"},
				Usage:   "Ethereum RPC endpoint URL",
				Value:   config.DefaultRPCUrls[config.ChainId_Hardhat],
				EnvVars: []string{config.EnvArtfiRPCURL},
			},
			&cli.StringFlag{
				Name:     "gate-address",
				Usage:    "ArtfiWhitelist contract address",
				EnvVars:  []string{config.EnvArtfiGateAddress},
				Required: true,
			},
		},
		Subcommands: []*cli.Command{
			{
				Name:  "whitelister",
				Usage: "Read the contract's whitelister",
				Action: withContractCaller(false, func(c *cli.Context, cc *caller.ContractCaller) error {
					addr, err := cc.Whitelister(c.Context)
					if err != nil {
						return err
					}
					return printJSON(types.WhitelisterResponse{Whitelister: addr, Gate: cc.GateAddress()})
				}),
			},
			{
				Name:  "verify",
				Usage: "Recover a fraction signer with verify1",
				Flags: []cli.Flag{walletFlag, priceFlag, infoFlag, signatureFlag},
				Action: withContractCaller(false, func(c *cli.Context, cc *caller.ContractCaller) error {
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
					signer, err := cc.Verify(c.Context, wallet, price, c.String("info"), sig)
					if err != nil {
						return err
					}
					whitelister, err := cc.Whitelister(c.Context)
					if err != nil {
						return err
					}
					return printJSON(types.VerifyResponse{Signer: signer, Whitelister: whitelister, Valid: signer == whitelister})
				}),
			},
			{
				Name:  "whitelist",
				Usage: "Send doWhitelist from the --private-key account",
				Flags: []cli.Flag{assetFlag, amountFlag, fractionIDFlag, infoFlag, signatureFlag},
				Action: withContractCaller(true, func(c *cli.Context, cc *caller.ContractCaller) error {
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
					receipt, err := cc.DoWhitelist(c.Context, asset, amount, id, c.String("info"), sig)
					if err != nil {
						return err
					}
					return printReceipt(receipt)
				}),
			},
			{
				Name:  "update-token",
				Usage: "Send updateToken from the --private-key account and wait for it to be mined",
				Flags: []cli.Flag{
					assetFlag,
					&cli.BoolFlag{Name: "accepted", Usage: "Accept the token; pass --accepted=false to revoke", Value: true},
				},
				Action: withContractCaller(true, func(c *cli.Context, cc *caller.ContractCaller) error {
					asset, err := addressArg(c, "asset")
					if err != nil {
						return err
					}
					receipt, err := cc.UpdateToken(c.Context, asset, c.Bool("accepted"))
					if err != nil {
						return err
					}
					return printReceipt(receipt)
				}),
			},
			{
				Name:  "approve",
				Usage: "Approve the gate to pull tokens from the --private-key account",
				Flags: []cli.Flag{assetFlag, amountFlag},
				Action: withContractCaller(true, func(c *cli.Context, cc *caller.ContractCaller) error {
					asset, err := addressArg(c, "asset")
					if err != nil {
						return err
					}
					amount, err := amountArg(c, "amount")
					if err != nil {
						return err
					}
					receipt, err := cc.Approve(c.Context, asset, cc.GateAddress(), amount)
					if err != nil {
						return err
					}
					return printReceipt(receipt)
				}),
			},
			{
				Name:  "mint",
				Usage: "Mint mock tokens",
				Flags: []cli.Flag{
					assetFlag,
					amountFlag,
					&cli.StringFlag{Name: "to", Usage: "Recipient address", Required: true},
				},
				Action: withContractCaller(true, func(c *cli.Context, cc *caller.ContractCaller) error {
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
					receipt, err := cc.Mint(c.Context, asset, to, amount)
					if err != nil {
						return err
					}
					return printReceipt(receipt)
				}),
			},
			{
				Name:  "balance",
				Usage: "Read a token balance",
				Flags: []cli.Flag{
					assetFlag,
					&cli.StringFlag{Name: "account", Usage: "Account address", Required: true},
				},
				Action: withContractCaller(false, func(c *cli.Context, cc *caller.ContractCaller) error {
					asset, err := addressArg(c, "asset")
					if err != nil {
						return err
					}
					account, err := addressArg(c, "account")
					if err != nil {
						return err
					}
					balance, err := cc.BalanceOf(c.Context, asset, account)
					if err != nil {
						return err
					}
					return printJSON(types.BalanceResponse{Asset: asset, Account: account, Balance: balance.String()})
				}),
			},
		},
	}
}

func withContractCaller(needsSigner bool, fn func(*cli.Context, *caller.ContractCaller) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		l, err := newLogger(c)
		if err != nil {
			return err
		}
		defer func() { _ = l.Sync() }()

		gateAddr, err := addressArg(c, "gate-address")
		if err != nil {
			return err
		}

		client, err := ethclient.DialContext(c.Context, c.String("rpc-url"))
		if err != nil {
			return fail("failed to connect to %s: %v", c.String("rpc-url"), err)
		}
		defer client.Close()

		var signer transactionSigner.ITransactionSigner
		if needsSigner {
			signer, err = transactionSigner.NewTransactionSigner(&transactionSigner.SignerConfig{
				PrivateKey: c.String("private-key"),
			}, client, l)
			if err != nil {
				return fail("failed to create transaction signer: %v", err)
			}
		}

		cc, err := caller.NewContractCaller(client, signer, gateAddr, l)
		if err != nil {
			return err
		}
		return fn(c, cc)
	}
}

func printReceipt(receipt *ethereumTypes.Receipt) error {
	return printJSON(struct {
		TxHash      string `json:"txHash"`
		BlockNumber uint64 `json:"blockNumber"`
		GasUsed     uint64 `json:"gasUsed"`
		Status      uint64 `json:"status"`
	}{receipt.TxHash.Hex(), receipt.BlockNumber.Uint64(), receipt.GasUsed, receipt.Status})
}
