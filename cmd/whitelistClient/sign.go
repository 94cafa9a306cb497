package main

import (
	"context"

	awsUtils "github.com/artfi-labs/artfi-whitelist-go/internal/aws"
	"github.com/artfi-labs/artfi-whitelist-go/internal/fractionSigner"
	"github.com/artfi-labs/artfi-whitelist-go/internal/fractionSigner/awsKmsFractionSigner"
	"github.com/artfi-labs/artfi-whitelist-go/internal/fractionSigner/localFractionSigner"
	"github.com/artfi-labs/artfi-whitelist-go/internal/fractionSigner/web3SignerFractionSigner"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/clients/web3signer"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/config"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/eip712"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	kmsKeyIDFlag = &cli.StringFlag{
		Name:    "kms-key-id",
		Usage:   "AWS KMS key id or alias of the whitelister key (instead of --private-key)",
		EnvVars: []string{config.EnvArtfiKMSKeyID},
	}
	awsRegionFlag = &cli.StringFlag{
		Name:    "aws-region",
		Usage:   "AWS region override",
		EnvVars: []string{config.EnvArtfiAWSRegion},
	}
	web3SignerURLFlag = &cli.StringFlag{
		Name:    "web3signer-url",
		Usage:   "Web3Signer URL holding the whitelister key (instead of --private-key)",
		EnvVars: []string{config.EnvArtfiWeb3SignerURL},
	}
	web3SignerAccountFlag = &cli.StringFlag{
		Name:    "web3signer-account",
		Usage:   "Whitelister address served by --web3signer-url",
		EnvVars: []string{config.EnvArtfiWeb3SignerAcct},
	}
)

type signOutput struct {
	Signer    common.Address `json:"signer"`
	KeyID     string         `json:"keyId"`
	Digest    common.Hash    `json:"digest"`
	Signature string         `json:"signature"`
}

func signCommand() *cli.Command {
	return &cli.Command{
		Name:  "sign",
		Usage: "Sign a fraction as the whitelister",
		Flags: []cli.Flag{
			walletFlag,
			priceFlag,
			infoFlag,
			&cli.Uint64Flag{
				Name:    "chain-id",
				Usage:   "Chain ID of the signing domain",
				Value:   uint64(config.ChainId_Hardhat),
				EnvVars: []string{config.EnvArtfiChainID},
			},
			&cli.StringFlag{
				Name:     "gate-address",
				Usage:    "Gate address (verifying contract)",
				EnvVars:  []string{config.EnvArtfiGateAddress},
				Required: true,
			},
			kmsKeyIDFlag,
			awsRegionFlag,
			web3SignerURLFlag,
			web3SignerAccountFlag,
		},
		Action: func(c *cli.Context) error {
			l, err := newLogger(c)
			if err != nil {
				return err
			}
			wallet, err := addressArg(c, "wallet")
			if err != nil {
				return err
			}
			gateAddr, err := addressArg(c, "gate-address")
			if err != nil {
				return err
			}
			price, err := amountArg(c, "price")
			if err != nil {
				return err
			}

			signer, err := newFractionSigner(c.Context, &config.SignerConfig{
				PrivateKey: c.String("private-key"),
				KMSKeyID:   c.String("kms-key-id"),
				AWSRegion:  c.String("aws-region"),

				Web3SignerURL:     c.String("web3signer-url"),
				Web3SignerAccount: c.String("web3signer-account"),
			}, l)
			if err != nil {
				return err
			}

			domain := eip712.NewDomain(c.Uint64("chain-id"), gateAddr)
			fraction := &types.Fraction{WalletAddress: wallet, FractionInfo: c.String("info"), Price: price}

			sig, err := signer.SignFraction(c.Context, domain, fraction)
			if err != nil {
				return err
			}
			addr, err := signer.Address(c.Context)
			if err != nil {
				return err
			}
			digest, err := eip712.HashFraction(domain, fraction)
			if err != nil {
				return err
			}
			return printJSON(signOutput{
				Signer:    addr,
				KeyID:     signer.KeyID(),
				Digest:    digest,
				Signature: encodeSignature(sig),
			})
		},
	}
}

func newFractionSigner(ctx context.Context, cfg *config.SignerConfig, l *zap.Logger) (fractionSigner.IFractionSigner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fail("invalid signer configuration: %v", err)
	}
	switch {
	case cfg.PrivateKey != "":
		return localFractionSigner.NewLocalFractionSignerFromHex(cfg.PrivateKey, l)
	case cfg.Web3SignerURL != "":
		client, err := web3signer.NewClient(&web3signer.Config{BaseURL: cfg.Web3SignerURL}, l)
		if err != nil {
			return nil, err
		}
		if err := client.Upcheck(ctx); err != nil {
			return nil, fail("web3signer is not reachable: %v", err)
		}
		return web3SignerFractionSigner.NewWeb3SignerFractionSigner(client, common.HexToAddress(cfg.Web3SignerAccount), l), nil
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.AWSRegion, l)
	if err != nil {
		return nil, err
	}
	return awsKmsFractionSigner.NewAWSKMSFractionSignerFromConfig(awsCfg, cfg.KMSKeyID, l), nil
}

func loadAWSConfig(ctx context.Context, region string, l *zap.Logger) (aws.Config, error) {
	awsCfg, err := awsUtils.LoadAWSConfig(ctx, region)
	if err != nil {
		return aws.Config{}, fail("failed to load AWS config: %v", err)
	}
	identity, err := awsUtils.CallerIdentity(ctx, awsCfg)
	if err != nil {
		return aws.Config{}, fail("failed to resolve AWS caller identity: %v", err)
	}
	l.Sugar().Infow("Using AWS identity",
		"account", aws.ToString(identity.Account),
		"arn", aws.ToString(identity.Arn),
		"region", awsCfg.Region,
	)
	return awsCfg, nil
}

func createKMSKeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-kms-key",
		Usage: "Create a secp256k1 whitelister key in AWS KMS",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Key name tag", Required: true},
			&cli.StringFlag{Name: "alias", Usage: "Alias to create (without the alias/ prefix)"},
			&cli.StringFlag{
				Name:  "chain",
				Usage: "Chain name tag: hardhat, mumbai or polygon",
				Value: string(config.ChainName_PolygonMumbai),
			},
			awsRegionFlag,
		},
		Action: func(c *cli.Context) error {
			l, err := newLogger(c)
			if err != nil {
				return err
			}
			if _, ok := config.ChainNameToId[config.ChainName(c.String("chain"))]; !ok {
				return fail("unsupported chain %q", c.String("chain"))
			}
			awsCfg, err := loadAWSConfig(c.Context, c.String("aws-region"), l)
			if err != nil {
				return err
			}

			client := kms.NewFromConfig(awsCfg)
			keyID, err := awsKmsFractionSigner.CreateSigningKey(c.Context, client, c.String("name"), c.String("alias"), c.String("chain"))
			if err != nil {
				return err
			}
			addr, err := awsKmsFractionSigner.NewAWSKMSFractionSigner(client, keyID, l).Address(c.Context)
			if err != nil {
				return err
			}
			return printJSON(struct {
				KeyID   string         `json:"keyId"`
				Address common.Address `json:"address"`
			}{keyID, addr})
		},
	}
}
