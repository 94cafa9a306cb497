package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/callSigner/inMemoryCallSigner"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/gate"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/logger"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/transport"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	assetFlag = &cli.StringFlag{
		Name:     "asset",
		Usage:    "Token address",
		Required: true,
	}
	amountFlag = &cli.StringFlag{
		Name:     "amount",
		Usage:    "Amount in the token's smallest unit",
		Required: true,
	}
	walletFlag = &cli.StringFlag{
		Name:     "wallet",
		Usage:    "Wallet address the fraction is issued to",
		Required: true,
	}
	priceFlag = &cli.StringFlag{
		Name:     "price",
		Usage:    "Price in the token's smallest unit",
		Required: true,
	}
	infoFlag = &cli.StringFlag{
		Name:     "info",
		Usage:    "Fraction info string, e.g. 1,3,5",
		Required: true,
	}
	signatureFlag = &cli.StringFlag{
		Name:     "signature",
		Usage:    "Whitelister signature (hex)",
		Required: true,
	}
	fractionIDFlag = &cli.StringFlag{
		Name:     "fraction-id",
		Usage:    "Fraction slot id (hex, up to 32 bytes)",
		Required: true,
	}
)

func newLogger(c *cli.Context) (*zap.Logger, error) {
	return logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
}

// newClient builds a server client. A private key is only required for
// commands that send signed calls.
func newClient(c *cli.Context, l *zap.Logger, requireSigner bool) (*transport.Client, error) {
	pk := c.String("private-key")
	if pk == "" {
		if requireSigner {
			return nil, fail("--private-key is required for this command")
		}
		return transport.NewClient(c.String("server-url"), nil, l), nil
	}
	signer, err := inMemoryCallSigner.NewInMemoryCallSignerFromHex(pk, l)
	if err != nil {
		return nil, fail("invalid private key: %v", err)
	}
	return transport.NewClient(c.String("server-url"), signer, l), nil
}

func addressArg(c *cli.Context, name string) (common.Address, error) {
	addr, err := gate.ParseAssetID(c.String(name))
	if err != nil {
		return common.Address{}, fail("invalid --%s: %v", name, err)
	}
	return addr, nil
}

func amountArg(c *cli.Context, name string) (*big.Int, error) {
	v, err := gate.ParseAmount(c.String(name))
	if err != nil {
		return nil, fail("invalid --%s: %v", name, err)
	}
	return v, nil
}

func signatureArg(c *cli.Context) ([]byte, error) {
	sig, err := hexutil.Decode(c.String("signature"))
	if err != nil {
		return nil, fail("invalid --signature: %v", err)
	}
	return sig, nil
}

func fractionIDArg(c *cli.Context) (types.FractionID, error) {
	id, err := types.ParseFractionID(c.String("fraction-id"))
	if err != nil {
		return types.FractionID{}, fail("invalid --fraction-id: %v", err)
	}
	return id, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}
