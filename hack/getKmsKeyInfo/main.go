package main

import (
	"context"
	"math/big"
	"os"

	"github.com/artfi-labs/artfi-whitelist-go/internal/aws"
	"github.com/artfi-labs/artfi-whitelist-go/internal/fractionSigner/awsKmsFractionSigner"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/config"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/eip712"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/logger"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Prints the address behind a KMS whitelister key and checks that a fraction it
// signs recovers to that address.
func main() {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	ctx := context.Background()

	awsCfg, err := aws.LoadAWSConfig(ctx, os.Getenv(config.EnvArtfiAWSRegion))
	if err != nil {
		panic(err)
	}

	keyId := os.Getenv("KEY_ID")
	if keyId == "" {
		l.Sugar().Fatal("KEY_ID environment variable is not set")
	}

	signer := awsKmsFractionSigner.NewAWSKMSFractionSignerFromConfig(awsCfg, keyId, l)
	address, err := signer.Address(ctx)
	if err != nil {
		l.Sugar().Fatalw("failed to get key address", "error", err)
	}

	domain := eip712.NewDomain(uint64(config.ChainId_PolygonMumbai), common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"))
	fraction := &types.Fraction{
		WalletAddress: address,
		FractionInfo:  "1,3,5",
		Price:         big.NewInt(100),
	}
	sig, err := signer.SignFraction(ctx, domain, fraction)
	if err != nil {
		l.Sugar().Fatalw("failed to sign test fraction", "error", err)
	}
	recovered, err := eip712.RecoverFractionSigner(domain, fraction, sig)
	if err != nil {
		l.Sugar().Fatalw("failed to recover test fraction signer", "error", err)
	}

	l.Sugar().Infow("KMS whitelister key",
		"keyId", keyId,
		"address", address.Hex(),
		"signature", hexutil.Encode(sig),
		"recovered", recovered.Hex(),
		"addressesMatch", recovered == address,
	)
}
