package main

import (
	"fmt"
	"log"
	"os"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/config"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "whitelist-client",
		Usage: "Artfi whitelist client for signing fractions and calling the gate",
		Description: `A client for the Artfi whitelist gate.

This client can:
- Sign fractions as the whitelister with a local key or an AWS KMS key
- Verify and redeem signed fractions against a whitelist server
- Administer accepted tokens and drive the mock token
- Call a deployed ArtfiWhitelist contract directly over RPC`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server-url",
				Aliases: []string{"s"},
				Usage:   "Whitelist server URL",
				Value:   "http://localhost:8000",
				EnvVars: []string{config.EnvArtfiServerURL},
			},
			&cli.StringFlag{
				Name:    "private-key",
				Usage:   "Caller private key (hex) used to sign calls and transactions",
				EnvVars: []string{config.EnvArtfiPrivateKey},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvArtfiVerbose},
			},
		},
		Commands: []*cli.Command{
			signCommand(),
			createKMSKeyCommand(),
			whitelisterCommand(),
			tokensCommand(),
			verifyCommand(),
			whitelistCommand(),
			updateTokenCommand(),
			mintCommand(),
			approveCommand(),
			balanceCommand(),
			slotCommand(),
			proofCommand(),
			chainCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func fail(format string, args ...any) error {
	return cli.Exit(fmt.Sprintf(format, args...), 1)
}
