package tests

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

func GetProjectRootPath() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	startingPath := ""
	iterations := 0
	for {
		if iterations > 10 {
			panic("Could not find project root path")
		}
		iterations++
		p, err := filepath.Abs(fmt.Sprintf("%s/%s", wd, startingPath))
		if err != nil {
			panic(err)
		}

		match := regexp.MustCompile(`\/artfi-whitelist-go([A-Za-z0-9_-]+)?\/?$`)
		if match.MatchString(p) {
			return p
		}
		if _, err := os.Stat(filepath.Join(p, "go.mod")); err == nil {
			return p
		}
		startingPath = startingPath + "/.."
	}
}

// ChainConfig holds the hardhat accounts and deployment addresses the tests run against.
type ChainConfig struct {
	ChainID                   uint64 `json:"chainId"`
	DeployerAccountAddress    string `json:"deployerAccountAddress"`
	DeployerAccountPrivateKey string `json:"deployerAccountPk"`
	WhitelisterAccountAddress string `json:"whitelisterAccountAddress"`
	WhitelisterPrivateKey     string `json:"whitelisterAccountPk"`
	UserAccountAddress1       string `json:"userAccountAddress_1"`
	UserAccountPrivateKey1    string `json:"userAccountPk_1"`
	UserAccountAddress2       string `json:"userAccountAddress_2"`
	UserAccountPrivateKey2    string `json:"userAccountPk_2"`
	UserAccountAddress3       string `json:"userAccountAddress_3"`
	UserAccountPrivateKey3    string `json:"userAccountPk_3"`
	GateAddress               string `json:"gateAddress"`
	NFTAddress                string `json:"nftAddress"`
}

func ReadChainConfig(projectRoot string) (*ChainConfig, error) {
	filePath := fmt.Sprintf("%s/internal/testData/chain-config.json", projectRoot)

	file, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var cf *ChainConfig
	if err := json.Unmarshal(file, &cf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal file: %w", err)
	}
	return cf, nil
}
