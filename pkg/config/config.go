package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for the whitelist server configuration
const (
	EnvArtfiConfigFile      = "ARTFI_CONFIG_FILE"
	EnvArtfiPort            = "ARTFI_PORT"
	EnvArtfiChainID         = "ARTFI_CHAIN_ID"
	EnvArtfiWhitelister     = "ARTFI_WHITELISTER"
	EnvArtfiOwner           = "ARTFI_OWNER"
	EnvArtfiNFTAddress      = "ARTFI_NFT_ADDRESS"
	EnvArtfiGateAddress     = "ARTFI_GATE_ADDRESS"
	EnvArtfiPersistenceType = "ARTFI_PERSISTENCE_TYPE"
	EnvArtfiDataPath        = "ARTFI_DATA_PATH"
	EnvArtfiRedisAddress    = "ARTFI_REDIS_ADDRESS"
	EnvArtfiRedisPassword   = "ARTFI_REDIS_PASSWORD"
	EnvArtfiRedisDB         = "ARTFI_REDIS_DB"
	EnvArtfiRedisKeyPrefix  = "ARTFI_REDIS_KEY_PREFIX"
	EnvArtfiNatsURL         = "ARTFI_NATS_URL"
	EnvArtfiRateLimit       = "ARTFI_RATE_LIMIT"
	EnvArtfiRPCURL          = "ARTFI_RPC_URL"
	EnvArtfiPrivateKey      = "ARTFI_PRIVATE_KEY"
	EnvArtfiKMSKeyID        = "ARTFI_KMS_KEY_ID"
	EnvArtfiAWSRegion       = "ARTFI_AWS_REGION"
	EnvArtfiWeb3SignerURL   = "ARTFI_WEB3SIGNER_URL"
	EnvArtfiWeb3SignerAcct  = "ARTFI_WEB3SIGNER_ACCOUNT"
	EnvArtfiServerURL       = "ARTFI_SERVER_URL"
	EnvArtfiVerbose         = "ARTFI_VERBOSE"
	EnvArtfiBootstrapToken  = "ARTFI_BOOTSTRAP_TOKEN"
)

type ChainId uint

const (
	ChainId_Hardhat        ChainId = 31337
	ChainId_PolygonMumbai  ChainId = 80001
	ChainId_PolygonMainnet ChainId = 137
)

type ChainName string

const (
	ChainName_Hardhat        ChainName = "hardhat"
	ChainName_PolygonMumbai  ChainName = "mumbai"
	ChainName_PolygonMainnet ChainName = "polygon"
)

var ChainIdToName = map[ChainId]ChainName{
	ChainId_Hardhat:        ChainName_Hardhat,
	ChainId_PolygonMumbai:  ChainName_PolygonMumbai,
	ChainId_PolygonMainnet: ChainName_PolygonMainnet,
}
var ChainNameToId = map[ChainName]ChainId{
	ChainName_Hardhat:        ChainId_Hardhat,
	ChainName_PolygonMumbai:  ChainId_PolygonMumbai,
	ChainName_PolygonMainnet: ChainId_PolygonMainnet,
}

// DefaultRPCUrls are the public endpoints the contracts were deployed against.
var DefaultRPCUrls = map[ChainId]string{
	ChainId_Hardhat:        "http://localhost:8545",
	ChainId_PolygonMumbai:  "https://rpc.ankr.com/polygon_mumbai",
	ChainId_PolygonMainnet: "https://polygon-rpc.com",
}

// GetSupportedChainIDs returns all supported chain IDs
func GetSupportedChainIDs() []ChainId {
	return []ChainId{
		ChainId_Hardhat,
		ChainId_PolygonMumbai,
		ChainId_PolygonMainnet,
	}
}

// GetSupportedChainIDsString returns supported chain IDs as strings for CLI help
func GetSupportedChainIDsString() string {
	return fmt.Sprintf("%d (hardhat), %d (mumbai), %d (polygon)",
		ChainId_Hardhat, ChainId_PolygonMumbai, ChainId_PolygonMainnet)
}

type PersistenceType string

const (
	PersistenceType_Memory PersistenceType = "memory"
	PersistenceType_Badger PersistenceType = "badger"
	PersistenceType_Redis  PersistenceType = "redis"
)

type PersistenceConfig struct {
	Type     PersistenceType `json:"type" yaml:"type"`
	DataPath string          `json:"dataPath" yaml:"dataPath"`

	RedisAddress   string `json:"redisAddress" yaml:"redisAddress"`
	RedisPassword  string `json:"redisPassword" yaml:"redisPassword"`
	RedisDB        int    `json:"redisDb" yaml:"redisDb"`
	RedisKeyPrefix string `json:"redisKeyPrefix" yaml:"redisKeyPrefix"`
}

func (pc *PersistenceConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList
	switch pc.Type {
	case PersistenceType_Memory:
	case PersistenceType_Badger:
		if pc.DataPath == "" {
			allErrors = append(allErrors, field.Required(path.Child("dataPath"), "dataPath is required for badger persistence"))
		}
	case PersistenceType_Redis:
		if pc.RedisAddress == "" {
			allErrors = append(allErrors, field.Required(path.Child("redisAddress"), "redisAddress is required for redis persistence"))
		}
		if pc.RedisDB < 0 || pc.RedisDB > 15 {
			allErrors = append(allErrors, field.Invalid(path.Child("redisDb"), pc.RedisDB, "must be between 0 and 15"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(path.Child("type"), pc.Type,
			[]string{string(PersistenceType_Memory), string(PersistenceType_Badger), string(PersistenceType_Redis)}))
	}
	return allErrors
}

// GateServerConfig represents the complete configuration for a whitelist gate server
type GateServerConfig struct {
	Port int `json:"port" yaml:"port"`

	ChainID   ChainId   `json:"chainId" yaml:"chainId"`
	ChainName ChainName `json:"chainName" yaml:"chainName"`

	// Whitelister is the trusted signer whose EIP-712 signatures are accepted
	Whitelister string `json:"whitelister" yaml:"whitelister"`
	// Owner may update the accepted token registry. Defaults to Whitelister.
	Owner string `json:"owner" yaml:"owner"`
	// NFTAddress is the ArtfiNFT contract the gate was constructed with
	NFTAddress string `json:"nftAddress" yaml:"nftAddress"`
	// GateAddress is the verifyingContract of the signing domain
	GateAddress string `json:"gateAddress" yaml:"gateAddress"`

	Persistence PersistenceConfig `json:"persistence" yaml:"persistence"`

	NatsURL   string  `json:"natsUrl" yaml:"natsUrl"`
	RateLimit float64 `json:"rateLimit" yaml:"rateLimit"`

	// BootstrapToken registers a MockToken with this symbol at startup when set
	BootstrapToken string `json:"bootstrapToken" yaml:"bootstrapToken"`

	Debug   bool `json:"debug" yaml:"debug"`
	Verbose bool `json:"verbose" yaml:"verbose"`
}

// Validate validates the gate server configuration and fills derived fields
func (c *GateServerConfig) Validate() error {
	var allErrors field.ErrorList

	if c.Port < 1 || c.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("port"), c.Port, "must be between 1-65535"))
	}

	chainName, exists := ChainIdToName[c.ChainID]
	if !exists {
		allErrors = append(allErrors, field.Invalid(field.NewPath("chainId"), c.ChainID,
			fmt.Sprintf("unsupported chain ID. Supported: %s", GetSupportedChainIDsString())))
	} else {
		c.ChainName = chainName
	}

	allErrors = append(allErrors, validateAddress(field.NewPath("whitelister"), c.Whitelister, true)...)
	allErrors = append(allErrors, validateAddress(field.NewPath("owner"), c.Owner, false)...)
	allErrors = append(allErrors, validateAddress(field.NewPath("nftAddress"), c.NFTAddress, false)...)
	allErrors = append(allErrors, validateAddress(field.NewPath("gateAddress"), c.GateAddress, true)...)

	if c.Persistence.Type == "" {
		c.Persistence.Type = PersistenceType_Memory
	}
	allErrors = append(allErrors, c.Persistence.validate(field.NewPath("persistence"))...)

	if c.RateLimit < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("rateLimit"), c.RateLimit, "must not be negative"))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}

	if c.Owner == "" {
		c.Owner = c.Whitelister
	}
	return nil
}

func validateAddress(path *field.Path, value string, required bool) field.ErrorList {
	var allErrors field.ErrorList
	if value == "" {
		if required {
			allErrors = append(allErrors, field.Required(path, fmt.Sprintf("%s is required", path.String())))
		}
		return allErrors
	}
	if err := ValidateHexAddress(value); err != nil {
		allErrors = append(allErrors, field.Invalid(path, value, err.Error()))
	}
	return allErrors
}

// ValidateHexAddress accepts exactly one 0x prefix followed by 40 hex characters.
func ValidateHexAddress(value string) error {
	if !strings.HasPrefix(value, "0x") && !strings.HasPrefix(value, "0X") {
		return fmt.Errorf("address must be 0x-prefixed: %s", value)
	}
	if strings.HasPrefix(strings.ToLower(value[2:]), "0x") {
		return fmt.Errorf("address has a doubled 0x prefix: %s", value)
	}
	if !common.IsHexAddress(value) {
		return fmt.Errorf("invalid address format: %s", value)
	}
	return nil
}

// LoadGateServerConfigFile reads a YAML configuration file. Flags and environment
// variables are applied on top by the caller.
func LoadGateServerConfigFile(path string) (*GateServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg GateServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

type SignerConfig struct {
	PrivateKey string `json:"privateKey" yaml:"privateKey"`
	KMSKeyID   string `json:"kmsKeyId" yaml:"kmsKeyId"`
	AWSRegion  string `json:"awsRegion" yaml:"awsRegion"`

	Web3SignerURL     string `json:"web3SignerUrl" yaml:"web3SignerUrl"`
	Web3SignerAccount string `json:"web3SignerAccount" yaml:"web3SignerAccount"`
}

// Validate requires exactly one of privateKey, kmsKeyId or web3SignerUrl.
func (sc *SignerConfig) Validate() error {
	var allErrors field.ErrorList

	configured := 0
	for _, v := range []string{sc.PrivateKey, sc.KMSKeyID, sc.Web3SignerURL} {
		if v != "" {
			configured++
		}
	}
	switch {
	case configured == 0:
		allErrors = append(allErrors, field.Required(field.NewPath("privateKey"), "one of privateKey, kmsKeyId or web3SignerUrl is required"))
	case configured > 1:
		allErrors = append(allErrors, field.Forbidden(field.NewPath("kmsKeyId"), "privateKey, kmsKeyId and web3SignerUrl are mutually exclusive"))
	}

	if sc.PrivateKey != "" {
		pk := strings.TrimPrefix(sc.PrivateKey, "0x")
		if len(pk) != 64 {
			allErrors = append(allErrors, field.Invalid(field.NewPath("privateKey"), "<redacted>",
				fmt.Sprintf("must be 32 bytes (64 hex chars), got %d chars", len(pk))))
		}
	}
	if sc.Web3SignerURL != "" {
		allErrors = append(allErrors, validateAddress(field.NewPath("web3SignerAccount"), sc.Web3SignerAccount, true)...)
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}
