package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/meridianfi/vce/internal/types"
)

// Application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// ConfigName selects which parameter set in the database this engine
	// instance runs with.
	ConfigName string

	// AssetDenom is the vault's base asset denomination.
	AssetDenom string
	// AssetDecimals is the base asset's decimal precision.
	AssetDecimals uint8

	// MinLiquidity is the minimum liquidity floor in asset base units.
	MinLiquidity sdkmath.Int
	// MaxTotalAssets is the deposit cap in asset base units; zero disables it.
	MaxTotalAssets sdkmath.Int
	// FeeCollector receives all fee shares.
	FeeCollector string

	// Fee schedule in basis points.
	PerfFeeBps  uint64
	MgmtFeeBps  uint64
	EntryFeeBps uint64
	ExitFeeBps  uint64
	FlashFeeBps uint64

	// RedemptionLockSeconds gates how long a redemption request stays pending
	// before the lock alone can mature it.
	RedemptionLockSeconds int64
	// ProfitCooldownSeconds is the harvest profit linearization window.
	ProfitCooldownSeconds int64
	// MaxSlippageBps is the unified swap-plus-stake slippage tolerance.
	MaxSlippageBps uint64

	// OperatorAccount and AdminAccount are the identities the engine acts as.
	OperatorAccount string
	AdminAccount    string

	// CycleInterval is the pause between engine cycles.
	CycleInterval time.Duration
	// HarvestInterval and FeeCollectionInterval gate how often those steps
	// run inside the cycle loop.
	HarvestInterval       time.Duration
	FeeCollectionInterval time.Duration

	// SimMode runs the engine against paper collaborators instead of live
	// ones. Live mode refuses to start until wiring exists for it.
	SimMode bool

	// WebListenAddr is the dashboard/API bind address.
	WebListenAddr string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	ConfigName, err = getEnv("VCE_CONFIG_NAME")
	if err != nil {
		return err
	}

	AssetDenom, err = getEnv("VCE_ASSET_DENOM")
	if err != nil {
		return err
	}

	decimals, err := getEnvAsUint64("VCE_ASSET_DECIMALS")
	if err != nil {
		return err
	}
	if decimals > 18 {
		return errors.New("environment variable VCE_ASSET_DECIMALS must be at most 18")
	}
	AssetDecimals = uint8(decimals)

	MinLiquidity, err = getEnvAsInt("VCE_MIN_LIQUIDITY")
	if err != nil {
		return err
	}

	MaxTotalAssets, err = getEnvAsInt("VCE_MAX_TOTAL_ASSETS")
	if err != nil {
		return err
	}

	FeeCollector, err = getEnv("VCE_FEE_COLLECTOR")
	if err != nil {
		return err
	}

	PerfFeeBps, err = getEnvAsUint64("VCE_PERF_FEE_BPS")
	if err != nil {
		return err
	}

	MgmtFeeBps, err = getEnvAsUint64("VCE_MGMT_FEE_BPS")
	if err != nil {
		return err
	}

	EntryFeeBps, err = getEnvAsUint64("VCE_ENTRY_FEE_BPS")
	if err != nil {
		return err
	}

	ExitFeeBps, err = getEnvAsUint64("VCE_EXIT_FEE_BPS")
	if err != nil {
		return err
	}

	FlashFeeBps, err = getEnvAsUint64("VCE_FLASH_FEE_BPS")
	if err != nil {
		return err
	}

	RedemptionLockSeconds, err = getEnvAsInt64("VCE_REDEMPTION_LOCK_SECONDS")
	if err != nil {
		return err
	}

	ProfitCooldownSeconds, err = getEnvAsInt64("VCE_PROFIT_COOLDOWN_SECONDS")
	if err != nil {
		return err
	}

	MaxSlippageBps, err = getEnvAsUint64("VCE_MAX_SLIPPAGE_BPS")
	if err != nil {
		return err
	}

	OperatorAccount, err = getEnv("VCE_OPERATOR_ACCOUNT")
	if err != nil {
		return err
	}

	AdminAccount, err = getEnv("VCE_ADMIN_ACCOUNT")
	if err != nil {
		return err
	}

	CycleInterval, err = getEnvAsDuration("VCE_CYCLE_INTERVAL")
	if err != nil {
		return err
	}

	HarvestInterval, err = getEnvAsDuration("VCE_HARVEST_INTERVAL")
	if err != nil {
		return err
	}

	FeeCollectionInterval, err = getEnvAsDuration("VCE_FEE_COLLECTION_INTERVAL")
	if err != nil {
		return err
	}

	simStr, err := getEnv("VCE_SIM_MODE")
	if err != nil {
		return err
	}
	SimMode = strings.EqualFold(simStr, "true") || simStr == "1"

	WebListenAddr, err = getEnv("VCE_WEB_LISTEN_ADDR")
	if err != nil {
		return err
	}

	if err := loadDatabaseConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("ConfigName", ConfigName).
		Str("AssetDenom", AssetDenom).
		Bool("SimMode", SimMode).
		Msg("Configuration loaded successfully.")

	return nil
}

// VaultParams assembles the vault parameter struct from the loaded globals.
func VaultParams() types.VaultParams {
	return types.VaultParams{
		AssetDenom:     AssetDenom,
		AssetDecimals:  AssetDecimals,
		MinLiquidity:   MinLiquidity,
		MaxTotalAssets: MaxTotalAssets,
		FeeCollector:   FeeCollector,
		Fees: types.Fees{
			PerfBps:  PerfFeeBps,
			MgmtBps:  MgmtFeeBps,
			EntryBps: EntryFeeBps,
			ExitBps:  ExitFeeBps,
			FlashBps: FlashFeeBps,
		},
		RedemptionLockSeconds: RedemptionLockSeconds,
		ProfitCooldownSeconds: ProfitCooldownSeconds,
		MaxSlippageBps:        MaxSlippageBps,
	}
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsInt64 retrieves an environment variable as an int64. Returns error if not set or invalid.
func getEnvAsInt64(key string) (int64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int64, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsInt retrieves an environment variable as an arbitrary-precision
// integer. Returns error if not set or invalid.
func getEnvAsInt(key string) (sdkmath.Int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return sdkmath.Int{}, err
	}
	value, ok := sdkmath.NewIntFromString(valueStr)
	if !ok {
		return sdkmath.Int{}, errors.New("environment variable " + key + " must be a valid integer, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsDuration retrieves an environment variable as a time.Duration. Returns error if not set or invalid.
func getEnvAsDuration(key string) (time.Duration, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid duration, got: " + valueStr)
	}
	return value, nil
}
