package main

import (
	"context"
	"os"

	sdkmath "cosmossdk.io/math"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/meridianfi/vce/internal/adapters"
	"github.com/meridianfi/vce/internal/config"
	"github.com/meridianfi/vce/internal/engine"
	"github.com/meridianfi/vce/internal/logger"
	"github.com/meridianfi/vce/internal/state"
	"github.com/meridianfi/vce/internal/types"
	"github.com/meridianfi/vce/internal/vault"
	"github.com/meridianfi/vce/internal/web"
)

// main is the entry point for the vault capital engine.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Vault Capital Engine Starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: config.DBHost, Port: config.DBPort,
		User: config.DBUser, Password: config.DBPassword,
		DBName: config.DBName, SSLMode: config.DBSSLMode,
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Load vault parameters, falling back to the environment configuration on
	// first run and persisting it as the active set.
	params, book, err := state.LoadActiveVaultParameters(config.ConfigName)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load active vault parameters, using environment values and saving.")
		envParams := config.VaultParams()
		envBook := defaultInputBook(envParams.AssetDenom)
		if _, err := state.SaveVaultParameters(envParams, envBook, config.ConfigName, engine.DEFAULT_CONFIG_VERSION, true); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial vault parameters.")
		}
		params, book = &envParams, &envBook
	}
	log.Info().Msg("Vault parameters loaded successfully.")

	// --- 2. Collaborator Initialization (with Safety Switch) ---
	if !config.SimMode {
		log.Fatal().Msg("VCE_SIM_MODE is not enabled and no live collaborators are wired. Halting to prevent accidental execution. Set VCE_SIM_MODE=true to run against paper collaborators.")
	}
	log.Warn().Msg("Initializing engine in SIM mode. All collaborators are paper implementations.")

	oracle := adapters.NewPaperOracle()
	router := adapters.NewPaperRouter(oracle, 0)
	bank := adapters.NewPaperBank()
	roles := adapters.NewStaticRoles().
		Grant(config.OperatorAccount, types.RoleOperator).
		Grant(config.AdminAccount, types.RoleAdmin)

	inputAdapters := make([]adapters.InputAdapter, book.Len)
	for i := 0; i < book.Len; i++ {
		slot := book.Slots[i]
		oracle.SetRate(slot.Asset, params.AssetDenom, sdkmath.LegacyOneDec())
		inputAdapters[i] = adapters.NewPaperStaking(slot.RewardToken, sdkmath.LegacyOneDec())
	}

	// --- 3. Create Vault and Engine Instances ---
	log.Info().Msg("Creating vault instance...")
	v, err := vault.New(vault.Config{
		Params:        *params,
		Inputs:        *book,
		Oracle:        oracle,
		Router:        router,
		InputAdapters: inputAdapters,
		Access:        roles,
		Bank:          bank,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create vault instance")
	}

	eng, err := engine.NewEngine(engine.Config{
		Vault:                 v,
		Operator:              config.OperatorAccount,
		ConfigName:            config.ConfigName,
		HarvestInterval:       config.HarvestInterval,
		FeeCollectionInterval: config.FeeCollectionInterval,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine instance")
	}
	log.Info().Msg("Engine instance created successfully")

	// --- 4. Start Web Server ---
	webServer := web.NewWebServer(config.WebListenAddr, v)
	go func() {
		log.Info().Str("addr", config.WebListenAddr).Msg("Starting vault API server")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 5. Start Engine Main Loop ---
	log.Info().Str("interval", config.CycleInterval.String()).Msg("Starting engine main loop")

	// Create context for graceful shutdown
	ctx := context.Background()

	// Start the engine loop (this will run indefinitely)
	eng.RunLoop(ctx, config.CycleInterval)
}

// defaultInputBook is the first-run book: a single slot in the vault asset
// itself at a 70% weight, leaving a 30% cash ratio.
func defaultInputBook(assetDenom string) types.InputBook {
	book, err := types.NewInputBook([]types.InputSlot{
		{Asset: assetDenom, WeightBps: 7_000, LPToken: "", RewardToken: ""},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build default input book")
	}
	return book
}
