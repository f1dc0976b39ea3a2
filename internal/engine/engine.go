// Package engine drives the vault through periodic operating cycles: prepare
// liquidity for queued redemptions, harvest rewards, reinvest idle cash and
// collect fees, persisting a snapshot of every cycle.
package engine

import (
	"context"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meridianfi/vce/internal/logger"
	"github.com/meridianfi/vce/internal/planner"
	"github.com/meridianfi/vce/internal/state"
	"github.com/meridianfi/vce/internal/types"
	"github.com/meridianfi/vce/internal/vault"
)

const (
	// DEFAULT_CONFIG_NAME names the parameter set an engine runs with when the
	// caller does not supply one.
	DEFAULT_CONFIG_NAME    = "default_vce_strategy"
	DEFAULT_CONFIG_VERSION = 1
)

// Engine owns one vault and runs the operating loop against it.
type Engine struct {
	logger   zerolog.Logger
	vault    *vault.Vault
	operator string

	configName            string
	harvestInterval       time.Duration
	feeCollectionInterval time.Duration

	cycleCount int
}

// Config holds the configuration for creating a new Engine instance
type Config struct {
	Vault                 *vault.Vault
	Operator              string
	ConfigName            string
	HarvestInterval       time.Duration
	FeeCollectionInterval time.Duration
}

// NewEngine creates a new Engine instance with dependency injection. An empty
// ConfigName falls back to DEFAULT_CONFIG_NAME.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.ConfigName == "" {
		cfg.ConfigName = DEFAULT_CONFIG_NAME
	}
	if err := validateEngineConfig(cfg); err != nil {
		return nil, fmt.Errorf("engine configuration validation failed: %w", err)
	}

	e := &Engine{
		logger:                logger.GetForComponent("vault_engine"),
		vault:                 cfg.Vault,
		operator:              cfg.Operator,
		configName:            cfg.ConfigName,
		harvestInterval:       cfg.HarvestInterval,
		feeCollectionInterval: cfg.FeeCollectionInterval,
		cycleCount:            0,
	}

	e.logger.Info().
		Str("configName", e.configName).
		Str("operator", e.operator).
		Msg("Engine instance created successfully")

	return e, nil
}

// validateEngineConfig validates the engine configuration
func validateEngineConfig(cfg Config) error {
	if cfg.Vault == nil {
		return fmt.Errorf("vault cannot be nil")
	}
	if cfg.Operator == "" {
		return fmt.Errorf("operator account cannot be empty")
	}
	if cfg.HarvestInterval <= 0 {
		return fmt.Errorf("harvest interval must be positive")
	}
	if cfg.FeeCollectionInterval <= 0 {
		return fmt.Errorf("fee collection interval must be positive")
	}
	return nil
}

// RunLoop starts the main engine loop with the specified interval
func (e *Engine) RunLoop(ctx context.Context, interval time.Duration) {
	e.logger.Info().
		Dur("interval", interval).
		Msg("Starting engine main loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run first cycle immediately
	e.cycleCount++
	e.logger.Info().Int("cycle", e.cycleCount).Msg("Initiating engine cycle")
	e.RunCycle(ctx)
	e.logger.Info().Int("cycle", e.cycleCount).Msg("Engine cycle completed")

	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Engine loop stopped due to context cancellation")
			return
		case <-ticker.C:
			e.cycleCount++
			e.logger.Info().Int("cycle", e.cycleCount).Msg("Initiating engine cycle")
			e.RunCycle(ctx)
			e.logger.Info().Int("cycle", e.cycleCount).Msg("Engine cycle completed")
		}
	}
}

// RunCycle executes one complete operating cycle. A failed step aborts the
// remainder of the cycle, never the loop; the partial snapshot is persisted
// either way.
func (e *Engine) RunCycle(ctx context.Context) {
	cycleStartTime := time.Now()

	// Unique cycle ID for tracing logs across the entire cycle
	cycleID := uuid.New().String()
	cycleLogger := e.logger.With().Str("cycle_id", cycleID).Logger()

	cycleLogger.Info().Msg("--- Starting Engine Cycle ---")

	snapshot := types.CycleSnapshot{
		CycleNumber:    e.getCycleNumber(),
		Timestamp:      cycleStartTime,
		ParamsID:       e.getVaultParamsID(),
		InitialStatus:  e.vault.Status(),
		InitialInputs:  e.vault.InputStatuses(),
		ActionReceipts: make([]types.ActionReceipt, 0),
	}

	defer func() {
		snapshot.FinalStatus = e.vault.Status()
		snapshot.FinalInputs = e.vault.InputStatuses()
		e.saveCycleSnapshot(snapshot, cycleLogger)
		cycleLogger.Info().
			Dur("duration", time.Since(cycleStartTime)).
			Str("share_price", snapshot.FinalStatus.SharePrice).
			Msg("--- Engine Cycle Finished ---")
	}()

	var noParams [types.MaxInputs][]byte

	// --- Step 1: Prepare liquidity for queued redemptions ---
	cycleLogger.Info().Msg("Step 1: Preparing liquidity for queued redemptions...")
	plan := e.planLiquidation(cycleLogger)
	if plan != nil && plan.Total.IsPositive() {
		snapshot.PlannedLiquidate = amountStrings(plan.Amounts)
		minLiquidity := e.vault.Params().MinLiquidity
		recovered, err := e.vault.Liquidate(e.operator, plan.Amounts, minLiquidity, false, noParams)
		snapshot.ActionReceipts = append(snapshot.ActionReceipts, receipt(types.ActionLiquidate, plan.Total, recovered, err))
		if err != nil {
			cycleLogger.Error().Err(err).Msg("Cycle aborted: Liquidation failed.")
			return
		}
		cycleLogger.Info().Str("recovered", recovered.String()).Msg("Step 1: Liquidation complete.")
	} else {
		cycleLogger.Info().Msg("Step 1: No liquidation needed.")
	}

	// --- Step 2: Harvest rewards ---
	status := e.vault.Status()
	if time.Since(status.LastHarvest) >= e.harvestInterval {
		cycleLogger.Info().Msg("Step 2: Harvesting input rewards...")
		harvested, err := e.vault.Harvest(e.operator, noParams)
		snapshot.ActionReceipts = append(snapshot.ActionReceipts, receipt(types.ActionHarvest, sdkmath.ZeroInt(), harvested, err))
		if err != nil {
			cycleLogger.Error().Err(err).Msg("Cycle aborted: Harvest failed.")
			return
		}
		snapshot.HarvestedAssets = harvested.String()
		cycleLogger.Info().Str("harvested", harvested.String()).Msg("Step 2: Harvest complete.")
	} else {
		cycleLogger.Info().Msg("Step 2: Harvest not due yet.")
	}

	// --- Step 3: Invest idle cash ---
	cycleLogger.Info().Msg("Step 3: Investing idle cash...")
	investPlan, err := planner.PreviewInvest(e.vault.PlannerSnapshot(), sdkmath.ZeroInt())
	switch {
	case err != nil:
		// No idle cash above the target ratio is the normal quiet-cycle case.
		cycleLogger.Info().Err(err).Msg("Step 3: Nothing to invest.")
	case investPlan.Total.IsPositive():
		snapshot.PlannedInvest = amountStrings(investPlan.Amounts)
		spent, err := e.vault.Invest(e.operator, investPlan.Amounts, noParams)
		snapshot.ActionReceipts = append(snapshot.ActionReceipts, receipt(types.ActionInvest, investPlan.Total, spent, err))
		if err != nil {
			cycleLogger.Error().Err(err).Msg("Cycle aborted: Investment failed.")
			return
		}
		cycleLogger.Info().Str("spent", spent.String()).Msg("Step 3: Investment complete.")
	default:
		cycleLogger.Info().Msg("Step 3: Inputs already at target.")
	}

	// --- Step 4: Collect fees ---
	status = e.vault.Status()
	if time.Since(status.LastFeeCollect) >= e.feeCollectionInterval {
		cycleLogger.Info().Msg("Step 4: Collecting fees...")
		minted, feeAssets, err := e.vault.CollectFees(e.operator)
		snapshot.ActionReceipts = append(snapshot.ActionReceipts, receipt(types.ActionFees, feeAssets, feeAssets, err))
		if err != nil {
			cycleLogger.Error().Err(err).Msg("Cycle aborted: Fee collection failed.")
			return
		}
		snapshot.FeeSharesMinted = minted.String()
		cycleLogger.Info().
			Str("fee_shares", minted.String()).
			Str("fee_assets", feeAssets.String()).
			Msg("Step 4: Fee collection complete.")
	} else {
		cycleLogger.Info().Msg("Step 4: Fee collection not due yet.")
	}
}

// planLiquidation previews the liquidation covering queued redemptions.
// Returns nil when the queue is empty or the preview fails.
func (e *Engine) planLiquidation(cycleLogger zerolog.Logger) *planner.Breakdown {
	snap := e.vault.PlannerSnapshot()
	if !snap.PendingWithdrawals.IsPositive() {
		return nil
	}
	plan, err := planner.PreviewLiquidate(snap, sdkmath.ZeroInt())
	if err != nil {
		cycleLogger.Error().Err(err).Msg("Liquidation preview failed")
		return nil
	}
	return &plan
}

func (e *Engine) getCycleNumber() int {
	cycleNumber, err := state.IncrementCycleNumber()
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to increment cycle counter, using in-memory count")
		return e.cycleCount
	}
	return cycleNumber
}

func (e *Engine) getVaultParamsID() *int64 {
	id, err := state.GetActiveVaultParametersID(e.configName)
	if err != nil {
		e.logger.Error().Err(err).Msg("Failed to resolve active vault parameters id")
		return nil
	}
	return id
}

func (e *Engine) saveCycleSnapshot(snapshot types.CycleSnapshot, cycleLogger zerolog.Logger) {
	if _, err := state.SaveCycleSnapshot(snapshot); err != nil {
		cycleLogger.Error().Err(err).Msg("Failed to save cycle snapshot")
	}
}

func receipt(action types.ActionType, requested, realized sdkmath.Int, err error) types.ActionReceipt {
	r := types.ActionReceipt{
		Type:      action,
		Success:   err == nil,
		Timestamp: time.Now(),
	}
	if !requested.IsNil() {
		r.Requested = requested.String()
	}
	if err != nil {
		r.Message = err.Error()
	} else if !realized.IsNil() {
		r.Realized = realized.String()
	}
	return r
}

func amountStrings(amounts [types.MaxInputs]sdkmath.Int) []string {
	out := make([]string, 0, len(amounts))
	for _, a := range amounts {
		if a.IsNil() {
			out = append(out, "0")
			continue
		}
		out = append(out, a.String())
	}
	return out
}
