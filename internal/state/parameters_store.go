// ./internal/state/parameters_store.go
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/meridianfi/vce/internal/types"
)

// SaveVaultParameters saves a new version of vault parameters together with
// the input book, optionally activating it.
func SaveVaultParameters(params types.VaultParams, book types.InputBook, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}
	if err := params.Validate(); err != nil {
		return 0, fmt.Errorf("refusing to persist invalid parameters: %w", err)
	}
	if err := book.Validate(); err != nil {
		return 0, fmt.Errorf("refusing to persist invalid input book: %w", err)
	}

	bookJSON, err := json.Marshal(book)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal input book: %w", err)
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if makeActive {
		stmtDeactivate := `UPDATE vault_parameters SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`
		_, err = tx.Exec(stmtDeactivate, configName)
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active parameters for %s: %w", configName, err)
		}
	}

	stmt := `
		INSERT INTO vault_parameters (
			version, config_name, is_active, activated_at, created_at,
			asset_denom, asset_decimals, min_liquidity, max_total_assets, fee_collector,
			perf_fee_bps, mgmt_fee_bps, entry_fee_bps, exit_fee_bps, flash_fee_bps,
			redemption_lock_seconds, profit_cooldown_seconds, max_slippage_bps,
			input_book
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8::NUMERIC, $9::NUMERIC, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18,
			$19
		) RETURNING params_id;`

	var paramsID int64
	currentTime := time.Now()
	err = tx.QueryRow(
		stmt,
		version, configName, makeActive, currentTime, currentTime,
		params.AssetDenom, params.AssetDecimals, params.MinLiquidity.String(), params.MaxTotalAssets.String(), params.FeeCollector,
		params.Fees.PerfBps, params.Fees.MgmtBps, params.Fees.EntryBps, params.Fees.ExitBps, params.Fees.FlashBps,
		params.RedemptionLockSeconds, params.ProfitCooldownSeconds, params.MaxSlippageBps,
		bookJSON,
	).Scan(&paramsID)

	if err != nil {
		return 0, fmt.Errorf("failed to insert vault parameters: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int("version", version).
		Str("config", configName).
		Int64("params_id", paramsID).
		Bool("active", makeActive).
		Msg("Saved vault parameters")
	return paramsID, nil
}

// LoadActiveVaultParameters loads the currently active vault parameters and
// input book for a config name.
func LoadActiveVaultParameters(configName string) (*types.VaultParams, *types.InputBook, error) {
	if DB == nil {
		return nil, nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT asset_denom, asset_decimals, min_liquidity::TEXT, max_total_assets::TEXT, fee_collector,
		       perf_fee_bps, mgmt_fee_bps, entry_fee_bps, exit_fee_bps, flash_fee_bps,
		       redemption_lock_seconds, profit_cooldown_seconds, max_slippage_bps,
		       input_book
		FROM vault_parameters
		WHERE config_name = $1 AND is_active = TRUE
		ORDER BY activated_at DESC
		LIMIT 1;`

	var (
		params    types.VaultParams
		minLiq    string
		maxAssets string
		bookJSON  []byte
	)
	err := DB.QueryRow(query, configName).Scan(
		&params.AssetDenom, &params.AssetDecimals, &minLiq, &maxAssets, &params.FeeCollector,
		&params.Fees.PerfBps, &params.Fees.MgmtBps, &params.Fees.EntryBps, &params.Fees.ExitBps, &params.Fees.FlashBps,
		&params.RedemptionLockSeconds, &params.ProfitCooldownSeconds, &params.MaxSlippageBps,
		&bookJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, fmt.Errorf("no active vault parameters for config %q", configName)
		}
		return nil, nil, fmt.Errorf("failed to load active vault parameters: %w", err)
	}

	var ok bool
	params.MinLiquidity, ok = sdkmath.NewIntFromString(minLiq)
	if !ok {
		return nil, nil, fmt.Errorf("stored min_liquidity %q is not an integer", minLiq)
	}
	params.MaxTotalAssets, ok = sdkmath.NewIntFromString(maxAssets)
	if !ok {
		return nil, nil, fmt.Errorf("stored max_total_assets %q is not an integer", maxAssets)
	}

	var book types.InputBook
	if len(bookJSON) > 0 {
		if err := json.Unmarshal(bookJSON, &book); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal input book: %w", err)
		}
	}

	if err := params.Validate(); err != nil {
		return nil, nil, fmt.Errorf("stored parameters failed validation: %w", err)
	}
	if err := book.Validate(); err != nil {
		return nil, nil, fmt.Errorf("stored input book failed validation: %w", err)
	}

	log.Debug().Str("config", configName).Msg("Loaded active vault parameters")
	return &params, &book, nil
}

// GetActiveVaultParametersID returns the params_id of the active row, or nil
// if none is active.
func GetActiveVaultParametersID(configName string) (*int64, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT params_id FROM vault_parameters
		WHERE config_name = $1 AND is_active = TRUE
		ORDER BY activated_at DESC
		LIMIT 1;`

	var id int64
	err := DB.QueryRow(query, configName).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active vault parameters id: %w", err)
	}
	return &id, nil
}
