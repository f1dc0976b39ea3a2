// ./internal/state/snapshot_store.go
package state

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/meridianfi/vce/internal/types"
)

// SaveCycleSnapshot saves a complete cycle snapshot to the database.
func SaveCycleSnapshot(snapshot types.CycleSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	initialStatusJSON, err := json.Marshal(snapshot.InitialStatus)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal initial_status: %w", err)
	}
	initialInputsJSON, err := json.Marshal(snapshot.InitialInputs)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal initial_inputs: %w", err)
	}
	plannedInvestJSON, err := json.Marshal(snapshot.PlannedInvest)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal planned_invest: %w", err)
	}
	plannedLiquidateJSON, err := json.Marshal(snapshot.PlannedLiquidate)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal planned_liquidate: %w", err)
	}
	actionReceiptsJSON, err := json.Marshal(snapshot.ActionReceipts)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal action_receipts: %w", err)
	}
	finalStatusJSON, err := json.Marshal(snapshot.FinalStatus)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal final_status: %w", err)
	}
	finalInputsJSON, err := json.Marshal(snapshot.FinalInputs)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal final_inputs: %w", err)
	}

	query := `
		INSERT INTO cycle_snapshots (
			cycle_number, snapshot_timestamp, vault_params_id,
			initial_status, initial_inputs,
			planned_invest, planned_liquidate,
			action_receipts, final_status, final_inputs,
			fee_shares_minted, harvested_assets
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, '')::NUMERIC, NULLIF($12, '')::NUMERIC)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err = DB.QueryRow(
		query,
		snapshot.CycleNumber, snapshot.Timestamp, snapshot.ParamsID,
		initialStatusJSON, initialInputsJSON,
		plannedInvestJSON, plannedLiquidateJSON,
		actionReceiptsJSON, finalStatusJSON, finalInputsJSON,
		snapshot.FeeSharesMinted, snapshot.HarvestedAssets,
	).Scan(&snapshotID)

	if err != nil {
		return 0, fmt.Errorf("failed to save cycle snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Int("cycle_number", snapshot.CycleNumber).
		Str("final_share_price", snapshot.FinalStatus.SharePrice).
		Msg("Cycle snapshot saved to database")

	return snapshotID, nil
}

// LoadRecentSnapshots returns the newest limit snapshots, newest first.
func LoadRecentSnapshots(limit int) ([]types.CycleSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT cycle_number, snapshot_timestamp, vault_params_id,
		       initial_status, initial_inputs,
		       planned_invest, planned_liquidate,
		       action_receipts, final_status, final_inputs,
		       COALESCE(fee_shares_minted::TEXT, ''), COALESCE(harvested_assets::TEXT, '')
		FROM cycle_snapshots
		ORDER BY snapshot_timestamp DESC
		LIMIT $1;
	`
	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycle snapshots: %w", err)
	}
	defer rows.Close()

	var out []types.CycleSnapshot
	for rows.Next() {
		var (
			snap                                 types.CycleSnapshot
			initialStatusJSON, initialInputsJSON []byte
			plannedInvestJSON, plannedLiqJSON    []byte
			receiptsJSON, finalStatusJSON        []byte
			finalInputsJSON                      []byte
		)
		err := rows.Scan(
			&snap.CycleNumber, &snap.Timestamp, &snap.ParamsID,
			&initialStatusJSON, &initialInputsJSON,
			&plannedInvestJSON, &plannedLiqJSON,
			&receiptsJSON, &finalStatusJSON, &finalInputsJSON,
			&snap.FeeSharesMinted, &snap.HarvestedAssets,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle snapshot: %w", err)
		}

		if err := json.Unmarshal(initialStatusJSON, &snap.InitialStatus); err != nil {
			return nil, fmt.Errorf("failed to unmarshal initial_status: %w", err)
		}
		if err := json.Unmarshal(finalStatusJSON, &snap.FinalStatus); err != nil {
			return nil, fmt.Errorf("failed to unmarshal final_status: %w", err)
		}
		// Optional JSONB columns may be SQL NULL.
		if len(initialInputsJSON) > 0 {
			if err := json.Unmarshal(initialInputsJSON, &snap.InitialInputs); err != nil {
				return nil, fmt.Errorf("failed to unmarshal initial_inputs: %w", err)
			}
		}
		if len(finalInputsJSON) > 0 {
			if err := json.Unmarshal(finalInputsJSON, &snap.FinalInputs); err != nil {
				return nil, fmt.Errorf("failed to unmarshal final_inputs: %w", err)
			}
		}
		if len(plannedInvestJSON) > 0 {
			if err := json.Unmarshal(plannedInvestJSON, &snap.PlannedInvest); err != nil {
				return nil, fmt.Errorf("failed to unmarshal planned_invest: %w", err)
			}
		}
		if len(plannedLiqJSON) > 0 {
			if err := json.Unmarshal(plannedLiqJSON, &snap.PlannedLiquidate); err != nil {
				return nil, fmt.Errorf("failed to unmarshal planned_liquidate: %w", err)
			}
		}
		if len(receiptsJSON) > 0 {
			if err := json.Unmarshal(receiptsJSON, &snap.ActionReceipts); err != nil {
				return nil, fmt.Errorf("failed to unmarshal action_receipts: %w", err)
			}
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating cycle snapshots: %w", err)
	}
	return out, nil
}
