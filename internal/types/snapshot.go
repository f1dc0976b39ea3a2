package types

import (
	"time"
)

// ActionType labels one executed orchestrator step.
type ActionType string

const (
	ActionInvest    ActionType = "INVEST"
	ActionLiquidate ActionType = "LIQUIDATE"
	ActionHarvest   ActionType = "HARVEST"
	ActionFees      ActionType = "COLLECT_FEES"
)

// ActionReceipt records the outcome of a single orchestrator step within a
// cycle, in vault-asset base units rendered as strings for persistence.
type ActionReceipt struct {
	Type      ActionType `json:"type"`
	Input     int        `json:"input,omitempty"`
	Requested string     `json:"requested,omitempty"`
	Realized  string     `json:"realized,omitempty"`
	Success   bool       `json:"success"`
	Message   string     `json:"message,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// InputStatus is the read-only view of one input slot.
type InputStatus struct {
	Index       int    `json:"index"`
	Asset       string `json:"asset"`
	WeightBps   uint64 `json:"weight_bps"`
	LPToken     string `json:"lp_token,omitempty"`
	RewardToken string `json:"reward_token,omitempty"`
	Invested    string `json:"invested"`
	Excess      string `json:"excess"`
}

// VaultStatus is the read-only summary view exposed outward.
type VaultStatus struct {
	AssetDenom      string    `json:"asset_denom"`
	SharePrice      string    `json:"share_price"`
	TotalSupply     string    `json:"total_supply"`
	AccountedSupply string    `json:"accounted_supply"`
	TotalAssets     string    `json:"total_assets"`
	AccountedAssets string    `json:"accounted_assets"`
	Cash            string    `json:"cash"`
	Invested        string    `json:"invested"`
	PendingShares   string    `json:"pending_shares"`
	ClaimableShares string    `json:"claimable_shares"`
	LastFeeCollect  time.Time `json:"last_fee_collect"`
	LastLiquidate   time.Time `json:"last_liquidate"`
	LastHarvest     time.Time `json:"last_harvest"`
	LastInvest      time.Time `json:"last_invest"`
}

// RequestView is the read-only view of one (owner, receiver) request.
type RequestView struct {
	ID         uint64    `json:"id"`
	Owner      string    `json:"owner"`
	Receiver   string    `json:"receiver"`
	Shares     string    `json:"shares"`
	SharePrice string    `json:"share_price"`
	Operator   string    `json:"operator"`
	Timestamp  time.Time `json:"timestamp"`
	Claimable  bool      `json:"claimable"`
}

// CycleSnapshot captures one full engine cycle for persistence: the state
// before, the plan, the outcome.
type CycleSnapshot struct {
	CycleNumber      int             `json:"cycle_number"`
	Timestamp        time.Time       `json:"timestamp"`
	ParamsID         *int64          `json:"params_id,omitempty"`
	InitialStatus    VaultStatus     `json:"initial_status"`
	InitialInputs    []InputStatus   `json:"initial_inputs"`
	PlannedInvest    []string        `json:"planned_invest,omitempty"`
	PlannedLiquidate []string        `json:"planned_liquidate,omitempty"`
	ActionReceipts   []ActionReceipt `json:"action_receipts"`
	FinalStatus      VaultStatus     `json:"final_status"`
	FinalInputs      []InputStatus   `json:"final_inputs"`
	FeeSharesMinted  string          `json:"fee_shares_minted,omitempty"`
	HarvestedAssets  string          `json:"harvested_assets,omitempty"`
}
