package model

// Pool is the persisted pool record: identities, fee configuration, status
// bits, and the accrued fee accumulators. Vault balances live in token
// accounts, not here.
type Pool struct {
	Address     string `json:"address"`
	Authority   string `json:"authority"`
	Token0Mint  string `json:"token0_mint"`
	Token1Mint  string `json:"token1_mint"`
	Token0Vault string `json:"token0_vault"`
	Token1Vault string `json:"token1_vault"`

	Status uint8 `json:"status"`

	TradeFeeRate    uint64 `json:"trade_fee_rate"`
	ProtocolFeeRate uint64 `json:"protocol_fee_rate"`
	FundFeeRate     uint64 `json:"fund_fee_rate"`

	ProtocolFeesToken0 string `json:"protocol_fees_token0"`
	ProtocolFeesToken1 string `json:"protocol_fees_token1"`
	FundFeesToken0     string `json:"fund_fees_token0"`
	FundFeesToken1     string `json:"fund_fees_token1"`
}

// TokenAccount is a token holding in the state file.
type TokenAccount struct {
	Address string `json:"address"`
	Mint    string `json:"mint"`
	Owner   string `json:"owner"`
	Balance string `json:"balance"`
	Frozen  bool   `json:"frozen,omitempty"`
}

// FeeSchedule declares a mint's transfer-fee extension in the state file.
// Mints without an entry have the implicit zero schedule.
type FeeSchedule struct {
	Mint                   string `json:"mint"`
	TransferFeeBasisPoints uint16 `json:"transfer_fee_basis_points"`
	MaximumFee             string `json:"maximum_fee"`
}

// State is the full fixture loaded at startup: pools, token accounts, and
// transfer-fee schedules.
type State struct {
	Pools     []Pool         `json:"pools"`
	Accounts  []TokenAccount `json:"accounts"`
	Schedules []FeeSchedule  `json:"schedules,omitempty"`
}
