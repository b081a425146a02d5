package model

// SwapRecord journals one executed swap for storage.
type SwapRecord struct {
	Pool      string `json:"pool"`
	Payer     string `json:"payer"`
	Direction string `json:"direction"`

	AmountIn             string `json:"amount_in"`
	ActualAmountIn       string `json:"actual_amount_in"`
	InputTransferAmount  string `json:"input_transfer_amount"`
	OutputTransferAmount string `json:"output_transfer_amount"`
	AmountReceived       string `json:"amount_received"`

	ProtocolFee string `json:"protocol_fee"`
	FundFee     string `json:"fund_fee"`

	NewSourceReserve      string `json:"new_source_reserve"`
	NewDestinationReserve string `json:"new_destination_reserve"`

	ExecutedAt string `json:"executed_at"`
}
