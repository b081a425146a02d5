package model

import (
	"encoding/json"
	"testing"
)

func TestSwapRecordAmountsAreStrings(t *testing.T) {
	record := SwapRecord{
		Pool:                  "0x00000000000000000000000000000000000000f0",
		Payer:                 "0x00000000000000000000000000000000000000d0",
		Direction:             "zero_for_one",
		AmountIn:              "10000",
		ActualAmountIn:        "10000",
		InputTransferAmount:   "10000",
		OutputTransferAmount:  "19752",
		AmountReceived:        "19752",
		ProtocolFee:           "3",
		FundFee:               "1",
		NewSourceReserve:      "1009996",
		NewDestinationReserve: "1980248",
		ExecutedAt:            "2024-01-01T00:00:00Z",
	}

	data, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	for _, field := range []string{"amount_in", "amount_received", "new_source_reserve"} {
		if _, ok := decoded[field].(string); !ok {
			t.Fatalf("%s should be a string", field)
		}
	}
}

func TestParseAmount(t *testing.T) {
	amount, err := ParseAmount("18446744073709551615")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if amount != 18446744073709551615 {
		t.Fatalf("amount mismatch: %d", amount)
	}

	if _, err := ParseAmount("-1"); err == nil {
		t.Fatalf("expected error for negative amount")
	}
	if _, err := ParseAmount("abc"); err == nil {
		t.Fatalf("expected error for non-numeric amount")
	}

	amount, err = ParseAmount("")
	if err != nil || amount != 0 {
		t.Fatalf("empty amount should be zero, got %d, %v", amount, err)
	}

	if FormatAmount(42) != "42" {
		t.Fatalf("format mismatch")
	}
}
