package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"swapcore/internal/curve"
	"swapcore/internal/model"
	"swapcore/internal/pool"
	"swapcore/internal/token"
)

// LoadState reads a state file describing pools, token accounts, and
// transfer-fee schedules.
func LoadState(path string) (model.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.State{}, fmt.Errorf("read state file: %w", err)
	}
	var state model.State
	if err := json.Unmarshal(data, &state); err != nil {
		return model.State{}, fmt.Errorf("parse state file: %w", err)
	}
	return state, nil
}

// BuildPools converts the state file's pool records into a registry.
func BuildPools(state model.State) (*pool.Registry, error) {
	registry := pool.NewRegistry()
	for _, record := range state.Pools {
		built, err := buildPool(record)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", record.Address, err)
		}
		registry.Put(built)
	}
	return registry, nil
}

// BuildBook converts the state file's accounts and schedules into a token
// book.
func BuildBook(state model.State) (*token.Book, error) {
	book := token.NewBook()
	for _, record := range state.Accounts {
		address, err := parseAddress(record.Address)
		if err != nil {
			return nil, fmt.Errorf("account address: %w", err)
		}
		mint, err := parseAddress(record.Mint)
		if err != nil {
			return nil, fmt.Errorf("account %s mint: %w", record.Address, err)
		}
		owner, err := parseAddress(record.Owner)
		if err != nil {
			return nil, fmt.Errorf("account %s owner: %w", record.Address, err)
		}
		balance, err := model.ParseAmount(record.Balance)
		if err != nil {
			return nil, fmt.Errorf("account %s balance: %w", record.Address, err)
		}
		err = book.AddAccount(token.Account{
			Address: address,
			Mint:    mint,
			Owner:   owner,
			Balance: balance,
			Frozen:  record.Frozen,
		})
		if err != nil {
			return nil, err
		}
	}

	for _, record := range state.Schedules {
		mint, err := parseAddress(record.Mint)
		if err != nil {
			return nil, fmt.Errorf("schedule mint: %w", err)
		}
		maximum, err := model.ParseAmount(record.MaximumFee)
		if err != nil {
			return nil, fmt.Errorf("schedule %s maximum fee: %w", record.Mint, err)
		}
		if record.TransferFeeBasisPoints > token.MaxTransferFeeBasisPoints {
			return nil, fmt.Errorf("schedule %s: basis points %d out of range", record.Mint, record.TransferFeeBasisPoints)
		}
		book.SetSchedule(mint, token.TransferFeeConfig{
			TransferFeeBasisPoints: record.TransferFeeBasisPoints,
			MaximumFee:             maximum,
		})
	}

	return book, nil
}

// SnapshotPool renders a pool record back into its storage form.
func SnapshotPool(state *pool.State) model.Pool {
	return model.Pool{
		Address:            state.Address.Hex(),
		Authority:          state.Authority.Hex(),
		Token0Mint:         state.Token0Mint.Hex(),
		Token1Mint:         state.Token1Mint.Hex(),
		Token0Vault:        state.Token0Vault.Hex(),
		Token1Vault:        state.Token1Vault.Hex(),
		Status:             state.Status,
		TradeFeeRate:       state.Fees.TradeFeeRate,
		ProtocolFeeRate:    state.Fees.ProtocolFeeRate,
		FundFeeRate:        state.Fees.FundFeeRate,
		ProtocolFeesToken0: model.FormatAmount(state.ProtocolFeesToken0),
		ProtocolFeesToken1: model.FormatAmount(state.ProtocolFeesToken1),
		FundFeesToken0:     model.FormatAmount(state.FundFeesToken0),
		FundFeesToken1:     model.FormatAmount(state.FundFeesToken1),
	}
}

func buildPool(record model.Pool) (*pool.State, error) {
	address, err := parseAddress(record.Address)
	if err != nil {
		return nil, err
	}
	authority, err := parseAddress(record.Authority)
	if err != nil {
		return nil, err
	}
	token0Mint, err := parseAddress(record.Token0Mint)
	if err != nil {
		return nil, err
	}
	token1Mint, err := parseAddress(record.Token1Mint)
	if err != nil {
		return nil, err
	}
	token0Vault, err := parseAddress(record.Token0Vault)
	if err != nil {
		return nil, err
	}
	token1Vault, err := parseAddress(record.Token1Vault)
	if err != nil {
		return nil, err
	}

	if record.TradeFeeRate > curve.FeeRateDenominator {
		return nil, fmt.Errorf("trade fee rate exceeds denominator")
	}
	if record.ProtocolFeeRate+record.FundFeeRate > curve.FeeRateDenominator {
		return nil, fmt.Errorf("protocol and fund fee rates exceed denominator")
	}

	protocolFees0, err := model.ParseAmount(record.ProtocolFeesToken0)
	if err != nil {
		return nil, err
	}
	protocolFees1, err := model.ParseAmount(record.ProtocolFeesToken1)
	if err != nil {
		return nil, err
	}
	fundFees0, err := model.ParseAmount(record.FundFeesToken0)
	if err != nil {
		return nil, err
	}
	fundFees1, err := model.ParseAmount(record.FundFeesToken1)
	if err != nil {
		return nil, err
	}

	return &pool.State{
		Address:     address,
		Authority:   authority,
		Token0Mint:  token0Mint,
		Token1Mint:  token1Mint,
		Token0Vault: token0Vault,
		Token1Vault: token1Vault,
		Status:      record.Status,
		Fees: curve.FeeConfig{
			TradeFeeRate:    record.TradeFeeRate,
			ProtocolFeeRate: record.ProtocolFeeRate,
			FundFeeRate:     record.FundFeeRate,
		},
		ProtocolFeesToken0: protocolFees0,
		ProtocolFeesToken1: protocolFees1,
		FundFeesToken0:     fundFees0,
		FundFeesToken1:     fundFees1,
	}, nil
}

func parseAddress(value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid address %q", value)
	}
	return common.HexToAddress(value), nil
}
