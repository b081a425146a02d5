package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"swapcore/internal/model"
)

// Store provides Postgres persistence for pool snapshots and swap records.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertPools inserts or updates pool snapshots.
func (s *Store) UpsertPools(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range pools {
		batch.Queue(`
			INSERT INTO pools (
				address, authority, token0_mint, token1_mint, token0_vault, token1_vault,
				status, trade_fee_rate, protocol_fee_rate, fund_fee_rate,
				protocol_fees_token0, protocol_fees_token1, fund_fees_token0, fund_fees_token1,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,now(),now())
			ON CONFLICT (address)
			DO UPDATE SET
				status = EXCLUDED.status,
				trade_fee_rate = EXCLUDED.trade_fee_rate,
				protocol_fee_rate = EXCLUDED.protocol_fee_rate,
				fund_fee_rate = EXCLUDED.fund_fee_rate,
				protocol_fees_token0 = EXCLUDED.protocol_fees_token0,
				protocol_fees_token1 = EXCLUDED.protocol_fees_token1,
				fund_fees_token0 = EXCLUDED.fund_fees_token0,
				fund_fees_token1 = EXCLUDED.fund_fees_token1,
				updated_at = now()
		`,
			p.Address,
			p.Authority,
			p.Token0Mint,
			p.Token1Mint,
			p.Token0Vault,
			p.Token1Vault,
			int16(p.Status),
			int64(p.TradeFeeRate),
			int64(p.ProtocolFeeRate),
			int64(p.FundFeeRate),
			p.ProtocolFeesToken0,
			p.ProtocolFeesToken1,
			p.FundFeesToken0,
			p.FundFeesToken1,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertSwaps appends executed swap records.
func (s *Store) InsertSwaps(ctx context.Context, records []model.SwapRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO swaps (
				pool, payer, direction,
				amount_in, actual_amount_in, input_transfer_amount,
				output_transfer_amount, amount_received,
				protocol_fee, fund_fee,
				new_source_reserve, new_destination_reserve,
				executed_at, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now())
		`,
			r.Pool,
			r.Payer,
			r.Direction,
			r.AmountIn,
			r.ActualAmountIn,
			r.InputTransferAmount,
			r.OutputTransferAmount,
			r.AmountReceived,
			r.ProtocolFee,
			r.FundFee,
			r.NewSourceReserve,
			r.NewDestinationReserve,
			r.ExecutedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
