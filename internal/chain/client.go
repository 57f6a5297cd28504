// Package chain provides the read-only blockchain access this backend needs:
// curve state from the raffle pool contract, consolation snapshots from the
// season distributor, transaction receipt polling, and calldata packing for
// the sponsored root submission. Nothing here signs or broadcasts.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/raffleworks/raffled/internal/domain"
)

// rafflePoolABI covers the two views the quote path reads. getSteps returns
// parallel arrays of cumulative-supply bounds and per-unit prices.
const rafflePoolABI = `[
	{"name":"currentSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"getSteps","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"rangeTos","type":"uint256[]"},{"name":"prices","type":"uint256[]"}]}
]`

// seasonDistributorABI covers the snapshot views the build job reads after a
// season finalizes, plus the root publication entrypoint the relay sponsors.
const seasonDistributorABI = `[
	{"name":"seasonInfo","type":"function","stateMutability":"view","inputs":[{"name":"seasonId","type":"string"}],"outputs":[{"name":"grandWinner","type":"address"},{"name":"consolationPool","type":"uint256"},{"name":"totalTickets","type":"uint256"},{"name":"winnerTickets","type":"uint256"}]},
	{"name":"getParticipants","type":"function","stateMutability":"view","inputs":[{"name":"seasonId","type":"string"}],"outputs":[{"name":"accounts","type":"address[]"},{"name":"tickets","type":"uint256[]"}]},
	{"name":"submitRoot","type":"function","stateMutability":"nonpayable","inputs":[{"name":"seasonId","type":"string"},{"name":"root","type":"bytes32"}],"outputs":[]}
]`

// Config holds the chain client parameters.
type Config struct {
	RPCURL  string
	ChainID int64
}

// Client wraps an ethclient connection plus the parsed contract ABIs.
type Client struct {
	eth         *ethclient.Client
	pool        abi.ABI
	distributor abi.ABI
	logger      *slog.Logger
}

// Dial connects to the RPC endpoint, verifies the chain ID when one is
// configured, and returns the client.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("chain: rpc url is required: %w", domain.ErrInvalidInput)
	}

	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}

	if cfg.ChainID > 0 {
		id, err := eth.ChainID(ctx)
		if err != nil {
			eth.Close()
			return nil, fmt.Errorf("chain: chain id: %w", err)
		}
		if id.Int64() != cfg.ChainID {
			eth.Close()
			return nil, fmt.Errorf("chain: connected to chain %s, expected %d: %w",
				id.String(), cfg.ChainID, domain.ErrInvalidInput)
		}
	}

	poolABI, err := abi.JSON(strings.NewReader(rafflePoolABI))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: parse pool abi: %w", err)
	}
	distABI, err := abi.JSON(strings.NewReader(seasonDistributorABI))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain: parse distributor abi: %w", err)
	}

	return &Client{
		eth:         eth,
		pool:        poolABI,
		distributor: distABI,
		logger:      logger.With(slog.String("component", "chain")),
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// CurveState reads the current supply and the full step schedule from the
// raffle pool contract at the latest block.
func (c *Client) CurveState(ctx context.Context, pool common.Address) (domain.CurveState, error) {
	supplyOut, err := c.call(ctx, pool, c.pool, "currentSupply")
	if err != nil {
		return domain.CurveState{}, err
	}
	supply, err := asUint64(supplyOut[0])
	if err != nil {
		return domain.CurveState{}, fmt.Errorf("chain: currentSupply: %w", err)
	}

	stepsOut, err := c.call(ctx, pool, c.pool, "getSteps")
	if err != nil {
		return domain.CurveState{}, err
	}
	rangeTos, ok := stepsOut[0].([]*big.Int)
	if !ok {
		return domain.CurveState{}, fmt.Errorf("chain: getSteps rangeTos has type %T: %w", stepsOut[0], domain.ErrInvalidInput)
	}
	prices, ok := stepsOut[1].([]*big.Int)
	if !ok {
		return domain.CurveState{}, fmt.Errorf("chain: getSteps prices has type %T: %w", stepsOut[1], domain.ErrInvalidInput)
	}
	if len(rangeTos) != len(prices) {
		return domain.CurveState{}, fmt.Errorf("chain: getSteps returned %d bounds but %d prices: %w",
			len(rangeTos), len(prices), domain.ErrInvalidInput)
	}

	steps := make([]domain.BondStep, len(rangeTos))
	for i := range rangeTos {
		bound, err := asUint64(rangeTos[i])
		if err != nil {
			return domain.CurveState{}, fmt.Errorf("chain: step %d bound: %w", i, err)
		}
		steps[i] = domain.BondStep{RangeTo: bound, Price: prices[i]}
	}

	return domain.CurveState{CurrentSupply: supply, Steps: steps}, nil
}

// Snapshot reads the consolation snapshot for a finalized season from the
// distributor contract: winner, pool, ticket totals, and the full
// participant enumeration in contract order.
func (c *Client) Snapshot(ctx context.Context, distributor common.Address, seasonID string) (domain.ConsolationSnapshot, error) {
	if seasonID == "" {
		return domain.ConsolationSnapshot{}, fmt.Errorf("chain: season id is required: %w", domain.ErrInvalidInput)
	}

	infoOut, err := c.call(ctx, distributor, c.distributor, "seasonInfo", seasonID)
	if err != nil {
		return domain.ConsolationSnapshot{}, err
	}
	winner, ok := infoOut[0].(common.Address)
	if !ok {
		return domain.ConsolationSnapshot{}, fmt.Errorf("chain: seasonInfo winner has type %T: %w", infoOut[0], domain.ErrInvalidInput)
	}
	pool, ok := infoOut[1].(*big.Int)
	if !ok {
		return domain.ConsolationSnapshot{}, fmt.Errorf("chain: seasonInfo pool has type %T: %w", infoOut[1], domain.ErrInvalidInput)
	}
	totalTickets, err := asUint64(infoOut[2])
	if err != nil {
		return domain.ConsolationSnapshot{}, fmt.Errorf("chain: seasonInfo totalTickets: %w", err)
	}
	winnerTickets, err := asUint64(infoOut[3])
	if err != nil {
		return domain.ConsolationSnapshot{}, fmt.Errorf("chain: seasonInfo winnerTickets: %w", err)
	}

	partOut, err := c.call(ctx, distributor, c.distributor, "getParticipants", seasonID)
	if err != nil {
		return domain.ConsolationSnapshot{}, err
	}
	accounts, ok := partOut[0].([]common.Address)
	if !ok {
		return domain.ConsolationSnapshot{}, fmt.Errorf("chain: getParticipants accounts has type %T: %w", partOut[0], domain.ErrInvalidInput)
	}
	tickets, ok := partOut[1].([]*big.Int)
	if !ok {
		return domain.ConsolationSnapshot{}, fmt.Errorf("chain: getParticipants tickets has type %T: %w", partOut[1], domain.ErrInvalidInput)
	}
	if len(accounts) != len(tickets) {
		return domain.ConsolationSnapshot{}, fmt.Errorf("chain: getParticipants returned %d accounts but %d ticket counts: %w",
			len(accounts), len(tickets), domain.ErrInvalidInput)
	}

	participants := make([]domain.Participant, len(accounts))
	for i := range accounts {
		count, err := asUint64(tickets[i])
		if err != nil {
			return domain.ConsolationSnapshot{}, fmt.Errorf("chain: participant %d tickets: %w", i, err)
		}
		participants[i] = domain.Participant{
			Account:     accounts[i].Hex(),
			TicketCount: count,
		}
	}

	return domain.ConsolationSnapshot{
		SeasonID:             seasonID,
		Participants:         participants,
		GrandWinner:          winner.Hex(),
		ConsolationPool:      pool,
		TotalTicketsSnapshot: totalTickets,
		GrandWinnerTickets:   winnerTickets,
	}, nil
}

// SubmitRootCalldata packs the submitRoot(seasonId, root) call for the
// distributor contract. The bytes go to the paymaster relay, which sponsors
// and broadcasts the transaction; nothing is sent from here.
func (c *Client) SubmitRootCalldata(seasonID string, root common.Hash) ([]byte, error) {
	if seasonID == "" {
		return nil, fmt.Errorf("chain: season id is required: %w", domain.ErrInvalidInput)
	}
	data, err := c.distributor.Pack("submitRoot", seasonID, [32]byte(root))
	if err != nil {
		return nil, fmt.Errorf("chain: pack submitRoot: %w", err)
	}
	return data, nil
}

// WaitReceipt polls for a transaction receipt until it appears or the
// context ends. ethereum.NotFound keeps polling; any other error aborts.
func (c *Client) WaitReceipt(ctx context.Context, txHash common.Hash, pollInterval time.Duration) (*types.Receipt, error) {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("chain: receipt %s: %w", txHash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("chain: waiting for receipt %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// call packs, executes, and unpacks one eth_call against the latest block.
func (c *Client) call(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...any) ([]any, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w", method, err)
	}

	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s on %s: %w", method, to.Hex(), err)
	}

	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack %s: %w", method, err)
	}
	return out, nil
}

// asUint64 narrows an ABI uint256 result, rejecting values that do not fit.
func asUint64(v any) (uint64, error) {
	n, ok := v.(*big.Int)
	if !ok {
		return 0, fmt.Errorf("value has type %T: %w", v, domain.ErrInvalidInput)
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("value %s exceeds uint64: %w", n.String(), domain.ErrInvalidInput)
	}
	return n.Uint64(), nil
}
