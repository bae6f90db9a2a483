package contracts

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"lendingScope/internal/model"
)

// Decoder turns raw logs into typed events. The same topic can mean
// different things depending on the role the emitting contract is watched
// as, so every decode names the role.
type Decoder struct {
	roles map[model.Role]abi.ABI
}

// NewDecoder parses every role's event ABI.
func NewDecoder() (*Decoder, error) {
	loaders := map[model.Role]*lazyABI{
		model.RoleFactory:     factoryEvents,
		model.RoleBorrowable:  borrowableEvents,
		model.RoleCollateral:  collateralEvents,
		model.RolePair:        pairEvents,
		model.RoleWrappedPair: wrappedPairEvents,
		model.RoleRewardPool:  rewardPoolEvents,
	}
	roles := make(map[model.Role]abi.ABI, len(loaders))
	for role, loader := range loaders {
		parsed, err := loader.get()
		if err != nil {
			return nil, fmt.Errorf("parse %s events: %w", role, err)
		}
		roles[role] = parsed
	}
	return &Decoder{roles: roles}, nil
}

// Topics returns every topic0 a contract in role can emit that the decoder
// understands.
func (d *Decoder) Topics(role model.Role) []common.Hash {
	parsed, ok := d.roles[role]
	if !ok {
		return nil
	}
	out := make([]common.Hash, 0, len(parsed.Events))
	for _, event := range parsed.Events {
		out = append(out, event.ID)
	}
	return out
}

// Decode converts log into an event for role. ok is false when the role has
// no event with the log's topic0; such logs are not an error.
func (d *Decoder) Decode(log model.LogRecord, role model.Role) (model.Event, bool, error) {
	parsed, known := d.roles[role]
	if !known {
		return model.Event{}, false, fmt.Errorf("unknown role %q", role)
	}
	if len(log.Topics) == 0 {
		return model.Event{}, false, fmt.Errorf("missing topics")
	}
	topics, err := parseTopicHashes(log.Topics)
	if err != nil {
		return model.Event{}, false, err
	}
	event, err := parsed.EventByID(topics[0])
	if err != nil {
		return model.Event{}, false, nil
	}

	args, err := unpackEvent(*event, topics[1:], log.Data)
	if err != nil {
		return model.Event{}, true, fmt.Errorf("decode %s %s: %w", role, event.Name, err)
	}
	payload, err := buildPayload(role, *event, args)
	if err != nil {
		return model.Event{}, true, fmt.Errorf("decode %s %s: %w", role, event.Name, err)
	}

	return model.Event{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     strings.ToLower(log.Address),
		Timestamp:   log.Timestamp,
		Role:        role,
		Name:        event.Name,
		Payload:     payload,
	}, true, nil
}

func unpackEvent(event abi.Event, indexedTopics []common.Hash, dataHex string) (map[string]interface{}, error) {
	indexed := indexedArguments(event.Inputs)
	if len(indexedTopics) != len(indexed) {
		return nil, fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(indexedTopics)+1)
	}
	args := make(map[string]interface{}, len(event.Inputs))
	if err := abi.ParseTopicsIntoMap(args, indexed, indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}
	data, err := hexutil.Decode(normalizeHex(dataHex))
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	if err := event.Inputs.UnpackIntoMap(args, data); err != nil {
		return nil, fmt.Errorf("unpack: %w", err)
	}
	return args, nil
}

func buildPayload(role model.Role, event abi.Event, args map[string]interface{}) (interface{}, error) {
	r := argReader{args: args}
	var payload interface{}

	switch event.Name {
	case model.EventLendingPoolInitialized:
		payload = model.LendingPoolInitializedData{
			Pair:        r.address("uniswapV2Pair"),
			Token0:      r.address("token0"),
			Token1:      r.address("token1"),
			Collateral:  r.address("collateral"),
			Borrowable0: r.address("borrowable0"),
			Borrowable1: r.address("borrowable1"),
			PoolIndex:   r.bigInt("lendingPoolId"),
		}
	case model.EventSync:
		if role == model.RolePair {
			payload = model.ReserveSyncData{
				Reserve0: r.bigInt("reserve0"),
				Reserve1: r.bigInt("reserve1"),
			}
		} else {
			payload = model.BalanceSyncData{TotalBalance: r.bigInt("totalBalance")}
		}
	case model.EventAccrueInterest:
		payload = model.AccrueInterestData{
			InterestAccumulated: r.bigInt("interestAccumulated"),
			BorrowIndex:         r.bigInt("borrowIndex"),
			TotalBorrows:        r.bigInt("totalBorrows"),
		}
	case model.EventBorrow:
		payload = model.BorrowData{
			Sender:              r.address("sender"),
			Borrower:            r.address("borrower"),
			Receiver:            r.address("receiver"),
			BorrowAmount:        r.bigInt("borrowAmount"),
			RepayAmount:         r.bigInt("repayAmount"),
			AccountBorrowsPrior: r.bigInt("accountBorrowsPrior"),
			AccountBorrows:      r.bigInt("accountBorrows"),
			TotalBorrows:        r.bigInt("totalBorrows"),
		}
	case model.EventLiquidate:
		payload = model.LiquidateData{
			Sender:              r.address("sender"),
			Borrower:            r.address("borrower"),
			Liquidator:          r.address("liquidator"),
			SeizeTokens:         r.bigInt("seizeTokens"),
			RepayAmount:         r.bigInt("repayAmount"),
			AccountBorrowsPrior: r.bigInt("accountBorrowsPrior"),
			AccountBorrows:      r.bigInt("accountBorrows"),
			TotalBorrows:        r.bigInt("totalBorrows"),
		}
	case model.EventTransfer:
		payload = model.TransferData{
			From:  r.address("from"),
			To:    r.address("to"),
			Value: r.bigInt("value"),
		}
	case model.EventNewBorrowTracker:
		payload = model.BorrowTrackerData{Tracker: r.address("newBorrowTracker")}
	case model.EventAdvance:
		payload = model.AdvanceData{
			EpochBegin:  r.bigInt("epochBegin"),
			EpochAmount: r.bigInt("epochAmount"),
		}
	case model.EventCalculateKinkBorrowRate, model.EventCalculateBorrowRate,
		model.EventNewReserveFactor, model.EventNewKinkUtilizationRate,
		model.EventNewSafetyMargin, model.EventNewLiquidationIncentive:
		payload = model.ParameterData{Value: r.bigInt(event.Inputs[0].Name)}
	default:
		return nil, fmt.Errorf("unsupported event %s", event.Name)
	}

	if r.err != nil {
		return nil, r.err
	}
	return payload, nil
}

// argReader pulls typed values out of an unpacked argument map, keeping the
// first failure.
type argReader struct {
	args map[string]interface{}
	err  error
}

func (r *argReader) address(name string) string {
	value, ok := r.args[name]
	if !ok {
		r.fail(fmt.Errorf("missing argument %s", name))
		return ""
	}
	addr, err := asAddress(value)
	if err != nil {
		r.fail(fmt.Errorf("%s: %w", name, err))
		return ""
	}
	return AddressID(addr)
}

func (r *argReader) bigInt(name string) *big.Int {
	value, ok := r.args[name]
	if !ok {
		r.fail(fmt.Errorf("missing argument %s", name))
		return new(big.Int)
	}
	n, err := asBigInt(value)
	if err != nil {
		r.fail(fmt.Errorf("%s: %w", name, err))
		return new(big.Int)
	}
	return n
}

func (r *argReader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(normalizeHex(topic))
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func normalizeHex(s string) string {
	if s == "" || s == "0x" {
		return "0x"
	}
	return s
}
