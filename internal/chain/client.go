package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"coin100/internal/domain"
	"coin100/internal/handler"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/params"
	"go.opentelemetry.io/otel/trace"
)

// rebaseGasLimit matches the gas ceiling the rebase method needs on mainnet.
const rebaseGasLimit = 300000

const contractABI = `[
	{"name":"isAdmin","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"rebase","type":"function","stateMutability":"nonpayable","inputs":[{"name":"newMarketCap","type":"uint256"}],"outputs":[]},
	{"name":"totalSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"lastMarketCap","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"_gonsPerFragment","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

// ContractCaller is the slice of the RPC client the service needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Service prepares unsigned rebase transactions against the token contract.
// The API never holds keys; signing stays client-side.
type Service struct {
	tracer   trace.Tracer
	caller   ContractCaller
	contract common.Address
	abi      abi.ABI
}

func NewService(tracer trace.Tracer, providerURL, contractAddress string) (*Service, error) {
	client, err := ethclient.Dial(providerURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to web3 provider: %w", err)
	}
	return newService(tracer, client, contractAddress)
}

func newService(tracer trace.Tracer, caller ContractCaller, contractAddress string) (*Service, error) {
	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", contractAddress)
	}
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, fmt.Errorf("parsing contract ABI: %w", err)
	}
	return &Service{
		tracer:   tracer,
		caller:   caller,
		contract: common.HexToAddress(contractAddress),
		abi:      parsed,
	}, nil
}

// PrepareRebase checks the wallet's admin rights on-chain and returns
// calldata for it to sign. ErrNotAdmin when the contract says no.
func (s *Service) PrepareRebase(ctx context.Context, newMarketCap, walletAddress string) (*handler.RebaseTx, error) {
	ctx, span := s.tracer.Start(ctx, "chain.prepare-rebase")
	defer span.End()

	value, ok := new(big.Int).SetString(newMarketCap, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid market cap value %q", newMarketCap)
	}
	if !common.IsHexAddress(walletAddress) {
		return nil, fmt.Errorf("invalid wallet address %q", walletAddress)
	}
	wallet := common.HexToAddress(walletAddress)

	admin, err := s.isAdmin(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, domain.ErrNotAdmin
	}

	data, err := s.abi.Pack("rebase", value)
	if err != nil {
		return nil, fmt.Errorf("encoding rebase calldata: %w", err)
	}

	return &handler.RebaseTx{
		To:       s.contract.Hex(),
		From:     wallet.Hex(),
		Data:     hexutil.Encode(data),
		GasLimit: hexutil.EncodeUint64(rebaseGasLimit),
	}, nil
}

// Metrics reads the contract's supply state. Wei-denominated values come
// back converted to ether.
func (s *Service) Metrics(ctx context.Context) (*handler.RebaseMetrics, error) {
	ctx, span := s.tracer.Start(ctx, "chain.metrics")
	defer span.End()

	totalSupply, err := s.callUint256(ctx, "totalSupply")
	if err != nil {
		return nil, err
	}
	lastMarketCap, err := s.callUint256(ctx, "lastMarketCap")
	if err != nil {
		return nil, err
	}
	gonsPerFragment, err := s.callUint256(ctx, "_gonsPerFragment")
	if err != nil {
		return nil, err
	}

	return &handler.RebaseMetrics{
		TotalSupply:     weiToEther(totalSupply),
		LastMarketCap:   weiToEther(lastMarketCap),
		GonsPerFragment: gonsPerFragment.String(),
	}, nil
}

func (s *Service) isAdmin(ctx context.Context, wallet common.Address) (bool, error) {
	out, err := s.call(ctx, "isAdmin", wallet)
	if err != nil {
		return false, err
	}
	results, err := s.abi.Unpack("isAdmin", out)
	if err != nil {
		return false, fmt.Errorf("decoding isAdmin result: %w", err)
	}
	admin, ok := results[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected isAdmin result type %T", results[0])
	}
	return admin, nil
}

func (s *Service) callUint256(ctx context.Context, method string) (*big.Int, error) {
	out, err := s.call(ctx, method)
	if err != nil {
		return nil, err
	}
	results, err := s.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", method, err)
	}
	value, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type %T", method, results[0])
	}
	return value, nil
}

func (s *Service) call(ctx context.Context, method string, args ...interface{}) ([]byte, error) {
	data, err := s.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s call: %w", method, err)
	}
	out, err := s.caller.CallContract(ctx, ethereum.CallMsg{To: &s.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", method, err)
	}
	return out, nil
}

func weiToEther(wei *big.Int) string {
	ether := new(big.Rat).SetFrac(wei, big.NewInt(params.Ether))
	s := ether.FloatString(18)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
