package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"taskfi_backend/internal/logger"
)

const tokenDecimals = 18

// Gateway is the chain surface the services need. The real implementation
// talks JSON-RPC, tests swap in a fake.
type Gateway interface {
	BalanceOf(ctx context.Context, address string) (int64, error)
	Transfer(ctx context.Context, to string, tokens int64) (txHash string, err error)
}

// TokenGateway moves the reward ERC-20 from the treasury wallet.
type TokenGateway struct {
	client   *ethclient.Client
	token    common.Address
	treasury common.Address
	key      *ecdsa.PrivateKey
	chainID  *big.Int
}

func NewTokenGateway(ctx context.Context, rpcURL, tokenAddr, treasuryKeyHex string) (*TokenGateway, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	key, err := crypto.HexToECDSA(treasuryKeyHex)
	if err != nil {
		return nil, fmt.Errorf("parse treasury key: %w", err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	return &TokenGateway{
		client:   client,
		token:    common.HexToAddress(tokenAddr),
		treasury: crypto.PubkeyToAddress(key.PublicKey),
		key:      key,
		chainID:  chainID,
	}, nil
}

var (
	balanceOfSelector = crypto.Keccak256([]byte("balanceOf(address)"))[:4]
	transferSelector  = crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]
)

func tokensToWei(tokens int64) *big.Int {
	wei := new(big.Int).Exp(big.NewInt(10), big.NewInt(tokenDecimals), nil)
	return wei.Mul(wei, big.NewInt(tokens))
}

func weiToTokens(wei *big.Int) int64 {
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(tokenDecimals), nil)
	return new(big.Int).Div(wei, unit).Int64()
}

// BalanceOf returns the whole-token balance of an address.
func (g *TokenGateway) BalanceOf(ctx context.Context, address string) (int64, error) {
	data := make([]byte, 0, 36)
	data = append(data, balanceOfSelector...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(address).Bytes(), 32)...)

	out, err := g.client.CallContract(ctx, ethereum.CallMsg{To: &g.token, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("balanceOf call: %w", err)
	}
	if len(out) < 32 {
		return 0, fmt.Errorf("balanceOf returned %d bytes", len(out))
	}
	return weiToTokens(new(big.Int).SetBytes(out[:32])), nil
}

// Transfer sends whole tokens from the treasury and waits for the receipt.
func (g *TokenGateway) Transfer(ctx context.Context, to string, tokens int64) (string, error) {
	nonce, err := g.client.PendingNonceAt(ctx, g.treasury)
	if err != nil {
		return "", fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("gas price: %w", err)
	}

	data := make([]byte, 0, 68)
	data = append(data, transferSelector...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(to).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(tokensToWei(tokens).Bytes(), 32)...)

	tx := types.NewTransaction(nonce, g.token, big.NewInt(0), 100000, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(g.chainID), g.key)
	if err != nil {
		return "", fmt.Errorf("sign tx: %w", err)
	}
	if err := g.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send tx: %w", err)
	}

	hash := signed.Hash()
	receipt, err := g.waitMined(ctx, hash)
	if err != nil {
		return "", err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("tx %s reverted", hash.Hex())
	}
	logger.Info("token transfer mined", "to", to, "tokens", tokens, "tx", hash.Hex())
	return hash.Hex(), nil
}

func (g *TokenGateway) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	deadline := time.Now().Add(90 * time.Second)
	for time.Now().Before(deadline) {
		receipt, err := g.client.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("tx %s not mined within timeout", hash.Hex())
}
