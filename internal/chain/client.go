package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mgvlab/kandel/pkg/logger"
)

// Options configure a Client.
type Options struct {
	RPCURL     string
	ChainID    int64
	PrivateKey *ecdsa.PrivateKey

	Mangrove common.Address
	Reader   common.Address
	Seeder   common.Address
	Market   Market
}

// Client implements the read and write collaborators against one chain.
type Client struct {
	eth        *ethclient.Client
	chainID    *big.Int
	privateKey *ecdsa.PrivateKey

	mangrove common.Address
	reader   common.Address
	seeder   common.Address
	market   Market

	mgvABI    abi.ABI
	readerABI abi.ABI
	kandelABI abi.ABI
	seederABI abi.ABI
	erc20ABI  abi.ABI

	log *logrus.Entry
}

// NewClient dials the RPC endpoint and parses the contract ABIs.
func NewClient(opts Options) (*Client, error) {
	eth, err := ethclient.Dial(opts.RPCURL)
	if err != nil {
		return nil, errors.Wrap(err, "dial rpc")
	}
	c := &Client{
		eth:        eth,
		chainID:    big.NewInt(opts.ChainID),
		privateKey: opts.PrivateKey,
		mangrove:   opts.Mangrove,
		reader:     opts.Reader,
		seeder:     opts.Seeder,
		market:     opts.Market,
		log:        logger.WithField("component", "chain"),
	}
	for _, p := range []struct {
		dst *abi.ABI
		src string
	}{
		{&c.mgvABI, MangroveABI},
		{&c.readerABI, ReaderABI},
		{&c.kandelABI, KandelABI},
		{&c.seederABI, SeederABI},
		{&c.erc20ABI, ERC20ABI},
	} {
		parsed, err := abi.JSON(strings.NewReader(p.src))
		if err != nil {
			return nil, errors.Wrap(err, "parse abi")
		}
		*p.dst = parsed
	}
	return c, nil
}

// Market returns the pair the client was configured for.
func (c *Client) MarketInfo() Market { return c.market }

// Sender returns the transaction-signing address.
func (c *Client) Sender() common.Address {
	return crypto.PubkeyToAddress(c.privateKey.PublicKey)
}

// call runs a read-only contract call and unpacks the result into out.
func (c *Client) call(ctx context.Context, to common.Address, contractABI abi.ABI, method string, out interface{}, args ...interface{}) error {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return errors.Wrapf(err, "pack %s", method)
	}
	result, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return errors.Wrapf(err, "call %s", method)
	}
	if err := contractABI.UnpackIntoInterface(out, method, result); err != nil {
		return errors.Wrapf(err, "unpack %s", method)
	}
	return nil
}

// transact signs and sends a state-changing call, then waits for the receipt.
func (c *Client) transact(ctx context.Context, to common.Address, data []byte, value *big.Int) (*ethtypes.Receipt, error) {
	from := c.Sender()
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, errors.Wrap(err, "get nonce")
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "suggest gas price")
	}
	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Data:  data,
		Value: value,
	})
	if err != nil {
		return nil, errors.Wrap(err, "estimate gas")
	}

	tx := ethtypes.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(c.chainID), c.privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "sign transaction")
	}
	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		return nil, errors.Wrap(err, "send transaction")
	}
	c.log.WithField("tx", signedTx.Hash().Hex()).Debug("transaction sent")

	receipt, err := c.waitMined(ctx, signedTx.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return receipt, errors.Errorf("transaction %s reverted", signedTx.Hash().Hex())
	}
	return receipt, nil
}

// waitMined polls for the receipt until the context expires.
func (c *Client) waitMined(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, errors.Wrap(err, "get receipt")
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "waiting for %s", txHash.Hex())
		case <-ticker.C:
		}
	}
}
