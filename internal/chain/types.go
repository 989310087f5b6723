// Package chain fetches blocks, transactions and receipts through a client
// and decodes them into typed values.
package chain

import (
	"bytes"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BlockTag names a block relative to the chain head.
type BlockTag string

const (
	BlockTagLatest    BlockTag = "latest"
	BlockTagEarliest  BlockTag = "earliest"
	BlockTagPending   BlockTag = "pending"
	BlockTagSafe      BlockTag = "safe"
	BlockTagFinalized BlockTag = "finalized"
)

// Transaction is a transaction as returned by eth_getTransactionByHash or
// inside a block fetched with full transactions.
type Transaction struct {
	Hash                 common.Hash     `json:"hash"`
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to"` // nil for contract creation
	Nonce                hexutil.Uint64  `json:"nonce"`
	Value                *hexutil.Big    `json:"value"`
	Gas                  hexutil.Uint64  `json:"gas"`
	GasPrice             *hexutil.Big    `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
	Input                hexutil.Bytes   `json:"input"`
	Type                 hexutil.Uint64  `json:"type"`
	BlockHash            *common.Hash    `json:"blockHash"`   // nil while pending
	BlockNumber          *hexutil.Big    `json:"blockNumber"` // nil while pending
}

// Receipt is the result of eth_getTransactionReceipt.
type Receipt struct {
	TransactionHash   common.Hash     `json:"transactionHash"`
	TransactionIndex  hexutil.Uint    `json:"transactionIndex"`
	BlockHash         common.Hash     `json:"blockHash"`
	BlockNumber       *hexutil.Big    `json:"blockNumber"`
	From              common.Address  `json:"from"`
	To                *common.Address `json:"to"`
	ContractAddress   *common.Address `json:"contractAddress"`
	Status            hexutil.Uint64  `json:"status"`
	GasUsed           hexutil.Uint64  `json:"gasUsed"`
	CumulativeGasUsed hexutil.Uint64  `json:"cumulativeGasUsed"`
	EffectiveGasPrice *hexutil.Big    `json:"effectiveGasPrice,omitempty"`
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r.Status == 1
}

// Block is a block header plus its transactions. Depending on how the block
// was fetched either Transactions or TransactionHashes is populated.
type Block struct {
	Number            *hexutil.Big   `json:"number"` // nil for the pending block
	Hash              *common.Hash   `json:"hash"`
	ParentHash        common.Hash    `json:"parentHash"`
	Timestamp         hexutil.Uint64 `json:"timestamp"`
	GasLimit          hexutil.Uint64 `json:"gasLimit"`
	GasUsed           hexutil.Uint64 `json:"gasUsed"`
	BaseFeePerGas     *hexutil.Big   `json:"baseFeePerGas,omitempty"`
	Transactions      []Transaction  `json:"-"`
	TransactionHashes []common.Hash  `json:"-"`
}

// BlockNumber returns the block number, or nil for a pending block.
func (b *Block) BlockNumber() *big.Int {
	if b == nil || b.Number == nil {
		return nil
	}
	return b.Number.ToInt()
}

// UnmarshalJSON decodes transactions given either as hashes or as objects.
func (b *Block) UnmarshalJSON(data []byte) error {
	type header Block
	var raw struct {
		header
		Transactions []json.RawMessage `json:"transactions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*b = Block(raw.header)
	b.Transactions = nil
	b.TransactionHashes = nil

	for _, item := range raw.Transactions {
		if bytes.HasPrefix(bytes.TrimSpace(item), []byte(`"`)) {
			var hash common.Hash
			if err := json.Unmarshal(item, &hash); err != nil {
				return err
			}
			b.TransactionHashes = append(b.TransactionHashes, hash)
			continue
		}

		var tx Transaction
		if err := json.Unmarshal(item, &tx); err != nil {
			return err
		}
		b.Transactions = append(b.Transactions, tx)
		b.TransactionHashes = append(b.TransactionHashes, tx.Hash)
	}

	return nil
}
