package block

import (
	json "github.com/nspcc-dev/go-ordered-json"

	"github.com/ssc-dev/ssc-go/pkg/core/transaction"
	"github.com/ssc-dev/ssc-go/pkg/crypto/hash"
)

// Executor runs a single transaction and returns its serialised logs.
type Executor interface {
	Execute(tx *transaction.Transaction) string
}

// Block represents one block in the chain: an ordered batch of transactions
// plus the hashes chaining it to its predecessor. A block is never mutated
// after being appended; replay rewrites logs, hash and merkle root in place
// and a correctly stored block is a fixed point of that.
type Block struct {
	// BlockNumber is the predecessor's number plus one (genesis is 0).
	BlockNumber int64 `json:"blockNumber"`

	// PreviousHash is the predecessor's hash ("0" for genesis).
	PreviousHash string `json:"previousHash"`

	// Timestamp is the opaque timestamp string supplied by the producer.
	Timestamp string `json:"timestamp"`

	// Transactions is the ordered transaction batch.
	Transactions []*transaction.Transaction `json:"transactions"`

	// Hash chains content and predecessor linkage. It is computed after
	// all transactions have executed, so logs participate.
	Hash string `json:"hash"`

	// MerkleRoot is the pairwise-hash reduction over transaction hashes.
	MerkleRoot string `json:"merkleRoot"`
}

// New creates a block over the given transactions. Hash and merkle root are
// left for Produce.
func New(number int64, previousHash, timestamp string, txs []*transaction.Transaction) *Block {
	if txs == nil {
		txs = make([]*transaction.Transaction, 0)
	}
	return &Block{
		BlockNumber:  number,
		PreviousHash: previousHash,
		Timestamp:    timestamp,
		Transactions: txs,
	}
}

// Produce runs every transaction in queue order, attaching the returned logs,
// then finalises the block hash and merkle root. Later transactions observe
// state mutations made by earlier ones.
func (b *Block) Produce(e Executor) {
	for _, tx := range b.Transactions {
		tx.AddLogs(e.Execute(tx))
	}
	b.Hash = b.ComputeHash()
	b.RebuildMerkleRoot()
}

// ComputeHash computes the block hash over the predecessor hash, the
// timestamp and the serialised transactions (logs included).
func (b *Block) ComputeHash() string {
	data, err := json.Marshal(b.Transactions)
	if err != nil {
		// Transactions are flat string records; this cannot fail.
		return ""
	}
	return hash.Sha256Hex(b.PreviousHash, b.Timestamp, string(data))
}

// ComputeMerkleRoot computes the merkle root based on actual block's data.
func (b *Block) ComputeMerkleRoot() string {
	hashes := make([]string, len(b.Transactions))
	for i, tx := range b.Transactions {
		hashes[i] = tx.Hash
	}
	return hash.CalcMerkleRoot(hashes)
}

// RebuildMerkleRoot rebuilds the merkle root of the block.
func (b *Block) RebuildMerkleRoot() {
	b.MerkleRoot = b.ComputeMerkleRoot()
}
