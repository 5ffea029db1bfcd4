package core

import (
	"errors"
	"sync"
	"time"

	json "github.com/nspcc-dev/go-ordered-json"
	"go.uber.org/zap"

	"github.com/ssc-dev/ssc-go/pkg/config"
	"github.com/ssc-dev/ssc-go/pkg/core/block"
	"github.com/ssc-dev/ssc-go/pkg/core/execution"
	"github.com/ssc-dev/ssc-go/pkg/core/state"
	"github.com/ssc-dev/ssc-go/pkg/core/storage"
	"github.com/ssc-dev/ssc-go/pkg/core/transaction"
	"github.com/ssc-dev/ssc-go/pkg/vm"
)

// Blockchain is the single owner of the chain and its in-memory state. The
// core is synchronous: block production drains the pending queue one
// transaction at a time, so the lock only guards the read surface against
// concurrent observers.
type Blockchain struct {
	lock sync.RWMutex

	cfg      config.Chain
	store    *storage.MemoryStore
	executor *execution.Executor

	blocks  []*block.Block
	pending []*transaction.Transaction

	log *zap.Logger
}

// NewBlockchain returns a Blockchain with a fresh state store and the
// genesis block produced.
func NewBlockchain(cfg config.Chain, log *zap.Logger) (*Blockchain, error) {
	if log == nil {
		return nil, errors.New("empty logger")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.GenesisTimestamp == "" {
		cfg.GenesisTimestamp = config.DefaultGenesisTimestamp
	}
	if cfg.ExecutionTimeout == 0 {
		cfg.ExecutionTimeout = config.DefaultExecutionTimeout
	}
	if cfg.ContractCacheSize == 0 {
		cfg.ContractCacheSize = config.DefaultContractCacheSize
	}

	bc := &Blockchain{
		cfg: cfg,
		log: log,
	}
	if err := bc.reset(); err != nil {
		return nil, err
	}

	genesis := genesisBlock(cfg.GenesisTimestamp)
	genesis.Produce(bc.executor)
	bc.blocks = []*block.Block{genesis}

	updateBlockHeightMetric(0)
	log.Info("blockchain initialized",
		zap.String("genesisHash", genesis.Hash))
	return bc, nil
}

// reset replaces the state store and executor with fresh ones holding only
// the reserved contracts collection.
func (bc *Blockchain) reset() error {
	store := storage.NewMemoryStore()
	box := vm.New(time.Duration(bc.cfg.ExecutionTimeout)*time.Millisecond, bc.log)
	executor, err := execution.New(store, box, bc.cfg.ContractCacheSize, bc.log)
	if err != nil {
		return err
	}
	bc.store = store
	bc.executor = executor
	return nil
}

// CreateTransaction appends a transaction to the pending queue. No
// validation happens here; a malformed transaction fails softly during
// production.
func (bc *Blockchain) CreateTransaction(tx *transaction.Transaction) {
	bc.lock.Lock()
	defer bc.lock.Unlock()
	bc.pending = append(bc.pending, tx)
	updatePendingTxMetric(len(bc.pending))
}

// PendingTransactions returns the current pending queue.
func (bc *Blockchain) PendingTransactions() []*transaction.Transaction {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return bc.pending
}

// ProducePendingTransactions builds a block over the snapshot of the pending
// queue, executes it on top of the latest block and appends it to the chain.
// The queue is drained even when every transaction fails: failures occupy
// their slot and contribute to the block hash.
func (bc *Blockchain) ProducePendingTransactions(timestamp string) *block.Block {
	bc.lock.Lock()
	defer bc.lock.Unlock()

	txs := bc.pending
	bc.pending = nil

	prev := bc.blocks[len(bc.blocks)-1]
	b := block.New(prev.BlockNumber+1, prev.Hash, timestamp, txs)
	b.Produce(bc.executor)
	bc.blocks = append(bc.blocks, b)

	updateBlockHeightMetric(b.BlockNumber)
	updatePendingTxMetric(0)
	addExecutedTxMetric(len(b.Transactions))
	bc.log.Info("block produced",
		zap.Int64("blockNumber", b.BlockNumber),
		zap.Int("transactions", len(b.Transactions)),
		zap.String("hash", b.Hash))
	return b
}

// IsChainValid verifies the whole chain: every non-genesis block must carry
// a merkle root matching its transactions, a hash matching its current
// contents (logs included) and a previousHash equal to the predecessor's
// stored hash.
func (bc *Blockchain) IsChainValid() bool {
	bc.lock.RLock()
	defer bc.lock.RUnlock()

	for i := 1; i < len(bc.blocks); i++ {
		b, prev := bc.blocks[i], bc.blocks[i-1]
		if b.MerkleRoot != b.ComputeMerkleRoot() {
			bc.log.Warn("merkle root mismatch", zap.Int64("blockNumber", b.BlockNumber))
			return false
		}
		if b.Hash != b.ComputeHash() {
			bc.log.Warn("block hash mismatch", zap.Int64("blockNumber", b.BlockNumber))
			return false
		}
		if b.PreviousHash != prev.Hash {
			bc.log.Warn("chain linkage broken", zap.Int64("blockNumber", b.BlockNumber))
			return false
		}
	}
	return true
}

// ReplayBlockchain resets the state store to one holding only the reserved
// contracts collection and re-produces every block in order, genesis
// included. Logs, hashes and merkle roots are overwritten in place; a
// correctly stored chain is a fixed point.
func (bc *Blockchain) ReplayBlockchain() error {
	bc.lock.Lock()
	defer bc.lock.Unlock()

	if err := bc.reset(); err != nil {
		return err
	}
	for _, b := range bc.blocks {
		b.Produce(bc.executor)
	}
	bc.log.Info("blockchain replayed", zap.Int("blocks", len(bc.blocks)))
	return nil
}

// BlockCount returns the length of the chain.
func (bc *Blockchain) BlockCount() int {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return len(bc.blocks)
}

// GetBlockInfo returns the block with the given number or nil when the
// number is out of range.
func (bc *Blockchain) GetBlockInfo(n int64) *block.Block {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	if n < 0 || n >= int64(len(bc.blocks)) {
		return nil
	}
	return bc.blocks[n]
}

// GetLatestBlockInfo returns the most recently appended block.
func (bc *Blockchain) GetLatestBlockInfo() *block.Block {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return bc.blocks[len(bc.blocks)-1]
}

// GetContract returns the registry entry of the named contract, nil when it
// doesn't exist.
func (bc *Blockchain) GetContract(name string) (*state.Contract, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return bc.executor.Registry().Get(name)
}

// FindInTable queries a contract's table by equality on fields. Results are
// live documents and must be treated as read-only.
func (bc *Blockchain) FindInTable(contract, table string, query storage.Query) []json.OrderedObject {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	col := bc.store.GetCollection(contract + "_" + table)
	if col == nil {
		return nil
	}
	return col.Find(query)
}

// FindOneInTable returns the first document of a contract's table matching
// the query, nil when nothing matches.
func (bc *Blockchain) FindOneInTable(contract, table string, query storage.Query) json.OrderedObject {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	col := bc.store.GetCollection(contract + "_" + table)
	if col == nil {
		return nil
	}
	return col.FindOne(query)
}

// DumpState serialises the complete state store into a canonical byte
// snapshot.
func (bc *Blockchain) DumpState() ([]byte, error) {
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return bc.store.Dump()
}
