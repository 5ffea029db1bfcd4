package block

import (
	"testing"

	json "github.com/nspcc-dev/go-ordered-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssc-dev/ssc-go/pkg/core/transaction"
	"github.com/ssc-dev/ssc-go/pkg/crypto/hash"
)

// countingExecutor records the order in which transactions are executed and
// returns an empty events record for each.
type countingExecutor struct {
	order []string
}

func (e *countingExecutor) Execute(tx *transaction.Transaction) string {
	e.order = append(e.order, tx.TransactionID)
	return `{"events":[]}`
}

func TestNewEmptyBlock(t *testing.T) {
	b := New(0, "0", "2018-06-01T00:00:00", nil)
	require.NotNil(t, b.Transactions)
	b.Produce(&countingExecutor{})

	data, err := json.Marshal(b.Transactions)
	require.NoError(t, err)
	// A nil batch normalises to an empty array, never JSON null.
	assert.Equal(t, "[]", string(data))
	assert.Equal(t, hash.Sha256Hex("0", "2018-06-01T00:00:00", "[]"), b.Hash)
	assert.Equal(t, "", b.MerkleRoot)
}

func TestProduceExecutesInOrder(t *testing.T) {
	txs := []*transaction.Transaction{
		transaction.New(1, "tx1", "alice", "tok", "mint", "{}"),
		transaction.New(1, "tx2", "bob", "tok", "mint", "{}"),
		transaction.New(1, "tx3", "carol", "tok", "mint", "{}"),
	}
	b := New(1, "prev", "ts", txs)

	e := &countingExecutor{}
	b.Produce(e)
	assert.Equal(t, []string{"tx1", "tx2", "tx3"}, e.order)
	for _, tx := range txs {
		assert.Equal(t, `{"events":[]}`, tx.Logs)
	}
}

func TestProduceHashIncludesLogs(t *testing.T) {
	build := func() *Block {
		return New(1, "prev", "ts", []*transaction.Transaction{
			transaction.New(1, "tx1", "alice", "tok", "mint", "{}"),
		})
	}

	b1 := build()
	b1.Produce(&countingExecutor{})

	b2 := build()
	b2.Produce(&countingExecutor{})
	require.Equal(t, b1.Hash, b2.Hash)

	// Changing recorded logs changes the block hash but not the root.
	b2.Transactions[0].AddLogs(`{"error":"contract doesn't exist"}`)
	assert.NotEqual(t, b1.Hash, b2.ComputeHash())
	assert.Equal(t, b1.MerkleRoot, b2.ComputeMerkleRoot())
}

func TestMerkleRootFromTransactionHashes(t *testing.T) {
	txs := []*transaction.Transaction{
		transaction.New(1, "tx1", "alice", "tok", "mint", "{}"),
		transaction.New(1, "tx2", "bob", "tok", "mint", "{}"),
		transaction.New(1, "tx3", "carol", "tok", "mint", "{}"),
	}
	b := New(1, "prev", "ts", txs)
	b.Produce(&countingExecutor{})

	expected := hash.CalcMerkleRoot([]string{txs[0].Hash, txs[1].Hash, txs[2].Hash})
	assert.Equal(t, expected, b.MerkleRoot)

	single := New(2, b.Hash, "ts", []*transaction.Transaction{txs[0]})
	single.Produce(&countingExecutor{})
	assert.Equal(t, txs[0].Hash, single.MerkleRoot)
}

func TestProduceIsIdempotent(t *testing.T) {
	b := New(1, "prev", "ts", []*transaction.Transaction{
		transaction.New(1, "tx1", "alice", "tok", "mint", "{}"),
	})
	b.Produce(&countingExecutor{})
	h, root := b.Hash, b.MerkleRoot

	// Re-producing with the same executor output must be a fixed point.
	b.Produce(&countingExecutor{})
	assert.Equal(t, h, b.Hash)
	assert.Equal(t, root, b.MerkleRoot)
}
