package core

import (
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ssc-dev/ssc-go/pkg/config"
	"github.com/ssc-dev/ssc-go/pkg/core/storage"
	"github.com/ssc-dev/ssc-go/pkg/core/transaction"
)

func newTestChain(t *testing.T) *Blockchain {
	bc, err := NewBlockchain(config.Chain{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return bc
}

const tokenSource = `actions.mint = (p) => {
    const t = db.createTable('bal');
    t.insert({a: p.a, v: p.v});
    emit('m', p);
};`

func tokenDeployTx(id string) *transaction.Transaction {
	payload := fmt.Sprintf(`{"name":"tok","params":null,"code":"%s"}`,
		base64.StdEncoding.EncodeToString([]byte(tokenSource)))
	return transaction.New(1, id, "alice", "contract", "deploy", payload)
}

// produceTokenChain plays the deploy-then-mint scenario into a single block.
func produceTokenChain(t *testing.T) *Blockchain {
	bc := newTestChain(t)
	bc.CreateTransaction(tokenDeployTx("tx1"))
	bc.CreateTransaction(transaction.New(1, "tx2", "alice", "tok", "mint", `{"a":"bob","v":10}`))
	bc.ProducePendingTransactions("2018-06-02T00:00:00")
	return bc
}

func TestGenesis(t *testing.T) {
	bc := newTestChain(t)

	require.Equal(t, 1, bc.BlockCount())
	genesis := bc.GetBlockInfo(0)
	require.NotNil(t, genesis)
	assert.EqualValues(t, 0, genesis.BlockNumber)
	assert.Equal(t, "0", genesis.PreviousHash)
	assert.Equal(t, config.DefaultGenesisTimestamp, genesis.Timestamp)
	assert.Empty(t, genesis.Transactions)
	assert.NotEmpty(t, genesis.Hash)
	assert.Equal(t, "", genesis.MerkleRoot)
	assert.Empty(t, bc.PendingTransactions())

	dump, err := bc.DumpState()
	require.NoError(t, err)
	assert.Equal(t, `{"contracts":[]}`, string(dump))
}

func TestNewBlockchainRequiresLogger(t *testing.T) {
	_, err := NewBlockchain(config.Chain{}, nil)
	require.Error(t, err)
}

func TestDeployAndInvoke(t *testing.T) {
	bc := produceTokenChain(t)

	require.Equal(t, 2, bc.BlockCount())
	b := bc.GetLatestBlockInfo()
	require.Len(t, b.Transactions, 2)
	assert.EqualValues(t, 1, b.BlockNumber)
	assert.Equal(t, bc.GetBlockInfo(0).Hash, b.PreviousHash)
	assert.Empty(t, bc.PendingTransactions())

	assert.Equal(t, `{"events":[]}`, b.Transactions[0].Logs)
	assert.Equal(t, `{"events":[{"event":"m","data":{"a":"bob","v":10}}]}`, b.Transactions[1].Logs)

	rows := bc.FindInTable("tok", "bal", storage.Query{"a": "bob"})
	require.Len(t, rows, 1)
	row := bc.FindOneInTable("tok", "bal", storage.Query{"a": "bob"})
	require.NotNil(t, row)

	cs, err := bc.GetContract("tok")
	require.NoError(t, err)
	require.NotNil(t, cs)
	assert.Equal(t, "alice", cs.Owner)

	assert.True(t, bc.IsChainValid())
}

func TestDuplicateDeploySameBlock(t *testing.T) {
	bc := newTestChain(t)
	bc.CreateTransaction(tokenDeployTx("tx1"))
	bc.CreateTransaction(tokenDeployTx("tx2"))
	b := bc.ProducePendingTransactions("2018-06-02T00:00:00")

	assert.Equal(t, `{"events":[]}`, b.Transactions[0].Logs)
	assert.Equal(t, `{"error":"contract already exists"}`, b.Transactions[1].Logs)

	// The first deployment survives.
	cs, err := bc.GetContract("tok")
	require.NoError(t, err)
	require.NotNil(t, cs)
	assert.Equal(t, "alice", cs.Owner)
	assert.True(t, bc.IsChainValid())
}

func TestReservedAction(t *testing.T) {
	bc := produceTokenChain(t)
	before, err := bc.DumpState()
	require.NoError(t, err)

	bc.CreateTransaction(transaction.New(2, "tx3", "x", "tok", "create", ""))
	b := bc.ProducePendingTransactions("2018-06-03T00:00:00")

	assert.Equal(t, `{"error":"you cannot trigger the create action"}`, b.Transactions[0].Logs)
	after, err := bc.DumpState()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.True(t, bc.IsChainValid())
}

func TestFailingTxStillOccupiesSlot(t *testing.T) {
	bc := newTestChain(t)
	bc.CreateTransaction(transaction.New(1, "tx1", "alice", "ghost", "go", ""))
	b := bc.ProducePendingTransactions("2018-06-02T00:00:00")

	require.Len(t, b.Transactions, 1)
	assert.Equal(t, `{"error":"contract doesn't exist"}`, b.Transactions[0].Logs)
	assert.True(t, bc.IsChainValid())
}

func TestReplayEquivalence(t *testing.T) {
	bc := produceTokenChain(t)
	bc.CreateTransaction(transaction.New(2, "tx3", "alice", "tok", "mint", `{"a":"carol","v":3}`))
	bc.ProducePendingTransactions("2018-06-03T00:00:00")

	type snapshot struct {
		hash, merkle string
		logs         []string
	}
	var snaps []snapshot
	for i := 0; i < bc.BlockCount(); i++ {
		b := bc.GetBlockInfo(int64(i))
		s := snapshot{hash: b.Hash, merkle: b.MerkleRoot}
		for _, tx := range b.Transactions {
			s.logs = append(s.logs, tx.Logs)
		}
		snaps = append(snaps, s)
	}
	stateBefore, err := bc.DumpState()
	require.NoError(t, err)

	require.NoError(t, bc.ReplayBlockchain())

	for i := 0; i < bc.BlockCount(); i++ {
		b := bc.GetBlockInfo(int64(i))
		assert.Equal(t, snaps[i].hash, b.Hash, "block %d hash", i)
		assert.Equal(t, snaps[i].merkle, b.MerkleRoot, "block %d merkle", i)
		for j, tx := range b.Transactions {
			assert.Equal(t, snaps[i].logs[j], tx.Logs, "block %d tx %d logs", i, j)
		}
	}
	stateAfter, err := bc.DumpState()
	require.NoError(t, err)
	assert.Equal(t, stateBefore, stateAfter)
	assert.True(t, bc.IsChainValid())
}

func TestDeterminism(t *testing.T) {
	bc1 := produceTokenChain(t)
	bc2 := produceTokenChain(t)

	require.Equal(t, bc1.BlockCount(), bc2.BlockCount())
	for i := 0; i < bc1.BlockCount(); i++ {
		b1, b2 := bc1.GetBlockInfo(int64(i)), bc2.GetBlockInfo(int64(i))
		assert.Equal(t, b1.Hash, b2.Hash)
		assert.Equal(t, b1.MerkleRoot, b2.MerkleRoot)
	}
	d1, err := bc1.DumpState()
	require.NoError(t, err)
	d2, err := bc2.DumpState()
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestTamperDetection(t *testing.T) {
	t.Run("payload", func(t *testing.T) {
		bc := produceTokenChain(t)
		bc.GetBlockInfo(1).Transactions[1].Payload = `{"a":"eve","v":1000000}`
		assert.False(t, bc.IsChainValid())
	})
	t.Run("logs", func(t *testing.T) {
		bc := produceTokenChain(t)
		bc.GetBlockInfo(1).Transactions[1].AddLogs(`{"events":[]}`)
		assert.False(t, bc.IsChainValid())
	})
	t.Run("transaction hash", func(t *testing.T) {
		bc := produceTokenChain(t)
		bc.GetBlockInfo(1).Transactions[0].Hash = "0000"
		assert.False(t, bc.IsChainValid())
	})
	t.Run("timestamp", func(t *testing.T) {
		bc := produceTokenChain(t)
		bc.GetBlockInfo(1).Timestamp = "2020-01-01T00:00:00"
		assert.False(t, bc.IsChainValid())
	})
	t.Run("genesis hash", func(t *testing.T) {
		bc := produceTokenChain(t)
		bc.GetBlockInfo(0).Hash = "0000"
		assert.False(t, bc.IsChainValid())
	})
	t.Run("block hash", func(t *testing.T) {
		bc := produceTokenChain(t)
		bc.GetBlockInfo(1).Hash = "0000"
		assert.False(t, bc.IsChainValid())
	})
}

func TestChainLinkage(t *testing.T) {
	bc := produceTokenChain(t)
	bc.CreateTransaction(transaction.New(2, "tx3", "alice", "tok", "mint", `{"a":"dave","v":1}`))
	bc.ProducePendingTransactions("2018-06-03T00:00:00")

	require.Equal(t, 3, bc.BlockCount())
	for i := 1; i < bc.BlockCount(); i++ {
		assert.Equal(t, bc.GetBlockInfo(int64(i-1)).Hash, bc.GetBlockInfo(int64(i)).PreviousHash)
		assert.Equal(t, bc.GetBlockInfo(int64(i-1)).BlockNumber+1, bc.GetBlockInfo(int64(i)).BlockNumber)
	}
}

func TestGetBlockInfoOutOfRange(t *testing.T) {
	bc := newTestChain(t)
	assert.Nil(t, bc.GetBlockInfo(-1))
	assert.Nil(t, bc.GetBlockInfo(1))
	assert.NotNil(t, bc.GetBlockInfo(0))
	assert.Equal(t, bc.GetBlockInfo(0), bc.GetLatestBlockInfo())
}

func TestProduceEmptyBlock(t *testing.T) {
	bc := newTestChain(t)
	b := bc.ProducePendingTransactions("2018-06-02T00:00:00")

	assert.EqualValues(t, 1, b.BlockNumber)
	assert.Empty(t, b.Transactions)
	assert.Equal(t, "", b.MerkleRoot)
	assert.True(t, bc.IsChainValid())
}
