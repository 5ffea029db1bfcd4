package core

import (
	"github.com/ssc-dev/ssc-go/pkg/core/block"
)

// genesisPreviousHash is the previousHash literal of block 0.
const genesisPreviousHash = "0"

// genesisBlock creates block 0. It carries no transactions; its hash is
// produced the same way as any other block's.
func genesisBlock(timestamp string) *block.Block {
	return block.New(0, genesisPreviousHash, timestamp, nil)
}
