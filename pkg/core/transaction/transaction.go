package transaction

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/ssc-dev/ssc-go/pkg/crypto/hash"
)

// nullLiteral substitutes absent fields in the content hash preimage.
const nullLiteral = "null"

// Transaction is a single unit of work submitted to the chain: either a
// contract deployment or an action invocation. The record is immutable after
// construction except for Logs, which the executor attaches during block
// production (and overwrites on replay).
//
// Absent string fields are represented by the empty string; meaningful
// values are required to be non-empty, so the encoding is lossless.
type Transaction struct {
	// RefBlockNumber is the block this transaction targets. It is carried
	// into the content hash but never validated.
	RefBlockNumber int64 `json:"refBlockNumber"`

	// TransactionID is an opaque identifier unique within a block.
	TransactionID string `json:"transactionId"`

	// Sender is the opaque account identifier of the submitter.
	Sender string `json:"sender"`

	// Contract and Action name the invocation target.
	Contract string `json:"contract"`
	Action   string `json:"action"`

	// Payload carries JSON-encoded parameters.
	Payload string `json:"payload"`

	// Hash is the content hash, computed once at construction.
	Hash string `json:"hash"`

	// Logs holds the JSON-serialised execution record: either the emitted
	// events or an error.
	Logs string `json:"logs"`
}

// New creates a transaction and computes its content hash.
func New(refBlockNumber int64, id, sender, contract, action, payload string) *Transaction {
	t := &Transaction{
		RefBlockNumber: refBlockNumber,
		TransactionID:  id,
		Sender:         sender,
		Contract:       contract,
		Action:         action,
		Payload:        payload,
	}
	t.Hash = t.CalculateHash()
	return t
}

// CalculateHash computes the content hash over the concatenation of every
// field set at construction, substituting the literal "null" for absent
// ones. Logs never participate, so the hash is stable from construction
// through replay.
func (t *Transaction) CalculateHash() string {
	return hash.Sha256Hex(
		strconv.FormatInt(t.RefBlockNumber, 10),
		nullable(t.TransactionID),
		nullable(t.Sender),
		nullable(t.Contract),
		nullable(t.Action),
		nullable(t.Payload),
	)
}

// AddLogs attaches the execution record. It is the only permitted mutation
// and is called by the executor during block production.
func (t *Transaction) AddLogs(logs string) {
	t.Logs = logs
}

// RandomID returns a fresh transaction identifier.
func RandomID() string {
	return uuid.NewString()
}

func nullable(s string) string {
	if s == "" {
		return nullLiteral
	}
	return s
}
