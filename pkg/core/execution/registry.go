package execution

import (
	"errors"

	json "github.com/nspcc-dev/go-ordered-json"

	"github.com/ssc-dev/ssc-go/pkg/core/state"
	"github.com/ssc-dev/ssc-go/pkg/core/storage"
)

// ContractsCollection is the reserved collection holding registry entries.
const ContractsCollection = "contracts"

// ErrContractExists is returned on an attempt to register a name twice.
var ErrContractExists = errors.New("contract already exists")

// Registry persists contract metadata in the reserved collection. Deployment
// is one-shot: entries are inserted once and only their tables set may grow
// afterwards.
type Registry struct {
	contracts *storage.Collection
}

// NewRegistry returns a Registry over the given store, creating the reserved
// collection if needed.
func NewRegistry(store *storage.MemoryStore) *Registry {
	return &Registry{contracts: store.AddCollection(ContractsCollection)}
}

// Get looks a contract up by name. A missing contract is (nil, nil).
func (r *Registry) Get(name string) (*state.Contract, error) {
	doc := r.contracts.FindOne(storage.Query{"name": name})
	if doc == nil {
		return nil, nil
	}
	return state.ContractFromDocument(doc)
}

// Add registers a new contract.
func (r *Registry) Add(c *state.Contract) error {
	if r.contracts.FindOne(storage.Query{"name": c.Name}) != nil {
		return ErrContractExists
	}
	doc, err := c.ToDocument()
	if err != nil {
		return err
	}
	r.contracts.Insert(doc)
	return nil
}

// Update persists the contract's current tables set. Name, owner and code
// are immutable, so the whole entry is rewritten from the given state under
// the stored document id.
func (r *Registry) Update(c *state.Contract) error {
	stored := r.contracts.FindOne(storage.Query{"name": c.Name})
	if stored == nil {
		return errors.New("contract doesn't exist")
	}
	doc, err := c.ToDocument()
	if err != nil {
		return err
	}
	for _, m := range stored {
		if m.Key == "_id" {
			doc = append(doc, json.Member{Key: m.Key, Value: m.Value})
			break
		}
	}
	return r.contracts.Update(doc)
}
