package state

import (
	json "github.com/nspcc-dev/go-ordered-json"

	"github.com/ssc-dev/ssc-go/pkg/core/storage"
)

// Contract is a registry entry for a deployed contract. Name and Owner are
// fixed at deploy time and Code holds the wrapped dispatch source; only the
// Tables set grows as the contract creates tables.
type Contract struct {
	Name   string   `json:"name"`
	Owner  string   `json:"owner"`
	Code   string   `json:"code"`
	Tables []string `json:"tables"`
}

// TableName returns the fully-qualified name of a logical table of this
// contract. The prefix is what makes table ownership structural: a contract
// can only ever mint names under its own prefix.
func (c *Contract) TableName(logical string) string {
	return c.Name + "_" + logical
}

// HasTable reports whether the fully-qualified table name is owned by this
// contract.
func (c *Contract) HasTable(fq string) bool {
	for _, t := range c.Tables {
		if t == fq {
			return true
		}
	}
	return false
}

// AddTable records ownership of the fully-qualified table name. It returns
// false if the table was already recorded.
func (c *Contract) AddTable(fq string) bool {
	if c.HasTable(fq) {
		return false
	}
	c.Tables = append(c.Tables, fq)
	return true
}

// ToDocument converts the entry into a store document.
func (c *Contract) ToDocument() (json.OrderedObject, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	v, err := storage.UnmarshalOrdered(data)
	if err != nil {
		return nil, err
	}
	return v.(json.OrderedObject), nil
}

// ContractFromDocument decodes a registry entry from a store document.
func ContractFromDocument(doc json.OrderedObject) (*Contract, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	c := new(Contract)
	if err := json.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}
