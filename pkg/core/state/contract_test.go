package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableName(t *testing.T) {
	c := &Contract{Name: "tok"}
	assert.Equal(t, "tok_bal", c.TableName("bal"))
}

func TestTables(t *testing.T) {
	c := &Contract{Name: "tok"}
	require.False(t, c.HasTable("tok_bal"))
	require.True(t, c.AddTable("tok_bal"))
	require.True(t, c.HasTable("tok_bal"))
	require.False(t, c.AddTable("tok_bal"))
	assert.Equal(t, []string{"tok_bal"}, c.Tables)
}

func TestDocumentRoundTrip(t *testing.T) {
	c := &Contract{
		Name:   "tok",
		Owner:  "alice",
		Code:   "var actions = {};",
		Tables: []string{"tok_bal", "tok_meta"},
	}

	doc, err := c.ToDocument()
	require.NoError(t, err)

	got, err := ContractFromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}
