package storage

import (
	"bytes"
	"errors"
	"strconv"
	"sync"

	json "github.com/nspcc-dev/go-ordered-json"
)

// Query is an equality-on-fields predicate: a document matches when every
// listed field is present and equal to the given value. An empty query
// matches every document.
type Query map[string]interface{}

// ErrNoID is returned by Update when the document carries no _id member.
var ErrNoID = errors.New("document has no _id")

// idKey is the name of the member holding the per-collection document id
// assigned on insert.
const idKey = "_id"

// Collection is a named list of documents. Documents are ordered-JSON
// objects, so member order survives every insert/find round trip and the
// store dump stays byte-stable across replays.
type Collection struct {
	mut    sync.RWMutex
	name   string
	nextID int64
	docs   []json.OrderedObject
}

func newCollection(name string) *Collection {
	return &Collection{
		name:   name,
		nextID: 1,
	}
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Insert appends the document, assigning the next _id unless the document
// already carries one, and returns the stored document.
func (c *Collection) Insert(doc json.OrderedObject) json.OrderedObject {
	c.mut.Lock()
	defer c.mut.Unlock()
	if member(doc, idKey) == nil {
		doc = append(doc, json.Member{
			Key:   idKey,
			Value: json.Number(strconv.FormatInt(c.nextID, 10)),
		})
	}
	c.nextID++
	c.docs = append(c.docs, doc)
	return doc
}

// Update replaces the document with the same _id. Documents that were never
// inserted are not updatable.
func (c *Collection) Update(doc json.OrderedObject) error {
	id := member(doc, idKey)
	if id == nil {
		return ErrNoID
	}
	c.mut.Lock()
	defer c.mut.Unlock()
	for i := range c.docs {
		if equalValues(member(c.docs[i], idKey), id) {
			c.docs[i] = doc
			return nil
		}
	}
	return errors.New("document not found in " + c.name)
}

// Find returns all documents matching the query in insertion order.
func (c *Collection) Find(q Query) []json.OrderedObject {
	c.mut.RLock()
	defer c.mut.RUnlock()
	res := make([]json.OrderedObject, 0)
	for _, doc := range c.docs {
		if matches(doc, q) {
			res = append(res, doc)
		}
	}
	return res
}

// FindOne returns the first document matching the query or nil.
func (c *Collection) FindOne(q Query) json.OrderedObject {
	c.mut.RLock()
	defer c.mut.RUnlock()
	for _, doc := range c.docs {
		if matches(doc, q) {
			return doc
		}
	}
	return nil
}

// All returns every document in insertion order.
func (c *Collection) All() []json.OrderedObject {
	return c.Find(nil)
}

// InsertJSON decodes the given JSON object, inserts it and returns the
// stored document (with its _id) serialised back. Passing documents through
// JSON text is also how the sandbox host keeps contract values decoupled
// from store state.
func (c *Collection) InsertJSON(doc string) (string, error) {
	obj, err := decodeObject(doc)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(c.Insert(obj))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UpdateJSON decodes the given JSON object and updates the stored document
// with the same _id.
func (c *Collection) UpdateJSON(doc string) error {
	obj, err := decodeObject(doc)
	if err != nil {
		return err
	}
	return c.Update(obj)
}

// FindJSON runs the JSON-encoded query and returns the matches as a JSON
// array.
func (c *Collection) FindJSON(query string) (string, error) {
	q, err := decodeQuery(query)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(c.Find(q))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FindOneJSON runs the JSON-encoded query and returns the first match, or
// the JSON literal null when nothing matches.
func (c *Collection) FindOneJSON(query string) (string, error) {
	q, err := decodeQuery(query)
	if err != nil {
		return "", err
	}
	doc := c.FindOne(q)
	if doc == nil {
		return "null", nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UnmarshalOrdered decodes JSON preserving object member order; objects
// become json.OrderedObject and numbers json.Number.
func UnmarshalOrdered(data []byte) (interface{}, error) {
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseOrderedObject()
	d.UseNumber()
	var v interface{}
	if err := d.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeObject(data string) (json.OrderedObject, error) {
	v, err := UnmarshalOrdered([]byte(data))
	if err != nil {
		return nil, err
	}
	obj, ok := v.(json.OrderedObject)
	if !ok {
		return nil, errors.New("document is not a JSON object")
	}
	return obj, nil
}

func decodeQuery(data string) (Query, error) {
	if data == "" {
		return nil, nil
	}
	obj, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	q := make(Query, len(obj))
	for _, m := range obj {
		q[m.Key] = m.Value
	}
	return q, nil
}

func member(doc json.OrderedObject, key string) interface{} {
	for _, m := range doc {
		if m.Key == key {
			return m.Value
		}
	}
	return nil
}

func matches(doc json.OrderedObject, q Query) bool {
	for key, want := range q {
		if !equalValues(member(doc, key), want) {
			return false
		}
	}
	return true
}

// equalValues compares two JSON-compatible values through their canonical
// serialisation, which makes json.Number, native ints and floats with the
// same decimal form compare equal.
func equalValues(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	da, err := json.Marshal(a)
	if err != nil {
		return false
	}
	db, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(da, db)
}
