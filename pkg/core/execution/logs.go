package execution

import (
	stdjson "encoding/json"

	json "github.com/nspcc-dev/go-ordered-json"

	"github.com/ssc-dev/ssc-go/pkg/vm"
)

// collector accumulates events emitted during a single top-level transaction
// run. Reentrant contract calls share the transaction's collector, which is
// what merges nested events into the outer logs in emission order.
type collector struct {
	events []json.OrderedObject
}

func newCollector() *collector {
	return &collector{events: make([]json.OrderedObject, 0)}
}

func (c *collector) add(event, data string) {
	if data == "" {
		data = "null"
	}
	c.events = append(c.events, json.OrderedObject{
		{Key: "event", Value: event},
		{Key: "data", Value: json.RawMessage(data)},
	})
}

// eventLogs serialises a successful run: {"events":[{"event":…,"data":…}…]}.
func eventLogs(c *collector) string {
	return marshalLogs(json.OrderedObject{{Key: "events", Value: c.events}})
}

// errorLogs serialises a string-kind failure: {"error":"…"}. The record is
// encoded with encoding/json so that an apostrophe in a fixed message is
// written as a plain character rather than as a unicode escape.
func errorLogs(msg string) string {
	data, err := stdjson.Marshal(struct {
		Error string `json:"error"`
	}{Error: msg})
	if err != nil {
		return `{"error":"logs serialisation failed"}`
	}
	return string(data)
}

// faultLogs serialises a sandbox fault: {"error":{"name":…,"message":…}}.
func faultLogs(f *vm.Fault) string {
	return marshalLogs(json.OrderedObject{{Key: "error", Value: json.OrderedObject{
		{Key: "name", Value: f.Name},
		{Key: "message", Value: f.Message},
	}}})
}

func marshalLogs(v json.OrderedObject) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Only reachable with an unmarshalable event payload, which the
		// JSON boundary rules out.
		return `{"error":"logs serialisation failed"}`
	}
	return string(data)
}
