package execution

import (
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/ssc-dev/ssc-go/pkg/core/state"
	"github.com/ssc-dev/ssc-go/pkg/core/storage"
)

// callContext is the per-run scope of a single contract execution frame. A
// fresh one is built for every frame, including reentrant ones; only the
// sender, the deadline and the collector travel down a call chain.
type callContext struct {
	sender   string
	action   string
	payload  string // JSON text, "" for null
	contract *state.Contract
	deploy   bool
	depth    int
	deadline time.Time
	logs     *collector
}

// hostSetup returns the sandbox setup callback installing the host object
// for the given frame. Globals sender/owner are absent (undefined) during
// the deploy bootstrap.
func (e *Executor) hostSetup(ctx *callContext) func(*goja.Runtime) error {
	return func(rt *goja.Runtime) error {
		var sender, owner interface{} = goja.Undefined(), goja.Undefined()
		if !ctx.deploy {
			sender, owner = ctx.sender, ctx.contract.Owner
		}
		var payload interface{} = goja.Null()
		if ctx.payload != "" {
			payload = ctx.payload
		}
		for _, err := range []error{
			rt.Set("sender", sender),
			rt.Set("owner", owner),
			rt.Set("action", ctx.action),
			rt.Set("__payload", payload),
			rt.Set("__host", e.hostObject(ctx)),
		} {
			if err != nil {
				return err
			}
		}
		return nil
	}
}

// hostObject builds the raw hooks the sandbox prelude wraps. All document
// traffic is JSON text and all hooks are soft: a disallowed or unknown table
// yields null/empty results instead of a throw, and ownership is enforced
// here rather than in the prelude so that contracts poking at __host
// directly gain nothing.
func (e *Executor) hostObject(ctx *callContext) map[string]interface{} {
	return map[string]interface{}{
		"createTable": func(name string) interface{} {
			if name == "" {
				return nil
			}
			fq := ctx.contract.TableName(name)
			if !ctx.contract.HasTable(fq) {
				e.store.AddCollection(fq)
				ctx.contract.AddTable(fq)
				if !ctx.deploy {
					if err := e.registry.Update(ctx.contract); err != nil {
						e.log.Warn("failed to persist tables set",
							zap.String("contract", ctx.contract.Name),
							zap.Error(err))
					}
				}
			}
			return fq
		},
		"getTable": func(name string) interface{} {
			fq := ctx.contract.TableName(name)
			if !ctx.contract.HasTable(fq) {
				return nil
			}
			return fq
		},
		"tableInsert": func(table, doc string) string {
			if !ctx.contract.HasTable(table) {
				return "null"
			}
			col := e.store.GetCollection(table)
			if col == nil {
				return "null"
			}
			res, err := col.InsertJSON(doc)
			if err != nil {
				return "null"
			}
			return res
		},
		"tableUpdate": func(table, doc string) {
			if !ctx.contract.HasTable(table) {
				return
			}
			col := e.store.GetCollection(table)
			if col == nil {
				return
			}
			if err := col.UpdateJSON(doc); err != nil {
				e.log.Debug("table update rejected",
					zap.String("table", table),
					zap.Error(err))
			}
		},
		"tableFind": func(table, query string) string {
			if !ctx.contract.HasTable(table) {
				return "[]"
			}
			return findJSON(e.store.GetCollection(table), query)
		},
		"tableFindOne": func(table, query string) string {
			if !ctx.contract.HasTable(table) {
				return "null"
			}
			return findOneJSON(e.store.GetCollection(table), query)
		},
		"findInTable": func(contract, table, query string) string {
			return findJSON(e.store.GetCollection(contract+"_"+table), query)
		},
		"findOneInTable": func(contract, table, query string) string {
			return findOneJSON(e.store.GetCollection(contract+"_"+table), query)
		},
		"emit": func(event, data string) {
			ctx.logs.add(event, data)
		},
		"call": func(contract, action string, payload goja.Value) interface{} {
			p := ""
			if payload != nil && !goja.IsNull(payload) && !goja.IsUndefined(payload) {
				p = payload.String()
			}
			if res := e.nestedCall(ctx, contract, action, p); res != "" {
				return res
			}
			return nil
		},
		"debug": func(msg string) {
			e.log.Debug("contract debug",
				zap.String("contract", ctx.contract.Name),
				zap.String("message", msg))
		},
	}
}

func findJSON(col *storage.Collection, query string) string {
	if col == nil {
		return "[]"
	}
	res, err := col.FindJSON(query)
	if err != nil {
		return "[]"
	}
	return res
}

func findOneJSON(col *storage.Collection, query string) string {
	if col == nil {
		return "null"
	}
	res, err := col.FindOneJSON(query)
	if err != nil {
		return "null"
	}
	return res
}
