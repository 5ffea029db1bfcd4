package vm

import (
	"time"

	"github.com/dop251/goja"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// DefaultTimeout is the wall-clock ceiling of a single top-level contract
// run.
const DefaultTimeout = 10 * time.Second

// prelude wraps the raw host hooks into the API contracts program against.
// Every value crossing the sandbox boundary goes through JSON text, so
// contract code can never alias host state: payloads are parsed inside the
// runtime and documents are serialised before they leave it.
const preludeSrc = `'use strict';
var payload = (__payload === null || __payload === undefined) ? null : JSON.parse(__payload);
function __table(name) {
    if (name === null || name === undefined) {
        return null;
    }
    return {
        insert: function (doc) { return JSON.parse(__host.tableInsert(name, JSON.stringify(doc))); },
        update: function (doc) { __host.tableUpdate(name, JSON.stringify(doc)); },
        find: function (query) { return JSON.parse(__host.tableFind(name, JSON.stringify(query === undefined ? {} : query))); },
        findOne: function (query) { return JSON.parse(__host.tableFindOne(name, JSON.stringify(query === undefined ? {} : query))); }
    };
}
var db = {
    createTable: function (name) { return __table(__host.createTable(name)); },
    getTable: function (name) { return __table(__host.getTable(name)); },
    findInTable: function (contract, table, query) { return JSON.parse(__host.findInTable(contract, table, JSON.stringify(query === undefined ? {} : query))); },
    findOneInTable: function (contract, table, query) { return JSON.parse(__host.findOneInTable(contract, table, JSON.stringify(query === undefined ? {} : query))); }
};
function emit(event, data) { __host.emit(event, data === undefined ? 'null' : JSON.stringify(data)); }
function executeSmartContract(contract, action, payload) {
    var res = __host.call(contract, action, (payload === undefined || payload === null) ? null : (typeof payload === 'string' ? payload : JSON.stringify(payload)));
    return (res === null || res === undefined) ? null : JSON.parse(res);
}
function debug(data) { __host.debug(typeof data === 'string' ? data : JSON.stringify(data)); }
`

var preludeProg = goja.MustCompile("prelude.js", preludeSrc, true)

// Artifact is a compiled, reusable form of contract source. It is immutable
// and can be run on any number of fresh runtimes.
type Artifact struct {
	name string
	prog *goja.Program
}

// Name returns the name the artifact was compiled under.
func (a *Artifact) Name() string {
	return a.name
}

// Compile compiles contract source into a reusable artifact. Failures are
// returned as a normalized SyntaxError fault.
func Compile(name, src string) (*Artifact, *Fault) {
	prog, err := goja.Compile(name, src, false)
	if err != nil {
		return nil, compileFault(err)
	}
	return &Artifact{name: name, prog: prog}, nil
}

// Sandbox executes contract artifacts in isolated goja runtimes. A fresh
// runtime is built per run, so contract code cannot persist references to
// host objects across calls; the only globals it sees are the ones the
// prelude and the per-run setup install.
type Sandbox struct {
	timeout time.Duration
	log     *zap.Logger
}

// New creates a Sandbox enforcing the given per-run quantum (DefaultTimeout
// when non-positive).
func New(timeout time.Duration, log *zap.Logger) *Sandbox {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sandbox{timeout: timeout, log: log}
}

// Timeout returns the configured quantum.
func (s *Sandbox) Timeout() time.Duration {
	return s.timeout
}

// Run executes the artifact on a fresh runtime with a full quantum. The
// setup callback installs the host bindings before the prelude runs.
func (s *Sandbox) Run(a *Artifact, setup func(*goja.Runtime) error) *Fault {
	return s.RunUntil(a, setup, time.Now().Add(s.timeout))
}

// RunUntil executes the artifact on a fresh runtime, interrupting it at the
// given deadline. Reentrant contract calls pass the outer deadline down so
// that a whole call tree shares one quantum.
func (s *Sandbox) RunUntil(a *Artifact, setup func(*goja.Runtime) error, deadline time.Time) *Fault {
	rt := goja.New()
	if err := setup(rt); err != nil {
		return NewFault(err.Error())
	}
	if _, err := rt.RunProgram(preludeProg); err != nil {
		return runtimeFault(err, false)
	}

	timedOut := atomic.NewBool(false)
	timer := time.AfterFunc(time.Until(deadline), func() {
		timedOut.Store(true)
		rt.Interrupt(timeoutMessage)
	})
	defer timer.Stop()

	if _, err := rt.RunProgram(a.prog); err != nil {
		f := runtimeFault(err, timedOut.Load())
		s.log.Debug("contract run failed",
			zap.String("artifact", a.name),
			zap.String("fault", f.Name))
		return f
	}
	return nil
}
