package execution

import (
	"encoding/base64"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	json "github.com/nspcc-dev/go-ordered-json"
	"go.uber.org/zap"

	"github.com/ssc-dev/ssc-go/pkg/core/state"
	"github.com/ssc-dev/ssc-go/pkg/core/storage"
	"github.com/ssc-dev/ssc-go/pkg/core/transaction"
	"github.com/ssc-dev/ssc-go/pkg/vm"
)

const (
	// deployContractName/deployActionName is the (contract, action) pair
	// dispatching a transaction to deployment.
	deployContractName = "contract"
	deployActionName   = "deploy"
	// createActionName is the reserved bootstrap action, runnable only at
	// deploy time.
	createActionName = "create"

	// maxCallDepth bounds reentrant executeSmartContract chains.
	maxCallDepth = 16

	// defaultCacheSize is the artifact cache bound when the configuration
	// does not set one.
	defaultCacheSize = 64
)

// Contract-level error messages. These are part of the recorded logs and
// thereby of block hashes, so their wording is fixed.
const (
	errMissingOperands  = "the parameters sender, contract and action are required"
	errReservedAction   = "you cannot trigger the create action"
	errUnknownContract  = "contract doesn't exist"
	errBadDeployPayload = "parameters name and code are mandatory and they must be strings"
	errMaxCallDepth     = "max contract call depth reached"
)

// dispatchTemplate wraps user contract source. The source is expected to
// populate the actions map; the trailer then dispatches the requested
// action with the parsed payload.
const dispatchTemplate = `var actions = {};
%s
if (typeof actions[action] === 'function') {
    actions[action](payload);
}
`

// deployParams is the payload of a deployment transaction.
type deployParams struct {
	Name   string          `json:"name"`
	Params json.RawMessage `json:"params"`
	Code   string          `json:"code"`
}

// Executor runs transactions against the state store: it dispatches between
// deployment and invocation, compiles and caches contract artifacts, builds
// the per-run host object and serialises the outcome into transaction logs.
type Executor struct {
	store    *storage.MemoryStore
	registry *Registry
	box      *vm.Sandbox
	programs *lru.Cache
	log      *zap.Logger
}

// New creates an Executor over the given store and sandbox. cacheSize bounds
// the compiled-artifact cache (defaulted when non-positive).
func New(store *storage.MemoryStore, box *vm.Sandbox, cacheSize int, log *zap.Logger) (*Executor, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	programs, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{
		store:    store,
		registry: NewRegistry(store),
		box:      box,
		programs: programs,
		log:      log,
	}, nil
}

// Registry returns the contract registry.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute runs the transaction and returns its serialised logs. Failures are
// soft: they are recorded in the logs and never abort block production.
func (e *Executor) Execute(tx *transaction.Transaction) string {
	if tx.Sender == "" || tx.Contract == "" || tx.Action == "" {
		return errorLogs(errMissingOperands)
	}
	if tx.Contract == deployContractName && tx.Action == deployActionName {
		return e.deploy(tx)
	}
	return e.invoke(tx)
}

func (e *Executor) deploy(tx *transaction.Transaction) string {
	params := new(deployParams)
	if tx.Payload == "" {
		return errorLogs(errBadDeployPayload)
	}
	if err := json.Unmarshal([]byte(tx.Payload), params); err != nil ||
		params.Name == "" || params.Code == "" {
		return errorLogs(errBadDeployPayload)
	}
	if existing, err := e.registry.Get(params.Name); err != nil {
		return faultLogs(vm.NewFault(err.Error()))
	} else if existing != nil {
		return errorLogs(ErrContractExists.Error())
	}
	source, err := base64.StdEncoding.DecodeString(params.Code)
	if err != nil {
		return errorLogs(errBadDeployPayload)
	}

	wrapped := fmt.Sprintf(dispatchTemplate, string(source))
	artifact, fault := vm.Compile(params.Name, wrapped)
	if fault != nil {
		return faultLogs(fault)
	}

	cs := &state.Contract{
		Name:   params.Name,
		Owner:  tx.Sender,
		Code:   wrapped,
		Tables: make([]string, 0),
	}
	ctx := &callContext{
		sender:   tx.Sender,
		action:   createActionName,
		payload:  string(params.Params),
		contract: cs,
		deploy:   true,
		deadline: time.Now().Add(e.box.Timeout()),
		logs:     newCollector(),
	}
	if fault := e.box.RunUntil(artifact, e.hostSetup(ctx), ctx.deadline); fault != nil {
		// Bootstrap failed, so the name stays free. State writes made
		// before the fault are kept (there is no transactional rollback).
		return faultLogs(fault)
	}
	if err := e.registry.Add(cs); err != nil {
		return errorLogs(err.Error())
	}
	e.programs.Add(cs.Name, artifact)
	e.log.Info("contract deployed",
		zap.String("contract", cs.Name),
		zap.String("owner", cs.Owner),
		zap.Int("tables", len(cs.Tables)))
	return eventLogs(ctx.logs)
}

func (e *Executor) invoke(tx *transaction.Transaction) string {
	logs := newCollector()
	fault, errMsg := e.run(tx.Sender, tx.Contract, tx.Action, tx.Payload, 0, time.Now().Add(e.box.Timeout()), logs)
	if errMsg != "" {
		return errorLogs(errMsg)
	}
	if fault != nil {
		return faultLogs(fault)
	}
	return eventLogs(logs)
}

// run performs one invocation frame, top-level or nested. String-kind
// failures come back as errMsg, sandbox faults as fault.
func (e *Executor) run(sender, contract, action, payload string, depth int, deadline time.Time, logs *collector) (fault *vm.Fault, errMsg string) {
	if action == createActionName {
		return nil, errReservedAction
	}
	cs, err := e.registry.Get(contract)
	if err != nil {
		return vm.NewFault(err.Error()), ""
	}
	if cs == nil {
		return nil, errUnknownContract
	}
	if payload == "" {
		payload = "{}"
	}
	artifact, fault := e.artifact(cs)
	if fault != nil {
		return fault, ""
	}
	ctx := &callContext{
		sender:   sender,
		action:   action,
		payload:  payload,
		contract: cs,
		depth:    depth,
		deadline: deadline,
		logs:     logs,
	}
	return e.box.RunUntil(artifact, e.hostSetup(ctx), deadline), ""
}

// nestedCall services executeSmartContract: a synchronous reentrant
// invocation sharing the caller's sender, deadline and event collector. The
// returned JSON (or "" for null) is handed back to the calling contract.
func (e *Executor) nestedCall(parent *callContext, contract, action, payload string) string {
	if parent.depth+1 >= maxCallDepth {
		return faultLogs(vm.NewFault(errMaxCallDepth))
	}
	fault, errMsg := e.run(parent.sender, contract, action, payload, parent.depth+1, parent.deadline, parent.logs)
	if errMsg != "" {
		return errorLogs(errMsg)
	}
	if fault != nil {
		return faultLogs(fault)
	}
	return ""
}

// artifact returns the compiled program of a contract, recompiling the
// stored wrapped source on a cache miss.
func (e *Executor) artifact(cs *state.Contract) (*vm.Artifact, *vm.Fault) {
	if v, ok := e.programs.Get(cs.Name); ok {
		return v.(*vm.Artifact), nil
	}
	artifact, fault := vm.Compile(cs.Name, cs.Code)
	if fault != nil {
		return nil, fault
	}
	e.programs.Add(cs.Name, artifact)
	return artifact, nil
}
