// Package rpc dispatches decoded inbound replicated function calls to
// their registered handlers, gating execution by role and ownership
// (spec §4.2 "Inbound"). Handlers are registered explicitly per class,
// replacing original_source/network/rpc.py's descriptor-based
// RPCInterfaceFactory metaprogramming (spec §9 redesign note).
package rpc

import (
	"fmt"

	"repcore/internal/neterr"
	"repcore/internal/replication"
)

// Handler executes one decoded RPC invocation against its target replicable.
type Handler func(target *replication.Replicable, args map[string]any) error

// Table holds the registered handlers for one Schema, keyed by function name.
type Table struct {
	schema   *replication.Schema
	handlers map[string]Handler
}

// NewTable builds an empty handler table for schema.
func NewTable(schema *replication.Schema) *Table {
	return &Table{schema: schema, handlers: map[string]Handler{}}
}

// Register binds a handler to a declared function name. Panics on an
// unknown name or duplicate registration — both are load-time
// programmer errors, not runtime conditions.
func (t *Table) Register(functionName string, h Handler) {
	if _, ok := t.schema.FunctionByName(functionName); !ok {
		panic(fmt.Sprintf("rpc: %q declares no function %q", t.schema.ClassName, functionName))
	}
	if _, exists := t.handlers[functionName]; exists {
		panic(fmt.Sprintf("rpc: handler already registered for %s.%s", t.schema.ClassName, functionName))
	}
	t.handlers[functionName] = h
}

// Invoker describes the peer that sent an inbound RPC run: its
// connection's root replicable (for ownership comparison) and the
// local role that replicable holds on this side.
type Invoker struct {
	Root *replication.Replicable
	Role replication.Role
}

// Dispatch decodes has already happened by the time this is called
// (the channel's DecodeRPCRun always advances the cursor regardless of
// permission, per spec §9 Open Question 1); Dispatch only decides
// whether to execute the call.
func (t *Table) Dispatch(target *replication.Replicable, call replication.InvokedRPC, invoker Invoker) error {
	h, ok := t.handlers[call.Function.Name]
	if !ok {
		return fmt.Errorf("%w: %s.%s has no registered handler", neterr.ErrUnknownFunctionIndex, t.schema.ClassName, call.Function.Name)
	}

	if invoker.Role < call.Function.MinInvokerRole {
		return nil // permission denied: skip execution, already decoded
	}
	if !call.Function.Broadcast && !target.OwnedBy(invoker.Root) {
		return nil
	}

	return h(target, call.Args)
}
