package rpc

import (
	"testing"

	"repcore/internal/replication"
	"repcore/internal/transport"
)

func testSchema(t *testing.T) *replication.Schema {
	t.Helper()
	schema, err := replication.NewSchema("Pawn",
		nil,
		[]replication.FunctionDef{
			{Name: "fire", Target: transport.NetmodeServer, Reliable: true, MinInvokerRole: replication.RoleAutonomousProxy},
			{Name: "say", Target: transport.NetmodeClient, Reliable: true, Broadcast: true},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	return schema
}

func TestDispatchRejectsInsufficientRole(t *testing.T) {
	schema := testSchema(t)
	table := NewTable(schema)
	called := false
	table.Register("fire", func(target *replication.Replicable, args map[string]any) error {
		called = true
		return nil
	})

	owner := replication.New(schema, 0, 0)
	target := replication.New(schema, 1, 0)
	target.Owner = owner

	fireFn, _ := schema.FunctionByName("fire")
	call := replication.InvokedRPC{Function: fireFn, Args: nil}

	err := table.Dispatch(target, call, Invoker{Root: owner, Role: replication.RoleSimulatedProxy})
	if err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("expected dispatch to skip a call below MinInvokerRole")
	}

	err = table.Dispatch(target, call, Invoker{Root: owner, Role: replication.RoleAutonomousProxy})
	if err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("expected dispatch to execute once the invoker role is sufficient")
	}
}

func TestDispatchRequiresOwnershipUnlessBroadcast(t *testing.T) {
	schema := testSchema(t)
	table := NewTable(schema)
	called := false
	table.Register("say", func(target *replication.Replicable, args map[string]any) error {
		called = true
		return nil
	})

	owner := replication.New(schema, 0, 0)
	stranger := replication.New(schema, 9, 0)
	target := replication.New(schema, 1, 0)
	target.Owner = owner

	sayFn, _ := schema.FunctionByName("say")
	call := replication.InvokedRPC{Function: sayFn}

	if err := table.Dispatch(target, call, Invoker{Root: stranger}); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("expected a Broadcast function to execute for a non-owning invoker")
	}
}

func TestDispatchUnknownFunctionErrors(t *testing.T) {
	schema := testSchema(t)
	table := NewTable(schema)
	fireFn, _ := schema.FunctionByName("fire")
	target := replication.New(schema, 1, 0)
	err := table.Dispatch(target, replication.InvokedRPC{Function: fireFn}, Invoker{})
	if err == nil {
		t.Fatal("expected an error for a function with no registered handler")
	}
}
