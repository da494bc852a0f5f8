package engine

import (
	"context"
	"fmt"

	"sarchain/internal/services"
)

// Role names the slot a product fills when passed to an operation.
type Role string

const (
	RoleMaster Role = "master"
	RoleSlave  Role = "slave"
	RoleSingle Role = "single"
)

// Operation is one engine operator invocation request.
type Operation struct {
	Name   string
	Params Params
	// Inputs lists the roles the operation consumes, in engine source order.
	// A nil slice means a single input.
	Inputs []Role
}

// InputRoles returns the roles the operation consumes.
func (op Operation) InputRoles() []Role {
	if len(op.Inputs) == 0 {
		return []Role{RoleSingle}
	}
	return op.Inputs
}

// Handle is an opaque reference to a product owned by a Client.
type Handle interface {
	// Name is a short human-readable label used in logs.
	Name() string
}

// Client is the external engine boundary.
type Client interface {
	Read(ctx context.Context, path string) (Handle, error)
	Invoke(ctx context.Context, op Operation, inputs map[Role]Handle) (Handle, error)
	Write(ctx context.Context, product Handle, path string) error
}

// OperationError reports a failed engine operator. It matches
// services.ErrOperation under errors.Is.
type OperationError struct {
	Operation string
	Err       error
}

func (e *OperationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("engine operation %s failed", e.Operation)
	}
	return fmt.Sprintf("engine operation %s failed: %v", e.Operation, e.Err)
}

func (e *OperationError) Unwrap() []error {
	if e.Err == nil {
		return []error{services.ErrOperation}
	}
	return []error{services.ErrOperation, e.Err}
}

// CheckInputs verifies every role op consumes is present in inputs.
func CheckInputs(op Operation, inputs map[Role]Handle) error {
	for _, role := range op.InputRoles() {
		if inputs[role] == nil {
			return &OperationError{Operation: op.Name, Err: fmt.Errorf("missing %s input", role)}
		}
	}
	return nil
}
