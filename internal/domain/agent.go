package domain

import (
	"context"
	"fmt"
)

// AgentDescriptor is the capability description used for routing.
type AgentDescriptor struct {
	Name         string   `json:"name"`
	Purpose      string   `json:"purpose"`
	Capabilities []string `json:"capabilities"`
	Examples     []string `json:"examples"`
}

// Validate checks the descriptor is complete enough to route on.
func (d AgentDescriptor) Validate() error {
	switch {
	case d.Name == "":
		return NewDomainError("AgentDescriptor.Validate", ErrConfiguration, "name is required")
	case len(d.Capabilities) == 0:
		return NewDomainError("AgentDescriptor.Validate", ErrConfiguration,
			fmt.Sprintf("agent %q has no capabilities", d.Name))
	case len(d.Examples) < 2:
		return NewDomainError("AgentDescriptor.Validate", ErrConfiguration,
			fmt.Sprintf("agent %q needs at least 2 examples", d.Name))
	}
	return nil
}

// Agent is a specialist handler. Callers treat every variant uniformly.
type Agent interface {
	Name() string
	Descriptor() AgentDescriptor
	// CanHandle allows early self-exclusion before any work is done.
	CanHandle(prompt string, conversation []Message) bool
	// Run never returns internal faults; they are converted into a failed result.
	Run(ctx context.Context, req *TaskRequest) *TaskResult
	// RejectTask builds the only result shape the retry loop treats as
	// "try a different agent".
	RejectTask(reason string, req *TaskRequest) *TaskResult
}
