package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per error kind surfaced by the orchestration core.
var (
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrAgentExecution     = fmt.Errorf("agent execution failed")
	ErrTaskRejected       = fmt.Errorf("task rejected")
	ErrSecurityDenial     = fmt.Errorf("security gateway denied tool call")
	ErrToolFailure        = fmt.Errorf("tool execution failed")
	ErrToolNotFound       = fmt.Errorf("tool not found")
	ErrDuplicateTool      = fmt.Errorf("tool already registered")
	ErrNoAgentsAvailable  = fmt.Errorf("no agents available")
	ErrConfiguration      = fmt.Errorf("configuration error")
	ErrTimeout            = fmt.Errorf("operation timed out")
	ErrDuplicateAgent     = fmt.Errorf("agent already registered")
	ErrPathOutsideSandbox = fmt.Errorf("path is outside sandbox boundary")
	ErrCommandNotAllowed  = fmt.Errorf("command not in allowlist")
	ErrConfigLoad         = fmt.Errorf("failed to load configuration")
	ErrDecryption         = fmt.Errorf("decryption failed")

	// Reasoning engine errors.
	ErrEngineUnavailable = fmt.Errorf("reasoning engine unavailable")
	ErrRateLimit         = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid       = fmt.Errorf("authentication failed")
	ErrContextOverflow   = fmt.Errorf("context window exceeded")
	ErrProviderError     = fmt.Errorf("provider error")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Registry.Get")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient engine error that may succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrEngineUnavailable)
}

// ErrorKind classifies a failed task or operation. The values are part of
// the caller-visible TaskResult and are stable.
type ErrorKind string

const (
	KindNone                  ErrorKind = ""
	KindInvalidInput          ErrorKind = "InvalidInput"
	KindAgentExecutionError   ErrorKind = "AgentExecutionError"
	KindTaskRejected          ErrorKind = "TaskRejected"
	KindSecurityGatewayDenial ErrorKind = "SecurityGatewayDenial"
	KindToolExecutionFailed   ErrorKind = "ToolExecutionFailed"
	KindToolNotFound          ErrorKind = "ToolNotFound"
	KindDuplicateTool         ErrorKind = "DuplicateTool"
	KindNoAgentsAvailable     ErrorKind = "NoAgentsAvailable"
	KindConfigurationError    ErrorKind = "ConfigurationError"
	KindTimeout               ErrorKind = "Timeout"
)

// kindTable maps sentinel errors to their kind. Order matters: the outermost
// classification wins when a chain wraps several sentinels, so gateway
// denials are listed before the tool failures they may wrap.
var kindTable = []struct {
	err  error
	kind ErrorKind
}{
	{ErrSecurityDenial, KindSecurityGatewayDenial},
	{ErrTaskRejected, KindTaskRejected},
	{ErrInvalidInput, KindInvalidInput},
	{ErrNoAgentsAvailable, KindNoAgentsAvailable},
	{ErrToolNotFound, KindToolNotFound},
	{ErrDuplicateTool, KindDuplicateTool},
	{ErrTimeout, KindTimeout},
	{ErrConfiguration, KindConfigurationError},
	{ErrConfigLoad, KindConfigurationError},
	{ErrDecryption, KindConfigurationError},
	{ErrDuplicateAgent, KindConfigurationError},
	{ErrPathOutsideSandbox, KindSecurityGatewayDenial},
	{ErrCommandNotAllowed, KindSecurityGatewayDenial},
	{ErrToolFailure, KindToolExecutionFailed},
	{ErrAgentExecution, KindAgentExecutionError},
}

// KindOf walks the error chain and returns the kind of the first mapped sentinel.
// Returns KindNone for nil and KindAgentExecutionError for unmapped errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, entry := range kindTable {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindAgentExecutionError
}

// ErrorCode is a machine-parseable error category for logs and metrics labels.
type ErrorCode string

const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeInvalidInput      ErrorCode = "INVALID_INPUT"
	CodeAgentExecution    ErrorCode = "AGENT_EXECUTION"
	CodeTaskRejected      ErrorCode = "TASK_REJECTED"
	CodeSecurityDenial    ErrorCode = "SECURITY_DENIAL"
	CodeToolFailure       ErrorCode = "TOOL_FAILURE"
	CodeToolNotFound      ErrorCode = "TOOL_NOT_FOUND"
	CodeDuplicateTool     ErrorCode = "DUPLICATE_TOOL"
	CodeNoAgents          ErrorCode = "NO_AGENTS_AVAILABLE"
	CodeConfiguration     ErrorCode = "CONFIGURATION"
	CodeTimeout           ErrorCode = "TIMEOUT"
	CodeEngineRateLimit   ErrorCode = "ENGINE_RATE_LIMIT"
	CodeEngineAuth        ErrorCode = "ENGINE_AUTH"
	CodeEngineOverflow    ErrorCode = "ENGINE_CONTEXT_OVERFLOW"
	CodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
)

var kindCodes = map[ErrorKind]ErrorCode{
	KindInvalidInput:          CodeInvalidInput,
	KindAgentExecutionError:   CodeAgentExecution,
	KindTaskRejected:          CodeTaskRejected,
	KindSecurityGatewayDenial: CodeSecurityDenial,
	KindToolExecutionFailed:   CodeToolFailure,
	KindToolNotFound:          CodeToolNotFound,
	KindDuplicateTool:         CodeDuplicateTool,
	KindNoAgentsAvailable:     CodeNoAgents,
	KindConfigurationError:    CodeConfiguration,
	KindTimeout:               CodeTimeout,
}

// ErrorCodeOf returns the code for err. Reasoning engine failures get their
// own codes; everything else follows KindOf. Returns "" for nil.
func ErrorCodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateLimit):
		return CodeEngineRateLimit
	case errors.Is(err, ErrAuthInvalid):
		return CodeEngineAuth
	case errors.Is(err, ErrContextOverflow):
		return CodeEngineOverflow
	case errors.Is(err, ErrEngineUnavailable):
		return CodeEngineUnavailable
	}
	if code, ok := kindCodes[KindOf(err)]; ok {
		return code
	}
	return CodeUnknown
}
