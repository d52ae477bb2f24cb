// Package security contains the Security Gateway that authorizes every tool
// call by risk tier, and the path sandbox used by file tools.
package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"hedwig/internal/domain"
	"hedwig/internal/infra/logger"
	"hedwig/internal/infra/metrics"
	"hedwig/internal/infra/tracer"
	"hedwig/pkg/ringbuf"
)

// Defaults for a Gateway built without options.
const (
	DefaultConfirmationTimeout = 10 * time.Second
	DefaultDenialCapacity      = 100
)

// Gateway assesses, authorizes and executes tool calls. It is a process-wide
// singleton; the denial history is safe for concurrent use.
type Gateway struct {
	mu      sync.RWMutex // guards confirm
	confirm domain.ConfirmFunc
	timeout time.Duration
	denials *ringbuf.Ring[domain.Denial]
	bus     domain.EventBus
	logger  *slog.Logger
}

// GatewayOption configures optional Gateway features.
type GatewayOption func(*Gateway)

// WithConfirm sets the confirmation callback for EXECUTE and DESTRUCTIVE calls.
func WithConfirm(fn domain.ConfirmFunc) GatewayOption {
	return func(g *Gateway) { g.confirm = fn }
}

// WithConfirmationTimeout sets the timeout handed to the confirmation callback.
func WithConfirmationTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithDenialCapacity sizes the denial history.
func WithDenialCapacity(n int) GatewayOption {
	return func(g *Gateway) { g.denials = ringbuf.New[domain.Denial](n) }
}

// WithEventBus publishes tool lifecycle events on bus.
func WithEventBus(bus domain.EventBus) GatewayOption {
	return func(g *Gateway) { g.bus = bus }
}

// NewGateway creates a Gateway. Without WithConfirm every EXECUTE and
// DESTRUCTIVE call is denied.
func NewGateway(log *slog.Logger, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		timeout: DefaultConfirmationTimeout,
		denials: ringbuf.New[domain.Denial](DefaultDenialCapacity),
		logger:  logger.OrDiscard(log),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetConfirm replaces the confirmation callback. nil restores fail-closed behavior.
func (g *Gateway) SetConfirm(fn domain.ConfirmFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.confirm = fn
}

// AssessRisk returns the effective tier for a call: the tool's static tier,
// raised by any matching escalation signal. It never de-escalates.
func (g *Gateway) AssessRisk(tool domain.Tool, args map[string]any) domain.RiskTier {
	static := tool.RiskTier()
	tier, fired := assess(tool.Name(), static, args)
	if len(fired) > 0 {
		g.logger.Warn("risk signals matched",
			"tool", tool.Name(),
			"static_tier", static.String(),
			"effective_tier", tier.String(),
			"signals", fired,
		)
	}
	if tier > static {
		metrics.RiskEscalations.WithLabelValues(tool.Name(), tier.String()).Inc()
	}
	return tier
}

// Authorize decides whether a call at the given tier may run. READ_ONLY and
// WRITE are always allowed. EXECUTE and DESTRUCTIVE need the confirmation
// callback's approval; every refusal is recorded in the denial history.
func (g *Gateway) Authorize(ctx context.Context, tool domain.Tool, tier domain.RiskTier, args map[string]any) bool {
	switch {
	case tier <= domain.RiskReadOnly:
		g.logger.Debug("authorized read-only tool", "tool", tool.Name())
		return true
	case tier == domain.RiskWrite:
		g.logger.Info("authorized write tool", "tool", tool.Name(), "args", ArgumentPreview(args))
		return true
	}

	g.mu.RLock()
	confirm := g.confirm
	g.mu.RUnlock()

	if confirm == nil {
		g.logger.Error("no confirmation callback set, denying high-risk operation",
			"tool", tool.Name(), "tier", tier.String())
		g.recordDenial(ctx, tool.Name(), tier, domain.DenyNoCallback, args)
		return false
	}

	cctx, cancel := context.WithTimeout(domain.ContextWithToolName(ctx, tool.Name()), g.timeout)
	defer cancel()

	approved, err := g.askConfirm(cctx, confirm, FormatConfirmation(tool.Name(), tier, args))
	switch {
	case err != nil:
		g.logger.Error("confirmation callback failed", "tool", tool.Name(), "error", err)
		g.recordDenial(ctx, tool.Name(), tier, domain.DenyCallbackError, args)
		return false
	case !approved:
		g.logger.Warn("user denied operation", "tool", tool.Name(), "tier", tier.String())
		g.recordDenial(ctx, tool.Name(), tier, domain.DenyUserDenied, args)
		return false
	}

	g.logger.Info("user approved operation", "tool", tool.Name(), "tier", tier.String())
	return true
}

// askConfirm invokes the callback, converting a panic into an error.
func (g *Gateway) askConfirm(ctx context.Context, confirm domain.ConfirmFunc, message string) (approved bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			approved, err = false, fmt.Errorf("confirmation callback panicked: %v", r)
		}
	}()
	approved, err = confirm(ctx, message, g.timeout)
	if err == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		// An answer that arrives after the deadline is not trusted.
		return false, domain.NewDomainError("Gateway.Authorize", domain.ErrTimeout, "confirmation")
	}
	return approved, err
}

// Execute assesses and authorizes the call, then runs the tool. A denied call
// returns an error wrapping ErrSecurityDenial. A tool that returns an error
// or panics is also reported as ErrSecurityDenial; tool failures reported as
// a failed ToolResult are returned unchanged.
func (g *Gateway) Execute(ctx context.Context, tool domain.Tool, args map[string]any) (*domain.ToolResult, error) {
	const op = "Gateway.Execute"
	name := tool.Name()

	ctx, span := tracer.StartSpan(ctx, "gateway.execute",
		tracer.StringAttr("tool.name", name),
		tracer.StringAttr("tool.static_tier", tool.RiskTier().String()),
	)
	defer span.End()

	tier := g.AssessRisk(tool, args)
	span.SetAttributes(tracer.StringAttr("tool.effective_tier", tier.String()))

	if !g.Authorize(ctx, tool, tier, args) {
		err := domain.NewDomainError(op, domain.ErrSecurityDenial,
			fmt.Sprintf("tool %q at risk tier %s was not authorized", name, tier))
		metrics.ToolCalls.WithLabelValues(name, tier.String(), metrics.OutcomeDenied).Inc()
		tracer.RecordError(span, err)
		return nil, err
	}

	domain.PublishEvent(ctx, g.bus, domain.EventToolCallStarted, map[string]any{
		"tool": name, "tier": tier.String(),
	})

	result, err := invoke(ctx, tool, args)
	if err != nil {
		wrapped := &domain.DomainError{
			Op:     op,
			Err:    fmt.Errorf("%w: %w", domain.ErrSecurityDenial, err),
			Detail: fmt.Sprintf("tool %q raised an error", name),
		}
		g.logger.Error("tool raised an error", "tool", name, "error", err)
		metrics.ToolCalls.WithLabelValues(name, tier.String(), metrics.OutcomeError).Inc()
		tracer.RecordError(span, wrapped)
		return nil, wrapped
	}
	if result == nil {
		result = &domain.ToolResult{Error: "tool returned no result"}
	}

	outcome := metrics.OutcomeSuccess
	if !result.Success {
		outcome = metrics.OutcomeFailure
	}
	metrics.ToolCalls.WithLabelValues(name, tier.String(), outcome).Inc()
	domain.PublishEvent(ctx, g.bus, domain.EventToolCallDone, map[string]any{
		"tool": name, "tier": tier.String(), "success": result.Success,
	})
	span.SetAttributes(tracer.BoolAttr("tool.success", result.Success))
	tracer.SetOK(span)
	return result, nil
}

func invoke(ctx context.Context, tool domain.Tool, args map[string]any) (result *domain.ToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return tool.Execute(ctx, args)
}

func (g *Gateway) recordDenial(ctx context.Context, toolName string, tier domain.RiskTier, reason string, args map[string]any) {
	d := domain.Denial{
		ID:        newDenialID(),
		Timestamp: time.Now(),
		ToolName:  toolName,
		RiskTier:  tier,
		Reason:    reason,
		Arguments: maps.Clone(args),
	}
	g.denials.Push(d)
	metrics.ToolDenials.WithLabelValues(toolName, reason).Inc()
	domain.PublishEvent(ctx, g.bus, domain.EventToolDenied, d)
}

// Denials returns the denial history, oldest first.
func (g *Gateway) Denials() []domain.Denial {
	return g.denials.Snapshot()
}

// ClearDenials empties the denial history.
func (g *Gateway) ClearDenials() {
	g.denials.Reset()
}

// Stats summarizes the denial history.
type Stats struct {
	TotalDenials int            `json:"total_denials"`
	ByTool       map[string]int `json:"denials_by_tool"`
	ByTier       map[string]int `json:"denials_by_risk"`
	ByReason     map[string]int `json:"denials_by_reason"`
}

// Stats counts the buffered denials by tool, tier and reason.
func (g *Gateway) Stats() Stats {
	denials := g.denials.Snapshot()
	s := Stats{
		TotalDenials: len(denials),
		ByTool:       make(map[string]int),
		ByTier:       make(map[string]int),
		ByReason:     make(map[string]int),
	}
	for _, d := range denials {
		s.ByTool[d.ToolName]++
		s.ByTier[d.RiskTier.String()]++
		s.ByReason[d.Reason]++
	}
	return s
}

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

func newDenialID() string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), idEntropy).String()
}
