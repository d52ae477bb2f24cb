package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hedwig/internal/domain"
	"hedwig/internal/security"
)

func toolCtx(name string) context.Context {
	return domain.ContextWithToolName(context.Background(), name)
}

func TestPolicyConfirmer(t *testing.T) {
	p := NewPolicyConfirmer([]string{"shell", "python_execute"}, []string{"python_execute"})

	tests := []struct {
		name string
		ctx  context.Context
		want bool
	}{
		{"auto approved", toolCtx("shell"), true},
		{"deny wins over approve", toolCtx("python_execute"), false},
		{"unlisted denied", toolCtx("file_writer"), false},
		{"no tool name denied", context.Background(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := p.Confirm(tt.ctx, "msg", time.Second)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

type approveTool struct{ tier domain.RiskTier }

func (approveTool) Name() string                { return "shell" }
func (approveTool) Description() string         { return "" }
func (a approveTool) RiskTier() domain.RiskTier { return a.tier }
func (approveTool) Schema() domain.ToolSchema   { return domain.ToolSchema{} }
func (approveTool) Execute(context.Context, map[string]any) (*domain.ToolResult, error) {
	return &domain.ToolResult{Success: true, Content: "ran"}, nil
}

func TestPolicyConfirmer_WithGateway(t *testing.T) {
	allowed := security.NewGateway(nil, security.WithConfirm(NewPolicyConfirmer([]string{"shell"}, nil).Confirm))
	res, err := allowed.Execute(context.Background(), approveTool{tier: domain.RiskExecute}, map[string]any{"command": "ls"})
	require.NoError(t, err)
	assert.Equal(t, "ran", res.Content)

	denied := security.NewGateway(nil, security.WithConfirm(NewPolicyConfirmer(nil, []string{"shell"}).Confirm))
	_, err = denied.Execute(context.Background(), approveTool{tier: domain.RiskExecute}, map[string]any{"command": "ls"})
	assert.ErrorIs(t, err, domain.ErrSecurityDenial)
	require.Len(t, denied.Denials(), 1)
	assert.Equal(t, domain.DenyUserDenied, denied.Denials()[0].Reason)
}

func TestTerminalConfirmer_Answers(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  y  \n", true},
		{"n\n", false},
		{"\n", false},
		{"sure\n", false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			c := NewTerminalConfirmer(strings.NewReader(tt.input), &out)
			ok, err := c.Confirm(context.Background(), "EXECUTION CONFIRMATION REQUIRED\n\nTool: shell", time.Second)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Contains(t, out.String(), "Tool: shell")
			assert.Contains(t, out.String(), "[y/N]")
		})
	}
}

func TestTerminalConfirmer_Timeout(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	c := NewTerminalConfirmer(r, io.Discard)

	start := time.Now()
	ok, err := c.Confirm(context.Background(), "msg", 50*time.Millisecond)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, domain.ErrTimeout))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestTerminalConfirmer_LateAnswerDiscarded(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	c := NewTerminalConfirmer(r, io.Discard)

	_, err := c.Confirm(context.Background(), "first", 20*time.Millisecond)
	require.Error(t, err)

	// Typed after the first prompt expired; the reader holds it in the buffer.
	go func() { _, _ = w.Write([]byte("y\n")) }()
	time.Sleep(50 * time.Millisecond)

	ok, err := c.Confirm(context.Background(), "second", 50*time.Millisecond)
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}

func TestTerminalConfirmer_EOF(t *testing.T) {
	c := NewTerminalConfirmer(strings.NewReader(""), io.Discard)
	ok, err := c.Confirm(context.Background(), "msg", time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, io.EOF)
}

func TestDenyAll(t *testing.T) {
	ok, err := DenyAll(context.Background(), "msg", time.Second)
	assert.NoError(t, err)
	assert.False(t, ok)
}
