package usecase

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"hedwig/internal/domain"
)

// PolicyConfirmer answers Security Gateway confirmations from allow/deny
// lists keyed by tool name.
//
//   - Tools in alwaysDeny are rejected.
//   - Tools in autoApprove are approved.
//   - Anything else, including a call whose tool name is unknown, is denied.
type PolicyConfirmer struct {
	autoApprove map[string]bool
	alwaysDeny  map[string]bool
}

// NewPolicyConfirmer creates a PolicyConfirmer from allow/deny lists.
// A name present in both lists is denied.
func NewPolicyConfirmer(approve, deny []string) *PolicyConfirmer {
	p := &PolicyConfirmer{
		autoApprove: make(map[string]bool, len(approve)),
		alwaysDeny:  make(map[string]bool, len(deny)),
	}
	for _, name := range approve {
		p.autoApprove[name] = true
	}
	for _, name := range deny {
		p.alwaysDeny[name] = true
	}
	return p
}

// Confirm implements domain.ConfirmFunc. The tool name is read from ctx.
func (p *PolicyConfirmer) Confirm(ctx context.Context, _ string, _ time.Duration) (bool, error) {
	name := domain.ToolNameFromContext(ctx)
	switch {
	case name == "":
		return false, nil
	case p.alwaysDeny[name]:
		return false, nil
	default:
		return p.autoApprove[name], nil
	}
}

var (
	warningBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1)
	destructiveBox = warningBox.BorderForeground(lipgloss.Color("196"))
	promptStyle    = lipgloss.NewStyle().Bold(true)
)

// TerminalConfirmer asks a human on a terminal. Anything other than "y" or
// "yes" is a refusal; so is silence past the timeout.
type TerminalConfirmer struct {
	in      io.Reader
	out     io.Writer
	mu      sync.Mutex // one prompt at a time
	start   sync.Once
	answers chan string
	readErr error // set before answers is closed
	expired bool  // the previous prompt went unanswered
}

// NewTerminalConfirmer creates a confirmer reading answers from in and
// writing prompts to out.
func NewTerminalConfirmer(in io.Reader, out io.Writer) *TerminalConfirmer {
	return &TerminalConfirmer{in: in, out: out, answers: make(chan string, 1)}
}

// readLoop is the only reader of in, so a prompt that timed out never
// races the next one for input.
func (c *TerminalConfirmer) readLoop() {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		c.answers <- scanner.Text()
	}
	c.readErr = scanner.Err()
	if c.readErr == nil {
		c.readErr = io.EOF
	}
	close(c.answers)
}

// Confirm implements domain.ConfirmFunc.
func (c *TerminalConfirmer) Confirm(ctx context.Context, message string, timeout time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start.Do(func() { go c.readLoop() })

	// Lines typed after an earlier prompt expired are not answers to this one.
	if c.expired {
		c.drain()
		c.expired = false
	}

	box := warningBox
	if strings.HasPrefix(message, "DESTRUCTIVE") {
		box = destructiveBox
	}
	fmt.Fprintln(c.out, box.Render(message))
	fmt.Fprint(c.out, promptStyle.Render(fmt.Sprintf("Proceed? [y/N] (%s): ", timeout)))

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case line, ok := <-c.answers:
		if !ok {
			return false, fmt.Errorf("read confirmation: %w", c.readErr)
		}
		reply := strings.ToLower(strings.TrimSpace(line))
		return reply == "y" || reply == "yes", nil
	case <-timer.C:
		c.expired = true
		fmt.Fprintln(c.out)
		return false, domain.NewDomainError("TerminalConfirmer.Confirm", domain.ErrTimeout, "no answer")
	case <-ctx.Done():
		c.expired = true
		fmt.Fprintln(c.out)
		return false, domain.NewDomainError("TerminalConfirmer.Confirm", domain.ErrTimeout, ctx.Err().Error())
	}
}

func (c *TerminalConfirmer) drain() {
	for {
		select {
		case _, ok := <-c.answers:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// DenyAll refuses every confirmation.
func DenyAll(context.Context, string, time.Duration) (bool, error) { return false, nil }
