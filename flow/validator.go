package flow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ValidationState tracks a step through the hierarchical manager gate.
type ValidationState string

const (
	ValidationPending  ValidationState = "pending"
	ValidationExecuted ValidationState = "executed"
	ValidationAccepted ValidationState = "accepted"
	ValidationRejected ValidationState = "rejected"
)

// Validator judges a step's output. Accepted output lets the run proceed;
// rejection fails the step and the whole run.
type Validator interface {
	Validate(ctx context.Context, t *Task, output string) (accepted bool, reason string, err error)
}

// managerValidator asks a manager agent to accept or reject each step's
// output against the step's declared goal and expectation.
type managerValidator struct {
	manager ChatAgent
	logger  *zap.Logger
}

func newManagerValidator(manager ChatAgent, logger *zap.Logger) *managerValidator {
	return &managerValidator{
		manager: manager,
		logger:  logger.With(zap.String("component", "manager_validator")),
	}
}

// Validate builds the review prompt, asks the manager, and parses its
// verdict. An unparseable reply is treated as acceptance with a warning: the
// manager gate rejects only on an explicit REJECT.
func (v *managerValidator) Validate(ctx context.Context, t *Task, output string) (bool, string, error) {
	reply, err := v.manager.Chat(ctx, v.prompt(t, output))
	if err != nil {
		return false, "", err
	}

	verdict, reason := parseVerdict(reply)
	switch verdict {
	case ValidationRejected:
		v.logger.Info("manager rejected step",
			zap.String("step", t.Name),
			zap.String("reason", reason),
		)
		return false, reason, nil
	case ValidationAccepted:
		return true, reason, nil
	default:
		v.logger.Warn("manager verdict unparseable, accepting",
			zap.String("step", t.Name),
			zap.String("reply", reply),
		)
		return true, reply, nil
	}
}

func (v *managerValidator) prompt(t *Task, output string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the manager reviewing the output of workflow step %q.\n\n", t.Name)
	fmt.Fprintf(&b, "Step instruction:\n%s\n\n", t.Action)
	if t.ExpectedOutput != "" {
		fmt.Fprintf(&b, "Expected output:\n%s\n\n", t.ExpectedOutput)
	}
	fmt.Fprintf(&b, "Actual output:\n%s\n\n", output)
	b.WriteString("Reply with ACCEPT or REJECT on the first line, followed by a short reason.")
	return b.String()
}

// parseVerdict reads the manager's reply: the first line decides, the rest is
// the reason. Returns ValidationExecuted when no verdict is recognizable.
func parseVerdict(reply string) (ValidationState, string) {
	lines := strings.SplitN(strings.TrimSpace(reply), "\n", 2)
	first := strings.ToLower(strings.TrimSpace(lines[0]))
	reason := ""
	if len(lines) > 1 {
		reason = strings.TrimSpace(lines[1])
	}

	switch {
	case strings.HasPrefix(first, "reject"):
		if reason == "" {
			trimmed := strings.TrimPrefix(strings.TrimPrefix(first, "rejected"), "reject")
			reason = strings.TrimLeft(trimmed, ":- ")
		}
		if reason == "" {
			reason = "manager rejected the output"
		}
		return ValidationRejected, reason
	case strings.HasPrefix(first, "accept"):
		return ValidationAccepted, reason
	default:
		return ValidationExecuted, reply
	}
}
