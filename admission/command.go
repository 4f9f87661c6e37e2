package admission

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// CommandOracle runs an external search program once per measurement. The
// pattern is appended to Args and the program must print the accuracy as the
// last line of its standard output.
type CommandOracle struct {
	Path    string
	Args    []string
	Timeout time.Duration
}

func NewCommandOracle(path string, args []string, timeout time.Duration) (*CommandOracle, error) {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil, fmt.Errorf("oracle command %q not found: %w", path, err)
	}
	return &CommandOracle{Path: resolved, Args: args, Timeout: timeout}, nil
}

func (c *CommandOracle) Name() string { return "command" }

func (c *CommandOracle) Measure(ctx context.Context, pattern string) (float64, error) {
	if err := validPattern(pattern); err != nil {
		return 0, err
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, c.Args...), pattern)
	cmd := exec.CommandContext(ctx, c.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return 0, fmt.Errorf("oracle command failed: %w: %s", err, msg)
		}
		return 0, fmt.Errorf("oracle command failed: %w", err)
	}

	return parseAccuracy(output)
}

func parseAccuracy(output []byte) (float64, error) {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	last = strings.TrimSuffix(last, "%")
	if last == "" {
		return 0, fmt.Errorf("oracle command printed no accuracy")
	}
	accuracy, err := strconv.ParseFloat(last, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing oracle output %q: %w", last, err)
	}
	return accuracy, nil
}
