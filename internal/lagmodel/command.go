package lagmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sawpanic/pricecast/internal/domain"
)

// CommandBackend runs an external forecaster once per request. The request
// is written to its stdin as JSON and a JSON array of horizon churn rows is
// read from stdout.
type CommandBackend struct {
	Path string
	Args []string
}

// NewCommandBackend splits a command line on whitespace.
func NewCommandBackend(commandLine string) (*CommandBackend, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, &domain.InvalidInputError{Field: "lag_backend", Reason: "empty command"}
	}
	return &CommandBackend{Path: fields[0], Args: fields[1:]}, nil
}

func (c *CommandBackend) Name() string { return "command:" + c.Path }

func (c *CommandBackend) ChurnByHorizon(ctx context.Context, req Request) ([]domain.HorizonChurn, error) {
	in, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = bytes.NewReader(in)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", c.Path, err, strings.TrimSpace(stderr.String()))
	}
	var out []domain.HorizonChurn
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("%s: decode output: %w", c.Path, err)
	}
	return out, nil
}
