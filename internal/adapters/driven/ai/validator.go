package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Check is the outcome of pinging one service.
type Check struct {
	Component string
	Model     string
	Err       error
}

// pinger is the subset of service behaviour connectivity checks use.
type pinger interface {
	Ping(ctx context.Context) error
	ModelName() string
}

// Validate pings the embedding and language model services and reports
// each result. Nil services are skipped. The returned error joins every
// failure.
func (s *Services) Validate(ctx context.Context) ([]Check, error) {
	var (
		checks []Check
		errs   []error
	)
	run := func(component string, p pinger) {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		c := Check{Component: component, Model: p.ModelName(), Err: p.Ping(pctx)}
		if c.Err != nil {
			errs = append(errs, fmt.Errorf("%s (%s): %w", component, c.Model, c.Err))
		}
		checks = append(checks, c)
	}
	if s.Embedding != nil {
		run("embedding", s.Embedding)
	}
	if s.LLM != nil {
		run("llm", s.LLM)
	}
	return checks, errors.Join(errs...)
}
