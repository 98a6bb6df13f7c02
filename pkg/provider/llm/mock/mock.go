// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify the prompts the narrator builds and
// to feed controlled replies without a live LLM backend.
package mock

import (
	"context"
	"sync"

	"github.com/strmhost/iris/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	Ctx context.Context
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider. Zero values for the
// response fields cause Complete to return nil, nil. Set Err to inject a
// failure.
type Provider struct {
	mu sync.Mutex

	// Response is returned by Complete. May be nil.
	Response *llm.CompletionResponse

	// Err, if non-nil, is returned by Complete instead of Response.
	Err error

	// Calls records every invocation of Complete in order.
	Calls []CompleteCall
}

// Compile-time interface check.
var _ llm.Provider = (*Provider)(nil)

// Complete records the call and returns Response, Err.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, CompleteCall{Ctx: ctx, Req: req})
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Response, nil
}

// CallCount returns the number of recorded Complete calls.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// LastCall returns the most recent call, or nil when none were made.
func (p *Provider) LastCall() *CompleteCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Calls) == 0 {
		return nil
	}
	c := p.Calls[len(p.Calls)-1]
	return &c
}

// Reset clears all recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}
