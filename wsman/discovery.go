package wsman

import (
	"context"
	"fmt"
)

// Identify asks the service to describe itself. It needs no shell and is the
// cheapest way to check that an endpoint speaks WS-Management. The request
// header is empty; the identity schema does not allow addressing headers.
func (p *Protocol) Identify(ctx context.Context) (*IdentifyResponse, error) {
	env := &Envelope{
		Header: &Header{},
		Body:   &Body{Identify: &Identify{}},
	}

	resp, err := p.roundTrip(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("identify: %w", err)
	}
	if resp.Body == nil || resp.Body.IdentifyResponse == nil {
		return nil, fmt.Errorf("identify: %w", ErrUnexpectedResponse)
	}
	return resp.Body.IdentifyResponse, nil
}

// GetConfig retrieves the WinRM service limits.
func (p *Protocol) GetConfig(ctx context.Context) (*ServiceConfig, error) {
	env := p.newEnvelope(ActionGet, ResourceURIConfig, 0)

	resp, err := p.roundTrip(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("get config: %w", err)
	}
	if resp.Body == nil || resp.Body.Config == nil {
		return nil, fmt.Errorf("get config: %w", ErrUnexpectedResponse)
	}
	return resp.Body.Config, nil
}

// EnumerateShells lists the shells the authenticated user owns on the
// server. It issues an optimized Enumerate and pulls until the server
// reports the end of the sequence.
func (p *Protocol) EnumerateShells(ctx context.Context) ([]Shell, error) {
	env := p.newEnvelope(ActionEnumerate, ResourceURIShell, 0)
	env.Body.Enumerate = &Enumerate{
		OptimizeEnumeration: &Empty{},
		MaxElements:         enumerationMaxElements,
	}

	resp, err := p.roundTrip(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("enumerate shells: %w", err)
	}
	er := resp.Body.EnumerateResponse
	if er == nil {
		return nil, fmt.Errorf("enumerate shells: %w", ErrUnexpectedResponse)
	}

	var shells []Shell
	if er.Items != nil {
		shells = append(shells, er.Items.Shells...)
	}
	done := er.EndOfSequence != nil
	enumCtx := er.EnumerationContext

	for !done && enumCtx != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pull := p.newEnvelope(ActionPull, ResourceURIShell, 0)
		pull.Body.Pull = &Pull{EnumerationContext: enumCtx, MaxElements: enumerationMaxElements}

		resp, err := p.roundTrip(ctx, pull)
		if err != nil {
			return nil, fmt.Errorf("pull shells: %w", err)
		}
		pr := resp.Body.PullResponse
		if pr == nil {
			return nil, fmt.Errorf("pull shells: %w", ErrUnexpectedResponse)
		}
		if pr.Items != nil {
			shells = append(shells, pr.Items.Shells...)
		}
		done = pr.EndOfSequence != nil
		enumCtx = pr.EnumerationContext
	}

	p.logger.Debug("enumerated shells", "count", len(shells))
	return shells, nil
}
