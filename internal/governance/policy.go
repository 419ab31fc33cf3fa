// Package governance decides whether a planned step may be dispatched to its
// capability provider.
package governance

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request describes one step about to be sent.
type Request struct {
	SessionID  string
	ServerName string
	Endpoint   string
	Payload    string
}

// Decision contains the outcome of a policy evaluation.
type Decision struct {
	Effect Effect
	Reason string
}

func (d Decision) Allowed() bool { return d.Effect != EffectDeny }

// Policy evaluates steps before dispatch.
type Policy interface {
	Evaluate(ctx context.Context, req Request) (Decision, error)
}

// RulePolicy denies by server name, endpoint host and payload pattern. The
// zero value allows everything.
type RulePolicy struct {
	DeniedServers map[string]bool
	AllowedHosts  map[string]bool
	DeniedRegex   []*regexp.Regexp
}

func NewRulePolicy() *RulePolicy {
	return &RulePolicy{
		DeniedServers: make(map[string]bool),
		AllowedHosts:  make(map[string]bool),
		DeniedRegex:   make([]*regexp.Regexp, 0),
	}
}

func (p *RulePolicy) DenyServer(name string) {
	if p.DeniedServers == nil {
		p.DeniedServers = make(map[string]bool)
	}
	p.DeniedServers[name] = true
}

// AllowHost restricts dispatch to the listed endpoint hosts. With no hosts
// listed every host is allowed.
func (p *RulePolicy) AllowHost(host string) {
	if p.AllowedHosts == nil {
		p.AllowedHosts = make(map[string]bool)
	}
	p.AllowedHosts[strings.ToLower(host)] = true
}

func (p *RulePolicy) DenyPayload(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	p.DeniedRegex = append(p.DeniedRegex, re)
	return nil
}

func (p *RulePolicy) Evaluate(ctx context.Context, req Request) (Decision, error) {
	if p.DeniedServers[req.ServerName] {
		return Decision{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("MCP Server '%s' is restricted by policy", req.ServerName),
		}, nil
	}

	if len(p.AllowedHosts) > 0 {
		u, err := url.Parse(req.Endpoint)
		if err != nil {
			return Decision{}, fmt.Errorf("parse endpoint %q: %w", req.Endpoint, err)
		}
		if !p.AllowedHosts[strings.ToLower(u.Hostname())] {
			return Decision{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("endpoint host '%s' is not allowed by policy", u.Hostname()),
			}, nil
		}
	}

	for _, re := range p.DeniedRegex {
		if re.MatchString(req.Payload) {
			return Decision{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("payload matches restricted pattern: %s", re.String()),
			}, nil
		}
	}

	return Decision{Effect: EffectAllow, Reason: "Approved by default policy"}, nil
}
