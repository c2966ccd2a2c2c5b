// Package policy implements Relay's outbound text safety checks: the policy
// gate that blocks unauthorized commitment language, and the promised-action
// auditor that catalogs commitment-like phrases for audit review.
package policy

import (
	"fmt"
	"regexp"
	"strings"
)

// GateConfig holds the configurable half of the gate: which signatures are
// acceptable and which signer identities may never appear. Banned phrase
// patterns are fixed; signatures vary per deployment.
type GateConfig struct {
	ApprovedSignatures []string
	BannedSigners      []string
}

// GateResult reports a pass/fail decision with the violated rule
// descriptions. Violations is empty iff OK is true.
type GateResult struct {
	OK         bool     `json:"ok"`
	Violations []string `json:"violations"`
}

type bannedPhrase struct {
	pattern     *regexp.Regexp
	description string
}

func banned(pattern, description string) bannedPhrase {
	return bannedPhrase{
		pattern:     regexp.MustCompile(`(?i)` + pattern),
		description: description,
	}
}

// Explicit guarantee language and unconditional future-tense commitments.
// These never depend on deployment configuration.
var bannedPhrases = []bannedPhrase{
	banned(`\b(i|we) guarantee\b`, "explicit guarantee language"),
	banned(`\bguaranteed\b`, "explicit guarantee language"),
	banned(`\b(i|we) promise\b`, "explicit promise language"),
	banned(`\b(i|we) will (issue|process|send) (a |your |the )?refund\b`, "unconditional refund commitment"),
	banned(`\byou will (be refunded|receive (a |your |the )?refund)\b`, "unconditional refund commitment"),
	banned(`\b(i|we) will (replace|send (you )?a (new|replacement))\b`, "unconditional replacement commitment"),
	banned(`\b(it|your order|the replacement) will ship (today|tomorrow|this week)\b`, "unconditional shipping commitment"),
	banned(`\byou will (receive|have) (it|your order|the package) (by|within|before)\b`, "unconditional delivery date commitment"),
}

var genericSigners = []string{"the team", "the support team", "customer service"}

// Gate is the pass/fail safety check every generated or macro draft passes
// through before it is treated as sendable. Check is pure and synchronous.
type Gate struct {
	cfg GateConfig
}

// NewGate creates a policy gate with the given signature configuration.
func NewGate(cfg GateConfig) *Gate {
	return &Gate{cfg: cfg}
}

// Check scans draft text against the banned phrase list and the signature
// rule. It never mutates the draft; callers decide what a failure means.
func (g *Gate) Check(text string) GateResult {
	var violations []string

	for _, b := range bannedPhrases {
		if b.pattern.MatchString(text) {
			violations = append(violations, b.description)
		}
	}

	if v := g.checkSignature(text); v != "" {
		violations = append(violations, v)
	}

	return GateResult{
		OK:         len(violations) == 0,
		Violations: violations,
	}
}

func (g *Gate) checkSignature(text string) string {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	for _, signer := range g.cfg.BannedSigners {
		if signer != "" && strings.HasSuffix(lower, strings.ToLower(signer)) {
			return fmt.Sprintf("signature from disallowed identity %q", signer)
		}
	}

	for _, generic := range genericSigners {
		if strings.HasSuffix(lower, generic) {
			return "generic team signature is not permitted"
		}
	}

	for _, sig := range g.cfg.ApprovedSignatures {
		if sig != "" && strings.HasSuffix(trimmed, sig) {
			return ""
		}
	}

	return "draft does not end with an approved signature"
}
