package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/relay/internal/classify"
)

const (
	EnvTriageClassifier       = "RELAY_TRIAGE_CLASSIFIER"
	EnvTriageConfidenceFloor  = "RELAY_TRIAGE_CONFIDENCE_FLOOR"
	EnvTriageLoopThreshold    = "RELAY_TRIAGE_LOOP_THRESHOLD"
	EnvTriageStaleAge         = "RELAY_TRIAGE_STALE_AGE"
	EnvTriageEscalationTarget = "RELAY_TRIAGE_ESCALATION_TARGET"
	EnvTriageInternalDomains  = "RELAY_TRIAGE_INTERNAL_DOMAINS"

	EnvVerificationEnabled = "RELAY_VERIFICATION_ENABLED"
	EnvVerificationBaseURL = "RELAY_VERIFICATION_BASE_URL"
	EnvVerificationToken   = "RELAY_VERIFICATION_TOKEN"
	EnvVerificationTimeout = "RELAY_VERIFICATION_TIMEOUT"
)

// TriageConfig holds the tunable behavior of the triage pipeline: classifier
// selection, confidence and loop thresholds, sender filtering vocabularies,
// and the policy gate's signature lists.
type TriageConfig struct {
	Classifier         string   `toml:"classifier"`
	ConfidenceFloor    float64  `toml:"confidence_floor"`
	LoopThreshold      int      `toml:"loop_threshold"`
	StaleAge           string   `toml:"stale_age"`
	EscalationTarget   string   `toml:"escalation_target"`
	InternalDomains    []string `toml:"internal_domains"`
	AutomatedSenders   []string `toml:"automated_senders"`
	AutomatedSubjects  []string `toml:"automated_subjects"`
	ApprovedSignatures []string `toml:"approved_signatures"`
	BannedSigners      []string `toml:"banned_signers"`

	Verification VerificationConfig `toml:"verification"`
}

// VerificationConfig holds connection settings for the order verification
// service. Verification is skipped entirely when disabled.
type VerificationConfig struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
	Timeout string `toml:"timeout"`
}

// StaleAgeDuration returns StaleAge as a time.Duration.
func (c *TriageConfig) StaleAgeDuration() time.Duration {
	d, _ := time.ParseDuration(c.StaleAge)
	return d
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *VerificationConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *TriageConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *TriageConfig) Merge(overlay *TriageConfig) {
	if overlay.Classifier != "" {
		c.Classifier = overlay.Classifier
	}
	if overlay.ConfidenceFloor != 0 {
		c.ConfidenceFloor = overlay.ConfidenceFloor
	}
	if overlay.LoopThreshold != 0 {
		c.LoopThreshold = overlay.LoopThreshold
	}
	if overlay.StaleAge != "" {
		c.StaleAge = overlay.StaleAge
	}
	if overlay.EscalationTarget != "" {
		c.EscalationTarget = overlay.EscalationTarget
	}
	if len(overlay.InternalDomains) > 0 {
		c.InternalDomains = overlay.InternalDomains
	}
	if len(overlay.AutomatedSenders) > 0 {
		c.AutomatedSenders = overlay.AutomatedSenders
	}
	if len(overlay.AutomatedSubjects) > 0 {
		c.AutomatedSubjects = overlay.AutomatedSubjects
	}
	if len(overlay.ApprovedSignatures) > 0 {
		c.ApprovedSignatures = overlay.ApprovedSignatures
	}
	if len(overlay.BannedSigners) > 0 {
		c.BannedSigners = overlay.BannedSigners
	}

	if overlay.Verification.Enabled {
		c.Verification.Enabled = true
	}
	if overlay.Verification.BaseURL != "" {
		c.Verification.BaseURL = overlay.Verification.BaseURL
	}
	if overlay.Verification.Token != "" {
		c.Verification.Token = overlay.Verification.Token
	}
	if overlay.Verification.Timeout != "" {
		c.Verification.Timeout = overlay.Verification.Timeout
	}
}

func (c *TriageConfig) loadDefaults() {
	if c.Classifier == "" {
		c.Classifier = classify.ModeAgent
	}
	if c.ConfidenceFloor == 0 {
		c.ConfidenceFloor = 0.6
	}
	if c.LoopThreshold == 0 {
		c.LoopThreshold = 2
	}
	if c.StaleAge == "" {
		c.StaleAge = "168h"
	}
	if c.EscalationTarget == "" {
		c.EscalationTarget = "support-escalations"
	}
	if len(c.AutomatedSenders) == 0 {
		c.AutomatedSenders = []string{
			"noreply@", "no-reply@", "mailer-daemon@", "postmaster@",
			"donotreply@", "do-not-reply@",
		}
	}
	if len(c.AutomatedSubjects) == 0 {
		c.AutomatedSubjects = []string{
			"out of office", "automatic reply", "auto-reply",
			"delivery status notification", "undeliverable",
		}
	}
	if len(c.ApprovedSignatures) == 0 {
		c.ApprovedSignatures = []string{"The Support Team"}
	}
	if c.Verification.Timeout == "" {
		c.Verification.Timeout = "10s"
	}
}

func (c *TriageConfig) loadEnv() {
	if v := os.Getenv(EnvTriageClassifier); v != "" {
		c.Classifier = v
	}
	if v := os.Getenv(EnvTriageConfidenceFloor); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.ConfidenceFloor = f
		}
	}
	if v := os.Getenv(EnvTriageLoopThreshold); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.LoopThreshold = n
		}
	}
	if v := os.Getenv(EnvTriageStaleAge); v != "" {
		c.StaleAge = v
	}
	if v := os.Getenv(EnvTriageEscalationTarget); v != "" {
		c.EscalationTarget = v
	}
	if v := os.Getenv(EnvTriageInternalDomains); v != "" {
		c.InternalDomains = strings.Split(v, ",")
	}

	if v := os.Getenv(EnvVerificationEnabled); v != "" {
		c.Verification.Enabled = v == "true"
	}
	if v := os.Getenv(EnvVerificationBaseURL); v != "" {
		c.Verification.BaseURL = v
	}
	if v := os.Getenv(EnvVerificationToken); v != "" {
		c.Verification.Token = v
	}
	if v := os.Getenv(EnvVerificationTimeout); v != "" {
		c.Verification.Timeout = v
	}
}

func (c *TriageConfig) validate() error {
	if c.Classifier != classify.ModeAgent && c.Classifier != classify.ModeRules {
		return fmt.Errorf("invalid classifier: %s", c.Classifier)
	}
	if c.ConfidenceFloor < 0 || c.ConfidenceFloor > 1 {
		return fmt.Errorf("confidence_floor out of range: %f", c.ConfidenceFloor)
	}
	if c.LoopThreshold < 1 {
		return fmt.Errorf("loop_threshold must be at least 1: %d", c.LoopThreshold)
	}
	if _, err := time.ParseDuration(c.StaleAge); err != nil {
		return fmt.Errorf("invalid stale_age: %w", err)
	}
	if c.Verification.Enabled {
		if c.Verification.BaseURL == "" {
			return fmt.Errorf("verification enabled without base_url")
		}
		if _, err := time.ParseDuration(c.Verification.Timeout); err != nil {
			return fmt.Errorf("invalid verification timeout: %w", err)
		}
	}
	return nil
}
