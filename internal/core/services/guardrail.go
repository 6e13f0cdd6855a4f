package services

import (
	"regexp"
	"strings"
)

// GuardrailAction is the outcome class of a guardrail check.
type GuardrailAction string

// Guardrail outcomes.
const (
	GuardrailAccept GuardrailAction = "accept"
	GuardrailRedact GuardrailAction = "redact"
	GuardrailReject GuardrailAction = "reject"
)

// RedactionPlaceholder replaces every matched segment, so readers can
// see that something was removed without learning what.
const RedactionPlaceholder = "[removed: operational exploit detail]"

// GuardrailVerdict is the result of checking a report body. Text
// carries the (possibly redacted) body for Accept and Redact; Reason
// is set only for Reject.
type GuardrailVerdict struct {
	Action GuardrailAction
	Text   string
	Reason string
}

// guardrailRule pairs a pattern with a short name for diagnostics.
type guardrailRule struct {
	name    string
	pattern *regexp.Regexp
}

// Guardrail is the deterministic output-safety policy applied to every
// report before emission. It is pattern-based on purpose: its behavior
// must be testable independently of the reasoning capability.
type Guardrail struct {
	rules []guardrailRule
}

// NewGuardrail creates the policy with its built-in rule set. Matched
// segments are replaced with RedactionPlaceholder; if redaction would
// strip every rationale line, the whole report is rejected instead.
func NewGuardrail() *Guardrail {
	return &Guardrail{rules: []guardrailRule{
		{
			// Fenced code blocks carrying shell or exploit construction.
			name: "exploit_code_block",
			pattern: regexp.MustCompile(
				"(?s)```(?:sh|bash|shell|console|python|c|powershell)?\\n" +
					"[^`]*?(?:msfvenom|msfconsole|meterpreter|reverse shell|/bin/sh|/bin/bash|nc -e|payload)[^`]*?```"),
		},
		{
			// Raw framework invocations outside code fences.
			name:    "exploit_framework",
			pattern: regexp.MustCompile(`(?im)^.*\b(?:msfvenom|msfconsole|metasploit)\b.*$`),
		},
		{
			// Shellcode byte runs.
			name:    "shellcode",
			pattern: regexp.MustCompile(`(?:\\x[0-9a-fA-F]{2}){8,}`),
		},
		{
			// Command-injection payload sequences.
			name:    "command_injection",
			pattern: regexp.MustCompile("(?i)(?:;|&&|\\|\\|)\\s*(?:rm\\s+-rf|cat\\s+/etc/passwd|nc\\s+-e)[^\\n]*"),
		},
		{
			// Pipe-a-download-to-a-shell one-liners.
			name:    "curl_pipe_shell",
			pattern: regexp.MustCompile(`(?i)\b(?:curl|wget)\b[^\n|]*\|\s*(?:sudo\s+)?(?:ba)?sh\b[^\n]*`),
		},
	}}
}

// Check applies the rule set to a report body.
//
// An untouched body is accepted. A body with matches is redacted, each
// match replaced by the fixed placeholder. If redaction leaves no
// rationale text behind (only placeholders and whitespace), the report
// is rejected outright: an empty shell of a report is worse than a
// failed run.
func (g *Guardrail) Check(report string) GuardrailVerdict {
	redacted := report
	var matched []string
	for _, rule := range g.rules {
		if rule.pattern.MatchString(redacted) {
			matched = append(matched, rule.name)
			redacted = rule.pattern.ReplaceAllString(redacted, RedactionPlaceholder)
		}
	}

	if len(matched) == 0 {
		return GuardrailVerdict{Action: GuardrailAccept, Text: report}
	}

	if !hasRationale(redacted) {
		return GuardrailVerdict{
			Action: GuardrailReject,
			Reason: "redaction (" + strings.Join(matched, ", ") + ") would remove the entire rationale",
		}
	}

	return GuardrailVerdict{Action: GuardrailRedact, Text: redacted}
}

// hasRationale reports whether any substantive line survives after
// redaction. Placeholder-only and blank lines do not count.
func hasRationale(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		stripped := strings.TrimSpace(strings.ReplaceAll(line, RedactionPlaceholder, ""))
		if stripped != "" && stripped != "```" {
			return true
		}
	}
	return false
}
