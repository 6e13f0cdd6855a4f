// Package ollama provides the reasoning-capability adapter using a
// local Ollama instance. Every model response is shape-validated
// before it leaves this package: an unparseable or malformed response
// is a domain.ErrReasoning, which the correlation state machine
// retries up to its bound.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/core/ports/driven"
)

// Ensure Reasoner implements the interface.
var _ driven.Reasoner = (*Reasoner)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Ollama reasoner.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Reasoner invokes an Ollama model for the correlation state machine's
// three structured calls: relevance selection, bridge proposal and
// report composition.
type Reasoner struct {
	client      *http.Client
	baseURL     string
	model       string
	promptStore driven.PromptStore
}

// chatRequest is the Ollama /api/chat request format. Format "json"
// constrains the model to emit a single JSON object.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  *options      `json:"options,omitempty"`
}

// chatMessage is the Ollama chat message format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// options holds generation parameters.
type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

// chatResponse is the Ollama /api/chat response format.
type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// NewReasoner creates a new Ollama reasoner.
func NewReasoner(cfg Config) *Reasoner {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Reasoner{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// defaultSelectRelevantPrompt is the fallback prompt when no PromptStore is configured.
const defaultSelectRelevantPrompt = `You are a threat-intelligence analyst. The user is investigating the software package %q.
Below is a list of vulnerability records retrieved from a local database. Some may concern
an unrelated product that shares a name with the package.

%s

Select the identifiers that genuinely concern the package. Respond with a single JSON object:
{"selected": ["CVE-...", ...]}
Use an empty list if none apply. Do not invent identifiers.`

// SelectRelevant picks which retrieved items concern the target package.
func (r *Reasoner) SelectRelevant(ctx context.Context, pkg string, items []domain.NormalizedItem) ([]string, error) {
	template := r.loadPrompt(driven.PromptSelectRelevant, defaultSelectRelevantPrompt)
	prompt := fmt.Sprintf(template, pkg, formatItems(items))

	raw, err := r.chatJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Selected []string `json:"selected"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: selection response is not the expected shape: %v", domain.ErrReasoning, err)
	}
	if parsed.Selected == nil {
		return nil, fmt.Errorf("%w: selection response missing 'selected' field", domain.ErrReasoning)
	}
	return parsed.Selected, nil
}

// defaultProposeBridgesPrompt is the fallback prompt when no PromptStore is configured.
const defaultProposeBridgesPrompt = `You are a threat-intelligence analyst. Link the vulnerability below to the attack
patterns that could exploit it.

Vulnerability:
%s

Attack patterns:
%s

Respond with a single JSON object:
{"bridges": [{"pattern_id": "CAPEC-...", "rationale": "...", "confidence": "low|medium|high"}]}
Only reference pattern identifiers from the list above. Use an empty list if none apply.`

// ProposeBridges links one CVE to the given attack-pattern items.
func (r *Reasoner) ProposeBridges(ctx context.Context, cve domain.NormalizedItem, patterns []domain.NormalizedItem) ([]domain.BridgeStatement, error) {
	template := r.loadPrompt(driven.PromptProposeBridges, defaultProposeBridgesPrompt)
	prompt := fmt.Sprintf(template, formatItems([]domain.NormalizedItem{cve}), formatItems(patterns))

	raw, err := r.chatJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Bridges []struct {
			PatternID  string `json:"pattern_id"`
			Rationale  string `json:"rationale"`
			Confidence string `json:"confidence"`
		} `json:"bridges"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: bridge response is not the expected shape: %v", domain.ErrReasoning, err)
	}
	if parsed.Bridges == nil {
		return nil, fmt.Errorf("%w: bridge response missing 'bridges' field", domain.ErrReasoning)
	}

	bridges := make([]domain.BridgeStatement, 0, len(parsed.Bridges))
	for _, b := range parsed.Bridges {
		bridges = append(bridges, domain.BridgeStatement{
			CVEID:      cve.NaturalKey,
			PatternID:  b.PatternID,
			Rationale:  strings.TrimSpace(b.Rationale),
			Confidence: domain.Confidence(strings.ToLower(strings.TrimSpace(b.Confidence))),
		})
	}
	return bridges, nil
}

// defaultComposeReportPrompt is the fallback prompt when no PromptStore is configured.
const defaultComposeReportPrompt = `You are a threat-intelligence analyst writing a short report about the package %q.
Summarize the vulnerabilities and attack-pattern links below for a developer audience.
Do not include exploit code, payloads, or attack commands.

%s

Write plain prose with a short mitigation note per vulnerability.`

// ComposeReport writes the free-text report body.
func (r *Reasoner) ComposeReport(ctx context.Context, pkg string, cves []domain.NormalizedItem, bridges []domain.BridgeStatement) (string, error) {
	template := r.loadPrompt(driven.PromptComposeReport, defaultComposeReportPrompt)
	prompt := fmt.Sprintf(template, pkg, formatFindings(cves, bridges))

	body, err := r.chat(ctx, prompt, "")
	if err != nil {
		return "", err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("%w: empty report body", domain.ErrReasoning)
	}
	return body, nil
}

// chatJSON sends one prompt in JSON mode and returns the raw response
// bytes after checking they form a JSON object.
func (r *Reasoner) chatJSON(ctx context.Context, prompt string) ([]byte, error) {
	content, err := r.chat(ctx, prompt, "json")
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("%w: response is not valid JSON", domain.ErrReasoning)
	}
	return []byte(content), nil
}

// chat sends one user message and returns the assistant content.
func (r *Reasoner) chat(ctx context.Context, prompt, format string) (string, error) {
	reqBody := chatRequest{
		Model:    r.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
		Format:   format,
		Options:  &options{Temperature: 0},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		r.baseURL+"/api/chat",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrReasoning, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("%w: ollama returned status %d", domain.ErrReasoning, resp.StatusCode)
		}
		return "", fmt.Errorf("%w: ollama returned status %d: %s", domain.ErrReasoning, resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrReasoning, err)
	}

	return chatResp.Message.Content, nil
}

// formatItems renders items as a compact listing for prompts.
func formatItems(items []domain.NormalizedItem) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s [%s]", item.NaturalKey, item.ItemType)
		if item.Severity != nil {
			fmt.Fprintf(&b, " (severity %.1f)", *item.Severity)
		}
		fmt.Fprintf(&b, ": %s\n", truncate(firstNonEmpty(item.Description, item.Title), 300))
	}
	if b.Len() == 0 {
		return "(no items)"
	}
	return b.String()
}

// formatFindings renders the evaluation outcome for report composition.
func formatFindings(cves []domain.NormalizedItem, bridges []domain.BridgeStatement) string {
	var b strings.Builder
	b.WriteString("Vulnerabilities:\n")
	b.WriteString(formatItems(cves))
	if len(bridges) > 0 {
		b.WriteString("\nAttack-pattern links:\n")
		for _, br := range bridges {
			fmt.Fprintf(&b, "- %s -> %s (%s): %s\n", br.CVEID, br.PatternID, br.Confidence, br.Rationale)
		}
	}
	return b.String()
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func (r *Reasoner) loadPrompt(name, fallback string) string {
	if r.promptStore == nil {
		return fallback
	}
	prompt, err := r.promptStore.Load(name)
	if err != nil {
		return fallback
	}
	return prompt
}

// SetPromptStore sets the prompt store for loading customisable prompts.
// If not set, the reasoner uses hardcoded default prompts.
func (r *Reasoner) SetPromptStore(store driven.PromptStore) {
	r.promptStore = store
}

// ModelName returns the name of the model being used.
func (r *Reasoner) ModelName() string {
	return r.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
// This is a lightweight check that validates connectivity without running inference.
func (r *Reasoner) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: API returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (r *Reasoner) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
