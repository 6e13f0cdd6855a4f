package driven

// PromptStore provides access to reasoner prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Returns the prompt content and any error encountered.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptSelectRelevant asks the model to pick relevant items.
	// The template expects %s (package) and %s (item listing).
	PromptSelectRelevant = "select_relevant"

	// PromptProposeBridges asks the model to link a CVE to attack
	// patterns. The template expects %s (CVE block) and %s (pattern
	// listing).
	PromptProposeBridges = "propose_bridges"

	// PromptComposeReport asks the model to write the report body.
	// The template expects %s (package) and %s (findings block).
	PromptComposeReport = "compose_report"
)
