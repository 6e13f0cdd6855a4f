// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Fetcher: Fetches raw documents from an intelligence source
//   - Specialist: Extracts candidates from a raw document
//   - SpecialistRegistry: Selects the specialist for a source
//   - ItemStore: Normalized item persistence (append-only, versioned)
//   - RejectedStore: Rejected candidate audit log
//   - FetchLogStore: Fetch attempt records
//   - BridgeStore: Bridge statement persistence
//   - RawArchive: Archived raw payloads (provenance reference)
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - Reasoner: The language-reasoning capability. Required only for
//     correlation runs; ingestion and retrieval work without it.
//   - PromptStore: Customisable prompt templates for the Reasoner.
//   - TraceSink: Correlation run trace events. Nil disables tracing.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or specialist package
package driven
