// Package file provides file-based configuration and prompt storage
// for vigil. Configuration lives in ~/.vigil/config.toml; reasoner
// prompts are user-editable text files under ~/.vigil/prompts/.
package file
