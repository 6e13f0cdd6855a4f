// Package mitre extracts ATT&CK technique candidates.
package mitre

import (
	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/specialists/stix"
)

// refSourceName is the external reference carrying T-numbers.
const refSourceName = "mitre-attack"

// NewSpecialist creates a MITRE ATT&CK specialist.
func NewSpecialist() *stix.Specialist {
	return stix.NewSpecialist(domain.SourceMITRE, refSourceName)
}
