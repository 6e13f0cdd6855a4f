// Package capec extracts CAPEC attack-pattern candidates.
package capec

import (
	"github.com/custodia-labs/vigil-cli/internal/core/domain"
	"github.com/custodia-labs/vigil-cli/internal/specialists/stix"
)

// refSourceName is the external reference carrying CAPEC numbers.
const refSourceName = "capec"

// NewSpecialist creates a CAPEC specialist.
func NewSpecialist() *stix.Specialist {
	return stix.NewSpecialist(domain.SourceCAPEC, refSourceName)
}
