package export

import (
	"fmt"

	"github.com/hudmol/yale-accession-marc-export/internal/marc"
	"github.com/hudmol/yale-accession-marc-export/models"
)

// StandardAgentMapper renders creator agents with the host's standard
// field/indicator assignments per agent subtype.
type StandardAgentMapper struct{}

func (StandardAgentMapper) CreatorFields(accession *models.ResolvedAccession) ([]marc.DataField, error) {
	var fields []marc.DataField

	for _, agent := range accession.Agents {
		if agent.Role != models.AgentRoleCreator {
			continue
		}

		var tag, ind1 string
		switch agent.AgentType {
		case models.AgentTypePerson:
			tag, ind1 = "100", "1"
		case models.AgentTypeFamily:
			tag, ind1 = "100", "3"
		case models.AgentTypeCorporateEntity:
			tag, ind1 = "110", "2"
		case models.AgentTypeSoftware:
			tag, ind1 = "710", "2"
		default:
			return nil, fmt.Errorf("creator agent has unknown subtype %q", agent.AgentType)
		}

		subfields := []marc.Subfield{marc.Sub('a', agent.SortName)}
		if agent.Relator != "" {
			subfields = append(subfields, marc.Sub('e', agent.Relator))
		}

		fields = append(fields, marc.NewDataField(tag, ind1, "", subfields...))
	}

	return fields, nil
}
