package models

// Agent subtypes as stored in linked_agents_rlshp foreign keys.
const (
	AgentTypePerson          = "agent_person"
	AgentTypeCorporateEntity = "agent_corporate_entity"
	AgentTypeFamily          = "agent_family"
	AgentTypeSoftware        = "agent_software"
)

// Linked-agent roles the exporter cares about.
const (
	AgentRoleSource  = "source"
	AgentRoleCreator = "creator"
)

// RelatorVendorDesignation marks a source agent as the accession's vendor.
const RelatorVendorDesignation = "bsl"

// LinkedAgent is one agent link on an accession, flattened across the four
// agent subtypes with role and relator resolved to enumeration values.
type LinkedAgent struct {
	AgentType  string
	Role       string
	Relator    string
	SortName   string
	VendorCode string
}

// LinkedAgentRelationship is the raw link row.
type LinkedAgentRelationship struct {
	ID                     int64  `json:"id" gorm:"primaryKey"`
	AccessionID            *int64 `json:"accessionId"`
	AgentPersonID          *int64 `json:"agentPersonId"`
	AgentCorporateEntityID *int64 `json:"agentCorporateEntityId"`
	AgentFamilyID          *int64 `json:"agentFamilyId"`
	AgentSoftwareID        *int64 `json:"agentSoftwareId"`
	RoleID                 *int64 `json:"roleId"`
	RelatorID              *int64 `json:"relatorId"`
}

func (LinkedAgentRelationship) TableName() string { return "linked_agents_rlshp" }
