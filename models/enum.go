package models

// Enumeration names used by the exporter.
const (
	EnumPaymentFundCode  = "payment_fund_code"
	EnumCostCenter       = "payments_module_cost_center"
	EnumSpendCategory    = "payments_module_spend_category"
	EnumLinkedAgentRole  = "linked_agent_role"
	EnumArchivalRelators = "linked_agent_archival_record_relators"
	EnumDateType         = "date_type"
	EnumExtentType       = "extent_extent_type"
)

type Enumeration struct {
	ID   int64  `json:"id" gorm:"primaryKey"`
	Name string `json:"name"`
}

func (Enumeration) TableName() string { return "enumeration" }

type EnumerationValue struct {
	ID            int64  `json:"id" gorm:"primaryKey"`
	EnumerationID int64  `json:"enumerationId"`
	Value         string `json:"value"`
}

func (EnumerationValue) TableName() string { return "enumeration_value" }
