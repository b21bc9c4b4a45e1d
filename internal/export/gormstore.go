package export

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hudmol/yale-accession-marc-export/models"
)

// GormStore implements Store against the ArchivesSpace database.
type GormStore struct {
	db    *gorm.DB
	enums *EnumSource
}

func NewGormStore(db *gorm.DB, enums *EnumSource) *GormStore {
	return &GormStore{db: db, enums: enums}
}

type pendingPaymentRow struct {
	AccessionID     int64
	PaymentID       int64
	PaymentDate     time.Time
	Amount          decimal.Decimal
	InvoiceNumber   *string
	FundCodeID      *int64
	CostCenterID    *int64
	SpendCategoryID *int64
}

func (s *GormStore) PaymentsToProcess(runDate time.Time) ([]*models.PendingPayment, error) {
	var rows []pendingPaymentRow

	err := s.db.Table("payment").
		Joins("JOIN payment_summary ON payment.payment_summary_id = payment_summary.id").
		Where("payment.payment_date <= ?", runDate).
		Where("payment.ok_to_pay = ?", true).
		Where("payment.date_paid IS NULL").
		Select(`payment_summary.accession_id,
			payment.id AS payment_id,
			payment.payment_date,
			payment.amount,
			payment.invoice_number,
			payment.fund_code_id,
			payment.cost_center_id,
			payment_summary.spend_category_id`).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("selecting payments to process: %w", err)
	}

	payments := make([]*models.PendingPayment, 0, len(rows))
	for _, row := range rows {
		fundCode, err := s.enumValue(models.EnumPaymentFundCode, row.FundCodeID)
		if err != nil {
			return nil, err
		}
		costCenter, err := s.enumValue(models.EnumCostCenter, row.CostCenterID)
		if err != nil {
			return nil, err
		}
		spendCategory, err := s.enumValue(models.EnumSpendCategory, row.SpendCategoryID)
		if err != nil {
			return nil, err
		}

		invoice := ""
		if row.InvoiceNumber != nil {
			invoice = *row.InvoiceNumber
		}

		payments = append(payments, &models.PendingPayment{
			AccessionID:   row.AccessionID,
			PaymentID:     row.PaymentID,
			PaymentDate:   row.PaymentDate,
			Amount:        row.Amount,
			InvoiceNumber: invoice,
			FundCode:      fundCode,
			CostCenter:    costCenter,
			SpendCategory: spendCategory,
		})
	}

	return payments, nil
}

func (s *GormStore) enumValue(enumName string, id *int64) (string, error) {
	if id == nil {
		return "", nil
	}
	return s.enums.ValueForID(enumName, *id)
}

type vendorCodeRow struct {
	AccessionID              int64
	AgentPersonVendorCode    *string
	AgentCorporateVendorCode *string
	AgentFamilyVendorCode    *string
	AgentSoftwareVendorCode  *string
}

func (s *GormStore) VendorCodesForAccessions(accessionIDs []int64) (map[int64][]string, error) {
	if len(accessionIDs) == 0 {
		return map[int64][]string{}, nil
	}

	roleID, err := s.enums.IDForValue(models.EnumLinkedAgentRole, models.AgentRoleSource)
	if err != nil {
		return nil, err
	}
	relatorID, err := s.enums.IDForValue(models.EnumArchivalRelators, models.RelatorVendorDesignation)
	if err != nil {
		return nil, err
	}

	var rows []vendorCodeRow
	err = s.db.Table("linked_agents_rlshp").
		Joins("LEFT JOIN agent_person ON agent_person.id = linked_agents_rlshp.agent_person_id").
		Joins("LEFT JOIN agent_corporate_entity ON agent_corporate_entity.id = linked_agents_rlshp.agent_corporate_entity_id").
		Joins("LEFT JOIN agent_family ON agent_family.id = linked_agents_rlshp.agent_family_id").
		Joins("LEFT JOIN agent_software ON agent_software.id = linked_agents_rlshp.agent_software_id").
		Where(`agent_person.vendor_code IS NOT NULL
			OR agent_corporate_entity.vendor_code IS NOT NULL
			OR agent_family.vendor_code IS NOT NULL
			OR agent_software.vendor_code IS NOT NULL`).
		Where("linked_agents_rlshp.accession_id IN ?", accessionIDs).
		Where("linked_agents_rlshp.role_id = ?", roleID).
		Where("linked_agents_rlshp.relator_id = ?", relatorID).
		Select(`linked_agents_rlshp.accession_id,
			agent_person.vendor_code AS agent_person_vendor_code,
			agent_corporate_entity.vendor_code AS agent_corporate_vendor_code,
			agent_family.vendor_code AS agent_family_vendor_code,
			agent_software.vendor_code AS agent_software_vendor_code`).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("selecting vendor codes: %w", err)
	}

	result := make(map[int64][]string)
	for _, row := range rows {
		// First non-null vendor code wins for this agent link.
		var code string
		for _, candidate := range []*string{
			row.AgentPersonVendorCode,
			row.AgentCorporateVendorCode,
			row.AgentFamilyVendorCode,
			row.AgentSoftwareVendorCode,
		} {
			if candidate != nil && *candidate != "" {
				code = *candidate
				break
			}
		}
		if code == "" {
			continue
		}

		if !contains(result[row.AccessionID], code) {
			result[row.AccessionID] = append(result[row.AccessionID], code)
		}
	}

	return result, nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func (s *GormStore) ResolveAccessions(accessionIDs []int64) (map[int64]*models.ResolvedAccession, error) {
	if len(accessionIDs) == 0 {
		return map[int64]*models.ResolvedAccession{}, nil
	}

	var accessions []models.Accession
	if err := s.db.Where("id IN ?", accessionIDs).Find(&accessions).Error; err != nil {
		return nil, fmt.Errorf("loading accessions: %w", err)
	}

	result := make(map[int64]*models.ResolvedAccession, len(accessions))
	for _, accession := range accessions {
		result[accession.ID] = &models.ResolvedAccession{Accession: accession}
	}

	if err := s.attachDates(result, accessionIDs); err != nil {
		return nil, err
	}
	if err := s.attachExtents(result, accessionIDs); err != nil {
		return nil, err
	}
	if err := s.attachAgents(result, accessionIDs); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *GormStore) attachDates(result map[int64]*models.ResolvedAccession, accessionIDs []int64) error {
	var dates []models.AccessionDate
	if err := s.db.Where("accession_id IN ?", accessionIDs).Order("id").Find(&dates).Error; err != nil {
		return fmt.Errorf("loading accession dates: %w", err)
	}

	for _, date := range dates {
		accession, ok := result[date.AccessionID]
		if !ok {
			continue
		}

		dateType, err := s.enumValue(models.EnumDateType, date.DateTypeID)
		if err != nil {
			return err
		}

		accession.Dates = append(accession.Dates, models.DateStatement{
			Type:       dateType,
			Expression: deref(date.Expression),
			Begin:      deref(date.Begin),
			End:        deref(date.End),
		})
	}

	return nil
}

func (s *GormStore) attachExtents(result map[int64]*models.ResolvedAccession, accessionIDs []int64) error {
	var extents []models.Extent
	if err := s.db.Where("accession_id IN ?", accessionIDs).Order("id").Find(&extents).Error; err != nil {
		return fmt.Errorf("loading accession extents: %w", err)
	}

	for _, extent := range extents {
		accession, ok := result[extent.AccessionID]
		if !ok {
			continue
		}

		extentType, err := s.enumValue(models.EnumExtentType, extent.ExtentTypeID)
		if err != nil {
			return err
		}

		accession.Extents = append(accession.Extents, models.ExtentStatement{
			Number:           extent.Number,
			Type:             extentType,
			ContainerSummary: deref(extent.ContainerSummary),
		})
	}

	return nil
}

type agentName struct {
	ID         int64
	SortName   string
	VendorCode *string
}

// agentSubtypes maps each agent table to its display-name table.
var agentSubtypes = []struct {
	agentType string
	table     string
	nameTable string
}{
	{models.AgentTypePerson, "agent_person", "name_person"},
	{models.AgentTypeCorporateEntity, "agent_corporate_entity", "name_corporate_entity"},
	{models.AgentTypeFamily, "agent_family", "name_family"},
	{models.AgentTypeSoftware, "agent_software", "name_software"},
}

func (s *GormStore) attachAgents(result map[int64]*models.ResolvedAccession, accessionIDs []int64) error {
	var links []models.LinkedAgentRelationship
	if err := s.db.Where("accession_id IN ?", accessionIDs).Order("id").Find(&links).Error; err != nil {
		return fmt.Errorf("loading linked agents: %w", err)
	}

	// Collect agent ids per subtype, then batch the name lookups.
	idsByType := make(map[string][]int64)
	for _, link := range links {
		agentType, agentID := linkTarget(link)
		if agentType == "" {
			continue
		}
		idsByType[agentType] = append(idsByType[agentType], agentID)
	}

	namesByType := make(map[string]map[int64]agentName)
	for _, subtype := range agentSubtypes {
		ids := idsByType[subtype.agentType]
		if len(ids) == 0 {
			continue
		}

		names, err := s.agentNames(subtype.table, subtype.nameTable, ids)
		if err != nil {
			return err
		}
		namesByType[subtype.agentType] = names
	}

	for _, link := range links {
		if link.AccessionID == nil {
			continue
		}
		accession, ok := result[*link.AccessionID]
		if !ok {
			continue
		}

		agentType, agentID := linkTarget(link)
		if agentType == "" {
			continue
		}

		role, err := s.enumValue(models.EnumLinkedAgentRole, link.RoleID)
		if err != nil {
			return err
		}
		relator, err := s.enumValue(models.EnumArchivalRelators, link.RelatorID)
		if err != nil {
			return err
		}

		name := namesByType[agentType][agentID]

		accession.Agents = append(accession.Agents, models.LinkedAgent{
			AgentType:  agentType,
			Role:       role,
			Relator:    relator,
			SortName:   name.SortName,
			VendorCode: deref(name.VendorCode),
		})
	}

	return nil
}

func linkTarget(link models.LinkedAgentRelationship) (string, int64) {
	switch {
	case link.AgentPersonID != nil:
		return models.AgentTypePerson, *link.AgentPersonID
	case link.AgentCorporateEntityID != nil:
		return models.AgentTypeCorporateEntity, *link.AgentCorporateEntityID
	case link.AgentFamilyID != nil:
		return models.AgentTypeFamily, *link.AgentFamilyID
	case link.AgentSoftwareID != nil:
		return models.AgentTypeSoftware, *link.AgentSoftwareID
	default:
		return "", 0
	}
}

func (s *GormStore) agentNames(table, nameTable string, ids []int64) (map[int64]agentName, error) {
	var rows []agentName

	err := s.db.Table(table).
		Joins(fmt.Sprintf("JOIN %s ON %s.%s_id = %s.id AND %s.is_display_name = ?",
			nameTable, nameTable, table, table, nameTable), true).
		Where(table+".id IN ?", ids).
		Select(fmt.Sprintf("%s.id AS id, %s.sort_name AS sort_name, %s.vendor_code AS vendor_code",
			table, nameTable, table)).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading %s names: %w", table, err)
	}

	result := make(map[int64]agentName, len(rows))
	for _, row := range rows {
		result[row.ID] = row
	}

	return result, nil
}

// MarkPaymentsProcessed commits one vendor's batch: date_paid on every
// payment plus the parent accessions' modification bump, in one transaction.
func (s *GormStore) MarkPaymentsProcessed(payments []*models.PendingPayment, runDate time.Time) error {
	if len(payments) == 0 {
		return nil
	}

	paymentIDs := make([]int64, 0, len(payments))
	accessionIDs := make([]int64, 0, len(payments))
	for _, payment := range payments {
		paymentIDs = append(paymentIDs, payment.PaymentID)
		if !containsID(accessionIDs, payment.AccessionID) {
			accessionIDs = append(accessionIDs, payment.AccessionID)
		}
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("starting commit transaction: %w", tx.Error)
	}

	if err := tx.Model(&models.Payment{}).
		Where("id IN ?", paymentIDs).
		Update("date_paid", runDate).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("marking payments paid: %w", err)
	}

	if err := tx.Model(&models.Accession{}).
		Where("id IN ?", accessionIDs).
		Updates(map[string]interface{}{
			"lock_version": gorm.Expr("lock_version + 1"),
			"system_mtime": time.Now(),
		}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("bumping accession versions: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("committing processed payments: %w", err)
	}

	return nil
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
