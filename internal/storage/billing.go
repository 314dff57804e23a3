package storage

import (
	"sort"
	"time"

	"radiowave/internal/models"
)

// GenerateBillingRecord creates a pending invoice for the client based on its
// monthly fee. The billing period is the current calendar month and the due
// date falls thirty days out.
func (s *Storage) GenerateBillingRecord(clientID string) (models.BillingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, ok := s.data.Clients[clientID]
	if !ok {
		return models.BillingRecord{}, notFoundf("client %s not found", clientID)
	}

	id, err := generateID()
	if err != nil {
		return models.BillingRecord{}, err
	}

	now := time.Now().UTC()
	record := models.BillingRecord{
		ID:            id,
		ClientID:      clientID,
		Amount:        client.MonthlyFee,
		Status:        models.BillingStatusPending,
		BillingPeriod: currentBillingPeriod(),
		DueDate:       now.AddDate(0, 0, 30),
		CreatedAt:     now,
	}

	s.data.Billing[id] = record
	if err := s.persist(); err != nil {
		delete(s.data.Billing, id)
		return models.BillingRecord{}, err
	}

	return record, nil
}

// ListBillingRecords returns invoices newest first, optionally filtered to a
// single client.
func (s *Storage) ListBillingRecords(clientID string) []models.BillingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]models.BillingRecord, 0, len(s.data.Billing))
	for _, record := range s.data.Billing {
		if clientID != "" && record.ClientID != clientID {
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records
}

// UpdateBillingStatus moves an invoice to a new status. Marking an invoice
// paid stamps paidDate; moving it away from paid clears the stamp.
func (s *Storage) UpdateBillingStatus(id, status string) (models.BillingRecord, error) {
	normalized, err := models.ValidateBillingStatus(status)
	if err != nil {
		return models.BillingRecord{}, validationf("%v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)
	record, ok := updatedData.Billing[id]
	if !ok {
		return models.BillingRecord{}, notFoundf("billing record %s not found", id)
	}

	record.Status = normalized
	if normalized == models.BillingStatusPaid {
		now := time.Now().UTC()
		record.PaidDate = &now
	} else {
		record.PaidDate = nil
	}
	updatedData.Billing[id] = record

	if err := s.persistDataset(updatedData); err != nil {
		return models.BillingRecord{}, err
	}

	s.data = updatedData

	return record, nil
}
