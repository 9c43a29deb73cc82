// Package invoice implements invoice writes and reads. Every write runs in a
// single transaction: entity resolution, the invoice row, its line items and
// the audit row commit or roll back together.
package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"invoice-manager-backend/internal/apperror"
	"invoice-manager-backend/internal/events"
	"invoice-manager-backend/internal/logger"
	"invoice-manager-backend/internal/models"
	"invoice-manager-backend/internal/repository"
	"invoice-manager-backend/internal/services/idgen"
	"invoice-manager-backend/internal/services/lineitems"
	"invoice-manager-backend/internal/services/reconciliation"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db        *gorm.DB
	invoices  *repository.InvoiceRepository
	clients   *repository.ClientRepository
	addresses *repository.AddressRepository
	lineItems *repository.LineItemRepository
	audit     *repository.AuditLogRepository
	engine    *reconciliation.Engine
	ids       *idgen.Generator
	publisher events.Publisher
	log       *logger.Logger
}

func NewService(
	invoices *repository.InvoiceRepository,
	clients *repository.ClientRepository,
	addresses *repository.AddressRepository,
	lineItems *repository.LineItemRepository,
	audit *repository.AuditLogRepository,
	engine *reconciliation.Engine,
	ids *idgen.Generator,
	publisher events.Publisher,
	log *logger.Logger,
) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		db:        invoices.DB(),
		invoices:  invoices,
		clients:   clients,
		addresses: addresses,
		lineItems: lineItems,
		audit:     audit,
		engine:    engine,
		ids:       ids,
		publisher: publisher,
		log:       log.WithComponent("invoice"),
	}
}

// Create stores a new invoice and returns its id. Pending invoices reuse the
// oldest exactly matching client and addresses; drafts always get new rows.
func (s *Service) Create(ctx context.Context, in *Input) (string, error) {
	if in.Status != models.StatusDraft && in.Status != models.StatusPending {
		return "", apperror.NewValidation(apperror.FieldErrors{"status": {"The selected status is invalid."}})
	}

	var inv *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoices := s.invoices.WithTx(tx)
		reuse := in.Status == models.StatusPending

		client, clientDecision, err := s.resolveClient(s.clients.WithTx(tx), reuse, in.Target.ClientName, in.Target.ClientEmail)
		if err != nil {
			return err
		}
		addresses := s.addresses.WithTx(tx)
		sender, senderDecision, err := s.resolveAddress(addresses, reuse, reconciliation.EntitySenderAddress, in.Target.SenderAddress)
		if err != nil {
			return err
		}
		billing, billingDecision, err := s.resolveAddress(addresses, reuse, reconciliation.EntityClientAddress, in.Target.ClientAddress)
		if err != nil {
			return err
		}

		calc, err := calculate(in.LineItems)
		if err != nil {
			return err
		}

		id, err := s.ids.Next(invoices.Exists)
		if err != nil {
			return err
		}

		inv = &models.Invoice{
			ID:           id,
			IssueDate:    in.IssueDate,
			DueDate:      DueDate(in.IssueDate, in.PaymentTerms),
			Description:  in.Description,
			PaymentTerms: in.PaymentTerms,
			Status:       in.Status,
			TotalCents:   calc.TotalCents,
		}
		inv.SetClient(client)
		inv.SetAddress(models.RoleSender, sender)
		inv.SetAddress(models.RoleClient, billing)

		if err := invoices.Create(inv); err != nil {
			return err
		}
		if err := s.lineItems.WithTx(tx).ReplaceForInvoice(id, calc.Items); err != nil {
			return err
		}
		inv.LineItems = calc.Items

		decisions := []reconciliation.Decision{clientDecision, billingDecision, senderDecision}
		return s.record(ctx, tx, inv, models.AuditCreated, decisions)
	})
	if err != nil {
		return "", s.fail(ctx, "create invoice", err)
	}

	s.log.WithContext(ctx).Infow("invoice created", "invoice_id", inv.ID, "status", inv.Status, "total_cents", inv.TotalCents)
	s.publish(ctx, events.InvoiceCreated, inv)
	return inv.ID, nil
}

// Update rewrites an existing invoice. Client and addresses go through the
// reconciliation engine and the line items are replaced wholesale.
func (s *Service) Update(ctx context.Context, in *Input) (string, error) {
	var inv *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoices := s.invoices.WithTx(tx)

		var err error
		inv, err = invoices.GetByID(in.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NewNotFound("invoice", in.ID)
		}
		if err != nil {
			return err
		}

		if in.Status == models.StatusDraft && inv.Status != models.StatusDraft {
			return apperror.NewValidation(apperror.FieldErrors{
				"status": {"A " + string(inv.Status) + " invoice cannot be moved back to draft."},
			})
		}

		calc, err := calculate(in.LineItems)
		if err != nil {
			return err
		}

		decisions, err := s.engine.Reconcile(ctx, tx, inv, in.Status, in.Target)
		if err != nil {
			return err
		}

		if err := s.lineItems.WithTx(tx).ReplaceForInvoice(inv.ID, calc.Items); err != nil {
			return err
		}

		inv.IssueDate = in.IssueDate
		inv.DueDate = DueDate(in.IssueDate, in.PaymentTerms)
		inv.Description = in.Description
		inv.PaymentTerms = in.PaymentTerms
		inv.Status = in.Status
		inv.TotalCents = calc.TotalCents
		inv.LineItems = calc.Items
		if err := invoices.Save(inv); err != nil {
			return err
		}

		return s.record(ctx, tx, inv, models.AuditUpdated, decisions)
	})
	if err != nil {
		return "", s.fail(ctx, "update invoice", err)
	}

	s.log.WithContext(ctx).Infow("invoice updated", "invoice_id", inv.ID, "status", inv.Status, "total_cents", inv.TotalCents)
	s.publish(ctx, events.InvoiceUpdated, inv)
	return inv.ID, nil
}

// Delete removes the invoice, its line items, and any client or address left
// without references.
func (s *Service) Delete(ctx context.Context, id string) error {
	var inv *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inv, err = s.invoices.WithTx(tx).GetByID(id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NewNotFound("invoice", id)
		}
		if err != nil {
			return err
		}

		decisions, err := s.engine.DeleteInvoice(ctx, tx, inv)
		if err != nil {
			return err
		}
		return s.record(ctx, tx, inv, models.AuditDeleted, decisions)
	})
	if err != nil {
		return s.fail(ctx, "delete invoice", err)
	}

	s.log.WithContext(ctx).Infow("invoice deleted", "invoice_id", id)
	s.publish(ctx, events.InvoiceDeleted, inv)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Invoice, error) {
	inv, err := s.invoices.WithTx(s.db.WithContext(ctx)).GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NewNotFound("invoice", id)
	}
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return inv, nil
}

func (s *Service) List(ctx context.Context) ([]models.Invoice, error) {
	invoices, err := s.invoices.WithTx(s.db.WithContext(ctx)).List()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	return invoices, nil
}

// History returns the audit trail of an invoice, including deleted ones.
func (s *Service) History(ctx context.Context, id string) ([]models.InvoiceAuditLog, error) {
	entries, err := s.audit.WithTx(s.db.WithContext(ctx)).ListForInvoice(id)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	if len(entries) == 0 {
		return nil, apperror.NewNotFound("invoice", id)
	}
	return entries, nil
}

func (s *Service) resolveClient(repo *repository.ClientRepository, reuse bool, name, email string) (*models.Client, reconciliation.Decision, error) {
	d := reconciliation.Decision{Entity: reconciliation.EntityClient, Changed: true}
	if reuse {
		match, err := repo.FindMatch(name, email)
		if err != nil {
			return nil, d, err
		}
		if match != nil {
			d.Action, d.ExistingElsewhere, d.CurrentID = reconciliation.ActionAssociated, true, &match.ID
			return match, d, nil
		}
	}

	client := &models.Client{FullName: name, Email: email}
	if err := repo.Create(client); err != nil {
		return nil, d, err
	}
	d.Action, d.CurrentID = reconciliation.ActionCreated, &client.ID
	return client, d, nil
}

func (s *Service) resolveAddress(repo *repository.AddressRepository, reuse bool, entity reconciliation.Entity, fields models.AddressFields) (*models.Address, reconciliation.Decision, error) {
	d := reconciliation.Decision{Entity: entity, Changed: true}
	if reuse {
		match, err := repo.FindMatch(fields)
		if err != nil {
			return nil, d, err
		}
		if match != nil {
			d.Action, d.ExistingElsewhere, d.CurrentID = reconciliation.ActionAssociated, true, &match.ID
			return match, d, nil
		}
	}

	address := &models.Address{}
	address.Apply(fields)
	if err := repo.Create(address); err != nil {
		return nil, d, err
	}
	d.Action, d.CurrentID = reconciliation.ActionCreated, &address.ID
	return address, d, nil
}

func (s *Service) record(ctx context.Context, tx *gorm.DB, inv *models.Invoice, action models.AuditAction, decisions []reconciliation.Decision) error {
	decisionsJSON, err := json.Marshal(decisions)
	if err != nil {
		return err
	}
	snapshotJSON, err := json.Marshal(NewResource(inv))
	if err != nil {
		return err
	}

	return s.audit.WithTx(tx).Record(&models.InvoiceAuditLog{
		InvoiceID: inv.ID,
		Action:    action,
		Decisions: datatypes.JSON(decisionsJSON),
		Snapshot:  datatypes.JSON(snapshotJSON),
		RequestID: logger.RequestID(ctx),
	})
}

func (s *Service) publish(ctx context.Context, typ events.EventType, inv *models.Invoice) {
	event := events.InvoiceEvent{
		Type:       typ,
		InvoiceID:  inv.ID,
		Status:     string(inv.Status),
		TotalCents: inv.TotalCents,
		RequestID:  logger.RequestID(ctx),
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WithContext(ctx).Warnw("publish invoice event", "invoice_id", inv.ID, "type", typ, "error", err)
	}
}

func calculate(items []lineitems.Input) (lineitems.Result, error) {
	calc, err := lineitems.Calculate(items)
	if errors.Is(err, lineitems.ErrOverflow) {
		return calc, apperror.NewValidation(apperror.FieldErrors{"line_items": {"The line items total is too large."}})
	}
	return calc, err
}

// fail passes AppErrors through and wraps anything else as internal.
func (s *Service) fail(ctx context.Context, op string, err error) error {
	if appErr, ok := apperror.AsAppError(err); ok {
		return appErr
	}
	s.log.WithContext(ctx).Errorw(op, "error", err)
	return apperror.NewInternal(err)
}
