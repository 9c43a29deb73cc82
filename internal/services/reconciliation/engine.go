// Package reconciliation decides, on every invoice write, which Client and
// Address rows an invoice points at. Rows are shared between invoices, so an
// edit must never leak into a sibling invoice and a row with no remaining
// references is removed.
package reconciliation

import (
	"context"
	"errors"

	"invoice-manager-backend/internal/logger"
	"invoice-manager-backend/internal/models"
	"invoice-manager-backend/internal/repository"

	"gorm.io/gorm"
)

// Target is the client and address data an invoice should end up pointing at.
type Target struct {
	ClientName    string
	ClientEmail   string
	SenderAddress models.AddressFields
	ClientAddress models.AddressFields
}

type Engine struct {
	clients   *repository.ClientRepository
	addresses *repository.AddressRepository
	lineItems *repository.LineItemRepository
	invoices  *repository.InvoiceRepository
	log       *logger.Logger
}

func NewEngine(
	clients *repository.ClientRepository,
	addresses *repository.AddressRepository,
	lineItems *repository.LineItemRepository,
	invoices *repository.InvoiceRepository,
	log *logger.Logger,
) *Engine {
	return &Engine{
		clients:   clients,
		addresses: addresses,
		lineItems: lineItems,
		invoices:  invoices,
		log:       log.WithComponent("reconciliation"),
	}
}

// Reconcile runs the decision matrix for the client, the client address and
// the sender address of inv, in that order. status is the status inv is being
// saved with: a draft never moves onto another invoice's rows, it only edits
// or copies its own. Reconcile mutates inv's foreign keys but does not save
// inv; tx must be the caller's transaction.
func (e *Engine) Reconcile(ctx context.Context, tx *gorm.DB, inv *models.Invoice, status models.InvoiceStatus, target Target) ([]Decision, error) {
	clients := e.clients.WithTx(tx)
	addresses := e.addresses.WithTx(tx)
	reuse := status != models.StatusDraft

	clientDecision, err := e.reconcileClient(clients, inv, reuse, target.ClientName, target.ClientEmail)
	if err != nil {
		return nil, err
	}
	clientAddrDecision, err := e.reconcileAddress(addresses, inv, reuse, models.RoleClient, target.ClientAddress)
	if err != nil {
		return nil, err
	}
	senderAddrDecision, err := e.reconcileAddress(addresses, inv, reuse, models.RoleSender, target.SenderAddress)
	if err != nil {
		return nil, err
	}

	decisions := []Decision{clientDecision, clientAddrDecision, senderAddrDecision}
	log := e.log.WithContext(ctx)
	for _, d := range decisions {
		log.Debugw("reconciled",
			"invoice_id", inv.ID,
			"entity", d.Entity,
			"action", d.Action,
			"changed", d.Changed,
			"existing_elsewhere", d.ExistingElsewhere,
			"reference_count", d.ReferenceCount,
			"orphan_deleted", d.OrphanDeleted,
		)
	}
	return decisions, nil
}

func (e *Engine) reconcileClient(repo *repository.ClientRepository, inv *models.Invoice, reuse bool, name, email string) (Decision, error) {
	d := Decision{Entity: EntityClient, Action: ActionKept}

	current, err := loadClient(repo, inv.ClientID)
	if err != nil {
		return d, err
	}

	var currentID uint
	if current != nil {
		currentID = current.ID
		d.PreviousID = uintPtr(current.ID)
		d.ReferenceCount, err = repo.CountInvoices(current.ID, "")
		if err != nil {
			return d, err
		}
	}
	d.Changed = current == nil || !current.Matches(name, email)

	var match *models.Client
	if reuse {
		match, err = repo.FindMatchExcluding(name, email, currentID)
		if err != nil {
			return d, err
		}
	}
	d.ExistingElsewhere = match != nil

	switch {
	case d.ExistingElsewhere:
		inv.SetClient(match)
		d.Action = ActionAssociated
	case d.Changed && d.ReferenceCount == 1:
		current.FullName = name
		current.Email = email
		if err := repo.Save(current); err != nil {
			return d, err
		}
		inv.SetClient(current)
		d.Action = ActionUpdated
	case d.Changed:
		created := &models.Client{FullName: name, Email: email}
		if err := repo.Create(created); err != nil {
			return d, err
		}
		inv.SetClient(created)
		d.Action = ActionCreated
	}
	d.CurrentID = inv.ClientID

	if current != nil && *inv.ClientID != current.ID {
		remaining, err := repo.CountInvoices(current.ID, inv.ID)
		if err != nil {
			return d, err
		}
		if remaining == 0 {
			if err := repo.Delete(current.ID); err != nil {
				return d, err
			}
			d.OrphanDeleted = true
		}
	}
	return d, nil
}

func (e *Engine) reconcileAddress(repo *repository.AddressRepository, inv *models.Invoice, reuse bool, role models.AddressRole, fields models.AddressFields) (Decision, error) {
	d := Decision{Entity: entityForRole(role), Action: ActionKept}

	current, err := loadAddress(repo, inv.AddressID(role))
	if err != nil {
		return d, err
	}

	var currentID uint
	if current != nil {
		currentID = current.ID
		d.PreviousID = uintPtr(current.ID)
		d.ReferenceCount, err = repo.CountInvoices(role, current.ID, "")
		if err != nil {
			return d, err
		}
	}
	d.Changed = current == nil || current.Fields() != fields

	var match *models.Address
	if reuse {
		match, err = repo.FindMatchExcluding(fields, currentID)
		if err != nil {
			return d, err
		}
	}
	d.ExistingElsewhere = match != nil

	// A row that is also used in the other role must not be edited in place,
	// even when this role holds the only reference.
	if d.Changed && !d.ExistingElsewhere && current != nil && d.ReferenceCount == 1 {
		d.SharedAcrossRoles, err = otherRoleInUse(repo, inv, role, current.ID, true)
		if err != nil {
			return d, err
		}
	}

	switch {
	case d.ExistingElsewhere:
		inv.SetAddress(role, match)
		d.Action = ActionAssociated
	case d.Changed && d.ReferenceCount == 1 && !d.SharedAcrossRoles:
		current.Apply(fields)
		if err := repo.Save(current); err != nil {
			return d, err
		}
		inv.SetAddress(role, current)
		d.Action = ActionUpdated
	case d.Changed:
		created := &models.Address{}
		created.Apply(fields)
		if err := repo.Create(created); err != nil {
			return d, err
		}
		inv.SetAddress(role, created)
		d.Action = ActionCreated
	}
	d.CurrentID = inv.AddressID(role)

	if current != nil && *inv.AddressID(role) != current.ID {
		deleted, err := deleteAddressIfOrphaned(repo, inv, role, current.ID, true)
		if err != nil {
			return d, err
		}
		d.OrphanDeleted = deleted
	}
	return d, nil
}

// deleteAddressIfOrphaned removes the address when no other invoice uses it in
// role. It is kept while anything still uses it in the other role; countSelf
// decides whether inv's own other-role key counts as a use.
func deleteAddressIfOrphaned(repo *repository.AddressRepository, inv *models.Invoice, role models.AddressRole, id uint, countSelf bool) (bool, error) {
	remaining, err := repo.CountInvoices(role, id, inv.ID)
	if err != nil || remaining > 0 {
		return false, err
	}
	inUse, err := otherRoleInUse(repo, inv, role, id, countSelf)
	if err != nil || inUse {
		return false, err
	}
	if err := repo.Delete(id); err != nil {
		return false, err
	}
	return true, nil
}

func otherRoleInUse(repo *repository.AddressRepository, inv *models.Invoice, role models.AddressRole, id uint, countSelf bool) (bool, error) {
	other := role.Other()
	if countSelf {
		if fk := inv.AddressID(other); fk != nil && *fk == id {
			return true, nil
		}
	}
	n, err := repo.CountInvoices(other, id, inv.ID)
	return n > 0, err
}

func loadClient(repo *repository.ClientRepository, id *uint) (*models.Client, error) {
	if id == nil {
		return nil, nil
	}
	client, err := repo.GetByID(*id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return client, err
}

func loadAddress(repo *repository.AddressRepository, id *uint) (*models.Address, error) {
	if id == nil {
		return nil, nil
	}
	address, err := repo.GetByID(*id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return address, err
}

func entityForRole(role models.AddressRole) Entity {
	if role == models.RoleSender {
		return EntitySenderAddress
	}
	return EntityClientAddress
}

func uintPtr(v uint) *uint { return &v }
