package reconciliation

import (
	"context"

	"invoice-manager-backend/internal/models"

	"gorm.io/gorm"
)

// DeleteInvoice removes inv with its line items, then deletes its client and
// addresses when no other invoice still references them. Address references
// are counted per role. tx must be the caller's transaction.
func (e *Engine) DeleteInvoice(ctx context.Context, tx *gorm.DB, inv *models.Invoice) ([]Decision, error) {
	clients := e.clients.WithTx(tx)
	addresses := e.addresses.WithTx(tx)

	if err := e.lineItems.WithTx(tx).DeleteForInvoice(inv.ID); err != nil {
		return nil, err
	}
	if err := e.invoices.WithTx(tx).Delete(inv.ID); err != nil {
		return nil, err
	}

	var decisions []Decision

	if inv.ClientID != nil {
		d := Decision{Entity: EntityClient, Action: ActionKept, PreviousID: uintPtr(*inv.ClientID)}
		others, err := clients.CountInvoices(*inv.ClientID, inv.ID)
		if err != nil {
			return nil, err
		}
		d.ReferenceCount = others + 1
		if others == 0 {
			if err := clients.Delete(*inv.ClientID); err != nil {
				return nil, err
			}
			d.Action = ActionDeleted
		}
		decisions = append(decisions, d)
	}

	deleted := map[uint]bool{}
	for _, role := range []models.AddressRole{models.RoleClient, models.RoleSender} {
		id := inv.AddressID(role)
		if id == nil {
			continue
		}
		d := Decision{Entity: entityForRole(role), Action: ActionKept, PreviousID: uintPtr(*id)}
		if deleted[*id] {
			d.Action = ActionDeleted
			decisions = append(decisions, d)
			continue
		}

		others, err := addresses.CountInvoices(role, *id, inv.ID)
		if err != nil {
			return nil, err
		}
		d.ReferenceCount = others + 1

		ok, err := deleteAddressIfOrphaned(addresses, inv, role, *id, false)
		if err != nil {
			return nil, err
		}
		if ok {
			deleted[*id] = true
			d.Action = ActionDeleted
		} else if others == 0 {
			d.SharedAcrossRoles = true
		}
		decisions = append(decisions, d)
	}

	log := e.log.WithContext(ctx)
	for _, d := range decisions {
		log.Debugw("cascade", "invoice_id", inv.ID, "entity", d.Entity, "action", d.Action, "reference_count", d.ReferenceCount)
	}
	return decisions, nil
}
