package invoice

import (
	"time"

	"invoice-manager-backend/internal/models"
	"invoice-manager-backend/internal/services/lineitems"
)

const APIVersion = "1.0"

// Resource is the read representation of an invoice.
type Resource struct {
	ID            string               `json:"id"`
	IssueDate     *string              `json:"issue_date"`
	DueDate       *string              `json:"due_date"`
	Description   string               `json:"description"`
	PaymentTerms  *int                 `json:"payment_terms"`
	ClientName    string               `json:"client_name"`
	ClientEmail   string               `json:"client_email"`
	Status        models.InvoiceStatus `json:"status"`
	SenderAddress models.AddressFields `json:"sender_address"`
	ClientAddress models.AddressFields `json:"client_address"`
	LineItems     []LineItemResource   `json:"line_items"`
	TotalCents    int64                `json:"total_cents"`
	Total         string               `json:"total"`
}

type LineItemResource struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	Quantity        int64  `json:"quantity"`
	PriceUnitCents  int64  `json:"price_unit_cents"`
	PriceTotalCents int64  `json:"price_total_cents"`
}

func NewResource(inv *models.Invoice) Resource {
	res := Resource{
		ID:           inv.ID,
		IssueDate:    formatDate(inv.IssueDate),
		DueDate:      formatDate(inv.DueDate),
		Description:  inv.Description,
		PaymentTerms: inv.PaymentTerms,
		Status:       inv.Status,
		LineItems:    make([]LineItemResource, 0, len(inv.LineItems)),
		TotalCents:   inv.TotalCents,
		Total:        lineitems.FormatCents(inv.TotalCents),
	}
	if inv.Client != nil {
		res.ClientName = inv.Client.FullName
		res.ClientEmail = inv.Client.Email
	}
	if inv.SenderAddress != nil {
		res.SenderAddress = inv.SenderAddress.Fields()
	}
	if inv.ClientAddress != nil {
		res.ClientAddress = inv.ClientAddress.Fields()
	}
	for _, it := range inv.LineItems {
		res.LineItems = append(res.LineItems, LineItemResource{
			ID:              it.ID,
			Name:            it.Name,
			Quantity:        it.Quantity,
			PriceUnitCents:  it.PriceUnitCents,
			PriceTotalCents: it.PriceTotalCents,
		})
	}
	return res
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}
