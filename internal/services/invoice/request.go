package invoice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"invoice-manager-backend/internal/apperror"
	"invoice-manager-backend/internal/models"
	"invoice-manager-backend/internal/services/idgen"
	"invoice-manager-backend/internal/services/lineitems"
	"invoice-manager-backend/internal/services/reconciliation"
)

type Operation int

const (
	OpCreate Operation = iota
	OpUpdate
)

// Request is the raw write payload. Every field is optional at this level;
// Normalize applies the rules and the declared defaults.
type Request struct {
	ID            *string           `json:"id"`
	IssueDate     *string           `json:"issue_date"`
	Description   *string           `json:"description" validate:"omitempty,max=2000"`
	PaymentTerms  *int              `json:"payment_terms" validate:"omitempty,min=0,max=36525"`
	ClientName    *string           `json:"client_name" validate:"omitempty,max=100"`
	ClientEmail   *string           `json:"client_email" validate:"omitempty,email,max=100"`
	Status        *string           `json:"status"`
	SenderAddress *AddressRequest   `json:"sender_address"`
	ClientAddress *AddressRequest   `json:"client_address"`
	LineItems     []LineItemRequest `json:"line_items" validate:"dive"`
}

type AddressRequest struct {
	Street     *string `json:"street" validate:"omitempty,max=100"`
	City       *string `json:"city" validate:"omitempty,max=100"`
	PostalCode *string `json:"postal_code" validate:"omitempty,max=100"`
	Country    *string `json:"country" validate:"omitempty,max=100"`
}

type LineItemRequest struct {
	Name           *string `json:"name" validate:"omitempty,max=100"`
	Quantity       *int64  `json:"quantity" validate:"omitempty,min=0,max=4294967295"`
	PriceUnitCents *int64  `json:"price_unit_cents" validate:"omitempty,min=0,max=4294967295"`
}

// Input is a validated request with every default applied.
type Input struct {
	ID           string
	IssueDate    *time.Time
	Description  string
	PaymentTerms *int
	Status       models.InvoiceStatus
	Target       reconciliation.Target
	LineItems    []lineitems.Input
}

const dateLayout = "2006-01-02"

var dateLayouts = []string{
	dateLayout,
	"2006-1-2",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"2006/1/2",
}

// ParseDate accepts unpadded and timestamp forms and keeps the calendar date only.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// DueDate is issue + terms days, or nil when either is missing.
func DueDate(issue *time.Time, terms *int) *time.Time {
	if issue == nil || terms == nil {
		return nil
	}
	due := issue.AddDate(0, 0, *terms)
	return &due
}

// Normalize validates r for op and returns the typed input. pathID is the
// invoice id from the URL on update. Failures are 422 validation errors.
func (r *Request) Normalize(op Operation, pathID string) (*Input, error) {
	errs := apperror.FieldErrors{}
	validateFormats(r, errs)

	in := &Input{
		Description:  str(r.Description),
		PaymentTerms: r.PaymentTerms,
		Target: reconciliation.Target{
			ClientName:    str(r.ClientName),
			ClientEmail:   str(r.ClientEmail),
			SenderAddress: r.SenderAddress.fields(),
			ClientAddress: r.ClientAddress.fields(),
		},
	}

	status := models.InvoiceStatus(str(r.Status))
	switch {
	case status == "":
		errs.Add("status", "The status field is required.")
	case !allowedStatus(op, status):
		errs.Add("status", "The selected status is invalid.")
	}
	in.Status = status
	pending := status == models.StatusPending

	if op == OpUpdate {
		id := str(r.ID)
		switch {
		case id == "":
			errs.Add("id", "The id field is required.")
		case !idgen.Valid(id):
			errs.Add("id", "The id field format is invalid.")
		case pathID != "" && id != pathID:
			errs.Add("id", "The id field must match the invoice being updated.")
		}
		in.ID = id
	}

	if raw := str(r.IssueDate); raw != "" {
		if d, ok := ParseDate(raw); ok {
			in.IssueDate = &d
		} else {
			errs.Add("issue_date", "The issue date field must be a valid date.")
		}
	}

	if pending {
		requireString(errs, "issue_date", r.IssueDate)
		requireString(errs, "description", r.Description)
		if r.PaymentTerms == nil {
			errs.Add("payment_terms", requiredWhenPending("payment_terms"))
		}
		requireString(errs, "client_name", r.ClientName)
		requireString(errs, "client_email", r.ClientEmail)
		requireAddress(errs, "sender_address", r.SenderAddress)
		requireAddress(errs, "client_address", r.ClientAddress)
		if len(r.LineItems) == 0 {
			errs.Add("line_items", requiredWhenPending("line_items"))
		}
	}

	seen := map[string]int{}
	for i, item := range r.LineItems {
		prefix := fmt.Sprintf("line_items.%d.", i)
		if pending {
			requireString(errs, prefix+"name", item.Name)
			if item.Quantity == nil {
				errs.Add(prefix+"quantity", requiredWhenPending(prefix+"quantity"))
			}
			if item.PriceUnitCents == nil {
				errs.Add(prefix+"price_unit_cents", requiredWhenPending(prefix+"price_unit_cents"))
			}
		}

		name := str(item.Name)
		if first, dup := seen[name]; dup {
			errs.Add(prefix+"name", fmt.Sprintf("The %sname field duplicates line_items.%d.name.", prefix, first))
		} else if name != "" {
			seen[name] = i
		}

		in.LineItems = append(in.LineItems, lineitems.Input{
			Name:           name,
			Quantity:       item.Quantity,
			PriceUnitCents: item.PriceUnitCents,
		})
	}

	if _, err := lineitems.Calculate(in.LineItems); errors.Is(err, lineitems.ErrOverflow) {
		errs.Add("line_items", "The line items total is too large.")
	}

	if !errs.Empty() {
		return nil, apperror.NewValidation(errs)
	}
	return in, nil
}

func allowedStatus(op Operation, s models.InvoiceStatus) bool {
	if op == OpCreate {
		return s == models.StatusDraft || s == models.StatusPending
	}
	return s.Valid()
}

func (a *AddressRequest) fields() models.AddressFields {
	if a == nil {
		return models.AddressFields{}
	}
	return models.AddressFields{
		Street:     str(a.Street),
		City:       str(a.City),
		PostalCode: str(a.PostalCode),
		Country:    str(a.Country),
	}
}

func requireAddress(errs apperror.FieldErrors, field string, a *AddressRequest) {
	if a == nil {
		a = &AddressRequest{}
		errs.Add(field, requiredWhenPending(field))
	}
	requireString(errs, field+".street", a.Street)
	requireString(errs, field+".city", a.City)
	requireString(errs, field+".postal_code", a.PostalCode)
	requireString(errs, field+".country", a.Country)
}

func requireString(errs apperror.FieldErrors, field string, v *string) {
	if str(v) == "" {
		errs.Add(field, requiredWhenPending(field))
	}
}

func requiredWhenPending(field string) string {
	return fmt.Sprintf("The %s field is required when status is pending.", strings.ReplaceAll(field, "_", " "))
}

// compact returns a copy of r with strings trimmed and blank strings nil, so
// format rules only see values that count as present.
func (r *Request) compact() *Request {
	c := *r
	c.ID = blankToNil(r.ID)
	c.IssueDate = blankToNil(r.IssueDate)
	c.Description = blankToNil(r.Description)
	c.ClientName = blankToNil(r.ClientName)
	c.ClientEmail = blankToNil(r.ClientEmail)
	c.Status = blankToNil(r.Status)
	c.SenderAddress = r.SenderAddress.compact()
	c.ClientAddress = r.ClientAddress.compact()
	if r.LineItems != nil {
		c.LineItems = make([]LineItemRequest, len(r.LineItems))
		for i, item := range r.LineItems {
			item.Name = blankToNil(item.Name)
			c.LineItems[i] = item
		}
	}
	return &c
}

func (a *AddressRequest) compact() *AddressRequest {
	if a == nil {
		return nil
	}
	return &AddressRequest{
		Street:     blankToNil(a.Street),
		City:       blankToNil(a.City),
		PostalCode: blankToNil(a.PostalCode),
		Country:    blankToNil(a.Country),
	}
}

func blankToNil(p *string) *string {
	if v := str(p); v != "" {
		return &v
	}
	return nil
}

// str trims and dereferences; nil becomes "".
func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
