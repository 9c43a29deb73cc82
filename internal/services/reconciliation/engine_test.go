package reconciliation

import (
	"context"
	"testing"

	"invoice-manager-backend/internal/logger"
	"invoice-manager-backend/internal/models"
	"invoice-manager-backend/internal/repository"
	"invoice-manager-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	engine    *Engine
	clients   *repository.ClientRepository
	addresses *repository.AddressRepository
	invoices  *repository.InvoiceRepository
	lineItems *repository.LineItemRepository
}

func newFixture(t *testing.T) *fixture {
	db := testutil.OpenDB(t)
	f := &fixture{
		db:        db,
		clients:   repository.NewClientRepository(db),
		addresses: repository.NewAddressRepository(db),
		invoices:  repository.NewInvoiceRepository(db),
		lineItems: repository.NewLineItemRepository(db),
	}
	f.engine = NewEngine(f.clients, f.addresses, f.lineItems, f.invoices, logger.Nop())
	return f
}

func (f *fixture) client(t *testing.T, name, email string) *models.Client {
	t.Helper()
	c := &models.Client{FullName: name, Email: email}
	require.NoError(t, f.clients.Create(c))
	return c
}

func addr(street string) models.AddressFields {
	return models.AddressFields{Street: street, City: "Denver", PostalCode: "80204", Country: "USA"}
}

func (f *fixture) address(t *testing.T, street string) *models.Address {
	t.Helper()
	a := &models.Address{}
	a.Apply(addr(street))
	require.NoError(t, f.addresses.Create(a))
	return a
}

func (f *fixture) invoice(t *testing.T, id string, c *models.Client, sender, billing *models.Address) *models.Invoice {
	t.Helper()
	inv := &models.Invoice{ID: id, Status: models.StatusPending}
	inv.SetClient(c)
	inv.SetAddress(models.RoleSender, sender)
	inv.SetAddress(models.RoleClient, billing)
	require.NoError(t, f.invoices.Create(inv))
	return inv
}

// reconcile saves id as pending; see reconcileAs.
func (f *fixture) reconcile(t *testing.T, id string, target Target) map[Entity]Decision {
	t.Helper()
	return f.reconcileAs(t, id, models.StatusPending, target)
}

// reconcileAs loads id, runs the engine and saves the invoice in one transaction.
func (f *fixture) reconcileAs(t *testing.T, id string, status models.InvoiceStatus, target Target) map[Entity]Decision {
	t.Helper()
	out := map[Entity]Decision{}
	err := f.db.Transaction(func(tx *gorm.DB) error {
		inv, err := f.invoices.WithTx(tx).GetByID(id)
		if err != nil {
			return err
		}
		decisions, err := f.engine.Reconcile(context.Background(), tx, inv, status, target)
		if err != nil {
			return err
		}
		for _, d := range decisions {
			out[d.Entity] = d
		}
		return f.invoices.WithTx(tx).Save(inv)
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) reload(t *testing.T, id string) *models.Invoice {
	t.Helper()
	inv, err := f.invoices.GetByID(id)
	require.NoError(t, err)
	return inv
}

func (f *fixture) clientExists(id uint) bool {
	_, err := f.clients.GetByID(id)
	return err == nil
}

func (f *fixture) addressExists(id uint) bool {
	_, err := f.addresses.GetByID(id)
	return err == nil
}

func targetOf(inv *models.Invoice) Target {
	return Target{
		ClientName:    inv.Client.FullName,
		ClientEmail:   inv.Client.Email,
		SenderAddress: inv.SenderAddress.Fields(),
		ClientAddress: inv.ClientAddress.Fields(),
	}
}

func TestReconcileUnchangedKeepsEverything(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "Ricky Bobby", "el.diablo@gmail.com")
	s, b := f.address(t, "1 Sender St"), f.address(t, "2 Billing Rd")
	f.invoice(t, "AA0001", c, s, b)

	got := f.reconcile(t, "AA0001", targetOf(f.reload(t, "AA0001")))

	for _, d := range got {
		assert.Equal(t, ActionKept, d.Action, d.Entity)
		assert.False(t, d.Changed, d.Entity)
		assert.False(t, d.OrphanDeleted, d.Entity)
	}
	inv := f.reload(t, "AA0001")
	assert.Equal(t, c.ID, *inv.ClientID)
	assert.Equal(t, s.ID, *inv.SenderAddressID)
	assert.Equal(t, b.ID, *inv.ClientAddressID)
}

func TestReconcileSoleReferenceUpdatesInPlace(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "Ricky Bobby", "el.diablo@gmail.com")
	s, b := f.address(t, "1 Sender St"), f.address(t, "2 Billing Rd")
	f.invoice(t, "AA0001", c, s, b)

	target := targetOf(f.reload(t, "AA0001"))
	target.ClientEmail = "ricky@example.com"
	target.ClientAddress = addr("3 New Rd")
	got := f.reconcile(t, "AA0001", target)

	assert.Equal(t, ActionUpdated, got[EntityClient].Action)
	assert.Equal(t, int64(1), got[EntityClient].ReferenceCount)
	assert.Equal(t, ActionUpdated, got[EntityClientAddress].Action)

	inv := f.reload(t, "AA0001")
	assert.Equal(t, c.ID, *inv.ClientID)
	assert.Equal(t, "ricky@example.com", inv.Client.Email)
	assert.Equal(t, b.ID, *inv.ClientAddressID)
	assert.Equal(t, "3 New Rd", inv.ClientAddress.Street)
}

func TestReconcileSharedReferenceCreatesNewRecord(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "Ricky Bobby", "el.diablo@gmail.com")
	s, b := f.address(t, "1 Sender St"), f.address(t, "2 Billing Rd")
	f.invoice(t, "AA0001", c, s, b)
	f.invoice(t, "AA0002", c, s, b)

	target := targetOf(f.reload(t, "AA0001"))
	target.ClientName = "Cal Naughton"
	target.ClientAddress = addr("9 Other Ave")
	got := f.reconcile(t, "AA0001", target)

	assert.Equal(t, ActionCreated, got[EntityClient].Action)
	assert.Equal(t, int64(2), got[EntityClient].ReferenceCount)
	assert.Equal(t, ActionCreated, got[EntityClientAddress].Action)
	assert.False(t, got[EntityClient].OrphanDeleted)

	edited := f.reload(t, "AA0001")
	sibling := f.reload(t, "AA0002")
	assert.NotEqual(t, c.ID, *edited.ClientID)
	assert.Equal(t, "Cal Naughton", edited.Client.FullName)
	assert.Equal(t, "9 Other Ave", edited.ClientAddress.Street)

	assert.Equal(t, c.ID, *sibling.ClientID)
	assert.Equal(t, "Ricky Bobby", sibling.Client.FullName)
	assert.Equal(t, "2 Billing Rd", sibling.ClientAddress.Street)
}

func TestReconcileExistingElsewhereRepointsAndDeletesOrphan(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "Ricky Bobby", "el.diablo@gmail.com")
	s := f.address(t, "1 Sender St")
	old, other := f.address(t, "2 Billing Rd"), f.address(t, "5 Shared Blvd")
	f.invoice(t, "AA0001", c, s, old)
	f.invoice(t, "AA0002", c, s, other)

	target := targetOf(f.reload(t, "AA0001"))
	target.ClientAddress = other.Fields()
	got := f.reconcile(t, "AA0001", target)

	d := got[EntityClientAddress]
	assert.Equal(t, ActionAssociated, d.Action)
	assert.True(t, d.ExistingElsewhere)
	assert.True(t, d.OrphanDeleted)
	assert.Equal(t, other.ID, *f.reload(t, "AA0001").ClientAddressID)
	assert.False(t, f.addressExists(old.ID))
}

func TestReconcileExistingElsewhereKeepsStillReferencedPrevious(t *testing.T) {
	f := newFixture(t)
	c1 := f.client(t, "Ricky Bobby", "el.diablo@gmail.com")
	c2 := f.client(t, "Jean Girard", "jean@example.fr")
	s, b := f.address(t, "1 Sender St"), f.address(t, "2 Billing Rd")
	f.invoice(t, "AA0001", c1, s, b)
	f.invoice(t, "AA0002", c1, s, b)
	f.invoice(t, "AA0003", c2, s, b)

	target := targetOf(f.reload(t, "AA0001"))
	target.ClientName, target.ClientEmail = c2.FullName, c2.Email
	got := f.reconcile(t, "AA0001", target)

	assert.Equal(t, ActionAssociated, got[EntityClient].Action)
	assert.False(t, got[EntityClient].OrphanDeleted)
	assert.Equal(t, c2.ID, *f.reload(t, "AA0001").ClientID)
	assert.True(t, f.clientExists(c1.ID))
}

func TestReconcileAssociatesEvenWhenUnchanged(t *testing.T) {
	f := newFixture(t)
	first := f.client(t, "Ricky Bobby", "el.diablo@gmail.com")
	dup := f.client(t, "Ricky Bobby", "el.diablo@gmail.com")
	s, b := f.address(t, "1 Sender St"), f.address(t, "2 Billing Rd")
	f.invoice(t, "AA0001", first, s, b)
	f.invoice(t, "AA0002", dup, s, b)

	got := f.reconcile(t, "AA0002", targetOf(f.reload(t, "AA0002")))

	assert.False(t, got[EntityClient].Changed)
	assert.Equal(t, ActionAssociated, got[EntityClient].Action)
	assert.Equal(t, first.ID, *f.reload(t, "AA0002").ClientID)
	assert.False(t, f.clientExists(dup.ID))
}

func TestReconcilePicksOldestMatch(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "Ricky Bobby", "el.diablo@gmail.com")
	s, b := f.address(t, "1 Sender St"), f.address(t, "2 Billing Rd")
	oldest := f.client(t, "Cal Naughton", "cal@example.com")
	f.client(t, "Cal Naughton", "cal@example.com")
	f.invoice(t, "AA0001", c, s, b)

	target := targetOf(f.reload(t, "AA0001"))
	target.ClientName, target.ClientEmail = "Cal Naughton", "cal@example.com"
	f.reconcile(t, "AA0001", target)

	assert.Equal(t, oldest.ID, *f.reload(t, "AA0001").ClientID)
}

func TestReconcileAddressRolesAreIndependent(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "Ricky Bobby", "el.diablo@gmail.com")
	sender := f.address(t, "1 Sender St")
	b1, b2 := f.address(t, "2 Billing Rd"), f.address(t, "3 Billing Rd")
	f.invoice(t, "AA0001", c, sender, b1)
	f.invoice(t, "AA0002", c, sender, b2)

	target := targetOf(f.reload(t, "AA0001"))
	target.ClientAddress = addr("4 Moved Ln")
	got := f.reconcile(t, "AA0001", target)

	// The billing address has one client-role reference even though the
	// sender address it sits next to is shared.
	assert.Equal(t, ActionUpdated, got[EntityClientAddress].Action)
	assert.Equal(t, ActionKept, got[EntitySenderAddress].Action)
	assert.Equal(t, int64(2), got[EntitySenderAddress].ReferenceCount)

	sibling := f.reload(t, "AA0002")
	assert.Equal(t, "1 Sender St", sibling.SenderAddress.Street)
	assert.Equal(t, "3 Billing Rd", sibling.ClientAddress.Street)

	target = targetOf(f.reload(t, "AA0001"))
	target.SenderAddress = addr("7 New Sender St")
	got = f.reconcile(t, "AA0001", target)

	assert.Equal(t, ActionCreated, got[EntitySenderAddress].Action)
	assert.Equal(t, "1 Sender St", f.reload(t, "AA0002").SenderAddress.Street)
	assert.Equal(t, "7 New Sender St", f.reload(t, "AA0001").SenderAddress.Street)
}

func TestReconcileComparesEachRoleAgainstItsOwnFields(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "Ricky Bobby", "el.diablo@gmail.com")
	s, b := f.address(t, "1 Sender St"), f.address(t, "2 Billing Rd")
	f.invoice(t, "AA0001", c, s, b)

	target := targetOf(f.reload(t, "AA0001"))
	target.ClientAddress = addr("8 Changed Rd")
	got := f.reconcile(t, "AA0001", target)

	assert.True(t, got[EntityClientAddress].Changed)
	assert.False(t, got[EntitySenderAddress].Changed)
	assert.Equal(t, "1 Sender St", f.reload(t, "AA0001").SenderAddress.Street)
}

func TestReconcileRowUsedInBothRolesIsNotEditedInPlace(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "Ricky Bobby", "el.diablo@gmail.com")
	both := f.address(t, "1 Same St")
	f.invoice(t, "AA0001", c, both, both)

	target := targetOf(f.reload(t, "AA0001"))
	target.ClientAddress = addr("2 Billing Rd")
	got := f.reconcile(t, "AA0001", target)

	d := got[EntityClientAddress]
	assert.True(t, d.SharedAcrossRoles)
	assert.Equal(t, ActionCreated, d.Action)
	assert.False(t, d.OrphanDeleted)

	inv := f.reload(t, "AA0001")
	assert.Equal(t, both.ID, *inv.SenderAddressID)
	assert.Equal(t, "1 Same St", inv.SenderAddress.Street)
	assert.Equal(t, "2 Billing Rd", inv.ClientAddress.Street)
}

func TestReconcileMissingReferenceCreates(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "Ricky Bobby", "el.diablo@gmail.com")
	s, b := f.address(t, "1 Sender St"), f.address(t, "2 Billing Rd")
	inv := f.invoice(t, "AA0001", c, s, b)
	require.NoError(t, f.db.Model(inv).Update("client_id", nil).Error)

	got := f.reconcile(t, "AA0001", Target{
		ClientName:    "Ricky Bobby",
		ClientEmail:   "other@example.com",
		SenderAddress: s.Fields(),
		ClientAddress: b.Fields(),
	})

	assert.Equal(t, ActionCreated, got[EntityClient].Action)
	assert.Nil(t, got[EntityClient].PreviousID)
	assert.Equal(t, "other@example.com", f.reload(t, "AA0001").Client.Email)
}

func TestReconcileDraftKeepsItsOwnRows(t *testing.T) {
	f := newFixture(t)
	mine := f.client(t, "Ricky Bobby", "el.diablo@gmail.com")
	theirs := f.client(t, "Jean Girard", "jean@example.fr")
	s, b := f.address(t, "1 Sender St"), f.address(t, "2 Billing Rd")
	other := f.address(t, "5 Shared Blvd")
	f.invoice(t, "AA0001", mine, s, b)
	f.invoice(t, "AA0002", theirs, s, other)

	target := targetOf(f.reload(t, "AA0001"))
	target.ClientName, target.ClientEmail = theirs.FullName, theirs.Email
	target.ClientAddress = other.Fields()
	got := f.reconcileAs(t, "AA0001", models.StatusDraft, target)

	assert.False(t, got[EntityClient].ExistingElsewhere)
	assert.Equal(t, ActionUpdated, got[EntityClient].Action)
	assert.Equal(t, ActionUpdated, got[EntityClientAddress].Action)
	assert.Equal(t, ActionKept, got[EntitySenderAddress].Action)

	inv := f.reload(t, "AA0001")
	assert.Equal(t, mine.ID, *inv.ClientID)
	assert.Equal(t, "Jean Girard", inv.Client.FullName)
	assert.Equal(t, b.ID, *inv.ClientAddressID)
	assert.Equal(t, "5 Shared Blvd", inv.ClientAddress.Street)

	sibling := f.reload(t, "AA0002")
	assert.Equal(t, theirs.ID, *sibling.ClientID)
	assert.Equal(t, other.ID, *sibling.ClientAddressID)
}

func TestReconcileDraftSharedRowIsCopied(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "Ricky Bobby", "el.diablo@gmail.com")
	theirs := f.client(t, "Jean Girard", "jean@example.fr")
	s, b := f.address(t, "1 Sender St"), f.address(t, "2 Billing Rd")
	f.invoice(t, "AA0001", c, s, b)
	f.invoice(t, "AA0002", c, s, b)
	f.invoice(t, "AA0003", theirs, s, b)

	target := targetOf(f.reload(t, "AA0001"))
	target.ClientName, target.ClientEmail = theirs.FullName, theirs.Email
	got := f.reconcileAs(t, "AA0001", models.StatusDraft, target)

	assert.Equal(t, ActionCreated, got[EntityClient].Action)
	inv := f.reload(t, "AA0001")
	assert.NotEqual(t, c.ID, *inv.ClientID)
	assert.NotEqual(t, theirs.ID, *inv.ClientID)
	assert.Equal(t, "Jean Girard", inv.Client.FullName)
	assert.Equal(t, c.ID, *f.reload(t, "AA0002").ClientID)
}

func TestReconcileDraftUnchangedDuplicateIsKept(t *testing.T) {
	f := newFixture(t)
	first := f.client(t, "Ricky Bobby", "el.diablo@gmail.com")
	dup := f.client(t, "Ricky Bobby", "el.diablo@gmail.com")
	s, b := f.address(t, "1 Sender St"), f.address(t, "2 Billing Rd")
	f.invoice(t, "AA0001", first, s, b)
	f.invoice(t, "AA0002", dup, s, b)

	got := f.reconcileAs(t, "AA0002", models.StatusDraft, targetOf(f.reload(t, "AA0002")))

	assert.Equal(t, ActionKept, got[EntityClient].Action)
	assert.Equal(t, dup.ID, *f.reload(t, "AA0002").ClientID)
	assert.True(t, f.clientExists(dup.ID))
}
