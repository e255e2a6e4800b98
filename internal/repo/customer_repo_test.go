package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-helpdesk-webhook/internal/domain"
)

func TestCreateCustomer_Error_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	c, err := CreateCustomer(context.Background(), db, domain.ChannelWhatsApp, "549", "Ana", time.Now())
	if err == nil || c != nil {
		t.Fatalf("expected error creating without table, got c=%v err=%v", c, err)
	}
}

func TestCreateCustomer_SetsChannelIdentity(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	wa, err := CreateCustomer(ctx, db, domain.ChannelWhatsApp, "5491100000000", "Ana", now)
	if err != nil {
		t.Fatalf("CreateCustomer(wa): %v", err)
	}
	if wa.ID == "" || wa.WaID == nil || *wa.WaID != "5491100000000" || wa.IgID != nil || wa.Name != "Ana" {
		t.Fatalf("unexpected whatsapp customer: %+v", wa)
	}
	if !wa.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt = %v; want %v", wa.CreatedAt, now)
	}

	ig, err := CreateCustomer(ctx, db, domain.ChannelInstagram, "17841400000000000", "", now)
	if err != nil {
		t.Fatalf("CreateCustomer(ig): %v", err)
	}
	if ig.IgID == nil || *ig.IgID != "17841400000000000" || ig.WaID != nil {
		t.Fatalf("unexpected instagram customer: %+v", ig)
	}
	if ig.Name != domain.DefaultCustomerName {
		t.Fatalf("expected placeholder name, got %q", ig.Name)
	}

	var got domain.Customer
	if err := db.First(&got, "id = ?", ig.ID).Error; err != nil || got.Name != domain.DefaultCustomerName {
		t.Fatalf("stored customer = (%+v, %v)", got, err)
	}
}

func TestCreateCustomer_UnsupportedChannel(t *testing.T) {
	db := newTestDB(t, allModels()...)
	if _, err := CreateCustomer(context.Background(), db, domain.Channel("sms"), "1", "x", time.Now()); err == nil {
		t.Fatalf("expected error for unsupported channel")
	}
}

func TestFindCustomerByIdentity_ScopedByChannel(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := FindCustomerByIdentity(ctx, db, domain.ChannelWhatsApp, "123"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty table, got %v", err)
	}

	created, err := CreateCustomer(ctx, db, domain.ChannelWhatsApp, "123", "Ana", now)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := FindCustomerByIdentity(ctx, db, domain.ChannelWhatsApp, "123")
	if err != nil || got.ID != created.ID {
		t.Fatalf("FindCustomerByIdentity = (%+v, %v); want id %s", got, err, created.ID)
	}

	// Same raw id on the other channel is a different identity.
	if _, err := FindCustomerByIdentity(ctx, db, domain.ChannelInstagram, "123"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound across channels, got %v", err)
	}
	if _, err := FindCustomerByIdentity(ctx, db, domain.Channel("x"), "123"); err == nil {
		t.Fatalf("expected error for unsupported channel")
	}
}

func TestFindCustomerByIdentity_DuplicatesReturnOldest(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	first, err := CreateCustomer(ctx, db, domain.ChannelInstagram, "dup", "A", t0)
	if err != nil {
		t.Fatalf("seed first: %v", err)
	}
	if _, err := CreateCustomer(ctx, db, domain.ChannelInstagram, "dup", "B", t0.Add(time.Second)); err != nil {
		t.Fatalf("seed second: %v", err)
	}

	got, err := FindCustomerByIdentity(ctx, db, domain.ChannelInstagram, "dup")
	if err != nil || got.ID != first.ID {
		t.Fatalf("expected oldest duplicate %s, got (%+v, %v)", first.ID, got, err)
	}
}
