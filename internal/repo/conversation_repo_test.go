package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-helpdesk-webhook/internal/domain"
)

func strp(s string) *string { return &s }

func TestCreateConversation_DefaultsAndTimestamps(t *testing.T) {
	db := newTestDB(t, allModels()...)
	now := time.Date(2025, 7, 1, 8, 0, 0, 0, time.FixedZone("ART", -3*3600))

	c := &domain.Conversation{
		CustomerID:    "cu1",
		ChannelSource: domain.ChannelInstagram,
		MessageType:   domain.MessageTypeComment,
		CommentID:     strp("c-1"),
		PostID:        strp("p-1"),
	}
	if err := CreateConversation(context.Background(), db, c, now); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if c.ID == "" || c.Status != domain.StatusOpen {
		t.Fatalf("expected generated id and open status, got %+v", c)
	}
	if !c.CreatedAt.Equal(now) || !c.UpdatedAt.Equal(c.CreatedAt) || c.CreatedAt.Location() != time.UTC {
		t.Fatalf("timestamps not normalised to UTC now: %+v", c)
	}
	if c.AssignedAgentID != nil {
		t.Fatalf("new conversation must be unassigned")
	}

	got, err := GetConversation(context.Background(), db, c.ID)
	if err != nil || got.CommentID == nil || *got.CommentID != "c-1" || got.PostID == nil || *got.PostID != "p-1" {
		t.Fatalf("GetConversation = (%+v, %v)", got, err)
	}
}

func TestFindConversationByComment_IgnoresStatus(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := FindConversationByComment(ctx, db, "c-9"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	seedConversation(t, db, domain.Conversation{ID: "cv", CustomerID: "u", Status: "closed", ChannelSource: domain.ChannelInstagram, MessageType: domain.MessageTypeComment, CommentID: strp("c-9"), CreatedAt: now, UpdatedAt: now})

	got, err := FindConversationByComment(ctx, db, "c-9")
	if err != nil || got.ID != "cv" {
		t.Fatalf("closed comment thread must still be found, got (%+v, %v)", got, err)
	}
}

func TestFindOpenDMConversation_CompoundPredicate(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	t0 := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	// Same customer: a closed dm, an open comment thread, and another customer's open dm.
	seedConversation(t, db, domain.Conversation{ID: "closed-dm", CustomerID: "u1", Status: "closed", ChannelSource: domain.ChannelWhatsApp, MessageType: domain.MessageTypeDM, CreatedAt: t0, UpdatedAt: t0})
	seedConversation(t, db, domain.Conversation{ID: "open-comment", CustomerID: "u1", ChannelSource: domain.ChannelInstagram, MessageType: domain.MessageTypeComment, CommentID: strp("c"), CreatedAt: t0, UpdatedAt: t0})
	seedConversation(t, db, domain.Conversation{ID: "other-dm", CustomerID: "u2", ChannelSource: domain.ChannelWhatsApp, MessageType: domain.MessageTypeDM, CreatedAt: t0, UpdatedAt: t0})

	if _, err := FindOpenDMConversation(ctx, db, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound when only closed dm / open comment exist, got %v", err)
	}

	seedConversation(t, db, domain.Conversation{ID: "open-dm", CustomerID: "u1", ChannelSource: domain.ChannelWhatsApp, MessageType: domain.MessageTypeDM, CreatedAt: t0, UpdatedAt: t0})
	got, err := FindOpenDMConversation(ctx, db, "u1")
	if err != nil || got.ID != "open-dm" {
		t.Fatalf("FindOpenDMConversation = (%+v, %v); want open-dm", got, err)
	}
}

func TestTouchConversation_BumpsUpdatedAt(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	t0 := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	seedConversation(t, db, domain.Conversation{ID: "cv", CustomerID: "u", ChannelSource: domain.ChannelWhatsApp, MessageType: domain.MessageTypeDM, CreatedAt: t0, UpdatedAt: t0})

	if err := TouchConversation(ctx, db, "cv", t1); err != nil {
		t.Fatalf("TouchConversation: %v", err)
	}
	got, err := GetConversation(ctx, db, "cv")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if !got.UpdatedAt.Equal(t1) || !got.CreatedAt.Equal(t0) {
		t.Fatalf("expected updated_at=%v created_at=%v, got %+v", t1, t0, got)
	}

	if err := TouchConversation(ctx, db, "missing", t1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing conversation, got %v", err)
	}
}

func TestListConversationsPage_FilterOrderAndCount(t *testing.T) {
	db := newTestDB(t, allModels()...)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c", "d"} {
		ch := domain.ChannelWhatsApp
		if id == "d" {
			ch = domain.ChannelInstagram
		}
		at := base.Add(time.Duration(i) * time.Minute)
		seedConversation(t, db, domain.Conversation{ID: id, CustomerID: "u" + id, ChannelSource: ch, MessageType: domain.MessageTypeDM, CreatedAt: at, UpdatedAt: at})
	}

	f := ConversationFilter{Channel: "whatsapp", Status: domain.StatusOpen}
	total, err := CountConversations(ctx, db, f)
	if err != nil || total != 3 {
		t.Fatalf("CountConversations = (%d, %v); want 3", total, err)
	}

	page, err := ListConversationsPage(ctx, db, f, 0, 2)
	if err != nil {
		t.Fatalf("ListConversationsPage: %v", err)
	}
	if len(page) != 2 || page[0].ID != "c" || page[1].ID != "b" {
		t.Fatalf("expected [c b] most recent first, got %+v", page)
	}

	page2, err := ListConversationsPage(ctx, db, f, 2, 2)
	if err != nil || len(page2) != 1 || page2[0].ID != "a" {
		t.Fatalf("second page = (%+v, %v)", page2, err)
	}

	none, err := CountConversations(ctx, db, ConversationFilter{MessageType: domain.MessageTypeComment})
	if err != nil || none != 0 {
		t.Fatalf("comment count = (%d, %v); want 0", none, err)
	}
}
