package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-helpdesk-webhook/internal/provider"
)

// ----- Fake sender -----

type fakeSender struct {
	dmCalls, commentCalls int
	lastTarget, lastText  string
	resp                  provider.Response
	err                   error
}

func (f *fakeSender) SendDirectMessage(ctx context.Context, recipientID, text string) (provider.Response, error) {
	f.dmCalls++
	f.lastTarget, f.lastText = recipientID, text
	return f.resp, f.err
}

func (f *fakeSender) ReplyToComment(ctx context.Context, commentID, text string) (provider.Response, error) {
	f.commentCalls++
	f.lastTarget, f.lastText = commentID, text
	return f.resp, f.err
}

// ----- Tests -----

func TestReplyService_MissingTarget_NoNetworkCall(t *testing.T) {
	cases := []struct {
		name  string
		req   ReplyRequest
		field string
	}{
		{"comment without comment_id", ReplyRequest{MessageType: "comment", RecipientID: "u1", Text: "x"}, "comment_id"},
		{"dm without recipient_id", ReplyRequest{MessageType: "dm", CommentID: "c1", Text: "x"}, "recipient_id"},
		{"unknown kind treated as dm", ReplyRequest{MessageType: "story", Text: "x"}, "recipient_id"},
		{"blank id", ReplyRequest{MessageType: "comment", CommentID: "  ", Text: "x"}, "comment_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeSender{}
			svc := &ReplyService{Sender: f}
			_, err := svc.Send(context.Background(), tc.req)

			var mt *MissingTargetError
			if !errors.As(err, &mt) || mt.Field != tc.field {
				t.Fatalf("expected MissingTargetError{%s}, got %v", tc.field, err)
			}
			if f.dmCalls+f.commentCalls != 0 {
				t.Fatalf("no provider call expected, got dm=%d comment=%d", f.dmCalls, f.commentCalls)
			}
		})
	}
}

func TestReplyService_BlankText_NoNetworkCall(t *testing.T) {
	for _, req := range []ReplyRequest{
		{MessageType: "comment", CommentID: "c1"},
		{MessageType: "dm", RecipientID: "u1", Text: " \n\t"},
		{MessageType: "dm", Text: ""},
	} {
		f := &fakeSender{}
		svc := &ReplyService{Sender: f}
		if _, err := svc.Send(context.Background(), req); !errors.Is(err, ErrEmptyText) {
			t.Fatalf("Send(%+v) = %v; want ErrEmptyText", req, err)
		}
		if f.dmCalls+f.commentCalls != 0 {
			t.Fatalf("no provider call expected for %+v", req)
		}
	}
}

func TestReplyService_RoutesByKind(t *testing.T) {
	f := &fakeSender{resp: provider.Response{"id": "r1"}}
	svc := &ReplyService{Sender: f}

	resp, err := svc.Send(context.Background(), ReplyRequest{MessageType: "comment", CommentID: "c1", Text: "gracias"})
	if err != nil || resp["id"] != "r1" {
		t.Fatalf("comment reply = (%v, %v)", resp, err)
	}
	if f.commentCalls != 1 || f.dmCalls != 0 || f.lastTarget != "c1" || f.lastText != "gracias" {
		t.Fatalf("unexpected routing %+v", f)
	}

	if _, err := svc.Send(context.Background(), ReplyRequest{RecipientID: "u1", Text: "hola"}); err != nil {
		t.Fatalf("dm reply: %v", err)
	}
	if f.dmCalls != 1 || f.lastTarget != "u1" {
		t.Fatalf("default kind must be dm, got %+v", f)
	}
}

func TestReplyService_PropagatesProviderErrors(t *testing.T) {
	up := &provider.UpstreamError{StatusCode: 400, Body: `{"error":{"message":"bad","code":100}}`}
	svc := &ReplyService{Sender: &fakeSender{err: up}}

	_, err := svc.Send(context.Background(), ReplyRequest{RecipientID: "u1", Text: "x"})
	if !errors.Is(err, up) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestOutcomeLabels(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "sent"},
		{&MissingTargetError{Field: "comment_id"}, "invalid"},
		{ErrEmptyText, "invalid"},
		{&provider.UpstreamError{StatusCode: 500}, "upstream_error"},
		{&provider.NetworkError{Cause: errors.New("dial")}, "network_error"},
		{errors.New("other"), "error"},
	}
	for _, tc := range cases {
		if got := outcome(tc.err); got != tc.want {
			t.Fatalf("outcome(%v) = %q; want %q", tc.err, got, tc.want)
		}
	}
}

func TestReplyRequest_Kind(t *testing.T) {
	if (ReplyRequest{MessageType: "comment"}).Kind() != "comment" {
		t.Fatalf("comment kind")
	}
	if (ReplyRequest{}).Kind() != "dm" || (ReplyRequest{MessageType: "x"}).Kind() != "dm" {
		t.Fatalf("dm fallback kind")
	}
}

func TestReplyService_KeyLedger(t *testing.T) {
	db := newInboxDB(t)
	svc := &ReplyService{Sender: &fakeSender{}, DB: db, KeyTTL: time.Hour}
	ctx := context.Background()

	if seen, err := svc.Seen(ctx, "op-1", time.Now()); err != nil || seen {
		t.Fatalf("fresh key: (%v, %v)", seen, err)
	}
	if err := svc.Remember(ctx, "op-1"); err != nil {
		t.Fatalf("Remember: %v", err)
	}
	if err := svc.Remember(ctx, "op-1"); err != nil {
		t.Fatalf("second Remember must be a no-op: %v", err)
	}
	if seen, err := svc.Seen(ctx, "op-1", time.Now()); err != nil || !seen {
		t.Fatalf("remembered key: (%v, %v)", seen, err)
	}
	if seen, _ := svc.Seen(ctx, "op-1", time.Now().Add(2*time.Hour)); seen {
		t.Fatalf("key must expire after KeyTTL")
	}

	noDB := &ReplyService{Sender: &fakeSender{}}
	if seen, err := noDB.Seen(ctx, "op-1", time.Now()); seen || err != nil {
		t.Fatalf("ledger disabled without DB")
	}
	if err := noDB.Remember(ctx, "op-1"); err != nil {
		t.Fatalf("Remember without DB: %v", err)
	}
}
