package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-helpdesk-webhook/internal/http/middleware"
	"github.com/tbourn/go-helpdesk-webhook/internal/provider"
	"github.com/tbourn/go-helpdesk-webhook/internal/services"
)

func TestPostReply_Success(t *testing.T) {
	rep := &fakeReplier{resp: provider.Response{"recipient_id": "u1", "message_id": "m_1"}}
	h := New(services.Verifier{}, &fakeInbox{}, rep, errConvSvc{})

	w := do(newAPIRouter(h), http.MethodPost, "/replies", `{"message_type":"dm","recipient_id":"u1","text":"hola"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp ReplyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.MetaResponse["message_id"] != "m_1" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if rep.last.RecipientID != "u1" || rep.last.Text != "hola" {
		t.Fatalf("unexpected request: %+v", rep.last)
	}
}

func TestPostReply_BadInput(t *testing.T) {
	rep := &fakeReplier{}
	r := newAPIRouter(New(services.Verifier{}, &fakeInbox{}, rep, errConvSvc{}))

	for _, body := range []string{`{bad`, `{"message_type":"dm","recipient_id":"u1","text":"  "}`} {
		w := do(r, http.MethodPost, "/replies", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d", body, w.Code)
		}
	}
	if rep.calls != 0 {
		t.Fatalf("replier must not be called")
	}
}

func TestPostReply_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"missing target", &services.MissingTargetError{Field: "recipient_id"}, http.StatusBadRequest, ErrCodeMissingTarget,
			`missing required field "recipient_id" for this message type`},
		{"upstream", &provider.UpstreamError{StatusCode: 400, Body: `{"error":{"message":"bad","code":100}}`}, http.StatusBadGateway, ErrCodeUpstream,
			"(#100) bad"},
		{"network", &provider.NetworkError{Cause: errors.New("timeout")}, http.StatusGatewayTimeout, ErrCodeUpstream,
			"graph api network error: timeout"},
		{"blank text", services.ErrEmptyText, http.StatusBadRequest, ErrCodeBadRequest, "text required"},
		{"other", errors.New("boom"), http.StatusInternalServerError, ErrCodeReplyFailed, "boom"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := New(services.Verifier{}, &fakeInbox{}, &fakeReplier{err: tc.err}, errConvSvc{})
			w := do(newAPIRouter(h), http.MethodPost, "/replies", `{"message_type":"dm","recipient_id":"u1","text":"x"}`)
			if w.Code != tc.status {
				t.Fatalf("status=%d want %d", w.Code, tc.status)
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v", err)
			}
			if er.Code != tc.code || er.Message != tc.msg {
				t.Fatalf("unexpected envelope: %+v", er)
			}
		})
	}
}

type ledgerReplier struct {
	fakeReplier
	remembered []string
}

func (l *ledgerReplier) Remember(_ context.Context, key string) error {
	l.remembered = append(l.remembered, key)
	return nil
}

func TestPostReply_IdempotencyKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rep := &ledgerReplier{}
	h := New(services.Verifier{}, &fakeInbox{}, rep, errConvSvc{})

	seen := map[string]bool{}
	r := gin.New()
	r.POST("/replies", middleware.IdempotencyValidator(middleware.IdempotencyOptions{},
		func(_ context.Context, key string, _ time.Time) (bool, error) { return seen[key], nil },
	), h.PostReply)

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/replies", strings.NewReader(`{"recipient_id":"u1","text":"hola"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.HeaderIdempotencyKey, key)
		return doReq(r, req).Code
	}

	if code := send("k-1"); code != http.StatusOK {
		t.Fatalf("first send: %d", code)
	}
	if len(rep.remembered) != 1 || rep.remembered[0] != "k-1" {
		t.Fatalf("key not remembered: %v", rep.remembered)
	}
	seen["k-1"] = true
	if code := send("k-1"); code != http.StatusConflict {
		t.Fatalf("replay: %d", code)
	}
	if rep.calls != 1 {
		t.Fatalf("provider called %d times; want 1", rep.calls)
	}
}
