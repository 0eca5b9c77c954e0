package ledger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	ledgerstore "github.com/dalemusser/strataattend/internal/app/store/ledger"
	"github.com/dalemusser/strataattend/internal/testutil"
	"go.uber.org/zap"
)

func TestMiddleware_StoresFailuresOnly(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := ledgerstore.New(db)
	rc := NewRecorder(store, zap.NewNop())

	h := rc.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/code":
			SetUserID(r.Context(), 42)
			SetError(r.Context(), ClassInvalidCode, "bad code")
			w.WriteHeader(http.StatusForbidden)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	for _, p := range []string{"/ok", "/code", "/missing"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, p, nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		h.ServeHTTP(rec, req)
		if rec.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: missing X-Request-ID", p)
		}
	}
	rc.Wait()

	entries, err := store.Recent(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("stored %d entries, want 2", len(entries))
	}

	byPath := map[string]ledgerstore.Entry{}
	for _, e := range entries {
		byPath[e.Path] = e
	}
	code := byPath["/code"]
	if code.ErrorClass != ClassInvalidCode || code.UserID != 42 || code.StatusCode != http.StatusForbidden {
		t.Errorf("/code entry = %+v", code)
	}
	if code.RemoteIP != "203.0.113.9" {
		t.Errorf("RemoteIP = %q", code.RemoteIP)
	}
	if byPath["/missing"].ErrorClass != ClassNotFound {
		t.Errorf("/missing class = %q", byPath["/missing"].ErrorClass)
	}
}

func TestMiddleware_NilRecorderPassesThrough(t *testing.T) {
	var rc *Recorder
	called := false
	h := rc.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		SetError(r.Context(), ClassStorage, "ignored")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("handler not called")
	}
}

func TestClassForStatus(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{400, ClassValidation},
		{401, ClassAuth},
		{404, ClassNotFound},
		{409, "client_error"},
		{503, ClassInternal},
	}
	for _, tt := range tests {
		if got := classForStatus(tt.code); got != tt.want {
			t.Errorf("classForStatus(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
