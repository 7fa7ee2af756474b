package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/layers"
)

func newTestStore(ttl time.Duration, evicted *[]string) *Store {
	return NewStore(ttl, func() *layers.Cache {
		return layers.NewCache(func(ctx context.Context) (*layers.Tables, error) {
			return &layers.Tables{ID: "t"}, nil
		})
	}, func(s *Session) {
		*evicted = append(*evicted, s.ID)
	}, logrus.New())
}

func TestStoreGet(t *testing.T) {
	var evicted []string
	st := newTestStore(time.Minute, &evicted)

	s, created := st.Get("")
	if !created || s.ID == "" {
		t.Fatalf("created=%v id=%q", created, s.ID)
	}
	again, created := st.Get(s.ID)
	if created || again != s {
		t.Error("known id should return the same session")
	}
	if _, created := st.Get("unknown"); !created {
		t.Error("unknown id should create a session")
	}
	if st.Len() != 2 {
		t.Errorf("Len=%d, want 2", st.Len())
	}
}

func TestStoreExpires(t *testing.T) {
	var evicted []string
	st := newTestStore(time.Minute, &evicted)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	s, _ := st.Get("")
	now = now.Add(2 * time.Minute)
	st.Sweep()

	if st.Len() != 0 {
		t.Errorf("Len=%d, want 0", st.Len())
	}
	if len(evicted) != 1 || evicted[0] != s.ID {
		t.Errorf("evicted=%v, want [%s]", evicted, s.ID)
	}
	if _, created := st.Get(s.ID); !created {
		t.Error("expired id should get a fresh session")
	}
}

func TestSessionCategory(t *testing.T) {
	var evicted []string
	s, _ := newTestStore(0, &evicted).Get("")
	if s.Category() != "" {
		t.Errorf("initial category=%q", s.Category())
	}
	s.SetCategory("Autopista")
	if s.Category() != "Autopista" {
		t.Errorf("category=%q, want Autopista", s.Category())
	}
}

func TestMiddleware(t *testing.T) {
	var evicted []string
	st := newTestStore(time.Minute, &evicted)

	var seen *Session
	h := st.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := FromContext(r.Context())
		if err != nil {
			t.Fatal(err)
		}
		seen = s
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || cookies[0].Value != seen.ID {
		t.Fatalf("cookies=%v, want session cookie %s", cookies, seen.ID)
	}
	first := seen

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != first {
		t.Error("cookie should resolve to the same session")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("existing session should not reset the cookie")
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, err := FromContext(context.Background()); !errors.Is(err, ErrSessionRequired) {
		t.Errorf("err=%v, want ErrSessionRequired", err)
	}
}
