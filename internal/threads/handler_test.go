package threads_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/relay/internal/threads"
	"github.com/JaimeStill/relay/pkg/pagination"
)

type mockSystem struct {
	listFn             func(ctx context.Context, page pagination.PageRequest, filters threads.Filters) (*pagination.PageResult[threads.Thread], error)
	findFn             func(ctx context.Context, id uuid.UUID) (*threads.Thread, error)
	resolveFn          func(ctx context.Context, cmd threads.ResolveCommand) (*threads.Thread, bool, error)
	updateStateFn      func(ctx context.Context, id uuid.UUID, cmd threads.StateCommand) (*threads.Thread, error)
	addIntentsFn       func(ctx context.Context, id uuid.UUID, add []string, removeUnknown bool) (*threads.Thread, error)
	setHandlingFn      func(ctx context.Context, id uuid.UUID, handling bool) (*threads.Thread, error)
	manualTransitionFn func(ctx context.Context, id uuid.UUID, cmd threads.TransitionCommand) (*threads.Thread, error)
	archiveFn          func(ctx context.Context, id uuid.UUID) (*threads.Thread, error)
	sweepFn            func(ctx context.Context, age time.Duration) (int, error)
}

func (m *mockSystem) Handler(staleAge time.Duration) *threads.Handler {
	return newTestHandler(m)
}

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters threads.Filters) (*pagination.PageResult[threads.Thread], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*threads.Thread, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) Resolve(ctx context.Context, cmd threads.ResolveCommand) (*threads.Thread, bool, error) {
	return m.resolveFn(ctx, cmd)
}

func (m *mockSystem) UpdateState(ctx context.Context, id uuid.UUID, cmd threads.StateCommand) (*threads.Thread, error) {
	return m.updateStateFn(ctx, id, cmd)
}

func (m *mockSystem) AddIntents(ctx context.Context, id uuid.UUID, add []string, removeUnknown bool) (*threads.Thread, error) {
	return m.addIntentsFn(ctx, id, add, removeUnknown)
}

func (m *mockSystem) SetHumanHandling(ctx context.Context, id uuid.UUID, handling bool) (*threads.Thread, error) {
	return m.setHandlingFn(ctx, id, handling)
}

func (m *mockSystem) ManualTransition(ctx context.Context, id uuid.UUID, cmd threads.TransitionCommand) (*threads.Thread, error) {
	return m.manualTransitionFn(ctx, id, cmd)
}

func (m *mockSystem) Archive(ctx context.Context, id uuid.UUID) (*threads.Thread, error) {
	return m.archiveFn(ctx, id)
}

func (m *mockSystem) Sweep(ctx context.Context, age time.Duration) (int, error) {
	return m.sweepFn(ctx, age)
}

func newTestHandler(sys *mockSystem) *threads.Handler {
	return threads.NewHandler(
		sys,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
		72*time.Hour,
	)
}

func setupMux(h *threads.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

func sampleThread() threads.Thread {
	now := time.Now().Truncate(time.Second)
	externalID := "msg-thread-42"
	return threads.Thread{
		ID:         uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
		ExternalID: &externalID,
		Subject:    "Where is my order?",
		Channel:    "email",
		State:      threads.StateInProgress,
		LastIntent: "order_status",
		Intents:    []string{"order_status"},
		Version:    3,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestHandlerList(t *testing.T) {
	th := sampleThread()
	sys := &mockSystem{
		listFn: func(_ context.Context, _ pagination.PageRequest, _ threads.Filters) (*pagination.PageResult[threads.Thread], error) {
			result := pagination.NewPageResult([]threads.Thread{th}, 1, 1, 20)
			return &result, nil
		},
	}

	mux := setupMux(newTestHandler(sys))

	t.Run("returns paginated list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/threads", nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var result pagination.PageResult[threads.Thread]
		if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
			t.Fatalf("decode: %v", err)
		}

		if result.Total != 1 {
			t.Errorf("total = %d, want 1", result.Total)
		}
		if len(result.Data) != 1 {
			t.Fatalf("data length = %d, want 1", len(result.Data))
		}
		if result.Data[0].ID != th.ID {
			t.Errorf("id = %v, want %v", result.Data[0].ID, th.ID)
		}
	})

	t.Run("passes query filters", func(t *testing.T) {
		var captured threads.Filters
		sys.listFn = func(_ context.Context, _ pagination.PageRequest, f threads.Filters) (*pagination.PageResult[threads.Thread], error) {
			captured = f
			result := pagination.NewPageResult([]threads.Thread{}, 0, 1, 20)
			return &result, nil
		}

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/threads?channel=email&state=ESCALATED&human_handling=true", nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if captured.Channel == nil || *captured.Channel != "email" {
			t.Errorf("channel filter = %v, want email", captured.Channel)
		}
		if captured.State == nil || *captured.State != threads.StateEscalated {
			t.Errorf("state filter = %v, want ESCALATED", captured.State)
		}
		if captured.HumanHandling == nil || !*captured.HumanHandling {
			t.Errorf("human_handling filter = %v, want true", captured.HumanHandling)
		}
	})
}

func TestHandlerFind(t *testing.T) {
	th := sampleThread()

	t.Run("returns thread by id", func(t *testing.T) {
		sys := &mockSystem{
			findFn: func(_ context.Context, id uuid.UUID) (*threads.Thread, error) {
				if id != th.ID {
					return nil, threads.ErrNotFound
				}
				return &th, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/threads/"+th.ID.String(), nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var got threads.Thread
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != th.ID {
			t.Errorf("id = %v, want %v", got.ID, th.ID)
		}
		if got.State != threads.StateInProgress {
			t.Errorf("state = %v, want IN_PROGRESS", got.State)
		}
	})

	t.Run("invalid uuid returns 400", func(t *testing.T) {
		sys := &mockSystem{}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/threads/not-a-uuid", nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("not found returns 404", func(t *testing.T) {
		sys := &mockSystem{
			findFn: func(_ context.Context, _ uuid.UUID) (*threads.Thread, error) {
				return nil, threads.ErrNotFound
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/threads/"+uuid.New().String(), nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHandlerSearch(t *testing.T) {
	th := sampleThread()

	t.Run("returns search results", func(t *testing.T) {
		sys := &mockSystem{
			listFn: func(_ context.Context, _ pagination.PageRequest, _ threads.Filters) (*pagination.PageResult[threads.Thread], error) {
				result := pagination.NewPageResult([]threads.Thread{th}, 1, 1, 20)
				return &result, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		body, _ := json.Marshal(threads.SearchRequest{
			PageRequest: pagination.PageRequest{Page: 1, PageSize: 20},
		})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/threads/search", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var result pagination.PageResult[threads.Thread]
		if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result.Total != 1 {
			t.Errorf("total = %d, want 1", result.Total)
		}
	})

	t.Run("invalid json returns 400", func(t *testing.T) {
		sys := &mockSystem{}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/threads/search", bytes.NewReader([]byte("not json")))
		req.Header.Set("Content-Type", "application/json")
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("normalizes pagination", func(t *testing.T) {
		var capturedPage pagination.PageRequest
		sys := &mockSystem{
			listFn: func(_ context.Context, page pagination.PageRequest, _ threads.Filters) (*pagination.PageResult[threads.Thread], error) {
				capturedPage = page
				result := pagination.NewPageResult([]threads.Thread{}, 0, page.Page, page.PageSize)
				return &result, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		body, _ := json.Marshal(threads.SearchRequest{
			PageRequest: pagination.PageRequest{Page: 0, PageSize: 0},
		})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/threads/search", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if capturedPage.Page != 1 {
			t.Errorf("page = %d, want 1 (normalized)", capturedPage.Page)
		}
		if capturedPage.PageSize != 20 {
			t.Errorf("page_size = %d, want 20 (default)", capturedPage.PageSize)
		}
	})
}

func TestHandlerTransition(t *testing.T) {
	th := sampleThread()
	th.State = threads.StateResolved

	t.Run("applies manual transition", func(t *testing.T) {
		var capturedID uuid.UUID
		var capturedCmd threads.TransitionCommand
		sys := &mockSystem{
			manualTransitionFn: func(_ context.Context, id uuid.UUID, cmd threads.TransitionCommand) (*threads.Thread, error) {
				capturedID = id
				capturedCmd = cmd
				return &th, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		body, _ := json.Marshal(threads.TransitionCommand{
			To:          threads.StateResolved,
			RequestedBy: "agent@store.example",
		})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/threads/"+th.ID.String()+"/transition", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if capturedID != th.ID {
			t.Errorf("id = %v, want %v", capturedID, th.ID)
		}
		if capturedCmd.To != threads.StateResolved {
			t.Errorf("to = %v, want RESOLVED", capturedCmd.To)
		}
		if capturedCmd.RequestedBy != "agent@store.example" {
			t.Errorf("requested_by = %q, want agent@store.example", capturedCmd.RequestedBy)
		}
	})

	t.Run("invalid uuid returns 400", func(t *testing.T) {
		sys := &mockSystem{}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/threads/not-a-uuid/transition", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("invalid json returns 400", func(t *testing.T) {
		sys := &mockSystem{}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/threads/"+th.ID.String()+"/transition", bytes.NewReader([]byte("not json")))
		req.Header.Set("Content-Type", "application/json")
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("disallowed transition returns 400", func(t *testing.T) {
		sys := &mockSystem{
			manualTransitionFn: func(_ context.Context, _ uuid.UUID, _ threads.TransitionCommand) (*threads.Thread, error) {
				return nil, threads.ErrInvalidTransition
			},
		}
		mux := setupMux(newTestHandler(sys))

		body, _ := json.Marshal(threads.TransitionCommand{To: threads.StateNew})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/threads/"+uuid.New().String()+"/transition", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerSetHandling(t *testing.T) {
	th := sampleThread()
	th.HumanHandling = true

	t.Run("sets human handling", func(t *testing.T) {
		var capturedID uuid.UUID
		var capturedHandling bool
		sys := &mockSystem{
			setHandlingFn: func(_ context.Context, id uuid.UUID, handling bool) (*threads.Thread, error) {
				capturedID = id
				capturedHandling = handling
				return &th, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		body, _ := json.Marshal(threads.HandlingRequest{Handling: true})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/threads/"+th.ID.String()+"/handling", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if capturedID != th.ID {
			t.Errorf("id = %v, want %v", capturedID, th.ID)
		}
		if !capturedHandling {
			t.Errorf("handling = false, want true")
		}

		var got threads.Thread
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !got.HumanHandling {
			t.Errorf("human_handling = false, want true")
		}
	})

	t.Run("invalid uuid returns 400", func(t *testing.T) {
		sys := &mockSystem{}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/threads/not-a-uuid/handling", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Content-Type", "application/json")
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("not found returns 404", func(t *testing.T) {
		sys := &mockSystem{
			setHandlingFn: func(_ context.Context, _ uuid.UUID, _ bool) (*threads.Thread, error) {
				return nil, threads.ErrNotFound
			},
		}
		mux := setupMux(newTestHandler(sys))

		body, _ := json.Marshal(threads.HandlingRequest{Handling: false})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/threads/"+uuid.New().String()+"/handling", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHandlerSweep(t *testing.T) {
	t.Run("reports resolved count", func(t *testing.T) {
		var capturedAge time.Duration
		sys := &mockSystem{
			sweepFn: func(_ context.Context, age time.Duration) (int, error) {
				capturedAge = age
				return 4, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/threads/sweep", nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if capturedAge != 72*time.Hour {
			t.Errorf("age = %v, want 72h", capturedAge)
		}

		var got map[string]int
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got["resolved"] != 4 {
			t.Errorf("resolved = %d, want 4", got["resolved"])
		}
	})

	t.Run("system error returns 500", func(t *testing.T) {
		sys := &mockSystem{
			sweepFn: func(_ context.Context, _ time.Duration) (int, error) {
				return 0, context.DeadlineExceeded
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/threads/sweep", nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})
}

func TestHandlerArchive(t *testing.T) {
	th := sampleThread()
	th.Archived = true

	t.Run("archives thread", func(t *testing.T) {
		var capturedID uuid.UUID
		sys := &mockSystem{
			archiveFn: func(_ context.Context, id uuid.UUID) (*threads.Thread, error) {
				capturedID = id
				return &th, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/threads/"+th.ID.String()+"/archive", nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if capturedID != th.ID {
			t.Errorf("id = %v, want %v", capturedID, th.ID)
		}

		var got threads.Thread
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !got.Archived {
			t.Errorf("archived = false, want true")
		}
	})

	t.Run("invalid uuid returns 400", func(t *testing.T) {
		sys := &mockSystem{}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/threads/not-a-uuid/archive", nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("not found returns 404", func(t *testing.T) {
		sys := &mockSystem{
			archiveFn: func(_ context.Context, _ uuid.UUID) (*threads.Thread, error) {
				return nil, threads.ErrNotFound
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/threads/"+uuid.New().String()+"/archive", nil)
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHandlerRoutes(t *testing.T) {
	sys := &mockSystem{}
	h := newTestHandler(sys)
	group := h.Routes()

	if group.Prefix != "/threads" {
		t.Errorf("prefix = %q, want /threads", group.Prefix)
	}

	want := []struct {
		method  string
		pattern string
	}{
		{"GET", ""},
		{"GET", "/{id}"},
		{"POST", "/search"},
		{"POST", "/sweep"},
		{"POST", "/{id}/transition"},
		{"PUT", "/{id}/handling"},
		{"POST", "/{id}/archive"},
	}

	if len(group.Routes) != len(want) {
		t.Fatalf("route count = %d, want %d", len(group.Routes), len(want))
	}

	for i, w := range want {
		r := group.Routes[i]
		if r.Method != w.method || r.Pattern != w.pattern {
			t.Errorf("route[%d] = %s %s, want %s %s", i, r.Method, r.Pattern, w.method, w.pattern)
		}
	}
}
