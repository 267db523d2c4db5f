package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
	"github.com/tbourn/fantasy-letters-backend/internal/services"
)

func TestCreateCreature(t *testing.T) {
	var gotUser, gotName string
	h := New(Deps{Creatures: stubCreatures{
		create: func(_ context.Context, userID, name, _, _ string) (*domain.Creature, error) {
			gotUser, gotName = userID, name
			if name == "   " {
				return nil, services.ErrInvalidName
			}
			return &domain.Creature{ID: "c-1", UserID: userID, Name: "Princess Sparkle", State: domain.CreatureIdle}, nil
		},
	}})
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/api/v1/creatures", CreateCreatureRequest{Name: "princess sparkle"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	cr := decode[domain.Creature](t, w)
	if cr.Name != "Princess Sparkle" || gotUser != testUser || gotName != "princess sparkle" {
		t.Fatalf("unexpected create: %+v user=%q name=%q", cr, gotUser, gotName)
	}
	if loc := w.Header().Get("Location"); loc != "/api/v1/creatures/c-1" {
		t.Fatalf("Location = %q", loc)
	}

	expectError(t, doJSON(t, r, http.MethodPost, "/api/v1/creatures", `{`, nil), http.StatusBadRequest, ErrCodeBadRequest)
	expectError(t, doJSON(t, r, http.MethodPost, "/api/v1/creatures", CreateCreatureRequest{Name: "   "}, nil), http.StatusBadRequest, ErrCodeBadRequest)
}

func TestListCreatures_ETag(t *testing.T) {
	latest := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	calls := 0
	h := New(Deps{Creatures: stubCreatures{
		list: func(context.Context, string) ([]domain.Creature, error) {
			calls++
			return nil, nil
		},
		stats: func(context.Context, string) (int64, *time.Time, error) { return 2, &latest, nil },
	}})
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodGet, "/api/v1/creatures", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := decode[ListCreaturesResponse](t, w); body.Creatures == nil || len(body.Creatures) != 0 {
		t.Fatalf("expected empty, non-nil list; got %+v", body)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/creatures", nil, map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Fatalf("status = %d; want 304", w.Code)
	}
	if calls != 1 {
		t.Fatalf("list called %d times; want 1", calls)
	}
}

func TestGetCreature(t *testing.T) {
	id := uuid.NewString()
	h := New(Deps{Creatures: stubCreatures{
		get: func(_ context.Context, _ string, got string) (*domain.Creature, error) {
			if got != id {
				return nil, services.ErrCreatureNotFound
			}
			return &domain.Creature{ID: id, Name: "Bramble"}, nil
		},
	}})
	r := newTestRouter(h)

	if w := doJSON(t, r, http.MethodGet, "/api/v1/creatures/"+id, nil, nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	expectError(t, doJSON(t, r, http.MethodGet, "/api/v1/creatures/not-a-uuid", nil, nil), http.StatusBadRequest, ErrCodeBadRequest)
	expectError(t, doJSON(t, r, http.MethodGet, "/api/v1/creatures/"+uuid.NewString(), nil, nil), http.StatusNotFound, ErrCodeNotFound)
}

func TestStartConversation_CreatedAndExisting(t *testing.T) {
	id := uuid.NewString()
	created := true
	h := New(Deps{Conversations: stubConversations{
		start: func(_ context.Context, userID, creatureID string) (*domain.Conversation, bool, error) {
			if creatureID != id {
				return nil, false, services.ErrCreatureNotFound
			}
			c := created
			created = false
			return &domain.Conversation{ID: "conv-1", CreatureID: creatureID, UserID: userID}, c, nil
		},
	}})
	r := newTestRouter(h)

	w := doJSON(t, r, http.MethodPost, "/api/v1/creatures/"+id+"/conversation", nil, nil)
	if w.Code != http.StatusCreated || !decode[ConversationResponse](t, w).Created {
		t.Fatalf("first call: %d %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodPost, "/api/v1/creatures/"+id+"/conversation", nil, nil)
	if w.Code != http.StatusOK || decode[ConversationResponse](t, w).Created {
		t.Fatalf("second call: %d %s", w.Code, w.Body.String())
	}
	expectError(t, doJSON(t, r, http.MethodPost, "/api/v1/creatures/"+uuid.NewString()+"/conversation", nil, nil),
		http.StatusNotFound, ErrCodeNotFound)
}
