package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
	"github.com/tbourn/fantasy-letters-backend/internal/repo"
)

func TestConversationService_StartOrFetch(t *testing.T) {
	db := newSvcDB(t)
	ctx := context.Background()
	cr, err := repo.CreateCreature(ctx, db, "kid-1", "Moss", "", nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	s := &ConversationService{DB: db}

	c1, created, err := s.StartOrFetch(ctx, "kid-1", cr.ID)
	if err != nil || !created {
		t.Fatalf("first StartOrFetch: created=%v err=%v", created, err)
	}
	got, _ := repo.GetCreatureByID(ctx, db, cr.ID)
	if got.State != domain.CreatureWaitingForLetter {
		t.Fatalf("state = %s; want waiting_for_letter", got.State)
	}

	c2, created, err := s.StartOrFetch(ctx, "kid-1", cr.ID)
	if err != nil || created || c2.ID != c1.ID {
		t.Fatalf("second StartOrFetch: id=%s created=%v err=%v", c2.ID, created, err)
	}

	if _, _, err := s.StartOrFetch(ctx, "kid-2", cr.ID); !errors.Is(err, ErrCreatureNotFound) {
		t.Fatalf("foreign creature: want ErrCreatureNotFound, got %v", err)
	}
	if _, _, err := s.StartOrFetch(ctx, "", cr.ID); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("want ErrNotAuthenticated, got %v", err)
	}
}

func TestConversationService_ListMessages(t *testing.T) {
	f := newFixture(t, domain.Account{})
	ctx := context.Background()
	clock := tickingClock(testDay)
	for _, body := range []string{"one", "two", "three"} {
		m := &domain.Message{
			ConversationID: f.conv.ID,
			Sender:         domain.SenderUser,
			Delivery:       domain.DeliveryDigital,
			Content:        body,
			Status:         domain.StatusSent,
			CreatedAt:      clock(),
		}
		if err := repo.CreateMessage(ctx, f.db, m); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	s := &ConversationService{DB: f.db}

	all, err := s.ListMessages(ctx, f.userID, f.conv.ID)
	if err != nil || len(all) != 3 || all[0].Content != "one" || all[2].Content != "three" {
		t.Fatalf("ListMessages = %+v err=%v", all, err)
	}

	page, total, err := s.ListMessagesPage(ctx, f.userID, f.conv.ID, 2, 2)
	if err != nil || total != 3 || len(page) != 1 || page[0].Content != "three" {
		t.Fatalf("page 2 = %+v total=%d err=%v", page, total, err)
	}

	n, last, err := s.MessagesStats(ctx, f.userID, f.conv.ID)
	if err != nil || n != 3 || last == nil {
		t.Fatalf("MessagesStats = %d %v %v", n, last, err)
	}

	if _, err := s.ListMessages(ctx, "intruder", f.conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("want ErrConversationNotFound, got %v", err)
	}
}
