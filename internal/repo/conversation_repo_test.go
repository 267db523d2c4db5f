package repo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
)

func TestGetOrCreateConversation_ReturnsSameRow(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	cr, err := CreateCreature(ctx, db, "u1", "Pip", "", nil)
	if err != nil {
		t.Fatalf("CreateCreature: %v", err)
	}

	first, created, err := GetOrCreateConversation(ctx, db, cr.ID, "u1")
	if err != nil || !created {
		t.Fatalf("first call: created=%v err=%v", created, err)
	}
	second, created2, err := GetOrCreateConversation(ctx, db, cr.ID, "u1")
	if err != nil || created2 {
		t.Fatalf("second call: created=%v err=%v", created2, err)
	}
	if first.ID != second.ID {
		t.Fatalf("ids differ: %s vs %s", first.ID, second.ID)
	}
}

func TestGetOrCreateConversation_ConcurrentCallersConverge(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	cr, _ := CreateCreature(ctx, db, "u1", "Pip", "", nil)

	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, _, err := GetOrCreateConversation(ctx, db, cr.ID, "u1")
			if err != nil {
				t.Errorf("GetOrCreateConversation: %v", err)
				return
			}
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("caller %d got %s; want %s", i, ids[i], ids[0])
		}
	}
	var count int64
	db.Model(&domain.Conversation{}).Count(&count)
	if count != 1 {
		t.Fatalf("conversations = %d; want 1", count)
	}
}

func TestTouchConversation_AndRecentOrdering(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	_, older := seedConversation(t, db, "u1")
	_, newer := seedConversation(t, db, "u2")

	later := time.Now().UTC().Add(time.Minute)
	if err := TouchConversation(ctx, db, older.ID, later); err != nil {
		t.Fatalf("TouchConversation: %v", err)
	}
	if err := TouchConversation(ctx, db, "missing", later); !errors.Is(err, ErrNotFound) {
		t.Fatalf("touch missing: want ErrNotFound, got %v", err)
	}

	list, err := ListRecentConversations(ctx, db, 20)
	if err != nil {
		t.Fatalf("ListRecentConversations: %v", err)
	}
	if len(list) != 2 || list[0].ID != older.ID || list[1].ID != newer.ID {
		t.Fatalf("unexpected order: %+v", list)
	}
	if list[0].Creature.Name != "Bramble" {
		t.Fatalf("creature not preloaded: %+v", list[0].Creature)
	}

	one, _ := ListRecentConversations(ctx, db, 1)
	if len(one) != 1 {
		t.Fatalf("limit ignored: %d rows", len(one))
	}
}

func TestCreatureRepo_OwnershipAndTransitions(t *testing.T) {
	db := newTestDB(t, true)
	ctx := context.Background()
	img := "https://img.example/pip.png"
	cr, err := CreateCreature(ctx, db, "u1", "Pip", "story", &img)
	if err != nil {
		t.Fatalf("CreateCreature: %v", err)
	}
	if cr.State != domain.CreatureIdle {
		t.Fatalf("new creature state = %s; want idle", cr.State)
	}

	if _, err := GetCreature(ctx, db, cr.ID, "someone-else"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign owner: want ErrNotFound, got %v", err)
	}
	if _, err := GetCreatureByID(ctx, db, cr.ID); err != nil {
		t.Fatalf("GetCreatureByID: %v", err)
	}

	changed, err := TransitionCreatureState(ctx, db, cr.ID, domain.CreatureAwaitingReply)
	if err != nil || changed {
		t.Fatalf("idle -> awaiting_reply must be refused: changed=%v err=%v", changed, err)
	}
	changed, err = TransitionCreatureState(ctx, db, cr.ID, domain.CreatureWaitingForLetter)
	if err != nil || !changed {
		t.Fatalf("idle -> waiting_for_letter: changed=%v err=%v", changed, err)
	}
	changed, _ = TransitionCreatureState(ctx, db, cr.ID, domain.CreatureWaitingForLetter)
	if changed {
		t.Fatalf("repeat transition must be a no-op")
	}

	list, err := ListCreatures(ctx, db, "u1")
	if err != nil || len(list) != 1 || list[0].State != domain.CreatureWaitingForLetter {
		t.Fatalf("ListCreatures: %+v err=%v", list, err)
	}
}
