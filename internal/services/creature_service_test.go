package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
)

func TestCreatureService_Create(t *testing.T) {
	s := NewCreatureService(newSvcDB(t))
	ctx := context.Background()

	c, err := s.Create(ctx, "kid-1", "  princess   sparkle   hoof ", "Lives\r\n\r\n\r\nunder a rainbow.", "  ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Name != "Princess Sparkle Hoof" {
		t.Fatalf("name = %q", c.Name)
	}
	if c.Backstory != "Lives\n\nunder a rainbow." {
		t.Fatalf("backstory = %q", c.Backstory)
	}
	if c.ImageReference != nil {
		t.Fatalf("blank image should be nil, got %q", *c.ImageReference)
	}
	if c.State != domain.CreatureIdle {
		t.Fatalf("state = %s; want idle", c.State)
	}

	if _, err := s.Create(ctx, "kid-1", "   ", "", ""); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("want ErrInvalidName, got %v", err)
	}
	if _, err := s.Create(ctx, "kid-1", strings.Repeat("x", 81), "", ""); !errors.Is(err, ErrTooLong) {
		t.Fatalf("want ErrTooLong, got %v", err)
	}
}

func TestCreatureService_ListGetStats(t *testing.T) {
	s := NewCreatureService(newSvcDB(t))
	ctx := context.Background()
	a, _ := s.Create(ctx, "kid-1", "Moss", "", "")
	if _, err := s.Create(ctx, "kid-2", "Fern", "", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := s.List(ctx, "kid-1")
	if err != nil || len(list) != 1 || list[0].ID != a.ID {
		t.Fatalf("List = %+v err=%v", list, err)
	}
	if _, err := s.Get(ctx, "kid-2", a.ID); !errors.Is(err, ErrCreatureNotFound) {
		t.Fatalf("foreign Get: want ErrCreatureNotFound, got %v", err)
	}
	got, err := s.Get(ctx, "kid-1", a.ID)
	if err != nil || got.Name != "Moss" {
		t.Fatalf("Get = %+v err=%v", got, err)
	}
	n, last, err := s.Stats(ctx, "kid-1")
	if err != nil || n != 1 || last == nil {
		t.Fatalf("Stats = %d %v %v", n, last, err)
	}
}
