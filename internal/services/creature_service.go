package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
	"github.com/tbourn/fantasy-letters-backend/internal/repo"
)

// CreatureService manages the magical pen pals a user creates.
type CreatureService struct {
	DB *gorm.DB

	// NameMaxLen caps names by rune length.
	NameMaxLen int
	// BackstoryMaxLen caps backstories by rune length.
	BackstoryMaxLen int
	// NameLocale drives word casing of names; Und means English.
	NameLocale language.Tag
}

// NewCreatureService constructs a CreatureService with default limits.
func NewCreatureService(db *gorm.DB) *CreatureService {
	return &CreatureService{DB: db, NameMaxLen: 80, BackstoryMaxLen: 2000, NameLocale: language.Und}
}

// Create inserts an idle creature owned by userID. Names are trimmed,
// whitespace-collapsed and title-cased; a blank name is rejected.
func (s *CreatureService) Create(ctx context.Context, userID, name, backstory, imageRef string) (*domain.Creature, error) {
	ctx, span := startSpan(ctx, "services/CreatureService", "Create")
	defer span.End()

	name = creatureName(name, s.NameLocale)
	if name == "" {
		return nil, ErrInvalidName
	}
	backstory = normalizeLetter(backstory)
	if tooLong(name, s.NameMaxLen) || tooLong(backstory, s.BackstoryMaxLen) {
		return nil, ErrTooLong
	}
	return repo.CreateCreature(ctx, s.DB, userID, name, backstory, optional(normalizeLine(imageRef)))
}

// List returns userID's creatures, newest first.
func (s *CreatureService) List(ctx context.Context, userID string) ([]domain.Creature, error) {
	return repo.ListCreatures(ctx, s.DB, userID)
}

// Get returns one of userID's creatures.
func (s *CreatureService) Get(ctx context.Context, userID, id string) (*domain.Creature, error) {
	c, err := repo.GetCreature(ctx, s.DB, id, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrCreatureNotFound
	}
	return c, err
}

// Stats returns count and last modification time for ETag generation.
func (s *CreatureService) Stats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return repo.CreaturesStats(ctx, s.DB, userID)
}
