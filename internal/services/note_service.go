package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-mdt-backend/internal/auth"
	"github.com/tbourn/go-mdt-backend/internal/citizens"
	"github.com/tbourn/go-mdt-backend/internal/domain"
	"github.com/tbourn/go-mdt-backend/internal/repo"
)

// MaxNoteRunes caps the length of a citizen note.
const MaxNoteRunes = 4000

// NoteService manages free-form notes on citizens.
type NoteService struct {
	DB       *gorm.DB
	Citizens citizens.Resolver
	Effects  Effects
}

// List returns the notes for a citizen, newest first.
func (s *NoteService) List(ctx context.Context, citizenID int64) ([]domain.CitizenNote, error) {
	return repo.ListByCitizen[domain.CitizenNote](ctx, s.DB, citizenID)
}

// Create adds a note by actor to the citizen.
func (s *NoteService) Create(ctx context.Context, actor auth.Principal, citizenID int64, content string) (citizens.Aggregated[domain.CitizenNote], error) {
	content = strings.TrimSpace(content)
	switch {
	case citizenID <= 0:
		return citizens.Aggregated[domain.CitizenNote]{}, invalid("citizen id is required")
	case content == "":
		return citizens.Aggregated[domain.CitizenNote]{}, invalid("content is required")
	case utf8.RuneCountInString(content) > MaxNoteRunes:
		return citizens.Aggregated[domain.CitizenNote]{}, invalid("content is too long")
	}

	n := domain.CitizenNote{CitizenID: citizenID, OfficerID: actor.OfficerID, Content: content}
	if err := repo.CreateRecord(ctx, s.DB, &n); err != nil {
		return citizens.Aggregated[domain.CitizenNote]{}, err
	}

	out, err := citizens.Attach(ctx, s.Citizens, n)
	if err != nil {
		s.Effects.Log.Warn().Err(err).Int64("citizen_id", citizenID).Msg("citizen lookup failed after write")
		out.Citizen = nil
	}
	s.Effects.publish(ctx, eventName(domain.KindNote, actionCreated), out)
	return out, nil
}

// Delete removes a note. Only its author or a supervisor may delete it.
func (s *NoteService) Delete(ctx context.Context, actor auth.Principal, id uint) error {
	n, err := repo.GetRecord[domain.CitizenNote](ctx, s.DB, id)
	if err != nil {
		return mapNotFound(err)
	}
	if n.OfficerID != actor.OfficerID && !isSupervisor(actor) {
		return ErrForbidden
	}
	if err := repo.DeleteRecord[domain.CitizenNote](ctx, s.DB, id); err != nil {
		return mapNotFound(err)
	}
	s.Effects.publish(ctx, eventName(domain.KindNote, actionDeleted), map[string]any{
		"id":         id,
		"citizen_id": n.CitizenID,
	})
	return nil
}

func isSupervisor(p auth.Principal) bool {
	return p.Role == domain.RoleSupervisor || p.Role == domain.RoleAdmin
}
