// Package services – OfficerService
//
// OfficerService manages MDT accounts: creation with bcrypt-hashed
// passwords, listing, updates and credential checks for login. Account
// changes emit an operator notification.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-mdt-backend/internal/auth"
	"github.com/tbourn/go-mdt-backend/internal/domain"
	"github.com/tbourn/go-mdt-backend/internal/notify"
	"github.com/tbourn/go-mdt-backend/internal/repo"
	"github.com/tbourn/go-mdt-backend/internal/utils"
)

// NewOfficer is the input for creating an account.
type NewOfficer struct {
	Username    string
	Password    string
	DisplayName string
	Badge       string
	Rank        string
	Role        string
}

// OfficerPatch holds optional account changes. Nil fields are left alone.
type OfficerPatch struct {
	DisplayName *string
	Badge       *string
	Rank        *string
	Role        *string
	Active      *bool
	Password    *string
}

// OfficerService manages officer accounts.
type OfficerService struct {
	DB      *gorm.DB
	Effects Effects
}

func validRole(r string) bool {
	switch r {
	case domain.RoleOfficer, domain.RoleSupervisor, domain.RoleAdmin:
		return true
	}
	return false
}

// Create registers a new officer. actor is the zero Principal when the
// account is created from the command line.
func (s *OfficerService) Create(ctx context.Context, actor auth.Principal, in NewOfficer) (*domain.Officer, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if username == "" {
		return nil, invalid("username is required")
	}
	display := strings.TrimSpace(in.DisplayName)
	if display == "" {
		display = username
	}
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = domain.RoleOfficer
	}
	if !validRole(role) {
		return nil, invalid("role must be one of: officer, supervisor, admin")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, invalid(err.Error())
	}

	o := &domain.Officer{
		Username:     username,
		PasswordHash: hash,
		DisplayName:  display,
		Badge:        strings.TrimSpace(in.Badge),
		Rank:         strings.TrimSpace(in.Rank),
		Role:         role,
		Active:       true,
	}
	if err := repo.CreateOfficer(ctx, s.DB, o); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	s.operatorEvent(ctx, actor, actionCreated, "Officer account created", o)
	return o, nil
}

// Get returns an officer by ID.
func (s *OfficerService) Get(ctx context.Context, id uint) (*domain.Officer, error) {
	o, err := repo.GetOfficer(ctx, s.DB, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return o, nil
}

// ListPage returns a page of officers ordered by username.
func (s *OfficerService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Officer, int64, error) {
	_, pageSize, offset := utils.Window(page, pageSize)
	total, err := repo.CountOfficers(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Officer{}, 0, nil
	}
	items, err := repo.ListOfficersPage(ctx, s.DB, offset, pageSize)
	return items, total, err
}

// Update applies p to the officer.
func (s *OfficerService) Update(ctx context.Context, actor auth.Principal, id uint, p OfficerPatch) (*domain.Officer, error) {
	fields := map[string]any{}
	if p.DisplayName != nil {
		v := strings.TrimSpace(*p.DisplayName)
		if v == "" {
			return nil, invalid("display_name cannot be empty")
		}
		fields["display_name"] = v
	}
	if p.Badge != nil {
		fields["badge"] = strings.TrimSpace(*p.Badge)
	}
	if p.Rank != nil {
		fields["rank"] = strings.TrimSpace(*p.Rank)
	}
	if p.Role != nil {
		if !validRole(*p.Role) {
			return nil, invalid("role must be one of: officer, supervisor, admin")
		}
		fields["role"] = *p.Role
	}
	if p.Active != nil {
		if !*p.Active && id == actor.OfficerID {
			return nil, invalid("cannot deactivate your own account")
		}
		fields["active"] = *p.Active
	}
	if p.Password != nil {
		hash, err := auth.HashPassword(*p.Password)
		if err != nil {
			return nil, invalid(err.Error())
		}
		fields["password_hash"] = hash
	}

	if err := repo.UpdateOfficer(ctx, s.DB, id, fields); err != nil {
		return nil, mapNotFound(err)
	}
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.operatorEvent(ctx, actor, actionUpdated, "Officer account updated", o)
	return o, nil
}

// Authenticate checks a username and password. Unknown users, inactive
// accounts and wrong passwords all yield ErrBadCredentials.
func (s *OfficerService) Authenticate(ctx context.Context, username, password string) (*domain.Officer, error) {
	o, err := repo.GetOfficerByUsername(ctx, s.DB, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if !o.Active {
		return nil, ErrBadCredentials
	}
	if err := auth.CheckPassword(o.PasswordHash, password); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *OfficerService) operatorEvent(ctx context.Context, actor auth.Principal, action, what string, o *domain.Officer) {
	by := actorLabel(actor)
	if by == "" {
		by = "system"
	}
	active := "yes"
	if !o.Active {
		active = "no"
	}
	s.Effects.notify(ctx, notify.Event{
		Kind:  notify.KindOperator,
		Title: what,
		Fields: []notify.Field{
			{Name: "Officer", Value: fmt.Sprintf("%s (%s)", o.DisplayName, o.Username), Inline: true},
			{Name: "Role", Value: o.Role, Inline: true},
			{Name: "Badge", Value: o.Badge, Inline: true},
			{Name: "Active", Value: active, Inline: true},
		},
		Actor: by,
		At:    time.Now().UTC(),
	})
	s.Effects.publish(ctx, eventName("officer", action), map[string]any{"id": o.ID, "username": o.Username})
}

// PrincipalOf builds the session identity of an officer.
func PrincipalOf(o *domain.Officer) auth.Principal {
	return auth.Principal{
		OfficerID:   o.ID,
		Username:    o.Username,
		DisplayName: o.DisplayName,
		Role:        o.Role,
	}
}
