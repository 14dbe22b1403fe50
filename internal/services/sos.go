package services

import (
	"context"
	"strings"

	"ridemate/internal/models"
	"ridemate/internal/repository"

	"github.com/google/uuid"
)

// SOSService keeps the active rider's emergency contacts in sync
type SOSService struct {
	repo     *repository.SOSRepository
	session  IdentitySource
	contacts *Collection[models.SOSContact]
	dialCode string
}

// NewSOSService creates a new SOS contact service. Numbers entered without a
// country prefix get dialCode.
func NewSOSService(repo *repository.SOSRepository, session IdentitySource, notifier Notifier, dialCode string) *SOSService {
	return &SOSService{
		repo:     repo,
		session:  session,
		contacts: NewCollection("sos", func(c models.SOSContact) string { return c.ID }, notifier),
		dialCode: dialCode,
	}
}

// Refresh loads the contacts and keeps only the active rider's
func (s *SOSService) Refresh(ctx context.Context) error {
	id := s.session.Identity()
	if id == nil {
		s.contacts.Reset()
		return nil
	}

	contacts, err := s.repo.List(ctx)
	if err != nil {
		return err
	}

	mine := make([]models.SOSContact, 0, len(contacts))
	for _, c := range contacts {
		if c.OwnedBy(id.ID) {
			mine = append(mine, c)
		}
	}
	s.contacts.Replace(mine)
	return nil
}

// Reset forgets the cached contacts
func (s *SOSService) Reset() {
	s.contacts.Reset()
}

// List returns the active rider's contacts
func (s *SOSService) List() []models.SOSContact {
	return s.contacts.Snapshot()
}

// Add stores a new contact. Each contact has its own id; the rider is kept in
// userId, so a rider may have several contacts.
func (s *SOSService) Add(ctx context.Context, name, phone string) (*models.SOSContact, error) {
	id := s.session.Identity()
	if id == nil {
		return nil, ErrNotLoggedIn
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	phone = s.NormalizePhone(phone)
	if phone == "" {
		return nil, invalid("phone", "is required")
	}

	contact := models.SOSContact{
		ID:     uuid.New().String(),
		UserID: id.ID,
		Name:   name,
		Phone:  phone,
	}

	undo := s.contacts.Append(contact)
	err := s.contacts.Commit(ctx, "add sos contact", contact.ID, undo, func(ctx context.Context) error {
		return s.repo.Create(ctx, contact)
	})
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// Remove deletes a contact
func (s *SOSService) Remove(ctx context.Context, contactID string) error {
	if s.session.Identity() == nil {
		return ErrNotLoggedIn
	}

	_, undo, err := s.contacts.Remove(contactID)
	if err != nil {
		return err
	}
	return s.contacts.Commit(ctx, "delete sos contact", contactID, undo, func(ctx context.Context) error {
		return s.repo.Delete(ctx, contactID)
	})
}

// NormalizePhone strips separators and adds the default dial code to local numbers
func (s *SOSService) NormalizePhone(phone string) string {
	phone = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))

	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	phone = strings.TrimLeft(phone, "0")
	if phone == "" {
		return ""
	}
	return s.dialCode + phone
}
