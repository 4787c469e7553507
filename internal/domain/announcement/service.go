package announcement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/rapidcare/rapidcare/internal/platform/apperr"
	"github.com/rapidcare/rapidcare/internal/platform/auth"
	"github.com/rapidcare/rapidcare/internal/platform/docstore"
	"github.com/rapidcare/rapidcare/internal/platform/realtime"
)

type Service struct {
	announcements Repository
	events        realtime.Publisher
	now           func() time.Time
}

func NewService(announcements Repository, events realtime.Publisher) *Service {
	return &Service{announcements: announcements, events: events, now: time.Now}
}

// Active returns a hospital's visible announcements, newest first.
func (s *Service) Active(ctx context.Context, hospitalID string) ([]*Announcement, error) {
	list, err := s.announcements.ListByHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := []*Announcement{}
	for _, a := range list {
		if a.Visible(now) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > ListLimit {
		out = out[:ListLimit]
	}
	return out, nil
}

// Post publishes an announcement to every connected client.
func (s *Service) Post(ctx context.Context, actor auth.Identity, in CreateInput) (*Announcement, error) {
	if in.HospitalID == "" || in.Title == "" || in.Content == "" {
		return nil, apperr.Validation("hospitalId, title and content are required")
	}
	if !actor.Owns(in.HospitalID) {
		return nil, apperr.Forbidden("Forbidden")
	}
	if in.Type == "" {
		in.Type = TypeGeneral
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if err := validate(in.Content, in.Type, in.Priority); err != nil {
		return nil, err
	}

	now := s.now()
	a := &Announcement{
		AnnouncementID: fmt.Sprintf("ANN-%s-%d", in.HospitalID, now.UnixMilli()),
		HospitalID:     in.HospitalID,
		Title:          in.Title,
		Content:        in.Content,
		Type:           in.Type,
		Priority:       in.Priority,
		CreatedBy:      actor.Ref,
		ExpiresAt:      now.Add(Lifetime),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.announcements.Create(ctx, a); err != nil {
		if errors.Is(err, docstore.ErrDuplicateKey) {
			return nil, apperr.Conflict("Announcement ID already exists")
		}
		return nil, err
	}
	s.events.ToAll(realtime.EventAnnouncementPosted, notice(a))
	return a, nil
}

func (s *Service) Update(ctx context.Context, actor auth.Identity, announcementID string, in UpdateInput) (*Announcement, error) {
	a, err := s.owned(ctx, actor, announcementID)
	if err != nil {
		return nil, err
	}
	content, typ, priority := a.Content, a.Type, a.Priority
	if in.Content != "" {
		content = in.Content
	}
	if in.Type != "" {
		typ = in.Type
	}
	if in.Priority != "" {
		priority = in.Priority
	}
	if err := validate(content, typ, priority); err != nil {
		return nil, err
	}
	if in.Title != "" {
		a.Title = in.Title
	}
	a.Content, a.Type, a.Priority = content, typ, priority
	a.UpdatedAt = s.now()
	if err := s.announcements.Update(ctx, a); err != nil {
		return nil, err
	}
	s.events.ToAll(realtime.EventAnnouncementUpdated, notice(a))
	return a, nil
}

// Delete hides an announcement. The record is kept until it expires.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, announcementID string) error {
	a, err := s.owned(ctx, actor, announcementID)
	if err != nil {
		return err
	}
	a.IsActive = false
	a.UpdatedAt = s.now()
	if err := s.announcements.Update(ctx, a); err != nil {
		return err
	}
	s.events.ToAll(realtime.EventAnnouncementDeleted, Removed{HospitalID: a.HospitalID, AnnouncementID: a.AnnouncementID})
	return nil
}

// PurgeExpired removes announcements past their expiry and returns how many
// were removed.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	list, err := s.announcements.List(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()
	n := 0
	for _, a := range list {
		if a.ExpiresAt.After(now) {
			continue
		}
		if err := s.announcements.Delete(ctx, a.AnnouncementID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *Service) owned(ctx context.Context, actor auth.Identity, announcementID string) (*Announcement, error) {
	a, err := s.announcements.Get(ctx, announcementID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperr.NotFound("Announcement not found")
	}
	if err != nil {
		return nil, err
	}
	if !actor.Owns(a.HospitalID) {
		return nil, apperr.Forbidden("Forbidden")
	}
	return a, nil
}

func validate(content, typ, priority string) error {
	if utf8.RuneCountInString(content) > MaxContentLength {
		return apperr.Validation("Content too long (max %d characters)", MaxContentLength)
	}
	if !validTypes[typ] {
		return apperr.Validation("invalid type: %s", typ)
	}
	if !validPriorities[priority] {
		return apperr.Validation("invalid priority: %s", priority)
	}
	return nil
}

func notice(a *Announcement) Notice {
	return Notice{
		HospitalID:     a.HospitalID,
		AnnouncementID: a.AnnouncementID,
		Title:          a.Title,
		Content:        a.Content,
		Type:           a.Type,
		Priority:       a.Priority,
	}
}
