package calendar

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleProvider создаёт события Google Calendar с конференцией Google Meet
type GoogleProvider struct {
	credentials []byte
	calendarID  string
	impersonate bool
}

// NewGoogleProvider читает ключ сервисного аккаунта.
// При impersonate события создаются от имени организатора (domain-wide delegation).
func NewGoogleProvider(credentialsFile, calendarID string, impersonate bool) (*GoogleProvider, error) {
	credentials, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read google credentials: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleProvider{
		credentials: credentials,
		calendarID:  calendarID,
		impersonate: impersonate,
	}, nil
}

func (p *GoogleProvider) service(ctx context.Context, organizer string) (*gcal.Service, error) {
	if p.impersonate && organizer != "" {
		conf, err := google.JWTConfigFromJSON(p.credentials, gcal.CalendarEventsScope)
		if err != nil {
			return nil, fmt.Errorf("parse google credentials: %w", err)
		}
		conf.Subject = organizer
		return gcal.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx)))
	}
	return gcal.NewService(ctx,
		option.WithCredentialsJSON(p.credentials),
		option.WithScopes(gcal.CalendarEventsScope),
	)
}

// CreateMeetingEvent создаёт событие и возвращает ссылку Meet
func (p *GoogleProvider) CreateMeetingEvent(ctx context.Context, in EventInput) (string, error) {
	svc, err := p.service(ctx, in.Organizer)
	if err != nil {
		return "", fmt.Errorf("create calendar service: %w", err)
	}

	attendees := make([]*gcal.EventAttendee, 0, len(in.Attendees))
	for _, email := range in.Attendees {
		if email != "" {
			attendees = append(attendees, &gcal.EventAttendee{Email: email})
		}
	}

	event := &gcal.Event{
		Summary:     in.Summary,
		Description: in.Description,
		Start: &gcal.EventDateTime{
			DateTime: in.Start.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &gcal.EventDateTime{
			DateTime: in.End.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		Attendees: attendees,
		ConferenceData: &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}

	created, err := svc.Events.Insert(p.calendarID, event).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("insert calendar event: %w", err)
	}

	if created.HangoutLink != "" {
		return created.HangoutLink, nil
	}
	if created.ConferenceData != nil {
		for _, ep := range created.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" && ep.Uri != "" {
				return ep.Uri, nil
			}
		}
	}
	return "", fmt.Errorf("calendar event %s has no conference link", created.Id)
}
