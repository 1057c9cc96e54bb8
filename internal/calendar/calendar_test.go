package calendar

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type providerFunc func(ctx context.Context, in EventInput) (string, error)

func (f providerFunc) CreateMeetingEvent(ctx context.Context, in EventInput) (string, error) {
	return f(ctx, in)
}

func assertPlaceholder(t *testing.T, prefix, link string) {
	t.Helper()
	require.True(t, strings.HasPrefix(link, prefix+"/"), link)
	_, err := uuid.Parse(strings.TrimPrefix(link, prefix+"/"))
	assert.NoError(t, err)
}

func TestPlaceholderLinkIsUnique(t *testing.T) {
	a := PlaceholderLink("https://meet.example.com/")
	b := PlaceholderLink("")

	assertPlaceholder(t, DefaultLinkPrefix, a)
	assertPlaceholder(t, DefaultLinkPrefix, b)
	assert.NotEqual(t, a, b)
}

func TestLinkUsesProvider(t *testing.T) {
	r := NewResolver(providerFunc(func(ctx context.Context, in EventInput) (string, error) {
		assert.Equal(t, "Meeting: Ann & Bob", in.Summary)
		return "https://meet.google.com/abc-defg-hij", nil
	}), "", time.Second, zap.NewNop())

	link := r.Link(context.Background(), EventInput{Summary: "Meeting: Ann & Bob"})

	assert.Equal(t, "https://meet.google.com/abc-defg-hij", link)
}

func TestLinkFallsBackOnFailure(t *testing.T) {
	r := NewResolver(providerFunc(func(ctx context.Context, in EventInput) (string, error) {
		return "", errors.New("403 forbidden")
	}), "https://video.test", time.Second, zap.NewNop())

	assertPlaceholder(t, "https://video.test", r.Link(context.Background(), EventInput{}))
}

func TestLinkFallsBackOnTimeout(t *testing.T) {
	r := NewResolver(providerFunc(func(ctx context.Context, in EventInput) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}), "", 10*time.Millisecond, zap.NewNop())

	assertPlaceholder(t, DefaultLinkPrefix, r.Link(context.Background(), EventInput{}))
}

func TestLinkWithoutProvider(t *testing.T) {
	r := NewResolver(nil, "", time.Second, zap.NewNop())

	assertPlaceholder(t, DefaultLinkPrefix, r.Link(context.Background(), EventInput{}))

	_, err := r.Create(context.Background(), EventInput{})
	assert.True(t, errors.Is(err, apperr.ErrExternalCollaboratorFailure))
}

func TestCreateReportsFailure(t *testing.T) {
	r := NewResolver(providerFunc(func(ctx context.Context, in EventInput) (string, error) {
		return "", nil
	}), "", time.Second, zap.NewNop())

	_, err := r.Create(context.Background(), EventInput{})
	assert.True(t, errors.Is(err, apperr.ErrExternalCollaboratorFailure))
}
