package fallback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestValueReturnsResult(t *testing.T) {
	got := Value(context.Background(), zap.NewNop(), "calendar", time.Second, "fallback",
		func(ctx context.Context) (string, error) { return "real", nil })

	assert.Equal(t, "real", got)
}

func TestValueFallsBackOnError(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	got := Value(context.Background(), zap.New(core), "calendar", time.Second, "fallback",
		func(ctx context.Context) (string, error) { return "", errors.New("quota exceeded") })

	assert.Equal(t, "fallback", got)
	assert.Equal(t, 1, logs.FilterField(zap.String("op", "calendar")).Len())
}

func TestValueFallsBackOnTimeoutEvenIfCallIgnoresContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	started := time.Now()
	got := Value(context.Background(), zap.NewNop(), "calendar", 20*time.Millisecond, "fallback",
		func(ctx context.Context) (string, error) {
			<-release
			return "late", nil
		})

	assert.Equal(t, "fallback", got)
	assert.Less(t, time.Since(started), time.Second)
}

func TestValueRecoversPanic(t *testing.T) {
	got := Value(context.Background(), zap.NewNop(), "calendar", time.Second, 7,
		func(ctx context.Context) (int, error) { panic("nil client") })

	assert.Equal(t, 7, got)
}

func TestRunWrapsFailure(t *testing.T) {
	err := Run(context.Background(), zap.NewNop(), "email", time.Second,
		func(ctx context.Context) error { return errors.New("smtp down") })

	assert.True(t, errors.Is(err, apperr.ErrExternalCollaboratorFailure))
	assert.NoError(t, Run(context.Background(), zap.NewNop(), "email", 0,
		func(ctx context.Context) error { return nil }))
}
