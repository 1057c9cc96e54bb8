package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/auth"
	"github.com/Freeeeeet/mentor_match/internal/availability"
	"github.com/Freeeeeet/mentor_match/internal/calendar"
	"github.com/Freeeeeet/mentor_match/internal/negotiation"
	"github.com/Freeeeeet/mentor_match/internal/realtime"
	"github.com/Freeeeeet/mentor_match/internal/service"
	"github.com/Freeeeeet/mentor_match/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type discardSink struct{}

func (discardSink) Publish(...negotiation.Event) {}

type apiClient struct {
	t      *testing.T
	server *Server
	tokens *auth.Tokens
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()

	st := memory.New()
	logger := zap.NewNop()
	links := calendar.NewResolver(nil, "", time.Second, logger)
	availabilityService := service.NewAvailabilityService(st, availability.DefaultMatchOptions(), logger)

	svc := Services{
		Users:        service.NewUserService(st, logger),
		Availability: availabilityService,
		Negotiation:  service.NewNegotiationService(st, availabilityService, links, discardSink{}, service.NegotiationOptions{AllowReopen: true}, logger),
		Meetings:     service.NewMeetingService(st, links, discardSink{}, logger),
	}
	tokens := auth.NewTokens("test-secret")

	return &apiClient{
		t:      t,
		server: NewServer(svc, tokens, realtime.NewHub(logger), "mentor_bot", logger),
		tokens: tokens,
	}
}

func (a *apiClient) do(method, path string, userID int64, body any) (int, []byte) {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		token, err := a.tokens.SignAccessToken(userID, time.Hour)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.server.App().Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp.StatusCode, out
}

func (a *apiClient) register(email, role string) int64 {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/api/v1/users", 0, map[string]any{"email": email, "role": role, "first_name": "Test"})
	require.Equal(a.t, http.StatusCreated, status, string(body))

	var user struct {
		ID int64 `json:"id"`
	}
	require.NoError(a.t, json.Unmarshal(body, &user))
	return user.ID
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestHealthz(t *testing.T) {
	api := newAPI(t)
	status, body := api.do(http.MethodGet, "/healthz", 0, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	api := newAPI(t)

	status, body := api.do(http.MethodGet, "/api/v1/me", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", decode(t, body)["error"])

	status, _ = api.do(http.MethodGet, "/api/v1/me", 42, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRegisterValidation(t *testing.T) {
	api := newAPI(t)

	status, body := api.do(http.MethodPost, "/api/v1/users", 0, map[string]any{"email": "not-an-email", "role": "mentor"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", decode(t, body)["error"])

	status, body = api.do(http.MethodPost, "/api/v1/users", 0, map[string]any{"email": "a@example.com", "role": "admin"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, decode(t, body)["message"], "role")
}

func TestNegotiationOverHTTP(t *testing.T) {
	api := newAPI(t)
	mentor := api.register("mentor@example.com", "mentor")
	student := api.register("student@example.com", "student")

	status, body := api.do(http.MethodPost, "/api/v1/requests", student, map[string]any{"mentor_id": mentor, "message": "hi"})
	require.Equal(t, http.StatusCreated, status, string(body))
	requestID := int64(decode(t, body)["id"].(float64))

	status, body = api.do(http.MethodPost, "/api/v1/requests", student, map[string]any{"mentor_id": mentor})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "duplicate_request", decode(t, body)["error"])

	status, body = api.do(http.MethodPost, fmt.Sprintf("/api/v1/requests/%d/accept", requestID), student, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", decode(t, body)["error"])

	status, body = api.do(http.MethodPost, fmt.Sprintf("/api/v1/requests/%d/accept", requestID), mentor, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	proposal := decode(t, body)["proposal"].(map[string]any)
	assert.Equal(t, "awaiting_mentor", proposal["status"])
	proposalID := int64(proposal["id"].(float64))

	slot := map[string]string{"start": "2025-03-10T14:00:00Z", "end": "2025-03-10T15:00:00Z"}

	status, body = api.do(http.MethodPost, fmt.Sprintf("/api/v1/proposals/%d/select", proposalID), student, map[string]any{"slot": slot})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "slot_not_offered", decode(t, body)["error"])

	status, body = api.do(http.MethodPost, fmt.Sprintf("/api/v1/proposals/%d/propose-slots", proposalID), mentor, map[string]any{"slots": []any{slot}})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, "pending", decode(t, body)["status"])

	status, body = api.do(http.MethodPost, fmt.Sprintf("/api/v1/proposals/%d/select", proposalID), student, map[string]any{"slot": slot})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, "student_chosen", decode(t, body)["status"])

	status, body = api.do(http.MethodPost, fmt.Sprintf("/api/v1/proposals/%d/select", proposalID), student, map[string]any{"slot": slot})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_state_transition", decode(t, body)["error"])

	status, body = api.do(http.MethodPost, fmt.Sprintf("/api/v1/proposals/%d/confirm", proposalID), mentor, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	result := decode(t, body)
	assert.Equal(t, "confirmed", result["proposal"].(map[string]any)["status"])
	meeting := result["meeting"].(map[string]any)
	assert.True(t, strings.HasPrefix(meeting["meet_link"].(string), calendar.DefaultLinkPrefix+"/"))

	status, body = api.do(http.MethodPost, fmt.Sprintf("/api/v1/meetings/%d/add-to-calendar", int64(meeting["id"].(float64))), student, nil)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "external_collaborator_failure", decode(t, body)["error"])

	status, body = api.do(http.MethodGet, "/api/v1/meetings", student, nil)
	require.Equal(t, http.StatusOK, status)
	var meetings []map[string]any
	require.NoError(t, json.Unmarshal(body, &meetings))
	assert.Len(t, meetings, 1)
}

func TestMalformedSlotsAreRejectedAtTheBoundary(t *testing.T) {
	api := newAPI(t)
	mentor := api.register("mentor@example.com", "mentor")

	status, body := api.do(http.MethodPut, fmt.Sprintf("/api/v1/users/%d/availability", mentor), mentor,
		map[string]any{"intervals": []any{map[string]string{"start": "yesterday", "end": "2025-03-10T15:00:00Z"}}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "malformed_timestamp", decode(t, body)["error"])

	status, body = api.do(http.MethodPut, fmt.Sprintf("/api/v1/users/%d/availability", mentor), mentor,
		map[string]any{"intervals": []any{map[string]string{"start": "2025-03-10T15:00:00Z", "end": "2025-03-10T14:00:00Z"}}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "malformed_slot", decode(t, body)["error"])
}

func TestCommonSlotsEndpoint(t *testing.T) {
	api := newAPI(t)
	mentor := api.register("mentor@example.com", "mentor")
	student := api.register("student@example.com", "student")

	status, body := api.do(http.MethodPut, fmt.Sprintf("/api/v1/users/%d/availability", mentor), mentor,
		map[string]any{"intervals": []any{map[string]string{"start": "2025-03-10T09:00:00Z", "end": "2025-03-10T12:00:00Z"}}})
	require.Equal(t, http.StatusOK, status, string(body))
	status, body = api.do(http.MethodPut, fmt.Sprintf("/api/v1/users/%d/availability", student), student,
		map[string]any{"intervals": []any{map[string]string{"start": "2025-03-10T10:00:00Z", "end": "2025-03-10T11:30:00Z"}}})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = api.do(http.MethodGet, fmt.Sprintf("/api/v1/mentors/%d/common-slots", mentor), student, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.JSONEq(t, `{"slots":[
		{"start":"2025-03-10T10:00:00Z","end":"2025-03-10T11:00:00Z"},
		{"start":"2025-03-10T10:30:00Z","end":"2025-03-10T11:30:00Z"}
	]}`, string(body))

	status, body = api.do(http.MethodGet, fmt.Sprintf("/api/v1/mentors/%d/common-slots?duration=1&step=1", mentor), student, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation", decode(t, body)["error"])

	status, _ = api.do(http.MethodPut, fmt.Sprintf("/api/v1/users/%d/availability", mentor), student,
		map[string]any{"intervals": []any{}})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestTelegramLink(t *testing.T) {
	api := newAPI(t)
	student := api.register("student@example.com", "student")

	status, body := api.do(http.MethodGet, "/api/v1/me/telegram-link", student, nil)
	require.Equal(t, http.StatusOK, status)

	link := decode(t, body)["url"].(string)
	require.True(t, strings.HasPrefix(link, "https://t.me/mentor_bot?start="))

	userID, err := api.tokens.VerifyLinkToken(strings.TrimPrefix(link, "https://t.me/mentor_bot?start="))
	require.NoError(t, err)
	assert.Equal(t, student, userID)
}
