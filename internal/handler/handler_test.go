package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventure/eventure/internal/auth"
	"github.com/eventure/eventure/internal/model"
	"github.com/eventure/eventure/internal/report"
	"github.com/eventure/eventure/internal/service"
	"github.com/eventure/eventure/internal/testutil"
	"github.com/eventure/eventure/internal/token"
)

type staticProvider struct {
	claims auth.ProviderClaims
	err    error
}

func (p *staticProvider) AuthCodeURL(state string) string {
	return "https://accounts.google.com/o/oauth2/v2/auth?state=" + state
}

func (p *staticProvider) Exchange(_ context.Context, _ string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return "id-token", nil
}

func (p *staticProvider) VerifyIDToken(_ context.Context, _ string) (auth.ProviderClaims, error) {
	if p.err != nil {
		return auth.ProviderClaims{}, p.err
	}
	return p.claims, nil
}

type staticGenerator struct {
	text string
	err  error
}

func (g *staticGenerator) Generate(_ context.Context, _ report.Facts) (string, error) {
	return g.text, g.err
}

type testServer struct {
	router   chi.Router
	events   *testutil.MemoryEventStore
	users    *testutil.MemoryUserStore
	provider *staticProvider
	reports  *staticGenerator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		events:   testutil.NewMemoryEventStore(),
		users:    testutil.NewMemoryUserStore(),
		provider: &staticProvider{},
		reports:  &staticGenerator{text: "summary"},
	}

	tokens := token.NewManager("test-secret")
	identitySvc := service.NewIdentityService(ts.users, tokens, ts.provider, testutil.Logger())
	eventSvc := service.NewEventService(ts.events, ts.reports, testutil.Logger())

	userHandler := NewUserHandler(identitySvc, "http://localhost:5173")
	eventHandler := NewEventHandler(eventSvc)

	r := chi.NewRouter()
	r.Get("/health", HealthCheck)
	r.Route("/user", func(r chi.Router) {
		r.Post("/signup", userHandler.SignUp)
		r.Post("/signin", userHandler.SignIn)
		r.Get("/auth/google", userHandler.GoogleAuth)
		r.Get("/auth/google/callback", userHandler.GoogleCallback)
		r.With(Authenticate(tokens)).Get("/me", userHandler.Me)
	})
	r.Route("/event", func(r chi.Router) {
		r.Post("/add", eventHandler.Create)
		r.Get("/get", eventHandler.List)
		r.Put("/update/{id}", eventHandler.Update)
		r.Delete("/delete/{id}", eventHandler.Delete)
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(tokens))
			r.Post("/register/{id}", eventHandler.Register)
			r.Post("/report/{id}", eventHandler.Report)
		})
	})
	ts.router = r
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) signUp(t *testing.T, email string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/user/signup", "", model.SignUpRequest{
		Email: email, Password: "abc123", FirstName: "Test", LastName: "User",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp model.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func (ts *testServer) createEvent(t *testing.T, capacity int) model.Event {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/event/add", "", model.EventRequest{
		Title:       "Go Meetup",
		Date:        time.Date(2026, 9, 12, 18, 0, 0, 0, time.UTC),
		Location:    "Berlin",
		Description: "Talks and hallway track",
		Capacity:    capacity,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var event model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &event))
	return event
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Code
}

func TestSignUpAndRegisterFlow(t *testing.T) {
	ts := newTestServer(t)
	tokenString := ts.signUp(t, "ada@example.com")
	event := ts.createEvent(t, 2)

	rec := ts.do(t, http.MethodPost, "/event/register/"+event.ID.String(), tokenString, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var p model.Participant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "ada@example.com", p.Email)
	assert.Equal(t, "Test User", p.Name)

	rec = ts.do(t, http.MethodPost, "/event/register/"+event.ID.String(), tokenString, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(model.KindAlreadyRegistered), errCode(t, rec))
}

func TestRegister_FullEvent(t *testing.T) {
	ts := newTestServer(t)
	event := ts.createEvent(t, 1)

	first := ts.signUp(t, "a@example.com")
	second := ts.signUp(t, "b@example.com")

	rec := ts.do(t, http.MethodPost, "/event/register/"+event.ID.String(), first, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodPost, "/event/register/"+event.ID.String(), second, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(model.KindCapacityExceeded), errCode(t, rec))
}

func TestRegister_RequiresAuthentication(t *testing.T) {
	ts := newTestServer(t)
	event := ts.createEvent(t, 1)

	rec := ts.do(t, http.MethodPost, "/event/register/"+event.ID.String(), "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, string(model.KindUnauthenticated), errCode(t, rec))

	rec = ts.do(t, http.MethodPost, "/event/register/"+event.ID.String(), "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	stored := ts.do(t, http.MethodGet, "/event/get", "", nil)
	var views []model.ViewEvent
	require.NoError(t, json.Unmarshal(stored.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Empty(t, views[0].Participants)
}

func TestRegister_UnknownEvent(t *testing.T) {
	ts := newTestServer(t)
	tokenString := ts.signUp(t, "ada@example.com")

	rec := ts.do(t, http.MethodPost, "/event/register/6e5cd9c4-4a7e-4b1e-9f2a-1f1a2b3c4d5e", tokenString, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(model.KindNotFound), errCode(t, rec))
}

func TestSignUp_Validation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/user/signup", "", model.SignUpRequest{
		Email: "ada@example.com", Password: "abc12", FirstName: "Ada", LastName: "Lovelace",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(model.KindValidation), errCode(t, rec))
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "ada@example.com")

	rec := ts.do(t, http.MethodPost, "/user/signup", "", model.SignUpRequest{
		Email: "ada@example.com", Password: "abc123", FirstName: "Ada", LastName: "Lovelace",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(model.KindConflict), errCode(t, rec))
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.signUp(t, "ada@example.com")

	rec := ts.do(t, http.MethodPost, "/user/signin", "", model.SignInRequest{
		Email: "ada@example.com", Password: "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, string(model.KindUnauthenticated), errCode(t, rec))
}

func TestMe(t *testing.T) {
	ts := newTestServer(t)
	tokenString := ts.signUp(t, "ada@example.com")

	rec := ts.do(t, http.MethodGet, "/user/me", tokenString, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var user model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, model.RoleUser, user.Role)
}

func TestGoogleCallback_RedirectsWithToken(t *testing.T) {
	ts := newTestServer(t)
	ts.provider.claims = auth.ProviderClaims{
		Subject: "sub-1", Email: "grace@example.com", GivenName: "Grace", FamilyName: "Hopper",
	}

	rec := ts.do(t, http.MethodGet, "/user/auth/google/callback?code=the-code", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "http://localhost:5173/dashboard?token=")
}

func TestGoogleCallback_MissingCode(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/user/auth/google/callback", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://localhost:5173/login?error=no_code", rec.Header().Get("Location"))
}

func TestGoogleCallback_ProviderFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.provider.err = model.NewError(model.KindAuthProvider, "signature mismatch")

	rec := ts.do(t, http.MethodGet, "/user/auth/google/callback?code=bad", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://localhost:5173/login?error=auth_failed", rec.Header().Get("Location"))
}

func TestListEvents_EmptyReturnsArray(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/event/get", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestCreateEvent_Validation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/event/add", "", model.EventRequest{
		Title:       "Go Meetup",
		Date:        time.Date(2026, 9, 12, 18, 0, 0, 0, time.UTC),
		Location:    "Berlin",
		Description: "Talks",
		Capacity:    0,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(model.KindValidation), errCode(t, rec))
}

func TestUpdateAndDeleteEvent(t *testing.T) {
	ts := newTestServer(t)
	event := ts.createEvent(t, 2)

	rec := ts.do(t, http.MethodPut, "/event/update/"+event.ID.String(), "", model.EventRequest{
		Title:       "Go Meetup, Second Edition",
		Date:        time.Date(2026, 10, 1, 18, 0, 0, 0, time.UTC),
		Location:    "Hamburg",
		Description: "More talks",
		Capacity:    4,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Go Meetup, Second Edition", updated.Title)
	assert.Equal(t, 4, updated.Capacity)

	rec = ts.do(t, http.MethodDelete, "/event/delete/"+event.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/event/delete/"+event.ID.String(), "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateEvent_InvalidID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/event/update/not-a-uuid", "", model.EventRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(model.KindValidation), errCode(t, rec))
}

func TestReport(t *testing.T) {
	ts := newTestServer(t)
	tokenString := ts.signUp(t, "ada@example.com")
	event := ts.createEvent(t, 2)

	rec := ts.do(t, http.MethodPost, "/event/report/"+event.ID.String(), tokenString, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "summary", resp["report"])
}

func TestReport_CollaboratorFailure(t *testing.T) {
	ts := newTestServer(t)
	tokenString := ts.signUp(t, "ada@example.com")
	event := ts.createEvent(t, 2)
	ts.reports.err = fmt.Errorf("report generator returned status 500")

	rec := ts.do(t, http.MethodPost, "/event/report/"+event.ID.String(), tokenString, nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
