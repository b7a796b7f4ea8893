package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"greenlight/internal/artifact"
	"greenlight/internal/audit"
	"greenlight/internal/bureau"
	"greenlight/internal/domain"
	jwttoken "greenlight/internal/jwt_token"
	"greenlight/internal/mandate"
	"greenlight/internal/orchestrator"
	"greenlight/internal/renderer"
	"greenlight/internal/sanction"
	"greenlight/internal/session"
	"greenlight/internal/underwriting"
	"greenlight/internal/verification"
)

type HandlerSuite struct {
	suite.Suite
	router *chi.Mux
	jwts   *jwttoken.JWTService
	ctx    context.Context
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	sessions := session.NewInMemoryStore()
	events := session.NewInMemoryEventStore()
	auditLog := audit.NewInMemoryStore()
	artifacts := artifact.NewMem()
	gate := audit.NewGate(auditLog)

	service := orchestrator.New(
		sessions,
		events,
		verification.New(gate),
		underwriting.New(underwriting.DefaultPolicy(), bureau.NewStub(), gate),
		sanction.New(mandate.NewStub(), renderer.NewLetter(artifacts), artifacts, gate),
	)

	s.jwts = jwttoken.NewJWTService("test-signing-key", "greenlight", "greenlight-ops")
	h := New(service, artifacts, auditLog, events, testLogger(), nil,
		jwttoken.NewJWTServiceAdapter(s.jwts))

	s.router = chi.NewRouter()
	h.Register(s.router)
	s.ctx = context.Background()
}

func (s *HandlerSuite) postForm(values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decodeReply(rec *httptest.ResponseRecorder) orchestrator.Reply {
	var reply orchestrator.Reply
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &reply))
	return reply
}

func (s *HandlerSuite) TestHealth() {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"status":"ok"}`, rec.Body.String())
}

func (s *HandlerSuite) TestChatFormFlow() {
	rec := s.postForm(url.Values{
		"session_id": {"s1"},
		"message":    {"hi"},
		"consent":    {"yes"},
	})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("Got consent. Share name, mobile, PAN last 4.", s.decodeReply(rec).Reply)

	rec = s.postForm(url.Values{
		"session_id":     {"s1"},
		"message":        {"here you go"},
		"name":           {"Asha Rao"},
		"mobile":         {"9876543210"},
		"pan_last4":      {"234F"},
		"desired_amount": {"250000"},
		"tenure":         {"24"},
	})
	s.Require().Equal(http.StatusOK, rec.Code)
	reply := s.decodeReply(rec)
	s.Equal("Sanctioned. Your PDF + KFS is ready.", reply.Reply)
	s.Equal("/files/sanction_s1.txt", reply.PDF)
	s.Equal("/files/kfs_s1.json", reply.KFSRef)
	s.Require().NotNil(reply.KFS)
	s.Equal(int64(250000), reply.KFS.Amount)

	req := httptest.NewRequest(http.MethodGet, "/files/sanction_s1.txt", nil)
	rec2 := httptest.NewRecorder()
	s.router.ServeHTTP(rec2, req)
	s.Equal(http.StatusOK, rec2.Code)
	s.Equal("text/plain; charset=utf-8", rec2.Header().Get("Content-Type"))
	s.Contains(rec2.Body.String(), "Sanction Letter")

	req = httptest.NewRequest(http.MethodGet, "/files/kfs_s1.json", nil)
	rec3 := httptest.NewRecorder()
	s.router.ServeHTTP(rec3, req)
	s.Equal(http.StatusOK, rec3.Code)
	s.Equal("application/json", rec3.Header().Get("Content-Type"))
}

func (s *HandlerSuite) TestChatJSONBody() {
	body := `{"session_id":"s2","message":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("Got consent. Share name, mobile, PAN last 4.", s.decodeReply(rec).Reply)

	body = `{"session_id":"s2","message":"go","name":"Asha Rao","mobile":"9876543210","pan":"ABCDE1234F","desired_amount":250000}`
	req = httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Require().Equal(http.StatusOK, rec.Code)
	reply := s.decodeReply(rec)
	s.Equal("Sanctioned. Your PDF + KFS is ready.", reply.Reply)
	s.Require().NotNil(reply.KFS)
	s.Equal("234F", reply.KFS.PANLast4)
}

func (s *HandlerSuite) TestChatMissingFields() {
	rec := s.postForm(url.Values{"message": {"hi"}})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "bad_request")
}

func (s *HandlerSuite) TestChatShortPANTailIsValidationError() {
	s.postForm(url.Values{"session_id": {"s3"}, "message": {"hi"}})

	rec := s.postForm(url.Values{
		"session_id": {"s3"},
		"message":    {"details"},
		"name":       {"Asha Rao"},
		"mobile":     {"9876543210"},
		"pan_tail":   {"34F"},
	})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "validation_failed")
}

func (s *HandlerSuite) TestArtifactNotFound() {
	req := httptest.NewRequest(http.MethodGet, "/files/nope.txt", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestAuditTrailRequiresToken() {
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/s1/audit", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestAuditTrailWithToken() {
	// Drive a full flow so audit records exist.
	s.postForm(url.Values{"session_id": {"s1"}, "message": {"hi"}})
	s.postForm(url.Values{
		"session_id": {"s1"},
		"message":    {"go"},
		"name":       {"Asha Rao"},
		"mobile":     {"9876543210"},
		"pan_last4":  {"234F"},
	})

	token, err := s.jwts.GenerateAccessToken("ops@greenlight", "ops", time.Hour)
	s.Require().NoError(err)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/s1/audit", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusOK, rec.Code)

	var body struct {
		SessionID string         `json:"session_id"`
		Records   []audit.Record `json:"records"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("s1", body.SessionID)
	// ckyc.read, aa.read, bureau.read, pdf.write for the happy path.
	s.Require().Len(body.Records, 4)
	s.Equal("ckyc.read", body.Records[0].Scope())
}

func (s *HandlerSuite) TestEventsWithToken() {
	s.postForm(url.Values{"session_id": {"s1"}, "message": {"hi"}})

	token, err := s.jwts.GenerateAccessToken("ops@greenlight", "ops", time.Hour)
	s.Require().NoError(err)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/s1/events", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusOK, rec.Code)

	var body struct {
		Events []domain.Event `json:"events"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Require().Len(body.Events, 1)
	s.Equal("stage", body.Events[0].Type)
	s.Equal("precheck", body.Events[0].Payload)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
