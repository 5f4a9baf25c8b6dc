package handler_test

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "talanta/pkg/domain"
	"talanta/pkg/testutil"

	"talanta/internal/audit"
	"talanta/internal/platform/jwtauth"
	"talanta/internal/verification/cache"
	"talanta/internal/verification/extractor"
	"talanta/internal/verification/graph"
	"talanta/internal/verification/handler"
	"talanta/internal/verification/models"
	"talanta/internal/verification/objectstore"
	"talanta/internal/verification/queue"
	"talanta/internal/verification/service"
	"talanta/internal/verification/store"
)

type env struct {
	router  chi.Router
	jwt     *jwtauth.Service
	users   *store.MemoryUserStore
	records *store.MemoryRecordStore
	jobs    *queue.MemoryQueue
	svc     *service.Service
}

type discardAuditor struct{}

func (discardAuditor) Publish(audit.Event) {}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	e := &env{
		jwt:     jwtauth.NewService("test-signing-key", "talanta-test"),
		users:   store.NewMemoryUserStore(),
		records: store.NewMemoryRecordStore(),
		jobs:    queue.NewMemoryQueue(16),
	}
	e.svc = service.New(e.records, e.users, store.NopTxRunner{},
		objectstore.NewMemoryGateway(), graph.NewMemoryGraph(), extractor.NewStub(),
		e.jobs, cache.NewMemoryCache(), discardAuditor{}, nil, logger)

	e.router = chi.NewRouter()
	handler.New(e.svc, e.jwt, logger).Register(e.router)
	return e
}

func (e *env) authed(t *testing.T, req *http.Request, userID id.UserID) *http.Request {
	t.Helper()
	token, err := e.jwt.GenerateAccessToken(userID, "citizen", time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func (e *env) seedUser(name string) id.UserID {
	userID := id.NewUserID()
	e.users.Put(models.User{ID: userID, FullName: name})
	return userID
}

func TestUploadEndpoint(t *testing.T) {
	t.Run("accepts a valid document", func(t *testing.T) {
		e := newEnv(t)
		userID := e.seedUser("John Mwangi")

		req := testutil.NewMultipartRequest(t, "/verify/upload", "file", "id.png",
			[]byte("ID: 12345678 JOHN MWANGI KARIUKI"),
			map[string]string{"document_type": "NATIONAL_ID"})
		rr := testutil.DoRequest(e.router, e.authed(t, req, userID))

		testutil.AssertStatus(t, rr, http.StatusAccepted)
		resp := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Equal(t, "PENDING", (*resp)["status"])
		assert.Equal(t, "NATIONAL_ID", (*resp)["document_type"])
		assert.Equal(t, "2-5 minutes", (*resp)["estimated_time"])

		select {
		case job := <-e.jobs.Jobs():
			assert.Equal(t, (*resp)["id"], job.VerificationID.String())
		default:
			t.Fatal("expected a job on the queue")
		}
	})

	t.Run("rejects unknown document type", func(t *testing.T) {
		e := newEnv(t)
		userID := e.seedUser("John Mwangi")

		req := testutil.NewMultipartRequest(t, "/verify/upload", "file", "id.png",
			[]byte("x"), map[string]string{"document_type": "PASSPORT"})
		rr := testutil.DoRequest(e.router, e.authed(t, req, userID))

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("rejects missing file", func(t *testing.T) {
		e := newEnv(t)
		userID := e.seedUser("John Mwangi")

		req := testutil.NewMultipartRequest(t, "/verify/upload", "other", "id.png",
			[]byte("x"), map[string]string{"document_type": "NATIONAL_ID"})
		rr := testutil.DoRequest(e.router, e.authed(t, req, userID))

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("rejects unauthenticated requests", func(t *testing.T) {
		e := newEnv(t)

		req := testutil.NewMultipartRequest(t, "/verify/upload", "file", "id.png",
			[]byte("x"), map[string]string{"document_type": "NATIONAL_ID"})
		rr := testutil.DoRequest(e.router, req)

		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}

func TestStatusEndpoint(t *testing.T) {
	e := newEnv(t)
	owner := e.seedUser("John Mwangi")
	other := e.seedUser("Jane Njeri")

	upload := testutil.NewMultipartRequest(t, "/verify/upload", "file", "id.png",
		[]byte("ID: 12345678"), map[string]string{"document_type": "NATIONAL_ID"})
	rr := testutil.DoRequest(e.router, e.authed(t, upload, owner))
	testutil.AssertStatus(t, rr, http.StatusAccepted)
	created := testutil.UnmarshalResponse[map[string]any](t, rr)
	recID := (*created)["id"].(string)

	t.Run("owner sees the record", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/verify/status/"+recID)
		rr := testutil.DoRequest(e.router, e.authed(t, req, owner))

		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Equal(t, "PENDING", (*resp)["status"])
	})

	t.Run("foreign record reads as not found", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/verify/status/"+recID)
		rr := testutil.DoRequest(e.router, e.authed(t, req, other))

		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/verify/status/not-a-uuid")
		rr := testutil.DoRequest(e.router, e.authed(t, req, owner))

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestListEndpoint(t *testing.T) {
	e := newEnv(t)
	userID := e.seedUser("John Mwangi")

	for _, doc := range []string{"a.png", "b.png"} {
		req := testutil.NewMultipartRequest(t, "/verify/upload", "file", doc,
			[]byte("ID: 12345678"), map[string]string{"document_type": "NATIONAL_ID"})
		rr := testutil.DoRequest(e.router, e.authed(t, req, userID))
		testutil.AssertStatus(t, rr, http.StatusAccepted)
	}

	req := testutil.NewRequest(t, http.MethodGet, "/verify/my-verifications")
	rr := testutil.DoRequest(e.router, e.authed(t, req, userID))

	testutil.AssertStatus(t, rr, http.StatusOK)

	type listResp struct {
		Verifications []map[string]any `json:"verifications"`
		Counts        map[string]int   `json:"counts"`
	}
	resp := testutil.UnmarshalResponse[listResp](t, rr)
	assert.Len(t, resp.Verifications, 2)
	assert.Equal(t, 2, resp.Counts["total"])
	assert.Equal(t, 2, resp.Counts["pending"])
}

func TestClaimEndpoint(t *testing.T) {
	e := newEnv(t)
	userID := e.seedUser("John Mwangi")

	req := testutil.NewJSONRequest(t, http.MethodPost, "/skills/claim",
		map[string]string{"skill": "Welding"})
	rr := testutil.DoRequest(e.router, e.authed(t, req, userID))

	testutil.AssertStatus(t, rr, http.StatusCreated)

	empty := testutil.NewJSONRequest(t, http.MethodPost, "/skills/claim",
		map[string]string{"skill": ""})
	rr = testutil.DoRequest(e.router, e.authed(t, empty, userID))

	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}
