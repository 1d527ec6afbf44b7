package quotations

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (http.Handler, *Service) {
	t.Helper()
	svc, _, _ := newTestService()
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Route("/quotes", h.MountRoutes)
	return r, svc
}

func TestHandlerTransitionAndConvert(t *testing.T) {
	router, svc := newTestRouter(t)
	q := createQuote(t, svc, "Q-100", today.AddDate(0, 0, 10))
	base := "/quotes/" + strconv.FormatInt(q.ID, 10)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, base+"/transition", strings.NewReader(`{"status":"approved","note":"fine"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, base+"/convert", strings.NewReader(`{"invoice_ref":"INV-77"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, StatusConverted, out.Status)
	assert.Equal(t, "INV-77", out.InvoiceRef)
}

func TestHandlerInvalidTransitionIsConflict(t *testing.T) {
	router, svc := newTestRouter(t)
	q := createQuote(t, svc, "Q-101", today.AddDate(0, 0, 10))
	_, err := svc.Transition(context.Background(), q.ID, StatusRejected, "")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/quotes/"+strconv.FormatInt(q.ID, 10)+"/transition", strings.NewReader(`{"status":"approved"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestHandlerRejectsUnknownStatus(t *testing.T) {
	router, svc := newTestRouter(t)
	q := createQuote(t, svc, "Q-102", today.AddDate(0, 0, 10))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/quotes/"+strconv.FormatInt(q.ID, 10)+"/transition", strings.NewReader(`{"status":"converted"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandlerMissingQuote(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/quotes/404", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
