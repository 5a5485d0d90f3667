package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diwise/integration-sensortag/internal/pkg/application"
	"github.com/go-chi/chi"
	"github.com/matryer/is"
	"github.com/rs/zerolog/log"
)

func TestThatHealthEndpointReturns204(t *testing.T) {
	is := is.New(t)

	r := newRouterForTesting()
	ts := httptest.NewServer(r.router)
	defer ts.Close()

	resp, _ := testRequest(is, ts, "GET", "/health", nil)

	is.Equal(resp.StatusCode, http.StatusNoContent) // health endpoint status code not ok
}

func TestThatStatusEndpointReportsProgress(t *testing.T) {
	is := is.New(t)

	r := newRouterForTesting()
	ts := httptest.NewServer(r.router)
	defer ts.Close()

	resp, body := testRequest(is, ts, "GET", "/status", nil)

	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(body, `{"rows_written":42,"last_stored":"2023-08-28T10:23:42Z"}`)
}

func newRouterForTesting() *routerStruct {
	r := chi.NewRouter()
	log := log.Logger

	return SetupRouter(r, log, func() application.Status {
		return application.Status{RowsWritten: 42, LastStored: "2023-08-28T10:23:42Z"}
	})
}

func testRequest(is *is.I, ts *httptest.Server, method, path string, body io.Reader) (*http.Response, string) {
	req, _ := http.NewRequest(method, ts.URL+path, body)
	resp, _ := http.DefaultClient.Do(req)
	respBody, _ := io.ReadAll(resp.Body)
	defer resp.Body.Close()

	return resp, string(respBody)
}
