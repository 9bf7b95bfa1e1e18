package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/duel/internal/adapters/http/api"
	"github.com/okian/duel/internal/adapters/repository"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockLeaderboard struct {
	topN    []repository.Entry
	topNErr error
	rankErr error
	asked   string
}

func (m *mockLeaderboard) Leaderboard(_ context.Context, contextID string, n int) ([]repository.Entry, error) {
	m.asked = contextID
	if m.topNErr != nil {
		return nil, m.topNErr
	}
	if n > len(m.topN) {
		return m.topN, nil
	}
	return m.topN[:n], nil
}

func (m *mockLeaderboard) Rank(_ context.Context, id string) (repository.Entry, error) {
	if m.rankErr != nil {
		return repository.Entry{}, m.rankErr
	}
	for _, e := range m.topN {
		if e.ID == id {
			return e, nil
		}
	}
	return repository.Entry{}, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any {
	return m.stats
}

func serve(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		lb := &mockLeaderboard{topN: []repository.Entry{
			{Rank: 1, ID: "r1", Name: "Alien", Rating: 1232},
			{Rank: 2, ID: "r2", Name: "Blade Runner", Rating: 1200},
			{Rank: 3, ID: "r3", Name: "Contact", Rating: 1168},
		}}
		stats := &mockStatsProvider{stats: map[string]any{"liveSessions": 2}}
		mux := http.NewServeMux()
		api.NewServer(lb, stats, api.WithMaxLimit(10)).Register(context.Background(), mux)

		Convey("Then health reports ok", func() {
			w := serve(mux, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then metrics are exposed in the Prometheus format", func() {
			serve(mux, http.MethodGet, "/healthz")
			w := serve(mux, http.MethodGet, "/metrics")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "duel_http_requests_total")
		})

		Convey("Then stats are returned as JSON", func() {
			w := serve(mux, http.MethodGet, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got map[string]any
			So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
			So(got["liveSessions"], ShouldEqual, 2.0)
		})

		Convey("Then the leaderboard honours context and limit", func() {
			w := serve(mux, http.MethodGet, "/leaderboard?context=films&limit=2")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got []repository.Entry
			So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
			So(got, ShouldHaveLength, 2)
			So(got[0].Name, ShouldEqual, "Alien")
			So(lb.asked, ShouldEqual, "films")
		})

		Convey("Then bad leaderboard queries are rejected", func() {
			for _, target := range []string{
				"/leaderboard?limit=2",
				"/leaderboard?context=films",
				"/leaderboard?context=films&limit=0",
				"/leaderboard?context=films&limit=abc",
				"/leaderboard?context=films&limit=11",
			} {
				So(serve(mux, http.MethodGet, target).Code, ShouldEqual, http.StatusBadRequest)
			}
			w := serve(mux, http.MethodGet, "/leaderboard?context=films&limit=11")
			So(w.Body.String(), ShouldContainSubstring, "limit_exceeded")
		})

		Convey("Then storage failures surface as 500", func() {
			lb.topNErr = errors.New("disk on fire")
			w := serve(mux, http.MethodGet, "/leaderboard?context=films&limit=2")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("Then rank looks up a single record", func() {
			w := serve(mux, http.MethodGet, "/rank/r2")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got repository.Entry
			So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
			So(got.Rank, ShouldEqual, 2)
		})

		Convey("Then rank maps errors to status codes", func() {
			So(serve(mux, http.MethodGet, "/rank/missing").Code, ShouldEqual, http.StatusNotFound)
			So(serve(mux, http.MethodGet, "/rank/").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodGet, "/rank/a/b").Code, ShouldEqual, http.StatusBadRequest)
			lb.rankErr = errors.New("boom")
			So(serve(mux, http.MethodGet, "/rank/r1").Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("Then write methods are not routed", func() {
			for _, target := range []string{"/healthz", "/stats", "/leaderboard?context=films&limit=1", "/rank/r1"} {
				req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(`{}`))
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			}
		})
	})
}
