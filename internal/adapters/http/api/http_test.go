package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/veloclub/segweek/internal/adapters/http/api"
	"github.com/veloclub/segweek/internal/adapters/repository"
	"github.com/veloclub/segweek/internal/domain/model"
	"github.com/veloclub/segweek/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// stubDeps implements api.Dependencies with canned behavior per test.
type stubDeps struct {
	ack        types.ObservationAck
	submitErr  error
	submitted  []model.Observation
	enqueueOK  bool
	enqueued   []model.Observation
	retractErr error
	retracted  [][2]string
	entries    []types.LeaderboardEntry
	entriesErr error
	ghost      *types.GhostComparison
	ghostErr   error
}

func (s *stubDeps) SubmitObservation(_ context.Context, o model.Observation) (types.ObservationAck, error) {
	s.submitted = append(s.submitted, o)
	return s.ack, s.submitErr
}

func (s *stubDeps) EnqueueObservation(_ context.Context, o model.Observation) bool {
	if !s.enqueueOK {
		return false
	}
	s.enqueued = append(s.enqueued, o)
	return true
}

func (s *stubDeps) Retract(_ context.Context, weekID, participantID string) error {
	s.retracted = append(s.retracted, [2]string{weekID, participantID})
	return s.retractErr
}

func (s *stubDeps) Leaderboard(_ context.Context, weekID string) ([]types.LeaderboardEntry, error) {
	return s.entries, s.entriesErr
}

func (s *stubDeps) Ghost(_ context.Context, weekID, participantID string) (*types.GhostComparison, error) {
	return s.ghost, s.ghostErr
}

type stubStats struct{}

func (stubStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestServer(deps *stubDeps) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps, stubStats{}).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func validObservation() map[string]any {
	return map[string]any{
		"participant_id":       "p1",
		"display_name":         "Rider A",
		"external_activity_id": "ext-1",
		"start_at":             2500,
		"device_name":          "wahoo",
		"efforts": []map[string]any{
			{"segment_id": "seg-1", "elapsed_seconds": 900, "start_at": 2500, "pr_rank": 1},
			{"segment_id": "seg-1", "elapsed_seconds": 800, "start_at": 2501},
		},
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("posting: %v", err)
	}
	return resp
}

func TestPostObservation(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &stubDeps{
			ack: types.ObservationAck{
				Status:         "qualified",
				WeeksChecked:   1,
				CommittedWeeks: []string{"w1"},
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("A valid observation returns the diagnostic ack", func() {
			resp := postJSON(t, srv.URL+"/observations", validObservation())
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var ack types.ObservationAck
			So(json.NewDecoder(resp.Body).Decode(&ack), ShouldBeNil)
			So(ack.Status, ShouldEqual, "qualified")
			So(ack.CommittedWeeks, ShouldResemble, []string{"w1"})

			So(deps.submitted, ShouldHaveLength, 1)
			So(deps.submitted[0].Efforts, ShouldHaveLength, 2)
			So(deps.submitted[0].Efforts[0].PRRank, ShouldNotBeNil)
			So(*deps.submitted[0].Efforts[0].PRRank, ShouldEqual, 1)
			So(deps.submitted[0].Efforts[1].PRRank, ShouldBeNil)
		})

		Convey("Malformed JSON is a 400", func() {
			resp, err := http.Post(srv.URL+"/observations", "application/json", bytes.NewBufferString("{"))
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A missing participant id is a 400 before any processing", func() {
			body := validObservation()
			delete(body, "participant_id")
			resp := postJSON(t, srv.URL+"/observations", body)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			So(deps.submitted, ShouldBeEmpty)
		})

		Convey("Processing failures are a 500", func() {
			deps.submitErr = fmt.Errorf("store down")
			resp := postJSON(t, srv.URL+"/observations", validObservation())
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("GET is not found", func() {
			resp, err := http.Get(srv.URL + "/observations")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestPostObservationBatch(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &stubDeps{enqueueOK: true}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("A valid batch is accepted", func() {
			resp := postJSON(t, srv.URL+"/observations/batch", []map[string]any{
				validObservation(), validObservation(),
			})
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusAccepted)

			var ack struct {
				Status   string `json:"status"`
				Accepted int    `json:"accepted"`
			}
			So(json.NewDecoder(resp.Body).Decode(&ack), ShouldBeNil)
			So(ack.Status, ShouldEqual, "accepted")
			So(ack.Accepted, ShouldEqual, 2)
			So(deps.enqueued, ShouldHaveLength, 2)
		})

		Convey("One invalid observation rejects the whole batch", func() {
			bad := validObservation()
			delete(bad, "external_activity_id")
			resp := postJSON(t, srv.URL+"/observations/batch", []map[string]any{
				validObservation(), bad,
			})
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			So(deps.enqueued, ShouldBeEmpty)
		})

		Convey("Backpressure is a 429", func() {
			deps.enqueueOK = false
			resp := postJSON(t, srv.URL+"/observations/batch", []map[string]any{validObservation()})
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusTooManyRequests)
		})
	})
}

func TestDeleteResult(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &stubDeps{}
		srv := newTestServer(deps)
		defer srv.Close()

		doDelete := func(path string) *http.Response {
			req, err := http.NewRequest(http.MethodDelete, srv.URL+path, nil)
			So(err, ShouldBeNil)
			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			return resp
		}

		Convey("A retraction reports the removed pair", func() {
			resp := doDelete("/results?week=w1&participant=p1")
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(deps.retracted, ShouldResemble, [][2]string{{"w1", "p1"}})
		})

		Convey("Missing query params are a 400", func() {
			resp := doDelete("/results?week=w1")
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("An absent pair is a 404", func() {
			deps.retractErr = repository.ErrResultNotFound
			resp := doDelete("/results?week=w1&participant=p9")
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestGetLeaderboard(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &stubDeps{
			entries: []types.LeaderboardEntry{
				{Rank: 1, ParticipantID: "p2", DisplayName: "Rider B", TotalTimeSeconds: 1400, BasePoints: 2, TotalPoints: 4},
				{Rank: 2, ParticipantID: "p1", DisplayName: "Rider A", TotalTimeSeconds: 1700, BasePoints: 1, TotalPoints: 2},
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("Standings come back ranked", func() {
			resp, err := http.Get(srv.URL + "/leaderboard?week=w1")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var entries []types.LeaderboardEntry
			So(json.NewDecoder(resp.Body).Decode(&entries), ShouldBeNil)
			So(entries, ShouldHaveLength, 2)
			So(entries[0].ParticipantID, ShouldEqual, "p2")
		})

		Convey("A missing week param is a 400", func() {
			resp, err := http.Get(srv.URL + "/leaderboard")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("An unknown week is a 404", func() {
			deps.entriesErr = repository.ErrWeekNotFound
			resp, err := http.Get(srv.URL + "/leaderboard?week=nope")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestGetGhost(t *testing.T) {
	Convey("Given the API server", t, func() {
		deps := &stubDeps{
			ghost: &types.GhostComparison{
				PreviousWeekID:      "w1",
				PreviousWeekName:    "Week 1",
				PreviousTimeSeconds: 1700,
				DiffSeconds:         -200,
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("A comparison comes back wrapped", func() {
			resp, err := http.Get(srv.URL + "/ghost?week=w2&participant=p1")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var body struct {
				Ghost *types.GhostComparison `json:"ghost"`
			}
			So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
			So(body.Ghost, ShouldNotBeNil)
			So(body.Ghost.DiffSeconds, ShouldEqual, -200)
		})

		Convey("No prior attempt is an explicit null, not an error", func() {
			deps.ghost = nil
			resp, err := http.Get(srv.URL + "/ghost?week=w1&participant=p1")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var body struct {
				Ghost *types.GhostComparison `json:"ghost"`
			}
			So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
			So(body.Ghost, ShouldBeNil)
		})

		Convey("Missing query params are a 400", func() {
			resp, err := http.Get(srv.URL + "/ghost?week=w2")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("An unknown week is a 404", func() {
			deps.ghostErr = repository.ErrWeekNotFound
			resp, err := http.Get(srv.URL + "/ghost?week=nope&participant=p1")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestGetStats(t *testing.T) {
	Convey("Given the API server", t, func() {
		srv := newTestServer(&stubDeps{})
		defer srv.Close()

		Convey("Stats come back as JSON", func() {
			resp, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var stats map[string]interface{}
			So(json.NewDecoder(resp.Body).Decode(&stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
		})
	})
}
