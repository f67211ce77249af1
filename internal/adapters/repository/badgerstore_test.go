package repository

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/arenalab/policy-arena/internal/domain/model"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := NewBadgerStore(WithInMemory(true))
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerStorePolicies(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		s := newTestStore(t)
		ctx := context.Background()

		p := model.Policy{
			ID:          "pol-1",
			Name:        "act-so100",
			ModelID:     "org/act-so100",
			Environment: "so100",
			Rating:      model.SeedRating,
			CreatedAt:   time.Now().UTC(),
		}

		Convey("When a policy is written", func() {
			err := s.Update(ctx, func(tx Tx) error { return tx.PutPolicy(p) })
			So(err, ShouldBeNil)

			Convey("Then it can be read back by id", func() {
				var got model.Policy
				err := s.View(ctx, func(tx Tx) error {
					var err error
					got, err = tx.GetPolicy("pol-1")
					return err
				})
				So(err, ShouldBeNil)
				So(got.Name, ShouldEqual, "act-so100")
				So(got.Rating, ShouldEqual, model.SeedRating)
			})

			Convey("Then it resolves through the model index", func() {
				var got model.Policy
				var found bool
				err := s.View(ctx, func(tx Tx) error {
					var err error
					got, found, err = tx.FindPolicyByModelID("org/act-so100")
					return err
				})
				So(err, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(got.ID, ShouldEqual, "pol-1")
			})

			Convey("And an unknown model id resolves to not found without error", func() {
				var found bool
				err := s.View(ctx, func(tx Tx) error {
					var err error
					_, found, err = tx.FindPolicyByModelID("org/missing")
					return err
				})
				So(err, ShouldBeNil)
				So(found, ShouldBeFalse)
			})
		})

		Convey("When an unknown policy is requested", func() {
			err := s.View(ctx, func(tx Tx) error {
				_, err := tx.GetPolicy("nope")
				return err
			})

			Convey("Then the not-found sentinel surfaces", func() {
				So(err, ShouldWrap, ErrPolicyNotFound)
				So(IsNotFound(err), ShouldBeTrue)
			})
		})

		Convey("When several policies exist", func() {
			err := s.Update(ctx, func(tx Tx) error {
				if err := tx.PutPolicy(p); err != nil {
					return err
				}
				q := p
				q.ID, q.ModelID = "pol-2", "org/pi0-so100"
				return tx.PutPolicy(q)
			})
			So(err, ShouldBeNil)

			Convey("Then ListPolicies returns them all", func() {
				var got []model.Policy
				err := s.View(ctx, func(tx Tx) error {
					var err error
					got, err = tx.ListPolicies()
					return err
				})
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
			})
		})
	})
}

func TestBadgerStoreSessions(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		s := newTestStore(t)
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		mkSession := func(id string, at time.Time) model.EvalSession {
			return model.EvalSession{
				ID:          id,
				DatasetRepo: "org/eval-episodes",
				Mode:        model.ModeManual,
				PolicyIDs:   []string{"a", "b"},
				NumRounds:   3,
				CreatedAt:   at,
			}
		}

		Convey("When sessions are written out of chronological order", func() {
			err := s.Update(ctx, func(tx Tx) error {
				if err := tx.PutSession(mkSession("s-late", base.Add(time.Hour))); err != nil {
					return err
				}
				if err := tx.PutSession(mkSession("s-early", base)); err != nil {
					return err
				}
				return tx.PutSession(mkSession("s-tie", base.Add(time.Hour)))
			})
			So(err, ShouldBeNil)

			Convey("Then ListSessions sorts by creation time, then id", func() {
				var got []model.EvalSession
				err := s.View(ctx, func(tx Tx) error {
					var err error
					got, err = tx.ListSessions()
					return err
				})
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 3)
				So(got[0].ID, ShouldEqual, "s-early")
				So(got[1].ID, ShouldEqual, "s-late")
				So(got[2].ID, ShouldEqual, "s-tie")
			})
		})

		Convey("When a session is deleted", func() {
			err := s.Update(ctx, func(tx Tx) error {
				return tx.PutSession(mkSession("s-1", base))
			})
			So(err, ShouldBeNil)

			err = s.Update(ctx, func(tx Tx) error { return tx.DeleteSession("s-1") })
			So(err, ShouldBeNil)

			Convey("Then it is gone", func() {
				err := s.View(ctx, func(tx Tx) error {
					_, err := tx.GetSession("s-1")
					return err
				})
				So(err, ShouldWrap, ErrSessionNotFound)
			})

			Convey("And deleting it again reports not found", func() {
				err := s.Update(ctx, func(tx Tx) error { return tx.DeleteSession("s-1") })
				So(err, ShouldWrap, ErrSessionNotFound)
			})
		})

		Convey("When a transaction fails mid-way", func() {
			err := s.Update(ctx, func(tx Tx) error {
				if err := tx.PutSession(mkSession("s-rollback", base)); err != nil {
					return err
				}
				return context.Canceled
			})
			So(err, ShouldNotBeNil)

			Convey("Then nothing from it is observable", func() {
				err := s.View(ctx, func(tx Tx) error {
					_, err := tx.GetSession("s-rollback")
					return err
				})
				So(err, ShouldWrap, ErrSessionNotFound)
			})
		})
	})
}

func TestBadgerStoreRoundResults(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		s := newTestStore(t)
		ctx := context.Background()

		rows := []model.RoundResult{
			{SessionID: "s-1", RoundIndex: 0, PolicyID: "b", Success: true, EpisodeIndex: 0},
			{SessionID: "s-1", RoundIndex: 0, PolicyID: "a", Success: false, EpisodeIndex: 0},
			{SessionID: "s-1", RoundIndex: 1, PolicyID: "b", Success: false, EpisodeIndex: 1},
			{SessionID: "s-1", RoundIndex: 1, PolicyID: "a", Success: true, EpisodeIndex: 1},
		}

		Convey("When rows are appended across two calls", func() {
			err := s.Update(ctx, func(tx Tx) error {
				return tx.AppendRoundResults("s-1", rows[:2])
			})
			So(err, ShouldBeNil)
			err = s.Update(ctx, func(tx Tx) error {
				return tx.AppendRoundResults("s-1", rows[2:])
			})
			So(err, ShouldBeNil)

			Convey("Then ListRoundResults preserves submission order", func() {
				var got []model.RoundResult
				err := s.View(ctx, func(tx Tx) error {
					var err error
					got, err = tx.ListRoundResults("s-1")
					return err
				})
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 4)
				So(got[0].PolicyID, ShouldEqual, "b")
				So(got[1].PolicyID, ShouldEqual, "a")
				So(got[2].RoundIndex, ShouldEqual, 1)
				So(got[3].PolicyID, ShouldEqual, "a")
			})

			Convey("Then ListRoundResultsByPolicy filters on the policy", func() {
				var got []model.RoundResult
				err := s.View(ctx, func(tx Tx) error {
					var err error
					got, err = tx.ListRoundResultsByPolicy("a")
					return err
				})
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].Success, ShouldBeFalse)
				So(got[1].Success, ShouldBeTrue)
			})

			Convey("Then DeleteRoundResults removes them all and reports the count", func() {
				var n int
				err := s.Update(ctx, func(tx Tx) error {
					var err error
					n, err = tx.DeleteRoundResults("s-1")
					return err
				})
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 4)

				var left []model.RoundResult
				err = s.View(ctx, func(tx Tx) error {
					var err error
					left, err = tx.ListRoundResults("s-1")
					return err
				})
				So(err, ShouldBeNil)
				So(left, ShouldBeEmpty)
			})
		})

		Convey("When rows exist for two sessions", func() {
			err := s.Update(ctx, func(tx Tx) error {
				if err := tx.AppendRoundResults("s-1", rows[:2]); err != nil {
					return err
				}
				other := model.RoundResult{SessionID: "s-2", PolicyID: "c", Success: true}
				return tx.AppendRoundResults("s-2", []model.RoundResult{other})
			})
			So(err, ShouldBeNil)

			Convey("Then deleting one session's rows leaves the other intact", func() {
				var n int
				err := s.Update(ctx, func(tx Tx) error {
					var err error
					n, err = tx.DeleteRoundResults("s-1")
					return err
				})
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)

				var got []model.RoundResult
				err = s.View(ctx, func(tx Tx) error {
					var err error
					got, err = tx.ListRoundResults("s-2")
					return err
				})
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
			})
		})
	})
}

func TestBadgerStoreHistory(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		s := newTestStore(t)
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		Convey("When history entries are written", func() {
			err := s.Update(ctx, func(tx Tx) error {
				entries := []model.EloHistoryEntry{
					{PolicyID: "a", SessionID: "s-2", Rating: 1532.5, SessionAt: base.Add(time.Hour)},
					{PolicyID: "a", SessionID: "s-1", Rating: 1516, SessionAt: base},
					{PolicyID: "b", SessionID: "s-1", Rating: 1484, SessionAt: base},
				}
				for _, e := range entries {
					if err := tx.PutHistoryEntry(e); err != nil {
						return err
					}
				}
				return nil
			})
			So(err, ShouldBeNil)

			Convey("Then a policy's series is ordered by session time", func() {
				var got []model.EloHistoryEntry
				err := s.View(ctx, func(tx Tx) error {
					var err error
					got, err = tx.ListHistoryByPolicy("a")
					return err
				})
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].SessionID, ShouldEqual, "s-1")
				So(got[1].SessionID, ShouldEqual, "s-2")
			})

			Convey("Then rewriting a (policy, session) pair upserts", func() {
				err := s.Update(ctx, func(tx Tx) error {
					return tx.PutHistoryEntry(model.EloHistoryEntry{
						PolicyID: "a", SessionID: "s-1", Rating: 1520, SessionAt: base,
					})
				})
				So(err, ShouldBeNil)

				var got []model.EloHistoryEntry
				err = s.View(ctx, func(tx Tx) error {
					var err error
					got, err = tx.ListHistoryByPolicy("a")
					return err
				})
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].Rating, ShouldEqual, 1520)
			})

			Convey("Then DeleteAllHistory clears every policy's series", func() {
				var n int
				err := s.Update(ctx, func(tx Tx) error {
					var err error
					n, err = tx.DeleteAllHistory()
					return err
				})
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)

				var got []model.EloHistoryEntry
				err = s.View(ctx, func(tx Tx) error {
					var err error
					got, err = tx.ListHistoryByPolicy("a")
					return err
				})
				So(err, ShouldBeNil)
				So(got, ShouldBeEmpty)
			})
		})
	})
}

func TestBadgerStoreDatasets(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		s := newTestStore(t)
		ctx := context.Background()

		d := model.Dataset{
			RepoID:      "org/so100-teleop",
			Name:        "so100-teleop",
			Task:        "pick-place",
			SourceType:  model.SourceTeleop,
			Environment: "so100",
			CreatedAt:   time.Now().UTC(),
		}

		Convey("When a dataset with a slash in its repo id is written", func() {
			err := s.Update(ctx, func(tx Tx) error { return tx.PutDataset(d) })
			So(err, ShouldBeNil)

			Convey("Then it reads back under the same repo id", func() {
				var got model.Dataset
				err := s.View(ctx, func(tx Tx) error {
					var err error
					got, err = tx.GetDataset("org/so100-teleop")
					return err
				})
				So(err, ShouldBeNil)
				So(got.Task, ShouldEqual, "pick-place")
			})

			Convey("Then stats write-back is visible on the next read", func() {
				err := s.Update(ctx, func(tx Tx) error {
					got, err := tx.GetDataset(d.RepoID)
					if err != nil {
						return err
					}
					got.Stats = &model.DatasetStats{NumEpisodes: 10, NumSuccess: 7, NumFailure: 3}
					return tx.PutDataset(got)
				})
				So(err, ShouldBeNil)

				var got model.Dataset
				err = s.View(ctx, func(tx Tx) error {
					var err error
					got, err = tx.GetDataset(d.RepoID)
					return err
				})
				So(err, ShouldBeNil)
				So(got.Stats, ShouldNotBeNil)
				So(got.Stats.NumEpisodes, ShouldEqual, 10)
			})

			Convey("Then ListDatasets includes it", func() {
				var got []model.Dataset
				err := s.View(ctx, func(tx Tx) error {
					var err error
					got, err = tx.ListDatasets()
					return err
				})
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
			})
		})

		Convey("When an unregistered dataset is requested", func() {
			err := s.View(ctx, func(tx Tx) error {
				_, err := tx.GetDataset("org/unknown")
				return err
			})
			So(err, ShouldWrap, ErrDatasetNotFound)
		})
	})
}
