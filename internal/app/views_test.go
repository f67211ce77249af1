package service

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/arenalab/policy-arena/internal/adapters/repository"
	"github.com/arenalab/policy-arena/internal/domain/model"
)

func intPtr(n int) *int { return &n }

func TestLeaderboardDerivedStats(t *testing.T) {
	Convey("Given rounds with mixed success and frame counts", t, func() {
		svc := newTestService(t)
		ctx := context.Background()

		_, err := svc.SubmitSession(ctx, SubmitInput{
			DatasetRepo: "org/eval-episodes",
			Policies: []PolicySpec{
				{Name: "act", ModelID: "org/act", Environment: "so100"},
				{Name: "pi0", ModelID: "org/pi0", Environment: "so100"},
			},
			Rounds: [][]ResultInput{
				{
					{ModelID: "org/act", Success: true, EpisodeIndex: 0, NumFrames: intPtr(100)},
					{ModelID: "org/pi0", Success: false, EpisodeIndex: 0, NumFrames: intPtr(300)},
				},
				{
					{ModelID: "org/act", Success: true, EpisodeIndex: 1, NumFrames: intPtr(200)},
					{ModelID: "org/pi0", Success: false, EpisodeIndex: 1},
				},
				{
					{ModelID: "org/act", Success: false, EpisodeIndex: 2},
					{ModelID: "org/pi0", Success: false, EpisodeIndex: 2},
				},
			},
		})
		So(err, ShouldBeNil)

		rows, err := svc.Leaderboard(ctx, 0)
		So(err, ShouldBeNil)
		act, _ := rowByModel(rows, "org/act")
		pi0, _ := rowByModel(rows, "org/pi0")

		Convey("Then success rate counts rounds played", func() {
			So(act.RoundsPlayed, ShouldEqual, 3)
			So(*act.SuccessRate, ShouldAlmostEqual, 2.0/3.0)
			So(*pi0.SuccessRate, ShouldEqual, 0)
		})

		Convey("Then average steps only covers successful rounds with frames", func() {
			So(*act.AvgSuccessSteps, ShouldEqual, 150)
			So(pi0.AvgSuccessSteps, ShouldBeNil)
		})

		Convey("Then the winner ranks first", func() {
			So(rows[0].ModelID, ShouldEqual, "org/act")
			So(rows[0].Rank, ShouldEqual, 1)
			So(rows[1].Rank, ShouldEqual, 2)
		})

		Convey("Then reading the board twice returns identical values", func() {
			again, err := svc.Leaderboard(ctx, 0)
			So(err, ShouldBeNil)
			So(again, ShouldResemble, rows)
		})
	})

	Convey("Given a policy with no recorded rounds", t, func() {
		svc := newTestService(t)
		ctx := context.Background()

		_, err := svc.SubmitSession(ctx, SubmitInput{
			DatasetRepo: "org/eval-episodes",
			Policies:    []PolicySpec{{Name: "idle", ModelID: "org/idle", Environment: "so100"}},
			Rounds:      nil,
		})
		So(err, ShouldBeNil)

		Convey("Then its derived statistics are null, not zero divisions", func() {
			rows, err := svc.Leaderboard(ctx, 0)
			So(err, ShouldBeNil)
			idle, ok := rowByModel(rows, "org/idle")
			So(ok, ShouldBeTrue)
			So(idle.RoundsPlayed, ShouldEqual, 0)
			So(idle.SuccessRate, ShouldBeNil)
			So(idle.AvgSuccessSteps, ShouldBeNil)
		})
	})
}

func TestHeadToHead(t *testing.T) {
	Convey("Given two policies meeting across several sessions", t, func() {
		svc := newTestService(t)
		ctx := context.Background()

		_, err := svc.SubmitSession(ctx, twoPolicySubmission(true, false))
		So(err, ShouldBeNil)
		_, err = svc.SubmitSession(ctx, twoPolicySubmission(false, true))
		So(err, ShouldBeNil)
		_, err = svc.SubmitSession(ctx, twoPolicySubmission(true, true))
		So(err, ShouldBeNil)

		rollout := twoPolicySubmission(true, false)
		rollout.Mode = model.ModeRollout
		_, err = svc.SubmitSession(ctx, rollout)
		So(err, ShouldBeNil)

		rows, err := svc.Leaderboard(ctx, 0)
		So(err, ShouldBeNil)
		a, _ := rowByModel(rows, "org/act")
		b, _ := rowByModel(rows, "org/pi0")

		Convey("When the record is queried from A's side", func() {
			h2h, err := svc.HeadToHead(ctx, a.PolicyID, b.PolicyID)
			So(err, ShouldBeNil)

			Convey("Then rating-exempt rounds still count in the tally", func() {
				So(h2h.Wins, ShouldEqual, 2)
				So(h2h.Losses, ShouldEqual, 1)
				So(h2h.Draws, ShouldEqual, 1)
				So(h2h.Total, ShouldEqual, 4)
				So(h2h.Sessions, ShouldEqual, 4)
				So(*h2h.WinRate, ShouldEqual, 0.5)
			})

			Convey("Then the reporting re-derivation left counters alone", func() {
				after, err := svc.Leaderboard(ctx, 0)
				So(err, ShouldBeNil)
				So(after, ShouldResemble, rows)
			})
		})

		Convey("When queried from B's side", func() {
			h2h, err := svc.HeadToHead(ctx, b.PolicyID, a.PolicyID)
			So(err, ShouldBeNil)
			So(h2h.Wins, ShouldEqual, 1)
			So(h2h.Losses, ShouldEqual, 2)
		})

		Convey("When one policy does not exist", func() {
			_, err := svc.HeadToHead(ctx, a.PolicyID, "missing")
			So(err, ShouldWrap, repository.ErrPolicyNotFound)
		})
	})
}

func TestPolicyRounds(t *testing.T) {
	Convey("Given a policy with rounds across two sessions", t, func() {
		svc := newTestService(t)
		ctx := context.Background()

		_, err := svc.SubmitSession(ctx, twoPolicySubmission(true, false))
		So(err, ShouldBeNil)
		second, err := svc.SubmitSession(ctx, twoPolicySubmission(false, true))
		So(err, ShouldBeNil)

		rows, err := svc.Leaderboard(ctx, 0)
		So(err, ShouldBeNil)
		act, _ := rowByModel(rows, "org/act")

		Convey("When all rounds are listed", func() {
			views, err := svc.PolicyRounds(ctx, act.PolicyID, false)
			So(err, ShouldBeNil)

			Convey("Then the most recent session comes first", func() {
				So(views, ShouldHaveLength, 2)
				So(views[0].SessionID, ShouldEqual, second.ID)
			})
		})

		Convey("When only failures are requested", func() {
			views, err := svc.PolicyRounds(ctx, act.PolicyID, true)
			So(err, ShouldBeNil)
			So(views, ShouldHaveLength, 1)
			So(views[0].Success, ShouldBeFalse)
			So(views[0].SessionID, ShouldEqual, second.ID)
		})

		Convey("When the policy does not exist", func() {
			_, err := svc.PolicyRounds(ctx, "missing", false)
			So(err, ShouldWrap, repository.ErrPolicyNotFound)
		})
	})
}

func TestSessionViewsDegradeOnDanglingPolicy(t *testing.T) {
	Convey("Given a round row referencing a policy that no longer resolves", t, func() {
		store, err := repository.NewBadgerStore(repository.WithInMemory(true))
		So(err, ShouldBeNil)
		svc := newTestService(t, WithStore(store))
		ctx := context.Background()

		sess := model.EvalSession{
			ID:          "s-dangling",
			DatasetRepo: "org/eval-episodes",
			Mode:        model.ModeManual,
			PolicyIDs:   []string{"ghost"},
			NumRounds:   1,
			CreatedAt:   time.Now().UTC(),
		}
		err = store.Update(ctx, func(tx repository.Tx) error {
			if err := tx.PutSession(sess); err != nil {
				return err
			}
			return tx.AppendRoundResults(sess.ID, []model.RoundResult{
				{SessionID: sess.ID, RoundIndex: 0, PolicyID: "ghost", Success: true},
			})
		})
		So(err, ShouldBeNil)

		Convey("Then the session detail reports the policy as Unknown", func() {
			detail, err := svc.SessionDetail(ctx, sess.ID)
			So(err, ShouldBeNil)
			So(detail.Participants, ShouldResemble, []string{"Unknown"})
			So(detail.Rounds[0].Results[0].PolicyName, ShouldEqual, "Unknown")
		})
	})
}

func TestRecommendOpponents(t *testing.T) {
	Convey("Given policies in two environments", t, func() {
		svc := newTestService(t)
		ctx := context.Background()

		// act beats pi0 twice, smolvla sits untouched at the seed.
		_, err := svc.SubmitSession(ctx, twoPolicySubmission(true, false))
		So(err, ShouldBeNil)
		_, err = svc.SubmitSession(ctx, twoPolicySubmission(true, false))
		So(err, ShouldBeNil)
		_, err = svc.SubmitSession(ctx, SubmitInput{
			DatasetRepo: "org/eval-episodes",
			Policies:    []PolicySpec{{Name: "smolvla", ModelID: "org/smolvla", Environment: "so100"}},
		})
		So(err, ShouldBeNil)

		// An unplayed policy in another environment; never a candidate.
		_, err = svc.SubmitSession(ctx, SubmitInput{
			DatasetRepo: "org/fr3-episodes",
			Policies:    []PolicySpec{{Name: "fr3-reach", ModelID: "org/fr3-reach", Environment: "fr3"}},
		})
		So(err, ShouldBeNil)

		rows, err := svc.Leaderboard(ctx, 0)
		So(err, ShouldBeNil)
		act, _ := rowByModel(rows, "org/act")

		Convey("When opponents are recommended for the leader", func() {
			suggestions, err := svc.RecommendOpponents(ctx, act.PolicyID, 0)
			So(err, ShouldBeNil)

			Convey("Then only same-environment policies qualify", func() {
				So(suggestions, ShouldHaveLength, 2)
				for _, sg := range suggestions {
					So(sg.Name, ShouldNotEqual, "fr3-reach")
				}
			})

			Convey("Then the least-played policy comes first and self is excluded", func() {
				So(suggestions[0].Name, ShouldEqual, "smolvla")
				So(suggestions[0].RoundsPlayed, ShouldEqual, 0)
				So(suggestions[1].Name, ShouldEqual, "pi0")
				So(suggestions[1].RoundsPlayed, ShouldEqual, 2)
			})

			Convey("Then the gap is measured to the environment pool median", func() {
				// Pool ratings are 1469.47, 1500 and 1530.53; the
				// median is the untouched seed.
				So(suggestions[0].RatingGap, ShouldEqual, 0)
				So(suggestions[1].RatingGap, ShouldAlmostEqual, 30.53, 0.001)
			})
		})

		Convey("When the policy does not exist", func() {
			_, err := svc.RecommendOpponents(ctx, "missing", 0)
			So(err, ShouldWrap, repository.ErrPolicyNotFound)
		})
	})
}
