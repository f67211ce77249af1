package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestLeaderboardRowNullableFields(t *testing.T) {
	row := LeaderboardRow{Rank: 1, PolicyID: "p-1", Rating: 1500}

	raw, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// The derived statistics must serialize as explicit nulls so the
	// presentation layer can distinguish "no data" from zero.
	if !strings.Contains(string(raw), `"success_rate":null`) {
		t.Errorf("expected null success_rate, got %s", raw)
	}
	if !strings.Contains(string(raw), `"avg_success_steps":null`) {
		t.Errorf("expected null avg_success_steps, got %s", raw)
	}
}

func TestHeadToHeadNullableWinRate(t *testing.T) {
	raw, err := json.Marshal(HeadToHead{PolicyA: "a", PolicyB: "b"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"win_rate":null`) {
		t.Errorf("expected null win_rate, got %s", raw)
	}
}
