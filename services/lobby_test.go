package services

import (
	"fmt"
	"testing"

	"tictactoe-online-system/models"
)

func stubLobby(rows []models.Match) *LobbyService {
	s := &LobbyService{Feed: NewMatchFeed()}
	s.fetch = func() ([]models.Match, error) { return rows, nil }
	return s
}

func TestLobbyExcludesOwnMatches(t *testing.T) {
	s := stubLobby([]models.Match{
		{ID: "m1", PlayerXID: "alice", Status: models.StatusWaiting},
		{ID: "m2", PlayerXID: "bob", Status: models.StatusWaiting},
		{ID: "m3", PlayerXID: "carol", Status: models.StatusWaiting},
	})
	if err := s.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	got := s.List("bob")
	if len(got) != 2 {
		t.Fatalf("List returned %d matches, want 2", len(got))
	}
	for _, m := range got {
		if m.PlayerXID == "bob" {
			t.Errorf("viewer's own match %s leaked into the lobby", m.ID)
		}
	}
}

func TestLobbyCapsListSize(t *testing.T) {
	var rows []models.Match
	for i := 0; i < lobbyListLimit+5; i++ {
		rows = append(rows, models.Match{
			ID:        fmt.Sprintf("m%d", i),
			PlayerXID: fmt.Sprintf("host%d", i),
			Status:    models.StatusWaiting,
		})
	}
	s := stubLobby(rows)
	if err := s.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := s.List("nobody"); len(got) != lobbyListLimit {
		t.Errorf("List returned %d matches, want %d", len(got), lobbyListLimit)
	}
}

func TestLobbyEmptyBeforeRefresh(t *testing.T) {
	s := stubLobby(nil)
	if got := s.List("anyone"); len(got) != 0 {
		t.Errorf("cold cache returned %d matches, want 0", len(got))
	}
}
