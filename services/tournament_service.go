package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tictactoe-online-system/models"
)

// Flat rating bonuses paid out when a bracket resolves.
const (
	defaultWinnerBonus      = 50
	defaultRunnerUpBonus    = 25
	defaultParticipantBonus = 10
)

// TournamentService drives single-elimination brackets of 4 or 8 players.
// Bracket matches are played out by ordinary Match rows; this service only
// seeds them and reacts when they finish.
type TournamentService struct {
	DB *gorm.DB

	winnerBonus      int
	runnerUpBonus    int
	participantBonus int
}

func NewTournamentService(db *gorm.DB) *TournamentService {
	return &TournamentService{
		DB:               db,
		winnerBonus:      envInt("TOURNAMENT_WINNER_BONUS", defaultWinnerBonus),
		runnerUpBonus:    envInt("TOURNAMENT_RUNNER_UP_BONUS", defaultRunnerUpBonus),
		participantBonus: envInt("TOURNAMENT_PARTICIPANT_BONUS", defaultParticipantBonus),
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("⚠️  %s is not an integer, using default %d", key, fallback)
	}
	return fallback
}

// ---- bracket math ----

// roundsFor returns log2(maxPlayers): 4 players -> 2 rounds, 8 -> 3.
func roundsFor(maxPlayers int) int {
	rounds := 0
	for n := maxPlayers; n > 1; n /= 2 {
		rounds++
	}
	return rounds
}

func matchesInRound(maxPlayers, round int) int {
	n := maxPlayers
	for i := 0; i < round; i++ {
		n /= 2
	}
	return n
}

// nextSlot maps a finished match to its winner's seat in the next round:
// match n feeds match ceil(n/2); odd match numbers take player1, even
// take player2.
func nextSlot(matchNumber int) (nextMatchNumber, slot int) {
	nextMatchNumber = (matchNumber + 1) / 2
	if matchNumber%2 == 1 {
		return nextMatchNumber, 1
	}
	return nextMatchNumber, 2
}

// ---- operations ----

func (s *TournamentService) createTournament(name, creatorID, creatorName string, maxPlayers int) (*models.Tournament, error) {
	if maxPlayers != 4 && maxPlayers != 8 {
		return nil, fmt.Errorf("%w: max_players must be 4 or 8", ErrTournamentFull)
	}
	t := models.Tournament{
		Name:       name,
		Slug:       slug.Make(name) + "-" + uuid.NewString()[:8],
		CreatedBy:  creatorID,
		Status:     models.TournamentWaiting,
		MaxPlayers: maxPlayers,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&t).Error; err != nil {
			return storageErr("create tournament", err)
		}
		first := models.TournamentParticipant{
			TournamentID: t.ID,
			PlayerID:     creatorID,
			PlayerName:   creatorName,
			Seed:         1,
		}
		if err := tx.Create(&first).Error; err != nil {
			return storageErr("seat creator", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TournamentService) getTournament(id string) (*models.Tournament, error) {
	var t models.Tournament
	err := s.DB.
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("seed ASC") }).
		Preload("Matches", func(db *gorm.DB) *gorm.DB { return db.Order("round ASC, match_number ASC") }).
		First(&t, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, storageErr("get tournament", err)
	}
	return &t, nil
}

func (s *TournamentService) joinTournament(id, playerID, playerName string) (*models.Tournament, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var t models.Tournament
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&t, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTournamentNotFound
			}
			return storageErr("lock tournament", err)
		}
		if t.Status == models.TournamentFinished {
			return ErrTournamentFinalized
		}
		if t.Status != models.TournamentWaiting {
			return ErrTournamentStarted
		}
		var count int64
		if err := tx.Model(&models.TournamentParticipant{}).
			Where("tournament_id = ?", id).Count(&count).Error; err != nil {
			return storageErr("count participants", err)
		}
		if int(count) >= t.MaxPlayers {
			return ErrTournamentFull
		}
		p := models.TournamentParticipant{
			TournamentID: id,
			PlayerID:     playerID,
			PlayerName:   playerName,
			Seed:         int(count) + 1,
		}
		if err := tx.Create(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyJoined
			}
			return storageErr("join tournament", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.getTournament(id)
}

func (s *TournamentService) leaveTournament(id, playerID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var t models.Tournament
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&t, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTournamentNotFound
			}
			return storageErr("lock tournament", err)
		}
		if t.Status == models.TournamentFinished {
			return ErrTournamentFinalized
		}
		if t.Status != models.TournamentWaiting {
			return ErrTournamentStarted
		}
		// The creator leaving dissolves the lobby entirely.
		if t.CreatedBy == playerID {
			if err := tx.Where("tournament_id = ?", id).
				Delete(&models.TournamentParticipant{}).Error; err != nil {
				return storageErr("dissolve tournament", err)
			}
			return tx.Delete(&models.Tournament{}, "id = ?", id).Error
		}
		res := tx.Where("tournament_id = ? AND player_id = ?", id, playerID).
			Delete(&models.TournamentParticipant{})
		if res.Error != nil {
			return storageErr("leave tournament", res.Error)
		}
		return nil
	})
}

// startTournament shuffles the full field into round-1 pairs and
// pre-creates empty placeholders for every later round. Only the creator
// may start, and only once every seat is filled.
func (s *TournamentService) startTournament(id, callerID string) (*models.Tournament, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var t models.Tournament
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&t, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTournamentNotFound
			}
			return storageErr("lock tournament", err)
		}
		if t.CreatedBy != callerID {
			return ErrNotCreator
		}
		if t.Status == models.TournamentFinished {
			return ErrTournamentFinalized
		}
		if t.Status != models.TournamentWaiting {
			return ErrTournamentStarted
		}
		var participants []models.TournamentParticipant
		if err := tx.Where("tournament_id = ?", id).Order("seed ASC").
			Find(&participants).Error; err != nil {
			return storageErr("load participants", err)
		}
		if len(participants) != t.MaxPlayers {
			return ErrNotEnoughPlayers
		}

		rand.Shuffle(len(participants), func(i, j int) {
			participants[i], participants[j] = participants[j], participants[i]
		})

		totalRounds := roundsFor(t.MaxPlayers)
		for i := 0; i < len(participants); i += 2 {
			p1, p2 := participants[i], participants[i+1]
			tm := models.TournamentMatch{
				TournamentID: id,
				Round:        1,
				MatchNumber:  i/2 + 1,
				Player1ID:    &p1.PlayerID,
				Player1Name:  &p1.PlayerName,
				Player2ID:    &p2.PlayerID,
				Player2Name:  &p2.PlayerName,
			}
			if err := s.openBracketGame(tx, &tm); err != nil {
				return err
			}
			if err := tx.Create(&tm).Error; err != nil {
				return storageErr("create bracket match", err)
			}
		}
		for round := 2; round <= totalRounds; round++ {
			for n := 1; n <= matchesInRound(t.MaxPlayers, round); n++ {
				tm := models.TournamentMatch{
					TournamentID: id,
					Round:        round,
					MatchNumber:  n,
					Status:       models.BracketPending,
				}
				if err := tx.Create(&tm).Error; err != nil {
					return storageErr("create bracket placeholder", err)
				}
			}
		}
		return tx.Model(&t).Updates(map[string]interface{}{
			"status":        models.TournamentInProgress,
			"current_round": 1,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.getTournament(id)
}

// openBracketGame creates the ordinary Match that plays out a bracket
// slot with both seats known. The game starts directly in playing.
func (s *TournamentService) openBracketGame(tx *gorm.DB, tm *models.TournamentMatch) error {
	if tm.Player1ID == nil || tm.Player2ID == nil {
		return fmt.Errorf("bracket match %d/%d is missing a seat", tm.Round, tm.MatchNumber)
	}
	game := models.Match{
		PlayerXID:   *tm.Player1ID,
		PlayerXName: *tm.Player1Name,
		PlayerOID:   tm.Player2ID,
		PlayerOName: tm.Player2Name,
		Board:       models.EmptyBoard,
		Turn:        models.SeatX,
		Status:      models.StatusPlaying,
	}
	if err := tx.Create(&game).Error; err != nil {
		return storageErr("create bracket game", err)
	}
	tm.GameID = &game.ID
	tm.Status = models.BracketPlaying
	return nil
}

// advanceForGame is called from the finishing move's transaction when any
// game reaches finished. Non-bracket games return immediately. Drawn
// bracket games are replayed with seats swapped; decisive ones advance
// the winner, eliminate the loser, and close out round and tournament
// when they are the last match standing.
func (s *TournamentService) advanceForGame(tx *gorm.DB, gameID string, outcome models.MatchOutcome) error {
	var tm models.TournamentMatch
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&tm, "game_id = ?", gameID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return storageErr("find bracket match", err)
	}
	if tm.Status == models.BracketFinished {
		return nil
	}

	var game models.Match
	if err := tx.First(&game, "id = ?", gameID).Error; err != nil {
		return storageErr("load bracket game", err)
	}

	if outcome == models.OutcomeDraw {
		// Brackets need a decisive result: replay with seats swapped.
		replay := models.Match{
			PlayerXID:   *game.PlayerOID,
			PlayerXName: *game.PlayerOName,
			PlayerOID:   &game.PlayerXID,
			PlayerOName: &game.PlayerXName,
			Board:       models.EmptyBoard,
			Turn:        models.SeatX,
			Status:      models.StatusPlaying,
		}
		if err := tx.Create(&replay).Error; err != nil {
			return storageErr("create bracket replay", err)
		}
		log.Printf("[Tournament] %s round %d match %d drawn, replaying as %s",
			tm.TournamentID, tm.Round, tm.MatchNumber, replay.ID)
		return tx.Model(&tm).Update("game_id", replay.ID).Error
	}

	winnerSeat := models.Seat(outcome)
	var winnerID, winnerName, loserID, loserName string
	if winnerSeat == models.SeatX {
		winnerID, winnerName = game.PlayerXID, game.PlayerXName
		loserID, loserName = *game.PlayerOID, *game.PlayerOName
	} else {
		winnerID, winnerName = *game.PlayerOID, *game.PlayerOName
		loserID, loserName = game.PlayerXID, game.PlayerXName
	}

	if err := tx.Model(&tm).Updates(map[string]interface{}{
		"winner_id": winnerID,
		"status":    models.BracketFinished,
	}).Error; err != nil {
		return storageErr("finish bracket match", err)
	}
	if err := tx.Model(&models.TournamentParticipant{}).
		Where("tournament_id = ? AND player_id = ?", tm.TournamentID, loserID).
		Update("eliminated", true).Error; err != nil {
		return storageErr("eliminate loser", err)
	}

	var t models.Tournament
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&t, "id = ?", tm.TournamentID).Error; err != nil {
		return storageErr("lock tournament", err)
	}
	totalRounds := roundsFor(t.MaxPlayers)

	if tm.Round == totalRounds {
		return s.finalizeTournament(tx, &t, winnerID, winnerName, loserID, loserName)
	}

	// Winner takes their seat in the next round's placeholder.
	nextNumber, seatSlot := nextSlot(tm.MatchNumber)
	slotUpdates := map[string]interface{}{
		"player1_id":   winnerID,
		"player1_name": winnerName,
	}
	if seatSlot == 2 {
		slotUpdates = map[string]interface{}{
			"player2_id":   winnerID,
			"player2_name": winnerName,
		}
	}
	if err := tx.Model(&models.TournamentMatch{}).
		Where("tournament_id = ? AND round = ? AND match_number = ?",
			tm.TournamentID, tm.Round+1, nextNumber).
		Updates(slotUpdates).Error; err != nil {
		return storageErr("seat winner", err)
	}

	// The round advances only when every one of its matches is finished.
	var unfinished int64
	if err := tx.Model(&models.TournamentMatch{}).
		Where("tournament_id = ? AND round = ? AND status <> ?",
			tm.TournamentID, tm.Round, models.BracketFinished).
		Count(&unfinished).Error; err != nil {
		return storageErr("count round matches", err)
	}
	if unfinished > 0 {
		return nil
	}

	nextRound := tm.Round + 1
	var nextMatches []models.TournamentMatch
	if err := tx.Where("tournament_id = ? AND round = ?", tm.TournamentID, nextRound).
		Order("match_number ASC").
		Find(&nextMatches).Error; err != nil {
		return storageErr("load next round", err)
	}
	for i := range nextMatches {
		if err := s.openBracketGame(tx, &nextMatches[i]); err != nil {
			return err
		}
		if err := tx.Save(&nextMatches[i]).Error; err != nil {
			return storageErr("open next round match", err)
		}
	}
	log.Printf("[Tournament] %s advancing to round %d", tm.TournamentID, nextRound)
	return tx.Model(&t).Update("current_round", nextRound).Error
}

// finalizeTournament records the champion and pays the flat rating
// bonuses: winner, runner-up, then every other (eliminated) participant.
func (s *TournamentService) finalizeTournament(tx *gorm.DB, t *models.Tournament, winnerID, winnerName, runnerUpID, runnerUpName string) error {
	if err := tx.Model(t).Updates(map[string]interface{}{
		"status":      models.TournamentFinished,
		"winner_id":   winnerID,
		"winner_name": winnerName,
	}).Error; err != nil {
		return storageErr("finish tournament", err)
	}
	if err := applyRatingBonus(tx, winnerID, winnerName, s.winnerBonus); err != nil {
		return storageErr("winner bonus", err)
	}
	if err := applyRatingBonus(tx, runnerUpID, runnerUpName, s.runnerUpBonus); err != nil {
		return storageErr("runner-up bonus", err)
	}
	var others []models.TournamentParticipant
	if err := tx.Where("tournament_id = ? AND player_id NOT IN ?",
		t.ID, []string{winnerID, runnerUpID}).
		Find(&others).Error; err != nil {
		return storageErr("load participants", err)
	}
	for _, p := range others {
		if err := applyRatingBonus(tx, p.PlayerID, p.PlayerName, s.participantBonus); err != nil {
			return storageErr("participation bonus", err)
		}
	}
	log.Printf("[Tournament] %s won by %s (%s)", t.ID, winnerName, winnerID)
	return nil
}

// ---- fiber handlers ----

func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	playerID, playerName := playerIdentity(c)
	if playerName == "" {
		return c.Status(400).JSON(fiber.Map{"error": "player name is required"})
	}
	var req struct {
		Name       string `json:"name"`
		MaxPlayers int    `json:"max_players"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name is required"})
	}
	if req.MaxPlayers != 4 && req.MaxPlayers != 8 {
		return c.Status(400).JSON(fiber.Map{"error": "max_players must be 4 or 8"})
	}
	t, err := s.createTournament(req.Name, playerID, playerName, req.MaxPlayers)
	if err != nil {
		return matchErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

func (s *TournamentService) ListTournaments(c *fiber.Ctx) error {
	var rows []models.Tournament
	err := s.DB.
		Where("status IN ?", []models.TournamentStatus{models.TournamentWaiting, models.TournamentInProgress}).
		Order("created_at DESC").
		Limit(20).
		Find(&rows).Error
	if err != nil {
		return matchErrorResponse(c, storageErr("list tournaments", err))
	}
	return c.JSON(fiber.Map{"tournaments": rows, "count": len(rows)})
}

func (s *TournamentService) GetTournament(c *fiber.Ctx) error {
	t, err := s.getTournament(c.Params("id"))
	if err != nil {
		return matchErrorResponse(c, err)
	}
	return c.JSON(t)
}

func (s *TournamentService) JoinTournament(c *fiber.Ctx) error {
	playerID, playerName := playerIdentity(c)
	if playerName == "" {
		return c.Status(400).JSON(fiber.Map{"error": "player name is required"})
	}
	t, err := s.joinTournament(c.Params("id"), playerID, playerName)
	if err != nil {
		return matchErrorResponse(c, err)
	}
	return c.JSON(t)
}

func (s *TournamentService) LeaveTournament(c *fiber.Ctx) error {
	playerID, _ := playerIdentity(c)
	if err := s.leaveTournament(c.Params("id"), playerID); err != nil {
		return matchErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"left": true})
}

func (s *TournamentService) StartTournament(c *fiber.Ctx) error {
	playerID, _ := playerIdentity(c)
	t, err := s.startTournament(c.Params("id"), playerID)
	if err != nil {
		return matchErrorResponse(c, err)
	}
	return c.JSON(t)
}
