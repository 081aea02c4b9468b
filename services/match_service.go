package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"tictactoe-online-system/models"
	"tictactoe-online-system/utils"
)

const lobbyListLimit = 10

// Conditional-write guards. Each WHERE clause restates every precondition
// the caller observed; an update that matches zero rows is a lost race.
const (
	joinGuard          = "id = ? AND status = ? AND player_o_id IS NULL AND player_x_id <> ?"
	moveGuard          = "id = ? AND status = ? AND turn = ? AND version = ? AND substr(board, ?, 1) = '-'"
	deleteGuard        = "id = ? AND status = ? AND player_x_id = ?"
	rematchClaimGuard  = "id = ? AND status = ? AND rematch_requested_by IS NULL"
	rematchAcceptGuard = "id = ? AND status = ? AND rematch_requested_by = ?"
)

// MatchService owns all persisted Match mutation. Every cross-client
// hazard (two joiners, double-submitted moves, simultaneous rematch
// accepts) is resolved by a conditional update whose WHERE clause carries
// the preconditions the caller observed; zero rows affected means the race
// was lost and the caller must resync, never blind-retry.
type MatchService struct {
	DB          *gorm.DB
	Feed        *MatchFeed
	Tournaments *TournamentService
}

func NewMatchService(db *gorm.DB, feed *MatchFeed) *MatchService {
	return &MatchService{DB: db, Feed: feed}
}

func storageErr(op string, err error) error {
	log.Printf("[Match] %s: storage error: %v", op, err)
	return fmt.Errorf("%w: %s", ErrStorageUnavailable, op)
}

// ---- repository operations ----

func (s *MatchService) createMatch(hostID, hostName string) (*models.Match, error) {
	m := models.Match{
		PlayerXID:   hostID,
		PlayerXName: hostName,
		Board:       models.EmptyBoard,
		Turn:        models.SeatX,
		Status:      models.StatusWaiting,
	}
	if err := s.DB.Create(&m).Error; err != nil {
		return nil, storageErr("create match", err)
	}
	return &m, nil
}

func (s *MatchService) getMatch(id string) (*models.Match, error) {
	var m models.Match
	if err := s.DB.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, storageErr("get match", err)
	}
	return &m, nil
}

// joinMatch seats the joiner as O. The guard makes concurrent joiners
// at-most-one-winner: only a waiting match with a vacant O seat and a
// different host can be taken, atomically.
func (s *MatchService) joinMatch(id, joinerID, joinerName string) (*models.Match, error) {
	res := s.DB.Model(&models.Match{}).
		Where(joinGuard, id, models.StatusWaiting, joinerID).
		Updates(map[string]interface{}{
			"player_o_id":   joinerID,
			"player_o_name": joinerName,
			"status":        models.StatusPlaying,
			"version":       gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return nil, storageErr("join match", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrJoinFailed
	}
	return s.getMatch(id)
}

// applyMove validates locally against the last known state, then performs
// the conditional write. The WHERE clause repeats every precondition
// (status, turn, target cell still empty, unchanged version) so a stale
// client or a double-submission loses cleanly with ErrMoveRejected.
func (s *MatchService) applyMove(id, playerID string, cell int) (*models.Match, error) {
	m, err := s.getMatch(id)
	if err != nil {
		return nil, err
	}
	seat, ok := m.SeatOf(playerID)
	if !ok {
		return nil, models.ErrNotSeated
	}
	if err := m.ValidateMove(seat, cell); err != nil {
		return nil, err
	}

	newBoard, nextTurn, status, outcome := models.ResolveMove(m.Board, cell, seat)

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Match{}).
			Where(moveGuard, id, models.StatusPlaying, seat, m.Version, cell+1).
			Updates(map[string]interface{}{
				"board":   newBoard,
				"turn":    nextTurn,
				"status":  status,
				"outcome": outcome,
				"version": m.Version + 1,
			})
		if res.Error != nil {
			return storageErr("apply move", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrMoveRejected
		}

		xCount, oCount := models.CountMarks(newBoard)
		move := models.MatchMove{
			MatchID:    id,
			MoveNumber: xCount + oCount,
			Seat:       seat,
			Cell:       cell,
		}
		if err := tx.Create(&move).Error; err != nil {
			return storageErr("record move", err)
		}

		if status != models.StatusFinished {
			return nil
		}
		if err := s.settleFinishedGame(tx, m, outcome); err != nil {
			return err
		}
		if s.Tournaments != nil {
			if err := s.Tournaments.advanceForGame(tx, id, outcome); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.getMatch(id)
}

// settleFinishedGame applies the rating update for both seats from the
// same pre-match snapshot. Running it inside the finishing move's
// transaction means it happens exactly once, by construction.
func (s *MatchService) settleFinishedGame(tx *gorm.DB, m *models.Match, outcome models.MatchOutcome) error {
	if m.PlayerOID == nil || m.PlayerOName == nil {
		return fmt.Errorf("finished match %s has a vacant seat", m.ID)
	}
	var xResult MatchResult
	switch outcome {
	case models.OutcomeX:
		xResult = ResultWin
	case models.OutcomeO:
		xResult = ResultLoss
	case models.OutcomeDraw:
		xResult = ResultDraw
	default:
		return fmt.Errorf("finished match %s has no outcome", m.ID)
	}
	return applyMatchRatings(tx, m.PlayerXID, m.PlayerXName, *m.PlayerOID, *m.PlayerOName, xResult)
}

// requestRematch records the caller's request, or — if the opponent
// already asked — atomically accepts: the old match is claimed with a
// conditional status flip so two near-simultaneous acceptors can never
// both create a successor. Seats swap in the new match.
func (s *MatchService) requestRematch(id, playerID string) (*models.Match, error) {
	m, err := s.getMatch(id)
	if err != nil {
		return nil, err
	}
	if m.Status != models.StatusFinished {
		return nil, ErrRematchUnavailable
	}
	seat, ok := m.SeatOf(playerID)
	if !ok {
		return nil, models.ErrNotSeated
	}
	opponentID := m.OpponentID(seat)
	if opponentID == "" {
		return nil, ErrRematchUnavailable
	}

	// First writer records the request.
	res := s.DB.Model(&models.Match{}).
		Where(rematchClaimGuard, id, models.StatusFinished).
		Updates(map[string]interface{}{
			"rematch_requested_by": playerID,
			"version":              gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return nil, storageErr("request rematch", res.Error)
	}
	if res.RowsAffected == 1 {
		return s.getMatch(id)
	}

	// Request slot already taken. If it is ours, nothing more to do.
	m, err = s.getMatch(id)
	if err != nil {
		return nil, err
	}
	if m.RematchRequestedBy != nil && *m.RematchRequestedBy == playerID {
		return m, nil
	}

	// Opponent asked first: accept by claiming the old row, then create
	// the successor with seats swapped.
	var successor *models.Match
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		next := models.Match{
			PlayerXID:   *m.PlayerOID,
			PlayerXName: *m.PlayerOName,
			PlayerOID:   &m.PlayerXID,
			PlayerOName: &m.PlayerXName,
			Board:       models.EmptyBoard,
			Turn:        models.SeatX,
			Status:      models.StatusPlaying,
			Version:     1,
		}
		if err := tx.Create(&next).Error; err != nil {
			return storageErr("create rematch", err)
		}
		res := tx.Model(&models.Match{}).
			Where(rematchAcceptGuard, id, models.StatusFinished, opponentID).
			Updates(map[string]interface{}{
				"status":       models.StatusRematched,
				"successor_id": next.ID,
				"version":      gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return storageErr("accept rematch", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrRematchUnavailable
		}
		successor = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The rematched row is left for the maintenance job to archive and
	// remove. Deleting it here would race the feed poller: subscribers
	// need at least one poll cycle to observe the successor pointer
	// before the row disappears.
	return successor, nil
}

func (s *MatchService) deleteWaitingMatch(id, hostID string) error {
	m, err := s.getMatch(id)
	if err != nil {
		return err
	}
	if m.PlayerXID != hostID {
		return ErrNotHost
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Where(deleteGuard, id, models.StatusWaiting, hostID).
			Delete(&models.Match{})
		if res.Error != nil {
			return storageErr("delete waiting match", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrDeleteRejected
		}
		// The host may have chatted while waiting; those rows go too.
		if err := tx.Where("match_id = ?", id).Delete(&models.MatchMessage{}).Error; err != nil {
			return storageErr("delete waiting match messages", err)
		}
		return nil
	})
}

func (s *MatchService) listMoves(id string) ([]models.MatchMove, error) {
	if _, err := s.getMatch(id); err != nil {
		return nil, err
	}
	var moves []models.MatchMove
	if err := s.DB.Where("match_id = ?", id).Order("move_number ASC").Find(&moves).Error; err != nil {
		return nil, storageErr("list moves", err)
	}
	return moves, nil
}

// archiveAndDelete uploads the match with its move history to object
// storage (when configured), then removes the rows.
func (s *MatchService) archiveAndDelete(id string) error {
	var m models.Match
	if err := s.DB.Preload("Moves").First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if utils.ArchiveEnabled() {
		key := fmt.Sprintf("matches/%s/%s.json", m.CreatedAt.UTC().Format("2006/01/02"), m.ID)
		if err := utils.UploadMatchArchive(key, &m); err != nil {
			return err
		}
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("match_id = ?", id).Delete(&models.MatchMove{}).Error; err != nil {
			return err
		}
		if err := tx.Where("match_id = ?", id).Delete(&models.MatchMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Match{}, "id = ?", id).Error
	})
}

// ---- fiber handlers ----

func playerIdentity(c *fiber.Ctx) (string, string) {
	id, _ := c.Locals("player_id").(string)
	name, _ := c.Locals("player_name").(string)
	return id, strings.TrimSpace(name)
}

// matchErrorResponse maps the result taxonomy onto HTTP statuses. Lost
// races are 409s with a hint to resync; local validation failures are
// 422s; infrastructure trouble is 503 and retryable.
func matchErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrMatchNotFound), errors.Is(err, ErrTournamentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrJoinFailed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error(), "hint": "refresh the lobby and pick another match"})
	case errors.Is(err, ErrMoveRejected), errors.Is(err, ErrRematchUnavailable), errors.Is(err, ErrDeleteRejected):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error(), "hint": "resync from the latest match snapshot"})
	case errors.Is(err, models.ErrNotSeated), errors.Is(err, ErrNotHost), errors.Is(err, ErrNotCreator):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidCell), errors.Is(err, models.ErrCellTaken),
		errors.Is(err, models.ErrNotYourTurn), errors.Is(err, models.ErrMatchNotPlaying),
		errors.Is(err, ErrTournamentFull), errors.Is(err, ErrAlreadyJoined),
		errors.Is(err, ErrNotEnoughPlayers), errors.Is(err, ErrTournamentStarted),
		errors.Is(err, ErrTournamentFinalized):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrStorageUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "storage unavailable, try again"})
	default:
		log.Printf("unexpected error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

func (s *MatchService) CreateMatch(c *fiber.Ctx) error {
	playerID, playerName := playerIdentity(c)
	if playerName == "" {
		return c.Status(400).JSON(fiber.Map{"error": "player name is required"})
	}
	m, err := s.createMatch(playerID, playerName)
	if err != nil {
		return matchErrorResponse(c, err)
	}
	log.Printf("[Match] %s created by %s (%s)", m.ID, playerName, playerID)
	return c.Status(fiber.StatusCreated).JSON(m)
}

func (s *MatchService) GetMatch(c *fiber.Ctx) error {
	m, err := s.getMatch(c.Params("id"))
	if err != nil {
		return matchErrorResponse(c, err)
	}
	return c.JSON(m)
}

func (s *MatchService) JoinMatch(c *fiber.Ctx) error {
	playerID, playerName := playerIdentity(c)
	if playerName == "" {
		return c.Status(400).JSON(fiber.Map{"error": "player name is required"})
	}
	m, err := s.joinMatch(c.Params("id"), playerID, playerName)
	if err != nil {
		return matchErrorResponse(c, err)
	}
	log.Printf("[Match] %s joined by %s as O", m.ID, playerName)
	return c.JSON(m)
}

func (s *MatchService) ApplyMove(c *fiber.Ctx) error {
	playerID, _ := playerIdentity(c)
	var req struct {
		Cell *int `json:"cell"`
	}
	if err := c.BodyParser(&req); err != nil || req.Cell == nil {
		return c.Status(400).JSON(fiber.Map{"error": "body must be {\"cell\": 0..8}"})
	}
	m, err := s.applyMove(c.Params("id"), playerID, *req.Cell)
	if err != nil {
		return matchErrorResponse(c, err)
	}
	return c.JSON(m)
}

func (s *MatchService) RequestRematch(c *fiber.Ctx) error {
	playerID, _ := playerIdentity(c)
	m, err := s.requestRematch(c.Params("id"), playerID)
	if err != nil {
		return matchErrorResponse(c, err)
	}
	return c.JSON(m)
}

func (s *MatchService) DeleteMatch(c *fiber.Ctx) error {
	playerID, _ := playerIdentity(c)
	if err := s.deleteWaitingMatch(c.Params("id"), playerID); err != nil {
		return matchErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}

func (s *MatchService) ListMoves(c *fiber.Ctx) error {
	moves, err := s.listMoves(c.Params("id"))
	if err != nil {
		return matchErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"match_id": c.Params("id"), "moves": moves, "count": len(moves)})
}

// expireIdleMatches is called by the maintenance scheduler: waiting
// matches nobody joined are deleted after lobbyTTL, stalled playing
// matches and rematched leftovers are archived away after idleTTL.
func (s *MatchService) expireIdleMatches(lobbyTTL, idleTTL time.Duration) {
	now := time.Now()

	var abandoned []string
	if err := s.DB.Model(&models.Match{}).
		Where("status = ? AND created_at < ?", models.StatusWaiting, now.Add(-lobbyTTL)).
		Pluck("id", &abandoned).Error; err != nil {
		log.Printf("[Maintenance] scanning abandoned matches: %v", err)
	} else if len(abandoned) > 0 {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("match_id IN ?", abandoned).Delete(&models.MatchMessage{}).Error; err != nil {
				return err
			}
			return tx.Where("id IN ? AND status = ?", abandoned, models.StatusWaiting).
				Delete(&models.Match{}).Error
		})
		if err != nil {
			log.Printf("[Maintenance] expiring waiting matches: %v", err)
		} else {
			log.Printf("[Maintenance] expired %d abandoned waiting match(es)", len(abandoned))
		}
	}

	var stale []models.Match
	err := s.DB.
		Where("(status IN ? AND updated_at < ?) OR status = ?",
			[]models.MatchStatus{models.StatusPlaying, models.StatusFinished},
			now.Add(-idleTTL), models.StatusRematched).
		Limit(100).
		Find(&stale).Error
	if err != nil {
		log.Printf("[Maintenance] scanning stale matches: %v", err)
		return
	}
	for _, m := range stale {
		if err := s.archiveAndDelete(m.ID); err != nil {
			log.Printf("[Maintenance] archiving match %s: %v", m.ID, err)
		}
	}
}
