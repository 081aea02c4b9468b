package services

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"tictactoe-online-system/models"
)

const leaderboardSize = 50

// RankingService exposes the leaderboard and the caller's own record.
// Rating mutation happens in the match/tournament transactions; this
// service only reads, plus the lazy create-on-first-sight of a row.
type RankingService struct {
	DB *gorm.DB

	nameCaser cases.Caser
}

func NewRankingService(db *gorm.DB) *RankingService {
	return &RankingService{
		DB:        db,
		nameCaser: cases.Title(language.English, cases.NoLower),
	}
}

// normalizeName tidies display names for the leaderboard without
// clobbering intentional casing.
func (s *RankingService) normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == strings.ToLower(name) {
		return s.nameCaser.String(name)
	}
	return name
}

func (s *RankingService) fetchOrCreate(playerID, playerName string) (*models.PlayerRanking, error) {
	playerName = s.normalizeName(playerName)
	var r models.PlayerRanking
	err := s.DB.First(&r, "player_id = ?", playerID).Error
	if err == nil {
		// Keep the stored name current with what the player goes by now.
		if playerName != "" && r.PlayerName != playerName {
			if err := s.DB.Model(&r).Update("player_name", playerName).Error; err != nil {
				return nil, storageErr("update player name", err)
			}
			r.PlayerName = playerName
		}
		return &r, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storageErr("fetch ranking", err)
	}
	if err := ensureRanking(s.DB, playerID, playerName); err != nil {
		return nil, storageErr("create ranking", err)
	}
	if err := s.DB.First(&r, "player_id = ?", playerID).Error; err != nil {
		return nil, storageErr("fetch ranking", err)
	}
	return &r, nil
}

func (s *RankingService) GetLeaderboard(c *fiber.Ctx) error {
	var rows []models.PlayerRanking
	err := s.DB.Order("rating DESC").Limit(leaderboardSize).Find(&rows).Error
	if err != nil {
		return matchErrorResponse(c, storageErr("leaderboard", err))
	}
	return c.JSON(fiber.Map{"rankings": rows, "count": len(rows)})
}

func (s *RankingService) GetMyRanking(c *fiber.Ctx) error {
	playerID, playerName := playerIdentity(c)
	if playerName == "" {
		return c.Status(400).JSON(fiber.Map{"error": "player name is required"})
	}
	r, err := s.fetchOrCreate(playerID, playerName)
	if err != nil {
		return matchErrorResponse(c, err)
	}

	var rank int64
	if err := s.DB.Model(&models.PlayerRanking{}).
		Where("rating > ?", r.Rating).
		Count(&rank).Error; err != nil {
		return matchErrorResponse(c, storageErr("rank position", err))
	}
	return c.JSON(fiber.Map{"ranking": r, "rank": rank + 1})
}
