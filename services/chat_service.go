package services

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"tictactoe-online-system/models"
)

const (
	chatBodyMaxLen  = 280
	chatHistoryPage = 100
)

// ChatService handles in-match messages. Only seated players may post;
// the messages table rides the same store as the match itself.
type ChatService struct {
	DB      *gorm.DB
	Matches *MatchService
}

func NewChatService(db *gorm.DB, matches *MatchService) *ChatService {
	return &ChatService{DB: db, Matches: matches}
}

func (s *ChatService) postMessage(matchID, senderID, senderName, body string) (*models.MatchMessage, error) {
	m, err := s.Matches.getMatch(matchID)
	if err != nil {
		return nil, err
	}
	seat, ok := m.SeatOf(senderID)
	if !ok {
		return nil, models.ErrNotSeated
	}
	msg := models.MatchMessage{
		MatchID:    matchID,
		SenderID:   senderID,
		SenderName: senderName,
		Seat:       seat,
		Body:       body,
	}
	if err := s.DB.Create(&msg).Error; err != nil {
		return nil, storageErr("post message", err)
	}
	return &msg, nil
}

func (s *ChatService) listMessages(matchID string) ([]models.MatchMessage, error) {
	if _, err := s.Matches.getMatch(matchID); err != nil {
		return nil, err
	}
	var msgs []models.MatchMessage
	err := s.DB.Where("match_id = ?", matchID).
		Order("created_at ASC").
		Limit(chatHistoryPage).
		Find(&msgs).Error
	if err != nil {
		return nil, storageErr("list messages", err)
	}
	return msgs, nil
}

func (s *ChatService) PostMessage(c *fiber.Ctx) error {
	playerID, playerName := playerIdentity(c)
	var req struct {
		Body string `json:"body"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return c.Status(400).JSON(fiber.Map{"error": "message body is required"})
	}
	if len(body) > chatBodyMaxLen {
		return c.Status(400).JSON(fiber.Map{"error": "message too long"})
	}
	msg, err := s.postMessage(c.Params("id"), playerID, playerName, body)
	if err != nil {
		return matchErrorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (s *ChatService) ListMessages(c *fiber.Ctx) error {
	msgs, err := s.listMessages(c.Params("id"))
	if err != nil {
		return matchErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"messages": msgs, "count": len(msgs)})
}
