package workers

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"tictactoe-online-system/models"
	"tictactoe-online-system/services"
)

// MatchFeedPoller is the change-feed source: it watches the matches table
// and turns row churn into ordered MatchEvents on the in-process feed.
// Inserts and updates are found by an updated_at cursor; deletions by ids
// disappearing from the live set. Per match, events come out in commit
// order; nothing is guaranteed across matches and nothing needs to be.
type MatchFeedPoller struct {
	DB   *gorm.DB
	Feed *services.MatchFeed

	cursor   time.Time
	known    map[string]int // match id -> last published version
	interval time.Duration
}

func NewMatchFeedPoller(db *gorm.DB, feed *services.MatchFeed, interval time.Duration) *MatchFeedPoller {
	return &MatchFeedPoller{
		DB:       db,
		Feed:     feed,
		known:    make(map[string]int),
		interval: interval,
	}
}

// Run polls until ctx is cancelled. The first pass seeds the live set
// without publishing, so a restart does not replay the whole table.
func (p *MatchFeedPoller) Run(ctx context.Context) {
	log.Printf("[FeedPoller] starting (interval %s)", p.interval)

	if err := p.seed(); err != nil {
		log.Printf("[FeedPoller] seed failed, starting cold: %v", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[FeedPoller] stopped")
			return
		case <-ticker.C:
			if err := p.poll(); err != nil {
				log.Printf("[FeedPoller] poll error: %v", err)
			}
		}
	}
}

func (p *MatchFeedPoller) seed() error {
	var rows []models.Match
	if err := p.DB.Select("id", "version", "updated_at").Find(&rows).Error; err != nil {
		return err
	}
	for _, m := range rows {
		p.known[m.ID] = m.Version
		if m.UpdatedAt.After(p.cursor) {
			p.cursor = m.UpdatedAt
		}
	}
	return nil
}

// observe records a (match, version) sighting and decides whether it is
// news: unseen ids are inserts, higher versions are updates, and anything
// at or below the recorded version is a re-read to be swallowed.
func (p *MatchFeedPoller) observe(id string, version int) (services.MatchEventType, bool) {
	prev, seen := p.known[id]
	if seen && version <= prev {
		return services.EventUpdated, false
	}
	p.known[id] = version
	if seen {
		return services.EventUpdated, true
	}
	return services.EventInserted, true
}

func (p *MatchFeedPoller) poll() error {
	// Changed rows first, in commit order. The cursor bound is inclusive:
	// rows stamped exactly at the cursor are re-read and the version map
	// suppresses re-publishing them. A transaction that commits late with
	// an earlier timestamp can still slip past the cursor; its next write
	// (or the deletion scan) heals that.
	var changed []models.Match
	if err := p.DB.
		Where("updated_at >= ?", p.cursor).
		Order("updated_at ASC").
		Find(&changed).Error; err != nil {
		return err
	}
	for i := range changed {
		m := changed[i]
		if m.UpdatedAt.After(p.cursor) {
			p.cursor = m.UpdatedAt
		}
		evType, publish := p.observe(m.ID, m.Version)
		if !publish {
			continue
		}
		p.Feed.Publish(services.MatchEvent{Type: evType, MatchID: m.ID, Match: &m})
	}

	// Then deletions: any known id missing from the live set.
	var liveIDs []string
	if err := p.DB.Model(&models.Match{}).Pluck("id", &liveIDs).Error; err != nil {
		return err
	}
	live := make(map[string]struct{}, len(liveIDs))
	for _, id := range liveIDs {
		live[id] = struct{}{}
	}
	for id := range p.known {
		if _, ok := live[id]; !ok {
			delete(p.known, id)
			p.Feed.Publish(services.MatchEvent{Type: services.EventDeleted, MatchID: id})
		}
	}
	return nil
}
