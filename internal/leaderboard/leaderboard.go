// Package leaderboard keeps the best score per nickname and serves the top
// list merged with the built-in leaders.
package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/plinkoplus/backend/internal/models"
	"go.uber.org/zap"
)

// DefaultSize is the number of leaders shown.
const DefaultSize = 10

// DefaultLeaders are always listed alongside saved entries.
var DefaultLeaders = []models.Leader{
	{Nickname: "Player1", Score: 500},
	{Nickname: "Player2", Score: 450},
	{Nickname: "Player3", Score: 400},
	{Nickname: "Player4", Score: 390},
	{Nickname: "Player5", Score: 370},
	{Nickname: "Player6", Score: 350},
	{Nickname: "Player7", Score: 340},
	{Nickname: "Player8", Score: 330},
	{Nickname: "Player9", Score: 320},
	{Nickname: "Player10", Score: 310},
	{Nickname: "Player11", Score: 300},
	{Nickname: "Player12", Score: 290},
	{Nickname: "Player13", Score: 280},
	{Nickname: "Player14", Score: 270},
	{Nickname: "Player15", Score: 260},
	{Nickname: "Player16", Score: 250},
	{Nickname: "Player17", Score: 240},
	{Nickname: "Player18", Score: 230},
	{Nickname: "Player19", Score: 220},
	{Nickname: "Player20", Score: 210},
}

// Repository stores saved leaderboard entries.
type Repository interface {
	Upsert(ctx context.Context, nickname string, score int) error
	List(ctx context.Context) ([]models.Leader, error)
	Reset(ctx context.Context) error
}

// Service writes to the primary repository and reads from the cache when
// it has entries. Writes invalidate the cache; the next read refills it
// from the primary, so a partially filled cache is never served.
type Service struct {
	primary Repository
	cache   Repository
	size    int
}

// NewService builds a leaderboard service. cache may be nil.
func NewService(primary, cache Repository, size int) *Service {
	if size <= 0 {
		size = DefaultSize
	}
	return &Service{primary: primary, cache: cache, size: size}
}

// Upsert overwrites the nickname's score, inserting it when new.
func (s *Service) Upsert(ctx context.Context, nickname string, score int) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return fmt.Errorf("empty nickname")
	}
	if err := s.primary.Upsert(ctx, nickname, score); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Top returns the n best entries, saved and default, best first. n <= 0
// uses the configured size.
func (s *Service) Top(ctx context.Context, n int) ([]models.Leader, error) {
	if n <= 0 {
		n = s.size
	}
	saved, err := s.saved(ctx)
	if err != nil {
		return nil, err
	}
	return Merge(saved, n), nil
}

// Reset removes every saved entry. Default leaders remain.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.primary.Reset(ctx); err != nil {
		return err
	}
	s.invalidate(ctx)
	zap.S().Info("[LEADERBOARD] saved leaders cleared")
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Reset(ctx); err != nil {
		zap.S().Warnf("[LEADERBOARD] cache invalidate: %v", err)
	}
}

func (s *Service) saved(ctx context.Context) ([]models.Leader, error) {
	if s.cache != nil {
		leaders, err := s.cache.List(ctx)
		if err == nil && len(leaders) > 0 {
			sortSaved(leaders)
			return leaders, nil
		}
		if err != nil {
			zap.S().Warnf("[LEADERBOARD] cache read: %v", err)
		}
	}

	leaders, err := s.primary.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list leaders: %w", err)
	}
	sortSaved(leaders)
	if s.cache != nil {
		for _, l := range leaders {
			if err := s.cache.Upsert(ctx, l.Nickname, l.Score); err != nil {
				zap.S().Warnf("[LEADERBOARD] cache warm: %v", err)
				s.invalidate(ctx)
				break
			}
		}
	}
	return leaders, nil
}

// sortSaved orders saved entries by score, best first, then by nickname,
// the order both repositories agree on.
func sortSaved(leaders []models.Leader) {
	sort.SliceStable(leaders, func(i, j int) bool {
		if leaders[i].Score != leaders[j].Score {
			return leaders[i].Score > leaders[j].Score
		}
		return leaders[i].Nickname < leaders[j].Nickname
	})
}

// Merge appends the default leaders to saved, sorts by score descending
// keeping insertion order for ties and returns at most n entries.
func Merge(saved []models.Leader, n int) []models.Leader {
	all := make([]models.Leader, 0, len(saved)+len(DefaultLeaders))
	all = append(all, saved...)
	all = append(all, DefaultLeaders...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}
