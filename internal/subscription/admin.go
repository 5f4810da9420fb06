package subscription

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/BatmanBruc/vip-access-bot/types"
)

var (
	chatIDPattern   = regexp.MustCompile(`^-?[0-9]+$`)
	usernamePattern = regexp.MustCompile(`^@[A-Za-z0-9_]{4,}$`)
)

// NormalizeChannelTarget accepts a numeric chat id, an @username or an invite
// link. Bare t.me links get an https scheme.
func NormalizeChannelTarget(raw string) (string, error) {
	t := strings.TrimSpace(raw)
	switch {
	case t == "":
		return "", types.ErrInvalidChannel
	case chatIDPattern.MatchString(t):
		return t, nil
	case usernamePattern.MatchString(t):
		return t, nil
	case strings.HasPrefix(t, "https://"), strings.HasPrefix(t, "http://"):
		return t, nil
	case strings.HasPrefix(t, "t.me/"), strings.HasPrefix(t, "telegram.me/"):
		return "https://" + t, nil
	}
	return "", types.ErrInvalidChannel
}

func (s *Service) AddChannel(ctx context.Context, adminID int64, topic, target, description string) (*types.Channel, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, types.ErrInvalidChannel
	}
	target, err := NormalizeChannelTarget(target)
	if err != nil {
		return nil, err
	}
	c := &types.Channel{
		Topic:       topic,
		Target:      target,
		Description: strings.TrimSpace(description),
		AddedBy:     adminID,
		CreatedAt:   s.now(),
	}
	if err := s.store.AddChannel(ctx, c); err != nil {
		return nil, fmt.Errorf("add channel %s: %w", target, err)
	}
	s.log.Info("channel added", zap.Int64("channel_id", c.ID), zap.String("topic", topic), zap.String("target", target))
	return c, nil
}

// ListChannels returns channels for topic, or every channel when topic is empty.
func (s *Service) ListChannels(ctx context.Context, topic string) ([]types.Channel, error) {
	list, err := s.store.ListChannels(ctx, strings.TrimSpace(topic))
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return list, nil
}

// AccessChannels lists the channels subscribers are invited to. Lookup errors
// are logged and produce an empty list.
func (s *Service) AccessChannels(ctx context.Context) []types.Channel {
	list, err := s.store.ListChannels(ctx, s.topic)
	if err != nil {
		s.log.Warn("list access channels", zap.String("topic", s.topic), zap.Error(err))
		return nil
	}
	return list
}

func (s *Service) Stats(ctx context.Context) (types.Stats, error) {
	st, err := s.store.Stats(ctx, s.now())
	if err != nil {
		return types.Stats{}, fmt.Errorf("collect stats: %w", err)
	}
	return st, nil
}

// BroadcastTargets returns every known user id.
func (s *Service) BroadcastTargets(ctx context.Context) ([]int64, error) {
	ids, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return ids, nil
}
