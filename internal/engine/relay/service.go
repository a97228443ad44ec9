// Package relay sends messages to named robots and records every delivery.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dingbot/internal/engine/robot"
	"dingbot/internal/platform/models"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const maxBroadcastConcurrency = 8

var ErrUnknownRobot = errors.New("unknown robot")

// DeliveryStore persists delivery records.
type DeliveryStore interface {
	Create(d *models.Delivery) error
}

type Service struct {
	robots map[string]*robot.Dispatcher
	store  DeliveryStore
	logger zerolog.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(robots map[string]*robot.Dispatcher, store DeliveryStore, opts ...Option) *Service {
	s := &Service{
		robots: robots,
		store:  store,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasRobot reports whether name is a configured robot.
func (s *Service) HasRobot(name string) bool {
	_, ok := s.robots[name]
	return ok
}

// Send dispatches msg to the named robot and records the outcome.
//
// Unknown robots and invalid messages fail before anything is sent and
// produce no delivery. Otherwise a delivery is always returned; when the
// exchange itself failed it has status failed and the dispatch error is
// returned alongside it.
func (s *Service) Send(ctx context.Context, name string, msg robot.Message) (*models.Delivery, error) {
	dispatcher, ok := s.robots[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRobot, name)
	}
	msg, err := validate(msg)
	if err != nil {
		return nil, err
	}

	start := s.now()
	resp, err := dispatcher.Send(ctx, msg)

	delivery := &models.Delivery{
		Robot:      name,
		MsgType:    string(msg.MsgType()),
		DurationMS: s.now().Sub(start).Milliseconds(),
		CreatedAt:  start.Unix(),
	}
	if err != nil {
		delivery.Status = models.DeliveryStatusFailed
		delivery.Error = err.Error()
	} else {
		delivery.Response = resp
		if code, ok := resp.ErrCode(); ok {
			delivery.ErrCode = &code
		}
		delivery.ErrMsg = resp.ErrMsg()
		delivery.Status = models.DeliveryStatusRejected
		if resp.OK() {
			delivery.Status = models.DeliveryStatusSent
		}
	}

	if storeErr := s.store.Create(delivery); storeErr != nil {
		s.logger.Error().Err(storeErr).
			Str("robot", name).
			Str("status", string(delivery.Status)).
			Msg("failed to record delivery")
	}

	evt := s.logger.Info()
	if delivery.Status != models.DeliveryStatusSent {
		evt = s.logger.Warn()
	}
	evt.Str("robot", name).
		Str("delivery_id", delivery.ID).
		Str("msgtype", delivery.MsgType).
		Str("status", string(delivery.Status)).
		Int64("duration_ms", delivery.DurationMS).
		Msg("robot delivery")

	return delivery, err
}

// Broadcast sends msg to every named robot concurrently. A failure on one
// robot does not stop the others; per-robot outcomes are in the returned
// deliveries, which follow the order of names.
func (s *Service) Broadcast(ctx context.Context, names []string, msg robot.Message) ([]*models.Delivery, error) {
	for _, name := range names {
		if !s.HasRobot(name) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRobot, name)
		}
	}
	msg, err := validate(msg)
	if err != nil {
		return nil, err
	}

	deliveries := make([]*models.Delivery, len(names))

	var g errgroup.Group
	g.SetLimit(maxBroadcastConcurrency)
	for i, name := range names {
		g.Go(func() error {
			d, err := s.Send(ctx, name, msg)
			if err != nil {
				s.logger.Warn().Err(err).Str("robot", name).Msg("broadcast delivery failed")
			}
			deliveries[i] = d
			return nil
		})
	}
	_ = g.Wait()

	return deliveries, nil
}

func validate(msg robot.Message) (robot.Message, error) {
	msg, err := robot.Normalize(msg)
	if err != nil {
		return nil, err
	}
	return msg, msg.Validate()
}
