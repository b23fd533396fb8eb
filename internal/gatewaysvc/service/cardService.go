package service

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/avvvet/timeline-services/internal/comm"
	"github.com/avvvet/timeline-services/internal/gatewaysvc/models"
	"github.com/avvvet/timeline-services/internal/gatewaysvc/store"
)

type CardService struct {
	table store.Table
	opts  Options
}

func NewCardService(table store.Table, opts Options) *CardService {
	return &CardService{table: table, opts: opts.withDefaults()}
}

// GetCards returns every card in the uuid partition.
func (s *CardService) GetCards(ctx context.Context, uuid int64) ([]models.Record, error) {
	items, err := store.QueryAll(ctx, s.table, store.Equal("uuid", uuid), 0, s.opts.Limits)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards by uuid: %w", err)
	}
	return decodeRecords(items)
}

func (s *CardService) ListCards(ctx context.Context) ([]models.Record, error) {
	items, err := store.ScanAll(ctx, s.table, nil, 0, s.opts.Limits)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return decodeRecords(items)
}

// GetCardsBetween returns cards whose ts lies in [start, end]. ts is the sort
// key, so across partitions this is a filtered scan.
func (s *CardService) GetCardsBetween(ctx context.Context, start, end string) ([]models.Record, error) {
	filter := store.Between("ts", start, end)
	items, err := store.ScanAll(ctx, s.table, &filter, 0, s.opts.Limits)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards between %s and %s: %w", start, end, err)
	}
	return decodeRecords(items)
}

func (s *CardService) CreateCard(ctx context.Context, card models.Card) (*models.Card, error) {
	if card.TS == "" {
		return nil, fmt.Errorf("%w: ts is required", ErrInvalidRecord)
	}

	item, err := attributevalue.MarshalMap(card)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal card: %w", err)
	}
	if err := s.opts.Guard.Check(item); err != nil {
		return nil, fmt.Errorf("card %d/%s rejected: %w", card.UUID, card.TS, err)
	}

	if err := s.table.Put(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create card: %w", err)
	}

	s.notify(comm.ActionCreated, card.Key())
	return &card, nil
}

// UpdateCard sets title, subtitle, icon and content on an existing card.
// The other attributes are left as stored.
func (s *CardService) UpdateCard(ctx context.Context, card models.Card) (models.Record, error) {
	if card.TS == "" {
		return nil, fmt.Errorf("%w: ts is required", ErrInvalidRecord)
	}

	item, err := attributevalue.MarshalMap(card)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal card: %w", err)
	}
	if err := s.opts.Guard.Check(item); err != nil {
		return nil, fmt.Errorf("card %d/%s rejected: %w", card.UUID, card.TS, err)
	}

	key, err := attributevalue.MarshalMap(card.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal card key: %w", err)
	}

	updated, err := s.table.Update(ctx, key, map[string]any{
		"title":    card.Title,
		"subtitle": card.Subtitle,
		"icon":     card.Icon,
		"content":  card.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update card: %w", err)
	}

	out, err := decodeRecord(updated)
	if err != nil {
		return nil, fmt.Errorf("failed to decode card: %w", err)
	}

	s.notify(comm.ActionUpdated, card.Key())
	return out, nil
}

// DeleteCard removes the card and returns it, or nil if it did not exist.
func (s *CardService) DeleteCard(ctx context.Context, key models.CardKey) (models.Record, error) {
	if key.TS == "" {
		return nil, fmt.Errorf("%w: ts is required", ErrInvalidRecord)
	}

	av, err := attributevalue.MarshalMap(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal card key: %w", err)
	}

	old, err := s.table.Delete(ctx, av)
	if err != nil {
		return nil, fmt.Errorf("failed to delete card: %w", err)
	}
	if old == nil {
		return nil, nil
	}

	card, err := decodeRecord(old)
	if err != nil {
		return nil, fmt.Errorf("failed to decode card: %w", err)
	}

	s.notify(comm.ActionDeleted, key)
	return card, nil
}

func (s *CardService) notify(action string, key models.CardKey) {
	s.opts.Notifier.Notify(comm.NewRecordEvent(comm.EntityCard, action, s.table.Name(), map[string]any{
		"uuid": key.UUID,
		"ts":   key.TS,
	}))
}
