package service

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/avvvet/timeline-services/internal/comm"
	"github.com/avvvet/timeline-services/internal/gatewaysvc/models"
	"github.com/avvvet/timeline-services/internal/gatewaysvc/store"
)

type MediaService struct {
	table store.Table
	opts  Options
}

func NewMediaService(table store.Table, opts Options) *MediaService {
	return &MediaService{table: table, opts: opts.withDefaults()}
}

// ScanMedia returns media whose filterKey attribute sorts before filterValue.
// With an empty key or value the whole table is scanned in small pages.
func (s *MediaService) ScanMedia(ctx context.Context, filterKey, filterValue string) ([]models.Record, error) {
	var (
		items []store.Item
		err   error
	)
	if filterKey != "" && filterValue != "" {
		filter := store.LessThan(filterKey, filterValue)
		items, err = store.ScanAll(ctx, s.table, &filter, 0, s.opts.Limits)
	} else {
		items, err = store.ScanAll(ctx, s.table, nil, unfilteredPageSize, s.opts.Limits)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan media: %w", err)
	}
	return decodeRecords(items)
}

// GetMediaByDate returns the media stored under one ts partition.
func (s *MediaService) GetMediaByDate(ctx context.Context, date string) ([]models.Record, error) {
	items, err := store.QueryAll(ctx, s.table, store.Equal("ts", date), 0, s.opts.Limits)
	if err != nil {
		return nil, fmt.Errorf("failed to get media of %s: %w", date, err)
	}
	return decodeRecords(items)
}

func (s *MediaService) GetMediaOfType(ctx context.Context, mediaType string) ([]models.Record, error) {
	filter := store.Equal("type", mediaType)
	items, err := store.ScanAll(ctx, s.table, &filter, 0, s.opts.Limits)
	if err != nil {
		return nil, fmt.Errorf("failed to get media of type %s: %w", mediaType, err)
	}
	return decodeRecords(items)
}

// GetMediaBetween returns media whose ts lies in [start, end]. A range over
// the partition key cannot be a query, so this scans with a filter.
func (s *MediaService) GetMediaBetween(ctx context.Context, start, end string) ([]models.Record, error) {
	filter := store.Between("ts", start, end)
	items, err := store.ScanAll(ctx, s.table, &filter, 0, s.opts.Limits)
	if err != nil {
		return nil, fmt.Errorf("failed to get media between %s and %s: %w", start, end, err)
	}
	return decodeRecords(items)
}

func (s *MediaService) CreateMedia(ctx context.Context, media models.Media) (*models.Media, error) {
	if err := validMediaKey(media.Key()); err != nil {
		return nil, err
	}

	item, err := attributevalue.MarshalMap(media)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal media: %w", err)
	}
	if err := s.opts.Guard.Check(item); err != nil {
		return nil, fmt.Errorf("media %s/%s rejected: %w", media.TS, media.Name, err)
	}

	if err := s.table.Put(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create media: %w", err)
	}

	s.notify(comm.ActionCreated, media.Key())
	return &media, nil
}

// UpdateMedia sets path and url on an existing media record.
func (s *MediaService) UpdateMedia(ctx context.Context, media models.Media) (models.Record, error) {
	if err := validMediaKey(media.Key()); err != nil {
		return nil, err
	}

	item, err := attributevalue.MarshalMap(media)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal media: %w", err)
	}
	if err := s.opts.Guard.Check(item); err != nil {
		return nil, fmt.Errorf("media %s/%s rejected: %w", media.TS, media.Name, err)
	}

	key, err := attributevalue.MarshalMap(media.Key())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal media key: %w", err)
	}

	updated, err := s.table.Update(ctx, key, map[string]any{
		"path": media.Path,
		"url":  media.URL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update media: %w", err)
	}

	out, err := decodeRecord(updated)
	if err != nil {
		return nil, fmt.Errorf("failed to decode media: %w", err)
	}

	s.notify(comm.ActionUpdated, media.Key())
	return out, nil
}

func (s *MediaService) DeleteMedia(ctx context.Context, key models.MediaKey) (models.Record, error) {
	if err := validMediaKey(key); err != nil {
		return nil, err
	}

	av, err := attributevalue.MarshalMap(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal media key: %w", err)
	}

	old, err := s.table.Delete(ctx, av)
	if err != nil {
		return nil, fmt.Errorf("failed to delete media: %w", err)
	}
	if old == nil {
		return nil, nil
	}

	media, err := decodeRecord(old)
	if err != nil {
		return nil, fmt.Errorf("failed to decode media: %w", err)
	}

	s.notify(comm.ActionDeleted, key)
	return media, nil
}

func (s *MediaService) notify(action string, key models.MediaKey) {
	s.opts.Notifier.Notify(comm.NewRecordEvent(comm.EntityMedia, action, s.table.Name(), map[string]any{
		"ts":   key.TS,
		"name": key.Name,
	}))
}

func validMediaKey(key models.MediaKey) error {
	if key.TS == "" || key.Name == "" {
		return fmt.Errorf("%w: ts and name are required", ErrInvalidRecord)
	}
	return nil
}
