package service

import (
	"context"

	"portfoliocms/pkg/logger"
	"portfoliocms/pkg/sanitize"
	"portfoliocms/store"
)

// Broadcaster publishes content changes to live subscribers.
type Broadcaster interface {
	BroadcastSection(section string, data any)
	BroadcastSnapshot(doc store.Document)
}

// ContentService sanitizes input, delegates to the store and announces every
// successful change.
type ContentService struct {
	Store store.Store
	Hub   Broadcaster
}

func NewContentService(st store.Store, hub Broadcaster) *ContentService {
	return &ContentService{Store: st, Hub: hub}
}

func (s *ContentService) ReadContent(ctx context.Context) (store.Document, error) {
	return s.Store.ReadContent(ctx)
}

// ReadSection returns one section and whether it exists.
func (s *ContentService) ReadSection(ctx context.Context, section string) (any, bool, error) {
	doc, err := s.Store.ReadContent(ctx)
	if err != nil {
		return nil, false, err
	}
	v, ok := doc[section]
	return v, ok, nil
}

func (s *ContentService) UpdateSection(ctx context.Context, section string, value any) (any, error) {
	doc, err := s.Store.UpdateSection(ctx, section, sanitize.Value(value))
	if err != nil {
		return nil, err
	}
	s.announce(section, doc)
	return doc[section], nil
}

func (s *ContentService) AddItem(ctx context.Context, section string, item map[string]any) (store.Item, error) {
	doc, added, err := s.Store.AddItem(ctx, section, sanitize.Value(item))
	if err != nil {
		return nil, err
	}
	s.announce(section, doc)
	return added, nil
}

func (s *ContentService) UpdateItem(ctx context.Context, section, itemID string, patch map[string]any) (any, error) {
	doc, err := s.Store.UpdateItem(ctx, section, itemID, sanitize.Value(patch))
	if err != nil {
		return nil, err
	}
	s.announce(section, doc)
	return doc[section], nil
}

func (s *ContentService) DeleteItem(ctx context.Context, section, itemID string) (any, error) {
	doc, err := s.Store.DeleteItem(ctx, section, itemID)
	if err != nil {
		return nil, err
	}
	s.announce(section, doc)
	return doc[section], nil
}

// RestoreBackup rolls the document back when the store supports it.
func (s *ContentService) RestoreBackup(ctx context.Context) (store.Document, error) {
	r, ok := s.Store.(interface {
		RestoreBackup(ctx context.Context) (store.Document, error)
	})
	if !ok {
		return nil, store.ErrUnsupported
	}
	doc, err := r.RestoreBackup(ctx)
	if err != nil {
		return nil, err
	}
	logger.Sugar.Info("Content restored from backup")
	if s.Hub != nil {
		s.Hub.BroadcastSnapshot(doc)
	}
	return doc, nil
}

func (s *ContentService) announce(section string, doc store.Document) {
	logger.Sugar.Infof("Section %q updated", section)
	if s.Hub != nil {
		s.Hub.BroadcastSection(section, doc[section])
	}
}
