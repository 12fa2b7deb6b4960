// Package org provides persistence for organization records.
package org

import (
	"context"
	"strings"
	"sync"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/models"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/platform/sentinel"
)

// InMemory is a map-backed store used in demo mode and tests.
type InMemory struct {
	mu     sync.RWMutex
	byID   map[string]*models.Organization
	byName map[string]string // lowercased name -> id
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:   make(map[string]*models.Organization),
		byName: make(map[string]string),
	}
}

// CreateIfNameAvailable inserts the organization unless another one
// already claims the name, compared case-insensitively.
func (s *InMemory) CreateIfNameAvailable(_ context.Context, o *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(o.Name)
	if _, taken := s.byName[key]; taken {
		return sentinel.ErrConflict
	}
	if _, exists := s.byID[o.ID]; exists {
		return sentinel.ErrConflict
	}

	cp := *o
	s.byID[o.ID] = &cp
	s.byName[key] = o.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *InMemory) FindByName(_ context.Context, name string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[strings.ToLower(name)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *InMemory) Update(_ context.Context, o *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[o.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !strings.EqualFold(existing.Name, o.Name) {
		delete(s.byName, strings.ToLower(existing.Name))
		s.byName[strings.ToLower(o.Name)] = o.ID
	}
	cp := *o
	s.byID[o.ID] = &cp
	return nil
}

func (s *InMemory) List(_ context.Context) ([]*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Organization, 0, len(s.byID))
	for _, o := range s.byID {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}
