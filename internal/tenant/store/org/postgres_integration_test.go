//go:build integration

package org_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/models"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/store/org"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/platform/sentinel"
	"github.com/cerberus100/Telehealthcrm-sub001/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *org.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = org.NewPostgres(s.postgres.Pool)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "organizations"))
}

func newTestOrg(name string) *models.Organization {
	now := time.Now()
	return &models.Organization{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      models.OrgTypeProvider,
		Status:    models.OrgStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TestConcurrentUniqueNameViolation verifies that concurrent creation attempts
// with the same name result in exactly one success.
func (s *PostgresStoreSuite) TestConcurrentUniqueNameViolation() {
	ctx := context.Background()
	orgName := "Concurrent Test Org " + uuid.NewString()
	const goroutines = 50

	var wg sync.WaitGroup
	var successCount atomic.Int32
	var conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := s.store.CreateIfNameAvailable(ctx, newTestOrg(orgName))
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}

	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should get conflict error")

	found, err := s.store.FindByName(ctx, orgName)
	s.Require().NoError(err)
	s.Equal(orgName, found.Name)
}

// TestCaseInsensitiveUniqueness verifies that names are unique regardless of case.
func (s *PostgresStoreSuite) TestCaseInsensitiveUniqueness() {
	ctx := context.Background()
	baseName := "CaseTest" + uuid.NewString()

	first := newTestOrg(baseName)
	s.Require().NoError(s.store.CreateIfNameAvailable(ctx, first))

	variants := []string{
		strings.ToUpper(baseName),
		strings.ToLower(baseName),
	}

	for _, name := range variants {
		err := s.store.CreateIfNameAvailable(ctx, newTestOrg(name))
		s.ErrorIs(err, sentinel.ErrConflict, "name %q should conflict with %q", name, baseName)
	}

	for _, name := range variants {
		found, err := s.store.FindByName(ctx, name)
		s.Require().NoError(err)
		s.Equal(first.ID, found.ID, "FindByName(%q) should find the same org", name)
	}
}

// TestStatusRoundTrip verifies deactivation survives persistence.
func (s *PostgresStoreSuite) TestStatusRoundTrip() {
	ctx := context.Background()

	o := newTestOrg("Status Test " + uuid.NewString())
	o.HIPAACompliant = true
	o.BAASigned = true
	s.Require().NoError(s.store.CreateIfNameAvailable(ctx, o))

	s.Require().NoError(o.Deactivate(time.Now()))
	s.Require().NoError(s.store.Update(ctx, o))

	found, err := s.store.FindByID(ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(models.OrgStatusInactive, found.Status)
	s.True(found.HIPAACompliant)
	s.True(found.BAASigned)
	s.False(found.IsActive())
}

// TestNotFoundError verifies proper error handling for non-existent organizations.
func (s *PostgresStoreSuite) TestNotFoundError() {
	ctx := context.Background()

	_, err := s.store.FindByID(ctx, uuid.NewString())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByName(ctx, "Non Existent Org "+uuid.NewString())
	s.ErrorIs(err, sentinel.ErrNotFound)

	err = s.store.Update(ctx, newTestOrg("Ghost Org"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentReadUpdate verifies reads and updates do not interfere.
func (s *PostgresStoreSuite) TestConcurrentReadUpdate() {
	ctx := context.Background()

	o := newTestOrg("Race Test " + uuid.NewString())
	s.Require().NoError(s.store.CreateIfNameAvailable(ctx, o))

	const goroutines = 50
	var wg sync.WaitGroup
	var readErrors, updateErrors atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			if idx%5 == 0 {
				cp := *o
				cp.UpdatedAt = time.Now()
				if err := s.store.Update(ctx, &cp); err != nil {
					updateErrors.Add(1)
				}
			} else {
				if _, err := s.store.FindByID(ctx, o.ID); err != nil {
					readErrors.Add(1)
				}
			}
		}(i)
	}

	wg.Wait()

	s.Equal(int32(0), readErrors.Load(), "no read errors expected")
	s.Equal(int32(0), updateErrors.Load(), "no update errors expected")
}
