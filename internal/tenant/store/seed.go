package store

import (
	"context"
	"time"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/models"
	orgstore "github.com/cerberus100/Telehealthcrm-sub001/internal/tenant/store/org"
)

// SeedDemoOrganizations creates the fixture organizations used in demo
// mode. IDs are stable so mock tokens can reference them.
func SeedDemoOrganizations(s *orgstore.InMemory) []*models.Organization {
	now := time.Now()
	orgs := []*models.Organization{
		{
			ID:             "org-provider-demo",
			Name:           "Demo Provider Group",
			Type:           models.OrgTypeProvider,
			Status:         models.OrgStatusActive,
			HIPAACompliant: true,
			BAASigned:      true,
		},
		{
			ID:             "org-lab-demo",
			Name:           "Demo Reference Lab",
			Type:           models.OrgTypeLab,
			Status:         models.OrgStatusActive,
			HIPAACompliant: true,
			BAASigned:      true,
		},
		{
			ID:             "org-pharmacy-demo",
			Name:           "Demo Pharmacy Network",
			Type:           models.OrgTypePharmacy,
			Status:         models.OrgStatusActive,
			HIPAACompliant: true,
			BAASigned:      true,
		},
		{
			ID:     "org-marketer-demo",
			Name:   "Demo Marketing Agency",
			Type:   models.OrgTypeMarketer,
			Status: models.OrgStatusActive,
		},
		{
			ID:     "org-suspended-demo",
			Name:   "Suspended Clinic",
			Type:   models.OrgTypeProvider,
			Status: models.OrgStatusInactive,
		},
	}
	for _, o := range orgs {
		o.CreatedAt = now
		o.UpdatedAt = now
		_ = s.CreateIfNameAvailable(context.Background(), o)
	}
	return orgs
}
