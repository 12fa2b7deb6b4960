package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func failedLogin(ip string) Event {
	return Event{Action: ActionLoginFailed, ActorIP: ip}
}

func phiRead(actor, role, purpose string) Event {
	return Event{
		Action:       ActionRead,
		Resource:     "patient",
		ActorID:      actor,
		ActorRole:    role,
		PurposeOfUse: purpose,
	}
}

func TestFailedLoginThresholdFiresOnce(t *testing.T) {
	d := NewDetector()

	var hits int
	for i := 0; i < 6; i++ {
		for _, f := range d.Inspect(failedLogin("203.0.113.7")) {
			if f.Kind == FindingRepeatedFailedLogins {
				hits++
			}
		}
	}
	assert.Equal(t, 1, hits, "threshold crossing should warn exactly once")
}

func TestFailedLoginWindowExpires(t *testing.T) {
	now := time.Now()
	d := NewDetector()
	d.now = func() time.Time { return now }

	for i := 0; i < 4; i++ {
		d.Inspect(failedLogin("203.0.113.7"))
	}

	// The earlier attempts age out, so the next one does not cross the
	// threshold.
	now = now.Add(16 * time.Minute)
	findings := d.Inspect(failedLogin("203.0.113.7"))
	assert.Empty(t, findings)
}

func TestFailedLoginsTrackedPerAddress(t *testing.T) {
	d := NewDetector()

	for i := 0; i < 4; i++ {
		d.Inspect(failedLogin("203.0.113.7"))
		d.Inspect(failedLogin("198.51.100.9"))
	}
	findings := d.Inspect(failedLogin("203.0.113.7"))

	assert.Len(t, findings, 1)
	assert.Equal(t, FindingRepeatedFailedLogins, findings[0].Kind)
}

func TestReadBurstThreshold(t *testing.T) {
	d := NewDetector()

	var hits int
	for i := 0; i < 12; i++ {
		for _, f := range d.Inspect(phiRead("user-1", "DOCTOR", "treatment")) {
			if f.Kind == FindingReadBurst {
				hits++
			}
		}
	}
	assert.Equal(t, 1, hits)
}

func TestReadBurstIgnoresSuperAdmin(t *testing.T) {
	d := NewDetector()

	for i := 0; i < 15; i++ {
		for _, f := range d.Inspect(phiRead("root", "SUPER_ADMIN", "treatment")) {
			assert.NotEqual(t, FindingReadBurst, f.Kind)
		}
	}
}

func TestMissingPurposeFlaggedEveryTime(t *testing.T) {
	d := NewDetector()

	var hits int
	for i := 0; i < 3; i++ {
		for _, f := range d.Inspect(phiRead("user-1", "DOCTOR", "")) {
			if f.Kind == FindingMissingPurpose {
				hits++
			}
		}
	}
	assert.Equal(t, 3, hits)
}

func TestPurposeNotRequiredForNonPHIResource(t *testing.T) {
	d := NewDetector()

	findings := d.Inspect(Event{Action: ActionRead, Resource: "shipment", ActorID: "user-1", ActorRole: "DOCTOR"})
	for _, f := range findings {
		assert.NotEqual(t, FindingMissingPurpose, f.Kind)
	}
}

func TestBotUserAgentOnAuthActivity(t *testing.T) {
	d := NewDetector()

	findings := d.Inspect(Event{
		Action:    ActionLoginFailed,
		ActorIP:   "203.0.113.7",
		UserAgent: "Googlebot/2.1 (+http://www.google.com/bot.html)",
	})

	var kinds []string
	for _, f := range findings {
		kinds = append(kinds, f.Kind)
	}
	assert.Contains(t, kinds, FindingAutomatedClient)
}

func TestBotUserAgentIgnoredOnReads(t *testing.T) {
	d := NewDetector()

	findings := d.Inspect(Event{
		Action:       ActionRead,
		Resource:     "patient",
		ActorID:      "user-1",
		ActorRole:    "DOCTOR",
		PurposeOfUse: "treatment",
		UserAgent:    "Googlebot/2.1 (+http://www.google.com/bot.html)",
	})
	for _, f := range findings {
		assert.NotEqual(t, FindingAutomatedClient, f.Kind)
	}
}
