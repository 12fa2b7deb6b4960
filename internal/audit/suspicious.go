package audit

import (
	"sync"
	"time"

	"github.com/cerberus100/Telehealthcrm-sub001/internal/authz"
	"github.com/cerberus100/Telehealthcrm-sub001/internal/identity"
	"github.com/mssola/useragent"
)

// Thresholds for the suspicious-activity heuristics.
const (
	failedLoginThreshold = 5
	failedLoginWindow    = 15 * time.Minute

	readBurstThreshold = 10
	readBurstWindow    = time.Hour
)

// Finding is one heuristic hit. Findings only ever produce warning logs;
// they never affect the outcome of the request that triggered them.
type Finding struct {
	Kind   string
	Detail string
}

const (
	FindingRepeatedFailedLogins = "repeated_failed_logins"
	FindingReadBurst            = "read_burst"
	FindingMissingPurpose       = "phi_read_without_purpose"
	FindingAutomatedClient      = "automated_client"
)

// Detector keeps sliding windows of recent activity and flags patterns worth
// a human look. State is in-memory and per-process; the windows are short
// enough that losing them on restart is acceptable.
type Detector struct {
	mu           sync.Mutex
	failedLogins map[string][]time.Time
	reads        map[string][]time.Time
	now          func() time.Time
}

// NewDetector creates a detector with empty windows.
func NewDetector() *Detector {
	return &Detector{
		failedLogins: make(map[string][]time.Time),
		reads:        make(map[string][]time.Time),
		now:          time.Now,
	}
}

// Inspect runs every heuristic against the event and returns the findings.
// Threshold findings fire exactly once per window, on the event that crosses
// the threshold, so a sustained attack does not flood the log.
func (d *Detector) Inspect(e Event) []Finding {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	var findings []Finding

	if e.Action == ActionLoginFailed && e.ActorIP != "" {
		count := d.record(d.failedLogins, e.ActorIP, now, failedLoginWindow)
		if count == failedLoginThreshold {
			findings = append(findings, Finding{
				Kind:   FindingRepeatedFailedLogins,
				Detail: "failed login threshold reached for source address",
			})
		}
	}

	if e.Action == ActionRead && !identity.Role(e.ActorRole).IsSuperAdmin() && e.ActorID != "" {
		count := d.record(d.reads, e.ActorID, now, readBurstWindow)
		if count == readBurstThreshold {
			findings = append(findings, Finding{
				Kind:   FindingReadBurst,
				Detail: "read volume threshold reached for user",
			})
		}
	}

	if (e.Action == ActionRead || e.Action == ActionList) &&
		authz.Resource(e.Resource).IsPHICategory() && e.PurposeOfUse == "" {
		findings = append(findings, Finding{
			Kind:   FindingMissingPurpose,
			Detail: "protected resource accessed without purpose of use",
		})
	}

	if e.UserAgent != "" {
		if _, ok := securityActions[e.Action]; ok {
			ua := useragent.New(e.UserAgent)
			if ua.Bot() {
				findings = append(findings, Finding{
					Kind:   FindingAutomatedClient,
					Detail: "authentication activity from a bot user agent",
				})
			}
		}
	}

	return findings
}

// record appends a hit to the key's window, prunes entries older than the
// window, and returns the in-window count.
func (d *Detector) record(windows map[string][]time.Time, key string, now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	kept := windows[key][:0]
	for _, t := range windows[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	windows[key] = kept
	return len(kept)
}
