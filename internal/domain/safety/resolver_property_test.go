package safety

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestResolve_Properties checks invariants of the status resolver over
// randomly generated record sets.
func TestResolve_Properties(t *testing.T) {
	t.Parallel()

	var (
		now         = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
		resetWindow = time.Hour
		properties  = gopter.NewProperties(nil)
	)

	genRecords := gopter.CombineGens(
		gen.IntRange(0, 5), // active alerts
		gen.IntRange(0, 5), // resolved alerts
		gen.IntRange(0, 5), // pending checks
		gen.IntRange(0, 5), // completed checks
		gen.Bool(),         // last completed check all safe
		gen.Bool(),         // last completion within reset window
	)

	buildRecords := func(params []interface{}) ([]*SOSAlert, []*SafetyCheck) {
		var (
			numActive    = params[0].(int)
			numResolved  = params[1].(int)
			numPending   = params[2].(int)
			numCompleted = params[3].(int)
			lastAllSafe  = params[4].(bool)
			lastRecent   = params[5].(bool)
		)

		alerts := make([]*SOSAlert, 0, numActive+numResolved)
		for i := 0; i < numActive; i++ {
			alerts = append(alerts, &SOSAlert{ID: "a", Timestamp: now, IsActive: true})
		}

		for i := 0; i < numResolved; i++ {
			alerts = append(alerts, &SOSAlert{ID: "r", Timestamp: now, IsActive: false})
		}

		checks := make([]*SafetyCheck, 0, numPending+numCompleted)
		for i := 0; i < numPending; i++ {
			checks = append(checks, &SafetyCheck{ID: "p", CreatedAt: now, Status: CheckStatusPending})
		}

		for i := 0; i < numCompleted; i++ {
			// The last completed check carries the newest completion time so
			// it decides step 3.
			completedAt := now.Add(-time.Duration(numCompleted-i) * 2 * time.Hour)
			if i == numCompleted-1 && lastRecent {
				completedAt = now.Add(-time.Minute)
			}

			status := CheckStatusEmergency
			if i == numCompleted-1 && lastAllSafe {
				status = CheckStatusAllSafe
			}

			checks = append(checks, &SafetyCheck{
				ID:          "c",
				CreatedAt:   completedAt,
				Status:      status,
				CompletedAt: &completedAt,
			})
		}

		return alerts, checks
	}

	properties.Property("result is always one of the four statuses", prop.ForAll(
		func(params []interface{}) bool {
			alerts, checks := buildRecords(params)

			return Resolve(now, alerts, checks, resetWindow).IsValid()
		},
		genRecords,
	))

	properties.Property("emergency iff an active alert exists when nothing is pending", prop.ForAll(
		func(params []interface{}) bool {
			alerts, checks := buildRecords(params)
			got := Resolve(now, alerts, checks, resetWindow)

			if len(ActiveAlerts(alerts)) > 0 {
				return got == GroupStatusEmergency
			}

			return got != GroupStatusEmergency
		},
		genRecords,
	))

	properties.Property("resolver is idempotent over unchanged state", prop.ForAll(
		func(params []interface{}) bool {
			alerts, checks := buildRecords(params)

			return Resolve(now, alerts, checks, resetWindow) == Resolve(now, alerts, checks, resetWindow)
		},
		genRecords,
	))

	properties.TestingRun(t)
}
