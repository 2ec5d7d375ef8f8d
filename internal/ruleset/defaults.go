package ruleset

import (
	"time"

	"propdesk/internal/domain"
	"propdesk/internal/filter"
	"propdesk/internal/recommend"
	"propdesk/internal/scoring"
	"propdesk/internal/segment"
)

// Segment labels per kind.
const (
	BuildingCritical       domain.Segment = "critical"
	BuildingNeedsAttention domain.Segment = "needs_attention"
	BuildingUnknown        domain.Segment = "unknown"
	BuildingHealthy        domain.Segment = "healthy"

	ClientHighValue domain.Segment = "high_value"
	ClientInactive  domain.Segment = "inactive"
	ClientNew       domain.Segment = "new"
	ClientRegular   domain.Segment = "regular"

	InspectionFailed        domain.Segment = "failed"
	InspectionOverdue       domain.Segment = "overdue"
	InspectionPendingReport domain.Segment = "pending_report"
	InspectionCompliant     domain.Segment = "compliant"

	TenantDebtor       domain.Segment = "debtor"
	TenantExpiring     domain.Segment = "expiring"
	TenantGoodStanding domain.Segment = "good_standing"
)

// Thresholds shared by scoring, segmentation and recommendations.
const (
	HighValueBuildings     = 5
	InspectionValidMonths  = 12
	OldBuildingYears       = 50
	CriticalScore          = 40
	AttentionScore         = 70
	PortfolioReviewAverage = 60
	LeaseExpiryDays        = 60
	LongArrearsMonths      = 3
)

func Defaults() []KindRules {
	return []KindRules{Building(), Client(), Inspection(), Tenant()}
}

// DefaultCatalog returns the built-in rules for every kind.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(Defaults()...)
	if err != nil {
		panic(err)
	}
	return c
}

func inspectionOverdue() scoring.Predicate {
	return func(e domain.Entity, now time.Time) bool {
		return !e.Has("lastInspection") || scoring.MonthsSinceOver("lastInspection", InspectionValidMonths)(e, now)
	}
}

func Building() KindRules {
	return KindRules{
		Kind: domain.KindBuilding,
		Profile: filter.Profile{
			Kind:         domain.KindBuilding,
			SearchFields: []string{"name", "address", "city", "owner"},
			Aliases:      map[string]string{"heating": "heatingType", "status": "ceebStatus"},
			Sorts: map[string]domain.SortRule{
				"recent_inspection": {Field: "lastInspection", Direction: domain.Descending},
				"oldest":            {Field: "yearBuilt", Direction: domain.Ascending},
				"name":              {Field: "name", Direction: domain.Ascending},
			},
		},
		Scoring: scoring.RuleSet{
			Kind: domain.KindBuilding,
			Base: 100,
			Rules: []scoring.Rule{
				{Name: "older than 50 years", Delta: -20, When: scoring.AgeOver("yearBuilt", OldBuildingYears)},
				{Name: "coal heating", Delta: -15, When: scoring.FieldEquals("heatingType", "coal")},
				{Name: "never inspected", Delta: -30, When: scoring.Missing("lastInspection")},
				{Name: "inspection older than 12 months", Delta: -10, When: scoring.MonthsSinceOver("lastInspection", InspectionValidMonths)},
				{Name: "not registered in CEEB", Delta: -10, When: scoring.Present("ceebStatus", scoring.Not(scoring.FieldEquals("ceebStatus", "registered")))},
			},
		},
		Segments: segment.DecisionList{
			Kind:   domain.KindBuilding,
			Labels: []domain.Segment{BuildingCritical, BuildingNeedsAttention, BuildingUnknown, BuildingHealthy},
			Rules: []segment.Rule{
				{Label: BuildingCritical, When: segment.ScoreBelow(CriticalScore)},
				{Label: BuildingNeedsAttention, When: segment.ScoreBelow(AttentionScore)},
				{Label: BuildingUnknown, When: segment.OnEntity(scoring.Missing("yearBuilt"))},
			},
			Default: BuildingHealthy,
		},
		Recommendations: []recommend.Rule{
			{
				ID:          "urgent_review",
				Title:       "Urgent technical review",
				Description: "These buildings scored below 40 and need a technical review before the heating season.",
				ActionLabel: "Select critical buildings",
				Targets:     recommend.InSegment(BuildingCritical),
			},
			{
				ID:          "schedule_inspections",
				Title:       "Schedule chimney inspections",
				Description: "No inspection on record, or the last one is more than 12 months old.",
				ActionLabel: "Select overdue buildings",
				Targets:     recommend.Matching(inspectionOverdue()),
			},
			{
				ID:          "heating_modernisation",
				Title:       "Propose heating modernisation",
				Description: "Coal-fired buildings are candidates for a heat pump or district heating upgrade.",
				ActionLabel: "Select coal-heated buildings",
				Targets:     recommend.Matching(scoring.FieldEquals("heatingType", "coal")),
			},
			{
				// Unlike the score rule, this also targets buildings with no
				// ceebStatus: an unknown status still needs a declaration.
				ID:          "ceeb_registration",
				Title:       "Complete CEEB declarations",
				Description: "The heat source declaration is missing from the central building emissions register.",
				ActionLabel: "Select unregistered buildings",
				Targets:     recommend.Matching(scoring.Not(scoring.FieldEquals("ceebStatus", "registered"))),
			},
			{
				ID:          "portfolio_review",
				Title:       "Portfolio health review",
				Description: "Average portfolio health is below 60; start with the buildings under the average.",
				ActionLabel: "Select below-average buildings",
				Targets:     recommend.BelowAverageWhen(PortfolioReviewAverage),
			},
		},
	}
}

func Client() KindRules {
	return KindRules{
		Kind: domain.KindClient,
		Profile: filter.Profile{
			Kind:         domain.KindClient,
			SearchFields: []string{"name", "email", "phone", "address", "city"},
			Sorts: map[string]domain.SortRule{
				"recent_inspection": {Field: "lastInspection", Direction: domain.Descending},
				"most_buildings":    {Field: "buildingsCount", Direction: domain.Descending},
				"name":              {Field: "name", Direction: domain.Ascending},
			},
		},
		Scoring: scoring.RuleSet{
			Kind: domain.KindClient,
			Base: 0,
			Rules: []scoring.Rule{
				{Name: "5+ buildings", Delta: 40, When: scoring.FieldAtLeast("buildingsCount", HighValueBuildings)},
				{Name: "2+ buildings", Delta: 20, When: scoring.FieldAtLeast("buildingsCount", 2)},
				{Name: "inspected in the last 12 months", Delta: 20, When: scoring.WithinMonths("lastInspection", InspectionValidMonths)},
				{Name: "annual revenue 10k+", Delta: 20, When: scoring.FieldAtLeast("annualRevenue", 10000)},
				{Name: "active contract", Delta: 10, When: scoring.FieldEquals("status", "active")},
			},
		},
		Segments: segment.DecisionList{
			Kind:   domain.KindClient,
			Labels: []domain.Segment{ClientHighValue, ClientInactive, ClientNew, ClientRegular},
			Rules: []segment.Rule{
				{Label: ClientHighValue, When: segment.OnEntity(scoring.FieldAtLeast("buildingsCount", HighValueBuildings))},
				{Label: ClientInactive, When: segment.OnEntity(scoring.MonthsSinceOver("lastInspection", InspectionValidMonths))},
				{Label: ClientNew, When: segment.OnEntity(scoring.Missing("lastInspection"))},
			},
			Default: ClientRegular,
		},
		Recommendations: []recommend.Rule{
			{
				ID:          "reengage_inactive",
				Title:       "Schedule inspections for inactive clients",
				Description: "No inspection for more than 12 months. Offer a follow-up visit.",
				ActionLabel: "Select inactive clients",
				Targets:     recommend.InSegment(ClientInactive),
			},
			{
				ID:          "onboard_new",
				Title:       "Book a first inspection",
				Description: "New clients without any inspection on record.",
				ActionLabel: "Select new clients",
				Targets:     recommend.InSegment(ClientNew),
			},
			{
				ID:          "loyalty_offer",
				Title:       "Offer a multi-building service package",
				Description: "Clients with five or more buildings qualify for the annual package.",
				ActionLabel: "Select high-value clients",
				Targets:     recommend.InSegment(ClientHighValue),
			},
		},
	}
}

func Inspection() KindRules {
	pendingReport := scoring.FieldIn("ceebStatus", "pending", "missing")
	return KindRules{
		Kind: domain.KindInspection,
		Profile: filter.Profile{
			Kind:         domain.KindInspection,
			SearchFields: []string{"address", "buildingName", "clientName", "inspector", "notes"},
			Aliases:      map[string]string{"status": "ceebStatus"},
			Sorts: map[string]domain.SortRule{
				"recent":   {Field: "date", Direction: domain.Descending},
				"next_due": {Field: "nextInspectionDue", Direction: domain.Ascending},
			},
		},
		Scoring: scoring.RuleSet{
			Kind: domain.KindInspection,
			Base: 100,
			Rules: []scoring.Rule{
				{Name: "negative result", Delta: -50, When: scoring.FieldEquals("result", "negative")},
				{Name: "conditional result", Delta: -20, When: scoring.FieldEquals("result", "conditional")},
				{Name: "CEEB report pending", Delta: -15, When: scoring.FieldEquals("ceebStatus", "pending")},
				{Name: "next inspection overdue", Delta: -25, When: scoring.DateBeforeNow("nextInspectionDue")},
			},
		},
		Segments: segment.DecisionList{
			Kind:   domain.KindInspection,
			Labels: []domain.Segment{InspectionFailed, InspectionOverdue, InspectionPendingReport, InspectionCompliant},
			Rules: []segment.Rule{
				{Label: InspectionFailed, When: segment.OnEntity(scoring.FieldEquals("result", "negative"))},
				{Label: InspectionOverdue, When: segment.OnEntity(scoring.DateBeforeNow("nextInspectionDue"))},
				{Label: InspectionPendingReport, When: segment.OnEntity(pendingReport)},
			},
			Default: InspectionCompliant,
		},
		Recommendations: []recommend.Rule{
			{
				ID:          "reinspect_failed",
				Title:       "Schedule re-inspections",
				Description: "Negative results must be re-inspected after the owner's repairs.",
				ActionLabel: "Select failed inspections",
				Targets:     recommend.InSegment(InspectionFailed),
			},
			{
				ID:          "contact_overdue",
				Title:       "Contact owners with overdue inspections",
				Description: "The next mandatory inspection date has passed.",
				ActionLabel: "Select overdue inspections",
				Targets:     recommend.InSegment(InspectionOverdue),
			},
			{
				ID:          "submit_ceeb",
				Title:       "Submit CEEB reports",
				Description: "Inspection reports not yet filed with the central emissions register.",
				ActionLabel: "Select pending reports",
				Targets:     recommend.Matching(pendingReport),
			},
		},
	}
}

func Tenant() KindRules {
	return KindRules{
		Kind: domain.KindTenant,
		Profile: filter.Profile{
			Kind:         domain.KindTenant,
			SearchFields: []string{"name", "email", "phone", "apartment", "buildingName"},
			Sorts: map[string]domain.SortRule{
				"lease_end": {Field: "leaseEnd", Direction: domain.Ascending},
				"arrears":   {Field: "arrears", Direction: domain.Descending},
				"name":      {Field: "name", Direction: domain.Ascending},
			},
		},
		Scoring: scoring.RuleSet{
			Kind: domain.KindTenant,
			Base: 100,
			Rules: []scoring.Rule{
				{Name: "rent arrears", Delta: -30, When: scoring.FieldAbove("arrears", 0)},
				{Name: "arrears 3+ months", Delta: -30, When: scoring.FieldAtLeast("arrearsMonths", LongArrearsMonths)},
				{Name: "lease ends within 60 days", Delta: -10, When: scoring.WithinDays("leaseEnd", LeaseExpiryDays)},
			},
		},
		Segments: segment.DecisionList{
			Kind:   domain.KindTenant,
			Labels: []domain.Segment{TenantDebtor, TenantExpiring, TenantGoodStanding},
			Rules: []segment.Rule{
				{Label: TenantDebtor, When: segment.OnEntity(scoring.FieldAbove("arrears", 0))},
				{Label: TenantExpiring, When: segment.OnEntity(scoring.WithinDays("leaseEnd", LeaseExpiryDays))},
			},
			Default: TenantGoodStanding,
		},
		Recommendations: []recommend.Rule{
			{
				ID:          "payment_reminders",
				Title:       "Send payment reminders",
				Description: "Tenants with outstanding rent.",
				ActionLabel: "Select debtors",
				Targets:     recommend.InSegment(TenantDebtor),
			},
			{
				ID:          "lease_renewals",
				Title:       "Start lease renewals",
				Description: "Leases ending within the next 60 days.",
				ActionLabel: "Select expiring leases",
				Targets:     recommend.InSegment(TenantExpiring),
			},
		},
	}
}
