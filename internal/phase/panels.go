package phase

import "slices"

// Panel names an independently rendered view of the trip.
type Panel string

const (
	PanelOverview    Panel = "overview"
	PanelItinerary   Panel = "itinerary"
	PanelSuggestions Panel = "suggestions"
	PanelChecklist   Panel = "checklist"
	PanelBudget      Panel = "budget"
	PanelToday       Panel = "today"
	PanelExpenses    Panel = "expenses"
	PanelSummary     Panel = "summary"
)

var panelsByPhase = map[Phase][]Panel{
	Planning:  {PanelOverview, PanelItinerary, PanelSuggestions, PanelBudget},
	PreTrip:   {PanelOverview, PanelItinerary, PanelSuggestions, PanelChecklist, PanelBudget},
	Active:    {PanelToday, PanelItinerary, PanelChecklist, PanelExpenses},
	Completed: {PanelSummary, PanelExpenses, PanelItinerary},
}

// Panels returns the panels shown for p, in display order.
// An unknown phase falls back to the planning set.
func Panels(p Phase) []Panel {
	panels, ok := panelsByPhase[p]
	if !ok {
		panels = panelsByPhase[Planning]
	}
	return slices.Clone(panels)
}

// Enabled reports whether panel is active in phase p.
func Enabled(p Phase, panel Panel) bool {
	return slices.Contains(Panels(p), panel)
}
