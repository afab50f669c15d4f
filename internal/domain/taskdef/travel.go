package taskdef

import "github.com/wayfarer-ai/wayfarer/internal/domain/trip"

// Task names for the travel planning pipeline. Each name is also the
// provider key the scheduler dispatches to.
const (
	TaskDestinationDiscovery = "destination_discovery"
	TaskEventSearch          = "event_search"
	TaskFlightSearch         = "flight_search"
	TaskHotelSearch          = "hotel_search"
	TaskOfferEnrichment      = "offer_enrichment"
	TaskFlightCuration       = "flight_curation"
	TaskItinerary            = "itinerary"
	TaskVisaCheck            = "visa_check"
	TaskHealthAdvisory       = "health_advisory"
	TaskInsuranceQuote       = "insurance_quote"
	TaskSeatMap              = "seat_map"
)

// Concurrency groups. Discovery runs while requirements are still being
// gathered; planning produces the draft; compliance is the post-confirmation
// wave.
const (
	GroupDiscovery  = "discovery"
	GroupPlanning   = "planning"
	GroupCompliance = "compliance"
)

// Travel builds the task registry for the travel planning pipeline.
//
// The two discovery tasks are conditional: destination discovery runs only
// while the traveller has described a kind of place but not a place, and
// event search only when an event was mentioned. The planning wave fans out
// once every required field is present; visa, health and insurance checks
// are independent of each other and wait only for confirmation, while the
// seat map additionally needs a priced flight offer to exist.
func Travel() *Registry {
	r := NewRegistry()

	r.MustRegister(&Descriptor{
		Name:  TaskDestinationDiscovery,
		Group: GroupDiscovery,
		RunnableWhen: func(s *trip.State) bool {
			return s.Fields.Destination == nil && s.Fields.DestinationType != nil
		},
	})
	r.MustRegister(&Descriptor{
		Name:  TaskEventSearch,
		Group: GroupDiscovery,
		RunnableWhen: func(s *trip.State) bool {
			hasEvent := s.Fields.EventName != nil || s.Fields.EventType != nil
			return hasEvent && s.Fields.Destination != nil
		},
	})

	r.MustRegister(&Descriptor{
		Name:         TaskFlightSearch,
		Group:        GroupPlanning,
		RunnableWhen: requirementsComplete,
	})
	r.MustRegister(&Descriptor{
		Name:         TaskHotelSearch,
		Group:        GroupPlanning,
		RunnableWhen: requirementsComplete,
	})
	r.MustRegister(&Descriptor{
		Name:         TaskOfferEnrichment,
		Group:        GroupPlanning,
		RunnableWhen: requirementsComplete,
		DependsOn:    []string{TaskFlightSearch, TaskHotelSearch},
	})
	r.MustRegister(&Descriptor{
		Name:         TaskFlightCuration,
		Group:        GroupPlanning,
		RunnableWhen: requirementsComplete,
		DependsOn:    []string{TaskOfferEnrichment},
	})
	r.MustRegister(&Descriptor{
		Name:         TaskItinerary,
		Group:        GroupPlanning,
		RunnableWhen: requirementsComplete,
		DependsOn:    []string{TaskFlightSearch, TaskHotelSearch},
	})

	r.MustRegister(&Descriptor{
		Name:                 TaskVisaCheck,
		Group:                GroupCompliance,
		RunnableWhen:         requirementsComplete,
		RequiresConfirmation: true,
	})
	r.MustRegister(&Descriptor{
		Name:                 TaskHealthAdvisory,
		Group:                GroupCompliance,
		RunnableWhen:         requirementsComplete,
		RequiresConfirmation: true,
	})
	r.MustRegister(&Descriptor{
		Name:                 TaskInsuranceQuote,
		Group:                GroupCompliance,
		RunnableWhen:         requirementsComplete,
		RequiresConfirmation: true,
	})
	r.MustRegister(&Descriptor{
		Name:                 TaskSeatMap,
		Group:                GroupCompliance,
		RunnableWhen:         requirementsComplete,
		RequiresConfirmation: true,
		DependsOn:            []string{TaskFlightSearch},
	})

	return r
}

func requirementsComplete(s *trip.State) bool {
	return len(s.Missing) == 0
}
