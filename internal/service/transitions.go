package service

import "github.com/githubpalak/gas-utility-portal/internal/domain"

// TransitionPolicy decides whether a request may move from one status to another.
type TransitionPolicy interface {
	Allowed(from, to domain.RequestStatus) bool
}

// AnyTransition permits every pair of known statuses, including same-state moves.
type AnyTransition struct{}

func (AnyTransition) Allowed(from, to domain.RequestStatus) bool {
	return from.Valid() && to.Valid()
}

// TransitionTable permits only the listed moves.
type TransitionTable map[domain.RequestStatus][]domain.RequestStatus

func (t TransitionTable) Allowed(from, to domain.RequestStatus) bool {
	for _, candidate := range t[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// StrictTransitions is the field workflow enforced when strict transitions are enabled.
var StrictTransitions = TransitionTable{
	domain.StatusNew:        {domain.StatusAssigned, domain.StatusInProgress, domain.StatusOnHold, domain.StatusCancelled},
	domain.StatusAssigned:   {domain.StatusNew, domain.StatusInProgress, domain.StatusOnHold, domain.StatusCancelled},
	domain.StatusInProgress: {domain.StatusAssigned, domain.StatusOnHold, domain.StatusCompleted, domain.StatusCancelled},
	domain.StatusOnHold:     {domain.StatusAssigned, domain.StatusInProgress, domain.StatusCancelled},
	domain.StatusCompleted:  {domain.StatusClosed, domain.StatusInProgress},
	domain.StatusClosed:     {},
	domain.StatusCancelled:  {},
}

// PolicyFor returns StrictTransitions when strict is set, else AnyTransition.
func PolicyFor(strict bool) TransitionPolicy {
	if strict {
		return StrictTransitions
	}
	return AnyTransition{}
}
