package core

import "herdcore/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in herd
// integrity checks.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(OccupancyIntegrityRule())
	engine.Register(BreedingAttemptIntegrityRule())
	engine.Register(LineageIntegrityRule())
	engine.Register(StatusReactivationRule())
	return engine
}

func touches(changes []domain.Change, entities ...domain.EntityType) bool {
	for _, change := range changes {
		for _, entity := range entities {
			if change.Entity == entity {
				return true
			}
		}
	}
	return false
}
