package closures

import "github.com/franpass87/FP-Restaurant-Reservations-sub003/internal/model"

var scopeWeights = map[model.Scope]int{
	model.ScopeRestaurant: 300,
	model.ScopeRoom:       200,
	model.ScopeTable:      100,
}

// Special openings add capacity instead of restricting it, so they carry
// no type weight: at an equal start instant every restrictive rule of the
// same scope sorts ahead of them.
var typeWeights = map[model.Type]int{
	model.TypeFull:              30,
	model.TypeSpecialHours:      20,
	model.TypeCapacityReduction: 10,
	model.TypeSpecialOpening:    0,
}

// Priority returns the tie-break weight for a scope/type pair. It only
// orders occurrences that share a start instant; it never decides whether
// a rule applies. Unknown values weigh zero.
func Priority(scope model.Scope, typ model.Type) int {
	return scopeWeights[scope] + typeWeights[typ]
}
