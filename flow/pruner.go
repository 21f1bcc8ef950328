package flow

import "reflect"

// Pruner discards answers whose basis changed before a patch is merged.
type Pruner struct {
	resolver *Resolver
}

func NewPruner(resolver *Resolver) *Pruner {
	if resolver == nil {
		resolver = NewResolver(nil, nil)
	}
	return &Pruner{resolver: resolver}
}

// Changed returns the observed fields whose value the patch would change.
// Fields that appear in the patch with an equal value are not changed.
func (p *Pruner) Changed(s State, patch Patch) FieldSet {
	next := patch.candidate(s)
	var changed FieldSet
	for f := Field(0); f < fieldCount; f++ {
		if !reflect.DeepEqual(fieldValue(&s, f), fieldValue(&next, f)) {
			changed = changed.Add(f)
		}
	}
	return changed
}

// Apply removes the dependent closure of every changed field from s and then
// merges the patch. It returns the new state and the fields that were
// discarded.
func (p *Pruner) Apply(s State, patch Patch) (State, FieldSet) {
	invalid := p.resolver.Invalidated(p.Changed(s, patch))

	next := s.Clone()
	var pruned FieldSet
	for _, f := range invalid.Fields() {
		if fieldPresent(&next, f) {
			pruned = pruned.Add(f)
		}
		clearField(&next, f)
	}
	patch.applyTo(&next)
	return next, pruned
}
