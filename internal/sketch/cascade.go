package sketch

import (
	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/ids"
)

// planVariableRemoval lists the events that must run before variable v can
// be removed directly. An empty plan means v has no dependents.
//
// Update functions that mention v are hard dependents: rewriting a formula
// is a modelling decision, so removal is refused. Everything else is a
// soft dependent with a mechanical fix, emitted in this order:
//
//  1. move v back to the default position in each layout where it is not
//     already there, by layout id;
//  2. remove regulations targeting v, by regulator id;
//  3. remove regulations where v is the regulator, by target id, skipping
//     the self-loop already covered by step 2.
//
// The caller appends the original removal, which then succeeds directly.
func (m *ModelState) planVariableRemoval(v ids.VarID) ([]event.Event, error) {
	if users := m.updateFnsUsing(v); len(users) > 0 {
		return nil, event.InvariantViolation(
			"cannot remove variable `%s`: it is used in the update function of %s", v, joinIDs(users))
	}

	var plan []event.Event
	for _, lid := range m.LayoutIDs() {
		if m.layouts[lid].Position(v).IsDefault() {
			continue
		}
		payload, err := encodePayload(layoutNodeData(lid, v, Position{}))
		if err != nil {
			return nil, err
		}
		plan = append(plan, event.New(payload, ComponentModel, segLayout, lid.String(), actUpdatePosition))
	}

	regs := m.Regulations()
	for _, r := range regs {
		if r.Target == v {
			plan = append(plan, removeRegulationEvent(r.RegulationKey))
		}
	}
	// Regulations are ordered by regulator first, so those leaving v are
	// already sorted by target.
	for _, r := range regs {
		if r.Regulator == v && r.Target != v {
			plan = append(plan, removeRegulationEvent(r.RegulationKey))
		}
	}
	return plan, nil
}

func removeRegulationEvent(k RegulationKey) event.Event {
	return event.At(ComponentModel, segRegulation, k.Regulator.String(), k.Target.String(), actRemove)
}
