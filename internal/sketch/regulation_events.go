package sketch

import (
	"fmt"

	"github.com/roach88/sketchbook/internal/event"
	"github.com/roach88/sketchbook/internal/ids"
	"github.com/roach88/sketchbook/internal/records"
)

const componentRegulation = "model/regulation"

var (
	validSigns = map[string]bool{
		records.SignActivation: true,
		records.SignInhibition: true,
		records.SignDual:       true,
		records.SignUnknown:    true,
	}
	validEssentials = map[string]bool{
		records.EssentialTrue:    true,
		records.EssentialFalse:   true,
		records.EssentialUnknown: true,
	}
)

type regulationHandler func(*ModelState, event.Event, RegulationKey) (event.Consumed, error)

func regulationAction(a action) regulationHandler {
	switch a {
	case actionRemove:
		return (*ModelState).removeRegulation
	case actionSetSign:
		return (*ModelState).setRegulationSign
	case actionSetEssential:
		return (*ModelState).setRegulationEssential
	default:
		return nil
	}
}

func (m *ModelState) performRegulationEvent(ev event.Event, at []string) (event.Consumed, error) {
	if isAdd(at) {
		return m.addRegulation(ev)
	}
	if len(at) != 3 {
		return nil, event.UnknownPath(componentRegulation, at)
	}
	handler := regulationAction(parseAction(at[2]))
	if handler == nil {
		return nil, event.UnknownPath(componentRegulation, at)
	}
	regulator, err := existingID(at[0], m.HasVariable)
	if err != nil {
		return nil, err
	}
	target, err := existingID(at[1], m.HasVariable)
	if err != nil {
		return nil, err
	}
	key := RegulationKey{regulator, target}
	if _, ok := m.regulations[key]; !ok {
		return nil, event.UnknownID("regulation", fmt.Sprintf("%s -> %s", regulator, target))
	}
	return handler(m, ev, key)
}

func (m *ModelState) addRegulation(ev event.Event) (event.Consumed, error) {
	data, err := decodePayload[records.RegulationData](ev, componentRegulation)
	if err != nil {
		return nil, err
	}
	regulator := ids.MustParse[ids.Var](data.Regulator)
	target := ids.MustParse[ids.Var](data.Target)
	for _, v := range []ids.VarID{regulator, target} {
		if !m.HasVariable(v) {
			return nil, event.UnknownID("variable", v.String())
		}
	}
	key := RegulationKey{regulator, target}
	if _, exists := m.regulations[key]; exists {
		return nil, event.DuplicateID("regulation", fmt.Sprintf("%s -> %s", regulator, target))
	}
	payload, err := encodePayload(data)
	if err != nil {
		return nil, err
	}

	m.regulations[key] = Regulation{RegulationKey: key, Sign: data.Sign, Essential: data.Essential}
	return reversible(
		event.Change(payload, ComponentModel, segRegulation, actAdd),
		removeRegulationEvent(key),
	)
}

func (m *ModelState) removeRegulation(ev event.Event, key RegulationKey) (event.Consumed, error) {
	if err := requireNoPayload(ev, componentRegulation); err != nil {
		return nil, err
	}
	payload, err := encodePayload(regulationData(m.regulations[key]))
	if err != nil {
		return nil, err
	}

	delete(m.regulations, key)
	return reversible(
		event.Change(payload, ComponentModel, segRegulation, actRemove),
		event.New(payload, ComponentModel, segRegulation, actAdd),
	)
}

func (m *ModelState) setRegulationSign(ev event.Event, key RegulationKey) (event.Consumed, error) {
	return m.setRegulationField(ev, key, actSetSign, validSigns, func(r *Regulation) *string { return &r.Sign })
}

func (m *ModelState) setRegulationEssential(ev event.Event, key RegulationKey) (event.Consumed, error) {
	return m.setRegulationField(ev, key, actSetEssential, validEssentials, func(r *Regulation) *string { return &r.Essential })
}

// setRegulationField replaces one enumerated attribute of a regulation.
func (m *ModelState) setRegulationField(
	ev event.Event,
	key RegulationKey,
	action string,
	allowed map[string]bool,
	field func(*Regulation) *string,
) (event.Consumed, error) {
	value, err := requirePayload(ev, componentRegulation)
	if err != nil {
		return nil, err
	}
	if !allowed[value] {
		return nil, event.MalformedPayload(componentRegulation, fmt.Errorf("unsupported value %q for %s", value, action))
	}
	r := m.regulations[key]
	old := *field(&r)
	if old == value {
		return event.NoChange{}, nil
	}
	*field(&r) = value
	payload, err := encodePayload(regulationData(r))
	if err != nil {
		return nil, err
	}

	m.regulations[key] = r
	return reversible(
		event.Change(payload, ComponentModel, segRegulation, action),
		event.New(old, ComponentModel, segRegulation, key.Regulator.String(), key.Target.String(), action),
	)
}
