package moderation

import (
	"encoding/json"
	"sort"
)

// AlertKind is the closed set of alert kinds every detector vocabulary collapses into.
type AlertKind string

const (
	AlertWeaponFirearm  AlertKind = "weapon_firearm"
	AlertWeaponBlade    AlertKind = "weapon_blade"
	AlertObsceneGesture AlertKind = "obscene_gesture"
	AlertViolence       AlertKind = "violence"
	AlertThreat         AlertKind = "threat"
)

var AllAlertKinds = []AlertKind{
	AlertWeaponFirearm,
	AlertWeaponBlade,
	AlertObsceneGesture,
	AlertViolence,
	AlertThreat,
}

func (k AlertKind) Valid() bool {
	switch k {
	case AlertWeaponFirearm, AlertWeaponBlade, AlertObsceneGesture, AlertViolence, AlertThreat:
		return true
	}
	return false
}

func (k AlertKind) IsWeapon() bool {
	return k == AlertWeaponFirearm || k == AlertWeaponBlade
}

// AlertSet serializes as a sorted JSON array.
type AlertSet map[AlertKind]struct{}

func NewAlertSet(kinds ...AlertKind) AlertSet {
	s := AlertSet{}
	for _, k := range kinds {
		s.Add(k)
	}
	return s
}

// Add ignores kinds outside the closed set.
func (s AlertSet) Add(k AlertKind) {
	if !k.Valid() {
		return
	}
	s[k] = struct{}{}
}

func (s AlertSet) Has(k AlertKind) bool {
	_, ok := s[k]
	return ok
}

func (s AlertSet) HasAny(kinds ...AlertKind) bool {
	for _, k := range kinds {
		if s.Has(k) {
			return true
		}
	}
	return false
}

func (s AlertSet) Len() int { return len(s) }

func (s AlertSet) Sorted() []AlertKind {
	out := make([]AlertKind, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s AlertSet) Equal(o AlertSet) bool {
	if len(s) != len(o) {
		return false
	}
	for k := range s {
		if !o.Has(k) {
			return false
		}
	}
	return true
}

func (s AlertSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *AlertSet) UnmarshalJSON(b []byte) error {
	var kinds []AlertKind
	if err := json.Unmarshal(b, &kinds); err != nil {
		return err
	}
	*s = NewAlertSet(kinds...)
	return nil
}
