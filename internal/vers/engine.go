package vers

import "github.com/cedd82/mongoSchemaVersion/internal/doc"

// Direction is the way a step moves the version counter.
type Direction int

const (
	Up Direction = iota + 1
	Down
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "upgrade"
	case Down:
		return "downgrade"
	default:
		return "none"
	}
}

// Step describes one move of the version counter.
type Step struct {
	From      int
	To        int
	Direction Direction
	Bridged   bool
}

// IsFloor reports whether the shape declares no rules in either direction.
func (s *Shape[M]) IsFloor() bool {
	return len(s.Upgrades) == 0 && len(s.Downgrades) == 0
}

// Ceiling is the newest version the shape can walk down from.
func (s *Shape[M]) Ceiling() int {
	c := s.Home
	for v := range s.Downgrades {
		if v > c {
			c = v
		}
	}
	return c
}

// Reconcile walks m from its stored version to target, one version per
// step. Each step runs the rule keyed by the version being left, or a bridge
// where the shape declares none, and then moves the counter. On error m is
// partially migrated and must be discarded.
func (s *Shape[M]) Reconcile(m M, target int) error {
	meta := m.Versioning()
	meta.Upgraded = false
	meta.Downgraded = false

	if meta.SchemaVersion == target {
		return nil
	}
	if s.IsFloor() {
		return &MigrationMissingError{Shape: s.Name, Version: meta.SchemaVersion}
	}

	for meta.SchemaVersion < target {
		rule, _, err := s.upgradeRule(meta.SchemaVersion)
		if err != nil {
			return err
		}
		if err := rule(m); err != nil {
			return err
		}
		meta.SchemaVersion++
		meta.Upgraded = true
	}

	for meta.SchemaVersion > target {
		rule, _, err := s.downgradeRule(meta.SchemaVersion)
		if err != nil {
			return err
		}
		if err := rule(m); err != nil {
			return err
		}
		meta.SchemaVersion--
		meta.Downgraded = true
	}

	return nil
}

// Plan returns the steps Reconcile would take from one version to another
// without running any rule.
func (s *Shape[M]) Plan(from, to int) ([]Step, error) {
	if from == to {
		return nil, nil
	}
	if s.IsFloor() {
		return nil, &MigrationMissingError{Shape: s.Name, Version: from}
	}

	var steps []Step
	for v := from; v < to; v++ {
		_, bridged, err := s.upgradeRule(v)
		if err != nil {
			return steps, err
		}
		steps = append(steps, Step{From: v, To: v + 1, Direction: Up, Bridged: bridged})
	}
	for v := from; v > to; v-- {
		_, bridged, err := s.downgradeRule(v)
		if err != nil {
			return steps, err
		}
		steps = append(steps, Step{From: v, To: v - 1, Direction: Down, Bridged: bridged})
	}
	return steps, nil
}

func (s *Shape[M]) upgradeRule(from int) (Rule[M], bool, error) {
	if from < doc.DefaultVersion {
		return nil, false, &MigrationMissingError{Shape: s.Name, Version: from}
	}
	if r, ok := s.Upgrades[from]; ok {
		return r, false, nil
	}
	if from+1 <= s.Home {
		return Bridge[M], true, nil
	}
	return nil, false, &MigrationMissingError{Shape: s.Name, Version: from}
}

func (s *Shape[M]) downgradeRule(from int) (Rule[M], bool, error) {
	if r, ok := s.Downgrades[from]; ok {
		return r, false, nil
	}
	if from-1 >= s.Home && from <= s.Ceiling() {
		return Bridge[M], true, nil
	}
	return nil, false, &MigrationMissingError{Shape: s.Name, Version: from}
}
