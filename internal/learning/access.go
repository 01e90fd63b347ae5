package learning

import "errors"

var (
	ErrSubModuleLocked = errors.New("submodule is locked")
	ErrNoSubModule     = errors.New("no such submodule")
)

// LockedNotice is shown when a learner tries to skip ahead
const LockedNotice = "Finish the previous submodule first."

// IsAccessible applies the sequential unlock rule: the first submodule is
// always open, any other one only once its predecessor is completed.
func IsAccessible(subs []SubModule, completed map[string]bool, index int) bool {
	if index < 0 || index >= len(subs) {
		return false
	}
	if index == 0 {
		return true
	}
	return completed[subs[index-1].ID]
}

// AccessGate enforces sequential navigation for students. Other roles may
// open any submodule.
type AccessGate struct {
	role    Role
	alerter Alerter
}

// NewAccessGate creates a gate for the given viewer role
func NewAccessGate(role Role, alerter Alerter) *AccessGate {
	if alerter == nil {
		alerter = logAlerter{}
	}
	return &AccessGate{role: role, alerter: alerter}
}

// CanAccess reports whether the submodule at index may be opened
func (g *AccessGate) CanAccess(subs []SubModule, completed map[string]bool, index int) bool {
	if index < 0 || index >= len(subs) {
		return false
	}
	if g.role != RoleStudent {
		return true
	}
	return IsAccessible(subs, completed, index)
}

// Accessibility returns CanAccess for every submodule, in order
func (g *AccessGate) Accessibility(subs []SubModule, completed map[string]bool) []bool {
	out := make([]bool, len(subs))
	for i := range subs {
		out[i] = g.CanAccess(subs, completed, i)
	}
	return out
}

// Jump validates navigation to target from the submodule list. A locked
// target is rejected with a notice to the learner.
func (g *AccessGate) Jump(subs []SubModule, completed map[string]bool, target int) (int, error) {
	if target < 0 || target >= len(subs) {
		return 0, ErrNoSubModule
	}
	if !g.CanAccess(subs, completed, target) {
		g.alerter.Alert(LockedNotice)
		return 0, ErrSubModuleLocked
	}
	return target, nil
}

// Next validates forward navigation from current
func (g *AccessGate) Next(subs []SubModule, completed map[string]bool, current int) (int, error) {
	return g.Jump(subs, completed, current+1)
}

// Previous validates backward navigation; it is never gated
func (g *AccessGate) Previous(subs []SubModule, current int) (int, error) {
	prev := current - 1
	if prev < 0 || prev >= len(subs) {
		return 0, ErrNoSubModule
	}
	return prev, nil
}
