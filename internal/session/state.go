package session

import "github.com/thebtf/soilsense/pkg/models"

// Action is a state transition request. The set of actions is closed.
type Action interface {
	isAction()
}

// ActionStart begins a new analysis.
type ActionStart struct{}

// ActionProgress advances the cosmetic progress indicator.
type ActionProgress struct {
	Percent int
}

// ActionReportReady records the rendered report. The result stays hidden
// until the record is persisted.
type ActionReportReady struct {
	Report string
}

// ActionPersisted marks the record as stored in history.
type ActionPersisted struct{}

// ActionPersistFailed marks the record as not stored.
type ActionPersistFailed struct {
	Err error
}

// ActionDismissResult hides the result panel.
type ActionDismissResult struct{}

// ActionReset returns the session to idle.
type ActionReset struct{}

func (ActionStart) isAction()         {}
func (ActionProgress) isAction()      {}
func (ActionReportReady) isAction()   {}
func (ActionPersisted) isAction()     {}
func (ActionPersistFailed) isAction() {}
func (ActionDismissResult) isAction() {}
func (ActionReset) isAction()         {}

// Reduce applies a to s and returns the next state. It is total: actions that
// do not apply in the current phase leave the state unchanged.
func Reduce(s models.SessionState, a Action) models.SessionState {
	switch a := a.(type) {
	case ActionStart:
		return models.SessionState{
			Phase:   models.PhaseRunning,
			Loading: true,
		}

	case ActionProgress:
		if s.Phase == models.PhaseIdle {
			return s
		}
		p := clampPercent(a.Percent)
		if p > s.ProgressPercent {
			s.ProgressPercent = p
		}
		return s

	case ActionReportReady:
		if s.Phase != models.PhaseRunning {
			return s
		}
		s.ReportText = a.Report
		return s

	case ActionPersisted:
		if s.Phase != models.PhaseRunning {
			return s
		}
		s.Phase = models.PhaseCompleted
		s.Loading = false
		s.ResultVisible = true
		return s

	case ActionPersistFailed:
		if s.Phase != models.PhaseRunning {
			return s
		}
		s.Phase = models.PhaseCompleted
		s.Loading = false
		s.ResultVisible = false
		s.Failed = true
		if a.Err != nil {
			s.LastError = a.Err.Error()
		}
		return s

	case ActionDismissResult:
		s.ResultVisible = false
		return s

	case ActionReset:
		return models.IdleState()
	}
	return s
}

func clampPercent(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
