package client

import (
	"context"
	"errors"
	"sync"

	"github.com/CreativeUnicorns/shellprefs"
)

// Picker errors. A refused change sends no request and no acknowledgment.
var (
	ErrPolicyForced = errors.New("frontend shell is fixed by the workspace policy")
	ErrNotPermitted = errors.New("caller cannot manage the workspace")
	ErrNoWorkspace  = errors.New("no current workspace")
	ErrBusy         = errors.New("an update is already in flight")
)

// Acknowledgment messages shown to the user.
const (
	MsgPreferenceUpdated = "Frontend preference updated."
	MsgPreferenceFailed  = "Failed to update frontend preference. Please try again."
	MsgPolicyUpdated     = "Frontend policy updated."
	MsgPolicyFailed      = "Failed to update frontend policy. Please try again."
	MsgPolicyForced      = "Your workspace administrator has set a fixed frontend for all members. You cannot change this setting."
)

// Notifier shows transient success and failure acknowledgments.
type Notifier interface {
	Success(message string)
	Failure(message string)
}

// Navigator performs a full top-level navigation, discarding in-memory state.
type Navigator interface {
	Navigate(location string)
}

// PreferenceUpdater is the mutation the PreferencePicker submits. *Client implements it.
type PreferenceUpdater interface {
	UpdateUserFrontendPreference(ctx context.Context, pref shellprefs.FrontendPreference) error
}

// PolicyUpdater is the mutation the PolicyPicker submits. *Client implements it.
type PolicyUpdater interface {
	UpdateWorkspaceFrontendPolicy(ctx context.Context, policy shellprefs.FrontendPolicy) (*shellprefs.Workspace, error)
}

// Choice is one selectable option.
type Choice struct {
	Value string
	Label string
}

var preferenceChoices = []Choice{
	{Value: string(shellprefs.PreferenceTwenty), Label: "Standard (Twenty)"},
	{Value: string(shellprefs.PreferenceSFDS2), Label: "SFDS2 (Salesforce Design System 2)"},
}

var policyChoices = []Choice{
	{Value: string(shellprefs.PolicyAllowUserChoice), Label: "Allow users to choose their interface"},
	{Value: string(shellprefs.PolicyForceTwenty), Label: "Force Standard interface (Twenty) for all members"},
	{Value: string(shellprefs.PolicyForceSFDS2), Label: "Force SFDS2 interface for all members"},
}

// PreferenceState describes how the personal shell picker renders.
type PreferenceState struct {
	Visible  bool
	Value    shellprefs.FrontendPreference
	Options  []Choice
	Disabled bool
	Forced   bool
	Notice   string
}

// PreferencePicker lets a user choose their own shell.
type PreferencePicker struct {
	updater   PreferenceUpdater
	notifier  Notifier
	navigator Navigator

	mu       sync.Mutex
	inFlight bool
}

func NewPreferencePicker(updater PreferenceUpdater, notifier Notifier, navigator Navigator) *PreferencePicker {
	return &PreferencePicker{updater: updater, notifier: notifier, navigator: navigator}
}

// State computes the picker for user within workspace. A nil user hides the picker; a nil
// workspace means no policy. When forced, the shown value is the forced shell.
func (p *PreferencePicker) State(user *shellprefs.User, ws *shellprefs.Workspace) PreferenceState {
	if user == nil {
		return PreferenceState{}
	}

	res := shellprefs.Resolve(policyOf(ws), user.FrontendPreference)
	state := PreferenceState{
		Visible:  true,
		Value:    res.UserPreference,
		Options:  append([]Choice(nil), preferenceChoices...),
		Forced:   res.IsForced,
		Disabled: res.IsForced || p.busy(),
	}
	if res.IsForced {
		state.Value = shellprefs.FrontendPreference(res.EffectiveShell)
		state.Notice = MsgPolicyForced
	}
	return state
}

// Change submits value as the user's preference from the page at currentPath. It refuses
// while the workspace forces a shell or while another change is in flight. After a successful
// switch to SFDS2 it navigates to the alternate shell, and after a successful switch to TWENTY
// from inside the alternate shell it navigates to the root. A failure is acknowledged and not retried.
func (p *PreferencePicker) Change(ctx context.Context, ws *shellprefs.Workspace, value shellprefs.FrontendPreference, currentPath string) error {
	if policyOf(ws).IsForced() {
		return ErrPolicyForced
	}
	if !p.begin() {
		return ErrBusy
	}
	defer p.end()

	if err := p.updater.UpdateUserFrontendPreference(ctx, value); err != nil {
		p.notifier.Failure(MsgPreferenceFailed)
		return err
	}
	p.notifier.Success(MsgPreferenceUpdated)

	switch {
	case value == shellprefs.PreferenceSFDS2:
		p.navigator.Navigate(shellprefs.AlternateShellPath)
	case shellprefs.UnderAlternateShell(currentPath):
		p.navigator.Navigate(shellprefs.DefaultShellPath)
	}
	return nil
}

func (p *PreferencePicker) begin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight {
		return false
	}
	p.inFlight = true
	return true
}

func (p *PreferencePicker) end() {
	p.mu.Lock()
	p.inFlight = false
	p.mu.Unlock()
}

func (p *PreferencePicker) busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// PolicyState describes how the workspace policy picker renders.
type PolicyState struct {
	Visible  bool
	Value    shellprefs.FrontendPolicy
	Options  []Choice
	Disabled bool
}

// PolicyPicker lets a workspace manager set the workspace policy.
type PolicyPicker struct {
	updater  PolicyUpdater
	notifier Notifier

	mu       sync.Mutex
	inFlight bool
}

func NewPolicyPicker(updater PolicyUpdater, notifier Notifier) *PolicyPicker {
	return &PolicyPicker{updater: updater, notifier: notifier}
}

// State computes the picker for ws. An absent policy is shown as ALLOW_USER_CHOICE.
func (p *PolicyPicker) State(ws *shellprefs.Workspace, canManage bool) PolicyState {
	if ws == nil {
		return PolicyState{}
	}
	value := ws.FrontendPolicy
	if !value.Valid() {
		value = shellprefs.DefaultFrontendPolicy
	}

	p.mu.Lock()
	busy := p.inFlight
	p.mu.Unlock()

	return PolicyState{
		Visible:  true,
		Value:    value,
		Options:  append([]Choice(nil), policyChoices...),
		Disabled: busy || !canManage,
	}
}

// Change submits policy for ws and returns the server's echo of the workspace.
func (p *PolicyPicker) Change(ctx context.Context, ws *shellprefs.Workspace, canManage bool, policy shellprefs.FrontendPolicy) (*shellprefs.Workspace, error) {
	if ws == nil {
		return nil, ErrNoWorkspace
	}
	if !canManage {
		return nil, ErrNotPermitted
	}

	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return nil, ErrBusy
	}
	p.inFlight = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}()

	updated, err := p.updater.UpdateWorkspaceFrontendPolicy(ctx, policy)
	if err != nil {
		p.notifier.Failure(MsgPolicyFailed)
		return nil, err
	}
	p.notifier.Success(MsgPolicyUpdated)
	return updated, nil
}

func policyOf(ws *shellprefs.Workspace) shellprefs.FrontendPolicy {
	if ws == nil {
		return ""
	}
	return ws.FrontendPolicy
}
