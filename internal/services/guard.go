package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-backend/internal/platform/logger"
	"github.com/taskhive/taskhive-backend/internal/routes"
	"github.com/taskhive/taskhive-backend/internal/types"
)

type GuardState string

const (
	GuardGranted        GuardState = "granted"
	GuardDeniedRedirect GuardState = "denied_redirect"
)

type NoticeKind string

const (
	NoticeSignInRequired NoticeKind = "sign_in_required"
	NoticeRoleSwitch     NoticeKind = "role_switch"
	NoticeAccessDenied   NoticeKind = "access_denied"
)

type GuardNotice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// CompletionGate selects how a route treats an incomplete profile.
type CompletionGate int

const (
	// CompletionIgnore skips the completion policy entirely.
	CompletionIgnore CompletionGate = iota
	// CompletionSoft grants and attaches an onboarding prompt.
	CompletionSoft
	// CompletionHard redirects to the onboarding flow.
	CompletionHard
)

// GuardSpec is what a route demands. The guard evaluator turns it into
// the ordered policy run: authentication, then role, then admin
// verification, then profile completion.
type GuardSpec struct {
	AllowedRoles []types.Role
	AdminOnly    bool
	Completion   CompletionGate
}

// GuardDecision is the terminal outcome of one evaluation. Exactly one
// redirect is issued per failed evaluation; redirect targets are chosen
// so they cannot re-trigger the same denial.
type GuardDecision struct {
	State          GuardState   `json:"state"`
	Redirect       string       `json:"redirect,omitempty"`
	ReplaceHistory bool         `json:"replace_history,omitempty"`
	Notice         *GuardNotice `json:"notice,omitempty"`
	// OnboardingPath is set on a granted decision when a soft gate wants
	// a completion prompt overlaid on the content.
	OnboardingPath string `json:"onboarding_path,omitempty"`
}

func (d GuardDecision) Granted() bool {
	return d.State == GuardGranted
}

// GuardService evaluates a GuardSpec for an identity. identity ==
// uuid.Nil means nobody is signed in.
type GuardService interface {
	Evaluate(ctx context.Context, identity uuid.UUID, spec GuardSpec) GuardDecision
}

// failMode names the error policy of a check. The asymmetry is
// deliberate product behavior, not a default: identity must be proven,
// but incompleteness must never deny a user their own account.
type failMode int

const (
	failClosed failMode = iota
	failOpen
)

type guardEval struct {
	identity uuid.UUID
	spec     GuardSpec

	profileLoaded bool
	profile       *types.Profile
	effectiveRole types.Role
	isAdmin       bool
	roleResolved  bool
}

type guardPolicy struct {
	name    string
	mode    failMode
	applies func(GuardSpec) bool
	check   func(ctx context.Context, ev *guardEval) (*GuardDecision, error)
	// onError produces the denial used when a failClosed check errors.
	onError func(ev *guardEval) GuardDecision
}

type guardService struct {
	log        *logger.Logger
	profiles   ProfileSource
	roles      RoleService
	completion CompletionService
	policies   []guardPolicy
}

func NewGuardService(log *logger.Logger, profiles ProfileSource, roles RoleService, completion CompletionService) GuardService {
	gs := &guardService{
		log:        log.With("service", "GuardService"),
		profiles:   profiles,
		roles:      roles,
		completion: completion,
	}
	// Order is load-bearing: a later policy must never run once an
	// earlier one has produced a redirect.
	gs.policies = []guardPolicy{
		{
			name:    "authentication",
			mode:    failClosed,
			applies: func(GuardSpec) bool { return true },
			check:   gs.checkAuthentication,
			onError: func(*guardEval) GuardDecision { return signInDenial() },
		},
		{
			name:    "role",
			mode:    failOpen,
			applies: func(s GuardSpec) bool { return len(s.AllowedRoles) > 0 && !s.AdminOnly },
			check:   gs.checkRole,
		},
		{
			name:    "admin",
			mode:    failClosed,
			applies: func(s GuardSpec) bool { return s.AdminOnly },
			check:   gs.checkAdmin,
			onError: func(*guardEval) GuardDecision { return adminDenial() },
		},
		{
			name:    "completion",
			mode:    failOpen,
			applies: func(s GuardSpec) bool { return s.Completion != CompletionIgnore && !s.AdminOnly },
			check:   gs.checkCompletion,
		},
	}
	return gs
}

func (gs *guardService) Evaluate(ctx context.Context, identity uuid.UUID, spec GuardSpec) GuardDecision {
	ev := &guardEval{identity: identity, spec: spec}
	granted := GuardDecision{State: GuardGranted}
	for _, p := range gs.policies {
		if !p.applies(spec) {
			continue
		}
		dec, err := p.check(ctx, ev)
		if err != nil {
			if p.mode == failClosed {
				gs.log.Warn("Guard check failed closed", "policy", p.name, "error", err)
				return p.onError(ev)
			}
			gs.log.Warn("Guard check failed open", "policy", p.name, "error", err)
			continue
		}
		if dec == nil {
			continue
		}
		if dec.State == GuardDeniedRedirect {
			return *dec
		}
		// Granted with a prompt: keep evaluating remaining policies but
		// carry the prompt forward.
		if dec.OnboardingPath != "" {
			granted.OnboardingPath = dec.OnboardingPath
		}
	}
	return granted
}

func (gs *guardService) checkAuthentication(_ context.Context, ev *guardEval) (*GuardDecision, error) {
	if ev.identity == uuid.Nil {
		d := signInDenial()
		return &d, nil
	}
	return nil, nil
}

func (gs *guardService) checkRole(ctx context.Context, ev *guardEval) (*GuardDecision, error) {
	if err := gs.loadProfile(ctx, ev); err != nil {
		return nil, err
	}
	// No profile yet: a check that would otherwise deny grants instead.
	if ev.profile == nil {
		return nil, nil
	}
	gs.resolveRole(ctx, ev)
	for _, allowed := range ev.spec.AllowedRoles {
		if ev.effectiveRole == allowed {
			return nil, nil
		}
	}
	// Denial never lands on a dead end or a loop: the user is sent to
	// the home surface of the role they are actually operating under,
	// which that role's own guard always grants.
	var redirect string
	switch ev.effectiveRole {
	case types.RoleAdmin:
		redirect = routes.AdminDashboard
	case types.RoleProvider:
		redirect = routes.ProviderDashboard
	default:
		redirect = routes.CustomerDashboard
	}
	notice := &GuardNotice{Kind: NoticeAccessDenied, Message: "You do not have access to this area."}
	for _, allowed := range ev.spec.AllowedRoles {
		if ev.profile.HasRole(allowed) {
			notice = &GuardNotice{Kind: NoticeRoleSwitch, Message: "Switch your active role to open this area."}
			break
		}
	}
	return &GuardDecision{
		State:          GuardDeniedRedirect,
		Redirect:       redirect,
		ReplaceHistory: true,
		Notice:         notice,
	}, nil
}

// checkAdmin re-reads the role table instead of trusting anything
// cached on the evaluation: this policy protects operationally
// sensitive views. Denials are silent.
func (gs *guardService) checkAdmin(ctx context.Context, ev *guardEval) (*GuardDecision, error) {
	profile, err := gs.profiles.GetByUserID(ctx, nil, ev.identity)
	if err != nil {
		return nil, err
	}
	if profile == nil || !profile.HasRole(types.RoleAdmin) {
		d := adminDenial()
		return &d, nil
	}
	ev.profile = profile
	ev.profileLoaded = true
	return nil, nil
}

func (gs *guardService) checkCompletion(ctx context.Context, ev *guardEval) (*GuardDecision, error) {
	if err := gs.loadProfile(ctx, ev); err != nil {
		return nil, err
	}
	gs.resolveRole(ctx, ev)
	result := gs.completion.Evaluate(ev.profile, ev.effectiveRole)
	if result.Complete {
		return nil, nil
	}
	if ev.spec.Completion == CompletionHard {
		return &GuardDecision{
			State:          GuardDeniedRedirect,
			Redirect:       result.RequiredOnboardingPath,
			ReplaceHistory: true,
		}, nil
	}
	return &GuardDecision{
		State:          GuardGranted,
		OnboardingPath: result.RequiredOnboardingPath,
	}, nil
}

func (gs *guardService) loadProfile(ctx context.Context, ev *guardEval) error {
	if ev.profileLoaded {
		return nil
	}
	profile, err := gs.profiles.GetByUserID(ctx, nil, ev.identity)
	if err != nil {
		return err
	}
	ev.profile = profile
	ev.profileLoaded = true
	return nil
}

func (gs *guardService) resolveRole(ctx context.Context, ev *guardEval) {
	if ev.roleResolved {
		return
	}
	ev.effectiveRole, ev.isAdmin = gs.roles.Resolve(ctx, ev.identity, ev.profile)
	ev.roleResolved = true
}

func signInDenial() GuardDecision {
	return GuardDecision{
		State:          GuardDeniedRedirect,
		Redirect:       routes.SignIn,
		ReplaceHistory: true,
		Notice:         &GuardNotice{Kind: NoticeSignInRequired, Message: "Please sign in to continue."},
	}
}

func adminDenial() GuardDecision {
	return GuardDecision{
		State:          GuardDeniedRedirect,
		Redirect:       routes.Home,
		ReplaceHistory: true,
	}
}
