package services

import (
	"github.com/taskhive/taskhive-backend/internal/routes"
	"github.com/taskhive/taskhive-backend/internal/types"
)

// CompletionResult says whether the user may use role-gated features
// without an onboarding interstitial, and where to send them if not.
type CompletionResult struct {
	Complete               bool   `json:"complete"`
	RequiredOnboardingPath string `json:"required_onboarding_path,omitempty"`
}

// CompletionService is advisory: hard gates redirect on an incomplete
// result, soft gates render anyway with a prompt. Which happens is the
// caller's choice, not a second evaluator.
type CompletionService interface {
	Evaluate(profile *types.Profile, effectiveRole types.Role) CompletionResult
}

type completionService struct{}

func NewCompletionService() CompletionService {
	return completionService{}
}

func (completionService) Evaluate(profile *types.Profile, effectiveRole types.Role) CompletionResult {
	// Unknown completion state must never lock a user out of their own
	// account, so a missing profile counts as complete.
	if profile == nil {
		return CompletionResult{Complete: true}
	}
	if effectiveRole == types.RoleAdmin && profile.HasRole(types.RoleAdmin) {
		return CompletionResult{Complete: true}
	}
	switch effectiveRole {
	case types.RoleProvider:
		// Provider onboarding has two phases: basic info, then document
		// verification. Phase 1 always comes first.
		if !profile.BasicProfileCompleted {
			return CompletionResult{Complete: false, RequiredOnboardingPath: routes.OnboardingProviderBasic}
		}
		if !profile.ProfileCompleted {
			return CompletionResult{Complete: false, RequiredOnboardingPath: routes.OnboardingProviderVerification}
		}
		return CompletionResult{Complete: true}
	default:
		if !profile.ProfileCompleted {
			return CompletionResult{Complete: false, RequiredOnboardingPath: routes.OnboardingCustomer}
		}
		return CompletionResult{Complete: true}
	}
}
