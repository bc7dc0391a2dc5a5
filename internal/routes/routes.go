// Package routes holds the route paths shared by the guard chain, the
// navigation surface and the router, so denial targets and nav entries
// cannot drift apart.
package routes

const (
	Home              = "/"
	SignIn            = "/auth/signin"
	PostTask          = "/post-task"
	CustomerDashboard = "/dashboard/customer"
	ProviderDashboard = "/dashboard/provider"
	AdminDashboard    = "/admin"

	OnboardingCustomer             = "/onboarding/customer"
	OnboardingProviderBasic        = "/onboarding/provider/basic"
	OnboardingProviderVerification = "/onboarding/provider/verification"
)
