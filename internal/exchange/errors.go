package exchange

import "errors"

// ErrInfrastructure wraps collaborator faults (store or log unreachable,
// broken house account provisioning). Such failures are returned to the
// caller instead of being recorded as a declined exchange.
var ErrInfrastructure = errors.New("exchange infrastructure fault")

// Observations attached to declined exchange records.
const (
	ObsInvalidAmount      = "invalid base amount: must be a positive number"
	ObsSameCurrency       = "base and counter currencies cannot be the same"
	ObsRateNotFound       = "exchange rate not found for %s/%s"
	ObsInsufficientFunds  = "insufficient counter funds"
	ObsWithdrawFailed     = "could not withdraw from client's account"
	ObsDepositFailed      = "could not transfer to client's account"
	obsCompensationFailed = "; compensation failed"
)

// IsInfrastructure reports whether err is a collaborator fault rather than a
// business outcome.
func IsInfrastructure(err error) bool {
	return errors.Is(err, ErrInfrastructure)
}
