package pipeline

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"signalexecutor/src/venue"
)

type CredentialStatus int

const (
	CredentialsValid CredentialStatus = iota
	CredentialsInvalid
	CredentialsForbidden
	CredentialsTransient
	CredentialsUnknown
)

func (s CredentialStatus) String() string {
	switch s {
	case CredentialsValid:
		return "valid"
	case CredentialsInvalid:
		return "invalid_credentials"
	case CredentialsForbidden:
		return "insufficient_permissions"
	case CredentialsTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// CredentialCheck is the outcome of a balance probe against the venue.
type CredentialCheck struct {
	Status  CredentialStatus
	Message string
	Balance decimal.Decimal
	Err     error
}

func (c CredentialCheck) OK() bool {
	return c.Status == CredentialsValid
}

// ValidateCredentials reads the futures balance and classifies any failure.
func (e *Executor) ValidateCredentials(ctx context.Context) CredentialCheck {
	balance, err := e.gateway.AvailableBalance(ctx)
	if err == nil {
		return CredentialCheck{
			Status:  CredentialsValid,
			Balance: balance,
			Message: fmt.Sprintf("Valid! Balance: %s USDT", balance.StringFixed(2)),
		}
	}

	check := CredentialCheck{Err: err}
	switch venue.KindOf(err) {
	case venue.KindUnauthorized:
		check.Status = CredentialsInvalid
		check.Message = "Invalid API secret"
	case venue.KindForbidden:
		check.Status = CredentialsForbidden
		check.Message = "API key lacks futures trading permission"
	case venue.KindTransient:
		check.Status = CredentialsTransient
		check.Message = fmt.Sprintf("Venue unreachable: %v", err)
	default:
		check.Status = CredentialsUnknown
		check.Message = fmt.Sprintf("Validation failed: %v", err)
	}

	e.logger.WithError(err).WithField("status", check.Status).Warn("Credential validation failed")
	return check
}
