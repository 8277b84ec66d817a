package usecase

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/totegamma/concrnt-console/internal/domain"
)

var (
	loginTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "concrnt_console",
			Name:      "login_total",
			Help:      "Login handoffs by result.",
		},
		[]string{"result"},
	)
	registrationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "concrnt_console",
			Name:      "registration_total",
			Help:      "Registration submissions by result.",
		},
		[]string{"result"},
	)
)

// Collectors returns the usecase metrics for registration on a registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{loginTotal, registrationTotal}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrMalformedInput):
		return "malformed"
	case errors.Is(err, domain.ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, domain.ErrRegistrationClosed):
		return "closed"
	case errors.Is(err, domain.ErrInviteCodeRequired),
		errors.Is(err, domain.ErrCaptchaRequired),
		errors.Is(err, domain.ErrInvalidForm):
		return "rejected"
	default:
		return "error"
	}
}
