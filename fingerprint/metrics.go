package fingerprint

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const errTypeLabel = "error_type"

var (
	verifications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fingerprint_verifications",
		Help: "The number of verified map fingerprints.",
	})

	verificationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fingerprint_verification_errors",
		Help: "The errors that occurred while verifying a map fingerprint.",
	}, []string{
		errTypeLabel,
	})
)

func instrumentVerification(verify func() error) error {
	verifications.Inc()

	err := verify()
	if err != nil {
		verificationErrors.
			With(prometheus.Labels{
				errTypeLabel: errors.Type(err),
			}).
			Inc()
	}
	return err
}
