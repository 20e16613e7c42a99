// Package vpn implements the VPN/Proxy Aggregator: a concurrent
// multi-provider dispatcher that queries heterogeneous IP-reputation
// backends, tolerates partial failure, and computes a consensus verdict.
package vpn

import (
	"context"

	"github.com/geosentry/geosentry/pkg/models"
)

// Provider is one IP-reputation backend. Enabled reports whether the
// provider's required credential is configured; disabled providers are
// skipped entirely by the Aggregator. Call must respect ctx's deadline and
// never block past it.
type Provider interface {
	Name() string
	Enabled() bool
	Call(ctx context.Context, ip string) (models.VPNProviderResult, error)
}
