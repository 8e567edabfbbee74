package bankgateway

import (
	"github.com/hanainplan/backend/internal/domain/banking"
	"github.com/hanainplan/backend/internal/infrastructure/config"
)

// BuildRegistry wires one HTTP gateway per partner bank from the
// gateway configuration and validates the result against the routing
// table, so a bank without a gateway fails at startup instead of
// mid-transfer.
func BuildRegistry(cfg config.GatewayConfig) (*banking.GatewayRegistry, error) {
	registry := banking.NewGatewayRegistry(
		NewHTTPGateway(banking.BankCodeHana, cfg.HanaBaseURL, cfg.RequestTimeout, cfg.MaxIdleConns),
		NewHTTPGateway(banking.BankCodeKookmin, cfg.KookminBaseURL, cfg.RequestTimeout, cfg.MaxIdleConns),
		NewHTTPGateway(banking.BankCodeShinhan, cfg.ShinhanBaseURL, cfg.RequestTimeout, cfg.MaxIdleConns),
	)
	if err := registry.Validate(); err != nil {
		return nil, err
	}
	return registry, nil
}
