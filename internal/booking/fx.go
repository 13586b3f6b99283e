package booking

import (
	"github.com/smallbiznis/motorbook/internal/booking/service"
	"go.uber.org/fx"
)

var Module = fx.Module("booking.service",
	fx.Provide(service.New),
)
