package companysettings

import (
	"github.com/smallbiznis/bizadmin/internal/companysettings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("companysettings.service",
	fx.Provide(service.New),
)
