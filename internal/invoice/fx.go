package invoice

import (
	"github.com/smallbiznis/bizadmin/internal/invoice/render"
	"github.com/smallbiznis/bizadmin/internal/invoice/repository"
	"github.com/smallbiznis/bizadmin/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(render.NewRenderer),
	fx.Provide(service.NewService),
	fx.Provide(service.NewDocumentService),
)
