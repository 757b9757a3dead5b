package providers

import (
	"github.com/smallbiznis/bizadmin/internal/providers/email"
	"github.com/smallbiznis/bizadmin/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
