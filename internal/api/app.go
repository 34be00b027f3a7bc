package api

import (
	"github.com/yourname/daybar/internal"
	"github.com/yourname/daybar/internal/billing"
	"github.com/yourname/daybar/internal/coordinator"
	"github.com/yourname/daybar/internal/feature"
	"github.com/yourname/daybar/internal/storage"
)

type App interface {
	Logger() internal.Logger
	Coordinator() *coordinator.Coordinator
	Gate() *feature.Gate
	Settings() storage.SettingsRepository
	Accounts() storage.AccountRepository
	Licenses() billing.LicenseValidator
	Checkout() billing.CheckoutProvider
	CheckoutPriceID() string
}
