package api

import (
	"github.com/yourname/daybar/internal"
	"github.com/yourname/daybar/internal/billing"
	"github.com/yourname/daybar/internal/coordinator"
	"github.com/yourname/daybar/internal/feature"
	"github.com/yourname/daybar/internal/storage"
)

// Server bundles the collaborators the handlers need. It is the one App
// implementation; tests build it the same way the daemon does.
type Server struct {
	Log      internal.Logger
	Coord    *coordinator.Coordinator
	Features *feature.Gate
	Setting  storage.SettingsRepository
	Account  storage.AccountRepository
	License  billing.LicenseValidator
	Billing  billing.CheckoutProvider
	PriceID  string
}

func (s *Server) Logger() internal.Logger               { return s.Log }
func (s *Server) Coordinator() *coordinator.Coordinator { return s.Coord }
func (s *Server) Gate() *feature.Gate                   { return s.Features }
func (s *Server) Settings() storage.SettingsRepository  { return s.Setting }
func (s *Server) Accounts() storage.AccountRepository   { return s.Account }
func (s *Server) Licenses() billing.LicenseValidator    { return s.License }
func (s *Server) Checkout() billing.CheckoutProvider    { return s.Billing }
func (s *Server) CheckoutPriceID() string               { return s.PriceID }

var _ App = (*Server)(nil)
