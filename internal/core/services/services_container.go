package services

import (
	portsrepo "github.com/docuflow/docuflow/internal/core/ports/repositories"
	portssvc "github.com/docuflow/docuflow/internal/core/ports/services"
)

// NewServiceContainer wires every service from the repository provider and
// the frozen schema registry. The registry is the only shared component and
// is passed explicitly; there is no process-wide mutable global.
func NewServiceContainer(repos portsrepo.RepositoryProvider, registry *SchemaRegistry) *portssvc.ServiceContainer {
	accountSvc := NewAccountService(repos.AccountRepo)
	validationSvc := NewValidationService(registry, repos.DocumentRepo)
	postingSvc := NewPostingService(registry, accountSvc)
	documentSvc := NewDocumentService(registry, validationSvc, postingSvc, repos.DocumentRepo, repos.LedgerRepo)
	ledgerSvc := NewLedgerService(repos.LedgerRepo, repos.AccountRepo)

	return &portssvc.ServiceContainer{
		Document: documentSvc,
		Account:  accountSvc,
		Ledger:   ledgerSvc,
	}
}
