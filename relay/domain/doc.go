// Package domain define os tipos e contratos do relay de rebuild.
//
// Aqui ficam o modelo do debounce (ChangeRecord, PendingBatch, ScheduledRebuild),
// o contrato do key-value store, o contrato de dispatch e os erros classificados.
// Não depende de implementações concretas; de net/http usa só as constantes
// de status que acompanham cada erro classificado.
package domain
