// Package application contém os casos de uso do relay: o debounce de mudanças
// de conteúdo (Debouncer), a verificação agendada que envia o batch (Checker)
// e o caminho direto de deploy (DeployService).
//
// Depende apenas de domain; todo estado entre invocações fica no KVStore.
// Não há lock nem compare-and-swap: corridas de read-modify-write entre
// RecordChange concorrentes podem perder um evento, e checks concorrentes
// podem disparar o mesmo batch duas vezes.
package application
