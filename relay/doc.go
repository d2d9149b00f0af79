// Package relay é a superfície HTTP do relay de rebuild.
//
// Visão geral (camadas):
//
//   - domain: tipos, contratos e erros (sem net/http)
//   - application: debounce, check agendado e caminho de deploy
//   - infra: KV stores (Redis, Mongo, memória), dispatcher GitHub, limiter, stats
//   - relay (este pacote): rotas, validação de segredo, admissão e tradução de erro para status
//
// Rotas:
//
//	POST /deploy-webhook   dispatch imediato (railway_deploy)
//	POST /content-webhook  grava a mudança no batch pendente
//	POST /rebuild-check    envia o batch se a janela venceu
//
// Método diferente de POST responde 405; paths desconhecidos, 404.
package relay
