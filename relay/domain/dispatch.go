package domain

import "context"

// Dispatcher chama a API externa de dispatch (ex: GitHub repository_dispatch).
//
// Não faz retry: quem chama decide. Falhas são ConfigurationError (credencial ou
// alvo ausente) ou *UpstreamError (status não-2xx / falha de transporte).
type Dispatcher interface {
	Dispatch(ctx context.Context, eventType string, clientPayload any) error
}

// TargetedDispatcher permite escolher o repositório alvo por chamada.
// Usado no caminho de deploy, onde o projeto define o repositório.
type TargetedDispatcher interface {
	Dispatcher
	DispatchTo(ctx context.Context, target string, eventType string, clientPayload any) error
}
