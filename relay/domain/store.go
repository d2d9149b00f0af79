package domain

import (
	"context"
	"time"
)

// KVStore é o contrato mínimo do armazenamento compartilhado.
//
// Não há transação nem compare-and-swap: só get/put/delete com TTL por chave.
// Valores são registros serializados como texto (JSON).
type KVStore interface {
	// Get retorna (valor, true, nil) se a chave existir e não tiver expirado.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put grava o valor com TTL. ttl <= 0 significa sem expiração.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete remove as chaves. Chaves ausentes não são erro.
	Delete(ctx context.Context, keys ...string) error
}
