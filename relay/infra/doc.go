// Package infra contém implementações concretas dos contratos de domain.
//
// Exemplos:
//   - RedisStore / MongoStore / MemoryStore: domain.KVStore com TTL por chave
//   - GitHubDispatcher: domain.Dispatcher via repository_dispatch
//   - LimiterStore: token bucket por chave usando golang.org/x/time/rate
//   - ChanPool: semáforo simples para limite de concorrência
//   - RedisStatsStore / MemoryStatsStore: domain.StatsStore
package infra
