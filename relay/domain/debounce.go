package domain

import "time"

// Chaves fixas do debounce. Não existe chave por projeto neste caminho:
// existe no máximo um batch e um marcador por vez.
const (
	PendingBatchKey     = "pending_batch"
	ScheduledRebuildKey = "scheduled_rebuild"
)

const (
	EventContentUpdate = "content_update"
	EventRailwayDeploy = "railway_deploy"
)

// ChangeRecord é uma notificação de mudança de conteúdo.
//
// Timestamp é o instante de ingestão (Unix ms), não o horário original do evento.
type ChangeRecord struct {
	Collection string `json:"collection"`
	DocID      string `json:"docId"`
	Timestamp  int64  `json:"timestamp"`
}

// PendingBatch acumula as mudanças ainda não enviadas, em ordem de chegada.
type PendingBatch struct {
	LastUpdate     int64          `json:"lastUpdate"`
	PendingChanges []ChangeRecord `json:"pendingChanges"`
}

// ScheduledRebuild é o marcador da janela armada.
type ScheduledRebuild struct {
	TriggerTime int64  `json:"triggerTime"`
	Type        string `json:"type"`
}

// Due informa se a janela já venceu em now (Unix ms).
func (s ScheduledRebuild) Due(now int64) bool {
	return now >= s.TriggerTime
}

// BatchPayload é o client payload enviado no dispatch do caminho de conteúdo.
type BatchPayload struct {
	BatchID        string         `json:"batchId"`
	BatchedChanges []ChangeRecord `json:"batchedChanges"`
	TotalChanges   int            `json:"totalChanges"`
	Timestamp      int64          `json:"timestamp"`
}

// Clock retorna o instante atual. Injetado para permitir testes determinísticos.
type Clock func() time.Time

func SystemClock() time.Time { return time.Now().UTC() }

// Time devolve o instante atual; Clock nil usa o relógio do sistema.
func (c Clock) Time() time.Time {
	if c == nil {
		return SystemClock()
	}
	return c()
}

// UnixMilli converte um instante do Clock para o formato armazenado.
func (c Clock) UnixMilli() int64 {
	return c.Time().UnixMilli()
}
