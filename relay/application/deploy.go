package application

import (
	"context"
	"strings"

	"rebuild-relay/relay/domain"

	glog "github.com/goliatone/go-logger/glog"
)

// DeployService é o caminho direto: todo deploy validado vira um dispatch
// imediato, sem passar pelo store.
type DeployService struct {
	Dispatcher domain.TargetedDispatcher
	// Projects mapeia project id -> repositório ("owner/repo").
	Projects map[string]string
	// DefaultTarget é usado quando o projeto não está mapeado. Vazio = 404.
	DefaultTarget string
	Stats         domain.StatsStore
	Now           domain.Clock
	Logger        glog.Logger
}

func (s DeployService) Handle(ctx context.Context, ev domain.DeployEvent) error {
	logger := glog.Ensure(s.Logger)

	projectID := strings.TrimSpace(ev.Project.ID)
	if projectID == "" {
		logger.Warn("deploy event without project id")
		return domain.ValidationError("missing project id in payload", nil)
	}

	target, err := s.Resolve(projectID)
	if err != nil {
		logger.Warn("deploy event for unknown project", "project_id", projectID)
		return err
	}
	if s.Dispatcher == nil {
		return domain.ConfigurationError("dispatcher is not configured")
	}

	if err := s.Dispatcher.DispatchTo(ctx, target, domain.EventRailwayDeploy, ev); err != nil {
		s.record(ctx, domain.OutcomeFailed)
		logger.Error("deploy dispatch failed",
			"event_type", domain.EventRailwayDeploy,
			"project_id", projectID,
			"target", target,
			"error", err,
		)
		return err
	}
	s.record(ctx, domain.OutcomeAccepted)

	logger.Info("deploy rebuild dispatched",
		"event_type", domain.EventRailwayDeploy,
		"project_id", projectID,
		"target", target,
	)
	return nil
}

// Resolve retorna o repositório do projeto.
func (s DeployService) Resolve(projectID string) (string, error) {
	if target, ok := s.Projects[projectID]; ok && strings.TrimSpace(target) != "" {
		return target, nil
	}
	if s.DefaultTarget != "" {
		return s.DefaultTarget, nil
	}
	return "", domain.ProjectNotFoundError(projectID)
}

func (s DeployService) record(ctx context.Context, outcome string) {
	if s.Stats == nil {
		return
	}
	_ = s.Stats.Record(ctx, domain.StatsEvent{
		Route:   "dispatch " + domain.EventRailwayDeploy,
		Outcome: outcome,
		At:      s.Now.Time(),
	})
}
