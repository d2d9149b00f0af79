package domain

// DeployEvent é o payload do webhook de deploy (formato Railway).
// É repassado inteiro como client payload do dispatch.
type DeployEvent struct {
	Type      string        `json:"type"`
	Timestamp string        `json:"timestamp"`
	Project   DeployProject `json:"project"`
}

type DeployProject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
