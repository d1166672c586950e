package entities

type DeploymentStatus string

const (
	DeploymentStatusPending   DeploymentStatus = "pending"
	DeploymentStatusBuilding  DeploymentStatus = "building"
	DeploymentStatusDeploying DeploymentStatus = "deploying"
	DeploymentStatusSuccess   DeploymentStatus = "success"
	DeploymentStatusFailed    DeploymentStatus = "failed"
)

// IsTerminal reports whether no further transitions can happen from s.
func (s DeploymentStatus) IsTerminal() bool {
	return s == DeploymentStatusSuccess || s == DeploymentStatusFailed
}

func (s DeploymentStatus) String() string {
	return string(s)
}

// NonTerminalStatuses lists every status a running pipeline can still leave.
var NonTerminalStatuses = []DeploymentStatus{
	DeploymentStatusPending,
	DeploymentStatusBuilding,
	DeploymentStatusDeploying,
}

type Environment string

const (
	EnvironmentProduction  Environment = "production"
	EnvironmentStaging     Environment = "staging"
	EnvironmentPreview     Environment = "preview"
	EnvironmentDevelopment Environment = "development"
)

func (e Environment) IsValid() bool {
	switch e {
	case EnvironmentProduction, EnvironmentStaging, EnvironmentPreview, EnvironmentDevelopment:
		return true
	}
	return false
}

func (e Environment) String() string {
	return string(e)
}
