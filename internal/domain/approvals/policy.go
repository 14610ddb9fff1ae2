package approvals

import "github.com/koshtony/beezy-beta/internal/platform/config"

// Policy selects the engine behaviours left open by the workflow model.
type Policy struct {
	// LevelClearing is config.LevelPolicyAny or config.LevelPolicyAll.
	LevelClearing string
	// CreatorNotify is config.CreatorNotifyEachStep or config.CreatorNotifyTerminal.
	CreatorNotify string
	// Retention is config.RetentionRetain or config.RetentionPurge.
	Retention string
}

func DefaultPolicy() Policy {
	return Policy{
		LevelClearing: config.LevelPolicyAny,
		CreatorNotify: config.CreatorNotifyEachStep,
		Retention:     config.RetentionRetain,
	}
}

func PolicyFromConfig(cfg config.ApprovalConfig) Policy {
	p := DefaultPolicy()
	if cfg.LevelPolicy != "" {
		p.LevelClearing = cfg.LevelPolicy
	}
	if cfg.CreatorNotify != "" {
		p.CreatorNotify = cfg.CreatorNotify
	}
	if cfg.TargetRetention != "" {
		p.Retention = cfg.TargetRetention
	}
	return p
}

func (p Policy) clearsOnFirstApproval() bool {
	return p.LevelClearing != config.LevelPolicyAll
}

func (p Policy) notifiesEachStep() bool {
	return p.CreatorNotify != config.CreatorNotifyTerminal
}

func (p Policy) purgesOnRemoval() bool {
	return p.Retention == config.RetentionPurge
}
