package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectClient    = "client"
	ObjectProject   = "project"
	ObjectInvoice   = "invoice"
	ObjectSettings  = "settings"
	ObjectDashboard = "dashboard"
	ObjectAPIKey    = "api_key"
	ObjectSeed      = "seed"
)

const (
	ActionView     = "view"
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionExport   = "export"
	ActionSend     = "send"
	ActionMarkPaid = "mark_paid"
	ActionRotate   = "rotate"
	ActionRevoke   = "revoke"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidRole   = errors.New("invalid_role")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

type Service interface {
	// Authorize checks whether actor, acting with role, may perform action
	// on object. It returns ErrForbidden when the policy denies it.
	Authorize(ctx context.Context, actor string, role string, object string, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer builds a casbin enforcer persisting policies through gorm and
// seeds the built-in role policies.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, role string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	roleName := fmt.Sprintf("role:%s", role)
	if err := s.ensureGrouping(actor, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(actor, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("actor", actor),
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping links actor to exactly one role, dropping stale links left
// behind when a key's role changed.
func (s *ServiceImpl) ensureGrouping(actor string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, actor)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(actor, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(actor, roleName)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Viewer permissions (read-only)
		{"role:viewer", ObjectClient, ActionView},
		{"role:viewer", ObjectProject, ActionView},
		{"role:viewer", ObjectInvoice, ActionView},
		{"role:viewer", ObjectInvoice, ActionExport},
		{"role:viewer", ObjectSettings, ActionView},
		{"role:viewer", ObjectDashboard, ActionView},

		// Bookkeeper permissions
		{"role:bookkeeper", ObjectClient, ActionCreate},
		{"role:bookkeeper", ObjectClient, ActionUpdate},
		{"role:bookkeeper", ObjectClient, ActionDelete},
		{"role:bookkeeper", ObjectProject, ActionCreate},
		{"role:bookkeeper", ObjectProject, ActionUpdate},
		{"role:bookkeeper", ObjectProject, ActionDelete},
		{"role:bookkeeper", ObjectInvoice, ActionCreate},
		{"role:bookkeeper", ObjectInvoice, ActionUpdate},
		{"role:bookkeeper", ObjectInvoice, ActionDelete},
		{"role:bookkeeper", ObjectInvoice, ActionSend},
		{"role:bookkeeper", ObjectInvoice, ActionMarkPaid},

		// Admin permissions
		{"role:admin", ObjectSettings, ActionUpdate},
		{"role:admin", ObjectSeed, ActionCreate},
		{"role:admin", ObjectAPIKey, ActionView},
		{"role:admin", ObjectAPIKey, ActionCreate},
		{"role:admin", ObjectAPIKey, ActionRotate},
		{"role:admin", ObjectAPIKey, ActionRevoke},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}

	inherits := [][]string{
		{"role:bookkeeper", "role:viewer"},
		{"role:admin", "role:bookkeeper"},
	}
	for _, rule := range inherits {
		if _, err := enforcer.AddGroupingPolicy(rule); err != nil {
			return err
		}
	}
	return nil
}
