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
	"github.com/smallbiznis/tallybridge/internal/auth"
	"github.com/smallbiznis/tallybridge/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectLedger    = "ledger"
	ObjectInvoice   = "invoice"
	ObjectSyncLog   = "sync_log"
	ObjectTally     = "tally"
	ObjectDashboard = "dashboard"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionDelete = "delete"
	ActionSync   = "sync"
	ActionManage = "manage"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

type Service interface {
	Authorize(ctx context.Context, subject, role, object, action string) error
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

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
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

// Authorize binds subject to role and checks the role policy for
// object/action.
func (s *ServiceImpl) Authorize(ctx context.Context, subject, role, object, action string) error {
	subject = strings.TrimSpace(subject)
	role = strings.ToLower(strings.TrimSpace(role))
	if subject == "" || !auth.ValidRole(role) {
		return ErrInvalidActor
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
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		logger.WithContext(ctx, s.log).Info("authorization denied",
			zap.String("subject", subject),
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role link per subject so a changed
// role claim replaces the old one.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Analyst permissions (read-only)
		{"role:analyst", ObjectLedger, ActionView},
		{"role:analyst", ObjectInvoice, ActionView},
		{"role:analyst", ObjectSyncLog, ActionView},
		{"role:analyst", ObjectDashboard, ActionView},
		{"role:analyst", ObjectTally, ActionView},

		// Accountant permissions
		{"role:accountant", ObjectLedger, ActionView},
		{"role:accountant", ObjectLedger, ActionCreate},
		{"role:accountant", ObjectLedger, ActionSync},
		{"role:accountant", ObjectInvoice, ActionView},
		{"role:accountant", ObjectInvoice, ActionCreate},
		{"role:accountant", ObjectInvoice, ActionDelete},
		{"role:accountant", ObjectSyncLog, ActionView},
		{"role:accountant", ObjectDashboard, ActionView},
		{"role:accountant", ObjectTally, ActionView},

		// Admin permissions
		{"role:admin", ObjectLedger, ActionView},
		{"role:admin", ObjectLedger, ActionCreate},
		{"role:admin", ObjectLedger, ActionDelete},
		{"role:admin", ObjectLedger, ActionSync},
		{"role:admin", ObjectInvoice, ActionView},
		{"role:admin", ObjectInvoice, ActionCreate},
		{"role:admin", ObjectInvoice, ActionDelete},
		{"role:admin", ObjectSyncLog, ActionView},
		{"role:admin", ObjectDashboard, ActionView},
		{"role:admin", ObjectTally, ActionView},
		{"role:admin", ObjectTally, ActionManage},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
