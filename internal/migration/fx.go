package migration

import (
	auditdomain "github.com/smallbiznis/comiso/internal/audit/domain"
	"github.com/smallbiznis/comiso/internal/config"
	eventsdomain "github.com/smallbiznis/comiso/internal/events/domain"
	policydomain "github.com/smallbiznis/comiso/internal/policy/domain"
	transactiondomain "github.com/smallbiznis/comiso/internal/transaction/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// mysql and sqlite deployments rely on the model definitions.
		return conn.AutoMigrate(
			&policydomain.CommissionRule{},
			&transactiondomain.CommissionTransaction{},
			&eventsdomain.CommissionEvent{},
			&auditdomain.AuditLog{},
		)
	}),
)
