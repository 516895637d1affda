package pgstore

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/dwarvesf/payment-listener/internal/utils/config"
	"github.com/dwarvesf/payment-listener/internal/utils/logger"
)

const DriverMySQL = "mysql"

// New opens the order database. It exits the process when the connection cannot be made.
func New(appConfig *config.AppConfig, logger *logger.Logger) *gorm.DB {
	db, err := connect(appConfig.Postgres)
	if err != nil {
		logger.Fatal("[pgstore][New] failed to connect to database", map[string]string{
			"driver": appConfig.Postgres.Driver,
			"error":  err.Error(),
		})
	}

	logger.Info("[pgstore][New] database connected", map[string]string{
		"driver": appConfig.Postgres.Driver,
		"host":   appConfig.Postgres.Host,
	})
	return db
}

func connect(conn config.DBConnection) (*gorm.DB, error) {
	return gorm.Open(Dialector(conn),
		&gorm.Config{
			NamingStrategy: schema.NamingStrategy{
				SingularTable: false,
			},
		})
}

// Dialector picks the gorm dialect for the configured driver, postgres unless DB_DRIVER=mysql.
func Dialector(conn config.DBConnection) gorm.Dialector {
	if conn.Driver == DriverMySQL {
		ds := fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC&multiStatements=true",
			conn.User,
			conn.Pass,
			conn.Host,
			conn.Port,
			conn.Name,
		)
		return mysql.Open(ds)
	}

	ds := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		conn.Host,
		conn.User,
		conn.Pass,
		conn.Name,
		conn.Port,
		conn.SSLMode,
	)
	return postgres.Open(ds)
}
