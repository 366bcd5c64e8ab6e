package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// INSERT IGNORE would also swallow foreign key failures, so conflicts are
// absorbed with a no-op update instead. An unchanged row reports zero
// affected rows.
var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id CHAR(36) NOT NULL PRIMARY KEY,
			player_uuid CHAR(36) NOT NULL,
			created_at DATETIME(6) NOT NULL,
			UNIQUE KEY uq_users_player (player_uuid)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS cosmetics (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			category ENUM('cape', 'emote') NOT NULL,
			path VARCHAR(512) NULL
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS user_cosmetics (
			user_id CHAR(36) NOT NULL,
			cosmetic_id BIGINT NOT NULL,
			transaction_id VARCHAR(128) NOT NULL,
			active BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME(6) NOT NULL,
			PRIMARY KEY (user_id, cosmetic_id),
			KEY idx_user_cosmetics_active (active, user_id),
			CONSTRAINT fk_uc_user FOREIGN KEY (user_id) REFERENCES users(id),
			CONSTRAINT fk_uc_cosmetic FOREIGN KEY (cosmetic_id) REFERENCES cosmetics(id)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS cosmetic_packages (
			package_id BIGINT NOT NULL,
			cosmetic_id BIGINT NOT NULL,
			PRIMARY KEY (package_id, cosmetic_id),
			CONSTRAINT fk_cp_cosmetic FOREIGN KEY (cosmetic_id) REFERENCES cosmetics(id)
		) ENGINE=InnoDB`,
	},
	insertUser: `INSERT INTO users (id, player_uuid, created_at) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE id = id`,
	insertGrant: `INSERT INTO user_cosmetics (user_id, cosmetic_id, transaction_id, active, created_at)
		VALUES (?, ?, ?, FALSE, ?)
		ON DUPLICATE KEY UPDATE user_id = user_id`,
	insertPackage: `INSERT INTO cosmetic_packages (package_id, cosmetic_id) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE package_id = package_id`,
	// Under REPEATABLE READ a plain re-read would reuse the snapshot taken
	// before a concurrent insert committed.
	lockingRead: " LOCK IN SHARE MODE",
}

// NewMySQLRepository creates a MySQL repository. The DSN must set parseTime=true.
func NewMySQLRepository(ctx context.Context, dsn string, logger *zap.Logger) (*SQLRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	repo := newSQLRepository(db, mysqlDialect)
	if err := repo.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("mysql repository initialized")
	return repo, nil
}
