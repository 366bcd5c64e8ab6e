package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"plus-api/internal/model"
	"plus-api/pkg/uid"

	"github.com/google/uuid"
)

// dialect captures the statements that differ between SQL backends.
type dialect struct {
	name string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
	// schema statements, executed one at a time
	schema []string
	// insert-or-ignore on users.player_uuid
	insertUser string
	// insert-or-ignore on user_cosmetics(user_id, cosmetic_id)
	insertGrant string
	// insert-or-ignore on cosmetic_packages
	insertPackage string
	// suffix for reads that must observe rows committed after the
	// transaction's snapshot was taken
	lockingRead string
	// CreateCosmetic uses RETURNING instead of LastInsertId
	returningID bool
}

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// placeholders returns "?, ?, ..." with n entries.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// SQLRepository implements Repository on top of database/sql.
type SQLRepository struct {
	db      *sql.DB
	dialect dialect
}

var _ Repository = (*SQLRepository)(nil)

func newSQLRepository(db *sql.DB, d dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: d}
}

// createTables applies the dialect schema.
func (r *SQLRepository) createTables(ctx context.Context) error {
	for _, stmt := range r.dialect.schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// InTx runs fn inside a transaction.
func (r *SQLRepository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx, dialect: r.dialect}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListCosmetics returns all cosmetics ordered by ID.
func (r *SQLRepository) ListCosmetics(ctx context.Context, category *model.Category) ([]model.Cosmetic, error) {
	query := `SELECT id, category, path FROM cosmetics`
	var args []interface{}
	if category != nil {
		query += ` WHERE category = ?`
		args = append(args, string(*category))
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cosmetics: %w", err)
	}
	defer rows.Close()

	return scanCosmetics(rows)
}

// GetCosmetic returns a single cosmetic.
func (r *SQLRepository) GetCosmetic(ctx context.Context, id int64) (*model.Cosmetic, error) {
	query := r.dialect.rebind(`SELECT id, category, path FROM cosmetics WHERE id = ?`)

	var c model.Cosmetic
	var category string
	var path sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &category, &path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cosmetic %d: %w", id, err)
	}
	c.Category = model.Category(category)
	if path.Valid {
		c.Path = &path.String
	}
	return &c, nil
}

// OwnedCosmetics returns every ownership edge of a player joined with its cosmetic.
func (r *SQLRepository) OwnedCosmetics(ctx context.Context, player uuid.UUID) ([]model.OwnedCosmetic, error) {
	query := r.dialect.rebind(`
		SELECT c.id, c.category, c.path, uc.transaction_id, uc.active
		FROM user_cosmetics uc
		JOIN users u ON u.id = uc.user_id
		JOIN cosmetics c ON c.id = uc.cosmetic_id
		WHERE u.player_uuid = ?
		ORDER BY c.id`)

	rows, err := r.db.QueryContext(ctx, query, player.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query owned cosmetics: %w", err)
	}
	defer rows.Close()

	var owned []model.OwnedCosmetic
	for rows.Next() {
		var o model.OwnedCosmetic
		var category string
		var path sql.NullString
		if err := rows.Scan(&o.Cosmetic.ID, &category, &path, &o.TransactionID, &o.Active); err != nil {
			return nil, fmt.Errorf("failed to scan owned cosmetic: %w", err)
		}
		o.Cosmetic.Category = model.Category(category)
		if path.Valid {
			p := path.String
			o.Cosmetic.Path = &p
		}
		owned = append(owned, o)
	}
	return owned, rows.Err()
}

// ActiveCosmetics returns active cosmetic IDs for a batch of players.
func (r *SQLRepository) ActiveCosmetics(ctx context.Context, players []uuid.UUID) (map[uuid.UUID][]int64, error) {
	result := make(map[uuid.UUID][]int64)
	if len(players) == 0 {
		return result, nil
	}

	args := make([]interface{}, len(players))
	for i, p := range players {
		args[i] = p.String()
	}

	query := r.dialect.rebind(`
		SELECT u.player_uuid, uc.cosmetic_id
		FROM user_cosmetics uc
		JOIN users u ON u.id = uc.user_id
		WHERE uc.active = TRUE AND u.player_uuid IN (` + placeholders(len(players)) + `)
		ORDER BY u.player_uuid, uc.cosmetic_id`)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query active cosmetics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		var cosmeticID int64
		if err := rows.Scan(&raw, &cosmeticID); err != nil {
			return nil, fmt.Errorf("failed to scan active cosmetic: %w", err)
		}
		player, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid player uuid %q in users table: %w", raw, err)
		}
		result[player] = append(result[player], cosmeticID)
	}
	return result, rows.Err()
}

// PackageCosmetics returns package mappings ordered by package then cosmetic.
func (r *SQLRepository) PackageCosmetics(ctx context.Context, packageIDs []int64) ([]model.CosmeticPackage, error) {
	if len(packageIDs) == 0 {
		return nil, nil
	}

	query := r.dialect.rebind(`
		SELECT package_id, cosmetic_id
		FROM cosmetic_packages
		WHERE package_id IN (` + placeholders(len(packageIDs)) + `)
		ORDER BY package_id, cosmetic_id`)

	rows, err := r.db.QueryContext(ctx, query, int64Args(packageIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query package cosmetics: %w", err)
	}
	defer rows.Close()

	var mappings []model.CosmeticPackage
	for rows.Next() {
		var m model.CosmeticPackage
		if err := rows.Scan(&m.PackageID, &m.CosmeticID); err != nil {
			return nil, fmt.Errorf("failed to scan package mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// CreateCosmetic inserts a cosmetic and returns it with its generated ID.
func (r *SQLRepository) CreateCosmetic(ctx context.Context, category model.Category, path *string) (*model.Cosmetic, error) {
	var pathArg interface{}
	if path != nil {
		pathArg = *path
	}

	query := `INSERT INTO cosmetics (category, path) VALUES (?, ?)`
	var id int64
	if r.dialect.returningID {
		err := r.db.QueryRowContext(ctx, r.dialect.rebind(query+` RETURNING id`), string(category), pathArg).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("failed to create cosmetic: %w", err)
		}
	} else {
		res, err := r.db.ExecContext(ctx, query, string(category), pathArg)
		if err != nil {
			return nil, fmt.Errorf("failed to create cosmetic: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return nil, fmt.Errorf("failed to read cosmetic id: %w", err)
		}
	}

	return &model.Cosmetic{ID: id, Category: category, Path: path}, nil
}

// MapPackage links a package to a cosmetic.
func (r *SQLRepository) MapPackage(ctx context.Context, packageID, cosmeticID int64) error {
	if _, err := r.GetCosmetic(ctx, cosmeticID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(r.dialect.insertPackage), packageID, cosmeticID)
	if err != nil {
		return fmt.Errorf("failed to map package %d to cosmetic %d: %w", packageID, cosmeticID, err)
	}
	return nil
}

// GetStats returns row counts and connection pool statistics.
func (r *SQLRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{
		"backend": r.dialect.name,
	}

	for _, table := range []string{"users", "cosmetics", "user_cosmetics", "cosmetic_packages"} {
		var count int64
		if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = count
	}

	var active int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_cosmetics WHERE active = TRUE`).Scan(&active); err != nil {
		return nil, fmt.Errorf("failed to count active selections: %w", err)
	}
	stats["active_selections"] = active

	pool := r.db.Stats()
	stats["pool_open_connections"] = pool.OpenConnections
	stats["pool_in_use"] = pool.InUse
	stats["pool_idle"] = pool.Idle

	return stats, nil
}

// Ping verifies the connection.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// sqlTx implements Tx for a *sql.Tx.
type sqlTx struct {
	tx      *sql.Tx
	dialect dialect
}

var _ Tx = (*sqlTx)(nil)

func (t *sqlTx) selectUser(ctx context.Context, player uuid.UUID, suffix string) (*model.User, error) {
	query := t.dialect.rebind(`SELECT id, created_at FROM users WHERE player_uuid = ?` + suffix)

	u := model.User{PlayerUUID: player}
	err := t.tx.QueryRowContext(ctx, query, player.String()).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetOrCreateUser looks the player up, inserts on miss and re-reads. The
// insert ignores a conflicting row created by a concurrent transaction.
func (t *sqlTx) GetOrCreateUser(ctx context.Context, player uuid.UUID) (*model.User, error) {
	u, err := t.selectUser(ctx, player, "")
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up user %s: %w", player, err)
	}

	_, err = t.tx.ExecContext(ctx, t.dialect.rebind(t.dialect.insertUser),
		uid.NewSortable(), player.String(), time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to insert user %s: %w", player, err)
	}

	u, err = t.selectUser(ctx, player, t.dialect.lockingRead)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read user %s: %w", player, err)
	}
	return u, nil
}

// GrantOwnership inserts each grant with insert-or-ignore and reports the
// rows that were actually written.
func (t *sqlTx) GrantOwnership(ctx context.Context, userID string, grants []model.Grant) ([]model.Grant, error) {
	if len(grants) == 0 {
		return nil, nil
	}

	stmt, err := t.tx.PrepareContext(ctx, t.dialect.rebind(t.dialect.insertGrant))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var inserted []model.Grant
	for _, g := range grants {
		res, err := stmt.ExecContext(ctx, userID, g.CosmeticID, g.TransactionID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to grant cosmetic %d: %w", g.CosmeticID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n == 1 {
			inserted = append(inserted, g)
		}
	}
	return inserted, nil
}

// CosmeticsByID returns the subset of ids that exist.
func (t *sqlTx) CosmeticsByID(ctx context.Context, ids []int64) ([]model.Cosmetic, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := t.dialect.rebind(`SELECT id, category, path FROM cosmetics WHERE id IN (` +
		placeholders(len(ids)) + `) ORDER BY id`)

	rows, err := t.tx.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cosmetics: %w", err)
	}
	defer rows.Close()

	return scanCosmetics(rows)
}

// MatchingCosmetics checks all (id, category) pairs with one query.
func (t *sqlTx) MatchingCosmetics(ctx context.Context, selections []model.Selection) ([]model.Cosmetic, error) {
	var conds []string
	var args []interface{}
	for _, s := range selections {
		if s.CosmeticID == nil {
			continue
		}
		conds = append(conds, `(id = ? AND category = ?)`)
		args = append(args, *s.CosmeticID, string(s.Category))
	}
	if len(conds) == 0 {
		return nil, nil
	}

	query := t.dialect.rebind(`SELECT id, category, path FROM cosmetics WHERE ` + strings.Join(conds, " OR "))

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to validate selections: %w", err)
	}
	defer rows.Close()

	return scanCosmetics(rows)
}

// OwnedCosmeticIDs returns which of ids the user holds an edge for.
func (t *sqlTx) OwnedCosmeticIDs(ctx context.Context, userID string, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := append([]interface{}{userID}, int64Args(ids)...)
	query := t.dialect.rebind(`SELECT cosmetic_id FROM user_cosmetics WHERE user_id = ? AND cosmetic_id IN (` +
		placeholders(len(ids)) + `)`)

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query owned cosmetics: %w", err)
	}
	defer rows.Close()

	var owned []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan cosmetic id: %w", err)
		}
		owned = append(owned, id)
	}
	return owned, rows.Err()
}

// SetActive rewrites the active flag for every edge of the user in category.
func (t *sqlTx) SetActive(ctx context.Context, userID string, category model.Category, cosmeticID *int64) error {
	var query string
	var args []interface{}
	if cosmeticID != nil {
		query = `UPDATE user_cosmetics SET active = (cosmetic_id = ?)
			WHERE user_id = ? AND cosmetic_id IN (SELECT id FROM cosmetics WHERE category = ?)`
		args = []interface{}{*cosmeticID, userID, string(category)}
	} else {
		query = `UPDATE user_cosmetics SET active = FALSE
			WHERE user_id = ? AND cosmetic_id IN (SELECT id FROM cosmetics WHERE category = ?)`
		args = []interface{}{userID, string(category)}
	}

	if _, err := t.tx.ExecContext(ctx, t.dialect.rebind(query), args...); err != nil {
		return fmt.Errorf("failed to set active %s: %w", category, err)
	}
	return nil
}

func scanCosmetics(rows *sql.Rows) ([]model.Cosmetic, error) {
	var cosmetics []model.Cosmetic
	for rows.Next() {
		var c model.Cosmetic
		var category string
		var path sql.NullString
		if err := rows.Scan(&c.ID, &category, &path); err != nil {
			return nil, fmt.Errorf("failed to scan cosmetic: %w", err)
		}
		c.Category = model.Category(category)
		if path.Valid {
			p := path.String
			c.Path = &p
		}
		cosmetics = append(cosmetics, c)
	}
	return cosmetics, rows.Err()
}

func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
