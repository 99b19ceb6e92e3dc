package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"product-scraper/models"
)

// dialect captures what differs between the supported databases.
type dialect struct {
	driver      string
	schema      string
	placeholder func(n int) string
}

var postgresDialect = dialect{
	driver: "postgres",
	schema: `
		CREATE TABLE IF NOT EXISTS products (
			id          SERIAL PRIMARY KEY,
			target      VARCHAR(50)    NOT NULL,
			position    INTEGER        NOT NULL,
			title       TEXT           NOT NULL,
			description TEXT           NOT NULL DEFAULT '',
			price       NUMERIC(12,2)  NOT NULL,
			created_at  TIMESTAMPTZ    NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_products_target ON products(target);
		CREATE INDEX IF NOT EXISTS idx_products_price  ON products(price);
	`,
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
}

var sqliteDialect = dialect{
	driver: "sqlite",
	schema: `
		CREATE TABLE IF NOT EXISTS products (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			target      TEXT    NOT NULL,
			position    INTEGER NOT NULL,
			title       TEXT    NOT NULL,
			description TEXT    NOT NULL DEFAULT '',
			price       REAL    NOT NULL,
			created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_products_target ON products(target);
		CREATE INDEX IF NOT EXISTS idx_products_price  ON products(price);
	`,
	placeholder: func(int) string { return "?" },
}

// ProductStore archives cleaned product tables per target in a SQL database.
type ProductStore struct {
	db      *sql.DB
	dialect dialect
}

// OpenPostgres connects to PostgreSQL, retrying the ping while the server
// starts up, and runs the schema migration.
func OpenPostgres(dsn string) (*ProductStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	return newProductStore(db, postgresDialect)
}

// OpenSQLite opens (or creates) an SQLite database file and runs the schema migration.
func OpenSQLite(path string) (*ProductStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// one connection keeps ":memory:" databases alive and serialises writers
	db.SetMaxOpenConns(1)

	return newProductStore(db, sqliteDialect)
}

func newProductStore(db *sql.DB, d dialect) (*ProductStore, error) {
	s := &ProductStore{db: db, dialect: d}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: migrate: %w", d.driver, err)
	}
	return s, nil
}

func (s *ProductStore) migrate() error {
	_, err := s.db.Exec(s.dialect.schema)
	return err
}

// Driver returns the database driver name.
func (s *ProductStore) Driver() string { return s.dialect.driver }

// Write replaces the stored products of target with the rows of t.
// t must have a numeric price column.
func (s *ProductStore) Write(ctx context.Context, target string, t *models.Table) error {
	title, desc, price, err := productColumns(t)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.dialect.driver, err)
	}
	defer tx.Rollback()

	del := fmt.Sprintf("DELETE FROM products WHERE target = %s", s.dialect.placeholder(1))
	if _, err := tx.ExecContext(ctx, del, target); err != nil {
		return fmt.Errorf("%s: clear: %w", s.dialect.driver, err)
	}

	const batchSize = 50
	for start := 0; start < t.Len(); start += batchSize {
		end := start + batchSize
		if end > t.Len() {
			end = t.Len()
		}
		if err := s.insertBatch(ctx, tx, target, start, end, title, desc, price); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.dialect.driver, err)
	}
	return nil
}

func (s *ProductStore) insertBatch(ctx context.Context, tx *sql.Tx, target string, start, end int, title, desc, price *models.Column) error {
	const cols = 5
	valueStrings := make([]string, 0, end-start)
	valueArgs := make([]interface{}, 0, (end-start)*cols)

	for i := start; i < end; i++ {
		base := (i - start) * cols
		ph := make([]string, cols)
		for j := range ph {
			ph[j] = s.dialect.placeholder(base + j + 1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		valueArgs = append(valueArgs, target, i, title.Text[i], desc.Text[i], price.Num[i])
	}

	query := fmt.Sprintf(`
		INSERT INTO products (target, position, title, description, price)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("%s: insert: %w", s.dialect.driver, err)
	}
	return nil
}

// FetchAll returns the stored products of target as a cleaned table, in
// their original order.
func (s *ProductStore) FetchAll(ctx context.Context, target string) (*models.Table, error) {
	query := fmt.Sprintf(`
		SELECT title, description, price
		FROM products
		WHERE target = %s
		ORDER BY position
	`, s.dialect.placeholder(1))

	rows, err := s.db.QueryContext(ctx, query, target)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch all: %w", s.dialect.driver, err)
	}
	defer rows.Close()

	var titles, descs []string
	var prices []float64
	for rows.Next() {
		var title, desc string
		var price float64
		if err := rows.Scan(&title, &desc, &price); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", s.dialect.driver, err)
		}
		titles = append(titles, title)
		descs = append(descs, desc)
		prices = append(prices, price)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: fetch all: %w", s.dialect.driver, err)
	}

	t := models.NewTable(models.ProductColumns...)
	for i := range titles {
		if err := t.AppendRow(titles[i], descs[i], ""); err != nil {
			return nil, err
		}
	}
	err = t.ReplaceColumn(&models.Column{Name: models.ColumnPrice, Kind: models.KindNumber, Num: append([]float64{}, prices...)})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *ProductStore) Close() error {
	return s.db.Close()
}

func productColumns(t *models.Table) (title, desc, price *models.Column, err error) {
	var ok bool
	if title, ok = t.Column(models.ColumnTitle); !ok || title.Kind != models.KindText {
		return nil, nil, nil, fmt.Errorf("store: table needs a text %q column", models.ColumnTitle)
	}
	if desc, ok = t.Column(models.ColumnDescription); !ok || desc.Kind != models.KindText {
		return nil, nil, nil, fmt.Errorf("store: table needs a text %q column", models.ColumnDescription)
	}
	if price, ok = t.Column(models.ColumnPrice); !ok || price.Kind != models.KindNumber {
		return nil, nil, nil, fmt.Errorf("store: table needs a numeric %q column", models.ColumnPrice)
	}
	return title, desc, price, nil
}
