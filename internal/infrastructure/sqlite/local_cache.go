package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	appsync "github.com/jhoicas/caja-offline/internal/application/sync"
	"github.com/jhoicas/caja-offline/internal/domain"
	"github.com/jhoicas/caja-offline/internal/domain/entity"
)

var _ appsync.LocalCache = (*Cache)(nil)

// Cache copia local del terminal sobre SQLite. Es la vía que nunca falla por
// red: las escrituras aterrizan aquí antes de ser visibles para el operador y
// la cola de sincronización persiste sus sobres en la misma base.
type Cache struct {
	db *sql.DB
}

// Open abre (o crea) la base local del terminal en path y prepara el esquema.
// WAL + busy_timeout: el drenador de fondo y el hilo de ventas comparten la
// base sin bloquearse.
func Open(path string) (*Cache, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("abrir caché local: %w", err)
	}
	// SQLite admite un solo escritor; serializar en el pool evita SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping caché local: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS collections (
			collection  TEXT NOT NULL,
			id          TEXT NOT NULL,
			data        TEXT NOT NULL,
			created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
			PRIMARY KEY (collection, id)
		);
		CREATE INDEX IF NOT EXISTS idx_collections_collection ON collections (collection);`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("crear esquema de caché local: %w", err)
	}
	return nil
}

// Close cierra la base local.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Put inserta o reemplaza el registro completo de una colección.
func (c *Cache) Put(ctx context.Context, collection, id string, rec entity.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("serializar registro local: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO collections (collection, id, data) VALUES (?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data`,
		collection, id, string(data))
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return nil
}

// Get lee un registro por id.
func (c *Cache) Get(ctx context.Context, collection, id string) (entity.Record, error) {
	var data string
	err := c.db.QueryRowContext(ctx, `
		SELECT data FROM collections WHERE collection = ? AND id = ?`,
		collection, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return decodeRecord([]byte(data))
}

// Delete elimina un registro; borrar lo que no existe no es error.
func (c *Cache) Delete(ctx context.Context, collection, id string) error {
	if _, err := c.db.ExecContext(ctx, `
		DELETE FROM collections WHERE collection = ? AND id = ?`,
		collection, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// List devuelve todos los registros de una colección en orden de inserción.
func (c *Cache) List(ctx context.Context, collection string) ([]entity.Record, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT data FROM collections WHERE collection = ? ORDER BY rowid ASC`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var out []entity.Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		rec, err := decodeRecord([]byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return out, nil
}

// decodeRecord preserva los números como json.Number para no degradar los
// decimales a float64 al releer la caché.
func decodeRecord(data []byte) (entity.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec entity.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("deserializar registro local: %w", err)
	}
	return rec, nil
}
