package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	appsync "github.com/jhoicas/caja-offline/internal/application/sync"
	"github.com/jhoicas/caja-offline/internal/domain"
	"github.com/jhoicas/caja-offline/internal/domain/entity"
)

var _ appsync.Backend = (*Store)(nil)

// querier es lo que el Store necesita para ejecutar sentencias: lo satisfacen
// tanto el pool como una transacción abierta.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implementación del almacén canónico remoto sobre PostgreSQL. Todas las
// colecciones viven en una tabla de documentos jsonb clave (collection, id): el
// id siempre lo genera el cliente, de modo que Insert es un upsert natural y la
// reproducción de la cola no duplica registros.
type Store struct {
	pool *pgxpool.Pool
	db   querier
}

// NewStore construye el adaptador del remoto.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

// Atomically ejecuta fn dentro de una transacción: una acción compuesta (insert
// de la venta + descargas de stock + contadores) queda aplicada completa o no
// queda aplicada. Sin esto, un corte de red a mitad de la acción dejaría el
// insert confirmado, y el replay posterior (Insert devuelve created=false) se
// saltaría los efectos restantes para siempre.
func (s *Store) Atomically(ctx context.Context, fn func(appsync.Backend) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("abrir transacción: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Store{pool: s.pool, db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("confirmar transacción: %w", err)
	}
	return nil
}

// EnsureSchema crea la tabla de documentos y sus índices si no existen. No es
// fatal que falle al arranque (terminal offline): se reintenta al primer drenado.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS documents (
			collection  text        NOT NULL,
			id          text        NOT NULL,
			data        jsonb       NOT NULL,
			created_at  timestamptz NOT NULL DEFAULT now(),
			updated_at  timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, id)
		);
		CREATE INDEX IF NOT EXISTS idx_documents_store
			ON documents (collection, (data->>'store_id'));
		CREATE INDEX IF NOT EXISTS idx_documents_expiry
			ON documents (collection, (data->>'expiry_date'));`
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("crear esquema de documentos: %w", err)
	}
	return nil
}

// Insert upsert por id de cliente: devuelve false (sin error) si el documento ya
// existía. Esa señal es la base de la idempotencia del replay.
func (s *Store) Insert(ctx context.Context, collection string, rec entity.Record) (bool, error) {
	id := rec.Str("id")
	if id == "" {
		return false, fmt.Errorf("insertar en %s: %w (sin id)", collection, domain.ErrInvalidInput)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("serializar documento: %w", err)
	}
	tag, err := s.db.Exec(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO NOTHING`,
		collection, id, data)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", collection, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Update fusiona campos sobre el documento (data || fields).
func (s *Store) Update(ctx context.Context, collection, id string, fields entity.Record) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("serializar campos: %w", err)
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE documents
		SET data = data || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2`,
		collection, id, data)
	if err != nil {
		return fmt.Errorf("update %s: %w", collection, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateWhere aplica los campos solo si el documento cumple las condiciones de
// igualdad de expect (ej. status = COMPLETED). La condición se evalúa en la
// base, no en el cliente, para que dos terminales no apliquen el mismo cambio.
func (s *Store) UpdateWhere(ctx context.Context, collection, id string, fields, expect entity.Record) (bool, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return false, fmt.Errorf("serializar campos: %w", err)
	}
	query := strings.Builder{}
	query.WriteString(`
		UPDATE documents
		SET data = data || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2`)
	args := []any{collection, id, data}
	for k, v := range expect {
		args = append(args, k, valueText(v))
		query.WriteString(fmt.Sprintf(" AND data->>$%d = $%d", len(args)-1, len(args)))
	}
	tag, err := s.db.Exec(ctx, query.String(), args...)
	if err != nil {
		return false, fmt.Errorf("update condicional %s: %w", collection, err)
	}
	return tag.RowsAffected() > 0, nil
}

// AdjustNumeric ajuste relativo evaluado en la base (value = value + delta),
// nunca leer-modificar-escribir desde el cliente: dos terminales vendiendo las
// últimas unidades del mismo artículo no se pisan entre sí.
func (s *Store) AdjustNumeric(ctx context.Context, collection, id, field string, delta decimal.Decimal, clampZero bool) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE documents
		SET data = jsonb_set(
			data,
			ARRAY[$3],
			to_jsonb(CASE WHEN $5::bool
				THEN GREATEST(COALESCE((data->>$3)::numeric, 0) + $4::numeric, 0)
				ELSE COALESCE((data->>$3)::numeric, 0) + $4::numeric
			END),
			true),
		    updated_at = now()
		WHERE collection = $1 AND id = $2`,
		collection, id, field, delta.String(), clampZero)
	if err != nil {
		return fmt.Errorf("ajuste relativo %s.%s: %w", collection, field, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get lee un documento por id.
func (s *Store) Get(ctx context.Context, collection, id string) (entity.Record, error) {
	var data []byte
	err := s.db.QueryRow(ctx, `
		SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return decodeRecord(data)
}

// Query filtra por igualdad sobre campos del documento y ordena por un campo
// (texto: los timestamps RFC 3339 ordenan lexicográficamente, que es lo que
// necesita el FEFO por expiry_date), con created_at como desempate.
func (s *Store) Query(ctx context.Context, collection string, filter entity.Record, order appsync.Order) ([]entity.Record, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT data FROM documents WHERE collection = $1`)
	args := []any{collection}
	for k, v := range filter {
		args = append(args, k, valueText(v))
		query.WriteString(fmt.Sprintf(" AND data->>$%d = $%d", len(args)-1, len(args)))
	}
	if order.Field != "" {
		args = append(args, order.Field)
		dir := "ASC"
		if order.Desc {
			dir = "DESC"
		}
		query.WriteString(fmt.Sprintf(" ORDER BY data->>$%d %s, created_at ASC", len(args), dir))
	} else {
		query.WriteString(" ORDER BY created_at ASC")
	}

	rows, err := s.db.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []entity.Record
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return out, nil
}

// decodeRecord deserializa preservando los números como json.Number (los
// ajustes relativos reescriben los campos como número JSON y el cliente no debe
// perder precisión al releerlos).
func decodeRecord(data []byte) (entity.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec entity.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("deserializar documento: %w", err)
	}
	return rec, nil
}

// valueText forma texto de un valor de filtro, igual a como jsonb lo expone con ->>.
func valueText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		if x {
			return "true"
		}
		return "false"
	case decimal.Decimal:
		return x.String()
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
