package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	appsync "github.com/jhoicas/caja-offline/internal/application/sync"
)

var _ appsync.ConnectivityProbe = (*PingProbe)(nil)

// PingProbe sonda de conectividad contra el remoto: un ping con timeout corto,
// muestreado en cada llamada. Nunca bloquea más allá del timeout y no mantiene
// máquina de estados: la conectividad es un booleano del instante.
type PingProbe struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPingProbe construye la sonda. timeout <= 0 usa 1s.
func NewPingProbe(pool *pgxpool.Pool, timeout time.Duration) *PingProbe {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &PingProbe{pool: pool, timeout: timeout}
}

// Online responde si el remoto es alcanzable ahora mismo.
func (p *PingProbe) Online(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.pool.Ping(pctx) == nil
}
