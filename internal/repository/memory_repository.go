package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/iliyamo/event-reservation/internal/model"
)

// MemoryRepository implements ReservaRepository and EventoStore with
// id-keyed tables held in memory.  Rows reference each other only by id.
// It backs the engine tests and the APP_STORE=memory development mode.
type MemoryRepository struct {
	mu          sync.RWMutex
	eventos     map[uint64]model.Evento
	reservas    map[uint64]model.Reserva
	nextEvento  uint64
	nextReserva uint64

	locksMu sync.Mutex
	locks   map[uint64]*sync.Mutex
}

// NewMemoryRepository returns an empty store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		eventos:  make(map[uint64]model.Evento),
		reservas: make(map[uint64]model.Reserva),
		locks:    make(map[uint64]*sync.Mutex),
	}
}

// CreateEvento stores e and assigns its id.
func (m *MemoryRepository) CreateEvento(ctx context.Context, e *model.Evento) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextEvento++
	e.ID = m.nextEvento
	m.eventos[e.ID] = *e
	return nil
}

func (m *MemoryRepository) FindEventoByID(ctx context.Context, id uint64) (*model.Evento, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.eventos[id]
	if !ok {
		return nil, ErrEventoNotFound
	}
	return &e, nil
}

func (m *MemoryRepository) ListEventos(ctx context.Context, f FiltroEventos) ([]model.Evento, error) {
	texto := strings.ToLower(strings.TrimSpace(f.Texto))
	m.mu.RLock()
	out := make([]model.Evento, 0, len(m.eventos))
	for _, e := range m.eventos {
		if !f.IncluirInactivos && !e.Activo {
			continue
		}
		if f.ProductorID != nil && e.ProductorID != *f.ProductorID {
			continue
		}
		if f.Desde != nil && e.Fecha.Before(*f.Desde) {
			continue
		}
		if texto != "" && !strings.Contains(strings.ToLower(e.Nombre), texto) &&
			!strings.Contains(strings.ToLower(e.Ubicacion), texto) {
			continue
		}
		out = append(out, e)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Fecha.Equal(out[j].Fecha) {
			return out[i].ID < out[j].ID
		}
		return out[i].Fecha.Before(out[j].Fecha)
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []model.Evento{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryRepository) SoftDeleteEvento(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.eventos[id]
	if !ok {
		return ErrEventoNotFound
	}
	e.Activo = false
	m.eventos[id] = e
	return nil
}

func (m *MemoryRepository) FindActiveReservasByEvento(ctx context.Context, eventoID uint64) ([]model.Reserva, error) {
	return m.filter(func(r *model.Reserva) bool { return r.EventoID == eventoID && r.EstaActiva() }), nil
}

func (m *MemoryRepository) FindActiveReservasByUsuarioAndEvento(ctx context.Context, usuarioID, eventoID uint64) ([]model.Reserva, error) {
	return m.filter(func(r *model.Reserva) bool {
		return r.UsuarioID == usuarioID && r.EventoID == eventoID && r.EstaActiva()
	}), nil
}

func (m *MemoryRepository) FindReservaByID(ctx context.Context, id uint64) (*model.Reserva, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reservas[id]
	if !ok {
		return nil, ErrReservaNotFound
	}
	c := r.Clone()
	return &c, nil
}

func (m *MemoryRepository) SaveReserva(ctx context.Context, r *model.Reserva) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignID(r)
	m.reservas[r.ID] = r.Clone()
	return nil
}

func (m *MemoryRepository) ListReservas(ctx context.Context, alcance model.AlcanceEstadisticas) ([]model.Reserva, error) {
	out := m.filter(alcance.Incluye)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// WithEventoLock serializes fn per event.  Saves made through the store
// passed to fn are buffered and only applied when fn succeeds.
func (m *MemoryRepository) WithEventoLock(ctx context.Context, eventoID uint64, fn func(ReservaStore) error) error {
	l := m.eventoLock(eventoID)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memoryTx{repo: m, pending: make(map[uint64]model.Reserva)}
	if err := fn(tx); err != nil {
		return err
	}
	m.mu.Lock()
	for id, r := range tx.pending {
		m.reservas[id] = r
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryRepository) eventoLock(id uint64) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

// assignID must be called with mu held.
func (m *MemoryRepository) assignID(r *model.Reserva) {
	if r.ID == 0 {
		m.nextReserva++
		r.ID = m.nextReserva
	}
}

func (m *MemoryRepository) filter(keep func(*model.Reserva) bool) []model.Reserva {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Reserva, 0)
	for _, r := range m.reservas {
		if keep(&r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// memoryTx is the store handed to WithEventoLock callbacks.  Reads see
// its own pending writes first.
type memoryTx struct {
	repo    *MemoryRepository
	pending map[uint64]model.Reserva
}

func (t *memoryTx) FindEventoByID(ctx context.Context, id uint64) (*model.Evento, error) {
	return t.repo.FindEventoByID(ctx, id)
}

func (t *memoryTx) FindActiveReservasByEvento(ctx context.Context, eventoID uint64) ([]model.Reserva, error) {
	return t.merge(func(r *model.Reserva) bool { return r.EventoID == eventoID && r.EstaActiva() }), nil
}

func (t *memoryTx) FindActiveReservasByUsuarioAndEvento(ctx context.Context, usuarioID, eventoID uint64) ([]model.Reserva, error) {
	return t.merge(func(r *model.Reserva) bool {
		return r.UsuarioID == usuarioID && r.EventoID == eventoID && r.EstaActiva()
	}), nil
}

func (t *memoryTx) FindReservaByID(ctx context.Context, id uint64) (*model.Reserva, error) {
	if r, ok := t.pending[id]; ok {
		c := r.Clone()
		return &c, nil
	}
	return t.repo.FindReservaByID(ctx, id)
}

func (t *memoryTx) SaveReserva(ctx context.Context, r *model.Reserva) error {
	t.repo.mu.Lock()
	t.repo.assignID(r)
	t.repo.mu.Unlock()
	t.pending[r.ID] = r.Clone()
	return nil
}

func (t *memoryTx) merge(keep func(*model.Reserva) bool) []model.Reserva {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()
	out := make([]model.Reserva, 0)
	for id, r := range t.repo.reservas {
		if p, ok := t.pending[id]; ok {
			r = p
		}
		if keep(&r) {
			out = append(out, r.Clone())
		}
	}
	for id, r := range t.pending {
		if _, seen := t.repo.reservas[id]; seen {
			continue
		}
		if keep(&r) {
			out = append(out, r.Clone())
		}
	}
	return out
}
