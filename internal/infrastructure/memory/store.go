// Package memory implementa los puertos de persistencia en memoria. Lo usan los tests y
// STORAGE_DRIVER=memory para desarrollo local.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/cocina-stock-api/internal/application/inventory"
	"github.com/jhoicas/cocina-stock-api/internal/domain/entity"
	"github.com/jhoicas/cocina-stock-api/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

type invKey struct {
	locationID    string
	rawMaterialID string
}

type state struct {
	locations    map[string]entity.Location
	materials    map[string]entity.RawMaterial
	inventory    map[invKey]entity.LocationInventory
	transactions []entity.StockTransaction
	recipes      map[string]entity.Recipe
}

func newState() *state {
	return &state{
		locations: make(map[string]entity.Location),
		materials: make(map[string]entity.RawMaterial),
		inventory: make(map[invKey]entity.LocationInventory),
		recipes:   make(map[string]entity.Recipe),
	}
}

func (s *state) clone() *state {
	c := &state{
		locations:    make(map[string]entity.Location, len(s.locations)),
		materials:    make(map[string]entity.RawMaterial, len(s.materials)),
		inventory:    make(map[invKey]entity.LocationInventory, len(s.inventory)),
		transactions: make([]entity.StockTransaction, len(s.transactions)),
		recipes:      make(map[string]entity.Recipe, len(s.recipes)),
	}
	for k, v := range s.locations {
		c.locations[k] = v
	}
	for k, v := range s.materials {
		c.materials[k] = v
	}
	for k, v := range s.inventory {
		c.inventory[k] = v
	}
	copy(c.transactions, s.transactions)
	for k, v := range s.recipes {
		c.recipes[k] = v
	}
	return c
}

// backend abstrae si un repositorio trabaja sobre el estado confirmado o sobre la copia de una tx.
type backend interface {
	view(fn func(s *state))
	update(fn func(s *state) error) error
}

// Store estado en memoria. Las transacciones se serializan con txMu y trabajan sobre una copia
// que solo reemplaza al estado confirmado si fn no devuelve error.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *state
}

// New crea un store vacío.
func New() *Store {
	return &Store{data: newState()}
}

func (st *Store) view(fn func(s *state)) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	fn(st.data)
}

// Las escrituras sueltas también toman txMu para no perderse al confirmar una tx concurrente.
func (st *Store) update(fn func(s *state) error) error {
	st.txMu.Lock()
	defer st.txMu.Unlock()
	st.mu.Lock()
	defer st.mu.Unlock()
	return fn(st.data)
}

type txBackend struct {
	s *state
}

func (t txBackend) view(fn func(s *state))              { fn(t.s) }
func (t txBackend) update(fn func(s *state) error) error { return fn(t.s) }

// Run ejecuta fn con repositorios atados a una copia del estado; confirma si fn no falla.
// Dentro de fn no deben usarse los repositorios no transaccionales del Store.
func (st *Store) Run(ctx context.Context, fn func(
	invRepo repository.LocationInventoryRepository,
	txRepo repository.StockTransactionRepository,
	materialRepo repository.RawMaterialRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st.txMu.Lock()
	defer st.txMu.Unlock()

	st.mu.RLock()
	work := st.data.clone()
	st.mu.RUnlock()

	b := txBackend{s: work}
	if err := fn(&InventoryRepo{b: b}, &TransactionRepo{b: b}, &RawMaterialRepo{b: b}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	st.mu.Lock()
	st.data = work
	st.mu.Unlock()
	return nil
}

// Locations repositorio de sedes sobre el estado confirmado.
func (st *Store) Locations() *LocationRepo { return &LocationRepo{b: st} }

// RawMaterials repositorio de materias primas sobre el estado confirmado.
func (st *Store) RawMaterials() *RawMaterialRepo { return &RawMaterialRepo{b: st} }

// Inventory repositorio de inventario por sede sobre el estado confirmado.
func (st *Store) Inventory() *InventoryRepo { return &InventoryRepo{b: st} }

// Transactions repositorio del libro de movimientos sobre el estado confirmado.
func (st *Store) Transactions() *TransactionRepo { return &TransactionRepo{b: st} }

// Recipes repositorio de recetas sobre el estado confirmado.
func (st *Store) Recipes() *RecipeRepo { return &RecipeRepo{b: st} }
