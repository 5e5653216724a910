package docstore

import "context"

// Document es un documento plano tal como lo entrega el store remoto.
// Fields contiene valores decodificados de JSON (string, float64, bool,
// []any, map[string]any, nil).
type Document struct {
	ID     string
	Fields map[string]any
}

// SnapshotFunc recibe el set completo de documentos de una colección.
// Se invoca en cada cambio; el snapshot reemplaza cualquier estado derivado
// anterior (nunca es un delta).
type SnapshotFunc func(docs []Document)

// Store abstrae el document store remoto (merge-patch por documento,
// notificación push por colección). Es eventualmente consistente y no ofrece
// transacciones entre documentos.
type Store interface {
	// Subscribe registra un listener para la colección. Dispara de inmediato
	// con el snapshot actual y luego en cada cambio. Devuelve la función para
	// desuscribirse.
	Subscribe(collection string, fn SnapshotFunc) (unsubscribe func())

	// UpsertMerge mezcla fields en el documento (shallow, campo por campo).
	// Crea el documento si no existe. Los campos omitidos quedan intactos.
	UpsertMerge(ctx context.Context, collection, id string, fields map[string]any) error

	// AddDocument crea un documento con id generado por el store.
	AddDocument(ctx context.Context, collection string, fields map[string]any) (string, error)

	// DeleteDocument elimina el documento. No es error si no existe.
	DeleteDocument(ctx context.Context, collection, id string) error
}

// Colecciones consumidas por el sistema.
const (
	CollectionCircles  = "circles"
	CollectionPivots   = "pivots"
	CollectionTaller   = "taller"
	CollectionVentas   = "ventas"
	CollectionUsuarios = "usuarios"
)
