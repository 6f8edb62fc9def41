package withdrawal

import "context"

type Repository interface {
	// CreateReserved inserts a pending request after checking the amount
	// against the reserved-aware available balance under the wallet row
	// lock, so two concurrent requests cannot both pass the bound.
	CreateReserved(ctx context.Context, req *Request) (*Request, error)

	GetByID(ctx context.Context, id int) (*Request, error)
	ListByProfessional(ctx context.Context, professionalID int) ([]Request, error)
	ListByStatus(ctx context.Context, status string) ([]Request, error)

	MarkProcessing(ctx context.Context, id int) error
	MarkRejected(ctx context.Context, id int, notes string) error
}
