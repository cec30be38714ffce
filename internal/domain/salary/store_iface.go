package salary

import "context"

type StoreAPI interface {
	Insert(ctx context.Context, r StoredRecord) error
	Update(ctx context.Context, r StoredRecord) (bool, error)
	Get(ctx context.Context, owner Owner, id string) (StoredRecord, error)
	PeriodTaken(ctx context.Context, employeeID string, month, year int, excludeID string) (bool, error)
	Delete(ctx context.Context, owner Owner, id string) (bool, error)
	List(ctx context.Context, owner Owner, limit, offset int) ([]StoredRecord, int, error)
	ListPeriod(ctx context.Context, companyID, departmentID string, month, year int) ([]StoredRecord, error)
}
