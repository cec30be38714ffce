package org

import "context"

type StoreAPI interface {
	GetCompany(ctx context.Context, id string) (Company, error)
	GetDepartment(ctx context.Context, id string) (Department, error)
	GetEmployee(ctx context.Context, id string) (Employee, error)
	ListEmployees(ctx context.Context, companyID, departmentID string, limit, offset int) ([]Employee, int, error)
}
