package org

import (
	"context"

	"hrpay/internal/domain/sensitive"
	"hrpay/internal/platform/logger"
)

const (
	DefaultEmployeePageSize = 10
	MaxEmployeePageSize     = 100
)

type Service struct {
	store  StoreAPI
	cipher sensitive.Cipher
	log    logger.Logger
}

func NewService(store StoreAPI, cipher sensitive.Cipher, log logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{store: store, cipher: cipher, log: log}
}

func (s *Service) Cipher() sensitive.Cipher {
	return s.cipher
}

// Chain resolves company, department and employee and verifies the employee
// is a member of both.
func (s *Service) Chain(ctx context.Context, companyID, departmentID, employeeID string) (Company, Department, Employee, error) {
	company, dept, err := s.Unit(ctx, companyID, departmentID)
	if err != nil {
		return Company{}, Department{}, Employee{}, err
	}
	employee, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return Company{}, Department{}, Employee{}, err
	}
	if employee.CompanyID != company.ID {
		return Company{}, Department{}, Employee{}, ErrNotInCompany
	}
	if employee.DepartmentID != dept.ID {
		return Company{}, Department{}, Employee{}, ErrNotInDepartment
	}
	return company, dept, employee, nil
}

// Unit resolves a company and one of its departments.
func (s *Service) Unit(ctx context.Context, companyID, departmentID string) (Company, Department, error) {
	company, err := s.store.GetCompany(ctx, companyID)
	if err != nil {
		return Company{}, Department{}, err
	}
	dept, err := s.store.GetDepartment(ctx, departmentID)
	if err != nil {
		return Company{}, Department{}, err
	}
	if dept.CompanyID != company.ID {
		return Company{}, Department{}, ErrDepartmentNotFound
	}
	return company, dept, nil
}

// DepartmentEmployees returns every employee of the department.
func (s *Service) DepartmentEmployees(ctx context.Context, companyID, departmentID string) ([]Employee, error) {
	employees, _, err := s.store.ListEmployees(ctx, companyID, departmentID, 0, 0)
	return employees, err
}

// ListEmployees returns a page of the department's employees projected
// through reveal or mask.
func (s *Service) ListEmployees(ctx context.Context, companyID, departmentID string, page, limit int, reveal bool) (EmployeePage, error) {
	company, dept, err := s.Unit(ctx, companyID, departmentID)
	if err != nil {
		return EmployeePage{}, err
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultEmployeePageSize
	}
	if limit > MaxEmployeePageSize {
		limit = MaxEmployeePageSize
	}

	employees, total, err := s.store.ListEmployees(ctx, companyID, departmentID, limit, (page-1)*limit)
	if err != nil {
		return EmployeePage{}, err
	}
	views := make([]EmployeeView, 0, len(employees))
	for _, e := range employees {
		views = append(views, ProjectEmployee(s.cipher, e, reveal))
	}
	if reveal {
		s.log.Infof("revealed %d employee records for department %s", len(views), dept.ID)
	}
	return EmployeePage{
		Company:    company,
		Department: dept,
		Employees:  views,
		Page:       page,
		Limit:      limit,
		Total:      total,
		Pages:      (total + limit - 1) / limit,
		Revealed:   reveal,
	}, nil
}
