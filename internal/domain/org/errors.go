package org

import "errors"

var (
	ErrCompanyNotFound    = errors.New("company not found")
	ErrDepartmentNotFound = errors.New("department not found")
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrNotInCompany       = errors.New("employee does not belong to the specified company")
	ErrNotInDepartment    = errors.New("employee does not belong to the specified department")
)
